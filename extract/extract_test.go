package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "short link", url: "https://youtu.be/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "watch link", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "mobile link", url: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "watch link with extra params", url: "https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s", want: "dQw4w9WgXcQ"},
		{name: "missing video param", url: "https://www.youtube.com/watch?list=abc", wantErr: true},
		{name: "unrelated host", url: "https://vimeo.com/12345", wantErr: true},
		{name: "bare short host", url: "https://youtu.be/", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := VideoID(tc.url)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrExtractionFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTranscriptPrefersEnglishTrack(t *testing.T) {
	trackServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("lang")
		fmt.Fprintf(w, `{"events":[{"segs":[{"utf8":"hello from %s"}]}]}`, lang)
	}))
	defer trackServer.Close()

	watchServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `var ytInitialPlayerResponse = {"captions":{"captionTracks":[{"baseUrl":"%s/caption?lang=de","languageCode":"de"},{"baseUrl":"%s/caption?lang=en","languageCode":"en"}]}};`,
			trackServer.URL, trackServer.URL)
	}))
	defer watchServer.Close()

	f := NewTranscriptFetcher()
	f.baseURL = watchServer.URL

	text, err := f.Transcript(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "hello from en", text)
}

func TestTranscriptNoCaptionTracks(t *testing.T) {
	watchServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>no captions here</html>")
	}))
	defer watchServer.Close()

	f := NewTranscriptFetcher()
	f.baseURL = watchServer.URL

	_, err := f.Transcript(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.ErrorIs(t, err, ErrExtractionFailed)
}

func TestDecodeContentText(t *testing.T) {
	content := `BT /F1 12 Tf (Hello) Tj (World) Tj ET`
	assert.Equal(t, "Hello World", decodeContentText(content))
}

func TestDecodeContentTextTJArray(t *testing.T) {
	content := `BT [(Hel)-20(lo)] TJ ET`
	assert.Equal(t, "Hello", decodeContentText(content))
}

func TestDecodeContentTextQuoteOperator(t *testing.T) {
	content := `(next line) '`
	assert.Equal(t, "next line", decodeContentText(content))
}

func TestUnescapePDFString(t *testing.T) {
	assert.Equal(t, "plain", unescapePDFString("plain"))
	assert.Equal(t, "(nested)", unescapePDFString(`\(nested\)`))
	assert.Equal(t, "a\nb", unescapePDFString(`a\nb`))
	assert.Equal(t, `back\slash`, unescapePDFString(`back\\slash`))
	assert.Equal(t, "A", unescapePDFString(`\101`))
	assert.Equal(t, "tab\there", unescapePDFString(`tab\there`))
}
