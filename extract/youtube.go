package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var captionTracksRe = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

// VideoID extracts the 11-character video id from the supported YouTube
// URL forms (youtu.be short links and /watch?v= links).
func VideoID(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid youtube url %q", ErrExtractionFailed, rawURL)
	}

	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	switch host {
	case "youtu.be":
		if id := strings.Trim(parsed.Path, "/"); id != "" {
			return id, nil
		}
	case "youtube.com", "m.youtube.com":
		if parsed.Path == "/watch" {
			if id := parsed.Query().Get("v"); id != "" {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("%w: could not extract video id from %q", ErrExtractionFailed, rawURL)
}

// TranscriptFetcher pulls video transcripts by scraping the watch page
// for caption tracks and downloading the preferred one.
type TranscriptFetcher struct {
	baseURL string
	client  *http.Client
}

func NewTranscriptFetcher() *TranscriptFetcher {
	return &TranscriptFetcher{
		baseURL: "https://www.youtube.com",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

type transcriptEvents struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Transcript fetches the transcript of a video as a single text block,
// preferring English tracks and falling back to the first available one.
func (f *TranscriptFetcher) Transcript(ctx context.Context, videoURL string) (string, error) {
	videoID, err := VideoID(videoURL)
	if err != nil {
		return "", err
	}

	page, err := f.get(ctx, f.baseURL+"/watch?v="+videoID)
	if err != nil {
		return "", err
	}

	m := captionTracksRe.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("%w: no transcripts found for video %s", ErrExtractionFailed, videoID)
	}

	var tracks []captionTrack
	if err := json.Unmarshal(m[1], &tracks); err != nil {
		return "", fmt.Errorf("%w: malformed caption track list: %v", ErrExtractionFailed, err)
	}
	if len(tracks) == 0 {
		return "", fmt.Errorf("%w: no transcripts found for video %s", ErrExtractionFailed, videoID)
	}

	track := pickTrack(tracks)
	body, err := f.get(ctx, track.BaseURL+"&fmt=json3")
	if err != nil {
		return "", err
	}

	var events transcriptEvents
	if err := json.Unmarshal(body, &events); err != nil {
		return "", fmt.Errorf("%w: malformed transcript payload: %v", ErrExtractionFailed, err)
	}

	var parts []string
	for _, ev := range events.Events {
		for _, seg := range ev.Segs {
			text := strings.TrimSpace(seg.UTF8)
			if text != "" {
				parts = append(parts, text)
			}
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: transcript is empty for video %s", ErrExtractionFailed, videoID)
	}
	return strings.Join(parts, " "), nil
}

func pickTrack(tracks []captionTrack) captionTrack {
	preferred := []string{"en", "en-US", "en-GB", "en-IN", "hi"}
	for _, lang := range preferred {
		for _, t := range tracks {
			if t.LanguageCode == lang {
				return t
			}
		}
	}
	return tracks[0]
}

func (f *TranscriptFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s", ErrExtractionFailed, resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return body, nil
}
