package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studykit/chunker"
	"studykit/model"
	"studykit/types"
)

// wordTokenizer splits on spaces so tests control token counts exactly.
type wordTokenizer struct{}

func (wordTokenizer) Encode(text string) []int {
	words := strings.Fields(text)
	tokens := make([]int, len(words))
	for i := range words {
		tokens[i] = i
	}
	return tokens
}

func (wordTokenizer) Decode(tokens []int) string {
	words := make([]string, len(tokens))
	for i, tok := range tokens {
		words[i] = fmt.Sprintf("w%d", tok)
	}
	return strings.Join(words, " ")
}

type fakeDocumentStore struct {
	docs      []types.Document
	inserted  map[uuid.UUID][]types.Chunk
	createErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{inserted: make(map[uuid.UUID][]types.Chunk)}
}

func (f *fakeDocumentStore) CreateDocument(ctx context.Context, sourceType types.SourceType, sourceURL, title string) (uuid.UUID, error) {
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	id := uuid.New()
	f.docs = append(f.docs, types.Document{ID: id, Title: title, SourceType: sourceType, SourceURL: sourceURL})
	return id, nil
}

func (f *fakeDocumentStore) InsertChunks(ctx context.Context, docID uuid.UUID, chunks []types.Chunk) error {
	f.inserted[docID] = chunks
	return nil
}

type fakeEmbedder struct {
	failOn map[int]bool
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	call := f.calls
	f.calls++
	if f.failOn[call] {
		return nil, model.ErrEmbeddingUnavailable
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeQueue struct {
	enqueued []uuid.UUID
	full     bool
}

func (f *fakeQueue) Enqueue(docID uuid.UUID) bool {
	if f.full {
		return false
	}
	f.enqueued = append(f.enqueued, docID)
	return true
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func newTestOrchestrator(store *fakeDocumentStore, embedder *fakeEmbedder, queue *fakeQueue,
	transcript func(ctx context.Context, url string) (string, error),
	pdfText func(data []byte) (string, error),
) *Orchestrator {
	return NewOrchestrator(store, embedder, chunker.New(wordTokenizer{}), queue,
		transcript, pdfText, 10, 2)
}

func TestIngestYouTubeHappyPath(t *testing.T) {
	store := newFakeDocumentStore()
	embedder := &fakeEmbedder{}
	queue := &fakeQueue{}

	o := newTestOrchestrator(store, embedder, queue,
		func(ctx context.Context, url string) (string, error) { return words(25), nil },
		nil)

	res, err := o.IngestYouTube(context.Background(), "https://youtu.be/abc123")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.DocumentID)
	assert.True(t, res.TranscriptFound)

	// 25 words, size 10, overlap 2: windows at 0, 8 and 16.
	assert.Equal(t, 3, res.ChunksProcessed)
	require.Len(t, store.inserted[res.DocumentID], 3)
	assert.Equal(t, []uuid.UUID{res.DocumentID}, queue.enqueued)
}

func TestIngestYouTubeTranscriptFailureKeepsDocument(t *testing.T) {
	store := newFakeDocumentStore()
	queue := &fakeQueue{}

	o := newTestOrchestrator(store, &fakeEmbedder{}, queue,
		func(ctx context.Context, url string) (string, error) {
			return "", errors.New("no captions")
		},
		nil)

	res, err := o.IngestYouTube(context.Background(), "https://youtu.be/abc123")
	require.NoError(t, err)

	// The record exists and is addressable even with nothing indexed.
	assert.NotEqual(t, uuid.Nil, res.DocumentID)
	assert.False(t, res.TranscriptFound)
	assert.Zero(t, res.ChunksProcessed)
	assert.Empty(t, store.inserted[res.DocumentID])
	assert.Empty(t, queue.enqueued)
}

func TestIngestPDFExtractionFailureKeepsDocument(t *testing.T) {
	store := newFakeDocumentStore()

	o := newTestOrchestrator(store, &fakeEmbedder{}, &fakeQueue{}, nil,
		func(data []byte) (string, error) { return "", errors.New("corrupt pdf") })

	res, err := o.IngestPDF(context.Background(), "notes.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.DocumentID)
	assert.Zero(t, res.ChunksProcessed)
}

func TestIngestPDFEmptyTextReturnsErrEmptyContent(t *testing.T) {
	store := newFakeDocumentStore()

	o := newTestOrchestrator(store, &fakeEmbedder{}, &fakeQueue{}, nil,
		func(data []byte) (string, error) { return "   ", nil })

	res, err := o.IngestPDF(context.Background(), "blank.pdf", []byte("%PDF"))
	require.ErrorIs(t, err, ErrEmptyContent)
	assert.NotEqual(t, uuid.Nil, res.DocumentID)
}

func TestIngestEmbeddingFailureStoresChunkWithoutVector(t *testing.T) {
	store := newFakeDocumentStore()
	embedder := &fakeEmbedder{failOn: map[int]bool{1: true}}

	o := newTestOrchestrator(store, embedder, &fakeQueue{},
		func(ctx context.Context, url string) (string, error) { return words(25), nil },
		nil)

	res, err := o.IngestYouTube(context.Background(), "https://youtu.be/abc123")
	require.NoError(t, err)

	chunks := store.inserted[res.DocumentID]
	require.Len(t, chunks, 3)

	var withVector int
	for _, c := range chunks {
		if len(c.Embedding) > 0 {
			withVector++
		}
	}
	assert.Equal(t, 2, withVector)
	assert.Empty(t, chunks[1].Embedding)
	assert.Equal(t, "w8 w9 w10 w11 w12 w13 w14 w15 w16 w17", chunks[1].Content)
}

func TestIngestFullQueueDropsJobOnly(t *testing.T) {
	store := newFakeDocumentStore()
	queue := &fakeQueue{full: true}

	o := newTestOrchestrator(store, &fakeEmbedder{}, queue,
		func(ctx context.Context, url string) (string, error) { return words(12), nil },
		nil)

	res, err := o.IngestYouTube(context.Background(), "https://youtu.be/abc123")
	require.NoError(t, err)
	assert.NotZero(t, res.ChunksProcessed)
	assert.NotEmpty(t, store.inserted[res.DocumentID])
}

func TestIngestCreateDocumentFailureIsFatal(t *testing.T) {
	store := newFakeDocumentStore()
	store.createErr = errors.New("db down")

	o := newTestOrchestrator(store, &fakeEmbedder{}, &fakeQueue{},
		func(ctx context.Context, url string) (string, error) { return words(12), nil },
		nil)

	_, err := o.IngestYouTube(context.Background(), "https://youtu.be/abc123")
	require.Error(t, err)
}
