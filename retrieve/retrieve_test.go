package retrieve

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studykit/model"
	"studykit/types"
)

type stubEmbedder struct {
	err error
}

func (s stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

type stubSearcher struct {
	chunks    []types.Chunk
	lastLimit int
}

func (s *stubSearcher) NearestChunks(ctx context.Context, embedding []float32, limit int) ([]types.Chunk, error) {
	s.lastLimit = limit
	return s.chunks, nil
}

func TestRetrieveNoMatchesReturnsMarker(t *testing.T) {
	r := New(stubEmbedder{}, &stubSearcher{}, 5)

	res, err := r.Retrieve(context.Background(), "what is a monad")
	require.NoError(t, err)
	assert.Equal(t, NoContextMarker, res.Context)
	assert.Empty(t, res.Sources)
}

func TestRetrieveEmbeddingFailureIsFatal(t *testing.T) {
	r := New(stubEmbedder{err: model.ErrEmbeddingUnavailable}, &stubSearcher{}, 5)

	_, err := r.Retrieve(context.Background(), "anything")
	require.ErrorIs(t, err, model.ErrEmbeddingUnavailable)
}

func TestRetrieveJoinsChunksWithSources(t *testing.T) {
	docID := uuid.New()
	searcher := &stubSearcher{chunks: []types.Chunk{
		{DocumentID: docID, Index: 3, Content: "first passage", Similarity: 0.91},
		{DocumentID: docID, Index: 7, Content: "second passage", Similarity: 0.84},
	}}
	r := New(stubEmbedder{}, searcher, 5)

	res, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)

	assert.Equal(t, "first passage\n\nsecond passage", res.Context)
	assert.Equal(t, 5, searcher.lastLimit)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, docID, res.Sources[0].DocumentID)
	assert.Equal(t, 3, res.Sources[0].ChunkIndex)
	assert.InDelta(t, 0.91, res.Sources[0].Similarity, 1e-9)
}

func TestRetrieveStopsAtCharacterBudget(t *testing.T) {
	big := strings.Repeat("a", contextCharBudget-100)
	searcher := &stubSearcher{chunks: []types.Chunk{
		{Index: 0, Content: big, Similarity: 0.9},
		{Index: 1, Content: strings.Repeat("b", 500), Similarity: 0.8},
	}}
	r := New(stubEmbedder{}, searcher, 5)

	res, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)

	// The second chunk would push past the budget and is left out.
	assert.Equal(t, big, res.Context)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, 0, res.Sources[0].ChunkIndex)
}

func TestRetrieveSnippetTruncation(t *testing.T) {
	long := strings.Repeat("x", snippetPreviewLength+50)
	searcher := &stubSearcher{chunks: []types.Chunk{{Index: 0, Content: long}}}
	r := New(stubEmbedder{}, searcher, 5)

	res, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)
	assert.Len(t, res.Sources[0].Snippet, snippetPreviewLength+3)
	assert.True(t, strings.HasSuffix(res.Sources[0].Snippet, "..."))
}
