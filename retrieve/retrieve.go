package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"studykit/model"
	"studykit/types"
)

// NoContextMarker is returned as the context string when no chunks
// matched the query. Downstream prompts treat it as "answer from
// general knowledge".
const NoContextMarker = "No relevant context found."

const (
	defaultTopK          = 5
	contextCharBudget    = 15000
	chunkSeparator       = "\n\n"
	snippetPreviewLength = 200
)

// ChunkSearcher is the subset of storage the retriever needs.
type ChunkSearcher interface {
	NearestChunks(ctx context.Context, embedding []float32, limit int) ([]types.Chunk, error)
}

type Retriever struct {
	embedder model.EmbedderInterface
	store    ChunkSearcher
	topK     int
	logger   *slog.Logger
}

func New(embedder model.EmbedderInterface, store ChunkSearcher, topK int) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		topK:     topK,
		logger:   slog.Default(),
	}
}

// Result carries the assembled context and the provenance of each
// chunk that contributed to it.
type Result struct {
	Context string
	Sources []types.Source
}

// Retrieve embeds the query, finds the nearest chunks and joins them
// into a single context string under the character budget. Embedding
// failure is fatal: without a query vector there is nothing to search.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*Result, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := r.store.NearestChunks(ctx, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	if len(chunks) == 0 {
		r.logger.Info("no matching chunks for query")
		return &Result{Context: NoContextMarker}, nil
	}

	var sb strings.Builder
	sources := make([]types.Source, 0, len(chunks))
	for _, c := range chunks {
		piece := c.Content
		if sb.Len() > 0 {
			piece = chunkSeparator + piece
		}
		if sb.Len()+len(piece) > contextCharBudget {
			break
		}
		sb.WriteString(piece)
		sources = append(sources, types.Source{
			DocumentID: c.DocumentID,
			ChunkIndex: c.Index,
			Snippet:    snippet(c.Content),
			Similarity: c.Similarity,
		})
	}
	if sb.Len() == 0 {
		return &Result{Context: NoContextMarker}, nil
	}

	return &Result{Context: sb.String(), Sources: sources}, nil
}

func snippet(s string) string {
	if len(s) <= snippetPreviewLength {
		return s
	}
	return s[:snippetPreviewLength] + "..."
}
