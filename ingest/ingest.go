package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"studykit/chunker"
	"studykit/model"
	"studykit/types"
)

// ErrEmptyContent is returned when extraction produced text but chunking
// yielded nothing to index. The document record still exists.
var ErrEmptyContent = errors.New("no content to chunk")

// DocumentStore is the slice of the store the orchestrator mutates.
type DocumentStore interface {
	CreateDocument(ctx context.Context, sourceType types.SourceType, sourceURL, title string) (uuid.UUID, error)
	InsertChunks(ctx context.Context, docID uuid.UUID, chunks []types.Chunk) error
}

// SummaryEnqueuer accepts fire-and-forget summarization jobs. Enqueue
// reports false when the job was dropped rather than queued.
type SummaryEnqueuer interface {
	Enqueue(docID uuid.UUID) bool
}

// Result is what an ingestion run produced. DocumentID is valid even
// when every later stage failed.
type Result struct {
	DocumentID      uuid.UUID
	ChunksProcessed int
	TranscriptFound bool
}

// Orchestrator drives ingestion: create the document record, extract
// text, chunk, embed best-effort, persist one chunk batch, enqueue the
// background summary.
type Orchestrator struct {
	store    DocumentStore
	embedder model.EmbedderInterface
	chunker  *chunker.Chunker
	queue    SummaryEnqueuer
	logger   *slog.Logger

	transcriptFn func(ctx context.Context, url string) (string, error)
	pdfTextFn    func(data []byte) (string, error)

	chunkSize    int
	chunkOverlap int
}

func NewOrchestrator(
	storer DocumentStore,
	embedder model.EmbedderInterface,
	ch *chunker.Chunker,
	queue SummaryEnqueuer,
	transcriptFn func(ctx context.Context, url string) (string, error),
	pdfTextFn func(data []byte) (string, error),
	chunkSize, chunkOverlap int,
) *Orchestrator {
	return &Orchestrator{
		store:        storer,
		embedder:     embedder,
		chunker:      ch,
		queue:        queue,
		logger:       slog.Default(),
		transcriptFn: transcriptFn,
		pdfTextFn:    pdfTextFn,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// IngestYouTube creates the document record first so a retrievable id
// exists even if the transcript cannot be fetched; a transcript failure
// is absorbed and the document is left with zero chunks.
func (o *Orchestrator) IngestYouTube(ctx context.Context, url string) (Result, error) {
	docID, err := o.store.CreateDocument(ctx, types.SourceYouTube, url, "YouTube Video: "+url)
	if err != nil {
		return Result{}, fmt.Errorf("create document record: %w", err)
	}
	res := Result{DocumentID: docID}

	text, err := o.transcriptFn(ctx, url)
	if err != nil {
		o.logger.Warn("transcript fetch failed, proceeding with URL fallback",
			"document_id", docID, "error", err)
		return res, nil
	}
	res.TranscriptFound = text != ""

	n, err := o.ingestText(ctx, docID, text)
	if err != nil {
		if errors.Is(err, ErrEmptyContent) {
			o.logger.Warn("transcript yielded no chunks", "document_id", docID)
			return res, nil
		}
		return res, err
	}
	res.ChunksProcessed = n
	return res, nil
}

// IngestPDF ingests an uploaded PDF. Extraction failure is non-fatal;
// a PDF whose extracted text chunks to nothing surfaces ErrEmptyContent
// alongside the already-created document id.
func (o *Orchestrator) IngestPDF(ctx context.Context, filename string, data []byte) (Result, error) {
	docID, err := o.store.CreateDocument(ctx, types.SourcePDF, filename, filename)
	if err != nil {
		return Result{}, fmt.Errorf("create document record: %w", err)
	}
	res := Result{DocumentID: docID}

	text, err := o.pdfTextFn(data)
	if err != nil {
		o.logger.Warn("pdf extraction failed, document kept with zero chunks",
			"document_id", docID, "error", err)
		return res, nil
	}

	n, err := o.ingestText(ctx, docID, text)
	if err != nil {
		return res, err
	}
	res.ChunksProcessed = n
	return res, nil
}

// ingestText chunks the extracted text, embeds each chunk best-effort
// and persists the whole set in one batch. A chunk whose embedding call
// fails is stored without a vector and stays retrievable by content.
func (o *Orchestrator) ingestText(ctx context.Context, docID uuid.UUID, text string) (int, error) {
	chunks, err := o.chunker.Split(text, o.chunkSize, o.chunkOverlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, ErrEmptyContent
	}

	records := make([]types.Chunk, len(chunks))
	embedded := 0
	for i, content := range chunks {
		records[i] = types.Chunk{
			DocumentID: docID,
			Index:      i,
			Content:    content,
			Metadata:   map[string]any{"chunk_index": i},
		}

		embedding, err := o.embedder.Embed(ctx, content)
		if err != nil {
			o.logger.Warn("embedding skipped for chunk",
				"document_id", docID, "chunk_index", i, "error", err)
			continue
		}
		records[i].Embedding = embedding
		embedded++
	}

	if err := o.store.InsertChunks(ctx, docID, records); err != nil {
		return 0, fmt.Errorf("persist chunks: %w", err)
	}
	o.logger.Info("stored chunks", "document_id", docID, "count", len(records), "embedded", embedded)

	if o.queue != nil {
		if !o.queue.Enqueue(docID) {
			o.logger.Warn("summary queue full, job dropped", "document_id", docID)
		}
	}
	return len(records), nil
}
