package summarize

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Queue feeds documents to a single summarizer worker. Ingestion
// enqueues fire-and-forget; the worker drains jobs one at a time so the
// pipeline's rate pacing is never defeated by concurrent runs.
type Queue struct {
	jobs       chan uuid.UUID
	summarizer *Summarizer
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewQueue(s *Summarizer, size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		jobs:       make(chan uuid.UUID, size),
		summarizer: s,
		logger:     slog.Default(),
	}
}

// Enqueue submits a document for summarization without blocking the
// caller. It reports false when the queue is full and the job was
// dropped.
func (q *Queue) Enqueue(docID uuid.UUID) bool {
	select {
	case q.jobs <- docID:
		q.logger.Info("summarization job queued", "document_id", docID, "stage", StagePending)
		return true
	default:
		return false
	}
}

// Start launches the worker goroutine. It runs until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case docID := <-q.jobs:
				q.summarizer.Run(ctx, docID)
			}
		}
	}()
}

// Wait blocks until the worker has stopped.
func (q *Queue) Wait() {
	q.wg.Wait()
}
