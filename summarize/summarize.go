package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"studykit/model"
	"studykit/types"
)

// Stage identifies where in the map-reduce pipeline a run currently is,
// and which stage a failure belongs to.
type Stage string

const (
	StagePending  Stage = "pending"
	StageMapping  Stage = "mapping"
	StageReduceL1 Stage = "reducing_l1"
	StageReduceL2 Stage = "reducing_l2"
	StageDone     Stage = "done"

	failStageMap     = "map"
	failStageReduce1 = "reduce1"
	failStageReduce2 = "reduce2"
)

// StageError is the tagged failure of one pipeline stage. It is carried
// as a value internally and serialized to the "ERROR:" sentinel only
// when written to the document row.
type StageError struct {
	Stage  string
	Reason error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("summarization failed at %s: %v", e.Stage, e.Reason)
}

// Sentinel renders the failure in the persisted master-summary
// convention.
func (e *StageError) Sentinel() string {
	return fmt.Sprintf("%s %s: %v", types.ErrorSentinelPrefix, e.Stage, e.Reason)
}

// Pacer spaces external calls to stay under the provider's
// requests-per-minute ceiling. Production uses a token bucket; tests
// inject an immediate fake.
type Pacer interface {
	Wait(ctx context.Context) error
}

// DocStore is the slice of the store the summarizer reads and mutates.
type DocStore interface {
	SelectChunks(ctx context.Context, docID uuid.UUID, limit int) ([]types.Chunk, error)
	UpdateMasterSummary(ctx context.Context, docID uuid.UUID, summary string) error
}

type microSummary struct {
	Topic       string   `json:"topic"`
	Summary     string   `json:"summary"`
	KeyConcepts []string `json:"key_concepts"`
}

type intermediateSummary struct {
	Theme   string `json:"theme"`
	Summary string `json:"summary"`
}

// Summarizer reduces a document's chunk set to one bounded master
// summary: per-chunk micro-summaries, then batched intermediate
// summaries, then a single final reduce on the capable model. Every
// stage is serialized behind the pacer; terminal failures are recorded
// on the document instead of raised.
type Summarizer struct {
	store  DocStore
	gen    model.Generator
	pacer  Pacer
	logger *slog.Logger

	chunkCap  int
	batchSize int
}

func New(storer DocStore, gen model.Generator, pacer Pacer, chunkCap, batchSize int) *Summarizer {
	if chunkCap <= 0 {
		chunkCap = 200
	}
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Summarizer{
		store:     storer,
		gen:       gen,
		pacer:     pacer,
		logger:    slog.Default(),
		chunkCap:  chunkCap,
		batchSize: batchSize,
	}
}

// Run executes the full pipeline for one document. It never returns a
// pipeline error to the caller; the outcome, success or sentinel, is
// written to the document's master-summary field.
func (s *Summarizer) Run(ctx context.Context, docID uuid.UUID) {
	summary, stageErr := s.run(ctx, docID)

	text := summary
	if stageErr != nil {
		s.logger.Error("summarization failed", "document_id", docID,
			"stage", stageErr.Stage, "error", stageErr.Reason)
		text = stageErr.Sentinel()
	} else {
		s.logger.Info("summarization stage", "document_id", docID, "stage", StageDone)
	}

	if err := s.store.UpdateMasterSummary(ctx, docID, text); err != nil {
		s.logger.Error("failed to persist master summary", "document_id", docID, "error", err)
	}
}

func (s *Summarizer) run(ctx context.Context, docID uuid.UUID) (string, *StageError) {
	chunks, err := s.store.SelectChunks(ctx, docID, s.chunkCap)
	if err != nil {
		return "", &StageError{Stage: failStageMap, Reason: fmt.Errorf("load chunks: %w", err)}
	}
	if len(chunks) == 0 {
		return "", &StageError{Stage: failStageMap, Reason: fmt.Errorf("document has no chunks")}
	}

	s.logger.Info("summarization stage", "document_id", docID, "stage", StageMapping, "chunks", len(chunks))
	micros, stageErr := s.mapStage(ctx, docID, chunks)
	if stageErr != nil {
		return "", stageErr
	}

	s.logger.Info("summarization stage", "document_id", docID, "stage", StageReduceL1, "micro_summaries", len(micros))
	intermediates, stageErr := s.reduceL1(ctx, docID, micros)
	if stageErr != nil {
		return "", stageErr
	}

	s.logger.Info("summarization stage", "document_id", docID, "stage", StageReduceL2, "batches", len(intermediates))
	return s.reduceL2(ctx, intermediates)
}

// mapStage requests one micro-summary per chunk, strictly sequentially.
// A failed chunk is dropped from the summary set; only a fully empty
// map result fails the run.
func (s *Summarizer) mapStage(ctx context.Context, docID uuid.UUID, chunks []types.Chunk) ([]microSummary, *StageError) {
	var micros []microSummary
	for _, chunk := range chunks {
		if err := s.pacer.Wait(ctx); err != nil {
			return nil, &StageError{Stage: failStageMap, Reason: err}
		}

		raw, err := s.gen.Complete(ctx, model.CompletionRequest{
			Prompt:      microSummaryPrompt(chunk.Content),
			Model:       model.ModelFast,
			MaxTokens:   300,
			Temperature: 0.3,
			JSONOutput:  true,
		})
		if err != nil {
			s.logger.Warn("micro-summary failed, chunk dropped",
				"document_id", docID, "chunk_index", chunk.Index, "error", err)
			continue
		}

		var micro microSummary
		if err := json.Unmarshal([]byte(raw), &micro); err != nil {
			s.logger.Warn("micro-summary unparseable, chunk dropped",
				"document_id", docID, "chunk_index", chunk.Index, "error", err)
			continue
		}
		micros = append(micros, micro)
	}

	if len(micros) == 0 {
		return nil, &StageError{Stage: failStageMap, Reason: fmt.Errorf("all %d micro-summaries failed", len(chunks))}
	}
	return micros, nil
}

// reduceL1 merges micro-summaries in fixed-size batches so that every
// reduce call's input stays bounded regardless of document length.
func (s *Summarizer) reduceL1(ctx context.Context, docID uuid.UUID, micros []microSummary) ([]intermediateSummary, *StageError) {
	var intermediates []intermediateSummary
	for start := 0; start < len(micros); start += s.batchSize {
		end := start + s.batchSize
		if end > len(micros) {
			end = len(micros)
		}
		batch := micros[start:end]

		if err := s.pacer.Wait(ctx); err != nil {
			return nil, &StageError{Stage: failStageReduce1, Reason: err}
		}

		raw, err := s.gen.Complete(ctx, model.CompletionRequest{
			Prompt:      intermediatePrompt(batch),
			Model:       model.ModelFast,
			MaxTokens:   400,
			Temperature: 0.3,
			JSONOutput:  true,
		})
		if err != nil {
			s.logger.Warn("intermediate summary failed, batch dropped",
				"document_id", docID, "batch_start", start, "error", err)
			continue
		}

		var inter intermediateSummary
		if err := json.Unmarshal([]byte(raw), &inter); err != nil {
			s.logger.Warn("intermediate summary unparseable, batch dropped",
				"document_id", docID, "batch_start", start, "error", err)
			continue
		}
		intermediates = append(intermediates, inter)
	}

	if len(intermediates) == 0 {
		return nil, &StageError{Stage: failStageReduce1, Reason: fmt.Errorf("all intermediate batches failed")}
	}
	return intermediates, nil
}

// reduceL2 issues the single final call over all intermediate summaries
// on the capable model. Failure here is fatal to the run.
func (s *Summarizer) reduceL2(ctx context.Context, intermediates []intermediateSummary) (string, *StageError) {
	if err := s.pacer.Wait(ctx); err != nil {
		return "", &StageError{Stage: failStageReduce2, Reason: err}
	}

	summary, err := s.gen.Complete(ctx, model.CompletionRequest{
		Prompt:      masterPrompt(intermediates),
		Model:       model.ModelCapable,
		MaxTokens:   1200,
		Temperature: 0.4,
	})
	if err != nil {
		return "", &StageError{Stage: failStageReduce2, Reason: err}
	}
	if strings.TrimSpace(summary) == "" {
		return "", &StageError{Stage: failStageReduce2, Reason: fmt.Errorf("empty final summary")}
	}
	return summary, nil
}
