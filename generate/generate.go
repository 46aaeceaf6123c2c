package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"studykit/model"
	"studykit/store"
	"studykit/types"
)

var (
	// ErrInsufficientCredits signals an exhausted credit balance.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrNoContent means the document has no chunks and no source URL
	// to reason from.
	ErrNoContent = errors.New("document has no content")
)

// DefaultDifficulty is the variant eligible for caching.
const DefaultDifficulty = "medium"

const (
	contextChunkLimit = 20
	contextCharBudget = 15000

	shortPathMaxDays = 14
	shortPathMaxToks = 1500
	longPathMaxToks  = 3000
	studyPackMaxToks = 2500
	studyTemperature = 0.7
)

// ContentStore is the storage surface study material generation needs.
type ContentStore interface {
	GetDocumentByID(ctx context.Context, docID uuid.UUID) (*types.Document, error)
	SelectChunks(ctx context.Context, docID uuid.UUID, limit int) ([]types.Chunk, error)
	GetCache(ctx context.Context, docID uuid.UUID, difficulty string) (*types.CachedContent, error)
	DeleteCache(ctx context.Context, docID uuid.UUID, difficulty string) error
	InsertCache(ctx context.Context, cached types.CachedContent) error
	InsertLearningPath(ctx context.Context, path types.LearningPath) (uuid.UUID, error)
	DeductCredit(ctx context.Context, email string) (bool, error)
}

type Service struct {
	store     ContentStore
	generator model.Generator
	userEmail string
	logger    *slog.Logger
}

func NewService(st ContentStore, gen model.Generator) *Service {
	return &Service{
		store:     st,
		generator: gen,
		userEmail: store.DefaultUserEmail,
		logger:    slog.Default(),
	}
}

// StudyMaterial returns the full study pack for a document at the given
// difficulty. The default difficulty is served from cache when present;
// fresh generations of the default variant replace the cached copy.
func (s *Service) StudyMaterial(ctx context.Context, docID uuid.UUID, difficulty string) (*types.StudyMaterial, bool, error) {
	difficulty = NormalizeDifficulty(difficulty)

	if difficulty == DefaultDifficulty {
		cached, err := s.store.GetCache(ctx, docID, difficulty)
		if err == nil {
			return &types.StudyMaterial{
				Summary:    cached.Summary,
				Flashcards: cached.Flashcards,
				Questions:  cached.Quiz,
			}, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, fmt.Errorf("cache lookup: %w", err)
		}
	}

	ok, err := s.store.DeductCredit(ctx, s.userEmail)
	if err != nil {
		return nil, false, fmt.Errorf("deduct credit: %w", err)
	}
	if !ok {
		return nil, false, ErrInsufficientCredits
	}

	material, err := s.generate(ctx, docID, difficulty)
	if err != nil {
		return nil, false, err
	}

	if difficulty == DefaultDifficulty {
		if err := s.cache(ctx, docID, difficulty, material); err != nil {
			s.logger.Warn("failed to cache study material", "document_id", docID, "error", err)
		}
	}
	return material, false, nil
}

func (s *Service) generate(ctx context.Context, docID uuid.UUID, difficulty string) (*types.StudyMaterial, error) {
	doc, err := s.store.GetDocumentByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	chunks, err := s.store.SelectChunks(ctx, docID, contextChunkLimit)
	if err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}

	var prompt string
	switch {
	case len(chunks) > 0:
		prompt = studyPackPrompt(doc.Title, difficulty, joinChunks(chunks))
	case doc.SourceURL != "":
		prompt = topicFallbackPrompt(doc.Title, doc.SourceURL, difficulty)
	default:
		return nil, ErrNoContent
	}

	raw, err := s.generator.Complete(ctx, model.CompletionRequest{
		System:      studySystemPrompt,
		Prompt:      prompt,
		Model:       model.ModelFast,
		MaxTokens:   studyPackMaxToks,
		Temperature: studyTemperature,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, err
	}

	var material types.StudyMaterial
	if err := json.Unmarshal([]byte(raw), &material); err != nil {
		return nil, fmt.Errorf("parse study material: %w", err)
	}
	return &material, nil
}

func (s *Service) cache(ctx context.Context, docID uuid.UUID, difficulty string, material *types.StudyMaterial) error {
	if err := s.store.DeleteCache(ctx, docID, difficulty); err != nil {
		return err
	}
	return s.store.InsertCache(ctx, types.CachedContent{
		DocumentID: docID,
		Difficulty: difficulty,
		Flashcards: material.Flashcards,
		Quiz:       material.Questions,
		Summary:    material.Summary,
	})
}

// LearningPath builds a day-by-day study roadmap for a goal. Short
// timeframes afford the capable model; longer ones use the fast model
// with a larger token budget to fit the bigger roadmap.
func (s *Service) LearningPath(ctx context.Context, goal string, days int) (*types.LearningPath, error) {
	ok, err := s.store.DeductCredit(ctx, s.userEmail)
	if err != nil {
		return nil, fmt.Errorf("deduct credit: %w", err)
	}
	if !ok {
		return nil, ErrInsufficientCredits
	}

	tier := model.ModelCapable
	maxToks := int64(shortPathMaxToks)
	if days > shortPathMaxDays {
		tier = model.ModelFast
		maxToks = longPathMaxToks
	}

	raw, err := s.generator.Complete(ctx, model.CompletionRequest{
		System:      pathSystemPrompt,
		Prompt:      learningPathPrompt(goal, days),
		Model:       tier,
		MaxTokens:   maxToks,
		Temperature: studyTemperature,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, err
	}

	var roadmap types.Roadmap
	if err := json.Unmarshal([]byte(raw), &roadmap); err != nil {
		return nil, fmt.Errorf("parse roadmap: %w", err)
	}
	for i := range roadmap.Days {
		roadmap.Days[i].Completed = false
	}

	path := types.LearningPath{
		Goal:          goal,
		TimeframeDays: days,
		Roadmap:       roadmap,
	}
	id, err := s.store.InsertLearningPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("store learning path: %w", err)
	}
	path.ID = id
	return &path, nil
}

// NormalizeDifficulty lowercases the input and falls back to the
// default for unknown values.
func NormalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "easy":
		return "easy"
	case "hard":
		return "hard"
	default:
		return DefaultDifficulty
	}
}

func joinChunks(chunks []types.Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		if sb.Len()+len(c.Content)+2 > contextCharBudget {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(c.Content)
	}
	return sb.String()
}
