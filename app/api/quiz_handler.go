package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"studykit/store"
	"studykit/types"
)

const recentAttemptsLimit = 10

type QuizHandler struct {
	attemptStore store.DBStorer
}

func NewQuizHandler(attemptStore store.DBStorer) *QuizHandler {
	return &QuizHandler{
		attemptStore: attemptStore,
	}
}

func (h *QuizHandler) HandleSubmit(c *fiber.Ctx) error {
	var params types.QuizSubmitParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	docID, err := uuid.Parse(params.DocumentID)
	if err != nil {
		return ErrInvalidID()
	}

	id, err := h.attemptStore.InsertQuizAttempt(context.Background(), types.QuizAttempt{
		DocumentID:       docID,
		Difficulty:       params.Difficulty,
		Score:            params.Score,
		TotalQuestions:   params.TotalQuestions,
		Percentage:       params.Percentage,
		TimeTakenSeconds: params.TimeTakenSeconds,
		WrongAnswers:     params.WrongAnswers,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"attempt_id": id.String()})
}

// HandleAnalytics aggregates quiz history into overall stats plus the
// most recent attempts.
func (h *QuizHandler) HandleAnalytics(c *fiber.Ctx) error {
	attempts, err := h.attemptStore.ListQuizAttempts(context.Background())
	if err != nil {
		return err
	}

	var stats types.QuizStats
	for _, a := range attempts {
		stats.TotalQuizzes++
		stats.AverageScore += a.Percentage
		stats.TotalStudyTime += a.TimeTakenSeconds
	}
	if stats.TotalQuizzes > 0 {
		stats.AverageScore /= float64(stats.TotalQuizzes)
	}

	recent := attempts
	if len(recent) > recentAttemptsLimit {
		recent = recent[:recentAttemptsLimit]
	}
	if recent == nil {
		recent = []types.QuizAttempt{}
	}

	return c.JSON(types.AnalyticsResponse{
		Stats:          stats,
		RecentAttempts: recent,
	})
}
