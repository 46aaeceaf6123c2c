package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"studykit/generate"
	"studykit/store"
	"studykit/types"
)

type GenerateHandler struct {
	service *generate.Service
	logger  *slog.Logger
}

func NewGenerateHandler(service *generate.Service) *GenerateHandler {
	return &GenerateHandler{
		service: service,
		logger:  slog.Default(),
	}
}

func (h *GenerateHandler) material(c *fiber.Ctx) (*types.StudyMaterial, bool, error) {
	var params types.GenerateParams
	if c.BodyParser(&params) != nil {
		return nil, false, ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return nil, false, NewValidationError(errs)
	}

	docID, err := uuid.Parse(params.DocumentID)
	if err != nil {
		return nil, false, ErrInvalidID()
	}

	material, fromCache, err := h.service.StudyMaterial(context.Background(), docID, params.Difficulty)
	if errors.Is(err, generate.ErrInsufficientCredits) {
		return nil, false, ErrPaymentRequired()
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, ErrNotFound(params.DocumentID, "document")
	}
	if err != nil {
		h.logger.Error("study material generation failed", "document_id", docID, "error", err)
		return nil, false, err
	}
	return material, fromCache, nil
}

func (h *GenerateHandler) HandleAll(c *fiber.Ctx) error {
	material, fromCache, err := h.material(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"summary":    material.Summary,
		"flashcards": material.Flashcards,
		"questions":  material.Questions,
		"cached":     fromCache,
	})
}

func (h *GenerateHandler) HandleFlashcards(c *fiber.Ctx) error {
	material, fromCache, err := h.material(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"flashcards": material.Flashcards,
		"cached":     fromCache,
	})
}

func (h *GenerateHandler) HandleQuiz(c *fiber.Ctx) error {
	material, fromCache, err := h.material(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"questions": material.Questions,
		"cached":    fromCache,
	})
}

func (h *GenerateHandler) HandlePath(c *fiber.Ctx) error {
	var params types.PathParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	path, err := h.service.LearningPath(context.Background(), params.Goal, params.Days)
	if errors.Is(err, generate.ErrInsufficientCredits) {
		return ErrPaymentRequired()
	}
	if err != nil {
		h.logger.Error("learning path generation failed", "goal", params.Goal, "error", err)
		return err
	}
	return c.JSON(path)
}
