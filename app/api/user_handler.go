package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"studykit/store"
)

type UserHandler struct {
	creditStore store.DBStorer
}

func NewUserHandler(creditStore store.DBStorer) *UserHandler {
	return &UserHandler{
		creditStore: creditStore,
	}
}

func (h *UserHandler) HandleCredits(c *fiber.Ctx) error {
	credits, err := h.creditStore.GetCredits(context.Background(), store.DefaultUserEmail)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound(store.DefaultUserEmail, "user")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"email": store.DefaultUserEmail, "credits": credits})
}
