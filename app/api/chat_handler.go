package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"studykit/model"
	"studykit/retrieve"
	"studykit/types"
)

const chatSystemPrompt = `You are a helpful study tutor. Answer using the provided context when it is relevant; otherwise answer from general knowledge and say so. Keep answers focused and cite ideas from the context rather than inventing facts.`

type ChatHandler struct {
	retriever *retrieve.Retriever
	generator model.Generator
	logger    *slog.Logger
}

func NewChatHandler(retriever *retrieve.Retriever, generator model.Generator) *ChatHandler {
	return &ChatHandler{
		retriever: retriever,
		generator: generator,
		logger:    slog.Default(),
	}
}

// HandleChat streams the assistant's answer as server-sent events. Each
// token arrives as a "data:" line with a JSON payload; the stream ends
// with the sources event and a [DONE] marker.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	question := params.Messages[len(params.Messages)-1].Content
	history := make([]model.Message, 0, len(params.Messages)-1)
	for _, m := range params.Messages[:len(params.Messages)-1] {
		history = append(history, model.Message{Role: m.Role, Content: m.Content})
	}

	res, err := h.retriever.Retrieve(context.Background(), question)
	if err != nil {
		h.logger.Error("retrieval failed", "error", err)
		return err
	}

	req := model.CompletionRequest{
		System:      chatSystemPrompt,
		Prompt:      fmt.Sprintf("Context:\n%s\n\nQuestion: %s", res.Context, question),
		History:     history,
		Model:       model.ModelFast,
		Temperature: 0.7,
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		streamErr := h.generator.CompleteStream(context.Background(), req, func(token string) {
			writeEvent(w, fiber.Map{"token": token})
		})
		if streamErr != nil {
			h.logger.Error("chat stream failed", "error", streamErr)
			writeEvent(w, fiber.Map{"error": streamErr.Error()})
		} else {
			writeEvent(w, fiber.Map{"sources": res.Sources})
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	}))
	return nil
}

func writeEvent(w *bufio.Writer, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	w.Flush()
}
