package api

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"studykit/store"
	"studykit/types"
)

type LibraryHandler struct {
	documentStore store.DBStorer
}

func NewLibraryHandler(documentStore store.DBStorer) *LibraryHandler {
	return &LibraryHandler{
		documentStore: documentStore,
	}
}

func (h *LibraryHandler) HandleList(c *fiber.Ctx) error {
	docs, err := h.documentStore.ListDocuments(context.Background())
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []types.Document{}
	}
	return c.JSON(fiber.Map{"documents": docs})
}

func (h *LibraryHandler) HandleGet(c *fiber.Ctx) error {
	docID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidID()
	}

	doc, err := h.documentStore.GetDocumentByID(context.Background(), docID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound(docID, "document")
	}
	if err != nil {
		return err
	}
	return c.JSON(doc)
}

// HandleSummary serves the document's master summary. A summary that
// recorded a pipeline failure is reported as failed, not as content.
func (h *LibraryHandler) HandleSummary(c *fiber.Ctx) error {
	docID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidID()
	}

	doc, err := h.documentStore.GetDocumentByID(context.Background(), docID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound(docID, "document")
	}
	if err != nil {
		return err
	}

	resp := types.SummaryResponse{DocumentID: docID.String()}
	if doc.SummaryFailed() {
		resp.Failed = true
		resp.Error = strings.TrimSpace(strings.TrimPrefix(doc.MasterSummary, types.ErrorSentinelPrefix))
	} else {
		resp.Summary = doc.MasterSummary
	}
	return c.JSON(resp)
}
