package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"studykit/ingest"
	"studykit/types"
)

type UploadHandler struct {
	orchestrator *ingest.Orchestrator
	logger       *slog.Logger
}

func NewUploadHandler(orchestrator *ingest.Orchestrator) *UploadHandler {
	return &UploadHandler{
		orchestrator: orchestrator,
		logger:       slog.Default(),
	}
}

func (h *UploadHandler) HandleYouTube(c *fiber.Ctx) error {
	var params types.YouTubeParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	res, err := h.orchestrator.IngestYouTube(context.Background(), params.URL)
	if err != nil {
		h.logger.Error("youtube ingestion failed", "url", params.URL, "error", err)
		return err
	}

	return c.JSON(types.UploadResponse{
		Status:          "processed",
		DocumentID:      res.DocumentID.String(),
		TranscriptFound: res.TranscriptFound,
		ChunksProcessed: res.ChunksProcessed,
	})
}

func (h *UploadHandler) HandlePDF(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		return ErrUnsupportedFile("only PDF files are supported")
	}

	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	res, err := h.orchestrator.IngestPDF(context.Background(), file.Filename, data)
	if errors.Is(err, ingest.ErrEmptyContent) {
		return NewError(fiber.StatusBadRequest, "PDF text empty or could not be chunked")
	}
	if err != nil {
		h.logger.Error("pdf ingestion failed", "file", file.Filename, "error", err)
		return err
	}

	return c.JSON(types.UploadResponse{
		Status:          "processed",
		DocumentID:      res.DocumentID.String(),
		ChunksProcessed: res.ChunksProcessed,
	})
}
