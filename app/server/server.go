package server

import (
	"context"
	"log"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"studykit/app/api"
	"studykit/chunker"
	"studykit/extract"
	"studykit/generate"
	"studykit/ingest"
	"studykit/model"
	"studykit/retrieve"
	"studykit/store"
	"studykit/summarize"
	"studykit/types"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
	BodyLimit:    50 * 1024 * 1024,
}

type Server struct {
	cfg    types.Config
	logger *slog.Logger
	cancel context.CancelFunc
}

func NewServer(cfg types.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	pool, err := store.NewPostgresStore(ctx, s.cfg.PostgresDSN)
	if err != nil {
		log.Fatal("error to connect to Postgres database ", err)
		return
	}

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables ", err)
		return
	}

	tokenizer, err := chunker.NewTiktoken()
	if err != nil {
		log.Fatal("error to load tokenizer ", err)
		return
	}

	var (
		embedder   = model.NewGeminiEmbedder(s.cfg.GeminiBaseURL, s.cfg.GeminiAPIKey, s.cfg.EmbeddingDim)
		generator  = model.NewGroqClient(s.cfg.GroqAPIKey, s.cfg.GroqBaseURL)
		pacer      = summarize.NewPacer(s.cfg.SummaryDelay)
		summarizer = summarize.New(pool, generator, pacer, s.cfg.SummaryChunkCap, s.cfg.SummaryBatchSize)
		queue      = summarize.NewQueue(summarizer, 64)
		transcript = extract.NewTranscriptFetcher()

		orchestrator = ingest.NewOrchestrator(
			pool,
			embedder,
			chunker.New(tokenizer),
			queue,
			transcript.Transcript,
			extract.PDFText,
			s.cfg.ChunkSize,
			s.cfg.ChunkOverlap,
		)

		retriever = retrieve.New(embedder, pool, 5)
		studyGen  = generate.NewService(pool, generator)

		app             = fiber.New(config)
		checkHandler    = api.NewCheckHandler()
		uploadHandler   = api.NewUploadHandler(orchestrator)
		generateHandler = api.NewGenerateHandler(studyGen)
		chatHandler     = api.NewChatHandler(retriever, generator)
		libraryHandler  = api.NewLibraryHandler(pool)
		quizHandler     = api.NewQuizHandler(pool)
		userHandler     = api.NewUserHandler(pool)

		check = app.Group("/check")
		apiv1 = app.Group("/api/v1")
	)

	queue.Start(ctx)

	check.Get("/healthy", checkHandler.HandleHealthy)

	apiv1.Post("/upload/youtube", uploadHandler.HandleYouTube)
	apiv1.Post("/upload/pdf", uploadHandler.HandlePDF)

	apiv1.Post("/generate/all", generateHandler.HandleAll)
	apiv1.Post("/generate/flashcards", generateHandler.HandleFlashcards)
	apiv1.Post("/generate/quiz", generateHandler.HandleQuiz)
	apiv1.Post("/generate/path", generateHandler.HandlePath)

	apiv1.Post("/chat/stream", chatHandler.HandleChat)

	apiv1.Get("/library", libraryHandler.HandleList)
	apiv1.Get("/library/:id", libraryHandler.HandleGet)
	apiv1.Get("/summary/:id", libraryHandler.HandleSummary)

	apiv1.Post("/quiz/submit", quizHandler.HandleSubmit)
	apiv1.Get("/quiz/analytics", quizHandler.HandleAnalytics)

	apiv1.Get("/user/credits", userHandler.HandleCredits)

	if err := app.Listen(s.cfg.ServerAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return
	}
}
