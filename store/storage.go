package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"studykit/types"
)

// ErrNotFound is returned when a selected row does not exist.
var ErrNotFound = errors.New("record not found")

// DefaultUserEmail identifies the single credit account the service
// currently tracks.
const DefaultUserEmail = "default@example.com"

type DBStorer interface {
	CreateDocument(ctx context.Context, sourceType types.SourceType, sourceURL, title string) (uuid.UUID, error)
	GetDocumentByID(ctx context.Context, docID uuid.UUID) (*types.Document, error)
	ListDocuments(ctx context.Context) ([]types.Document, error)
	UpdateMasterSummary(ctx context.Context, docID uuid.UUID, summary string) error

	InsertChunks(ctx context.Context, docID uuid.UUID, chunks []types.Chunk) error
	SelectChunks(ctx context.Context, docID uuid.UUID, limit int) ([]types.Chunk, error)
	NearestChunks(ctx context.Context, queryVec []float32, k int) ([]types.Chunk, error)

	GetCache(ctx context.Context, docID uuid.UUID, difficulty string) (*types.CachedContent, error)
	DeleteCache(ctx context.Context, docID uuid.UUID, difficulty string) error
	InsertCache(ctx context.Context, cached types.CachedContent) error

	InsertQuizAttempt(ctx context.Context, attempt types.QuizAttempt) (uuid.UUID, error)
	ListQuizAttempts(ctx context.Context) ([]types.QuizAttempt, error)

	InsertLearningPath(ctx context.Context, path types.LearningPath) (uuid.UUID, error)

	GetCredits(ctx context.Context, email string) (int, error)
	DeductCredit(ctx context.Context, email string) (bool, error)
}

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:   pool,
		logger: slog.Default(),
	}, nil
}

func (p *PostgresStore) CreateDocument(ctx context.Context, sourceType types.SourceType, sourceURL, title string) (uuid.UUID, error) {
	id := uuid.New()
	query := `INSERT INTO documents (id, title, source_type, source_url, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := p.pool.Exec(ctx, query, id, title, sourceType, sourceURL, time.Now())
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (p *PostgresStore) GetDocumentByID(ctx context.Context, docID uuid.UUID) (*types.Document, error) {
	query := `SELECT id, title, source_type, source_url, COALESCE(master_summary, ''), created_at
		FROM documents WHERE id = $1`

	doc := &types.Document{}
	err := p.pool.QueryRow(ctx, query, docID).Scan(
		&doc.ID,
		&doc.Title,
		&doc.SourceType,
		&doc.SourceURL,
		&doc.MasterSummary,
		&doc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *PostgresStore) ListDocuments(ctx context.Context) ([]types.Document, error) {
	query := `SELECT id, title, source_type, source_url, COALESCE(master_summary, ''), created_at
		FROM documents ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var doc types.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.SourceType, &doc.SourceURL, &doc.MasterSummary, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (p *PostgresStore) UpdateMasterSummary(ctx context.Context, docID uuid.UUID, summary string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE documents SET master_summary = $2 WHERE id = $1`, docID, summary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertChunks persists an ingestion run's chunks in one batch. Chunks
// without an embedding are stored with a NULL vector and remain
// selectable by content, just invisible to similarity search.
func (p *PostgresStore) InsertChunks(ctx context.Context, docID uuid.UUID, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := `INSERT INTO document_chunks (id, document_id, chunk_index, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)`

	batch := &pgx.Batch{}
	for _, c := range chunks {
		var embedding any
		if len(c.Embedding) > 0 {
			embedding = pgvector.NewVector(c.Embedding)
		}
		batch.Queue(query, uuid.New(), docID, c.Index, c.Content, c.Metadata, embedding)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch chunk insert: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) SelectChunks(ctx context.Context, docID uuid.UUID, limit int) ([]types.Chunk, error) {
	query := `SELECT id, document_id, chunk_index, content, metadata
		FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index`
	args := []any{docID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var c types.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &c.Metadata); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// NearestChunks runs the cosine nearest-neighbor query over chunks that
// carry a vector, most similar first.
func (p *PostgresStore) NearestChunks(ctx context.Context, queryVec []float32, k int) ([]types.Chunk, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	vector := pgvector.NewVector(queryVec)

	query := `
		SELECT dc.id, dc.document_id, dc.chunk_index, dc.content,
		       1 - (dc.embedding <=> $1) AS similarity
		FROM document_chunks dc
		WHERE dc.embedding IS NOT NULL
		ORDER BY dc.embedding <=> $1
		LIMIT $2
	`
	rows, err := p.pool.Query(ctx, query, vector, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var c types.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &c.Similarity); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (p *PostgresStore) GetCache(ctx context.Context, docID uuid.UUID, difficulty string) (*types.CachedContent, error) {
	query := `SELECT document_id, difficulty, flashcards, quiz, COALESCE(summary, ''), created_at
		FROM cached_content WHERE document_id = $1 AND difficulty = $2`

	cached := &types.CachedContent{}
	err := p.pool.QueryRow(ctx, query, docID, difficulty).Scan(
		&cached.DocumentID,
		&cached.Difficulty,
		&cached.Flashcards,
		&cached.Quiz,
		&cached.Summary,
		&cached.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cached, nil
}

func (p *PostgresStore) DeleteCache(ctx context.Context, docID uuid.UUID, difficulty string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM cached_content WHERE document_id = $1 AND difficulty = $2`, docID, difficulty)
	return err
}

func (p *PostgresStore) InsertCache(ctx context.Context, cached types.CachedContent) error {
	query := `INSERT INTO cached_content (document_id, difficulty, flashcards, quiz, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := p.pool.Exec(ctx, query,
		cached.DocumentID, cached.Difficulty, cached.Flashcards, cached.Quiz, cached.Summary, time.Now())
	return err
}

func (p *PostgresStore) InsertQuizAttempt(ctx context.Context, attempt types.QuizAttempt) (uuid.UUID, error) {
	id := uuid.New()
	query := `INSERT INTO quiz_attempts
		(id, document_id, difficulty, score, total_questions, percentage, time_taken_seconds, wrong_answers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := p.pool.Exec(ctx, query,
		id, attempt.DocumentID, attempt.Difficulty, attempt.Score, attempt.TotalQuestions,
		attempt.Percentage, attempt.TimeTakenSeconds, attempt.WrongAnswers, time.Now())
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (p *PostgresStore) ListQuizAttempts(ctx context.Context) ([]types.QuizAttempt, error) {
	query := `SELECT qa.id, qa.document_id, COALESCE(d.title, ''), qa.difficulty, qa.score,
		       qa.total_questions, qa.percentage, qa.time_taken_seconds, qa.created_at
		FROM quiz_attempts qa
		LEFT JOIN documents d ON qa.document_id = d.id
		ORDER BY qa.created_at DESC`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []types.QuizAttempt
	for rows.Next() {
		var a types.QuizAttempt
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.DocumentTitle, &a.Difficulty, &a.Score,
			&a.TotalQuestions, &a.Percentage, &a.TimeTakenSeconds, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (p *PostgresStore) InsertLearningPath(ctx context.Context, path types.LearningPath) (uuid.UUID, error) {
	id := uuid.New()
	query := `INSERT INTO learning_paths (id, goal, timeframe_days, roadmap, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := p.pool.Exec(ctx, query, id, path.Goal, path.TimeframeDays, path.Roadmap, time.Now())
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (p *PostgresStore) GetCredits(ctx context.Context, email string) (int, error) {
	var credits int
	err := p.pool.QueryRow(ctx, `SELECT credits FROM user_credits WHERE email = $1`, email).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return credits, nil
}

// DeductCredit atomically spends one credit, reporting false when the
// balance is already exhausted.
func (p *PostgresStore) DeductCredit(ctx context.Context, email string) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE user_credits SET credits = credits - 1 WHERE email = $1 AND credits > 0`, email)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresStore) createTables(ctx context.Context) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		source_type TEXT CHECK (source_type IN ('youtube','pdf')),
		source_url TEXT,
		master_summary TEXT,
		created_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id UUID PRIMARY KEY,
		document_id UUID NOT NULL REFERENCES documents(id),
		chunk_index INT NOT NULL,
		content TEXT NOT NULL,
		metadata JSONB,
		embedding vector(768)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON document_chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON document_chunks(document_id);

	CREATE TABLE IF NOT EXISTS cached_content (
		document_id UUID NOT NULL REFERENCES documents(id),
		difficulty TEXT NOT NULL,
		flashcards JSONB,
		quiz JSONB,
		summary TEXT,
		created_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_cache_doc_difficulty ON cached_content(document_id, difficulty);

	CREATE TABLE IF NOT EXISTS quiz_attempts (
		id UUID PRIMARY KEY,
		document_id UUID REFERENCES documents(id),
		difficulty TEXT,
		score INT,
		total_questions INT,
		percentage DOUBLE PRECISION,
		time_taken_seconds INT,
		wrong_answers JSONB,
		created_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS learning_paths (
		id UUID PRIMARY KEY,
		goal TEXT NOT NULL,
		timeframe_days INT NOT NULL,
		roadmap JSONB,
		created_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS user_credits (
		email TEXT PRIMARY KEY,
		credits INT NOT NULL DEFAULT 0
	);

	INSERT INTO user_credits (email, credits) VALUES ('` + DefaultUserEmail + `', 50)
	ON CONFLICT (email) DO NOTHING;
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createTables(ctx)
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("postgres connection pool closed")
	}
	return nil
}
