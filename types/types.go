package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type SourceType string

const (
	SourceYouTube SourceType = "youtube"
	SourcePDF     SourceType = "pdf"
)

// ErrorSentinelPrefix marks a text field that holds a recorded failure
// instead of usable content. Consumers must check the prefix before
// treating the field as a summary.
const ErrorSentinelPrefix = "ERROR:"

type Document struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	SourceType    SourceType `json:"source_type"`
	SourceURL     string     `json:"source_url"`
	MasterSummary string     `json:"master_summary,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SummaryFailed reports whether the master summary holds the failure
// sentinel rather than real content.
func (d *Document) SummaryFailed() bool {
	return strings.HasPrefix(d.MasterSummary, ErrorSentinelPrefix)
}

type Chunk struct {
	ID         uuid.UUID      `json:"id"`
	DocumentID uuid.UUID      `json:"document_id"`
	Index      int            `json:"index"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Embedding  []float32      `json:"-"`
	Similarity float64        `json:"similarity,omitempty"`
}

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type MCQQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// StudyMaterial is one generation result for a document, eligible for
// caching when produced for the default difficulty.
type StudyMaterial struct {
	Summary    string        `json:"summary"`
	Flashcards []Flashcard   `json:"flashcards"`
	Questions  []MCQQuestion `json:"questions"`
}

type CachedContent struct {
	DocumentID uuid.UUID     `json:"document_id"`
	Difficulty string        `json:"difficulty"`
	Flashcards []Flashcard   `json:"flashcards"`
	Quiz       []MCQQuestion `json:"quiz"`
	Summary    string        `json:"summary"`
	CreatedAt  time.Time     `json:"created_at"`
}

type QuizAttempt struct {
	ID               uuid.UUID      `json:"id"`
	DocumentID       uuid.UUID      `json:"document_id"`
	DocumentTitle    string         `json:"document_title,omitempty"`
	Difficulty       string         `json:"difficulty"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"total_questions"`
	Percentage       float64        `json:"percentage"`
	TimeTakenSeconds int            `json:"time_taken_seconds"`
	WrongAnswers     map[string]any `json:"wrong_answers,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

type LearningPath struct {
	ID            uuid.UUID `json:"id"`
	Goal          string    `json:"goal"`
	TimeframeDays int       `json:"timeframe_days"`
	Roadmap       Roadmap   `json:"roadmap"`
	CreatedAt     time.Time `json:"created_at"`
}

type Roadmap struct {
	Days []RoadmapDay `json:"days"`
}

type RoadmapDay struct {
	Day         int    `json:"day"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Source identifies a chunk that contributed to a retrieval answer.
type Source struct {
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Snippet    string    `json:"snippet"`
	Similarity float64   `json:"similarity"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
