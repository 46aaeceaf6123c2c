package types

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string

	PostgresDSN string

	GeminiAPIKey  string
	GeminiBaseURL string

	GroqAPIKey  string
	GroqBaseURL string

	ChunkSize    int
	ChunkOverlap int

	EmbeddingDim int

	SummaryDelay     time.Duration
	SummaryChunkCap  int
	SummaryBatchSize int
}

// LoadConfig assembles configuration from environment variables, with the
// defaults the service was tuned for. godotenv has already populated the
// environment by the time this runs.
func LoadConfig() Config {
	return Config{
		ServerAddr:       envOr("SERVER_ADDR", ":8080"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:    envOr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:      envOr("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		ChunkSize:        envIntOr("CHUNK_SIZE", 700),
		ChunkOverlap:     envIntOr("CHUNK_OVERLAP", 100),
		EmbeddingDim:     envIntOr("EMBEDDING_DIM", 768),
		SummaryDelay:     envDurationOr("SUMMARY_CALL_DELAY", 2500*time.Millisecond),
		SummaryChunkCap:  envIntOr("SUMMARY_CHUNK_CAP", 200),
		SummaryBatchSize: envIntOr("SUMMARY_BATCH_SIZE", 5),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
