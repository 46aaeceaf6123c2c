package chunker

import (
	"errors"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// ErrInvalidInput is returned for chunking parameters that can never
// produce a terminating window sequence.
var ErrInvalidInput = errors.New("invalid chunking parameters")

// Tokenizer is a deterministic subword tokenizer. Chunk boundaries are
// measured in its tokens, so size limits are token-accurate.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Tiktoken wraps the cl100k_base encoding used by the embedding model.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

func NewTiktoken() (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load cl100k_base encoding: %w", err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

type Chunker struct {
	tok Tokenizer
}

func New(tok Tokenizer) *Chunker {
	return &Chunker{tok: tok}
}

// Split cuts text into overlapping windows of at most chunkSize tokens,
// advancing by chunkSize-overlap each step. The last window may be
// shorter. Empty input yields no chunks. overlap must be strictly less
// than chunkSize or the window would never advance.
func (c *Chunker) Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidInput, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidInput, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be less than chunk size %d", ErrInvalidInput, overlap, chunkSize)
	}

	tokens := c.tok.Encode(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	var chunks []string
	for start := 0; start < len(tokens); start += chunkSize - overlap {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.tok.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}
