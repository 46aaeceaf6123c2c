package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// ErrEmbeddingUnavailable wraps any failure of the external embedding
// call. Ingestion treats it as non-fatal per chunk; retrieval treats it
// as fatal for the whole request.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// EmbedderInterface converts text into a fixed-length dense vector.
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder produces 768-dimensional embeddings via the Gemini
// embedContent REST endpoint.
type GeminiEmbedder struct {
	baseURL   string
	apiKey    string
	modelName string
	dim       int
	client    *http.Client
}

func NewGeminiEmbedder(baseURL, apiKey string, dim int) *GeminiEmbedder {
	return &GeminiEmbedder{
		baseURL:   baseURL,
		apiKey:    apiKey,
		modelName: "gemini-embedding-001",
		dim:       dim,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type geminiEmbedRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	OutputDimensionality int           `json:"outputDimensionality"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := geminiEmbedRequest{
		Model:                "models/" + e.modelName,
		Content:              geminiContent{Parts: []geminiPart{{Text: text}}},
		OutputDimensionality: e.dim,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrEmbeddingUnavailable, err)
	}

	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", e.baseURL, e.modelName, e.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingUnavailable, resp.StatusCode, string(msg))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrEmbeddingUnavailable, err)
	}

	var embResp geminiEmbedResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", ErrEmbeddingUnavailable, err)
	}
	if len(embResp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", ErrEmbeddingUnavailable)
	}

	norm := normalize64(embResp.Embedding.Values)

	embedding := make([]float32, len(norm))
	for i, v := range norm {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// normalize64 scales a vector to unit length so cosine distance in the
// store behaves as inner product.
func normalize64(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i, x := range vec {
		vec[i] = x / norm
	}
	return vec
}
