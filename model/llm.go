package model

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// ErrGenerationFailed wraps any failure or timeout of the external
// completion call.
var ErrGenerationFailed = errors.New("generation failed")

// ModelTier selects between the fast default model and the higher
// capability variant used for the final reduce and short learning paths.
type ModelTier string

const (
	ModelFast    ModelTier = "fast"
	ModelCapable ModelTier = "capable"
)

type CompletionRequest struct {
	System      string
	Prompt      string
	History     []Message
	Model       ModelTier
	MaxTokens   int64
	Temperature float64
	JSONOutput  bool
}

type Message struct {
	Role    string
	Content string
}

// Generator turns an assembled prompt into text, optionally streaming
// tokens as they arrive.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	CompleteStream(ctx context.Context, req CompletionRequest, onToken func(string)) error
}

// GroqClient speaks to Groq's OpenAI-compatible chat completions
// endpoint.
type GroqClient struct {
	client       openai.Client
	fastModel    string
	capableModel string
}

func NewGroqClient(apiKey, baseURL string) *GroqClient {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	return &GroqClient{
		client:       client,
		fastModel:    "llama-3.1-8b-instant",
		capableModel: "llama-3.3-70b-versatile",
	}
}

func (g *GroqClient) buildParams(req CompletionRequest) openai.ChatCompletionNewParams {
	modelID := g.fastModel
	if req.Model == ModelCapable {
		modelID = g.capableModel
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.History {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelID),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	if req.JSONOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

func (g *GroqClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	completion, err := g.client.Chat.Completions.New(ctx, g.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}
	return completion.Choices[0].Message.Content, nil
}

func (g *GroqClient) CompleteStream(ctx context.Context, req CompletionRequest, onToken func(string)) error {
	stream := g.client.Chat.Completions.NewStreaming(ctx, g.buildParams(req))
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			onToken(content)
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return nil
}
