package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aescanero/chloe/internal/application/structured"
	"github.com/aescanero/chloe/pkg/ports"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// Config configures an OpenAI-compatible generator
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client implements ports.Generator with the chat completions API
type Client struct {
	client *openai.Client
	logger *zap.Logger
}

// NewClient creates a generator for OpenAI or any compatible endpoint
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}, nil
}

// Generate sends one chat completion and returns the first choice
func (c *Client) Generate(ctx context.Context, req *ports.GenerationRequest) (*ports.GenerationResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	completion := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONOutput {
		completion.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, completion)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Error("chat completion failed",
				zap.String("model", req.Model),
				zap.Int("status", apiErr.HTTPStatusCode),
				zap.Duration("duration", time.Since(start)))
		}
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	choice := resp.Choices[0]

	c.logger.Debug("chat completion reply",
		zap.String("model", resp.Model),
		zap.String("finish_reason", string(choice.FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)))

	out := &ports.GenerationResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}

	// A reply cut at the token limit cannot hold a complete JSON object
	if req.JSONOutput && choice.FinishReason == openai.FinishReasonLength {
		return out, &structured.SchemaError{
			Output: choice.Message.Content,
			Err:    fmt.Errorf("reply truncated after %d completion tokens", resp.Usage.CompletionTokens),
		}
	}

	return out, nil
}
