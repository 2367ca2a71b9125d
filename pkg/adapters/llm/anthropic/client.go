package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/chloe/internal/application/structured"
	"github.com/aescanero/chloe/pkg/ports"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// Config configures the Anthropic generator
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// MaxRetries is the SDK's own retry budget for 429 and 5xx replies
	MaxRetries int
}

// Client implements ports.Generator with the Anthropic Messages API
type Client struct {
	client anthropic.Client
	logger *zap.Logger
}

// NewClient creates an Anthropic generator
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		client: anthropic.NewClient(opts...),
		logger: logger,
	}, nil
}

// Generate sends one user message and returns the concatenated text reply
func (c *Client) Generate(ctx context.Context, req *ports.GenerationRequest) (*ports.GenerationResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			c.logger.Error("anthropic request failed",
				zap.String("model", req.Model),
				zap.Int("status", apiErr.StatusCode),
				zap.Duration("duration", time.Since(start)))
		}
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := sb.String()

	c.logger.Debug("anthropic reply",
		zap.String("model", string(msg.Model)),
		zap.String("stop_reason", string(msg.StopReason)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
		zap.Duration("duration", time.Since(start)))

	resp := &ports.GenerationResponse{
		Content:      content,
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}

	// A reply cut at the token limit cannot hold a complete JSON object
	if req.JSONOutput && msg.StopReason == anthropic.StopReasonMaxTokens {
		return resp, &structured.SchemaError{
			Output: content,
			Err:    fmt.Errorf("reply truncated after %d output tokens", msg.Usage.OutputTokens),
		}
	}

	return resp, nil
}
