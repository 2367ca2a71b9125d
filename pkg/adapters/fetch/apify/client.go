// Package apify fetches LinkedIn data through Apify scraper actors.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Apify API root
const DefaultBaseURL = "https://api.apify.com/v2"

// maxErrorBody bounds the runes of error body quoted in errors
const maxErrorBody = 512

// Config configures the Apify client
type Config struct {
	Token          string
	BaseURL        string
	ProfileActor   string
	PostsActor     string
	ReactionsActor string
	// RequestsPerSecond and Burst pace actor runs
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Client implements ports.Fetcher with synchronous actor runs
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates an Apify client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("apify token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}, nil
}

// FetchProfile returns the profile detail items for a profile
func (c *Client) FetchProfile(ctx context.Context, profileURL string) (json.RawMessage, error) {
	return c.runActor(ctx, c.cfg.ProfileActor, map[string]interface{}{
		"username":     profileURL,
		"includeEmail": false,
	})
}

// FetchPosts returns up to limit recent posts of a profile
func (c *Client) FetchPosts(ctx context.Context, profileURL string, limit int) (json.RawMessage, error) {
	return c.runActor(ctx, c.cfg.PostsActor, map[string]interface{}{
		"username":    profileURL,
		"page_number": 1,
		"limit":       limit,
		"total_posts": limit,
	})
}

// FetchReactions returns up to limit recent reactions of a profile
func (c *Client) FetchReactions(ctx context.Context, profileURL string, limit int) (json.RawMessage, error) {
	return c.runActor(ctx, c.cfg.ReactionsActor, map[string]interface{}{
		"username":        profileURL,
		"page_number":     1,
		"limit":           limit,
		"total_reactions": limit,
	})
}

// runActor runs an actor synchronously and returns its dataset items
func (c *Client) runActor(ctx context.Context, actor string, input map[string]interface{}) (json.RawMessage, error) {
	if actor == "" {
		return nil, fmt.Errorf("apify actor is not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actor input: %w", err)
	}

	// Actor IDs use ~ in place of / in API paths
	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items",
		c.cfg.BaseURL, url.PathEscape(strings.ReplaceAll(actor, "/", "~")))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("actor %s request failed: %w", actor, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read actor %s response: %w", actor, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("actor %s returned %d: %s", actor, resp.StatusCode, errorBody(data))
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("actor %s returned invalid JSON", actor)
	}

	c.logger.Debug("actor run completed",
		zap.String("actor", actor),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)))

	return json.RawMessage(data), nil
}

func errorBody(data []byte) string {
	msg := []rune(strings.TrimSpace(string(data)))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return string(msg)
}
