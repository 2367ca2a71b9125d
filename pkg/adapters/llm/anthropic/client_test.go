package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aescanero/chloe/internal/application/structured"
	"github.com/aescanero/chloe/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func reply(stopReason, text string) map[string]interface{} {
	return map[string]interface{}{
		"id":          "msg_01",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-test",
		"stop_reason": stopReason,
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"usage": map[string]interface{}{"input_tokens": 12, "output_tokens": 7},
	}
}

func TestGenerate(t *testing.T) {
	var body map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply("end_turn", `{"summary":"ok"}`))
	})

	resp, err := c.Generate(context.Background(), &ports.GenerationRequest{
		Model:       "claude-test",
		Prompt:      "Analyze this profile",
		System:      "You are a sales analyst.",
		Temperature: 0.2,
		MaxTokens:   256,
		JSONOutput:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"summary":"ok"}`, resp.Content)
	assert.Equal(t, "claude-test", resp.Model)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 7, resp.OutputTokens)

	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, 256, body["max_tokens"])
	assert.NotNil(t, body["system"])
}

func TestGenerateTruncatedIsSchemaError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply("max_tokens", `{"summary":"cut`))
	})

	_, err := c.Generate(context.Background(), &ports.GenerationRequest{
		Model: "claude-test", Prompt: "p", MaxTokens: 8, JSONOutput: true,
	})
	var schemaErr *structured.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, `{"summary":"cut`, schemaErr.Output)
}

func TestGenerateAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`))
	})

	_, err := c.Generate(context.Background(), &ports.GenerationRequest{Model: "nope", Prompt: "p", MaxTokens: 8})
	require.Error(t, err)

	var schemaErr *structured.SchemaError
	assert.False(t, errors.As(err, &schemaErr), "transport errors are not schema errors")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
