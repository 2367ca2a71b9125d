package apify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		Token:             "apify-token",
		BaseURL:           srv.URL + "/v2/",
		ProfileActor:      "apimaestro/linkedin-profile-detail",
		PostsActor:        "apimaestro/linkedin-profile-posts",
		ReactionsActor:    "apimaestro/linkedin-profile-reactions",
		RequestsPerSecond: 100,
		Burst:             10,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

const profileURL = "https://www.linkedin.com/in/jane-doe"

func TestFetchProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/acts/apimaestro~linkedin-profile-detail/run-sync-get-dataset-items", r.URL.Path)
		assert.Equal(t, "Bearer apify-token", r.Header.Get("Authorization"))

		var input map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, profileURL, input["username"])
		assert.Equal(t, false, input["includeEmail"])

		_, _ = w.Write([]byte(`[{"basic_info":{"first_name":"Jane"}}]`))
	})

	raw, err := c.FetchProfile(context.Background(), profileURL)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"basic_info":{"first_name":"Jane"}}]`, string(raw))
}

func TestFetchPostsAndReactionsSendLimits(t *testing.T) {
	inputs := map[string]map[string]interface{}{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var input map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		inputs[r.URL.Path] = input
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.FetchPosts(context.Background(), profileURL, 7)
	require.NoError(t, err)
	_, err = c.FetchReactions(context.Background(), profileURL, 4)
	require.NoError(t, err)

	posts := inputs["/v2/acts/apimaestro~linkedin-profile-posts/run-sync-get-dataset-items"]
	assert.EqualValues(t, 7, posts["limit"])
	assert.EqualValues(t, 7, posts["total_posts"])
	assert.EqualValues(t, 1, posts["page_number"])

	reactions := inputs["/v2/acts/apimaestro~linkedin-profile-reactions/run-sync-get-dataset-items"]
	assert.EqualValues(t, 4, reactions["limit"])
	assert.EqualValues(t, 4, reactions["total_reactions"])
}

func TestFetchErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"not-enough-usage-to-run-paid-actor"}}`))
	})

	_, err := c.FetchProfile(context.Background(), profileURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
	assert.Contains(t, err.Error(), "not-enough-usage")
}

func TestFetchErrorBodyTruncatedOnRunes(t *testing.T) {
	body := strings.Repeat("é", maxErrorBody+10)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(body))
	})

	_, err := c.FetchProfile(context.Background(), profileURL)
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), strings.Repeat("é", maxErrorBody))
	assert.NotContains(t, err.Error(), strings.Repeat("é", maxErrorBody+1))
}

func TestFetchInvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := c.FetchPosts(context.Background(), profileURL, 3)
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestFetchHonorsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.FetchProfile(ctx, profileURL)
	assert.Error(t, err)
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(Config{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
