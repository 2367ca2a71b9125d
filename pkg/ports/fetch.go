package ports

import (
	"context"
	"encoding/json"
)

// Fetcher retrieves raw LinkedIn data for a profile.
// An empty result is not an error.
type Fetcher interface {
	FetchProfile(ctx context.Context, profileURL string) (json.RawMessage, error)
	FetchPosts(ctx context.Context, profileURL string, limit int) (json.RawMessage, error)
	FetchReactions(ctx context.Context, profileURL string, limit int) (json.RawMessage, error)
}
