package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/chloe/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestBus(t *testing.T) (*StreamsEventBus, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	bus := NewStreamsEventBus(client, zaptest.NewLogger(t))
	bus.block = 50 * time.Millisecond
	return bus, client
}

func TestPublishAppendsToStream(t *testing.T) {
	bus, client := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "run.events", domain.Event{
		ID:    "e1",
		Type:  domain.EventTypeRunStarted,
		RunID: "run-1",
	}))

	entries, err := client.XRange(ctx, "chloe:events:run.events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1", entries[0].Values["run_id"])
}

func TestSubscribeReceivesNewEventsOnly(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Publish(ctx, "run.events", domain.Event{ID: "before"}))

	var mu sync.Mutex
	var got []string
	require.NoError(t, bus.Subscribe(ctx, "run.events", func(_ context.Context, e domain.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.ID)
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "run.events", domain.Event{ID: "after-1", RunID: "r"}))
	require.NoError(t, bus.Publish(ctx, "run.events", domain.Event{ID: "after-2", RunID: "r"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"after-1", "after-2"}, got)
}
