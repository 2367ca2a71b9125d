package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/chloe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type collector struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *collector) handle(_ context.Context, e domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.events))
	for i, e := range c.events {
		ids[i] = e.ID
	}
	return ids
}

func TestPublishOrderedPerSubscriber(t *testing.T) {
	bus := NewEventBus(zaptest.NewLogger(t))
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, b := &collector{}, &collector{}
	require.NoError(t, bus.Subscribe(ctx, "run.events", a.handle))
	require.NoError(t, bus.Subscribe(ctx, "run.events", b.handle))

	want := []string{"e1", "e2", "e3", "e4"}
	for _, id := range want {
		require.NoError(t, bus.Publish(ctx, "run.events", domain.Event{ID: id}))
	}

	assert.Eventually(t, func() bool { return len(a.ids()) == 4 && len(b.ids()) == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, want, a.ids())
	assert.Equal(t, want, b.ids())
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := NewEventBus(zaptest.NewLogger(t))
	defer bus.Close()

	c := &collector{}
	require.NoError(t, bus.Subscribe(context.Background(), "node.events", c.handle))
	require.NoError(t, bus.Publish(context.Background(), "run.events", domain.Event{ID: "x"}))
	require.NoError(t, bus.Publish(context.Background(), "node.events", domain.Event{ID: "y"}))

	assert.Eventually(t, func() bool { return len(c.ids()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"y"}, c.ids())
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	bus := NewEventBus(zaptest.NewLogger(t))
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := &collector{}
	require.NoError(t, bus.Subscribe(ctx, "run.events", c.handle))
	cancel()

	assert.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers["run.events"]) == 0
	}, time.Second, time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), "run.events", domain.Event{ID: "late"}))
	assert.Empty(t, c.ids())
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewEventBus(zaptest.NewLogger(t))
	c := &collector{}
	require.NoError(t, bus.Subscribe(context.Background(), "run.events", c.handle))
	require.NoError(t, bus.Close())

	assert.NoError(t, bus.Publish(context.Background(), "run.events", domain.Event{ID: "x"}))
	assert.Error(t, bus.Subscribe(context.Background(), "run.events", c.handle))
}
