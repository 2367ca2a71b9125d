package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/chloe/internal/application/workers"
	"github.com/aescanero/chloe/internal/application/workflow"
	eventsmemory "github.com/aescanero/chloe/pkg/adapters/events/memory"
	storagememory "github.com/aescanero/chloe/pkg/adapters/storage/memory"
	"github.com/aescanero/chloe/pkg/domain"
	"github.com/aescanero/chloe/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) handle(_ context.Context, e domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types(runID string) []domain.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	var types []domain.EventType
	for _, e := range l.events {
		if e.RunID == runID {
			types = append(types, e.Type)
		}
	}
	return types
}

type harness struct {
	m      *Manager
	store  *storagememory.RunStore
	events *eventLog
}

// newHarness builds init -> (language, slow) -> final around the given slow node
func newHarness(t *testing.T, slow workflow.NodeFunc, runTimeout time.Duration) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	language := func(ctx context.Context, s workflow.State) (*workflow.Patch, error) {
		p := workflow.NewPatch()
		p.OutreachLanguage.Set("Spanish")
		p.Warn("language detected")
		return p, nil
	}
	noop := func(ctx context.Context, s workflow.State) (*workflow.Patch, error) { return nil, nil }
	if slow == nil {
		slow = noop
	}

	g, err := workflow.NewBuilder().
		AddNode("init", workflow.FieldDateNow, func(ctx context.Context, s workflow.State) (*workflow.Patch, error) {
			p := workflow.NewPatch()
			p.DateNow.Set(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
			return p, nil
		}).
		AddNode("language", workflow.FieldOutreachLanguage, language).
		AddNode("slow", workflow.FieldNone, slow).
		AddNode("final", workflow.FieldNone, noop).
		FanOut("init", "language", "slow").
		FanIn("final", "language", "slow").
		SetEntry("init").
		SetTerminal("final").
		Build()
	require.NoError(t, err)

	pool := workers.NewPool(4, 16, nil, logger, time.Hour)
	require.NoError(t, pool.Start())

	bus := eventsmemory.NewEventBus(logger)
	events := &eventLog{}
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Subscribe(ctx, ports.TopicRunEvents, events.handle))
	require.NoError(t, bus.Subscribe(ctx, ports.TopicNodeEvents, events.handle))

	store := storagememory.NewRunStore()
	m := NewManager(
		workflow.NewExecutor(g, logger),
		pool, store, bus, nil, NewValidator(), logger, runTimeout,
	)

	t.Cleanup(func() {
		_ = m.Shutdown(context.Background())
		_ = pool.Shutdown(context.Background())
		cancel()
		_ = bus.Close()
	})

	return &harness{m: m, store: store, events: events}
}

func request(url string) domain.RunRequest {
	return domain.RunRequest{LinkedInURL: url}
}

// blocker returns a node that signals when it starts and then waits for ctx
func blocker() (workflow.NodeFunc, <-chan struct{}) {
	started := make(chan struct{})
	var once sync.Once
	return func(ctx context.Context, s workflow.State) (*workflow.Patch, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}, started
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for node to start")
	}
}

func TestInvokeCompleted(t *testing.T) {
	h := newHarness(t, nil, time.Minute)

	record, err := h.m.Invoke(context.Background(), request("https://www.linkedin.com/in/jane"))
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, domain.RunStatusCompleted, record.Status)
	assert.NotNil(t, record.StartedAt)
	assert.NotNil(t, record.CompletedAt)
	assert.Empty(t, record.Error)
	require.NotNil(t, record.Result)
	assert.Equal(t, "Spanish", record.Result.OutreachLanguage)
	assert.Equal(t, []string{"language detected"}, record.Result.Warnings)
	assert.Equal(t, "final", record.Phase)

	// Defaults were applied before validation
	assert.Equal(t, domain.ModeBalanced, record.Request.Mode)
	assert.Equal(t, 10, record.Request.PostsLimit)

	stored, err := h.m.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, stored.Status)
	assert.Equal(t, "Spanish", stored.Result.OutreachLanguage)

	assert.Eventually(t, func() bool {
		return slices.Contains(h.events.types(record.ID), domain.EventTypeRunCompleted)
	}, 2*time.Second, 5*time.Millisecond)

	types := h.events.types(record.ID)
	assert.Contains(t, types, domain.EventTypeRunSubmitted)
	assert.Contains(t, types, domain.EventTypeRunStarted)
	assert.Contains(t, types, domain.EventTypeNodeStarted)
	assert.Contains(t, types, domain.EventTypeNodeCompleted)
	assert.Contains(t, types, domain.EventTypePhaseMerged)
}

func TestInvokeRejectsInvalidRequest(t *testing.T) {
	h := newHarness(t, nil, time.Minute)

	record, err := h.m.Invoke(context.Background(), request("https://example.com/jane"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Nil(t, record)

	req := request("https://www.linkedin.com/in/jane")
	req.InsightsLanguage = "Klingon"
	_, err = h.m.Invoke(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "insights_languages")

	ids, err := h.m.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids, "rejected requests are not stored")
}

func TestInvokeStructuralFailure(t *testing.T) {
	failing := func(ctx context.Context, s workflow.State) (*workflow.Patch, error) {
		return nil, errors.New("boom")
	}
	h := newHarness(t, failing, time.Minute)

	record, err := h.m.Invoke(context.Background(), request("https://www.linkedin.com/in/jane"))
	require.Error(t, err)

	var nodeErr *workflow.NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, "slow", nodeErr.Node)

	require.NotNil(t, record)
	assert.Equal(t, domain.RunStatusFailed, record.Status)
	assert.Contains(t, record.Error, "node slow failed")

	// The last checkpoint holds the state merged before the failing phase
	assert.Equal(t, "init", record.Phase)
	require.NotNil(t, record.Result)
	assert.Empty(t, record.Result.OutreachLanguage)
	assert.False(t, record.Result.DateNow.IsZero())
}

func TestSubmitAndWait(t *testing.T) {
	h := newHarness(t, nil, time.Minute)

	id, err := h.m.Submit(context.Background(), request("https://www.linkedin.com/in/jane"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	record, err := h.m.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, record.Status)
	assert.Equal(t, "Spanish", record.Result.OutreachLanguage)
}

func TestCancelRunningRun(t *testing.T) {
	slow, started := blocker()
	h := newHarness(t, slow, time.Minute)

	id, err := h.m.Submit(context.Background(), request("https://www.linkedin.com/in/jane"))
	require.NoError(t, err)
	waitFor(t, started)

	// Checkpoint of the first phase is visible while the run is in flight
	inflight, err := h.m.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRunning, inflight.Status)
	assert.Equal(t, "init", inflight.Phase)

	require.NoError(t, h.m.Cancel(context.Background(), id))

	record, err := h.m.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCancelled, record.Status)
	// The cancelled phase was never merged
	assert.Empty(t, record.Result.OutreachLanguage)

	assert.ErrorIs(t, h.m.Cancel(context.Background(), id), ErrRunTerminal)
}

func TestCancelUnknownRun(t *testing.T) {
	h := newHarness(t, nil, time.Minute)
	assert.ErrorIs(t, h.m.Cancel(context.Background(), "missing"), ErrRunNotFound)

	_, err := h.m.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestCancelOrphanedRun(t *testing.T) {
	h := newHarness(t, nil, time.Minute)

	// A run left running by a previous process
	require.NoError(t, h.store.Save(context.Background(), &domain.RunRecord{
		ID:     "orphan",
		Status: domain.RunStatusRunning,
	}))

	require.NoError(t, h.m.Cancel(context.Background(), "orphan"))
	record, err := h.m.Get(context.Background(), "orphan")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCancelled, record.Status)
}

func TestRunTimeout(t *testing.T) {
	slow, _ := blocker()
	h := newHarness(t, slow, 50*time.Millisecond)

	record, err := h.m.Invoke(context.Background(), request("https://www.linkedin.com/in/jane"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.RunStatusFailed, record.Status)
	assert.Contains(t, record.Error, "run timed out after 50ms")
}

func TestInvokeCallerCancellation(t *testing.T) {
	slow, started := blocker()
	h := newHarness(t, slow, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		cancel()
	}()

	record, err := h.m.Invoke(ctx, request("https://www.linkedin.com/in/jane"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.RunStatusCancelled, record.Status)
}

func TestInvokeBatch(t *testing.T) {
	h := newHarness(t, nil, time.Minute)

	reqs := []domain.RunRequest{
		request("https://www.linkedin.com/in/alice"),
		request("https://www.linkedin.com/in/bob"),
		request("https://example.com/carol"),
	}
	results, err := h.m.InvokeBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results[:2] {
		require.NoError(t, r.Err)
		assert.Equal(t, domain.RunStatusCompleted, r.Record.Status)
	}
	assert.Equal(t, "https://www.linkedin.com/in/bob", results[1].LinkedInURL)
	assert.ErrorIs(t, results[2].Err, ErrInvalidRequest)
	assert.Nil(t, results[2].Record)
}

func TestInvokeBatchValidation(t *testing.T) {
	h := newHarness(t, nil, time.Minute)

	_, err := h.m.InvokeBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	dup := []domain.RunRequest{
		request("https://www.linkedin.com/in/alice"),
		request("https://www.linkedin.com/in/alice/"),
	}
	_, err = h.m.InvokeBatch(context.Background(), dup)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "duplicate")

	var tooMany []domain.RunRequest
	for i := 0; i <= MaxBatchSize; i++ {
		tooMany = append(tooMany, request(fmt.Sprintf("https://www.linkedin.com/in/user-%d", i)))
	}
	_, err = h.m.InvokeBatch(context.Background(), tooMany)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestShutdownCancelsRuns(t *testing.T) {
	slow, started := blocker()
	h := newHarness(t, slow, time.Minute)

	id, err := h.m.Submit(context.Background(), request("https://www.linkedin.com/in/jane"))
	require.NoError(t, err)
	waitFor(t, started)

	require.NoError(t, h.m.Shutdown(context.Background()))

	record, err := h.m.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCancelled, record.Status)
}

type rejectingQueue struct{}

func (rejectingQueue) Submit(string, workers.Job) error { return workers.ErrQueueFull }

func TestSubmitQueueFull(t *testing.T) {
	g, err := workflow.NewBuilder().
		AddNode("only", workflow.FieldNone, func(ctx context.Context, s workflow.State) (*workflow.Patch, error) { return nil, nil }).
		SetEntry("only").
		SetTerminal("only").
		Build()
	require.NoError(t, err)

	store := storagememory.NewRunStore()
	bus := eventsmemory.NewEventBus(zap.NewNop())
	defer bus.Close()
	m := NewManager(workflow.NewExecutor(g, zap.NewNop()), rejectingQueue{}, store, bus, nil, nil, zap.NewNop(), time.Minute)

	_, err = m.Submit(context.Background(), request("https://www.linkedin.com/in/jane"))
	assert.ErrorIs(t, err, workers.ErrQueueFull)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)
	record, err := store.Get(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, record.Status)
}
