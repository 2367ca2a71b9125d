package workflow

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/chloe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recorder orders node start and end events with a shared sequence
type recorder struct {
	mu     sync.Mutex
	seq    int
	starts map[string]int
	ends   map[string]int
}

func newRecorder() *recorder {
	return &recorder{starts: map[string]int{}, ends: map[string]int{}}
}

func (r *recorder) node(name string, owns Field, warnings ...string) (string, Field, NodeFunc) {
	return name, owns, func(ctx context.Context, _ State) (*Patch, error) {
		r.mu.Lock()
		r.seq++
		r.starts[name] = r.seq
		r.mu.Unlock()

		time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)

		r.mu.Lock()
		r.seq++
		r.ends[name] = r.seq
		r.mu.Unlock()

		p := NewPatch()
		p.Warnings = append(p.Warnings, warnings...)
		return p, nil
	}
}

func diamond(t *testing.T, b *Builder) *Graph {
	t.Helper()
	g, err := b.
		FanOut("init", "a", "b", "c").
		FanIn("join", "a", "b", "c").
		FanOut("join", "x", "y", "z").
		FanIn("final", "x", "y", "z").
		SetEntry("init").
		SetTerminal("final").
		Build()
	require.NoError(t, err)
	return g
}

type countingObserver struct {
	NopObserver
	mu       sync.Mutex
	started  []string
	finished map[string]error
	merged   []int
	runErr   error
	runDone  bool
}

func (o *countingObserver) NodeStarted(_ context.Context, _, node string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, node)
}

func (o *countingObserver) NodeFinished(_ context.Context, _, node string, _ time.Duration, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished == nil {
		o.finished = map[string]error{}
	}
	o.finished[node] = err
}

func (o *countingObserver) PhaseMerged(_ context.Context, _ *State, phase int, _ []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.merged = append(o.merged, phase)
}

func (o *countingObserver) RunFinished(_ context.Context, _ *State, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runErr = err
	o.runDone = true
}

func TestExecutor_BarrierInvariant(t *testing.T) {
	for i := 0; i < 25; i++ {
		rec := newRecorder()
		b := NewBuilder()
		for _, n := range []string{"init", "a", "b", "c", "join", "x", "y", "z", "final"} {
			b.AddNode(rec.node(n, FieldNone))
		}
		g := diamond(t, b)

		_, err := NewExecutor(g, zap.NewNop()).Run(context.Background(), NewState("run", domain.RunRequest{}), nil)
		require.NoError(t, err)

		phases := g.Phases()
		for k := 1; k < len(phases); k++ {
			for _, later := range phases[k] {
				for _, earlier := range phases[k-1] {
					assert.Greater(t, rec.starts[later], rec.ends[earlier],
						"%s started before %s ended", later, earlier)
				}
			}
		}
	}
}

func TestExecutor_SiblingsRunConcurrently(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(3)
	allHere := make(chan struct{})
	go func() {
		arrived.Wait()
		close(allHere)
	}()

	sibling := func(context.Context, State) (*Patch, error) {
		arrived.Done()
		select {
		case <-allHere:
			return nil, nil
		case <-time.After(2 * time.Second):
			return nil, errors.New("siblings did not overlap")
		}
	}

	g, err := NewBuilder().
		AddNode("init", FieldNone, noop).
		AddNode("a", FieldNone, sibling).
		AddNode("b", FieldNone, sibling).
		AddNode("c", FieldNone, sibling).
		AddNode("final", FieldNone, noop).
		FanOut("init", "a", "b", "c").
		FanIn("final", "a", "b", "c").
		SetEntry("init").
		SetTerminal("final").
		Build()
	require.NoError(t, err)

	_, err = NewExecutor(g, zap.NewNop()).Run(context.Background(), NewState("run", domain.RunRequest{}), nil)
	require.NoError(t, err)
}

func TestExecutor_AppendMergeInvariant(t *testing.T) {
	for i := 0; i < 25; i++ {
		rec := newRecorder()
		g := diamond(t, NewBuilder().
			AddNode(rec.node("init", FieldNone)).
			AddNode(rec.node("a", FieldNone, "a1", "a2")).
			AddNode(rec.node("b", FieldNone)).
			AddNode(rec.node("c", FieldNone, "c1", "c2", "c3")).
			AddNode(rec.node("join", FieldNone, "j1")).
			AddNode(rec.node("x", FieldNone, "x1")).
			AddNode(rec.node("y", FieldNone, "y1", "y2")).
			AddNode(rec.node("z", FieldNone)).
			AddNode(rec.node("final", FieldNone)))

		state := NewState("run", domain.RunRequest{})
		out, err := NewExecutor(g, zap.NewNop()).Run(context.Background(), state, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"a1", "a2", "c1", "c2", "c3", "j1", "x1", "y1", "y2"}, out.Warnings)
	}
}

func TestExecutor_SiblingsShareSnapshot(t *testing.T) {
	var seen sync.Map

	writer := func(ctx context.Context, s State) (*Patch, error) {
		seen.Store("writer", s.OutreachLanguage)
		p := NewPatch()
		p.OutreachLanguage.Set("Spanish")
		return p, nil
	}
	reader := func(ctx context.Context, s State) (*Patch, error) {
		time.Sleep(5 * time.Millisecond)
		seen.Store("reader", s.OutreachLanguage)
		return nil, nil
	}
	after := func(ctx context.Context, s State) (*Patch, error) {
		seen.Store("after", s.OutreachLanguage)
		return nil, nil
	}

	g, err := NewBuilder().
		AddNode("init", FieldNone, noop).
		AddNode("writer", FieldOutreachLanguage, writer).
		AddNode("reader", FieldNone, reader).
		AddNode("after", FieldNone, after).
		FanOut("init", "writer", "reader").
		FanIn("after", "writer", "reader").
		SetEntry("init").
		SetTerminal("after").
		Build()
	require.NoError(t, err)

	out, err := NewExecutor(g, zap.NewNop()).Run(context.Background(), NewState("run", domain.RunRequest{}), nil)
	require.NoError(t, err)

	readerVal, _ := seen.Load("reader")
	afterVal, _ := seen.Load("after")
	assert.Equal(t, "", readerVal)
	assert.Equal(t, "Spanish", afterVal)
	assert.Equal(t, "Spanish", out.OutreachLanguage)
}

func TestExecutor_UndeclaredField(t *testing.T) {
	sneaky := func(context.Context, State) (*Patch, error) {
		p := NewPatch()
		p.Lead.Set(&domain.Lead{FullName: "x"})
		p.Warn("should not be merged")
		return p, nil
	}
	honest := func(context.Context, State) (*Patch, error) {
		p := NewPatch()
		p.Warn("honest")
		return p, nil
	}

	g, err := NewBuilder().
		AddNode("init", FieldNone, noop).
		AddNode("honest", FieldNone, honest).
		AddNode("sneaky", FieldPosts, sneaky).
		AddNode("final", FieldNone, noop).
		FanOut("init", "honest", "sneaky").
		FanIn("final", "honest", "sneaky").
		SetEntry("init").
		SetTerminal("final").
		Build()
	require.NoError(t, err)

	out, err := NewExecutor(g, zap.NewNop()).Run(context.Background(), NewState("run", domain.RunRequest{}), nil)
	require.ErrorIs(t, err, ErrUndeclaredField)
	assert.Contains(t, err.Error(), "sneaky")
	assert.Contains(t, err.Error(), "lead")
	assert.Nil(t, out.Lead)
	assert.Empty(t, out.Warnings, "a rejected phase is not merged at all")
}

func TestExecutor_NodeErrorCancelsSiblings(t *testing.T) {
	boom := errors.New("boom")
	siblingCancelled := make(chan struct{})
	obs := &countingObserver{}

	g, err := NewBuilder().
		AddNode("init", FieldNone, noop).
		AddNode("fails", FieldNone, func(context.Context, State) (*Patch, error) {
			return nil, boom
		}).
		AddNode("waits", FieldNone, func(ctx context.Context, _ State) (*Patch, error) {
			select {
			case <-ctx.Done():
				close(siblingCancelled)
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return NewPatch(), nil
			}
		}).
		AddNode("final", FieldNone, func(context.Context, State) (*Patch, error) {
			t.Error("final must not run")
			return nil, nil
		}).
		FanOut("init", "fails", "waits").
		FanIn("final", "fails", "waits").
		SetEntry("init").
		SetTerminal("final").
		Build()
	require.NoError(t, err)

	_, err = NewExecutor(g, zap.NewNop()).Run(context.Background(), NewState("run", domain.RunRequest{}), obs)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "fails", nodeErr.Node)
	assert.False(t, nodeErr.Panic)
	assert.ErrorIs(t, err, boom)

	select {
	case <-siblingCancelled:
	case <-time.After(time.Second):
		t.Fatal("sibling context was not cancelled")
	}

	assert.True(t, obs.runDone)
	assert.ErrorIs(t, obs.runErr, boom)
	assert.Equal(t, []int{0}, obs.merged)
	assert.NotContains(t, obs.started, "final")
}

func TestExecutor_PanicBecomesNodeError(t *testing.T) {
	g, err := NewBuilder().
		AddNode("init", FieldNone, func(context.Context, State) (*Patch, error) {
			panic("nil map write")
		}).
		SetEntry("init").
		SetTerminal("init").
		Build()
	require.NoError(t, err)

	_, err = NewExecutor(g, zap.NewNop()).Run(context.Background(), NewState("run", domain.RunRequest{}), nil)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.True(t, nodeErr.Panic)
	assert.Contains(t, err.Error(), "nil map write")
}

func TestExecutor_NodeTimeout(t *testing.T) {
	g, err := NewBuilder().
		AddNode("slow", FieldNone, func(ctx context.Context, _ State) (*Patch, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}).
		SetEntry("slow").
		SetTerminal("slow").
		Build()
	require.NoError(t, err)

	_, err = NewExecutor(g, zap.NewNop(), WithNodeTimeout(20*time.Millisecond)).
		Run(context.Background(), NewState("run", domain.RunRequest{}), nil)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
}

func TestExecutor_CancelledRunIsNotMerged(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	g, err := NewBuilder().
		AddNode("init", FieldDateNow, func(context.Context, State) (*Patch, error) {
			cancel()
			p := NewPatch()
			p.DateNow.Set(time.Now())
			p.Warn("partial")
			return p, nil
		}).
		AddNode("final", FieldNone, noop).
		AddEdge("init", "final").
		SetEntry("init").
		SetTerminal("final").
		Build()
	require.NoError(t, err)

	out, err := NewExecutor(g, zap.NewNop()).Run(ctx, NewState("run", domain.RunRequest{}), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, out.DateNow.IsZero())
	assert.Empty(t, out.Warnings)
}
