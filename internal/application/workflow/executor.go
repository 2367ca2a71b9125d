package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultNodeTimeout bounds a single node invocation
const DefaultNodeTimeout = 300 * time.Second

// Observer receives execution progress. Implementations must be safe for
// concurrent use: node callbacks fire from the node goroutines.
type Observer interface {
	NodeStarted(ctx context.Context, runID, node string)
	NodeFinished(ctx context.Context, runID, node string, duration time.Duration, warnings int, err error)
	// PhaseMerged fires after the patches of a phase were folded into state
	PhaseMerged(ctx context.Context, state *State, phase int, nodes []string)
	RunFinished(ctx context.Context, state *State, err error)
}

// NopObserver ignores every callback
type NopObserver struct{}

func (NopObserver) NodeStarted(context.Context, string, string) {}

func (NopObserver) NodeFinished(context.Context, string, string, time.Duration, int, error) {}

func (NopObserver) PhaseMerged(context.Context, *State, int, []string) {}

func (NopObserver) RunFinished(context.Context, *State, error) {}

// Executor runs a validated graph
type Executor struct {
	graph       *Graph
	logger      *zap.Logger
	tracer      trace.Tracer
	nodeTimeout time.Duration
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithNodeTimeout bounds each node invocation; non-positive values keep the default
func WithNodeTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.nodeTimeout = d
		}
	}
}

// WithTracer sets the tracer used for run and node spans
func WithTracer(t trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		e.tracer = t
	}
}

// NewExecutor creates an executor for g
func NewExecutor(g *Graph, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		graph:       g,
		logger:      logger,
		tracer:      otel.Tracer("github.com/aescanero/chloe/workflow"),
		nodeTimeout: DefaultNodeTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the graph the executor runs
func (e *Executor) Graph() *Graph {
	return e.graph
}

// Run executes every phase of the graph against state and returns it.
// On error the state holds what was merged before the failing phase.
func (e *Executor) Run(ctx context.Context, state *State, obs Observer) (*State, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	ctx, span := e.tracer.Start(ctx, "workflow.Run",
		trace.WithAttributes(
			attribute.String("run.id", state.RunID),
			attribute.Int("workflow.phases", len(e.graph.phases)),
		),
	)
	defer span.End()

	logger := e.logger.With(zap.String("run_id", state.RunID))
	start := time.Now()

	err := e.run(ctx, state, obs, logger)
	obs.RunFinished(ctx, state, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("workflow failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return state, err
	}

	span.SetStatus(codes.Ok, "")
	logger.Info("workflow completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("warnings", len(state.Warnings)))
	return state, nil
}

func (e *Executor) run(ctx context.Context, state *State, obs Observer, logger *zap.Logger) error {
	for i, phase := range e.graph.phases {
		if err := ctx.Err(); err != nil {
			return err
		}

		patches, err := e.runPhase(ctx, state, phase, obs, logger)
		if err != nil {
			return err
		}

		// A phase cut short by cancellation is never merged
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.merge(state, phase, patches); err != nil {
			return err
		}

		logger.Debug("phase merged",
			zap.Int("phase", i),
			zap.Strings("nodes", phase))
		obs.PhaseMerged(ctx, state, i, phase)
	}
	return nil
}

// runPhase runs the nodes of one phase concurrently against the same snapshot
func (e *Executor) runPhase(ctx context.Context, state *State, phase []string, obs Observer, logger *zap.Logger) ([]*Patch, error) {
	snapshot := state.Snapshot()
	patches := make([]*Patch, len(phase))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range phase {
		node := e.graph.nodes[name]
		g.Go(func() error {
			patch, err := e.runNode(gctx, node, snapshot, obs, logger)
			if err != nil {
				return err
			}
			patches[i] = patch
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return patches, nil
}

// merge checks every patch against its node's ownership, then folds them in
// declaration order. Nothing is applied if any patch is rejected.
func (e *Executor) merge(state *State, phase []string, patches []*Patch) error {
	for i, name := range phase {
		if patches[i] == nil {
			continue
		}
		owns := e.graph.nodes[name].Owns
		if extra := patches[i].Fields() &^ owns; extra != 0 {
			return fmt.Errorf("%w: node %s set %s", ErrUndeclaredField, name, extra)
		}
	}

	for _, p := range patches {
		state.Apply(p)
	}
	return nil
}

// runNode invokes one node with a timeout, a span and panic recovery
func (e *Executor) runNode(ctx context.Context, node Node, snapshot State, obs Observer, logger *zap.Logger) (patch *Patch, err error) {
	ctx, span := e.tracer.Start(ctx, node.Name,
		trace.WithAttributes(
			attribute.String("workflow.node", node.Name),
			attribute.String("run.id", snapshot.RunID),
		),
	)
	defer span.End()

	nodeCtx, cancel := context.WithTimeout(ctx, e.nodeTimeout)
	defer cancel()

	obs.NodeStarted(ctx, snapshot.RunID, node.Name)
	logger.Debug("node starting", zap.String("node", node.Name))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("node panicked",
				zap.String("node", node.Name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			patch = nil
			err = &NodeError{Node: node.Name, Err: fmt.Errorf("%v", r), Panic: true}
		}

		duration := time.Since(start)
		warnings := 0
		if patch != nil {
			warnings = len(patch.Warnings)
		}
		obs.NodeFinished(ctx, snapshot.RunID, node.Name, duration, warnings, err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetAttributes(attribute.Int("workflow.warnings", warnings))
		span.SetStatus(codes.Ok, "")
		logger.Debug("node completed",
			zap.String("node", node.Name),
			zap.Duration("duration", duration),
			zap.Int("warnings", warnings))
	}()

	patch, err = node.Run(nodeCtx, snapshot)
	if err != nil {
		if errors.Is(nodeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", e.nodeTimeout, err)
		}
		logger.Error("node failed",
			zap.String("node", node.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, &NodeError{Node: node.Name, Err: err}
	}
	return patch, nil
}
