package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aescanero/chloe/internal/application/workers"
	"github.com/aescanero/chloe/internal/application/workflow"
	"github.com/aescanero/chloe/pkg/domain"
	"github.com/aescanero/chloe/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrRunNotFound is returned for unknown run IDs
	ErrRunNotFound = errors.New("run not found")
	// ErrRunTerminal is returned when cancelling a run that already finished
	ErrRunTerminal = errors.New("run already in terminal state")
)

// JobQueue runs jobs in the background
type JobQueue interface {
	Submit(id string, job workers.Job) error
}

// Manager coordinates run execution
type Manager struct {
	executor  *workflow.Executor
	queue     JobQueue
	store     ports.RunStore
	eventBus  ports.EventBus
	metrics   ports.MetricsCollector
	validator *Validator
	logger    *zap.Logger

	// Track active runs
	runs sync.Map // map[string]*runContext

	runTimeout time.Duration
	now        func() time.Time
}

// runContext holds state for a single in-flight run
type runContext struct {
	ctx        context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}

	mu        sync.Mutex
	status    domain.RunStatus
	cancelled bool
}

// BatchResult is the outcome of one profile of a batch
type BatchResult struct {
	LinkedInURL string
	Record      *domain.RunRecord
	Err         error
}

// NewManager creates a new orchestrator manager
func NewManager(
	executor *workflow.Executor,
	queue JobQueue,
	store ports.RunStore,
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	validator *Validator,
	logger *zap.Logger,
	runTimeout time.Duration,
) *Manager {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if validator == nil {
		validator = NewValidator()
	}
	if runTimeout <= 0 {
		runTimeout = time.Hour
	}
	return &Manager{
		executor:   executor,
		queue:      queue,
		store:      store,
		eventBus:   eventBus,
		metrics:    metrics,
		validator:  validator,
		logger:     logger,
		runTimeout: runTimeout,
		now:        time.Now,
	}
}

// Invoke runs one analysis in the caller's goroutine. The returned record is
// non-nil once the request passed validation; the error reports a failed or
// cancelled run.
func (m *Manager) Invoke(ctx context.Context, req domain.RunRequest) (*domain.RunRecord, error) {
	record, err := m.prepare(ctx, &req)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	rc := m.track(runCtx, cancel, record.ID)

	return record, m.execute(rc, record)
}

// Submit validates a request and queues it on the worker pool
func (m *Manager) Submit(ctx context.Context, req domain.RunRequest) (string, error) {
	record, err := m.prepare(ctx, &req)
	if err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	rc := m.track(runCtx, cancel, record.ID)

	err = m.queue.Submit(record.ID, func(poolCtx context.Context) {
		stop := context.AfterFunc(poolCtx, cancel)
		defer stop()
		_ = m.execute(rc, record)
	})
	if err != nil {
		m.logger.Error("failed to queue run",
			zap.String("run_id", record.ID),
			zap.Error(err))
		now := m.now()
		record.Status = domain.RunStatusFailed
		record.Error = err.Error()
		record.CompletedAt = &now
		m.save(context.WithoutCancel(ctx), record)
		m.untrack(record.ID, rc)
		return "", fmt.Errorf("failed to queue run: %w", err)
	}

	return record.ID, nil
}

// InvokeBatch runs up to MaxBatchSize distinct profiles concurrently on the
// worker pool and waits for all of them
func (m *Manager) InvokeBatch(ctx context.Context, reqs []domain.RunRequest) ([]BatchResult, error) {
	if err := m.validator.ValidateBatch(reqs); err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(reqs))
	ids := make([]string, len(reqs))
	for i, req := range reqs {
		results[i].LinkedInURL = req.LinkedInURL
		ids[i], results[i].Err = m.Submit(ctx, req)
	}

	for i, id := range ids {
		if id == "" {
			continue
		}
		record, err := m.Wait(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				m.cancelAll(ids[i:])
				return nil, fmt.Errorf("batch interrupted: %w", ctx.Err())
			}
			results[i].Err = err
			continue
		}
		results[i].Record = record
		if record.Status != domain.RunStatusCompleted {
			results[i].Err = fmt.Errorf("run %s %s: %s", id, record.Status, record.Error)
		}
	}

	return results, nil
}

// Get retrieves the stored record of a run
func (m *Manager) Get(ctx context.Context, runID string) (*domain.RunRecord, error) {
	record, err := m.store.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return record, nil
}

// List returns the IDs of stored runs
func (m *Manager) List(ctx context.Context) ([]string, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return ids, nil
}

// Wait blocks until the run is terminal and returns its record
func (m *Manager) Wait(ctx context.Context, runID string) (*domain.RunRecord, error) {
	if val, ok := m.runs.Load(runID); ok {
		select {
		case <-val.(*runContext).done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.Get(ctx, runID)
}

// Cancel cancels an in-flight run and waits until it stopped
func (m *Manager) Cancel(ctx context.Context, runID string) error {
	val, ok := m.runs.Load(runID)
	if !ok {
		return m.cancelStored(ctx, runID)
	}

	rc := val.(*runContext)
	rc.mu.Lock()
	if rc.status.IsTerminal() {
		status := rc.status
		rc.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRunTerminal, status)
	}
	rc.cancelled = true
	rc.cancelFunc()
	rc.mu.Unlock()

	m.logger.Info("run cancellation requested", zap.String("run_id", runID))

	select {
	case <-rc.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cancelStored handles runs this manager is not executing: either finished,
// or left behind by a previous process
func (m *Manager) cancelStored(ctx context.Context, runID string) error {
	record, err := m.Get(ctx, runID)
	if err != nil {
		return err
	}
	if record.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrRunTerminal, record.Status)
	}

	now := m.now()
	record.Status = domain.RunStatusCancelled
	record.CompletedAt = &now
	if err := m.store.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	m.publish(ctx, ports.TopicRunEvents, domain.EventTypeRunCancelled, runID, "", nil)
	return nil
}

// Shutdown cancels every in-flight run and waits for them to stop
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down orchestrator manager")

	var pending []*runContext
	m.runs.Range(func(key, value interface{}) bool {
		rc := value.(*runContext)
		rc.mu.Lock()
		rc.cancelled = true
		rc.cancelFunc()
		rc.mu.Unlock()
		pending = append(pending, rc)
		return true
	})

	for _, rc := range pending {
		select {
		case <-rc.done:
		case <-ctx.Done():
			return fmt.Errorf("shutdown timeout: %w", ctx.Err())
		}
	}

	m.logger.Info("orchestrator manager shut down complete")
	return nil
}

// prepare applies defaults, validates and stores the submitted record
func (m *Manager) prepare(ctx context.Context, req *domain.RunRequest) (*domain.RunRecord, error) {
	req.ApplyDefaults()
	if err := m.validator.Validate(req); err != nil {
		m.logger.Warn("run request rejected",
			zap.String("linkedin_url", req.LinkedInURL),
			zap.Error(err))
		m.metrics.RecordRunSubmitted(string(domain.RunStatusFailed))
		return nil, err
	}

	record := &domain.RunRecord{
		ID:          uuid.NewString(),
		Status:      domain.RunStatusSubmitted,
		Request:     *req,
		SubmittedAt: m.now(),
	}

	if err := m.store.Save(ctx, record); err != nil {
		m.logger.Error("failed to save submitted run",
			zap.String("run_id", record.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	m.publish(ctx, ports.TopicRunEvents, domain.EventTypeRunSubmitted, record.ID, "", map[string]interface{}{
		"linkedin_url": req.LinkedInURL,
		"mode":         string(req.Mode),
	})
	m.metrics.RecordRunSubmitted(string(domain.RunStatusSubmitted))
	m.logger.Info("run submitted",
		zap.String("run_id", record.ID),
		zap.String("linkedin_url", req.LinkedInURL))

	return record, nil
}

// execute runs the graph for a tracked run and stores the final record
func (m *Manager) execute(rc *runContext, record *domain.RunRecord) error {
	defer m.untrack(record.ID, rc)

	ctx, cancel := context.WithTimeout(rc.ctx, m.runTimeout)
	defer cancel()
	// Bookkeeping must survive the cancellation of the run itself
	bg := context.WithoutCancel(ctx)

	// Cancelled while waiting in the queue
	if err := ctx.Err(); err != nil {
		return m.finish(bg, ctx, rc, record, nil, err)
	}

	started := m.now()
	record.Status = domain.RunStatusRunning
	record.StartedAt = &started
	rc.mu.Lock()
	rc.status = domain.RunStatusRunning
	rc.mu.Unlock()

	m.save(bg, record)
	m.publish(bg, ports.TopicRunEvents, domain.EventTypeRunStarted, record.ID, "", nil)

	state := workflow.NewState(record.ID, record.Request)
	obs := &runObserver{m: m, record: record, ctx: bg}
	final, err := m.executor.Run(ctx, state, obs)

	return m.finish(bg, ctx, rc, record, final, err)
}

// finish settles the terminal status of a run
func (m *Manager) finish(bg, runCtx context.Context, rc *runContext, record *domain.RunRecord, state *workflow.State, err error) error {
	now := m.now()
	record.CompletedAt = &now
	if state != nil {
		record.Result = state.Result()
	}

	rc.mu.Lock()
	switch {
	case err == nil:
		record.Status = domain.RunStatusCompleted
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		record.Status = domain.RunStatusFailed
		err = fmt.Errorf("run timed out after %s: %w", m.runTimeout, err)
	case rc.cancelled || errors.Is(err, context.Canceled):
		record.Status = domain.RunStatusCancelled
	default:
		record.Status = domain.RunStatusFailed
	}
	if err != nil {
		record.Error = err.Error()
	}
	rc.status = record.Status
	rc.mu.Unlock()

	m.save(bg, record)

	var eventType domain.EventType
	data := map[string]interface{}{}
	switch record.Status {
	case domain.RunStatusCompleted:
		eventType = domain.EventTypeRunCompleted
		if record.Result != nil {
			data["warnings"] = len(record.Result.Warnings)
		}
	case domain.RunStatusCancelled:
		eventType = domain.EventTypeRunCancelled
	default:
		eventType = domain.EventTypeRunFailed
		data["error"] = record.Error
	}
	m.publish(bg, ports.TopicRunEvents, eventType, record.ID, "", data)
	m.metrics.RecordRunCompleted(string(record.Status), record.Duration())

	m.logger.Info("run finished",
		zap.String("run_id", record.ID),
		zap.String("status", string(record.Status)),
		zap.Duration("duration", record.Duration()),
		zap.Error(err))

	return err
}

func (m *Manager) track(ctx context.Context, cancel context.CancelFunc, runID string) *runContext {
	rc := &runContext{
		ctx:        ctx,
		cancelFunc: cancel,
		done:       make(chan struct{}),
		status:     domain.RunStatusSubmitted,
	}
	m.runs.Store(runID, rc)
	return rc
}

func (m *Manager) untrack(runID string, rc *runContext) {
	m.runs.Delete(runID)
	rc.cancelFunc()
	close(rc.done)
}

func (m *Manager) cancelAll(ids []string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if val, ok := m.runs.Load(id); ok {
			rc := val.(*runContext)
			rc.mu.Lock()
			rc.cancelled = true
			rc.cancelFunc()
			rc.mu.Unlock()
		}
	}
}

func (m *Manager) save(ctx context.Context, record *domain.RunRecord) {
	if err := m.store.Save(ctx, record); err != nil {
		m.logger.Error("failed to save run",
			zap.String("run_id", record.ID),
			zap.String("status", string(record.Status)),
			zap.Error(err))
	}
}

// publish sends an event; delivery failures are logged only
func (m *Manager) publish(ctx context.Context, topic string, eventType domain.EventType, runID, nodeID string, data map[string]interface{}) {
	event := domain.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RunID:     runID,
		NodeID:    nodeID,
		Timestamp: m.now(),
		Data:      data,
	}

	if err := m.eventBus.Publish(ctx, topic, event); err != nil {
		m.logger.Error("failed to publish event",
			zap.String("run_id", runID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

// runObserver turns executor progress into events, metrics and checkpoints
type runObserver struct {
	m      *Manager
	record *domain.RunRecord
	ctx    context.Context
}

func (o *runObserver) NodeStarted(_ context.Context, runID, node string) {
	o.m.publish(o.ctx, ports.TopicNodeEvents, domain.EventTypeNodeStarted, runID, node, nil)
}

func (o *runObserver) NodeFinished(_ context.Context, runID, node string, duration time.Duration, warnings int, err error) {
	data := map[string]interface{}{
		"duration_ms": duration.Milliseconds(),
		"warnings":    warnings,
	}
	status, eventType := "completed", domain.EventTypeNodeCompleted
	if err != nil {
		status, eventType = "failed", domain.EventTypeNodeFailed
		data["error"] = err.Error()
	}

	o.m.metrics.RecordNodeExecuted(node, status, duration)
	if warnings > 0 {
		o.m.metrics.RecordWarnings(node, warnings)
	}
	o.m.publish(o.ctx, ports.TopicNodeEvents, eventType, runID, node, data)
}

// PhaseMerged checkpoints the merged state
func (o *runObserver) PhaseMerged(_ context.Context, state *workflow.State, phase int, nodes []string) {
	o.record.Result = state.Result()
	o.record.Phase = strings.Join(nodes, ",")
	o.m.save(o.ctx, o.record)
	o.m.publish(o.ctx, ports.TopicRunEvents, domain.EventTypePhaseMerged, o.record.ID, "", map[string]interface{}{
		"phase": phase,
		"nodes": nodes,
	})
}

func (o *runObserver) RunFinished(context.Context, *workflow.State, error) {}
