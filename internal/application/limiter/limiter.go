// Package limiter bounds the number of concurrent language model calls.
//
// A single Limiter is created per process and handed to every component
// that invokes a model. Only model calls take a permit.
package limiter

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aescanero/chloe/pkg/ports"
	"golang.org/x/sync/semaphore"
)

// DefaultCapacity is the number of permits when none is configured
const DefaultCapacity = 30

// Limiter is a counting gate around model invocations
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int64
	metrics  ports.MetricsCollector

	inFlight     atomic.Int64
	maxInFlight  atomic.Int64
	acquisitions atomic.Int64
}

// Option configures a Limiter
type Option func(*Limiter)

// WithMetrics reports in-flight counts and wait times to m
func WithMetrics(m ports.MetricsCollector) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// New creates a limiter with the given capacity.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity int, opts ...Option) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	l := &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Do runs fn while holding one permit. It blocks until a permit is free or
// ctx is done. The permit is released on every exit path of fn.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	waitStart := time.Now()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire model permit: %w", err)
	}
	defer l.release()

	l.acquisitions.Add(1)
	current := l.inFlight.Add(1)
	for {
		peak := l.maxInFlight.Load()
		if current <= peak || l.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}

	if l.metrics != nil {
		l.metrics.ObserveLimiterWait(time.Since(waitStart))
		l.metrics.SetLimiterInFlight(int(current))
	}

	return fn(ctx)
}

func (l *Limiter) release() {
	current := l.inFlight.Add(-1)
	l.sem.Release(1)
	if l.metrics != nil {
		l.metrics.SetLimiterInFlight(int(current))
	}
}

// Capacity returns the number of permits
func (l *Limiter) Capacity() int {
	return int(l.capacity)
}

// InFlight returns the number of permits currently held
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// MaxInFlight returns the highest number of permits ever held at once
func (l *Limiter) MaxInFlight() int {
	return int(l.maxInFlight.Load())
}

// Acquisitions returns how many permits were granted since creation
func (l *Limiter) Acquisitions() int {
	return int(l.acquisitions.Load())
}
