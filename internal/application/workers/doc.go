// Package workers implements the worker pool that executes queued runs.
//
// The pool manages a fixed number of goroutines that:
//   - Consume jobs from a bounded queue
//   - Track their own idle/busy/stopped status
//   - Drain the queue on shutdown, within the shutdown deadline
//
// The health monitor logs the pool status and records pool gauges.
package workers
