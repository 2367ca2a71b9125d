// Package orchestrator manages the lifecycle of analysis runs.
//
// The manager:
//   - Validates run requests (single and batch)
//   - Executes runs synchronously or on the worker pool
//   - Checkpoints the merged state after every workflow phase
//   - Publishes run and node events to the event bus
//   - Cancels in-flight runs on request, timeout or shutdown
//
// Only structural errors fail a run. Degraded data surfaces as warnings in
// the run result.
package orchestrator
