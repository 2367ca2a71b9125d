package ports

import "time"

// MetricsCollector records operational metrics
type MetricsCollector interface {
	RecordRunSubmitted(status string)
	RecordRunCompleted(status string, duration time.Duration)
	RecordNodeExecuted(node, status string, duration time.Duration)
	RecordWarnings(node string, count int)
	RecordLLMCall(model, outcome string, duration time.Duration)
	RecordLLMTokens(model string, input, output int)
	RecordStructuredOutcome(schema, outcome string, attempts int)
	SetLimiterInFlight(count int)
	ObserveLimiterWait(duration time.Duration)
	RecordFetch(category, status string, duration time.Duration)
	RecordWorkerPoolStatus(idle, busy, stopped int)
	SetQueueDepth(depth int)
}

// NopMetrics discards every measurement
type NopMetrics struct{}

func (NopMetrics) RecordRunSubmitted(string)                        {}
func (NopMetrics) RecordRunCompleted(string, time.Duration)         {}
func (NopMetrics) RecordNodeExecuted(string, string, time.Duration) {}
func (NopMetrics) RecordWarnings(string, int)                       {}
func (NopMetrics) RecordLLMCall(string, string, time.Duration)      {}
func (NopMetrics) RecordLLMTokens(string, int, int)                 {}
func (NopMetrics) RecordStructuredOutcome(string, string, int)      {}
func (NopMetrics) SetLimiterInFlight(int)                           {}
func (NopMetrics) ObserveLimiterWait(time.Duration)                 {}
func (NopMetrics) RecordFetch(string, string, time.Duration)        {}
func (NopMetrics) RecordWorkerPoolStatus(int, int, int)             {}
func (NopMetrics) SetQueueDepth(int)                                {}
