package prometheus

import (
	"time"

	"github.com/aescanero/chloe/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ ports.MetricsCollector = (*Collector)(nil)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	runsSubmitted *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	nodesExecuted *prometheus.CounterVec
	nodeDuration  *prometheus.HistogramVec
	warnings      *prometheus.CounterVec

	llmCalls           *prometheus.CounterVec
	llmLatency         *prometheus.HistogramVec
	llmTokens          *prometheus.CounterVec
	structuredOutcomes *prometheus.CounterVec
	structuredAttempts *prometheus.HistogramVec

	limiterInFlight prometheus.Gauge
	limiterWait     prometheus.Histogram

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
	queueDepth        prometheus.Gauge
}

// NewCollector registers the Chloe metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		runsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chloe_runs_submitted_total",
				Help: "Total number of runs submitted",
			},
			[]string{"status"},
		),
		runsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chloe_runs_completed_total",
				Help: "Total number of runs that reached a terminal status",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chloe_run_duration_seconds",
				Help:    "Run duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		nodesExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chloe_nodes_executed_total",
				Help: "Total number of nodes executed",
			},
			[]string{"node", "status"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chloe_node_duration_seconds",
				Help:    "Node execution duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"node"},
		),
		warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chloe_warnings_total",
				Help: "Total number of run warnings emitted",
			},
			[]string{"node"},
		),
		llmCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chloe_llm_calls_total",
				Help: "Total number of LLM API calls",
			},
			[]string{"model", "outcome"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chloe_llm_latency_seconds",
				Help:    "LLM API call latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 60},
			},
			[]string{"model"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chloe_llm_tokens_total",
				Help: "Total number of LLM tokens used",
			},
			[]string{"model", "type"},
		),
		structuredOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chloe_structured_outputs_total",
				Help: "Structured generation calls by terminal outcome",
			},
			[]string{"schema", "outcome"},
		),
		structuredAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chloe_structured_attempts",
				Help:    "Model calls made per structured generation",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
			[]string{"schema"},
		),
		limiterInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chloe_llm_in_flight",
				Help: "LLM calls currently holding a limiter permit",
			},
		),
		limiterWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chloe_llm_limiter_wait_seconds",
				Help:    "Time spent waiting for a limiter permit",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
		),
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chloe_fetches_total",
				Help: "Total number of LinkedIn data fetches",
			},
			[]string{"category", "status"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chloe_fetch_duration_seconds",
				Help:    "LinkedIn data fetch duration in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"category"},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chloe_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chloe_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chloe_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chloe_queue_depth",
				Help: "Runs waiting for a worker",
			},
		),
	}
}

// RecordRunSubmitted records a run submission
func (c *Collector) RecordRunSubmitted(status string) {
	c.runsSubmitted.WithLabelValues(status).Inc()
}

// RecordRunCompleted records a run reaching a terminal status
func (c *Collector) RecordRunCompleted(status string, duration time.Duration) {
	c.runsCompleted.WithLabelValues(status).Inc()
	c.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordNodeExecuted records a node execution
func (c *Collector) RecordNodeExecuted(node, status string, duration time.Duration) {
	c.nodesExecuted.WithLabelValues(node, status).Inc()
	c.nodeDuration.WithLabelValues(node).Observe(duration.Seconds())
}

// RecordWarnings counts the warnings a node appended
func (c *Collector) RecordWarnings(node string, count int) {
	c.warnings.WithLabelValues(node).Add(float64(count))
}

// RecordLLMCall records one model call
func (c *Collector) RecordLLMCall(model, outcome string, duration time.Duration) {
	c.llmCalls.WithLabelValues(model, outcome).Inc()
	c.llmLatency.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordLLMTokens increments the count of LLM tokens used
func (c *Collector) RecordLLMTokens(model string, input, output int) {
	c.llmTokens.WithLabelValues(model, "input").Add(float64(input))
	c.llmTokens.WithLabelValues(model, "output").Add(float64(output))
}

// RecordStructuredOutcome records the end of a structured generation
func (c *Collector) RecordStructuredOutcome(schema, outcome string, attempts int) {
	c.structuredOutcomes.WithLabelValues(schema, outcome).Inc()
	c.structuredAttempts.WithLabelValues(schema).Observe(float64(attempts))
}

// SetLimiterInFlight sets the number of held limiter permits
func (c *Collector) SetLimiterInFlight(count int) {
	c.limiterInFlight.Set(float64(count))
}

// ObserveLimiterWait records how long a call waited for a permit
func (c *Collector) ObserveLimiterWait(duration time.Duration) {
	c.limiterWait.Observe(duration.Seconds())
}

// RecordFetch records one LinkedIn data fetch
func (c *Collector) RecordFetch(category, status string, duration time.Duration) {
	c.fetches.WithLabelValues(category, status).Inc()
	c.fetchDuration.WithLabelValues(category).Observe(duration.Seconds())
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}

// SetQueueDepth sets the number of queued runs
func (c *Collector) SetQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}
