package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector registers and records the framework's Prometheus metrics.
// Construct one per process; promauto registers on the default registry.
type Collector struct {
	llmRequestsTotal    *prometheus.CounterVec
	llmRequestDuration  *prometheus.HistogramVec
	llmRetriesTotal     *prometheus.CounterVec
	errorsTotal         *prometheus.CounterVec
	circuitBreakerState *prometheus.GaugeVec
	agentRequestsTotal  *prometheus.CounterVec
}

// NewCollector creates a collector under the given metric namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{}

	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM provider calls",
		},
		[]string{"provider", "status"},
	)

	c.llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM provider call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	c.llmRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_retries_total",
			Help:      "Total number of retry attempts against providers",
		},
		[]string{"provider"},
	)

	c.errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of classified errors",
		},
		[]string{"component", "category"},
	)

	c.circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"breaker"},
	)

	c.agentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_requests_total",
			Help:      "Total number of agent-processed requests",
		},
		[]string{"agent", "outcome"},
	)

	return c
}

// RecordLLMRequest records one terminal provider call outcome.
func (c *Collector) RecordLLMRequest(provider, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(provider, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRetry records one retry attempt against a provider.
func (c *Collector) RecordRetry(provider string) {
	if c == nil {
		return
	}
	c.llmRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordError records one classified error occurrence.
func (c *Collector) RecordError(component, category string) {
	if c == nil {
		return
	}
	c.errorsTotal.WithLabelValues(component, category).Inc()
}

// SetBreakerState publishes a circuit breaker state transition.
func (c *Collector) SetBreakerState(breaker string, state int) {
	if c == nil {
		return
	}
	c.circuitBreakerState.WithLabelValues(breaker).Set(float64(state))
}

// RecordAgentRequest records one agent request outcome
// ("ok", "degraded" or "error").
func (c *Collector) RecordAgentRequest(agent, outcome string) {
	if c == nil {
		return
	}
	c.agentRequestsTotal.WithLabelValues(agent, outcome).Inc()
}
