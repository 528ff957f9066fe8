package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/agentrouter/internal/metrics"
	"github.com/BaSui01/agentrouter/llm/circuitbreaker"
	"github.com/BaSui01/agentrouter/llm/classify"
	"github.com/BaSui01/agentrouter/llm/providers"
	"github.com/BaSui01/agentrouter/llm/retry"
	"github.com/BaSui01/agentrouter/llm/stats"
	"github.com/BaSui01/agentrouter/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProviderPolicy overrides the default retry and breaker settings for one
// provider.
type ProviderPolicy struct {
	RetryPolicy *retry.Policy
	Breaker     *circuitbreaker.Config
}

// CallerConfig configures the resilient call layer.
type CallerConfig struct {
	// RetryPolicy is the template policy for provider calls. The
	// retryable predicate is always the transient-category rule; a
	// configured predicate is ignored.
	RetryPolicy *retry.Policy

	// Breaker configures the per-provider circuit breakers.
	Breaker *circuitbreaker.Config

	// Providers holds per-provider overrides keyed by provider name.
	Providers map[string]*ProviderPolicy
}

// DefaultCallerConfig returns the default resilient call configuration.
func DefaultCallerConfig() *CallerConfig {
	return &CallerConfig{
		RetryPolicy: retry.DefaultPolicy(),
		Breaker:     circuitbreaker.DefaultConfig(),
	}
}

// Caller runs provider operations under a per-provider circuit breaker and
// retry policy, converts terminal failures into categorized errors, and
// records statistics. Construct one per process and share it; it holds the
// breaker registry and so must not be duplicated per call site.
type Caller struct {
	config     *CallerConfig
	breakers   *circuitbreaker.Registry
	classifier *classify.Classifier
	stats      *stats.Registry
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// NewCaller creates the resilient call layer. collector may be nil when
// Prometheus metrics are not wanted (tests).
func NewCaller(
	config *CallerConfig,
	classifier *classify.Classifier,
	statsRegistry *stats.Registry,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Caller {
	if config == nil {
		config = DefaultCallerConfig()
	}

	breakerCfg := circuitbreaker.DefaultConfig()
	if config.Breaker != nil {
		cfg := *config.Breaker
		breakerCfg = &cfg
	}
	if breakerCfg.OnStateChange == nil {
		breakerCfg.OnStateChange = func(name string, _, to circuitbreaker.State) {
			collector.SetBreakerState(name, int(to))
		}
	}

	c := &Caller{
		config:     config,
		breakers:   circuitbreaker.NewRegistry(breakerCfg, logger),
		classifier: classifier,
		stats:      statsRegistry,
		metrics:    collector,
		logger:     logger,
	}

	// Pre-register breakers for providers with overridden settings.
	for name, policy := range config.Providers {
		if policy != nil && policy.Breaker != nil {
			cfg := *policy.Breaker
			if cfg.OnStateChange == nil {
				cfg.OnStateChange = breakerCfg.OnStateChange
			}
			c.breakers.Register(BreakerName(name), &cfg)
		}
	}

	return c
}

// Breakers exposes the breaker registry for inspection and operator resets.
func (c *Caller) Breakers() *circuitbreaker.Registry {
	return c.breakers
}

// BreakerName returns the breaker key for a provider.
func BreakerName(provider string) string {
	return provider + "_api"
}

// Call executes op for the named provider under the circuit breaker and
// retry policy.
//
// If the breaker rejects the call, op is never invoked and a categorized
// service-unavailable error is returned immediately. Otherwise op runs
// with retries on transient failures (network, timeout, rate limit); the
// terminal outcome updates the breaker, the statistics registry and the
// metrics collector exactly once. Abandonment via ctx records no outcome.
func (c *Caller) Call(ctx context.Context, provider string, op func(ctx context.Context) (*Response, error)) (*Response, error) {
	tracer := otel.Tracer("github.com/BaSui01/agentrouter/llm")
	ctx, span := tracer.Start(ctx, "llm.call",
		trace.WithAttributes(attribute.String("llm.provider", provider)))
	defer span.End()

	breaker := c.breakers.Get(BreakerName(provider))
	if !breaker.Allow() {
		cerr := types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("service unavailable: circuit breaker open for provider %q, retry later", provider)).
			WithProvider(provider).
			WithProviderCode(providers.Code(provider, "CIRCUIT_OPEN")).
			WithRetryable(true)

		c.logger.Warn("provider call rejected by circuit breaker",
			zap.String("provider", provider),
		)
		c.metrics.RecordLLMRequest(provider, "circuit_open", 0)
		span.SetStatus(codes.Error, "circuit open")
		return nil, cerr
	}

	policy := c.retryPolicy(provider)
	retryer := retry.NewBackoffRetryer(policy, c.logger)

	start := time.Now()
	resp, err := retry.DoTyped[*Response](retryer, ctx, func() (*Response, error) {
		return op(ctx)
	})
	elapsed := time.Since(start)

	if err != nil {
		// An abandoned retry loop is not a call outcome: nothing is
		// recorded for it. A half-open trial slot the call may hold is
		// handed back so the breaker can still recover.
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			breaker.ReleaseTrial()
			span.SetStatus(codes.Error, "canceled")
			return nil, err
		}

		cerr := providers.CategorizeError(provider, err)
		breaker.RecordFailure()
		c.stats.Increment(provider, cerr.Category())
		c.metrics.RecordLLMRequest(provider, "error", elapsed)
		c.metrics.RecordError(provider, cerr.Category().String())

		c.classifier.Handle(cerr, types.NewErrorContext("", "", "llm.call", map[string]any{
			"provider":      provider,
			"provider_code": cerr.ProviderCode,
		}))

		span.RecordError(cerr)
		span.SetStatus(codes.Error, string(cerr.Code))
		return nil, cerr
	}

	breaker.RecordSuccess()
	c.metrics.RecordLLMRequest(provider, "ok", elapsed)
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// retryPolicy derives the per-call policy: configured bounds with the
// transient-category retry rule and retry metrics attached.
func (c *Caller) retryPolicy(provider string) *retry.Policy {
	base := c.config.RetryPolicy
	if override, ok := c.config.Providers[provider]; ok && override != nil && override.RetryPolicy != nil {
		base = override.RetryPolicy
	}
	if base == nil {
		base = retry.DefaultPolicy()
	}

	policy := *base
	policy.Retryable = func(err error) bool {
		return c.classifier.IsRecoverable(c.classifier.Classify(err))
	}
	prevOnRetry := base.OnRetry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.metrics.RecordRetry(provider)
		if prevOnRetry != nil {
			prevOnRetry(attempt, err, delay)
		}
	}
	return &policy
}
