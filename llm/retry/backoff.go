// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package retry wraps operations with bounded retries and exponential
// backoff. Which failures are retried is decided by an injected predicate,
// so the package carries no classification policy of its own.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy defines retry behavior for one operation class.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt
	// (0 means a single attempt).
	MaxRetries int

	// Delay is the sleep before the first retry.
	Delay time.Duration

	// Backoff multiplies the delay for each further retry:
	// sleep(n) = Delay * Backoff^n for retry index n starting at 0.
	Backoff float64

	// MaxDelay caps the computed delay. Zero means no cap.
	MaxDelay time.Duration

	// Jitter adds ±25% randomization to each delay. Off by default so
	// total sleep stays deterministic for callers that reason about it.
	Jitter bool

	// Retryable decides whether a failure is worth another attempt.
	// Nil retries everything.
	Retryable func(error) bool

	// OnRetry is invoked before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns the retry policy used for LLM provider calls.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRetries: 3,
		Delay:      1 * time.Second,
		Backoff:    2.0,
		MaxDelay:   30 * time.Second,
	}
}

// Retryer executes operations under a retry policy.
type Retryer interface {
	// Do executes fn, retrying per policy.
	Do(ctx context.Context, fn func() error) error

	// DoWithResult executes fn and returns its result, retrying per policy.
	DoWithResult(ctx context.Context, fn func() (any, error)) (any, error)
}

type backoffRetryer struct {
	policy *Policy
	logger *zap.Logger
}

// NewBackoffRetryer creates an exponential backoff retryer.
func NewBackoffRetryer(policy *Policy, logger *zap.Logger) Retryer {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.Delay <= 0 {
		policy.Delay = 1 * time.Second
	}
	if policy.Backoff < 1.0 {
		policy.Backoff = 2.0
	}

	return &backoffRetryer{
		policy: policy,
		logger: logger,
	}
}

// Do implements Retryer.Do.
func (r *backoffRetryer) Do(ctx context.Context, fn func() error) error {
	_, err := r.DoWithResult(ctx, func() (any, error) {
		return nil, fn()
	})
	return err
}

// DoWithResult implements Retryer.DoWithResult.
//
// The operation runs at most MaxRetries+1 times. A failure the policy deems
// non-retryable propagates immediately; when the final attempt fails its
// error propagates unchanged, without wrapping. The backoff sleep watches
// ctx so an abandoned loop stops issuing attempts.
func (r *backoffRetryer) DoWithResult(ctx context.Context, fn func() (any, error)) (any, error) {
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.delayFor(attempt - 1)

			r.logger.Debug("retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				r.logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if r.policy.Retryable != nil && !r.policy.Retryable(err) {
			r.logger.Debug("error not retryable", zap.Error(err))
			return nil, err
		}
	}

	r.logger.Warn("retries exhausted",
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr),
	)

	return nil, lastErr
}

// delayFor computes the backoff sleep for retry index n (starting at 0).
func (r *backoffRetryer) delayFor(n int) time.Duration {
	delay := float64(r.policy.Delay) * math.Pow(r.policy.Backoff, float64(n))

	if r.policy.MaxDelay > 0 && delay > float64(r.policy.MaxDelay) {
		delay = float64(r.policy.MaxDelay)
	}

	// ±25% jitter to avoid synchronized retry storms.
	if r.policy.Jitter {
		jitter := delay * 0.25
		delay += (rand.Float64()*2 - 1) * jitter
		if delay < 0 {
			delay = 0
		}
	}

	return time.Duration(delay)
}
