package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRetryer(policy *Policy) Retryer {
	return NewBackoffRetryer(policy, zap.NewNop())
}

// TestRetryer_SucceedsAfterTransientFailures tests that the operation runs
// until it succeeds within the retry budget.
func TestRetryer_SucceedsAfterTransientFailures(t *testing.T) {
	r := newTestRetryer(&Policy{MaxRetries: 3, Delay: time.Millisecond, Backoff: 2.0})

	calls := 0
	result, err := r.DoWithResult(context.Background(), func() (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

// TestRetryer_ExhaustionReturnsLastErrorUnchanged tests that the final
// failure propagates without wrapping.
func TestRetryer_ExhaustionReturnsLastErrorUnchanged(t *testing.T) {
	r := newTestRetryer(&Policy{MaxRetries: 2, Delay: time.Millisecond, Backoff: 2.0})

	final := errors.New("still broken")
	calls := 0
	_, err := r.DoWithResult(context.Background(), func() (any, error) {
		calls++
		return nil, final
	})

	assert.Equal(t, 3, calls)
	// Identity, not just errors.Is: callers inspect the terminal error.
	assert.Same(t, final, err)
}

// TestRetryer_NonRetryableFailsImmediately tests the retryable predicate.
func TestRetryer_NonRetryableFailsImmediately(t *testing.T) {
	fatal := errors.New("bad credentials")
	r := newTestRetryer(&Policy{
		MaxRetries: 5,
		Delay:      time.Millisecond,
		Backoff:    2.0,
		Retryable:  func(err error) bool { return !errors.Is(err, fatal) },
	})

	calls := 0
	start := time.Now()
	err := r.Do(context.Background(), func() error {
		calls++
		return fatal
	})

	assert.Same(t, fatal, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 50*time.Millisecond, "must not sleep before giving up")
}

// TestRetryer_CancellationStopsRetrying tests that an abandoned context ends
// the loop during the backoff sleep.
func TestRetryer_CancellationStopsRetrying(t *testing.T) {
	r := newTestRetryer(&Policy{MaxRetries: 5, Delay: time.Hour, Backoff: 2.0})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, func() error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry loop did not stop after cancellation")
	}
}

// TestRetryer_OnRetryCallback tests the per-retry hook.
func TestRetryer_OnRetryCallback(t *testing.T) {
	var attempts []int
	var delays []time.Duration
	r := newTestRetryer(&Policy{
		MaxRetries: 2,
		Delay:      time.Millisecond,
		Backoff:    2.0,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
			delays = append(delays, delay)
		},
	})

	_ = r.Do(context.Background(), func() error { return errors.New("transient") })

	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

// TestRetryer_DelaySchedule tests the exponential schedule and its cap.
func TestRetryer_DelaySchedule(t *testing.T) {
	r := NewBackoffRetryer(&Policy{
		MaxRetries: 5,
		Delay:      100 * time.Millisecond,
		Backoff:    2.0,
		MaxDelay:   300 * time.Millisecond,
	}, zap.NewNop()).(*backoffRetryer)

	assert.Equal(t, 100*time.Millisecond, r.delayFor(0))
	assert.Equal(t, 200*time.Millisecond, r.delayFor(1))
	assert.Equal(t, 300*time.Millisecond, r.delayFor(2), "capped at MaxDelay")
	assert.Equal(t, 300*time.Millisecond, r.delayFor(3), "capped at MaxDelay")
}

// TestRetryer_JitterStaysInBounds tests the ±25% jitter window.
func TestRetryer_JitterStaysInBounds(t *testing.T) {
	r := NewBackoffRetryer(&Policy{
		MaxRetries: 1,
		Delay:      100 * time.Millisecond,
		Backoff:    2.0,
		Jitter:     true,
	}, zap.NewNop()).(*backoffRetryer)

	for i := 0; i < 100; i++ {
		d := r.delayFor(0)
		assert.GreaterOrEqual(t, d, 75*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
}

// TestDoTyped tests the generic wrapper preserves the result type.
func TestDoTyped(t *testing.T) {
	r := newTestRetryer(&Policy{MaxRetries: 1, Delay: time.Millisecond, Backoff: 2.0})

	type payload struct{ Value string }
	got, err := DoTyped[*payload](r, context.Background(), func() (*payload, error) {
		return &payload{Value: "hi"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Value)

	boom := errors.New("boom")
	missing, err := DoTyped[*payload](r, context.Background(), func() (*payload, error) {
		return nil, boom
	})
	assert.Same(t, boom, err)
	assert.Nil(t, missing)
}
