package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBreaker(threshold int, recovery time.Duration) *Breaker {
	return New("test_api", &Config{
		FailureThreshold: threshold,
		RecoveryTimeout:  recovery,
	}, zap.NewNop())
}

// TestBreaker_OpensAtThreshold tests that consecutive failures open the
// breaker exactly at the threshold.
func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := newTestBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		require.True(t, b.Allow())
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State(), "failure %d", i+1)
	}

	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, 3, b.FailureCount())

	assert.False(t, b.Allow())
}

// TestBreaker_SuccessResetsFailureCount tests that a success in closed state
// clears the consecutive failure count.
func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.Equal(t, 0, b.FailureCount())

	// Two more failures do not reach the threshold again.
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

// TestBreaker_HalfOpenSingleTrial tests the open -> half-open transition and
// that exactly one trial call is admitted.
func TestBreaker_HalfOpenSingleTrial(t *testing.T) {
	b := newTestBreaker(1, 20*time.Millisecond)

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	time.Sleep(30 * time.Millisecond)

	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	// Second caller is rejected while the trial is in flight.
	assert.False(t, b.Allow())
}

// TestBreaker_HalfOpenSuccessCloses tests recovery via a successful trial.
func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b := newTestBreaker(1, 10*time.Millisecond)

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.FailureCount())
	assert.True(t, b.Allow())
}

// TestBreaker_HalfOpenFailureReopens tests that a failed trial reopens the
// breaker for another recovery window.
func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newTestBreaker(1, 10*time.Millisecond)

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	// A new window admits another trial.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())
}

// TestBreaker_ReleaseTrial tests that an abandoned half-open trial hands its
// slot back so the breaker can still recover.
func TestBreaker_ReleaseTrial(t *testing.T) {
	b := newTestBreaker(1, 10*time.Millisecond)

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())
	require.False(t, b.Allow(), "trial slot held")

	// The trial call never reports an outcome (e.g. its context was
	// canceled); releasing admits a fresh trial immediately.
	b.ReleaseTrial()
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Allow())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}

// TestBreaker_ReleaseTrialOutsideHalfOpen tests that the release is a no-op
// in the other states.
func TestBreaker_ReleaseTrialOutsideHalfOpen(t *testing.T) {
	b := newTestBreaker(1, time.Hour)

	b.ReleaseTrial()
	assert.Equal(t, StateClosed, b.State())

	b.RecordFailure()
	b.ReleaseTrial()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

// TestNew_CopiesConfig tests that New normalizes a private copy instead of
// rewriting the caller's Config.
func TestNew_CopiesConfig(t *testing.T) {
	shared := &Config{}
	b := New("copy_api", shared, zap.NewNop())

	assert.Equal(t, 0, shared.FailureThreshold)
	assert.Equal(t, time.Duration(0), shared.RecoveryTimeout)

	// The breaker itself runs with the normalized defaults.
	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, StateOpen, b.State())
}

// TestBreaker_Call tests the convenience wrapper.
func TestBreaker_Call(t *testing.T) {
	b := newTestBreaker(1, time.Minute)
	boom := errors.New("boom")

	err := b.Call(func() error { return boom })
	assert.Equal(t, boom, err)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err = b.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

// TestBreaker_Reset tests the operator reset.
func TestBreaker_Reset(t *testing.T) {
	b := newTestBreaker(1, time.Hour)

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.FailureCount())
	assert.True(t, b.Allow())
}

// TestBreaker_OnStateChange tests transition notifications.
func TestBreaker_OnStateChange(t *testing.T) {
	type transition struct{ from, to State }
	changes := make(chan transition, 4)

	b := New("notify_api", &Config{
		FailureThreshold: 1,
		RecoveryTimeout:  10 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			assert.Equal(t, "notify_api", name)
			changes <- transition{from, to}
		},
	}, zap.NewNop())

	b.RecordFailure()
	assert.Equal(t, transition{StateClosed, StateOpen}, <-changes)

	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())
	assert.Equal(t, transition{StateOpen, StateHalfOpen}, <-changes)

	b.RecordSuccess()
	assert.Equal(t, transition{StateHalfOpen, StateClosed}, <-changes)
}

// TestRegistry_IndependentBreakers tests that breakers for different names
// never share state.
func TestRegistry_IndependentBreakers(t *testing.T) {
	r := NewRegistry(&Config{FailureThreshold: 1, RecoveryTimeout: time.Minute}, zap.NewNop())

	a := r.Get("openai_api")
	b := r.Get("anthropic_api")
	require.NotSame(t, a, b)

	a.RecordFailure()
	assert.Equal(t, StateOpen, a.State())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())

	// Get returns the same instance for the same name.
	assert.Same(t, a, r.Get("openai_api"))
}

// TestRegistry_RegisterWithConfig tests per-name configuration overrides.
func TestRegistry_RegisterWithConfig(t *testing.T) {
	r := NewRegistry(&Config{FailureThreshold: 5, RecoveryTimeout: time.Minute}, zap.NewNop())

	custom := r.Register("fragile_api", &Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})
	custom.RecordFailure()
	assert.Equal(t, StateOpen, custom.State())

	// Register is a no-op for an existing name.
	again := r.Register("fragile_api", &Config{FailureThreshold: 99})
	assert.Same(t, custom, again)

	// Lazily-created breakers use the registry default.
	lazy := r.Get("sturdy_api")
	lazy.RecordFailure()
	assert.Equal(t, StateClosed, lazy.State())
}

// TestRegistry_LookupAndNames tests inspection helpers.
func TestRegistry_LookupAndNames(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())

	_, ok := r.Lookup("missing")
	assert.False(t, ok)

	r.Get("a_api")
	r.Get("b_api")

	got, ok := r.Lookup("a_api")
	assert.True(t, ok)
	assert.Equal(t, "a_api", got.Name())
	assert.ElementsMatch(t, []string{"a_api", "b_api"}, r.Names())
}

// TestRegistry_ResetAll tests the operator bulk reset.
func TestRegistry_ResetAll(t *testing.T) {
	r := NewRegistry(&Config{FailureThreshold: 1, RecoveryTimeout: time.Hour}, zap.NewNop())

	a := r.Get("a_api")
	b := r.Get("b_api")
	a.RecordFailure()
	b.RecordFailure()

	r.ResetAll()
	assert.Equal(t, StateClosed, a.State())
	assert.Equal(t, StateClosed, b.State())
}
