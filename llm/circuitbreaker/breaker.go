// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package circuitbreaker guards calls to failing dependencies. Each named
// breaker is an independent Closed/Open/HalfOpen state machine driven by
// Allow / RecordSuccess / RecordFailure; breakers for different providers
// never share counters.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed: normal operation, calls pass through.
	StateClosed State = iota
	// StateOpen: calls fail immediately without invoking the operation.
	StateOpen
	// StateHalfOpen: a single trial call is allowed to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned by Call while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config configures a breaker.
type Config struct {
	// FailureThreshold is the consecutive failure count that opens the
	// breaker.
	FailureThreshold int

	// RecoveryTimeout is the wait after the last failure before a trial
	// call is allowed (Open -> HalfOpen).
	RecoveryTimeout time.Duration

	// OnStateChange is invoked after every state transition.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// Breaker is a per-resource circuit breaker. The caller is responsible for
// invoking the guarded operation only when Allow reports true and for
// reporting every outcome through RecordSuccess / RecordFailure.
type Breaker struct {
	name   string
	config *Config
	logger *zap.Logger

	mu              sync.Mutex
	state           State
	failureCount    int
	lastFailureTime time.Time
	trialInFlight   bool
}

// New creates a breaker for the named resource. config is copied, so the
// same Config value can safely configure several breakers.
func New(name string, config *Config, logger *zap.Logger) *Breaker {
	cfg := *DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 60 * time.Second
	}

	return &Breaker{
		name:   name,
		config: &cfg,
		logger: logger,
		state:  StateClosed,
	}
}

// Name returns the breaker's resource name.
func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a call may proceed right now. While open it flips
// to half-open once RecoveryTimeout has elapsed since the last failure and
// admits exactly one trial call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(b.lastFailureTime) >= b.config.RecoveryTimeout {
			b.setState(StateHalfOpen)
			b.trialInFlight = true
			b.logger.Info("circuit breaker half-open, allowing trial call",
				zap.String("breaker", b.name),
			)
			return true
		}
		return false

	case StateHalfOpen:
		// One trial at a time; concurrent callers wait for its outcome.
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true

	default:
		return false
	}
}

// RecordSuccess reports a successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount = 0

	case StateHalfOpen:
		b.logger.Info("circuit breaker recovered",
			zap.String("breaker", b.name),
		)
		b.setState(StateClosed)
		b.failureCount = 0
		b.trialInFlight = false

	case StateOpen:
		// A call raced the transition to open; its success does not
		// close the breaker early.
		b.logger.Warn("success recorded while circuit open",
			zap.String("breaker", b.name),
		)
	}
}

// RecordFailure reports a failed call outcome.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.logger.Warn("circuit breaker opened",
				zap.String("breaker", b.name),
				zap.Int("failure_count", b.failureCount),
				zap.Int("threshold", b.config.FailureThreshold),
			)
			b.setState(StateOpen)
		}

	case StateHalfOpen:
		b.logger.Warn("trial call failed, circuit breaker reopened",
			zap.String("breaker", b.name),
		)
		b.setState(StateOpen)
		b.trialInFlight = false
	}
}

// ReleaseTrial relinquishes a half-open trial whose outcome will never be
// reported, such as a call abandoned through context cancellation. Without
// the release no further trial could ever be admitted. The next Allow
// admits a fresh trial.
func (b *Breaker) ReleaseTrial() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.trialInFlight {
		b.trialInFlight = false
		b.logger.Info("half-open trial abandoned, admitting a new trial",
			zap.String("breaker", b.name),
		)
	}
}

// Call runs fn under the breaker: it fails fast with ErrCircuitOpen when
// Allow is false, otherwise reports fn's outcome.
func (b *Breaker) Call(fn func() error) error {
	if !b.Allow() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}

	b.RecordSuccess()
	return nil
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// Reset forces the breaker back to closed. Operator action only.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := b.state
	b.state = StateClosed
	b.failureCount = 0
	b.trialInFlight = false

	b.logger.Info("circuit breaker reset",
		zap.String("breaker", b.name),
		zap.String("from_state", from.String()),
	)

	if b.config.OnStateChange != nil && from != StateClosed {
		go b.config.OnStateChange(b.name, from, StateClosed)
	}
}

// setState must be called with b.mu held.
func (b *Breaker) setState(to State) {
	from := b.state
	b.state = to

	if b.config.OnStateChange != nil {
		go b.config.OnStateChange(b.name, from, to)
	}
}
