// Package breaker provides a generic circuit breaker for remote calls.
//
// Each Breaker instance isolates failures of one dependency: after a run of
// consecutive failures it opens and rejects calls without touching the
// network, then after a cooldown it lets a limited number of trial calls
// through before fully closing again.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the current position of the breaker state machine.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker rejects a call without attempting it.
var ErrOpen = errors.New("breaker: circuit open")

// ErrTimeout is returned when the wrapped call did not settle within the
// configured call timeout. It is distinct from ErrOpen so callers can pick
// different fallback strategies for the two cases.
var ErrTimeout = errors.New("breaker: call timed out")

// Config controls breaker behavior. Zero values fall back to defaults.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before allowing a
	// half-open trial.
	ResetTimeout time.Duration
	// HalfOpenRequests is the number of consecutive trial successes required
	// to close the breaker again.
	HalfOpenRequests int
	// CallTimeout bounds every wrapped call. The context handed to the call
	// is cancelled when it fires, so well-behaved clients abort the in-flight
	// request rather than leaking it.
	CallTimeout time.Duration
	// Now is the clock source, injectable for tests.
	Now func() time.Time
}

const (
	defaultFailureThreshold = 5
	defaultResetTimeout     = 30 * time.Second
	defaultHalfOpenRequests = 2
	defaultCallTimeout      = 45 * time.Second
)

// Breaker wraps a remote dependency with failure isolation. Safe for
// concurrent use; state transitions are guarded by a mutex.
type Breaker struct {
	name string
	cfg  Config

	mu             sync.Mutex
	state          State
	failures       int
	lastFailure    time.Time
	halfOpenTrials int

	onTransition func(name string, from, to State)
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithTransitionHook registers a callback invoked on every state change,
// typically to update a metrics gauge.
func WithTransitionHook(hook func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onTransition = hook
	}
}

// New creates a breaker named after the dependency it protects.
func New(name string, cfg Config, opts ...Option) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	if cfg.HalfOpenRequests <= 0 {
		cfg.HalfOpenRequests = defaultHalfOpenRequests
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	b := &Breaker{name: name, cfg: cfg, state: StateClosed}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the dependency name this breaker protects.
func (b *Breaker) Name() string { return b.name }

// State reports the current state without mutating it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn through the breaker. The function receives a context that
// is cancelled when the call timeout fires.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(callCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			b.recordFailure()
			return err
		}
		b.recordSuccess()
		return nil
	case <-callCtx.Done():
		b.recordFailure()
		if ctx.Err() != nil {
			// Parent cancelled; not our timeout.
			return ctx.Err()
		}
		return ErrTimeout
	}
}

// Do runs a value-returning call through the breaker.
func Do[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// allow decides whether a call may proceed, transitioning OPEN to HALF_OPEN
// once the reset timeout has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return nil
	case StateOpen:
		if b.cfg.Now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
			b.transition(StateHalfOpen)
			b.halfOpenTrials = 0
			return nil
		}
		return ErrOpen
	default:
		return nil
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.halfOpenTrials++
		if b.halfOpenTrials >= b.cfg.HalfOpenRequests {
			b.transition(StateClosed)
			b.failures = 0
			b.halfOpenTrials = 0
		}
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.cfg.Now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		// A single trial failure reopens the circuit.
		b.halfOpenTrials = 0
		b.transition(StateOpen)
	}
}

// transition must be called with the mutex held.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onTransition != nil {
		b.onTransition(b.name, from, to)
	}
}
