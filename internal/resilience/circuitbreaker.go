// Package resilience guards casescript's persistence backends.
//
// [Breaker] is a three-state circuit breaker (closed, open, half-open) that
// stops calling a backend after repeated failures and probes it again once
// a cool-down has passed. [Chain] puts a breaker in front of every member of
// an ordered list of backends. [Store] builds on both to keep annotation
// saves available while the database is down.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Do] while the breaker rejects calls.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// has passed.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. Enough
	// successes close the breaker; any failure opens it again.
	StateHalfOpen
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds the tuning knobs of a [Breaker].
type BreakerConfig struct {
	// Name labels the breaker in logs.
	Name string

	// MaxFailures is the number of consecutive failures that opens a closed
	// breaker. Default: 3.
	MaxFailures int

	// ResetTimeout is how long an open breaker waits before probing.
	// Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes that closes a
	// half-open breaker. Default: 1.
	HalfOpenMax int

	// IsFailure classifies errors returned by the guarded call. Errors for
	// which it returns false are passed through without counting against
	// the breaker. Default: every non-nil error is a failure.
	IsFailure func(error) bool

	// OnStateChange, when set, is called after every transition. It runs
	// with the breaker unlocked.
	OnStateChange func(name string, from, to State)
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	name          string
	maxFailures   int
	resetTimeout  time.Duration
	halfOpenMax   int
	isFailure     func(error) bool
	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probes    int
	successes int
}

// NewBreaker returns a closed [Breaker]. Zero config fields take their
// defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{
		name:          cfg.Name,
		maxFailures:   cfg.MaxFailures,
		resetTimeout:  cfg.ResetTimeout,
		halfOpenMax:   cfg.HalfOpenMax,
		isFailure:     cfg.IsFailure,
		onStateChange: cfg.OnStateChange,
		now:           time.Now,
	}
}

// Name returns the configured label.
func (b *Breaker) Name() string { return b.name }

// Do runs fn unless the breaker is open. While half-open, at most
// HalfOpenMax probes are let through; further calls are rejected until the
// probes have closed or reopened the breaker.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	var changed []transition
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		changed = append(changed, b.setState(StateHalfOpen))
		b.probes, b.successes = 0, 0
	}
	probe := b.state == StateHalfOpen
	if probe {
		if b.probes >= b.halfOpenMax {
			b.mu.Unlock()
			b.notify(changed)
			return ErrCircuitOpen
		}
		b.probes++
	}
	b.mu.Unlock()
	b.notify(changed)

	err := fn()

	b.mu.Lock()
	changed = changed[:0]
	if b.isFailure(err) {
		changed = b.failed(probe, changed)
	} else {
		changed = b.succeeded(probe, changed)
	}
	b.mu.Unlock()
	b.notify(changed)
	return err
}

// failed records a failure. b.mu must be held.
func (b *Breaker) failed(probe bool, changed []transition) []transition {
	b.failures++
	if probe || b.failures >= b.maxFailures {
		b.openedAt = b.now()
		if b.state != StateOpen {
			changed = append(changed, b.setState(StateOpen))
		}
	}
	return changed
}

// succeeded records a success. b.mu must be held.
func (b *Breaker) succeeded(probe bool, changed []transition) []transition {
	if !probe {
		if b.state == StateClosed {
			b.failures = 0
		}
		return changed
	}
	if b.state != StateHalfOpen {
		return changed
	}
	b.successes++
	if b.successes >= b.halfOpenMax {
		b.failures = 0
		changed = append(changed, b.setState(StateClosed))
	}
	return changed
}

type transition struct{ from, to State }

// setState switches to s. b.mu must be held.
func (b *Breaker) setState(s State) transition {
	t := transition{from: b.state, to: s}
	b.state = s
	return t
}

func (b *Breaker) notify(changed []transition) {
	for _, t := range changed {
		level := slog.LevelInfo
		if t.to == StateOpen {
			level = slog.LevelWarn
		}
		slog.Log(context.Background(), level, "circuit breaker state changed",
			"name", b.name, "from", t.from, "to", t.to)
		if b.onStateChange != nil {
			b.onStateChange(b.name, t.from, t.to)
		}
	}
}

// State returns the current state. An open breaker whose reset timeout has
// passed reports [StateHalfOpen]; the switch itself happens on the next
// [Breaker.Do].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker closed and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	var changed []transition
	if b.state != StateClosed {
		changed = append(changed, b.setState(StateClosed))
	}
	b.failures, b.probes, b.successes = 0, 0, 0
	b.mu.Unlock()
	b.notify(changed)
}
