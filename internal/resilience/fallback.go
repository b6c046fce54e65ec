package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrExhausted is returned when no member of a [Chain] completed a call.
var ErrExhausted = errors.New("resilience: every backend failed")

type member[T any] struct {
	value   T
	breaker *Breaker
}

// Chain is an ordered list of interchangeable backends, each behind its own
// [Breaker]. Members are added before first use; the list is not modified
// afterwards.
type Chain[T any] struct {
	cfg     BreakerConfig
	members []member[T]
}

// NewChain returns an empty chain whose members get breakers configured
// from cfg. cfg.Name is replaced by each member's name.
func NewChain[T any](cfg BreakerConfig) *Chain[T] {
	return &Chain[T]{cfg: cfg}
}

// Add appends a backend. Backends are tried in the order they were added.
func (c *Chain[T]) Add(name string, v T) *Chain[T] {
	cfg := c.cfg
	cfg.Name = name
	c.members = append(c.members, member[T]{value: v, breaker: NewBreaker(cfg)})
	return c
}

// Len returns the number of members.
func (c *Chain[T]) Len() int { return len(c.members) }

// States reports the breaker state of every member by name.
func (c *Chain[T]) States() map[string]State {
	out := make(map[string]State, len(c.members))
	for _, m := range c.members {
		out[m.breaker.Name()] = m.breaker.State()
	}
	return out
}

// First calls fn on each member in order and returns at the first success.
// Members with an open breaker are skipped. An error the breaker does not
// count as a failure is remembered and the next member is tried; it is
// returned when no member succeeds. Otherwise, when every member fails, the
// result wraps [ErrExhausted] and the individual errors.
func (c *Chain[T]) First(ctx context.Context, fn func(context.Context, T) error) error {
	var (
		errs []error
		soft error
	)
	for _, m := range c.members {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := m.breaker.Do(func() error { return fn(ctx, m.value) })
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrCircuitOpen):
			slog.Debug("backend skipped", "backend", m.breaker.Name())
		case !m.breaker.isFailure(err):
			if soft == nil {
				soft = err
			}
			continue
		default:
			slog.Warn("backend failed, trying next", "backend", m.breaker.Name(), "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", m.breaker.Name(), err))
	}
	if soft != nil {
		return soft
	}
	if len(errs) == 0 {
		return ErrExhausted
	}
	return fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}

// All calls fn on every member whose breaker admits the call. It succeeds
// when at least one call succeeded; failures of the other members are
// logged. When none succeeded, the result wraps [ErrExhausted].
func (c *Chain[T]) All(ctx context.Context, fn func(context.Context, T) error) error {
	var (
		errs []error
		ok   bool
	)
	for _, m := range c.members {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := m.breaker.Do(func() error { return fn(ctx, m.value) })
		if err == nil {
			ok = true
			continue
		}
		if !errors.Is(err, ErrCircuitOpen) {
			slog.Warn("backend failed", "backend", m.breaker.Name(), "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", m.breaker.Name(), err))
	}
	if ok || len(c.members) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}

// FirstValue is [Chain.First] for calls that produce a value.
func FirstValue[T, R any](ctx context.Context, c *Chain[T], fn func(context.Context, T) (R, error)) (R, error) {
	var out R
	err := c.First(ctx, func(ctx context.Context, v T) error {
		r, err := fn(ctx, v)
		if err == nil {
			out = r
		}
		return err
	})
	return out, err
}
