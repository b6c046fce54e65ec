package resilience

import (
	"context"
	"errors"
	"slices"

	"github.com/MrWong99/casescript/internal/annotations"
	"github.com/MrWong99/casescript/internal/script"
)

// Store is an [annotations.Store] spread over several backends, typically
// PostgreSQL with a local file directory behind it.
//
// Saves and deletes go to every backend whose breaker is closed, so the
// local copy stays current while the database is up and takes over when it
// is not. Loads read the first backend holding the slot. Slots merges the
// slot names of every reachable backend.
type Store struct {
	chain *Chain[annotations.Store]
}

// Compile-time interface check.
var _ annotations.Store = (*Store)(nil)

// Backend names an annotation store for a [Store].
type Backend struct {
	Name  string
	Store annotations.Store
}

// NewStore returns a Store over backends in priority order. Missing slots
// do not count against a backend's breaker. Slot names are validated before
// any backend is called.
func NewStore(cfg BreakerConfig, backends ...Backend) *Store {
	cfg.IsFailure = func(err error) bool {
		return err != nil && !errors.Is(err, annotations.ErrNotFound)
	}
	chain := NewChain[annotations.Store](cfg)
	for _, b := range backends {
		chain.Add(b.Name, b.Store)
	}
	return &Store{chain: chain}
}

// Save writes anns to every available backend.
func (s *Store) Save(ctx context.Context, slot string, anns []script.Annotations) error {
	if err := annotations.ValidateSlot(slot); err != nil {
		return err
	}
	return s.chain.All(ctx, func(ctx context.Context, st annotations.Store) error {
		return st.Save(ctx, slot, anns)
	})
}

// Load returns the slot from the first backend that has it.
func (s *Store) Load(ctx context.Context, slot string) ([]script.Annotations, error) {
	if err := annotations.ValidateSlot(slot); err != nil {
		return nil, err
	}
	return FirstValue(ctx, s.chain, func(ctx context.Context, st annotations.Store) ([]script.Annotations, error) {
		return st.Load(ctx, slot)
	})
}

// Slots returns the sorted union of the slots of every available backend.
func (s *Store) Slots(ctx context.Context) ([]string, error) {
	var out []string
	err := s.chain.All(ctx, func(ctx context.Context, st annotations.Store) error {
		slots, err := st.Slots(ctx)
		if err != nil {
			return err
		}
		out = append(out, slots...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Delete removes the slot from every available backend.
func (s *Store) Delete(ctx context.Context, slot string) error {
	if err := annotations.ValidateSlot(slot); err != nil {
		return err
	}
	return s.chain.All(ctx, func(ctx context.Context, st annotations.Store) error {
		return st.Delete(ctx, slot)
	})
}

// Health reports the breaker state of each backend.
func (s *Store) Health() map[string]State { return s.chain.States() }
