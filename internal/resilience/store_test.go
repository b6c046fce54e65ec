package resilience_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/casescript/internal/annotations"
	"github.com/MrWong99/casescript/internal/resilience"
	"github.com/MrWong99/casescript/internal/script"
)

// flakyStore wraps a store and fails every call while down is set.
type flakyStore struct {
	annotations.Store

	mu    sync.Mutex
	down  bool
	calls int
}

var errDown = errors.New("connection refused")

func (s *flakyStore) setDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

func (s *flakyStore) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.down {
		return errDown
	}
	return nil
}

func (s *flakyStore) Save(ctx context.Context, slot string, anns []script.Annotations) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.Store.Save(ctx, slot, anns)
}

func (s *flakyStore) Load(ctx context.Context, slot string) ([]script.Annotations, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.Store.Load(ctx, slot)
}

func (s *flakyStore) Slots(ctx context.Context) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.Store.Slots(ctx)
}

func (s *flakyStore) Delete(ctx context.Context, slot string) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.Store.Delete(ctx, slot)
}

func newFiles(t *testing.T) *annotations.FileStore {
	t.Helper()
	s, err := annotations.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func newGuarded(t *testing.T) (*resilience.Store, *flakyStore, *annotations.FileStore) {
	t.Helper()
	primary := &flakyStore{Store: newFiles(t)}
	local := newFiles(t)
	s := resilience.NewStore(
		resilience.BreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
		resilience.Backend{Name: "postgres", Store: primary},
		resilience.Backend{Name: "file", Store: local},
	)
	return s, primary, local
}

var intro = []script.Annotations{{ConversationID: "intro", Enabled: true, Completed: true}}

func TestStore_SaveMirrorsToEveryBackend(t *testing.T) {
	t.Parallel()
	s, primary, local := newGuarded(t)
	ctx := context.Background()

	if err := s.Save(ctx, "ep1", intro); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for name, st := range map[string]annotations.Store{"primary": primary.Store, "local": local} {
		if got, err := st.Load(ctx, "ep1"); err != nil || len(got) != 1 {
			t.Errorf("%s Load = %v, %v", name, got, err)
		}
	}
}

func TestStore_FallsBackWhilePrimaryIsDown(t *testing.T) {
	t.Parallel()
	s, primary, _ := newGuarded(t)
	ctx := context.Background()

	primary.setDown(true)
	if err := s.Save(ctx, "ep1", intro); err != nil {
		t.Fatalf("Save with primary down: %v", err)
	}
	got, err := s.Load(ctx, "ep1")
	if err != nil || len(got) != 1 || got[0].ConversationID != "intro" {
		t.Fatalf("Load = %+v, %v", got, err)
	}
	if s.Health()["postgres"] != resilience.StateOpen {
		t.Errorf("health = %v, want postgres open", s.Health())
	}

	// The open breaker keeps further calls away from the primary.
	before := primary.calls
	if _, err := s.Slots(ctx); err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if primary.calls != before {
		t.Errorf("primary called %d times while open", primary.calls-before)
	}
}

func TestStore_LoadMissingSlot(t *testing.T) {
	t.Parallel()
	s, _, _ := newGuarded(t)
	ctx := context.Background()

	for range 3 {
		_, err := s.Load(ctx, "nope")
		if !errors.Is(err, annotations.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
	if s.Health()["postgres"] != resilience.StateClosed {
		t.Errorf("missing slots tripped the breaker: %v", s.Health())
	}
}

func TestStore_LoadPrefersPrimary(t *testing.T) {
	t.Parallel()
	s, primary, local := newGuarded(t)
	ctx := context.Background()

	if err := local.Save(ctx, "ep1", []script.Annotations{{ConversationID: "stale"}}); err != nil {
		t.Fatal(err)
	}
	if err := primary.Store.Save(ctx, "ep1", intro); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx, "ep1")
	if err != nil || got[0].ConversationID != "intro" {
		t.Errorf("Load = %+v, %v", got, err)
	}
}

func TestStore_SlotsAndDelete(t *testing.T) {
	t.Parallel()
	s, primary, local := newGuarded(t)
	ctx := context.Background()

	_ = primary.Store.Save(ctx, "a", intro)
	_ = local.Save(ctx, "b", intro)
	if err := s.Save(ctx, "c", intro); err != nil {
		t.Fatal(err)
	}

	slots, err := s.Slots(ctx)
	if err != nil || !slices.Equal(slots, []string{"a", "b", "c"}) {
		t.Fatalf("Slots = %v, %v", slots, err)
	}

	if err := s.Delete(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	slots, _ = s.Slots(ctx)
	if !slices.Equal(slots, []string{"a", "b"}) {
		t.Errorf("Slots after delete = %v", slots)
	}
}

func TestStore_AllBackendsDown(t *testing.T) {
	t.Parallel()
	primary := &flakyStore{Store: newFiles(t), down: true}
	s := resilience.NewStore(resilience.BreakerConfig{}, resilience.Backend{Name: "postgres", Store: primary})

	if err := s.Save(context.Background(), "ep1", intro); !errors.Is(err, resilience.ErrExhausted) {
		t.Errorf("Save err = %v, want ErrExhausted", err)
	}
	if _, err := s.Load(context.Background(), "ep1"); !errors.Is(err, errDown) {
		t.Errorf("Load err = %v, want the backend error", err)
	}
}

func TestStore_InvalidSlot(t *testing.T) {
	t.Parallel()
	s, primary, _ := newGuarded(t)
	if err := s.Save(context.Background(), "../x", intro); err == nil {
		t.Error("Save accepted an invalid slot")
	}
	if primary.calls != 0 {
		t.Errorf("primary called %d times", primary.calls)
	}
}
