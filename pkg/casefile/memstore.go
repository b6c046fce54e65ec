package casefile

import (
	"maps"
	"slices"
	"sync"
)

// Compile-time assertions that MemStore satisfies every interface.
var (
	_ Flags        = (*MemStore)(nil)
	_ Evidence     = (*MemStore)(nil)
	_ Partners     = (*MemStore)(nil)
	_ Cutscenes    = (*MemStore)(nil)
	_ Checkpointer = (*MemStore)(nil)
)

// snapshot is a deep copy of the mutable case state.
type snapshot struct {
	flags     map[string]struct{}
	evidence  map[string]struct{}
	cutscenes map[string]struct{}
	partner   string
}

func (s snapshot) clone() snapshot {
	return snapshot{
		flags:     maps.Clone(s.flags),
		evidence:  maps.Clone(s.evidence),
		cutscenes: maps.Clone(s.cutscenes),
		partner:   s.partner,
	}
}

// MemStore is a thread-safe, in-memory implementation of all casefile
// interfaces. The zero value is ready to use.
type MemStore struct {
	mu         sync.RWMutex
	cur        snapshot
	checkpoint *snapshot
}

// Seed describes the initial state of a case.
type Seed struct {
	Flags     []string `yaml:"flags"`
	Evidence  []string `yaml:"evidence"`
	Cutscenes []string `yaml:"cutscenes"`
	Partner   string   `yaml:"partner"`
}

// NewMemStore returns a [MemStore] initialised from seed.
func NewMemStore(seed Seed) *MemStore {
	s := &MemStore{}
	for _, id := range seed.Flags {
		s.SetFlag(id)
	}
	for _, id := range seed.Evidence {
		s.EnableEvidence(id)
	}
	for _, id := range seed.Cutscenes {
		s.EnableCutscene(id)
	}
	s.SetCurrentPartner(seed.Partner)
	return s
}

// IsFlagSet implements [Flags.IsFlagSet].
func (s *MemStore) IsFlagSet(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cur.flags[id]
	return ok
}

// SetFlag implements [Flags.SetFlag].
func (s *MemStore) SetFlag(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.flags = add(s.cur.flags, id)
}

// ClearFlag implements [Flags.ClearFlag].
func (s *MemStore) ClearFlag(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cur.flags, id)
}

// IsEvidenceEnabled implements [Evidence.IsEvidenceEnabled].
func (s *MemStore) IsEvidenceEnabled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cur.evidence[id]
	return ok
}

// EnableEvidence implements [Evidence.EnableEvidence].
func (s *MemStore) EnableEvidence(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.evidence = add(s.cur.evidence, id)
}

// DisableEvidence implements [Evidence.DisableEvidence].
func (s *MemStore) DisableEvidence(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cur.evidence, id)
}

// HasAnyEvidence implements [Evidence.HasAnyEvidence].
func (s *MemStore) HasAnyEvidence() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cur.evidence) > 0
}

// CurrentPartner implements [Partners.CurrentPartner].
func (s *MemStore) CurrentPartner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.partner
}

// SetCurrentPartner implements [Partners.SetCurrentPartner].
func (s *MemStore) SetCurrentPartner(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.partner = id
}

// IsCutsceneEnabled implements [Cutscenes.IsCutsceneEnabled].
func (s *MemStore) IsCutsceneEnabled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cur.cutscenes[id]
	return ok
}

// EnableCutscene implements [Cutscenes.EnableCutscene].
func (s *MemStore) EnableCutscene(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.cutscenes = add(s.cur.cutscenes, id)
}

// Checkpoint implements [Checkpointer.Checkpoint].
func (s *MemStore) Checkpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.cur.clone()
	s.checkpoint = &cp
}

// Restore implements [Checkpointer.Restore].
func (s *MemStore) Restore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkpoint == nil {
		return false
	}
	s.cur = s.checkpoint.clone()
	return true
}

// Seed returns the current state in the same shape [NewMemStore] accepts.
// Slices are sorted.
func (s *MemStore) Seed() Seed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Seed{
		Flags:     sortedKeys(s.cur.flags),
		Evidence:  sortedKeys(s.cur.evidence),
		Cutscenes: sortedKeys(s.cur.cutscenes),
		Partner:   s.cur.partner,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func add(m map[string]struct{}, id string) map[string]struct{} {
	if m == nil {
		m = make(map[string]struct{})
	}
	m[id] = struct{}{}
	return m
}

func sortedKeys(m map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(m))
}
