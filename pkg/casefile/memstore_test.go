package casefile_test

import (
	"slices"
	"sync"
	"testing"

	"github.com/MrWong99/casescript/pkg/casefile"
)

func TestMemStore_Flags(t *testing.T) {
	t.Parallel()

	var s casefile.MemStore
	if s.IsFlagSet("A") {
		t.Fatal("zero value: expected flag A unset")
	}
	s.SetFlag("A")
	if !s.IsFlagSet("A") {
		t.Fatal("SetFlag: expected flag A set")
	}
	s.ClearFlag("A")
	if s.IsFlagSet("A") {
		t.Fatal("ClearFlag: expected flag A unset")
	}
}

func TestMemStore_Evidence(t *testing.T) {
	t.Parallel()

	s := casefile.NewMemStore(casefile.Seed{})
	if s.HasAnyEvidence() {
		t.Fatal("expected empty court record")
	}
	s.EnableEvidence("Letter")
	if !s.HasAnyEvidence() || !s.IsEvidenceEnabled("Letter") {
		t.Fatal("EnableEvidence: expected Letter in record")
	}
	s.DisableEvidence("Letter")
	if s.HasAnyEvidence() {
		t.Fatal("DisableEvidence: expected empty record")
	}
}

func TestMemStore_CheckpointRestore(t *testing.T) {
	t.Parallel()

	s := casefile.NewMemStore(casefile.Seed{
		Flags:    []string{"Intro"},
		Evidence: []string{"Badge"},
		Partner:  "Ryan",
	})

	if s.Restore() {
		t.Fatal("Restore without checkpoint: expected false")
	}

	s.Checkpoint()
	s.SetFlag("Later")
	s.DisableEvidence("Badge")
	s.EnableEvidence("Letter")
	s.SetCurrentPartner("")
	s.EnableCutscene("Ending")

	if !s.Restore() {
		t.Fatal("Restore: expected true after Checkpoint")
	}

	want := casefile.Seed{Flags: []string{"Intro"}, Evidence: []string{"Badge"}, Partner: "Ryan"}
	got := s.Seed()
	if !slices.Equal(got.Flags, want.Flags) || !slices.Equal(got.Evidence, want.Evidence) ||
		len(got.Cutscenes) != 0 || got.Partner != want.Partner {
		t.Fatalf("Restore: got %+v, want %+v", got, want)
	}

	// The checkpoint survives a restore so a second restart lands in the same place.
	s.SetFlag("Again")
	s.Restore()
	if s.IsFlagSet("Again") {
		t.Fatal("second Restore: expected flag Again cleared")
	}
}

func TestMemStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := casefile.NewMemStore(casefile.Seed{})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('A' + i))
			s.SetFlag(id)
			_ = s.IsFlagSet(id)
			s.EnableEvidence(id)
			_ = s.HasAnyEvidence()
		}()
	}
	wg.Wait()

	if got := len(s.Seed().Flags); got != 8 {
		t.Fatalf("expected 8 flags, got %d", got)
	}
}
