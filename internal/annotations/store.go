// Package annotations persists the mutable state of loaded conversations
// between sessions: which are enabled and completed, which lines were read
// and which unlock conditions scripts added.
//
// Annotations are grouped into named save slots. Two backends exist:
// [FileStore] keeps one YAML document per slot and [PostgresStore] keeps
// one row per conversation and slot.
package annotations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/casescript/internal/script"
)

// ErrNotFound is returned by [Store.Load] when a slot holds no annotations.
var ErrNotFound = errors.New("annotations: slot not found")

// Store loads and saves annotations by slot.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save replaces the annotations of slot.
	Save(ctx context.Context, slot string, anns []script.Annotations) error

	// Load returns the annotations of slot in the order they were saved.
	// It returns an error wrapping [ErrNotFound] for unknown slots.
	Load(ctx context.Context, slot string) ([]script.Annotations, error)

	// Slots returns the names of every saved slot, sorted.
	Slots(ctx context.Context) ([]string, error)

	// Delete removes slot. Deleting an unknown slot is not an error.
	Delete(ctx context.Context, slot string) error
}

// ValidateSlot reports whether name may be used as a slot name. Names must
// be non-empty and must not contain path separators.
func ValidateSlot(name string) error {
	switch {
	case name == "":
		return errors.New("annotations: empty slot name")
	case strings.ContainsAny(name, `/\`), name == ".", name == "..":
		return fmt.Errorf("annotations: invalid slot name %q", name)
	}
	return nil
}
