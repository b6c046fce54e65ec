package annotations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/MrWong99/casescript/internal/script"
	"github.com/MrWong99/casescript/internal/script/yamlsrc"
)

const fileExt = ".yaml"

// FileStore is a [Store] keeping one YAML document per slot in a directory.
// Writes go to a temporary file that is renamed over the slot, so a crash
// never leaves a half-written save.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("annotations: create %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.dir, slot+fileExt)
}

// Save writes anns to the slot's file.
func (s *FileStore) Save(_ context.Context, slot string, anns []script.Annotations) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	w := yamlsrc.NewWriter()
	if err := script.WriteAnnotations(w, anns); err != nil {
		return fmt.Errorf("annotations: save %q: %w", slot, err)
	}
	data, err := w.Bytes()
	if err != nil {
		return fmt.Errorf("annotations: save %q: %w", slot, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("annotations: save %q: %w", slot, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("annotations: save %q: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("annotations: save %q: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), s.path(slot)); err != nil {
		return fmt.Errorf("annotations: save %q: %w", slot, err)
	}
	return nil
}

// Load reads the slot's file.
func (s *FileStore) Load(_ context.Context, slot string) ([]script.Annotations, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}

	s.mu.Lock()
	r, err := yamlsrc.ReadFile(s.path(slot))
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("annotations: load %q: %w", slot, err)
	}
	anns, err := script.ReadAnnotations(r)
	if err != nil {
		return nil, fmt.Errorf("annotations: load %q: %w", slot, err)
	}
	return anns, nil
}

// Slots lists the slot files in the directory.
func (s *FileStore) Slots(context.Context) ([]string, error) {
	s.mu.Lock()
	entries, err := os.ReadDir(s.dir)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("annotations: slots: %w", err)
	}
	var out []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), fileExt)
		if !ok || e.IsDir() {
			continue
		}
		out = append(out, name)
	}
	slices.Sort(out)
	return out, nil
}

// Delete removes the slot's file.
func (s *FileStore) Delete(_ context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(slot)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("annotations: delete %q: %w", slot, err)
	}
	return nil
}
