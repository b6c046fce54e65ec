// Package yamlsrc reads and writes script documents as YAML.
//
// A document is a mapping. Lists are YAML sequences whose items are
// single-key mappings: the key is the item's tag and the value its body.
//
//	conversations:
//	  - Conversation:
//	      id: intro
//	      actions:
//	        - ShowDialog: {speaker: phoenix, text: "Hold it!"}
//	        - SetFlag: {flag: met_phoenix}
//
// A null body (`- ClearPartner:`) reads as an empty mapping.
package yamlsrc

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/casescript/internal/script"
)

// ErrMissing is returned when a required field is absent.
var ErrMissing = errors.New("yamlsrc: missing field")

// Compile-time interface assertions.
var (
	_ script.Reader = (*Reader)(nil)
	_ script.Writer = (*Writer)(nil)
)

// Reader implements [script.Reader] over a decoded YAML node tree.
type Reader struct {
	stack []*yaml.Node
}

// NewReader decodes data and positions the reader at the document root.
func NewReader(data []byte) (*Reader, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yamlsrc: decode: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == 0 {
		root = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("yamlsrc: line %d: document root must be a mapping", root.Line)
	}
	return &Reader{stack: []*yaml.Node{root}}, nil
}

// ReadFile opens path and returns a [Reader] over its contents.
func ReadFile(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("yamlsrc: read %q: %w", path, err)
	}
	r, err := NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ReadAll reads all of src and returns a [Reader] over it.
func ReadAll(src io.Reader) (*Reader, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("yamlsrc: read: %w", err)
	}
	return NewReader(data)
}

func (r *Reader) current() *yaml.Node { return r.stack[len(r.stack)-1] }

// lookup returns the value of key name in the current mapping, or nil.
func (r *Reader) lookup(name string) *yaml.Node {
	cur := r.current()
	if cur.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(cur.Content); i += 2 {
		if cur.Content[i].Value == name {
			return cur.Content[i+1]
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func (r *Reader) field(name string) (*yaml.Node, error) {
	n := r.lookup(name)
	if isNull(n) {
		return nil, fmt.Errorf("%w %q (line %d)", ErrMissing, name, r.current().Line)
	}
	return n, nil
}

func (r *Reader) scalar(name string, v any) error {
	n, err := r.field(name)
	if err != nil {
		return err
	}
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("yamlsrc: line %d: %q must be a scalar", n.Line, name)
	}
	if err := n.Decode(v); err != nil {
		return fmt.Errorf("yamlsrc: line %d: %q: %w", n.Line, name, err)
	}
	return nil
}

// Enter implements [script.Reader].
func (r *Reader) Enter(name string) error {
	n, err := r.field(name)
	if err != nil {
		return err
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("yamlsrc: line %d: %q must be a mapping", n.Line, name)
	}
	r.stack = append(r.stack, n)
	return nil
}

// Exit implements [script.Reader].
func (r *Reader) Exit() error {
	if len(r.stack) == 1 {
		return errors.New("yamlsrc: exit at document root")
	}
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

// Has implements [script.Reader].
func (r *Reader) Has(name string) bool { return !isNull(r.lookup(name)) }

// ReadInt implements [script.Reader].
func (r *Reader) ReadInt(name string) (int, error) {
	var v int
	err := r.scalar(name, &v)
	return v, err
}

// ReadText implements [script.Reader].
func (r *Reader) ReadText(name string) (string, error) {
	var v string
	err := r.scalar(name, &v)
	return v, err
}

// ReadBool implements [script.Reader].
func (r *Reader) ReadBool(name string) (bool, error) {
	var v bool
	err := r.scalar(name, &v)
	return v, err
}

// ReadTextList implements [script.Reader].
func (r *Reader) ReadTextList(name string) ([]string, error) {
	n, err := r.field(name)
	if err != nil {
		return nil, err
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("yamlsrc: line %d: %q must be a list", n.Line, name)
	}
	var v []string
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("yamlsrc: line %d: %q: %w", n.Line, name, err)
	}
	return v, nil
}

// Each implements [script.Reader].
func (r *Reader) Each(name string, fn func(tag string) error) error {
	n := r.lookup(name)
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("yamlsrc: line %d: %q must be a list", n.Line, name)
	}
	for _, item := range n.Content {
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			return fmt.Errorf("yamlsrc: line %d: list item must be a single-key mapping", item.Line)
		}
		tag, body := item.Content[0].Value, item.Content[1]
		if isNull(body) {
			body = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: item.Line}
		}
		if body.Kind != yaml.MappingNode {
			return fmt.Errorf("yamlsrc: line %d: body of %s must be a mapping", body.Line, tag)
		}

		r.stack = append(r.stack, body)
		err := fn(tag)
		r.stack = r.stack[:len(r.stack)-1]
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", item.Line, tag, err)
		}
	}
	return nil
}
