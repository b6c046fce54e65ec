package yamlsrc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Writer implements [script.Writer] by building a YAML node tree.
type Writer struct {
	root  *yaml.Node
	stack []*yaml.Node
}

// NewWriter returns a Writer positioned at an empty document root.
func NewWriter() *Writer {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	return &Writer{root: root, stack: []*yaml.Node{root}}
}

func (w *Writer) current() *yaml.Node { return w.stack[len(w.stack)-1] }

func (w *Writer) put(name string, v *yaml.Node) error {
	cur := w.current()
	if cur.Kind != yaml.MappingNode {
		return fmt.Errorf("yamlsrc: field %q written inside a list", name)
	}
	cur.Content = append(cur.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, v)
	return nil
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// Begin implements [script.Writer].
func (w *Writer) Begin(name string) error {
	body := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	cur := w.current()
	if cur.Kind == yaml.SequenceNode {
		item := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		item.Content = append(item.Content, scalar("!!str", name), body)
		cur.Content = append(cur.Content, item)
	} else if err := w.put(name, body); err != nil {
		return err
	}
	w.stack = append(w.stack, body)
	return nil
}

// End implements [script.Writer].
func (w *Writer) End() error {
	if len(w.stack) == 1 || w.current().Kind != yaml.MappingNode {
		return errors.New("yamlsrc: end without begin")
	}
	w.stack = w.stack[:len(w.stack)-1]
	return nil
}

// BeginList implements [script.Writer].
func (w *Writer) BeginList(name string) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if err := w.put(name, seq); err != nil {
		return err
	}
	w.stack = append(w.stack, seq)
	return nil
}

// EndList implements [script.Writer].
func (w *Writer) EndList() error {
	if w.current().Kind != yaml.SequenceNode {
		return errors.New("yamlsrc: end list without begin list")
	}
	w.stack = w.stack[:len(w.stack)-1]
	return nil
}

// WriteInt implements [script.Writer].
func (w *Writer) WriteInt(name string, v int) error {
	return w.put(name, scalar("!!int", strconv.Itoa(v)))
}

// WriteText implements [script.Writer].
func (w *Writer) WriteText(name string, v string) error {
	return w.put(name, scalar("!!str", v))
}

// WriteBool implements [script.Writer].
func (w *Writer) WriteBool(name string, v bool) error {
	return w.put(name, scalar("!!bool", strconv.FormatBool(v)))
}

// WriteTextList implements [script.Writer]. An empty list is omitted.
func (w *Writer) WriteTextList(name string, v []string) error {
	if len(v) == 0 {
		return nil
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, s := range v {
		seq.Content = append(seq.Content, scalar("!!str", s))
	}
	return w.put(name, seq)
}

// Encode writes the document to out.
func (w *Writer) Encode(out io.Writer) error {
	if len(w.stack) != 1 {
		return fmt.Errorf("yamlsrc: encode with %d unclosed elements", len(w.stack)-1)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(w.root); err != nil {
		return fmt.Errorf("yamlsrc: encode: %w", err)
	}
	return enc.Close()
}

// Bytes returns the encoded document.
func (w *Writer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
