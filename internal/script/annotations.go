package script

import (
	"errors"
	"fmt"
	"strings"
)

// Annotations are the mutable parts of a loaded conversation: whether it is
// offered and completed, which lines have been read and which unlock
// conditions scripts added. They are all a save file needs to restore a
// conversation over a freshly loaded script.
type Annotations struct {
	ConversationID string   `json:"conversation_id" yaml:"conversation_id"`
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	Completed      bool     `json:"completed" yaml:"completed"`
	Seen           []string `json:"seen,omitempty" yaml:"seen,omitempty"`
	Locks          []string `json:"locks,omitempty" yaml:"locks,omitempty"`
}

// Annotations returns the current annotations of c.
func (c *Conversation) Annotations() Annotations {
	a := Annotations{
		ConversationID: c.ID,
		Enabled:        c.enabled,
		Completed:      c.completed,
		Seen:           c.list.SeenIDs(),
	}
	for _, u := range c.unlock {
		a.Locks = append(a.Locks, u.String())
	}
	return a
}

// Apply restores annotations onto c. Seen lines are replaced; unlock
// conditions are added to those already present.
func (c *Conversation) Apply(a Annotations) error {
	var locks []UnlockCondition
	for _, s := range a.Locks {
		u, err := ParseUnlockCondition(s)
		if err != nil {
			return fmt.Errorf("script: apply %q: %w", c.ID, err)
		}
		locks = append(locks, u)
	}
	c.enabled = a.Enabled
	c.completed = a.Completed
	c.list.seen = nil
	for _, id := range a.Seen {
		c.list.MarkSeen(id)
	}
	for _, u := range locks {
		c.AddUnlockCondition(u)
	}
	return nil
}

// Annotations returns the annotations of every conversation in order.
func (c *Catalog) Annotations() []Annotations {
	out := make([]Annotations, 0, len(c.order))
	for _, conv := range c.order {
		out = append(out, conv.Annotations())
	}
	return out
}

// Apply restores anns onto the matching conversations. Annotations of
// conversations that no longer exist are skipped; the ids are returned.
func (c *Catalog) Apply(anns []Annotations) (skipped []string, err error) {
	var errs []error
	for _, a := range anns {
		conv, ok := c.byID[a.ConversationID]
		if !ok {
			skipped = append(skipped, a.ConversationID)
			continue
		}
		if err := conv.Apply(a); err != nil {
			errs = append(errs, err)
		}
	}
	return skipped, errors.Join(errs...)
}

// String returns the persisted form of u: "flag_set:<id>" or
// "partner_present:<id>".
func (u UnlockCondition) String() string {
	switch u.Kind {
	case UnlockFlagSet:
		return "flag_set:" + u.ID
	case UnlockPartnerPresent:
		return "partner_present:" + u.ID
	default:
		return fmt.Sprintf("unknown(%d):%s", u.Kind, u.ID)
	}
}

// ParseUnlockCondition parses the form produced by [UnlockCondition.String].
func ParseUnlockCondition(s string) (UnlockCondition, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return UnlockCondition{}, fmt.Errorf("script: malformed unlock condition %q", s)
	}
	switch kind {
	case "flag_set":
		return UnlockCondition{Kind: UnlockFlagSet, ID: id}, nil
	case "partner_present":
		return UnlockCondition{Kind: UnlockPartnerPresent, ID: id}, nil
	default:
		return UnlockCondition{}, fmt.Errorf("script: unknown unlock condition kind %q", kind)
	}
}

// WriteAnnotations writes anns as an "annotations" list of Conversation
// items.
func WriteAnnotations(w Writer, anns []Annotations) error {
	if err := w.BeginList("annotations"); err != nil {
		return err
	}
	for _, a := range anns {
		if err := writeAnnotation(w, a); err != nil {
			return fmt.Errorf("script: write annotations %q: %w", a.ConversationID, err)
		}
	}
	return w.EndList()
}

func writeAnnotation(w Writer, a Annotations) error {
	if err := w.Begin("Conversation"); err != nil {
		return err
	}
	err := errors.Join(
		w.WriteText("id", a.ConversationID),
		w.WriteBool("enabled", a.Enabled),
		w.WriteBool("completed", a.Completed),
		w.WriteTextList("seen", a.Seen),
		w.WriteTextList("locks", a.Locks),
	)
	if err != nil {
		return err
	}
	return w.End()
}

// ReadAnnotations reads what [WriteAnnotations] wrote.
func ReadAnnotations(r Reader) ([]Annotations, error) {
	var out []Annotations
	err := r.Each("annotations", func(tag string) error {
		if tag != "Conversation" {
			return fmt.Errorf("unexpected %q, want Conversation", tag)
		}
		f := &fields{r: r, index: -1}
		a := Annotations{
			ConversationID: f.text("id"),
			Enabled:        f.optBool("enabled", true),
			Completed:      f.optBool("completed", false),
		}
		if f.has("seen") {
			a.Seen = f.textList("seen")
		}
		if f.has("locks") {
			a.Locks = f.textList("locks")
		}
		if f.err != nil {
			return f.err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("script: read annotations: %w", err)
	}
	return out, nil
}
