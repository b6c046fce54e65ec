package script

import (
	"errors"
	"fmt"
)

// Catalog holds the conversations of a case by id and serves as the
// [ConversationSource] of a run. It is not safe for concurrent use.
type Catalog struct {
	byID  map[string]*Conversation
	order []*Conversation
}

// NewCatalog returns a catalog holding convs. See [Catalog.Add].
func NewCatalog(convs ...*Conversation) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Conversation)}
	if err := c.Add(convs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Add appends convs in order. Conversations whose id is empty or already
// present are rejected; the others are still added.
func (c *Catalog) Add(convs ...*Conversation) error {
	if c.byID == nil {
		c.byID = make(map[string]*Conversation)
	}
	var errs []error
	for _, conv := range convs {
		switch _, dup := c.byID[conv.ID]; {
		case conv.ID == "":
			errs = append(errs, fmt.Errorf("%w: conversation without id", ErrAuthoring))
		case dup:
			errs = append(errs, fmt.Errorf("%w: duplicate conversation %q", ErrAuthoring, conv.ID))
		default:
			c.byID[conv.ID] = conv
			c.order = append(c.order, conv)
		}
	}
	return errors.Join(errs...)
}

// Conversation implements [ConversationSource].
func (c *Catalog) Conversation(id string) (*Conversation, bool) {
	conv, ok := c.byID[id]
	return conv, ok
}

// Conversations returns every conversation in the order added.
func (c *Catalog) Conversations() []*Conversation { return c.order }

// Len returns the number of conversations.
func (c *Catalog) Len() int { return len(c.order) }
