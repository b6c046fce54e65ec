package script

import (
	"maps"
	"slices"
)

// ActionList is the ordered, fixed-after-load program of a conversation.
// Indices are the only addressing scheme; branch targets refer to them and
// the value len(list) means "end of conversation".
//
// The only mutable part of a loaded list is its seen table: one entry per
// dialogue content id, shared by every line authored with that id.
type ActionList struct {
	actions []Action
	seen    map[string]bool
}

// Len returns the number of actions.
func (l *ActionList) Len() int { return len(l.actions) }

// At returns the action at index i. It panics when i is out of range.
func (l *ActionList) At(i int) Action { return l.actions[i] }

// Actions returns the actions in execution order. The slice must not be
// modified.
func (l *ActionList) Actions() []Action { return l.actions }

// Seen reports whether the line with contentID has been shown before.
func (l *ActionList) Seen(contentID string) bool { return l.seen[contentID] }

// MarkSeen records that the line with contentID has been shown.
func (l *ActionList) MarkSeen(contentID string) {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	l.seen[contentID] = true
}

// SeenIDs returns the sorted content ids marked seen.
func (l *ActionList) SeenIDs() []string {
	return slices.Sorted(maps.Keys(l.seen))
}

// validTarget reports whether i may be used as a branch target.
func (l *ActionList) validTarget(i int) bool { return i >= 0 && i <= len(l.actions) }
