// Package mock provides a scriptable mock implementation of [dialog.Dialog]
// for use in unit tests.
//
// Each line handed to Begin is recorded. A line finishes after FinishAfter
// calls to Update (default 1). Tests inject player input with [Dialog.Emit],
// which calls the handler of the current line synchronously, or queue events
// with Pending so they are delivered on the next Update.
//
// Example:
//
//	d := &mock.Dialog{}
//	conv.Begin(ctx, env)
//	conv.Update(frame)               // line starts
//	d.Emit(dialog.Event{Kind: dialog.EventEvidencePresented, Value: "Letter"})
package mock

import (
	"sync"
	"time"

	"github.com/MrWong99/casescript/pkg/dialog"
)

// Compile-time interface assertion.
var _ dialog.Dialog = (*Dialog)(nil)

// Dialog is a mock implementation of [dialog.Dialog].
type Dialog struct {
	mu sync.Mutex

	// FinishAfter is the number of Update calls after which a line finishes
	// on its own. Zero means 1. Negative means never.
	FinishAfter int

	// NotReadyToHide keeps IsReadyToHide false while set.
	NotReadyToHide bool

	// Pending events are delivered, in order, on the next Update call.
	Pending []dialog.Event

	// Lines records every line passed to Begin.
	Lines []dialog.Line

	// CallCountFinish, CallCountReset and CallCountDraw count those calls.
	CallCountFinish int
	CallCountReset  int
	CallCountDraw   int

	handler  dialog.Handler
	updates  int
	finished bool
	active   bool
}

// Begin implements [dialog.Dialog].
func (d *Dialog) Begin(line dialog.Line, h dialog.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Lines = append(d.Lines, line)
	d.handler = h
	d.updates = 0
	d.finished = false
	d.active = true
}

// Update implements [dialog.Dialog].
func (d *Dialog) Update(_ time.Duration) {
	d.mu.Lock()
	if !d.active || d.finished {
		d.mu.Unlock()
		return
	}
	pending := d.Pending
	d.Pending = nil
	h := d.handler
	d.mu.Unlock()

	for _, ev := range pending {
		if h != nil {
			h(ev)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates++
	limit := d.FinishAfter
	if limit == 0 {
		limit = 1
	}
	if limit > 0 && d.updates >= limit {
		d.finished = true
	}
}

// Emit delivers ev to the handler of the current line immediately.
func (d *Dialog) Emit(ev dialog.Event) {
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

// Draw implements [dialog.Dialog].
func (d *Dialog) Draw() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountDraw++
}

// Finish implements [dialog.Dialog].
func (d *Dialog) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountFinish++
	d.finished = true
}

// Reset implements [dialog.Dialog].
func (d *Dialog) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountReset++
	d.active = false
	d.finished = false
	d.handler = nil
}

// IsFinished implements [dialog.Dialog].
func (d *Dialog) IsFinished() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finished
}

// IsReadyToHide implements [dialog.Dialog].
func (d *Dialog) IsReadyToHide() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.NotReadyToHide
}

// LastLine returns the most recent line passed to Begin.
func (d *Dialog) LastLine() (dialog.Line, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Lines) == 0 {
		return dialog.Line{}, false
	}
	return d.Lines[len(d.Lines)-1], true
}
