// Package mock provides a mock implementation of [menu.ButtonArray] for use
// in unit tests.
//
// Tests simulate the player with [ButtonArray.Click]. Close takes effect
// immediately unless CloseFrames is set.
package mock

import (
	"sync"
	"time"

	"github.com/MrWong99/casescript/pkg/menu"
)

// Compile-time interface assertion.
var _ menu.ButtonArray = (*ButtonArray)(nil)

// ButtonArray is a mock implementation of [menu.ButtonArray].
type ButtonArray struct {
	mu sync.Mutex

	// CloseFrames is the number of Update calls the closing animation takes.
	CloseFrames int

	// Loaded records every option list passed to Load.
	Loaded [][]menu.Option

	// CallCountShow, CallCountClose and CallCountDraw count those calls.
	CallCountShow  int
	CallCountClose int
	CallCountDraw  int

	onClick func(string)
	shown   bool
	closing int
}

// Load implements [menu.ButtonArray].
func (b *ButtonArray) Load(opts []menu.Option) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Loaded = append(b.Loaded, append([]menu.Option(nil), opts...))
}

// OnClick implements [menu.ButtonArray].
func (b *ButtonArray) OnClick(fn func(id string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onClick = fn
}

// Show implements [menu.ButtonArray].
func (b *ButtonArray) Show() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CallCountShow++
	b.shown = true
	b.closing = 0
}

// Close implements [menu.ButtonArray].
func (b *ButtonArray) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CallCountClose++
	if !b.shown {
		return
	}
	b.shown = false
	b.closing = b.CloseFrames
}

// IsClosed implements [menu.ButtonArray].
func (b *ButtonArray) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.shown && b.closing == 0
}

// Update implements [menu.ButtonArray].
func (b *ButtonArray) Update(_ time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closing > 0 {
		b.closing--
	}
}

// Draw implements [menu.ButtonArray].
func (b *ButtonArray) Draw() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CallCountDraw++
}

// Click simulates the player clicking the option with id.
func (b *ButtonArray) Click(id string) {
	b.mu.Lock()
	fn := b.onClick
	b.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

// IsShown reports whether the menu is open.
func (b *ButtonArray) IsShown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shown
}

// LastLoaded returns the most recent option list passed to Load.
func (b *ButtonArray) LastLoaded() []menu.Option {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Loaded) == 0 {
		return nil
	}
	return b.Loaded[len(b.Loaded)-1]
}
