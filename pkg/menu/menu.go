// Package menu defines the button-array capability used for multiple-choice
// prompts and confrontation topic selection.
package menu

import "time"

// Option is one button of a [ButtonArray].
type Option struct {
	// ID is reported back through the click callback.
	ID string

	// Text is the button label.
	Text string

	// Visited marks options the player has already chosen before.
	Visited bool
}

// ButtonArray shows a vertical list of buttons and reports clicks.
//
// The usual sequence is Load, OnClick, Show, then Update every frame until a
// click arrives, then Close and poll IsClosed until the closing animation has
// finished. Implementations are only called from the update goroutine.
type ButtonArray interface {
	// Load replaces the buttons.
	Load(opts []Option)

	// OnClick registers the click callback, replacing any previous one.
	OnClick(fn func(id string))

	// Show opens the menu.
	Show()

	// Close starts the closing animation.
	Close()

	// IsClosed reports whether the menu is fully closed.
	IsClosed() bool

	// Update advances animations and input handling by delta.
	Update(delta time.Duration)

	// Draw renders the menu.
	Draw()
}
