// Package stage defines the character-staging, field-animation and scene
// transition capabilities the script interpreter drives.
//
// The interpreter never renders anything itself. It keeps the display
// attributes of the two character slots in its shared state and hands them
// to a [Stage] once per frame; a [SceneDriver] receives the transitions that
// leave the current encounter.
//
// This package lives under pkg/ because renderers and scene drivers are
// implemented outside the interpreter.
package stage

import (
	"fmt"
	"strings"
	"time"
)

// Position identifies a character slot on screen.
type Position int

const (
	// PositionNone means no slot (narration, off-screen speaker).
	PositionNone Position = iota

	// PositionLeft is the slot on the left-hand side of the screen.
	PositionLeft

	// PositionRight is the slot on the right-hand side of the screen.
	PositionRight
)

// String returns the lower-case name of the position.
func (p Position) String() string {
	switch p {
	case PositionLeft:
		return "left"
	case PositionRight:
		return "right"
	default:
		return "none"
	}
}

// ParsePosition converts an authored position name into a [Position].
// The empty string maps to [PositionNone].
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "offscreen":
		return PositionNone, nil
	case "left":
		return PositionLeft, nil
	case "right":
		return PositionRight, nil
	}
	return PositionNone, fmt.Errorf("stage: unknown position %q", s)
}

// Character holds the display attributes of one character slot.
type Character struct {
	// ID is the character shown in the slot. Empty means the slot is vacant.
	ID string

	// EmotionID selects the sprite set for the character.
	EmotionID string

	// Offset is the slide-out amount in [0, 1]: 0 is fully on screen, 1 is
	// fully off screen.
	Offset float64
}

// Frame is everything a [Stage] needs to draw the conversation background.
type Frame struct {
	Left  Character
	Right Character

	// Speaker is the slot whose mouth animates while text is printed.
	Speaker Position

	// MouthOpen reports whether the speaker's mouth is currently open.
	MouthOpen bool

	// Zoomed is true while the speaker is shown in the zoomed window.
	Zoomed bool

	// Breakdown is the slot currently playing its breakdown sequence.
	Breakdown Position

	// Shake is the remaining screen-shake time.
	Shake time.Duration

	// Overlay is the opacity of the darkening overlay in [0, 1].
	Overlay float64

	// HealthVisible reports whether confrontation health icons are shown.
	HealthVisible bool

	// PlayerHealth and OpponentHealth are the current confrontation health
	// counters. Both are zero outside confrontations.
	PlayerHealth   int
	OpponentHealth int
}

// Stage renders characters and reports when visual transitions finish.
// Implementations are only called from the update goroutine.
type Stage interface {
	// BeginBreakdown starts the breakdown sequence for the character at pos.
	BeginBreakdown(pos Position)

	// EndBreakdown returns the character at pos to its normal state.
	EndBreakdown(pos Position)

	// BreakdownTransitionComplete reports whether the last breakdown
	// transition has finished playing.
	BreakdownTransitionComplete() bool

	// StartAnimation starts the named field animation.
	StartAnimation(id string)

	// StopAnimation stops the named field animation.
	StopAnimation(id string)

	// Draw renders the conversation background for one frame.
	Draw(f Frame)

	// DrawSprite renders a single full-screen sprite, used for interjections.
	DrawSprite(spriteID string)
}

// TransitionKind classifies a [Transition].
type TransitionKind int

const (
	// TransitionLocation moves the player to another location.
	TransitionLocation TransitionKind = iota

	// TransitionZoomedView moves the player into a zoomed view of the current location.
	TransitionZoomedView

	// TransitionExitEncounter leaves the current encounter.
	TransitionExitEncounter

	// TransitionEndCase ends the case.
	TransitionEndCase
)

// String returns the human-readable name of the transition kind.
func (k TransitionKind) String() string {
	switch k {
	case TransitionLocation:
		return "location"
	case TransitionZoomedView:
		return "zoomed_view"
	case TransitionExitEncounter:
		return "exit_encounter"
	case TransitionEndCase:
		return "end_case"
	default:
		return "unknown"
	}
}

// Transition is a scene change requested by a script.
type Transition struct {
	Kind TransitionKind

	// Target is the location or zoomed-view id. Empty for the other kinds.
	Target string

	// TransitionID names the visual transition to use, if any.
	TransitionID string
}

// SceneDriver receives scene transitions when a conversation finishes.
type SceneDriver interface {
	Transition(t Transition)
}
