package script

import "time"

// noTarget marks an unset branch target.
const noTarget = -1

// Action is one instruction of an [ActionList]. It is either a
// [SingleAction] or a [ContinuousAction]; the set of implementations is
// closed to this package.
type Action interface {
	// Tag is the authored element name that selected this kind.
	Tag() string

	// Index is the position of the action in its list.
	Index() int

	action()
}

// SingleAction completes within the tick it is executed in.
//
// Execute may set the next program counter with [State.SetNext]; otherwise
// the interpreter advances by one.
type SingleAction interface {
	Action
	Execute(s *State) error
}

// ContinuousAction spans several ticks. The interpreter calls Begin once,
// then Update once per tick until IsFinished and IsReadyToHide both hold.
type ContinuousAction interface {
	Action

	Begin(s *State) error
	Update(s *State, delta time.Duration) error
	Draw(s *State)

	IsFinished() bool
	IsReadyToHide() bool

	// ShouldSkip reports whether the action may be skipped while the player
	// is fast-forwarding.
	ShouldSkip(s *State) bool

	// GoToNext applies the end state of a skipped action and sets the
	// target it would have branched to, if any.
	GoToNext(s *State)

	// Reset clears per-run playback state before Begin.
	Reset()
}

// base carries what every action has in common.
type base struct {
	index int
	tag   string
}

func (b *base) Tag() string { return b.tag }
func (b *base) Index() int  { return b.index }
func (b *base) action()     {}

// instant is embedded by continuous actions that never wait for a hide
// transition.
type instant struct{}

func (instant) IsReadyToHide() bool { return true }
func (instant) Draw(*State)         {}
