package script

import (
	"time"

	"github.com/MrWong99/casescript/pkg/anim"
	"github.com/MrWong99/casescript/pkg/stage"
)

// DefaultSlideDuration is how long a character takes to slide off or on
// screen when a change does not specify a duration.
const DefaultSlideDuration = 250 * time.Millisecond

type slidePhase int

const (
	slideIdle slidePhase = iota
	slideOut
	slideIn
	slideDone
)

// CharacterChange replaces the character in one slot. The old character
// slides off screen, the identity is swapped and the new one slides on. An
// empty CharacterID vacates the slot; the same CharacterID only changes the
// emotion.
type CharacterChange struct {
	instant
	base
	Position    stage.Position
	CharacterID string
	EmotionID   string
	Duration    time.Duration

	phase slidePhase
	tween anim.Tween
}

// Begin implements [ContinuousAction].
func (c *CharacterChange) Begin(s *State) error {
	slot := s.Character(c.Position)
	if slot == nil {
		return faultf(c.index, "character change without a position")
	}
	switch {
	case slot.ID == c.CharacterID:
		slot.EmotionID = c.EmotionID
		slot.Offset = 0
		c.phase = slideDone
	case slot.ID == "":
		c.swap(slot)
		c.slide(slideIn, 1, 0)
	default:
		c.slide(slideOut, slot.Offset, 1)
	}
	return nil
}

func (c *CharacterChange) slide(p slidePhase, from, to float64) {
	c.phase = p
	c.tween = anim.NewTween(from, to, c.Duration)
}

func (c *CharacterChange) swap(slot *stage.Character) {
	slot.ID = c.CharacterID
	slot.EmotionID = c.EmotionID
	slot.Offset = 1
}

// Update implements [ContinuousAction].
func (c *CharacterChange) Update(s *State, delta time.Duration) error {
	if c.phase == slideDone {
		return nil
	}
	slot := s.Character(c.Position)
	c.tween.Update(delta)
	slot.Offset = c.tween.Value()
	if !c.tween.Done() {
		return nil
	}

	switch c.phase {
	case slideOut:
		c.swap(slot)
		if c.CharacterID == "" {
			*slot = stage.Character{}
			c.phase = slideDone
			return nil
		}
		c.slide(slideIn, 1, 0)
	case slideIn:
		slot.Offset = 0
		c.phase = slideDone
	}
	return nil
}

// IsFinished implements [ContinuousAction].
func (c *CharacterChange) IsFinished() bool { return c.phase == slideDone }

// ShouldSkip implements [ContinuousAction].
func (c *CharacterChange) ShouldSkip(*State) bool { return true }

// GoToNext implements [ContinuousAction].
func (c *CharacterChange) GoToNext(s *State) {
	slot := s.Character(c.Position)
	if slot == nil {
		return
	}
	if c.CharacterID == "" {
		*slot = stage.Character{}
	} else {
		*slot = stage.Character{ID: c.CharacterID, EmotionID: c.EmotionID}
	}
	c.phase = slideDone
}

// Reset implements [ContinuousAction].
func (c *CharacterChange) Reset() {
	c.phase = slideIdle
	c.tween = anim.Tween{}
}

// MultipleCharacterChange runs several character changes at once and
// finishes when all of them have.
type MultipleCharacterChange struct {
	instant
	base
	Changes []*CharacterChange
}

// Begin implements [ContinuousAction].
func (m *MultipleCharacterChange) Begin(s *State) error {
	for _, c := range m.Changes {
		c.Reset()
		if err := c.Begin(s); err != nil {
			return err
		}
	}
	return nil
}

// Update implements [ContinuousAction].
func (m *MultipleCharacterChange) Update(s *State, delta time.Duration) error {
	for _, c := range m.Changes {
		if !c.IsFinished() {
			if err := c.Update(s, delta); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsFinished implements [ContinuousAction].
func (m *MultipleCharacterChange) IsFinished() bool {
	for _, c := range m.Changes {
		if !c.IsFinished() {
			return false
		}
	}
	return true
}

// ShouldSkip implements [ContinuousAction].
func (m *MultipleCharacterChange) ShouldSkip(*State) bool { return true }

// GoToNext implements [ContinuousAction].
func (m *MultipleCharacterChange) GoToNext(s *State) {
	for _, c := range m.Changes {
		c.GoToNext(s)
	}
}

// Reset implements [ContinuousAction].
func (m *MultipleCharacterChange) Reset() {
	for _, c := range m.Changes {
		c.Reset()
	}
}

// Wait pauses the script for Duration.
type Wait struct {
	instant
	base
	Duration time.Duration

	elapsed time.Duration
}

// Begin implements [ContinuousAction].
func (w *Wait) Begin(*State) error { return nil }

// Update implements [ContinuousAction].
func (w *Wait) Update(_ *State, delta time.Duration) error {
	w.elapsed += delta
	return nil
}

// IsFinished implements [ContinuousAction].
func (w *Wait) IsFinished() bool { return w.elapsed >= w.Duration }

// ShouldSkip implements [ContinuousAction].
func (w *Wait) ShouldSkip(*State) bool { return true }

// GoToNext implements [ContinuousAction].
func (w *Wait) GoToNext(*State) {}

// Reset implements [ContinuousAction].
func (w *Wait) Reset() { w.elapsed = 0 }

// SetSpeaker moves the speaker indicator to Position.
type SetSpeaker struct {
	base
	Position stage.Position
}

// Execute implements [SingleAction].
func (a *SetSpeaker) Execute(s *State) error {
	s.speaker = a.Position
	return nil
}

// ShakeScreen shakes the screen for Duration without blocking the script.
type ShakeScreen struct {
	base
	Duration time.Duration
}

// Execute implements [SingleAction].
func (a *ShakeScreen) Execute(s *State) error {
	s.shake = a.Duration
	return nil
}

// ZoomWindow shows or hides the zoomed speaker window.
type ZoomWindow struct {
	base
	Zoomed bool
}

// Execute implements [SingleAction].
func (a *ZoomWindow) Execute(s *State) error {
	s.zoomed = a.Zoomed
	return nil
}

// Breakdown starts (BeginBreakdown) or ends (EndBreakdown) the breakdown
// sequence of a character and blocks until the stage reports the visual
// transition complete.
type Breakdown struct {
	instant
	base
	Position stage.Position
	Ending   bool

	st stage.Stage
}

// Begin implements [ContinuousAction].
func (b *Breakdown) Begin(s *State) error {
	b.st = s.env.Stage
	if b.Ending {
		s.breakdown = stage.PositionNone
		b.st.EndBreakdown(b.Position)
	} else {
		s.breakdown = b.Position
		b.st.BeginBreakdown(b.Position)
	}
	return nil
}

// Update implements [ContinuousAction].
func (b *Breakdown) Update(*State, time.Duration) error { return nil }

// IsFinished implements [ContinuousAction].
func (b *Breakdown) IsFinished() bool { return b.st != nil && b.st.BreakdownTransitionComplete() }

// ShouldSkip implements [ContinuousAction].
func (b *Breakdown) ShouldSkip(*State) bool { return false }

// GoToNext implements [ContinuousAction].
func (b *Breakdown) GoToNext(*State) {}

// Reset implements [ContinuousAction].
func (b *Breakdown) Reset() { b.st = nil }
