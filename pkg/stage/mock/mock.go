// Package mock provides in-memory mock implementations of [stage.Stage] and
// [stage.SceneDriver] for use in unit tests.
//
// The mocks record every call. BreakdownComplete controls the value returned
// by [Stage.BreakdownTransitionComplete].
package mock

import (
	"sync"

	"github.com/MrWong99/casescript/pkg/stage"
)

// Compile-time interface assertions.
var (
	_ stage.Stage       = (*Stage)(nil)
	_ stage.SceneDriver = (*SceneDriver)(nil)
)

// Stage is a mock implementation of [stage.Stage].
type Stage struct {
	mu sync.Mutex

	// BreakdownComplete is returned by [Stage.BreakdownTransitionComplete].
	BreakdownComplete bool

	// BreakdownBegins records the positions passed to BeginBreakdown.
	BreakdownBegins []stage.Position

	// BreakdownEnds records the positions passed to EndBreakdown.
	BreakdownEnds []stage.Position

	// Started and Stopped record field animation ids in call order.
	Started []string
	Stopped []string

	// Frames records every frame passed to Draw.
	Frames []stage.Frame

	// Sprites records every sprite passed to DrawSprite.
	Sprites []string
}

// BeginBreakdown implements [stage.Stage].
func (s *Stage) BeginBreakdown(pos stage.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BreakdownBegins = append(s.BreakdownBegins, pos)
}

// EndBreakdown implements [stage.Stage].
func (s *Stage) EndBreakdown(pos stage.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BreakdownEnds = append(s.BreakdownEnds, pos)
}

// BreakdownTransitionComplete implements [stage.Stage].
func (s *Stage) BreakdownTransitionComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.BreakdownComplete
}

// StartAnimation implements [stage.Stage].
func (s *Stage) StartAnimation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Started = append(s.Started, id)
}

// StopAnimation implements [stage.Stage].
func (s *Stage) StopAnimation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stopped = append(s.Stopped, id)
}

// Draw implements [stage.Stage].
func (s *Stage) Draw(f stage.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Frames = append(s.Frames, f)
}

// DrawSprite implements [stage.Stage].
func (s *Stage) DrawSprite(spriteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sprites = append(s.Sprites, spriteID)
}

// LastFrame returns the most recently drawn frame and whether one exists.
func (s *Stage) LastFrame() (stage.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Frames) == 0 {
		return stage.Frame{}, false
	}
	return s.Frames[len(s.Frames)-1], true
}

// SceneDriver is a mock implementation of [stage.SceneDriver].
type SceneDriver struct {
	mu sync.Mutex

	// Transitions records every transition in call order.
	Transitions []stage.Transition
}

// Transition implements [stage.SceneDriver].
func (d *SceneDriver) Transition(t stage.Transition) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Transitions = append(d.Transitions, t)
}
