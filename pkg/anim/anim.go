// Package anim implements frame-timed staged animations and linear tweens.
//
// An [Animation] owns its playback state (elapsed time, current frame and
// which frame sounds have fired). [Animation.Clone] copies that state into a
// fresh value so a template can be instantiated many times without one
// playback leaking into another.
package anim

import (
	"slices"
	"time"
)

// Frame is a single frame of a staged animation.
type Frame struct {
	// SpriteID is the sprite drawn for the duration of the frame.
	SpriteID string

	// Duration is how long the frame stays on screen. Must be > 0.
	Duration time.Duration

	// SoundID is played once when the frame is first shown. Empty for none.
	SoundID string
}

// Animation plays a fixed sequence of frames. The zero value is an empty,
// already finished animation.
type Animation struct {
	frames []Frame
	loop   bool

	elapsed     time.Duration
	index       int
	soundPlayed []bool
	finished    bool
}

// Option configures an [Animation].
type Option func(*Animation)

// WithLoop makes the animation restart after its last frame. Looping
// animations never finish; sounds fire again on every pass.
func WithLoop() Option {
	return func(a *Animation) { a.loop = true }
}

// New creates an animation over frames. Frames with a non-positive duration
// are dropped.
func New(frames []Frame, opts ...Option) *Animation {
	a := &Animation{}
	for _, f := range frames {
		if f.Duration > 0 {
			a.frames = append(a.frames, f)
		}
	}
	for _, o := range opts {
		o(a)
	}
	a.Reset()
	return a
}

// Reset rewinds the animation to its first frame and re-arms all sounds.
func (a *Animation) Reset() {
	a.elapsed = 0
	a.index = 0
	a.soundPlayed = make([]bool, len(a.frames))
	a.finished = len(a.frames) == 0
}

// Clone returns an independent copy including the current playback state.
func (a *Animation) Clone() *Animation {
	return &Animation{
		frames:      slices.Clone(a.frames),
		loop:        a.loop,
		elapsed:     a.elapsed,
		index:       a.index,
		soundPlayed: slices.Clone(a.soundPlayed),
		finished:    a.finished,
	}
}

// Update advances the animation by delta and returns the ids of the sounds
// that became due, in frame order. The first frame's sound fires on the
// first call to Update.
func (a *Animation) Update(delta time.Duration) []string {
	if a.finished {
		return nil
	}
	var sounds []string
	sounds = a.fire(sounds)
	a.elapsed += delta
	for a.elapsed >= a.frames[a.index].Duration {
		a.elapsed -= a.frames[a.index].Duration
		a.index++
		if a.index == len(a.frames) {
			if !a.loop {
				a.index = len(a.frames) - 1
				a.elapsed = a.frames[a.index].Duration
				a.finished = true
				return sounds
			}
			a.index = 0
			clear(a.soundPlayed)
		}
		sounds = a.fire(sounds)
	}
	return sounds
}

func (a *Animation) fire(sounds []string) []string {
	if a.soundPlayed[a.index] {
		return sounds
	}
	a.soundPlayed[a.index] = true
	if id := a.frames[a.index].SoundID; id != "" {
		sounds = append(sounds, id)
	}
	return sounds
}

// IsFinished reports whether a non-looping animation has shown its last frame
// for its full duration.
func (a *Animation) IsFinished() bool { return a.finished }

// Current returns the frame currently on screen, or the zero Frame for an
// empty animation.
func (a *Animation) Current() Frame {
	if len(a.frames) == 0 {
		return Frame{}
	}
	return a.frames[a.index]
}

// Elapsed returns the time spent in the current frame.
func (a *Animation) Elapsed() time.Duration { return a.elapsed }

// Duration returns the length of one pass over all frames.
func (a *Animation) Duration() time.Duration {
	var d time.Duration
	for _, f := range a.frames {
		d += f.Duration
	}
	return d
}
