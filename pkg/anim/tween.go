package anim

import "time"

// Tween linearly interpolates between two values over a fixed duration.
type Tween struct {
	From     float64
	To       float64
	Duration time.Duration

	elapsed time.Duration
}

// NewTween returns a tween from a to b lasting d. A non-positive d produces a
// tween that is already done.
func NewTween(a, b float64, d time.Duration) Tween {
	return Tween{From: a, To: b, Duration: d}
}

// Update advances the tween by delta.
func (t *Tween) Update(delta time.Duration) {
	t.elapsed = min(t.elapsed+delta, max(t.Duration, 0))
}

// Finish jumps to the end value.
func (t *Tween) Finish() { t.elapsed = max(t.Duration, 0) }

// Done reports whether the tween has reached its end value.
func (t *Tween) Done() bool { return t.elapsed >= t.Duration }

// Value returns the current interpolated value.
func (t *Tween) Value() float64 {
	if t.Done() {
		return t.To
	}
	p := float64(t.elapsed) / float64(t.Duration)
	return t.From + (t.To-t.From)*p
}
