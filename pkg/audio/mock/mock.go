// Package mock provides an in-memory mock implementation of [audio.Player]
// for use in unit tests.
//
// The mock tracks the current track per channel the way a real player would
// and records every call so tests can assert on ordering.
//
// Typical usage:
//
//	p := mock.NewPlayer()
//	p.Play(audio.Music, "trial")
//	// ... run the script ...
//	if got := p.Current(audio.Music); got != "investigation" { ... }
package mock

import (
	"fmt"
	"sync"

	"github.com/MrWong99/casescript/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Player = (*Player)(nil)

// Player is a mock implementation of [audio.Player].
type Player struct {
	mu sync.Mutex

	current map[audio.Channel]string
	paused  map[audio.Channel]bool

	// Calls records every call as a short string such as "play music trial"
	// or "stop ambiance instant".
	Calls []string

	// Sounds records every id passed to PlaySound.
	Sounds []string
}

// NewPlayer returns a Player with nothing playing.
func NewPlayer() *Player {
	return &Player{
		current: make(map[audio.Channel]string),
		paused:  make(map[audio.Channel]bool),
	}
}

func (p *Player) init() {
	if p.current == nil {
		p.current = make(map[audio.Channel]string)
		p.paused = make(map[audio.Channel]bool)
	}
}

// Play implements [audio.Player].
func (p *Player) Play(ch audio.Channel, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	p.current[ch] = id
	p.paused[ch] = false
	p.Calls = append(p.Calls, fmt.Sprintf("play %s %s", ch, id))
}

// Pause implements [audio.Player].
func (p *Player) Pause(ch audio.Channel, instant bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	p.paused[ch] = true
	p.Calls = append(p.Calls, fmt.Sprintf("pause %s%s", ch, suffix(instant)))
}

// Resume implements [audio.Player].
func (p *Player) Resume(ch audio.Channel, instant bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	p.paused[ch] = false
	p.Calls = append(p.Calls, fmt.Sprintf("resume %s%s", ch, suffix(instant)))
}

// Stop implements [audio.Player].
func (p *Player) Stop(ch audio.Channel, instant bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	delete(p.current, ch)
	delete(p.paused, ch)
	p.Calls = append(p.Calls, fmt.Sprintf("stop %s%s", ch, suffix(instant)))
}

// Current implements [audio.Player].
func (p *Player) Current(ch audio.Channel) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current[ch]
}

// PlaySound implements [audio.Player].
func (p *Player) PlaySound(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Sounds = append(p.Sounds, id)
}

// IsPaused reports whether ch is paused.
func (p *Player) IsPaused(ch audio.Channel) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused[ch]
}

func suffix(instant bool) string {
	if instant {
		return " instant"
	}
	return ""
}
