package script

import (
	"fmt"
	"strconv"
	"time"

	"github.com/MrWong99/casescript/pkg/anim"
	"github.com/MrWong99/casescript/pkg/menu"
)

const (
	overlayFade   = 200 * time.Millisecond
	overlayDarken = 0.5
)

// ChoiceOption is one answer of a [MultipleChoice].
type ChoiceOption struct {
	Text string

	// Index is where execution continues when the option is chosen,
	// normally a BeginMultipleChoiceOption marker.
	Index int
}

type choicePhase int

const (
	choiceIdle choicePhase = iota
	choiceOpening
	choiceWaiting
	choiceClosing
	choiceFading
	choiceDone
)

// MultipleChoice shows a button menu over a darkened screen, waits for a
// click, fades the overlay out and branches to the chosen option.
type MultipleChoice struct {
	base
	Options []ChoiceOption

	menu   menu.ButtonArray
	phase  choicePhase
	chosen int
	fade   anim.Tween
}

func (m *MultipleChoice) optionKey(i int) string {
	return fmt.Sprintf("choice-%d-%d", m.index, i)
}

// Begin implements [ContinuousAction].
func (m *MultipleChoice) Begin(s *State) error {
	opts := make([]menu.Option, len(m.Options))
	for i, o := range m.Options {
		opts[i] = menu.Option{ID: strconv.Itoa(i), Text: o.Text, Visited: s.list.Seen(m.optionKey(i))}
	}
	m.menu = s.env.Menu
	m.menu.Load(opts)
	m.menu.OnClick(func(id string) {
		i, err := strconv.Atoi(id)
		if err != nil || i < 0 || i >= len(m.Options) || m.phase > choiceWaiting {
			return
		}
		m.chosen = i
	})
	m.menu.Show()
	m.phase = choiceOpening
	m.fade = anim.NewTween(s.overlay, overlayDarken, overlayFade)
	return nil
}

// Update implements [ContinuousAction].
func (m *MultipleChoice) Update(s *State, delta time.Duration) error {
	m.menu.Update(delta)

	switch m.phase {
	case choiceOpening, choiceFading:
		m.fade.Update(delta)
		s.overlay = m.fade.Value()
	}

	switch m.phase {
	case choiceOpening:
		if m.fade.Done() {
			m.phase = choiceWaiting
		}
		if m.chosen >= 0 {
			m.close()
		}
	case choiceWaiting:
		if m.chosen >= 0 {
			m.close()
		}
	case choiceClosing:
		if m.menu.IsClosed() {
			m.phase = choiceFading
			m.fade = anim.NewTween(s.overlay, 0, overlayFade)
		}
	case choiceFading:
		if m.fade.Done() {
			s.overlay = 0
			s.list.MarkSeen(m.optionKey(m.chosen))
			s.SetNext(m.Options[m.chosen].Index)
			m.phase = choiceDone
		}
	}
	return nil
}

func (m *MultipleChoice) close() {
	m.menu.Close()
	m.phase = choiceClosing
}

// Draw implements [ContinuousAction].
func (m *MultipleChoice) Draw(*State) {
	if m.menu != nil && m.phase < choiceFading {
		m.menu.Draw()
	}
}

// IsFinished implements [ContinuousAction].
func (m *MultipleChoice) IsFinished() bool { return m.phase == choiceDone }

// IsReadyToHide implements [ContinuousAction].
func (m *MultipleChoice) IsReadyToHide() bool { return true }

// ShouldSkip implements [ContinuousAction]. A choice always waits for the player.
func (m *MultipleChoice) ShouldSkip(*State) bool { return false }

// GoToNext implements [ContinuousAction].
func (m *MultipleChoice) GoToNext(*State) {}

// Reset implements [ContinuousAction].
func (m *MultipleChoice) Reset() {
	m.menu = nil
	m.phase = choiceIdle
	m.chosen = -1
	m.fade = anim.Tween{}
}
