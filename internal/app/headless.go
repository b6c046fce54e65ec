package app

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/MrWong99/casescript/pkg/audio"
	"github.com/MrWong99/casescript/pkg/dialog"
	"github.com/MrWong99/casescript/pkg/menu"
	"github.com/MrWong99/casescript/pkg/stage"
)

// Headless collaborators. They stand in for the renderer, the mixer and the
// player so a case can be played without a screen: lines are written to a
// transcript and prompts are answered automatically.

// Compile-time interface assertions.
var (
	_ dialog.Dialog     = (*autoDialog)(nil)
	_ menu.ButtonArray  = (*autoMenu)(nil)
	_ audio.Player      = (*logAudio)(nil)
	_ stage.Stage       = (*logStage)(nil)
	_ stage.SceneDriver = (*logScene)(nil)
)

// autoDialog prints every line and finishes it on the following update.
//
// With autoplay enabled it also plays the part of the player: evidence
// prompts are answered with the first piece of evidence not yet tried for
// that line, and interrogation statements that were already heard are
// challenged with evidence until every piece has been tried. Without
// autoplay, evidence prompts are declined and statements move on.
type autoDialog struct {
	out      io.Writer
	autoplay bool
	evidence func() []string

	line     dialog.Line
	h        dialog.Handler
	active   bool
	finished bool

	// tried holds the evidence already presented per content id.
	tried map[string][]string
	lines int
}

func newAutoDialog(out io.Writer, autoplay bool, evidence func() []string) *autoDialog {
	if out == nil {
		out = io.Discard
	}
	return &autoDialog{
		out:      out,
		autoplay: autoplay,
		evidence: evidence,
		tried:    make(map[string][]string),
	}
}

// Begin implements [dialog.Dialog].
func (d *autoDialog) Begin(line dialog.Line, h dialog.Handler) {
	d.line = line
	d.h = h
	d.active = true
	d.finished = false
	d.lines++

	speaker := line.SpeakerID
	if speaker == "" {
		speaker = "-"
	}
	switch line.Mode {
	case dialog.ModeNormal:
		fmt.Fprintf(d.out, "%s: %s\n", speaker, line.Text)
	default:
		fmt.Fprintf(d.out, "[%s] %s: %s\n", line.Mode, speaker, line.Text)
	}
}

// Update implements [dialog.Dialog].
func (d *autoDialog) Update(time.Duration) {
	if !d.active || d.finished {
		return
	}
	if ev, ok := d.answer(); ok {
		fmt.Fprintf(d.out, "  > %s %s\n", ev.Kind, ev.Value)
		if d.h != nil {
			d.h(ev)
		}
	}
	d.finished = true
}

// answer picks the player's reaction to the current line.
func (d *autoDialog) answer() (dialog.Event, bool) {
	line := d.line
	switch line.Mode {
	case dialog.ModePresentEvidence:
		if d.autoplay {
			if id, ok := d.nextEvidence(line.ContentID); ok {
				return dialog.Event{Kind: dialog.EventEvidencePresented, Value: id}, true
			}
		}
		return dialog.Event{Kind: dialog.EventEndRequested}, true

	case dialog.ModeInterrogation:
		if !d.autoplay || !line.Seen {
			return dialog.Event{}, false
		}
		if line.CanPresent {
			if id, ok := d.nextEvidence(line.ContentID); ok {
				return dialog.Event{Kind: dialog.EventEvidencePresented, Value: id}, true
			}
		}
		if line.CanEnd {
			return dialog.Event{Kind: dialog.EventEndRequested}, true
		}
	}
	return dialog.Event{}, false
}

// nextEvidence returns the first enabled evidence id not yet presented on
// the line contentID and records it as tried.
func (d *autoDialog) nextEvidence(contentID string) (string, bool) {
	if d.evidence == nil {
		return "", false
	}
	tried := d.tried[contentID]
	for _, id := range d.evidence() {
		if !slices.Contains(tried, id) {
			d.tried[contentID] = append(tried, id)
			return id, true
		}
	}
	return "", false
}

// Draw implements [dialog.Dialog].
func (d *autoDialog) Draw() {}

// Finish implements [dialog.Dialog].
func (d *autoDialog) Finish() { d.finished = true }

// Reset implements [dialog.Dialog].
func (d *autoDialog) Reset() {
	d.active = false
	d.finished = false
	d.h = nil
}

// IsFinished implements [dialog.Dialog].
func (d *autoDialog) IsFinished() bool { return d.finished }

// IsReadyToHide implements [dialog.Dialog].
func (d *autoDialog) IsReadyToHide() bool { return true }

// autoMenu clicks an option on the update after it is shown. Options the
// player has not visited yet are preferred.
type autoMenu struct {
	out     io.Writer
	opts    []menu.Option
	onClick func(id string)
	open    bool
	clicked bool
}

func newAutoMenu(out io.Writer) *autoMenu {
	if out == nil {
		out = io.Discard
	}
	return &autoMenu{out: out}
}

// Load implements [menu.ButtonArray].
func (m *autoMenu) Load(opts []menu.Option) { m.opts = slices.Clone(opts) }

// OnClick implements [menu.ButtonArray].
func (m *autoMenu) OnClick(fn func(id string)) { m.onClick = fn }

// Show implements [menu.ButtonArray].
func (m *autoMenu) Show() {
	m.open = true
	m.clicked = false
}

// Close implements [menu.ButtonArray].
func (m *autoMenu) Close() { m.open = false }

// IsClosed implements [menu.ButtonArray].
func (m *autoMenu) IsClosed() bool { return !m.open }

// Update implements [menu.ButtonArray].
func (m *autoMenu) Update(time.Duration) {
	if !m.open || m.clicked || len(m.opts) == 0 {
		return
	}
	choice := m.opts[0]
	for _, o := range m.opts {
		if !o.Visited {
			choice = o
			break
		}
	}
	m.clicked = true
	fmt.Fprintf(m.out, "  * %s\n", choice.Text)
	if m.onClick != nil {
		m.onClick(choice.ID)
	}
}

// Draw implements [menu.ButtonArray].
func (m *autoMenu) Draw() {}

// logAudio remembers the current track per channel and logs every change.
type logAudio struct {
	current map[audio.Channel]string
	paused  map[audio.Channel]bool
}

func newLogAudio() *logAudio {
	return &logAudio{
		current: make(map[audio.Channel]string),
		paused:  make(map[audio.Channel]bool),
	}
}

// Play implements [audio.Player].
func (p *logAudio) Play(ch audio.Channel, id string) {
	p.current[ch] = id
	p.paused[ch] = false
	slog.Debug("audio: play", "channel", ch, "id", id)
}

// Pause implements [audio.Player].
func (p *logAudio) Pause(ch audio.Channel, instant bool) {
	p.paused[ch] = true
	slog.Debug("audio: pause", "channel", ch, "instant", instant)
}

// Resume implements [audio.Player].
func (p *logAudio) Resume(ch audio.Channel, instant bool) {
	p.paused[ch] = false
	slog.Debug("audio: resume", "channel", ch, "instant", instant)
}

// Stop implements [audio.Player].
func (p *logAudio) Stop(ch audio.Channel, instant bool) {
	delete(p.current, ch)
	delete(p.paused, ch)
	slog.Debug("audio: stop", "channel", ch, "instant", instant)
}

// Current implements [audio.Player].
func (p *logAudio) Current(ch audio.Channel) string { return p.current[ch] }

// PlaySound implements [audio.Player].
func (p *logAudio) PlaySound(id string) { slog.Debug("audio: sound", "id", id) }

// logStage logs staging requests. Breakdown transitions complete at once.
type logStage struct {
	frames int
}

// BeginBreakdown implements [stage.Stage].
func (s *logStage) BeginBreakdown(pos stage.Position) {
	slog.Debug("stage: breakdown begun", "position", pos)
}

// EndBreakdown implements [stage.Stage].
func (s *logStage) EndBreakdown(pos stage.Position) {
	slog.Debug("stage: breakdown ended", "position", pos)
}

// BreakdownTransitionComplete implements [stage.Stage].
func (s *logStage) BreakdownTransitionComplete() bool { return true }

// StartAnimation implements [stage.Stage].
func (s *logStage) StartAnimation(id string) { slog.Debug("stage: animation started", "id", id) }

// StopAnimation implements [stage.Stage].
func (s *logStage) StopAnimation(id string) { slog.Debug("stage: animation stopped", "id", id) }

// Draw implements [stage.Stage].
func (s *logStage) Draw(stage.Frame) { s.frames++ }

// DrawSprite implements [stage.Stage].
func (s *logStage) DrawSprite(string) {}

// logScene records the transitions requested by finished runs.
type logScene struct {
	out         io.Writer
	transitions []stage.Transition
}

// Transition implements [stage.SceneDriver].
func (s *logScene) Transition(t stage.Transition) {
	s.transitions = append(s.transitions, t)
	if s.out != nil {
		fmt.Fprintf(s.out, "=> %s %s\n", t.Kind, t.Target)
	}
}

// last returns the most recent transition, if any.
func (s *logScene) last() (stage.Transition, bool) {
	if len(s.transitions) == 0 {
		return stage.Transition{}, false
	}
	return s.transitions[len(s.transitions)-1], true
}

// skipInput reports the fast-forward control as held while the flag is set.
// The flag may be flipped from any goroutine through [App.HoldSkip].
type skipInput struct {
	held atomic.Bool
}

// FastForwardHeld implements [script.Input].
func (i *skipInput) FastForwardHeld() bool { return i.held.Load() }
