package script

import (
	"slices"
	"time"

	"github.com/MrWong99/casescript/pkg/dialog"
)

// ShowDialog presents one line of dialogue and relays the events raised
// while it plays into the run state. ShowDialogAutomatic is the same action
// with Automatic set.
type ShowDialog struct {
	base
	SpeakerID string
	ContentID string
	Text      string
	Automatic bool
	AutoDelay time.Duration

	mode dialog.Mode
	dlg  dialog.Dialog
}

func (d *ShowDialog) line(s *State) dialog.Line {
	return dialog.Line{
		ContentID: d.ContentID,
		SpeakerID: d.SpeakerID,
		Speaker:   s.speaker,
		Text:      d.Text,
		Mode:      d.mode,
		Automatic: d.Automatic,
		AutoDelay: d.AutoDelay,
		Seen:      s.list.Seen(d.ContentID),
	}
}

// start points the speaker at SpeakerID and hands line to the dialog.
func (d *ShowDialog) start(s *State, line dialog.Line, h dialog.Handler) {
	if d.SpeakerID != "" {
		s.speaker = s.positionOf(d.SpeakerID)
		line.Speaker = s.speaker
	}
	d.dlg = s.env.Dialog
	d.dlg.Begin(line, h)
}

// Begin implements [ContinuousAction].
func (d *ShowDialog) Begin(s *State) error {
	d.start(s, d.line(s), func(ev dialog.Event) {
		if s.handleDialogEvent(ev) {
			return
		}
		if ev.Kind == dialog.EventEndRequested {
			s.RequestEnd()
			d.dlg.Finish()
		}
	})
	return nil
}

// Update implements [ContinuousAction].
func (d *ShowDialog) Update(s *State, delta time.Duration) error {
	d.dlg.Update(delta)
	if d.dlg.IsFinished() {
		s.mouthOpen = false
		s.list.MarkSeen(d.ContentID)
	}
	return nil
}

// Draw implements [ContinuousAction].
func (d *ShowDialog) Draw(s *State) { s.env.Dialog.Draw() }

// IsFinished implements [ContinuousAction].
func (d *ShowDialog) IsFinished() bool { return d.dlg != nil && d.dlg.IsFinished() }

// IsReadyToHide implements [ContinuousAction].
func (d *ShowDialog) IsReadyToHide() bool { return d.dlg == nil || d.dlg.IsReadyToHide() }

// ShouldSkip implements [ContinuousAction]. Only lines the player has read
// before are skipped.
func (d *ShowDialog) ShouldSkip(s *State) bool { return s.list.Seen(d.ContentID) }

// GoToNext implements [ContinuousAction].
func (d *ShowDialog) GoToNext(s *State) {
	if d.SpeakerID != "" {
		s.speaker = s.positionOf(d.SpeakerID)
	}
	s.mouthOpen = false
}

// Reset implements [ContinuousAction].
func (d *ShowDialog) Reset() { d.dlg = nil }

// Notification announces a change in case state, such as new evidence. It
// is always skippable.
type Notification struct{ ShowDialog }

// ShouldSkip implements [ContinuousAction].
func (n *Notification) ShouldSkip(*State) bool { return true }

// MustPresentEvidence prompts the player for evidence and branches on the
// answer. Either answer schedules an interjection first. With an empty
// court record it branches to EndRequestedIndex without prompting.
type MustPresentEvidence struct {
	ShowDialog
	CorrectIDs        []string
	CorrectIndex      int
	WrongIndex        int
	EndRequestedIndex int
	InterjectionID    string

	decided bool
}

// Begin implements [ContinuousAction].
func (m *MustPresentEvidence) Begin(s *State) error {
	if !s.env.Evidence.HasAnyEvidence() {
		s.SetNext(m.EndRequestedIndex)
		m.decided = true
		return nil
	}

	line := m.line(s)
	line.Mode = dialog.ModePresentEvidence
	line.CanPresent = true
	line.CanEnd = true
	m.start(s, line, func(ev dialog.Event) {
		if m.decided || s.handleDialogEvent(ev) {
			return
		}
		switch ev.Kind {
		case dialog.EventEvidencePresented:
			s.scheduleInterjection(m.InterjectionID)
			if slices.Contains(m.CorrectIDs, ev.Value) {
				m.decide(s, m.CorrectIndex)
			} else {
				m.decide(s, m.WrongIndex)
			}
		case dialog.EventEndRequested:
			m.decide(s, m.EndRequestedIndex)
		}
	})
	return nil
}

func (m *MustPresentEvidence) decide(s *State, target int) {
	s.SetNext(target)
	s.list.MarkSeen(m.ContentID)
	m.decided = true
	m.dlg.Finish()
}

// Update implements [ContinuousAction].
func (m *MustPresentEvidence) Update(_ *State, delta time.Duration) error {
	if !m.decided {
		m.dlg.Update(delta)
	}
	return nil
}

// IsFinished implements [ContinuousAction].
func (m *MustPresentEvidence) IsFinished() bool { return m.decided }

// ShouldSkip implements [ContinuousAction]. The prompt needs an answer.
func (m *MustPresentEvidence) ShouldSkip(*State) bool { return false }

// GoToNext implements [ContinuousAction].
func (m *MustPresentEvidence) GoToNext(*State) {}

// Reset implements [ContinuousAction].
func (m *MustPresentEvidence) Reset() {
	m.ShowDialog.Reset()
	m.decided = false
}
