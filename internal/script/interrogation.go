package script

import (
	"time"

	"github.com/MrWong99/casescript/pkg/dialog"
)

// Interrogation is a conversation whose statements the player can press,
// present evidence to, use a partner on and navigate between. Repeatable
// segments restore their display state on every pass so a loop looks the
// same regardless of the detours taken in between.
type Interrogation struct {
	Conversation
}

// NewInterrogation returns an enabled interrogation over list.
func NewInterrogation(id, name string, list *ActionList) *Interrogation {
	i := &Interrogation{Conversation: *NewConversation(id, name, list)}
	i.kind = KindInterrogation
	i.ext = i
	return i
}

func (i *Interrogation) begin(*State) {}

// BeginInterrogationRepeat opens a repeatable segment. The first entry in a
// run snapshots the display state; every later entry restores it.
type BeginInterrogationRepeat struct{ base }

// Execute implements [SingleAction].
func (b *BeginInterrogationRepeat) Execute(s *State) error {
	if snap, ok := s.repeats[b.index]; ok {
		s.Restore(snap)
		return nil
	}
	s.repeats[b.index] = s.Snapshot()
	return nil
}

// ShowInterrogation is one statement of an interrogation. It waits for the
// player to move on, press, present evidence, use the partner or leave, and
// branches accordingly. Wrong evidence and wrong partners push the
// statement onto the detour stack before taking the penalty branch, so that
// a ReturnToCachedIndex at the end of the branch comes back here.
type ShowInterrogation struct {
	ShowDialog

	NextIndex          int
	FinishIndex        int
	PreviousIndex      int
	PressIndex         int
	EvidenceIndices    map[string]int
	PartnerIndices     map[string]int
	WrongEvidenceIndex int
	WrongPartnerIndex  int
	EndRequestedIndex  int
	InterjectionID     string

	decided bool
	err     error
}

// Begin implements [ContinuousAction].
func (q *ShowInterrogation) Begin(s *State) error {
	line := q.line(s)
	line.Mode = dialog.ModeInterrogation
	line.CanNavigateBack = q.PreviousIndex != noTarget
	line.CanNavigateForward = true
	line.CanPress = q.PressIndex != noTarget
	line.CanPresent = len(q.EvidenceIndices) > 0 || q.WrongEvidenceIndex != noTarget
	line.CanUsePartner = len(q.PartnerIndices) > 0 || q.WrongPartnerIndex != noTarget
	line.CanEnd = q.EndRequestedIndex != noTarget

	q.start(s, line, func(ev dialog.Event) {
		if q.decided || q.err != nil || s.handleDialogEvent(ev) {
			return
		}
		q.react(s, ev)
	})
	return nil
}

func (q *ShowInterrogation) react(s *State, ev dialog.Event) {
	switch ev.Kind {
	case dialog.EventNavigateForward:
		q.forward(s)

	case dialog.EventNavigateBack:
		if q.PreviousIndex == noTarget {
			q.err = faultf(q.index, "navigate back from a statement with no previous statement")
			return
		}
		q.decide(s, q.PreviousIndex)

	case dialog.EventPressedForInfo:
		if q.PressIndex != noTarget {
			q.decide(s, q.PressIndex)
		}

	case dialog.EventEvidencePresented:
		if t, ok := q.EvidenceIndices[ev.Value]; ok {
			s.scheduleInterjection(q.InterjectionID)
			q.decide(s, t)
		} else if q.WrongEvidenceIndex != noTarget {
			q.penalty(s, q.WrongEvidenceIndex)
		}

	case dialog.EventPartnerUsed:
		if t, ok := q.PartnerIndices[ev.Value]; ok {
			s.scheduleInterjection(q.InterjectionID)
			q.decide(s, t)
		} else if q.WrongPartnerIndex != noTarget {
			q.penalty(s, q.WrongPartnerIndex)
		}

	case dialog.EventEndRequested:
		if q.EndRequestedIndex != noTarget {
			q.decide(s, q.EndRequestedIndex)
		}
	}
}

func (q *ShowInterrogation) forward(s *State) {
	if q.NextIndex != noTarget {
		q.decide(s, q.NextIndex)
		return
	}
	q.decide(s, q.FinishIndex)
}

func (q *ShowInterrogation) penalty(s *State, target int) {
	if err := s.detours.push(q.index, q.index); err != nil {
		q.err = err
		return
	}
	s.scheduleInterjection(q.InterjectionID)
	q.decide(s, target)
}

func (q *ShowInterrogation) decide(s *State, target int) {
	s.SetNext(target)
	s.list.MarkSeen(q.ContentID)
	s.mouthOpen = false
	q.decided = true
	q.dlg.Finish()
}

// Update implements [ContinuousAction]. A line that finishes without any
// other input moves on to the next statement.
func (q *ShowInterrogation) Update(s *State, delta time.Duration) error {
	if q.err != nil {
		return q.err
	}
	if q.decided {
		return nil
	}
	q.dlg.Update(delta)
	if q.err != nil {
		return q.err
	}
	if !q.decided && q.dlg.IsFinished() {
		q.forward(s)
	}
	return nil
}

// IsFinished implements [ContinuousAction].
func (q *ShowInterrogation) IsFinished() bool { return q.decided }

// ShouldSkip implements [ContinuousAction]. Statements always wait for input.
func (q *ShowInterrogation) ShouldSkip(*State) bool { return false }

// GoToNext implements [ContinuousAction].
func (q *ShowInterrogation) GoToNext(*State) {}

// Reset implements [ContinuousAction].
func (q *ShowInterrogation) Reset() {
	q.ShowDialog.Reset()
	q.decided = false
	q.err = nil
}

// linkStatements fills in the previous statement of every ShowInterrogation
// that does not name one: the statement before it within the same repeat
// segment.
func linkStatements(l *ActionList) {
	prev := noTarget
	for i, a := range l.actions {
		switch a := a.(type) {
		case *BeginInterrogationRepeat:
			prev = noTarget
		case *Marker:
			if a.tag == "EndInterrogationRepeat" {
				prev = noTarget
			}
		case *ShowInterrogation:
			if a.PreviousIndex == noTarget {
				a.PreviousIndex = prev
			}
			prev = i
		}
	}
}
