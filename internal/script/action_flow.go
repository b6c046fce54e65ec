package script

import (
	"github.com/MrWong99/casescript/internal/condition"
)

// Marker is a no-op that exists only as a named jump target for authoring
// tools: the begin/end pairs around branches, choices and repeat segments.
type Marker struct{ base }

// Execute implements [SingleAction].
func (m *Marker) Execute(*State) error { return nil }

// BranchOnCondition jumps to TrueIndex or FalseIndex depending on Condition.
type BranchOnCondition struct {
	base
	Condition  condition.Condition
	TrueIndex  int
	FalseIndex int
}

// Execute implements [SingleAction].
func (b *BranchOnCondition) Execute(s *State) error {
	v, err := b.Condition.Evaluate(s)
	if err != nil {
		return fault(b.index, err)
	}
	if v {
		s.SetNext(b.TrueIndex)
	} else {
		s.SetNext(b.FalseIndex)
	}
	return nil
}

// CheckPartner branches on the current partner in the same tick. A wrong
// partner on a Required check disqualifies the run from completing.
type CheckPartner struct {
	base
	PartnerID  string
	RightIndex int
	WrongIndex int
	Required   bool
}

// Execute implements [SingleAction].
func (c *CheckPartner) Execute(s *State) error {
	if s.CurrentPartner() == c.PartnerID {
		s.SetNext(c.RightIndex)
		return nil
	}
	if c.Required {
		s.wrongPartner = true
	}
	s.SetNext(c.WrongIndex)
	return nil
}

// Goto jumps unconditionally. ExitMultipleChoice and ExitInterrogationRepeat
// are authored as distinct tags but share this behavior.
type Goto struct {
	base
	Target int
}

// Execute implements [SingleAction].
func (g *Goto) Execute(s *State) error {
	s.SetNext(g.Target)
	return nil
}

// ReturnToCachedIndex ends a penalty branch by jumping back to the statement
// that started it.
type ReturnToCachedIndex struct{ base }

// Execute implements [SingleAction].
func (r *ReturnToCachedIndex) Execute(s *State) error {
	i, err := s.detours.pop(r.index)
	if err != nil {
		return err
	}
	s.SetNext(i)
	return nil
}
