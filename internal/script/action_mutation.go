package script

// Mutations change case state at most once. When the change is already in
// effect and the next action is a Notification announcing it, the
// notification is skipped so the player is not told something already true.

// SetFlag raises a story flag.
type SetFlag struct {
	base
	Flag string
}

// Execute implements [SingleAction].
func (a *SetFlag) Execute(s *State) error {
	applied := s.env.Flags.IsFlagSet(a.Flag)
	if !applied {
		s.env.Flags.SetFlag(a.Flag)
	}
	s.skipNotificationIfApplied(applied)
	return nil
}

// ClearFlag lowers a story flag.
type ClearFlag struct {
	base
	Flag string
}

// Execute implements [SingleAction].
func (a *ClearFlag) Execute(s *State) error {
	applied := !s.env.Flags.IsFlagSet(a.Flag)
	if !applied {
		s.env.Flags.ClearFlag(a.Flag)
	}
	s.skipNotificationIfApplied(applied)
	return nil
}

// EnableEvidence adds an item to the court record.
type EnableEvidence struct {
	base
	Evidence string
}

// Execute implements [SingleAction].
func (a *EnableEvidence) Execute(s *State) error {
	applied := s.env.Evidence.IsEvidenceEnabled(a.Evidence)
	if !applied {
		s.env.Evidence.EnableEvidence(a.Evidence)
	}
	s.skipNotificationIfApplied(applied)
	return nil
}

// DisableEvidence removes an item from the court record.
type DisableEvidence struct {
	base
	Evidence string
}

// Execute implements [SingleAction].
func (a *DisableEvidence) Execute(s *State) error {
	applied := !s.env.Evidence.IsEvidenceEnabled(a.Evidence)
	if !applied {
		s.env.Evidence.DisableEvidence(a.Evidence)
	}
	s.skipNotificationIfApplied(applied)
	return nil
}

// UpdateEvidence replaces one item of the court record with its updated
// version.
type UpdateEvidence struct {
	base
	From string
	To   string
}

// Execute implements [SingleAction].
func (a *UpdateEvidence) Execute(s *State) error {
	ev := s.env.Evidence
	applied := ev.IsEvidenceEnabled(a.To) && !ev.IsEvidenceEnabled(a.From)
	if !applied {
		ev.DisableEvidence(a.From)
		ev.EnableEvidence(a.To)
	}
	s.skipNotificationIfApplied(applied)
	return nil
}

// EnableConversation makes another conversation of the case available.
type EnableConversation struct {
	base
	ConversationID string
}

// Execute implements [SingleAction].
func (a *EnableConversation) Execute(s *State) error {
	target, err := lookupConversation(s, a.index, a.ConversationID)
	if err != nil {
		return err
	}
	applied := target.IsEnabled()
	if !applied {
		target.SetEnabled(true)
	}
	s.skipNotificationIfApplied(applied)
	return nil
}

// LockConversation gates another conversation behind unlock conditions.
type LockConversation struct {
	base
	ConversationID string
	Conditions     []UnlockCondition
}

// Execute implements [SingleAction].
func (a *LockConversation) Execute(s *State) error {
	target, err := lookupConversation(s, a.index, a.ConversationID)
	if err != nil {
		return err
	}
	added := false
	for _, u := range a.Conditions {
		if target.AddUnlockCondition(u) {
			added = true
		}
	}
	s.skipNotificationIfApplied(!added)
	return nil
}

// EnableCutscene unlocks a cutscene for replay.
type EnableCutscene struct {
	base
	CutsceneID string
}

// Execute implements [SingleAction].
func (a *EnableCutscene) Execute(s *State) error {
	cs := s.env.Cutscenes
	if cs == nil {
		return faultf(a.index, "enable cutscene %q without a cutscene store", a.CutsceneID)
	}
	applied := cs.IsCutsceneEnabled(a.CutsceneID)
	if !applied {
		cs.EnableCutscene(a.CutsceneID)
	}
	s.skipNotificationIfApplied(applied)
	return nil
}

// SetPartner makes PartnerID the current partner.
type SetPartner struct {
	base
	PartnerID string
}

// Execute implements [SingleAction].
func (a *SetPartner) Execute(s *State) error {
	applied := s.CurrentPartner() == a.PartnerID
	if !applied {
		s.env.Partners.SetCurrentPartner(a.PartnerID)
	}
	s.skipNotificationIfApplied(applied)
	return nil
}

// ClearPartner dismisses the current partner.
type ClearPartner struct{ base }

// Execute implements [SingleAction].
func (a *ClearPartner) Execute(s *State) error {
	applied := s.CurrentPartner() == ""
	if !applied {
		s.env.Partners.SetCurrentPartner("")
	}
	s.skipNotificationIfApplied(applied)
	return nil
}

// EnableTopic makes a confrontation topic selectable.
type EnableTopic struct {
	base
	TopicID string
}

// Execute implements [SingleAction].
func (a *EnableTopic) Execute(s *State) error {
	if s.confrontation == nil {
		return faultf(a.index, "enable topic %q outside a confrontation", a.TopicID)
	}
	t, ok := s.confrontation.topics.Get(a.TopicID)
	if !ok {
		return faultf(a.index, "unknown topic %q", a.TopicID)
	}
	applied := t.Enabled
	if !applied {
		s.confrontation.topics.SetEnabled(a.TopicID, true)
	}
	s.skipNotificationIfApplied(applied)
	return nil
}

// SetFastForward allows or forbids skipping for the rest of the run. It is
// authored as EnableFastForward or DisableFastForward.
type SetFastForward struct {
	base
	Enabled bool
}

// Execute implements [SingleAction].
func (a *SetFastForward) Execute(s *State) error {
	applied := s.fastForward == a.Enabled
	s.fastForward = a.Enabled
	s.skipNotificationIfApplied(applied)
	return nil
}

func lookupConversation(s *State, index int, id string) (*Conversation, error) {
	if s.env.Conversations == nil {
		return nil, faultf(index, "conversation %q referenced without a conversation source", id)
	}
	c, ok := s.env.Conversations.Conversation(id)
	if !ok {
		return nil, faultf(index, "unknown conversation %q", id)
	}
	return c, nil
}
