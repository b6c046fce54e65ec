// Package casefile defines the case-level state the script interpreter reads
// and mutates: story flags, the evidence court record, the current partner
// and unlocked cutscenes.
//
// The interfaces are deliberately narrow so that embedders can back them by
// their own save system. [MemStore] implements all of them in memory and is
// what tests and the headless player use.
package casefile

// Flags is the set of story flags raised by scripts.
type Flags interface {
	IsFlagSet(id string) bool
	SetFlag(id string)
	ClearFlag(id string)
}

// Evidence is the player's court record.
type Evidence interface {
	// IsEvidenceEnabled reports whether id is currently in the record.
	IsEvidenceEnabled(id string) bool
	EnableEvidence(id string)
	DisableEvidence(id string)

	// HasAnyEvidence reports whether the record holds at least one item.
	HasAnyEvidence() bool
}

// Partners tracks which partner accompanies the player. The empty id means
// no partner.
type Partners interface {
	CurrentPartner() string
	SetCurrentPartner(id string)
}

// Cutscenes tracks which cutscenes have been unlocked for replay.
type Cutscenes interface {
	IsCutsceneEnabled(id string) bool
	EnableCutscene(id string)
}

// Checkpointer saves and restores the whole case state. It backs the
// "undo to the last checkpoint" restart of confrontations.
type Checkpointer interface {
	// Checkpoint replaces any previous checkpoint with the current state.
	Checkpoint()

	// Restore reverts to the last checkpoint. It reports false when no
	// checkpoint exists.
	Restore() bool
}
