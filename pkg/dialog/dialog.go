// Package dialog defines the text-presentation capability the script
// interpreter drives for dialogue lines, notifications and evidence prompts.
//
// Text layout, pagination and glyph rendering happen behind [Dialog]. While a
// line is playing, the implementation reports everything that happens inside
// it (inline emotion changes, shakes, player input such as pressing or
// presenting evidence) as [Event] values delivered to a single handler.
package dialog

import (
	"time"

	"github.com/MrWong99/casescript/pkg/stage"
)

// Mode selects how a line is presented and which inputs it accepts.
type Mode int

const (
	// ModeNormal is an ordinary line of dialogue.
	ModeNormal Mode = iota

	// ModeInterrogation is a statement inside an interrogation or
	// confrontation. Navigation, pressing and presenting may be offered.
	ModeInterrogation

	// ModePresentEvidence prompts the player to present a piece of evidence.
	ModePresentEvidence

	// ModeNotification is a system notification such as "Evidence added".
	ModeNotification
)

// String returns the human-readable name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeInterrogation:
		return "interrogation"
	case ModePresentEvidence:
		return "present_evidence"
	case ModeNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Line describes one dialogue line handed to [Dialog.Begin].
type Line struct {
	// ContentID identifies the authored text for "already seen" tracking.
	ContentID string

	// SpeakerID is the character speaking, or "" for narration.
	SpeakerID string

	// Speaker is the slot of the speaking character.
	Speaker stage.Position

	// Text is the raw authored text including inline markup.
	Text string

	// Mode selects presentation and accepted input.
	Mode Mode

	// Automatic lines advance on their own after AutoDelay once printed.
	Automatic bool
	AutoDelay time.Duration

	// Seen is true when the player has read this line before.
	Seen bool

	// Input the line offers. Only meaningful for ModeInterrogation and
	// ModePresentEvidence.
	CanNavigateBack    bool
	CanNavigateForward bool
	CanPress           bool
	CanPresent         bool
	CanUsePartner      bool
	CanEnd             bool
}

// EventKind classifies an [Event].
type EventKind int

const (
	// EventEmotionChanged carries a new emotion id in Value for the character at Position.
	EventEmotionChanged EventKind = iota + 1

	// EventSpeakerChanged moves the speaker to Position.
	EventSpeakerChanged

	// EventShake shakes the screen for Duration.
	EventShake

	// EventZoom toggles the zoomed window; Flag is the new state.
	EventZoom

	// EventMouth opens (Flag true) or closes the speaker's mouth.
	EventMouth

	// EventBreakdownBegun starts the breakdown of the character at Position.
	EventBreakdownBegun

	// EventBreakdownEnded ends the breakdown of the character at Position.
	EventBreakdownEnded

	// EventEvidencePresented carries the presented evidence id in Value.
	EventEvidencePresented

	// EventPartnerUsed carries the partner id in Value.
	EventPartnerUsed

	// EventPressedForInfo is the player pressing a statement.
	EventPressedForInfo

	// EventEndRequested is the player asking to leave.
	EventEndRequested

	// EventNavigateBack and EventNavigateForward are direct navigation
	// between interrogation statements.
	EventNavigateBack
	EventNavigateForward

	// EventSoundRequested carries a sound id in Value.
	EventSoundRequested

	// EventPlayerDamaged and EventOpponentDamaged score a confrontation hit.
	EventPlayerDamaged
	EventOpponentDamaged
)

var eventNames = map[EventKind]string{
	EventEmotionChanged:    "emotion_changed",
	EventSpeakerChanged:    "speaker_changed",
	EventShake:             "shake",
	EventZoom:              "zoom",
	EventMouth:             "mouth",
	EventBreakdownBegun:    "breakdown_begun",
	EventBreakdownEnded:    "breakdown_ended",
	EventEvidencePresented: "evidence_presented",
	EventPartnerUsed:       "partner_used",
	EventPressedForInfo:    "pressed_for_info",
	EventEndRequested:      "end_requested",
	EventNavigateBack:      "navigate_back",
	EventNavigateForward:   "navigate_forward",
	EventSoundRequested:    "sound_requested",
	EventPlayerDamaged:     "player_damaged",
	EventOpponentDamaged:   "opponent_damaged",
}

// String returns the snake_case name of the event kind.
func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is a single notification from a playing line. Only the payload fields
// documented on its [EventKind] are meaningful.
type Event struct {
	Kind     EventKind
	Value    string
	Position stage.Position
	Flag     bool
	Duration time.Duration
}

// Handler receives the events of the line currently playing.
type Handler func(Event)

// Dialog presents one line at a time.
//
// Begin replaces any line in progress. Events raised while the line plays
// are delivered synchronously to the handler passed to Begin, from inside
// Update. Implementations are only called from the update goroutine.
type Dialog interface {
	// Begin starts presenting line and routes its events to h.
	Begin(line Line, h Handler)

	// Update advances text printing and input handling by delta.
	Update(delta time.Duration)

	// Draw renders the dialog box.
	Draw()

	// Finish completes the current line immediately.
	Finish()

	// Reset discards the current line without finishing it.
	Reset()

	// IsFinished reports whether the current line is done.
	IsFinished() bool

	// IsReadyToHide reports whether the dialog box has finished its
	// closing transition.
	IsReadyToHide() bool
}
