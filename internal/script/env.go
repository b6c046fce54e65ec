package script

import (
	"errors"

	"github.com/MrWong99/casescript/internal/observe"
	"github.com/MrWong99/casescript/pkg/anim"
	"github.com/MrWong99/casescript/pkg/audio"
	"github.com/MrWong99/casescript/pkg/casefile"
	"github.com/MrWong99/casescript/pkg/dialog"
	"github.com/MrWong99/casescript/pkg/menu"
	"github.com/MrWong99/casescript/pkg/stage"
)

// DefaultMaxSteps is the number of actions a single Update may run before
// the run is aborted as a runaway loop.
const DefaultMaxSteps = 10000

// ConversationSource looks up conversations of the loaded case by id. It is
// used by actions that enable or lock other conversations.
type ConversationSource interface {
	Conversation(id string) (*Conversation, bool)
}

// InterjectionSource provides the short forced animations played after
// evidence or partner use. Implementations must return an animation the
// caller may advance freely, typically a clone of a shared template.
type InterjectionSource interface {
	Interjection(id string) (*anim.Animation, bool)
}

// Interjections is a map-backed [InterjectionSource] that clones its
// templates on every lookup.
type Interjections map[string]*anim.Animation

// Interjection implements [InterjectionSource].
func (m Interjections) Interjection(id string) (*anim.Animation, bool) {
	a, ok := m[id]
	if !ok || a == nil {
		return nil, false
	}
	return a.Clone(), true
}

// Input reports player input the interpreter polls on its own.
type Input interface {
	// FastForwardHeld reports whether the skip control is held this frame.
	FastForwardHeld() bool
}

// Env bundles the collaborators a conversation run consumes. Fields marked
// required must be set before [Conversation.Begin]; the rest may be nil, in
// which case the actions that need them report an authoring error.
type Env struct {
	Flags    casefile.Flags    // required
	Evidence casefile.Evidence // required
	Partners casefile.Partners // required
	Audio    audio.Player      // required
	Stage    stage.Stage       // required
	Dialog   dialog.Dialog     // required
	Menu     menu.ButtonArray  // required

	Cutscenes     casefile.Cutscenes
	Checkpoints   casefile.Checkpointer
	Conversations ConversationSource
	Scene         stage.SceneDriver
	Interjections InterjectionSource
	Input         Input

	// FastForward is whether skipping is allowed when a run begins. Scripts
	// toggle it with EnableFastForward and DisableFastForward.
	FastForward bool

	// DetourDepth bounds the interrogation detour stack. Zero means 1.
	DetourDepth int

	// MaxSteps bounds the actions run within one Update. Zero means
	// [DefaultMaxSteps].
	MaxSteps int

	// Metrics receives interpreter metrics. Nil means [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

func (e *Env) validate() error {
	if e == nil {
		return errors.New("script: nil env")
	}
	var errs []error
	check := func(ok bool, name string) {
		if !ok {
			errs = append(errs, errors.New("script: env: "+name+" is required"))
		}
	}
	check(e.Flags != nil, "flags")
	check(e.Evidence != nil, "evidence")
	check(e.Partners != nil, "partners")
	check(e.Audio != nil, "audio")
	check(e.Stage != nil, "stage")
	check(e.Dialog != nil, "dialog")
	check(e.Menu != nil, "menu")
	if e.DetourDepth < 0 {
		errs = append(errs, errors.New("script: env: detour depth must be >= 0"))
	}
	if e.MaxSteps < 0 {
		errs = append(errs, errors.New("script: env: max steps must be >= 0"))
	}
	return errors.Join(errs...)
}

func (e *Env) maxSteps() int {
	if e.MaxSteps > 0 {
		return e.MaxSteps
	}
	return DefaultMaxSteps
}

func (e *Env) metrics() *observe.Metrics {
	if e.Metrics != nil {
		return e.Metrics
	}
	return observe.DefaultMetrics()
}
