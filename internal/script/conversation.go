package script

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/casescript/internal/observe"
	"github.com/MrWong99/casescript/pkg/audio"
	"github.com/MrWong99/casescript/pkg/stage"
)

// Kind distinguishes plain conversations from their extensions.
type Kind int

const (
	KindConversation Kind = iota
	KindInterrogation
	KindConfrontation
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConversation:
		return "conversation"
	case KindInterrogation:
		return "interrogation"
	case KindConfrontation:
		return "confrontation"
	default:
		return "unknown"
	}
}

// extension lets [Interrogation] and [Confrontation] install their run
// state when the embedded [Conversation] begins.
type extension interface {
	begin(s *State)
}

// Conversation owns an [ActionList] and steps through it one frame at a
// time. A Conversation is not safe for concurrent use; the outer driver
// calls Begin, then Update/Draw/DrawBackground once per frame until
// IsFinished reports true.
type Conversation struct {
	ID   string
	Name string

	kind            Kind
	list            *ActionList
	enabled         bool
	completed       bool
	requiredPartner string
	unlock          []UnlockCondition
	ext             extension

	// Run state.
	state    *State
	active   ContinuousAction
	running  bool
	finished bool
	locked   bool
	music    string
	ambiance string
	frames   int64
	span     trace.Span
}

// NewConversation returns an enabled conversation over list.
func NewConversation(id, name string, list *ActionList) *Conversation {
	if list == nil {
		list = &ActionList{}
	}
	return &Conversation{ID: id, Name: name, kind: KindConversation, list: list, enabled: true}
}

// Kind returns the kind of the conversation.
func (c *Conversation) Kind() Kind { return c.kind }

// List returns the program of the conversation.
func (c *Conversation) List() *ActionList { return c.list }

// IsEnabled reports whether the conversation is offered to the player.
func (c *Conversation) IsEnabled() bool { return c.enabled }

// SetEnabled enables or disables the conversation.
func (c *Conversation) SetEnabled(v bool) { c.enabled = v }

// IsCompleted reports whether a run has ever finished as completed.
func (c *Conversation) IsCompleted() bool { return c.completed }

// RequiredPartner returns the partner the conversation must be played with,
// or "".
func (c *Conversation) RequiredPartner() string { return c.requiredPartner }

// SetRequiredPartner sets the partner the conversation must be played with.
func (c *Conversation) SetRequiredPartner(id string) { c.requiredPartner = id }

// IsRunning reports whether a run is in progress.
func (c *Conversation) IsRunning() bool { return c.running }

// IsFinished reports whether the last run has finished.
func (c *Conversation) IsFinished() bool { return c.finished }

// State returns the state of the current run, or nil.
func (c *Conversation) State() *State { return c.state }

// Begin starts a new run. Any run in progress is discarded.
func (c *Conversation) Begin(ctx context.Context, env *Env) error {
	if err := env.validate(); err != nil {
		return fmt.Errorf("script: begin %q: %w", c.ID, err)
	}
	c.Reset()

	ctx, c.span = observe.StartRun(ctx, c.kind.String(), c.ID)
	s := newState(ctx, env, c)

	c.locked = c.LockCount(s) > 0
	if c.requiredPartner != "" && s.CurrentPartner() != c.requiredPartner {
		s.wrongPartner = true
	}
	c.music = env.Audio.Current(audio.Music)
	c.ambiance = env.Audio.Current(audio.Ambiance)
	if c.ext != nil {
		c.ext.begin(s)
	}

	c.state = s
	c.running = true
	c.frames = 0
	env.metrics().ActiveConversations.Add(ctx, 1)
	s.log.Debug("script: run started", "kind", c.kind, "actions", c.list.Len(), "locked", c.locked)
	return nil
}

// Update advances the run by one frame. It returns an error wrapping
// [ErrAuthoring] when the script faults; the run is stopped in that case.
func (c *Conversation) Update(delta time.Duration) error {
	if !c.running {
		return nil
	}
	s := c.state
	c.frames++
	s.tick(delta)

	if s.endRequested {
		c.finish()
		return nil
	}

	if s.interjection != nil && !s.updateInterjection(delta) {
		return nil
	}

	if c.active != nil {
		if err := c.active.Update(s, delta); err != nil {
			return c.fail(err)
		}
		if !c.active.IsFinished() || !c.active.IsReadyToHide() {
			return nil
		}
		c.active = nil
		c.advance()
	}

	return c.run()
}

// run executes actions until one suspends, an interjection is scheduled, an
// end is requested or the list is exhausted. A run that never suspends is
// cut off after the env's step bound.
func (c *Conversation) run() error {
	s := c.state
	m := s.env.metrics()
	limit := s.env.maxSteps()
	for steps := 0; !s.endRequested && s.interjection == nil; steps++ {
		if s.pc >= c.list.Len() {
			c.finish()
			return nil
		}
		if steps == limit {
			return c.fail(faultf(s.pc, "more than %d actions in one update without waiting", limit))
		}

		a := c.list.At(s.pc)
		s.target = noTarget
		m.RecordAction(s.ctx, a.Tag())

		switch a := a.(type) {
		case SingleAction:
			s.log.Debug("script: execute", "index", s.pc, "tag", a.Tag())
			if err := a.Execute(s); err != nil {
				return c.fail(err)
			}
			c.advance()

		case ContinuousAction:
			a.Reset()
			if s.FastForwarding() && a.ShouldSkip(s) {
				m.ActionsSkipped.Add(s.ctx, 1, metricAttr("tag", a.Tag()))
				a.GoToNext(s)
				c.advance()
				continue
			}
			s.log.Debug("script: begin", "index", s.pc, "tag", a.Tag())
			if err := a.Begin(s); err != nil {
				return c.fail(err)
			}
			if a.IsFinished() && a.IsReadyToHide() {
				c.advance()
				continue
			}
			c.active = a
			return nil
		}
	}
	return nil
}

func (c *Conversation) advance() {
	s := c.state
	if i, ok := s.takeDefeat(); ok {
		s.pc = i
	} else if s.target != noTarget {
		s.pc = s.target
	} else {
		s.pc++
	}
	s.target = noTarget
}

// Draw renders the foreground of the active action and any interjection.
func (c *Conversation) Draw() {
	if !c.running {
		return
	}
	s := c.state
	if in := s.interjection; in != nil {
		if f := in.anim.Current(); f.SpriteID != "" {
			s.env.Stage.DrawSprite(f.SpriteID)
		}
		return
	}
	if c.active != nil {
		c.active.Draw(s)
	}
}

// DrawBackground renders the characters behind the dialog box.
func (c *Conversation) DrawBackground() {
	if !c.running {
		return
	}
	c.state.env.Stage.Draw(c.state.Frame())
}

// Reset discards the current run without recording completion.
func (c *Conversation) Reset() {
	if c.running {
		s := c.state
		s.env.metrics().ActiveConversations.Add(s.ctx, -1)
		s.env.Dialog.Reset()
		c.span.End()
	}
	c.state = nil
	c.active = nil
	c.running = false
	c.finished = false
	c.span = nil
}

func (c *Conversation) finish() {
	s := c.state
	env := s.env

	c.restoreAudio(audio.Music, c.music, s.preserveMusic)
	c.restoreAudio(audio.Ambiance, c.ambiance, s.preserveAmbiance)

	completed := !c.locked && !s.wrongPartner
	if completed {
		c.completed = true
	}
	if s.transition != nil && env.Scene != nil {
		env.Scene.Transition(*s.transition)
	}

	c.running = false
	c.finished = true
	c.active = nil

	m := env.metrics()
	m.RecordRun(s.ctx, c.kind.String(), completed, c.frames)
	m.ActiveConversations.Add(s.ctx, -1)
	c.span.SetAttributes(attribute.Bool("conversation.completed", completed))
	c.span.End()
	s.log.Debug("script: run finished", "index", s.pc, "completed", completed, "frames", c.frames)
}

func (c *Conversation) restoreAudio(ch audio.Channel, prev string, preserve bool) {
	if !preserve {
		c.state.restoreTrack(ch, prev, false)
	}
}

func (c *Conversation) fail(err error) error {
	s := c.state
	m := s.env.metrics()
	m.RecordAuthoringFault(s.ctx, "run")
	m.ActiveConversations.Add(s.ctx, -1)
	s.log.Warn("script: run aborted", "index", s.pc, "err", err)

	c.span.RecordError(err)
	c.span.SetStatus(codes.Error, err.Error())
	c.span.End()

	c.running = false
	c.active = nil
	return fmt.Errorf("script: run %q: %w", c.ID, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Unlock conditions
// ─────────────────────────────────────────────────────────────────────────────

// UnlockKind selects what an [UnlockCondition] tests.
type UnlockKind int

const (
	UnlockFlagSet UnlockKind = iota
	UnlockPartnerPresent
)

// LockEnv is what unlock conditions are evaluated against.
type LockEnv interface {
	IsFlagSet(id string) bool
	CurrentPartner() string
}

// UnlockCondition gates whether a conversation may be played.
type UnlockCondition struct {
	Kind UnlockKind
	ID   string
}

func (u UnlockCondition) met(s LockEnv) bool {
	switch u.Kind {
	case UnlockFlagSet:
		return s.IsFlagSet(u.ID)
	case UnlockPartnerPresent:
		return s.CurrentPartner() == u.ID
	default:
		return false
	}
}

// AddUnlockCondition adds u. It reports false when an equal condition is
// already present.
func (c *Conversation) AddUnlockCondition(u UnlockCondition) bool {
	for _, have := range c.unlock {
		if have == u {
			return false
		}
	}
	c.unlock = append(c.unlock, u)
	return true
}

// UnlockConditions returns the unlock conditions in insertion order.
func (c *Conversation) UnlockConditions() []UnlockCondition { return c.unlock }

// LockCount returns how many unlock conditions are unmet.
func (c *Conversation) LockCount(env LockEnv) int {
	n := 0
	for _, u := range c.unlock {
		if !u.met(env) {
			n++
		}
	}
	return n
}

// IsLocked reports whether at least one unlock condition is unmet.
func (c *Conversation) IsLocked(env LockEnv) bool {
	return c.LockCount(env) > 0
}

// IsUnlocked reports whether the conversation has unlock conditions and all
// of them are met.
func (c *Conversation) IsUnlocked(env LockEnv) bool {
	return len(c.unlock) > 0 && c.LockCount(env) == 0
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func metricAttr(key, value string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String(key, value))
}

// transitionTo records t to be handed to the scene driver when the run ends.
func (s *State) transitionTo(t stage.Transition) { s.transition = &t }
