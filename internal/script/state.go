package script

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrWong99/casescript/internal/observe"
	"github.com/MrWong99/casescript/pkg/anim"
	"github.com/MrWong99/casescript/pkg/audio"
	"github.com/MrWong99/casescript/pkg/dialog"
	"github.com/MrWong99/casescript/pkg/stage"
)

// CachedState is a snapshot of the display attributes a detour may change.
// Offsets are not captured; restored characters are always fully on screen.
type CachedState struct {
	Left      stage.Character
	Right     stage.Character
	Speaker   stage.Position
	Zoomed    bool
	Breakdown stage.Position
}

// State is the mutable context of one conversation run. It is created by
// [Conversation.Begin] and discarded when the run finishes. State is only
// touched from the update goroutine and does no locking.
type State struct {
	ctx  context.Context
	env  *Env
	conv *Conversation
	list *ActionList
	log  *slog.Logger

	pc     int
	target int

	left, right stage.Character
	speaker     stage.Position
	mouthOpen   bool
	zoomed      bool
	breakdown   stage.Position
	shake       time.Duration
	overlay     float64

	fastForward      bool
	endRequested     bool
	preserveMusic    bool
	preserveAmbiance bool
	wrongPartner     bool

	// paused records channels a script paused during this run.
	paused map[audio.Channel]bool

	transition   *stage.Transition
	interjection *interjection

	// repeats holds the snapshot of every interrogation repeat segment
	// entered during this run, keyed by the index of its begin marker.
	repeats map[int]CachedState
	detours detourStack

	// confrontation is nil outside confrontations.
	confrontation *confrontationRun
}

func newState(ctx context.Context, env *Env, c *Conversation) *State {
	depth := env.DetourDepth
	if depth == 0 {
		depth = 1
	}
	return &State{
		ctx:         ctx,
		env:         env,
		conv:        c,
		list:        c.list,
		log:         observe.Logger(ctx).With("conversation", c.ID),
		target:      noTarget,
		fastForward: env.FastForward,
		paused:      make(map[audio.Channel]bool),
		repeats:     make(map[int]CachedState),
		detours:     detourStack{max: depth},
	}
}

// Context returns the context the run was started with.
func (s *State) Context() context.Context { return s.ctx }

// Env returns the collaborators of the run.
func (s *State) Env() *Env { return s.env }

// PC returns the index of the action currently executing.
func (s *State) PC() int { return s.pc }

// SetNext sets the index the program counter moves to once the current
// action completes. Without a call the counter advances by one.
func (s *State) SetNext(i int) { s.target = i }

// RequestEnd asks the interpreter to finish the run at the top of the next
// tick.
func (s *State) RequestEnd() { s.endRequested = true }

// FastForwarding reports whether continuous actions should be skipped this
// tick: skipping must be enabled and the skip control held.
func (s *State) FastForwarding() bool {
	return s.fastForward && s.env.Input != nil && s.env.Input.FastForwardHeld()
}

// IsFlagSet, IsEvidenceEnabled and CurrentPartner let a State serve as a
// condition environment.
func (s *State) IsFlagSet(id string) bool         { return s.env.Flags.IsFlagSet(id) }
func (s *State) IsEvidenceEnabled(id string) bool { return s.env.Evidence.IsEvidenceEnabled(id) }
func (s *State) CurrentPartner() string           { return s.env.Partners.CurrentPartner() }

// Character returns the slot at pos, or nil for [stage.PositionNone].
func (s *State) Character(pos stage.Position) *stage.Character {
	switch pos {
	case stage.PositionLeft:
		return &s.left
	case stage.PositionRight:
		return &s.right
	default:
		return nil
	}
}

// positionOf returns the slot showing characterID.
func (s *State) positionOf(characterID string) stage.Position {
	switch {
	case characterID == "":
		return stage.PositionNone
	case s.left.ID == characterID:
		return stage.PositionLeft
	case s.right.ID == characterID:
		return stage.PositionRight
	default:
		return stage.PositionNone
	}
}

// Snapshot captures the display attributes for a later [State.Restore].
func (s *State) Snapshot() CachedState {
	l, r := s.left, s.right
	l.Offset, r.Offset = 0, 0
	return CachedState{
		Left:      l,
		Right:     r,
		Speaker:   s.speaker,
		Zoomed:    s.zoomed,
		Breakdown: s.breakdown,
	}
}

// Restore replaces the display attributes with c.
func (s *State) Restore(c CachedState) {
	s.left, s.right = c.Left, c.Right
	s.speaker = c.Speaker
	s.zoomed = c.Zoomed
	s.breakdown = c.Breakdown
	s.mouthOpen = false
}

// Frame returns what the stage should draw this frame.
func (s *State) Frame() stage.Frame {
	f := stage.Frame{
		Left:      s.left,
		Right:     s.right,
		Speaker:   s.speaker,
		MouthOpen: s.mouthOpen,
		Zoomed:    s.zoomed,
		Breakdown: s.breakdown,
		Shake:     s.shake,
		Overlay:   s.overlay,
	}
	if cr := s.confrontation; cr != nil {
		f.HealthVisible = cr.healthVisible
		f.PlayerHealth = cr.health.Player()
		f.OpponentHealth = cr.health.Opponent()
	}
	return f
}

func (s *State) tick(delta time.Duration) {
	s.shake = max(s.shake-delta, 0)
}

// nextIsNotification reports whether the action after the current one is a
// notification.
func (s *State) nextIsNotification() bool {
	if s.pc+1 >= s.list.Len() {
		return false
	}
	_, ok := s.list.At(s.pc + 1).(*Notification)
	return ok
}

// skipNotificationIfApplied implements the mutation dedupe rule: when the
// change was already in effect and the next action would announce it, jump
// over the announcement.
func (s *State) skipNotificationIfApplied(applied bool) {
	if applied && s.nextIsNotification() {
		s.SetNext(s.pc + 2)
	}
}

// handleDialogEvent applies the events every dialogue line understands. It
// reports false for events that need an action-specific reaction.
func (s *State) handleDialogEvent(ev dialog.Event) bool {
	switch ev.Kind {
	case dialog.EventEmotionChanged:
		if c := s.Character(ev.Position); c != nil {
			c.EmotionID = ev.Value
		}
	case dialog.EventSpeakerChanged:
		s.speaker = ev.Position
	case dialog.EventShake:
		s.shake = ev.Duration
	case dialog.EventZoom:
		s.zoomed = ev.Flag
	case dialog.EventMouth:
		s.mouthOpen = ev.Flag
	case dialog.EventBreakdownBegun:
		s.breakdown = ev.Position
		s.env.Stage.BeginBreakdown(ev.Position)
	case dialog.EventBreakdownEnded:
		s.breakdown = stage.PositionNone
		s.env.Stage.EndBreakdown(ev.Position)
	case dialog.EventSoundRequested:
		s.env.Audio.PlaySound(ev.Value)
	case dialog.EventPlayerDamaged:
		s.damagePlayer()
	case dialog.EventOpponentDamaged:
		s.damageOpponent()
	default:
		return false
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Interjections
// ─────────────────────────────────────────────────────────────────────────────

type interjection struct {
	id      string
	anim    *anim.Animation
	restore CachedState
}

// scheduleInterjection queues the interjection id to play once the current
// action completes. Unknown ids and a missing source schedule nothing.
func (s *State) scheduleInterjection(id string) {
	if id == "" || s.env.Interjections == nil {
		return
	}
	a, ok := s.env.Interjections.Interjection(id)
	if !ok {
		s.log.Debug("script: interjection not found", "id", id)
		return
	}
	s.interjection = &interjection{id: id, anim: a, restore: s.Snapshot()}
	s.env.metrics().Interjections.Add(s.ctx, 1, metricAttr("id", id))
}

// updateInterjection advances a scheduled interjection. It reports true
// once the interjection has finished and the display has been restored.
func (s *State) updateInterjection(delta time.Duration) bool {
	in := s.interjection
	for _, snd := range in.anim.Update(delta) {
		s.env.Audio.PlaySound(snd)
	}
	if !in.anim.IsFinished() {
		return false
	}
	s.Restore(in.restore)
	s.interjection = nil
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Audio
// ─────────────────────────────────────────────────────────────────────────────

// preserve marks ch to keep its state when the run ends.
func (s *State) preserve(ch audio.Channel) {
	switch ch {
	case audio.Music:
		s.preserveMusic = true
	case audio.Ambiance:
		s.preserveAmbiance = true
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Detour stack
// ─────────────────────────────────────────────────────────────────────────────

// detourStack remembers where penalty branches return to. Exceeding max is
// an authoring error, never a silent overwrite.
type detourStack struct {
	items []int
	max   int
}

func (d *detourStack) push(owner, index int) error {
	if len(d.items) >= d.max {
		return faultf(owner, "detour stack overflow (depth %d): return to %d still pending", d.max, d.items[len(d.items)-1])
	}
	d.items = append(d.items, index)
	return nil
}

func (d *detourStack) pop(owner int) (int, error) {
	if len(d.items) == 0 {
		return 0, faultf(owner, "return to cached index with no pending detour")
	}
	i := d.items[len(d.items)-1]
	d.items = d.items[:len(d.items)-1]
	return i, nil
}

func (d *detourStack) len() int { return len(d.items) }
