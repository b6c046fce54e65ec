package script

import (
	"time"

	"github.com/MrWong99/casescript/pkg/anim"
	"github.com/MrWong99/casescript/pkg/audio"
	"github.com/MrWong99/casescript/pkg/menu"
)

// DefaultIntroID is the interjection played by BeginConfrontation when the
// action does not name one.
const DefaultIntroID = "ConfrontationIntro"

const restartFadeDuration = 500 * time.Millisecond

// Confrontation is an interrogation fought over topics with player and
// opponent health. Running out of player health branches to the defeated
// index; a restart rewinds to the last topic selection.
type Confrontation struct {
	Interrogation

	PlayerHealth   int
	OpponentHealth int
	DefeatedIndex  int

	topics []Topic
}

// NewConfrontation returns an enabled confrontation over list. Each run
// starts from the given topics and health values.
func NewConfrontation(id, name string, list *ActionList, topics []Topic, player, opponent, defeatedIndex int) *Confrontation {
	c := &Confrontation{
		Interrogation:  Interrogation{Conversation: *NewConversation(id, name, list)},
		PlayerHealth:   player,
		OpponentHealth: opponent,
		DefeatedIndex:  defeatedIndex,
		topics:         topics,
	}
	c.kind = KindConfrontation
	c.ext = c
	return c
}

// Topics returns the authored topics.
func (c *Confrontation) Topics() []Topic { return NewTopicSet(c.topics).All() }

func (c *Confrontation) begin(s *State) {
	s.confrontation = &confrontationRun{
		phase:          PhaseEntering,
		health:         NewHealth(c.PlayerHealth, c.OpponentHealth),
		topics:         NewTopicSet(c.topics),
		selectionIndex: noTarget,
		defeatedIndex:  c.DefeatedIndex,
	}
}

// Confrontation returns c as a confrontation, or nil for other kinds.
func (c *Conversation) Confrontation() *Confrontation {
	cf, _ := c.ext.(*Confrontation)
	return cf
}

// ConfrontationPhase is where a confrontation run currently is.
type ConfrontationPhase int

const (
	PhaseEntering ConfrontationPhase = iota
	PhaseTopicSelection
	PhaseInTopic
	PhasePlayerDefeated
	PhaseRestarting
)

type confrontationRun struct {
	phase          ConfrontationPhase
	health         *Health
	topics         *TopicSet
	healthVisible  bool
	selectionIndex int
	current        string
	defeatedIndex  int
	checkpoint     *confrontationCheckpoint

	// defeatPending holds the jump to defeatedIndex until the current
	// action finishes; it wins over any branch the action chose.
	defeatPending bool
}

// confrontationCheckpoint is everything a restart rewinds, taken on entry
// to topic selection.
type confrontationCheckpoint struct {
	display       CachedState
	music         string
	ambiance      string
	health        Health
	healthVisible bool
	topics        []Topic
}

// Health returns the health of the running confrontation, or nil.
func (s *State) Health() *Health {
	if s.confrontation == nil {
		return nil
	}
	return s.confrontation.health
}

// Topics returns the topics of the running confrontation, or nil.
func (s *State) Topics() *TopicSet {
	if s.confrontation == nil {
		return nil
	}
	return s.confrontation.topics
}

// Phase returns the phase of the running confrontation.
func (s *State) Phase() (ConfrontationPhase, bool) {
	if s.confrontation == nil {
		return 0, false
	}
	return s.confrontation.phase, true
}

func (s *State) damagePlayer() {
	cr := s.confrontation
	if cr == nil || cr.health.Player() == 0 {
		return
	}
	defeated := cr.health.DamagePlayer()
	s.env.metrics().RecordDamage(s.ctx, "player")
	if defeated {
		cr.phase = PhasePlayerDefeated
		cr.defeatPending = cr.defeatedIndex != noTarget
	}
}

// takeDefeat reports the index to continue at after a defeat, consuming it.
func (s *State) takeDefeat() (int, bool) {
	cr := s.confrontation
	if cr == nil || !cr.defeatPending {
		return noTarget, false
	}
	cr.defeatPending = false
	return cr.defeatedIndex, true
}

func (s *State) damageOpponent() {
	cr := s.confrontation
	if cr == nil || cr.health.Opponent() == 0 {
		return
	}
	cr.health.DamageOpponent()
	s.env.metrics().RecordDamage(s.ctx, "opponent")
}

func (s *State) requireConfrontation(index int, tag string) (*confrontationRun, error) {
	if s.confrontation == nil {
		return nil, faultf(index, "%s outside a confrontation", tag)
	}
	return s.confrontation, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Actions
// ─────────────────────────────────────────────────────────────────────────────

// BeginConfrontation plays the confrontation intro and shows the health
// gauges.
type BeginConfrontation struct {
	instant
	base
	IntroID string

	intro *anim.Animation
}

// Begin implements [ContinuousAction].
func (b *BeginConfrontation) Begin(s *State) error {
	cr, err := s.requireConfrontation(b.index, b.tag)
	if err != nil {
		return err
	}
	cr.phase = PhaseEntering
	cr.healthVisible = true

	id := b.IntroID
	if id == "" {
		id = DefaultIntroID
	}
	if s.env.Interjections != nil {
		if a, ok := s.env.Interjections.Interjection(id); ok {
			b.intro = a
		}
	}
	return nil
}

// Update implements [ContinuousAction].
func (b *BeginConfrontation) Update(s *State, delta time.Duration) error {
	if b.intro == nil {
		return nil
	}
	for _, snd := range b.intro.Update(delta) {
		s.env.Audio.PlaySound(snd)
	}
	return nil
}

// Draw implements [ContinuousAction].
func (b *BeginConfrontation) Draw(s *State) {
	if b.intro == nil {
		return
	}
	if f := b.intro.Current(); f.SpriteID != "" {
		s.env.Stage.DrawSprite(f.SpriteID)
	}
}

// IsFinished implements [ContinuousAction].
func (b *BeginConfrontation) IsFinished() bool { return b.intro == nil || b.intro.IsFinished() }

// ShouldSkip implements [ContinuousAction].
func (b *BeginConfrontation) ShouldSkip(*State) bool { return true }

// GoToNext implements [ContinuousAction].
func (b *BeginConfrontation) GoToNext(s *State) {
	if cr := s.confrontation; cr != nil {
		cr.phase = PhaseEntering
		cr.healthVisible = true
	}
}

// Reset implements [ContinuousAction].
func (b *BeginConfrontation) Reset() { b.intro = nil }

// ShowTopicSelection offers the eligible topics. With none left it branches
// to EndIndex; a single topic is entered without a menu. Entering topic
// selection takes the checkpoint a later RestartConfrontation rewinds to.
type ShowTopicSelection struct {
	instant
	base
	EndIndex int

	menu    menu.ButtonArray
	chosen  string
	closing bool
	done    bool
}

// Begin implements [ContinuousAction].
func (t *ShowTopicSelection) Begin(s *State) error {
	cr, err := s.requireConfrontation(t.index, t.tag)
	if err != nil {
		return err
	}
	cr.phase = PhaseTopicSelection
	cr.selectionIndex = t.index
	cr.current = ""
	cr.checkpoint = &confrontationCheckpoint{
		display:       s.Snapshot(),
		music:         s.env.Audio.Current(audio.Music),
		ambiance:      s.env.Audio.Current(audio.Ambiance),
		health:        *cr.health,
		healthVisible: cr.healthVisible,
		topics:        cr.topics.Snapshot(),
	}
	if s.env.Checkpoints != nil {
		s.env.Checkpoints.Checkpoint()
	}

	eligible := cr.topics.Eligible()
	switch len(eligible) {
	case 0:
		s.SetNext(t.EndIndex)
		t.done = true
	case 1:
		t.enter(s, eligible[0])
	default:
		opts := make([]menu.Option, len(eligible))
		for i, tp := range eligible {
			opts[i] = menu.Option{ID: tp.ID, Text: tp.Name}
		}
		t.menu = s.env.Menu
		t.menu.Load(opts)
		t.menu.OnClick(func(id string) {
			if t.closing {
				return
			}
			if _, ok := cr.topics.Get(id); ok {
				t.chosen = id
			}
		})
		t.menu.Show()
	}
	return nil
}

func (t *ShowTopicSelection) enter(s *State, tp Topic) {
	cr := s.confrontation
	cr.current = tp.ID
	cr.phase = PhaseInTopic
	s.SetNext(tp.ActionIndex)
	s.env.metrics().TopicSelections.Add(s.ctx, 1, metricAttr("topic", tp.ID))
	s.log.Debug("script: topic selected", "topic", tp.ID, "index", tp.ActionIndex)
	t.done = true
}

// Update implements [ContinuousAction].
func (t *ShowTopicSelection) Update(s *State, delta time.Duration) error {
	if t.done || t.menu == nil {
		return nil
	}
	t.menu.Update(delta)
	if t.chosen != "" && !t.closing {
		t.menu.Close()
		t.closing = true
	}
	if t.closing && t.menu.IsClosed() {
		tp, _ := s.confrontation.topics.Get(t.chosen)
		t.enter(s, tp)
	}
	return nil
}

// Draw implements [ContinuousAction].
func (t *ShowTopicSelection) Draw(*State) {
	if t.menu != nil && !t.done {
		t.menu.Draw()
	}
}

// IsFinished implements [ContinuousAction].
func (t *ShowTopicSelection) IsFinished() bool { return t.done }

// ShouldSkip implements [ContinuousAction].
func (t *ShowTopicSelection) ShouldSkip(*State) bool { return false }

// GoToNext implements [ContinuousAction].
func (t *ShowTopicSelection) GoToNext(*State) {}

// Reset implements [ContinuousAction].
func (t *ShowTopicSelection) Reset() {
	t.menu = nil
	t.chosen = ""
	t.closing = false
	t.done = false
}

// CompleteTopic marks the current topic completed and returns to topic
// selection.
type CompleteTopic struct{ base }

// Execute implements [SingleAction].
func (a *CompleteTopic) Execute(s *State) error {
	cr, err := s.requireConfrontation(a.index, a.tag)
	if err != nil {
		return err
	}
	if cr.current == "" || cr.selectionIndex == noTarget {
		return faultf(a.index, "complete topic with no topic in progress")
	}
	cr.topics.Complete(cr.current)
	cr.current = ""
	cr.phase = PhaseTopicSelection
	s.SetNext(cr.selectionIndex)
	return nil
}

// Damage removes one point of health from the player (DamagePlayer) or the
// opponent (DamageOpponent).
type Damage struct {
	base
	Opponent bool
}

// Execute implements [SingleAction].
func (a *Damage) Execute(s *State) error {
	if _, err := s.requireConfrontation(a.index, a.tag); err != nil {
		return err
	}
	if a.Opponent {
		s.damageOpponent()
	} else {
		s.damagePlayer()
	}
	return nil
}

// SetHealthVisible shows or hides the health gauges.
type SetHealthVisible struct {
	base
	Visible bool
}

// Execute implements [SingleAction].
func (a *SetHealthVisible) Execute(s *State) error {
	cr, err := s.requireConfrontation(a.index, a.tag)
	if err != nil {
		return err
	}
	cr.healthVisible = a.Visible
	return nil
}

type restartPhase int

const (
	restartIdle restartPhase = iota
	restartDarken
	restartBrighten
	restartDone
)

// RestartConfrontation darkens the screen, rewinds the case state and the
// confrontation to the last topic selection and fades back in there.
type RestartConfrontation struct {
	instant
	base

	phase restartPhase
	fade  anim.Tween
}

// Begin implements [ContinuousAction].
func (r *RestartConfrontation) Begin(s *State) error {
	cr, err := s.requireConfrontation(r.index, r.tag)
	if err != nil {
		return err
	}
	if cr.checkpoint == nil {
		return faultf(r.index, "restart before any topic selection")
	}
	cr.phase = PhaseRestarting
	r.phase = restartDarken
	r.fade = anim.NewTween(s.overlay, 1, restartFadeDuration)
	return nil
}

// Update implements [ContinuousAction].
func (r *RestartConfrontation) Update(s *State, delta time.Duration) error {
	switch r.phase {
	case restartDarken:
		r.fade.Update(delta)
		s.overlay = r.fade.Value()
		if r.fade.Done() {
			r.rewind(s)
			r.phase = restartBrighten
			r.fade = anim.NewTween(1, 0, restartFadeDuration)
		}
	case restartBrighten:
		r.fade.Update(delta)
		s.overlay = r.fade.Value()
		if r.fade.Done() {
			s.overlay = 0
			r.phase = restartDone
		}
	}
	return nil
}

func (r *RestartConfrontation) rewind(s *State) {
	cr := s.confrontation
	cp := cr.checkpoint
	if s.env.Checkpoints != nil && !s.env.Checkpoints.Restore() {
		s.log.Warn("script: no case checkpoint to restore")
	}
	s.Restore(cp.display)
	s.restoreTrack(audio.Music, cp.music, true)
	s.restoreTrack(audio.Ambiance, cp.ambiance, true)
	*cr.health = cp.health
	cr.healthVisible = cp.healthVisible
	cr.topics.Restore(cp.topics)
	cr.current = ""
	cr.defeatPending = false
	s.detours.items = nil
	s.SetNext(cr.selectionIndex)
}

// IsFinished implements [ContinuousAction].
func (r *RestartConfrontation) IsFinished() bool { return r.phase == restartDone }

// ShouldSkip implements [ContinuousAction].
func (r *RestartConfrontation) ShouldSkip(*State) bool { return false }

// GoToNext implements [ContinuousAction].
func (r *RestartConfrontation) GoToNext(*State) {}

// Reset implements [ContinuousAction].
func (r *RestartConfrontation) Reset() {
	r.phase = restartIdle
	r.fade = anim.Tween{}
}
