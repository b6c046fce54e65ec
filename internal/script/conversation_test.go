package script_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/casescript/internal/script"
	"github.com/MrWong99/casescript/pkg/anim"
	"github.com/MrWong99/casescript/pkg/audio"
	"github.com/MrWong99/casescript/pkg/dialog"
	"github.com/MrWong99/casescript/pkg/stage"
)

const simpleScript = `
conversations:
  - Conversation:
      id: intro
      name: Introductions
      actions:
        - ShowDialog: {speaker: phoenix, text: "Hello."}
        - SetFlag: {flag: met_maya}
        - ShowDialog: {speaker: maya, text: "Hi!"}
`

func TestConversation_RunsInOrder(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	c := loadOne(t, simpleScript)

	h.run(t, c)

	if got, want := h.texts(), []string{"Hello.", "Hi!"}; !slices.Equal(got, want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
	if !h.store.IsFlagSet("met_maya") {
		t.Error("flag met_maya not set")
	}
	if !c.IsCompleted() {
		t.Error("IsCompleted = false, want true")
	}
	if c.IsRunning() {
		t.Error("IsRunning = true after finish")
	}
}

func TestConversation_Metrics(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	c := loadOne(t, simpleScript)

	h.run(t, c)

	if got := h.sum(t, "casescript.actions.executed"); got != 3 {
		t.Errorf("actions.executed = %d, want 3", got)
	}
	if got := h.sum(t, "casescript.runs.finished"); got != 1 {
		t.Errorf("runs.finished = %d, want 1", got)
	}
	if got := h.sum(t, "casescript.active_conversations"); got != 0 {
		t.Errorf("active_conversations = %d, want 0", got)
	}
}

func TestConversation_InstantActionsFinishInOneUpdate(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: bookkeeping
      actions:
        - SetFlag: {flag: a}
        - EnableEvidence: {evidence: badge}
        - ClearFlag: {flag: b}
        - Label:
`
	h := newHarness(t)
	c := loadOne(t, src)

	h.begin(t, c)
	h.step(t, c, 1)

	if !c.IsFinished() {
		t.Fatal("run not finished after one update")
	}
	if got, want := c.State().PC(), c.List().Len(); got != want {
		t.Errorf("PC = %d, want %d", got, want)
	}
	if len(h.dialog.Lines) != 0 {
		t.Errorf("lines = %v, want none", h.texts())
	}
}

func TestConversation_RunawayLoop(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: spin
      actions:
        - SetFlag: {flag: a}
        - Goto: {index: 0}
`
	tests := []struct {
		name     string
		maxSteps int
	}{
		{name: "default bound"},
		{name: "configured bound", maxSteps: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			h.env.MaxSteps = tt.maxSteps
			c := loadOne(t, src)

			h.begin(t, c)
			err := c.Update(frame)
			if !errors.Is(err, script.ErrAuthoring) {
				t.Fatalf("Update error = %v, want ErrAuthoring", err)
			}
			if c.IsRunning() {
				t.Error("IsRunning = true after a runaway loop")
			}
			want := int64(script.DefaultMaxSteps)
			if tt.maxSteps > 0 {
				want = int64(tt.maxSteps)
			}
			if got := h.sum(t, "casescript.actions.executed"); got != want {
				t.Errorf("actions.executed = %d, want %d", got, want)
			}
		})
	}
}

func TestConversation_BeginRejectsNegativeMaxSteps(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.env.MaxSteps = -1
	if err := loadOne(t, simpleScript).Begin(context.Background(), h.env); err == nil {
		t.Fatal("Begin accepted a negative step bound")
	}
}

func TestConversation_BeginValidatesEnv(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.env.Dialog = nil
	c := loadOne(t, simpleScript)

	if err := c.Begin(context.Background(), h.env); err == nil {
		t.Fatal("Begin: expected error for missing dialog")
	}
	if c.IsRunning() {
		t.Error("IsRunning = true after failed Begin")
	}
}

func TestConversation_MutationDedupe(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: evidence
      actions:
        - EnableEvidence: {evidence: badge}
        - Notification: {text: "Badge added to the court record."}
        - ShowDialog: {text: "Moving on."}
`
	tests := []struct {
		name string
		have bool
		want []string
	}{
		{name: "new evidence is announced", want: []string{"Badge added to the court record.", "Moving on."}},
		{name: "known evidence skips the notification", have: true, want: []string{"Moving on."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			if tt.have {
				h.store.EnableEvidence("badge")
			}
			h.run(t, loadOne(t, src))

			if got := h.texts(); !slices.Equal(got, tt.want) {
				t.Fatalf("lines = %v, want %v", got, tt.want)
			}
			if !h.store.IsEvidenceEnabled("badge") {
				t.Error("badge not enabled")
			}
		})
	}
}

func TestConversation_BranchOnCondition(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: branch
      actions:
        - BranchOnCondition:
            condition:
              - And:
                  conditions:
                    - FlagSet: {flag: met_maya}
                    - Lua: {expr: 'partner() == "maya"'}
            true_index: 1
            false_index: 4
        - BranchIfTrue:
        - ShowDialog: {text: "yes"}
        - Goto: {index: 6}
        - BranchIfFalse:
        - ShowDialog: {text: "no"}
        - EndBranchOnCondition:
`
	tests := []struct {
		name    string
		flag    bool
		partner string
		want    string
	}{
		{name: "both hold", flag: true, partner: "maya", want: "yes"},
		{name: "flag missing", partner: "maya", want: "no"},
		{name: "wrong partner", flag: true, partner: "gumshoe", want: "no"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			if tt.flag {
				h.store.SetFlag("met_maya")
			}
			h.store.SetCurrentPartner(tt.partner)

			h.run(t, loadOne(t, src))

			if got := h.texts(); !slices.Equal(got, []string{tt.want}) {
				t.Fatalf("lines = %v, want [%s]", got, tt.want)
			}
		})
	}
}

func TestConversation_EndRequested(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.dialog.Pending = []dialog.Event{{Kind: dialog.EventEndRequested}}
	c := loadOne(t, simpleScript)

	h.run(t, c)

	if got := h.texts(); !slices.Equal(got, []string{"Hello."}) {
		t.Fatalf("lines = %v, want only the first", got)
	}
	if h.store.IsFlagSet("met_maya") {
		t.Error("actions after the end request were executed")
	}
}

func TestConversation_Completion(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: gated
      required_partner: maya
      unlock_conditions:
        - FlagSet: {flag: found_letter}
      actions:
        - ShowDialog: {text: "..."}
`
	tests := []struct {
		name    string
		flag    bool
		partner string
		want    bool
	}{
		{name: "unlocked with partner", flag: true, partner: "maya", want: true},
		{name: "locked", partner: "maya"},
		{name: "wrong partner", flag: true, partner: "gumshoe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			if tt.flag {
				h.store.SetFlag("found_letter")
			}
			h.store.SetCurrentPartner(tt.partner)
			c := loadOne(t, src)

			h.run(t, c)

			if got := c.IsCompleted(); got != tt.want {
				t.Fatalf("IsCompleted = %v, want %v", got, tt.want)
			}
			if got := c.IsLocked(h.store); got == tt.flag {
				t.Errorf("IsLocked = %v with flag %v", got, tt.flag)
			}
		})
	}
}

func TestConversation_RepeatSkipsAppliedNotification(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: wrapup
      actions:
        - SetFlag: {flag: verdict_heard}
        - Notification: {text: "Verdict recorded."}
        - EndCase:
`
	h := newHarness(t)
	c := loadOne(t, src)

	h.run(t, c)
	if got := h.texts(); !slices.Equal(got, []string{"Verdict recorded."}) {
		t.Fatalf("first run lines = %v", got)
	}

	h.begin(t, c)
	h.step(t, c, 1)

	if !c.IsFinished() {
		t.Fatal("second run did not finish in one update")
	}
	if got := c.State().PC(); got != 3 {
		t.Errorf("PC = %d, want 3", got)
	}
	if got := len(h.dialog.Lines); got != 1 {
		t.Errorf("lines shown = %d, want the notification only once", got)
	}
	// SetFlag and EndCase on the second run; the notification is jumped over.
	if got := h.sum(t, "casescript.actions.executed"); got != 5 {
		t.Errorf("actions.executed = %d, want 5", got)
	}
	if got := len(h.scene.Transitions); got != 2 {
		t.Errorf("transitions = %d, want one per run", got)
	}
}

func TestConversation_CheckPartner(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: partner
      actions:
        - CheckPartner: {partner: maya, right_index: 1, wrong_index: 4, required: true}
        - BranchIfRight:
        - ShowDialog: {text: "Maya!"}
        - Goto: {index: 6}
        - BranchIfWrong:
        - ShowDialog: {text: "Where is Maya?"}
        - EndCheckPartner:
`
	h := newHarness(t)
	h.store.SetCurrentPartner("gumshoe")
	c := loadOne(t, src)

	h.run(t, c)

	if got := h.texts(); !slices.Equal(got, []string{"Where is Maya?"}) {
		t.Fatalf("lines = %v", got)
	}
	if c.IsCompleted() {
		t.Error("run with a wrong required partner was marked completed")
	}
}

func TestConversation_RestoresAudio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action string
		want   string
		paused bool
	}{
		{name: "play is undone", action: "PlayMusic: {track: trial}", want: "investigation"},
		{name: "preserved play is kept", action: "PlayMusic: {track: trial, preserve: true}", want: "trial"},
		{name: "pause is resumed", action: "PauseMusic:", want: "investigation"},
		{name: "stop is undone", action: "StopMusic: {instant: true}", want: "investigation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			h.audio.Play(audio.Music, "investigation")
			c := loadOne(t, `
conversations:
  - Conversation:
      id: music
      actions:
        - `+tt.action+`
        - ShowDialog: {text: "..."}
`)
			h.run(t, c)

			if got := h.audio.Current(audio.Music); got != tt.want {
				t.Errorf("music = %q, want %q", got, tt.want)
			}
			if h.audio.IsPaused(audio.Music) != tt.paused {
				t.Errorf("music paused = %v, want %v", h.audio.IsPaused(audio.Music), tt.paused)
			}
		})
	}
}

func TestConversation_FastForward(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: skip
      actions:
        - CharacterChange: {position: left, character: phoenix, emotion: normal}
        - Wait: {duration_ms: 1000}
        - Notification: {text: "Court record updated."}
        - ShowDialog: {speaker: phoenix, text: "Let's go."}
`
	h := newHarness(t)
	h.env.FastForward = true
	h.input.held = true
	c := loadOne(t, src)

	h.begin(t, c)
	h.step(t, c, 1)

	if got := h.texts(); !slices.Equal(got, []string{"Let's go."}) {
		t.Fatalf("lines after first frame = %v, want only the unseen line", got)
	}
	f := c.State().Frame()
	if f.Left.ID != "phoenix" || f.Left.Offset != 0 {
		t.Errorf("left = %+v, want phoenix fully on screen", f.Left)
	}
	if f.Speaker != stage.PositionLeft {
		t.Errorf("speaker = %v, want left", f.Speaker)
	}
	h.finish(t, c)

	// The line is seen now, so a second run skips everything.
	h.begin(t, c)
	h.step(t, c, 1)
	if !c.IsFinished() {
		t.Fatal("second run did not finish in one frame")
	}
	if got := len(h.dialog.Lines); got != 1 {
		t.Errorf("lines shown = %d, want 1", got)
	}
	if got := h.sum(t, "casescript.actions.skipped"); got != 7 {
		t.Errorf("actions.skipped = %d, want 7", got)
	}
}

func TestConversation_SkipControlPressedMidRun(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: late
      actions:
        - Wait: {duration_ms: 48}
        - Notification: {text: "Court record updated."}
        - ShowDialog: {text: "Done."}
`
	h := newHarness(t)
	h.env.FastForward = true
	c := loadOne(t, src)

	h.begin(t, c)
	h.step(t, c, 1)
	if c.State().FastForwarding() {
		t.Fatal("fast-forwarding before the control is held")
	}

	h.input.held = true
	h.finish(t, c)

	if got := h.texts(); !slices.Equal(got, []string{"Done."}) {
		t.Errorf("lines = %v, want the notification skipped", got)
	}
}

func TestConversation_DisableFastForward(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: noskip
      actions:
        - DisableFastForward:
        - Wait: {duration_ms: 100}
`
	h := newHarness(t)
	h.env.FastForward = true
	h.input.held = true
	c := loadOne(t, src)

	h.begin(t, c)
	h.step(t, c, 1)
	if c.IsFinished() {
		t.Fatal("wait was skipped after DisableFastForward")
	}
	h.finish(t, c)
}

func TestConversation_DialogEvents(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: events
      actions:
        - CharacterChange: {position: left, character: edgeworth, emotion: normal, duration_ms: 0}
        - ShowDialog: {speaker: edgeworth, text: "Objection!"}
`
	h := newHarness(t)
	h.dialog.Pending = []dialog.Event{
		{Kind: dialog.EventEmotionChanged, Position: stage.PositionLeft, Value: "angry"},
		{Kind: dialog.EventZoom, Flag: true},
		{Kind: dialog.EventSoundRequested, Value: "desk_slam"},
	}
	c := loadOne(t, src)

	h.begin(t, c)
	h.until(t, c, func() bool { return c.State().Frame().Zoomed })

	f := c.State().Frame()
	if f.Left.EmotionID != "angry" {
		t.Errorf("emotion = %q, want angry", f.Left.EmotionID)
	}
	if !slices.Contains(h.audio.Sounds, "desk_slam") {
		t.Errorf("sounds = %v, want desk_slam", h.audio.Sounds)
	}
	h.finish(t, c)
}

const mustPresentScript = `
conversations:
  - Conversation:
      id: proof
      actions:
        - MustPresentEvidence:
            text: "Show me proof."
            correct: [photo]
            correct_index: 1
            wrong_index: 3
            end_requested_index: 5
        - ShowDialog: {text: "The photo!"}
        - Goto: {index: 6}
        - ShowDialog: {text: "That's not it."}
        - Goto: {index: 6}
        - ShowDialog: {text: "Giving up."}
        - Label:
`

func TestConversation_MustPresentEvidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		evidence []string
		answer   *dialog.Event
		want     []string
	}{
		{
			name:     "correct evidence",
			evidence: []string{"photo", "knife"},
			answer:   &dialog.Event{Kind: dialog.EventEvidencePresented, Value: "photo"},
			want:     []string{"Show me proof.", "The photo!"},
		},
		{
			name:     "wrong evidence",
			evidence: []string{"photo", "knife"},
			answer:   &dialog.Event{Kind: dialog.EventEvidencePresented, Value: "knife"},
			want:     []string{"Show me proof.", "That's not it."},
		},
		{
			name:     "player gives up",
			evidence: []string{"photo"},
			answer:   &dialog.Event{Kind: dialog.EventEndRequested},
			want:     []string{"Show me proof.", "Giving up."},
		},
		{
			name: "empty court record skips the prompt",
			want: []string{"Giving up."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			for _, id := range tt.evidence {
				h.store.EnableEvidence(id)
			}
			if tt.answer != nil {
				h.dialog.Pending = []dialog.Event{*tt.answer}
			}
			c := loadOne(t, mustPresentScript)

			h.run(t, c)

			if got := h.texts(); !slices.Equal(got, tt.want) {
				t.Fatalf("lines = %v, want %v", got, tt.want)
			}
			if tt.answer != nil && h.dialog.Lines[0].Mode != dialog.ModePresentEvidence {
				t.Errorf("prompt mode = %v, want present evidence", h.dialog.Lines[0].Mode)
			}
		})
	}
}

func TestConversation_MustPresentEvidenceInterjects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		evidence string
		want     string
	}{
		{name: "correct evidence", evidence: "photo", want: "The photo!"},
		{name: "wrong evidence", evidence: "knife", want: "That's not it."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			h.env.Interjections = script.Interjections{
				script.DefaultObjectionID: anim.New([]anim.Frame{
					{SpriteID: "take-that", Duration: 64 * time.Millisecond},
				}),
			}
			h.store.EnableEvidence("photo")
			h.store.EnableEvidence("knife")
			c := loadOne(t, mustPresentScript)

			h.begin(t, c)
			h.step(t, c, 1)
			h.dialog.Emit(dialog.Event{Kind: dialog.EventEvidencePresented, Value: tt.evidence})
			h.step(t, c, 2)

			if len(h.dialog.Lines) != 1 {
				t.Fatal("branch line shown before the interjection finished")
			}
			if !slices.Contains(h.stage.Sprites, "take-that") {
				t.Errorf("sprites = %v, want take-that", h.stage.Sprites)
			}
			h.until(t, c, func() bool { return len(h.dialog.Lines) == 2 })

			if got := h.texts()[1]; got != tt.want {
				t.Errorf("line after interjection = %q, want %q", got, tt.want)
			}
			if got := h.sum(t, "casescript.interjections"); got != 1 {
				t.Errorf("interjections = %d, want 1", got)
			}
		})
	}
}

func TestConversation_MultipleChoice(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: choice
      actions:
        - MultipleChoice:
            options:
              - Option: {text: "Ask about the victim", index: 1}
              - Option: {text: "Leave", index: 4}
        - BeginMultipleChoiceOption:
        - ShowDialog: {text: "asked"}
        - ExitMultipleChoice: {index: 6}
        - BeginMultipleChoiceOption:
        - ShowDialog: {text: "left"}
        - EndMultipleChoice:
`
	h := newHarness(t)
	c := loadOne(t, src)

	h.begin(t, c)
	h.step(t, c, 1)
	if !h.menu.IsShown() {
		t.Fatal("menu not shown")
	}
	h.menu.Click("1")
	h.finish(t, c)

	if got := h.texts(); !slices.Equal(got, []string{"left"}) {
		t.Fatalf("lines = %v, want [left]", got)
	}
	if got := c.State().Frame().Overlay; got != 0 {
		t.Errorf("overlay = %v after choice, want 0", got)
	}

	h.begin(t, c)
	h.step(t, c, 1)
	opts := h.menu.LastLoaded()
	if len(opts) != 2 || opts[0].Visited || !opts[1].Visited {
		t.Errorf("options on second visit = %+v, want only Leave visited", opts)
	}
}

func TestConversation_Breakdown(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: breakdown
      actions:
        - BeginBreakdown: {position: right}
        - ShowDialog: {text: "Nooo!"}
`
	h := newHarness(t)
	h.stage.BreakdownComplete = false
	c := loadOne(t, src)

	h.begin(t, c)
	h.step(t, c, 5)
	if len(h.dialog.Lines) != 0 {
		t.Fatal("script continued before the breakdown transition completed")
	}
	if got := c.State().Frame().Breakdown; got != stage.PositionRight {
		t.Errorf("breakdown = %v, want right", got)
	}
	h.stage.BreakdownComplete = true
	h.finish(t, c)

	if !slices.Equal(h.stage.BreakdownBegins, []stage.Position{stage.PositionRight}) {
		t.Errorf("breakdown begins = %v", h.stage.BreakdownBegins)
	}
}

func TestConversation_SceneTransition(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: leave
      actions:
        - MoveToLocation: {location: detention_center, transition: fade}
        - ShowDialog: {text: "Let's go."}
        - EndCase:
`
	h := newHarness(t)
	h.run(t, loadOne(t, src))

	want := []stage.Transition{{Kind: stage.TransitionEndCase}}
	if !slices.Equal(h.scene.Transitions, want) {
		t.Fatalf("transitions = %+v, want only the last request %+v", h.scene.Transitions, want)
	}
}

func TestConversation_EnableAndLockConversation(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: first
      actions:
        - EnableConversation: {conversation: second}
        - Notification: {text: "New topic."}
        - LockConversation:
            conversation: second
            unlock_conditions:
              - PartnerPresent: {partner: maya}
  - Conversation:
      id: second
      enabled: false
      actions:
        - ShowDialog: {text: "..."}
`
	h := newHarness(t)
	cat, err := script.NewCatalog(load(t, src)...)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	h.env.Conversations = cat
	first, _ := cat.Conversation("first")
	second, _ := cat.Conversation("second")

	h.run(t, first)

	if !second.IsEnabled() {
		t.Error("second not enabled")
	}
	if !second.IsLocked(h.store) {
		t.Error("second not locked")
	}
	h.store.SetCurrentPartner("maya")
	if !second.IsUnlocked(h.store) {
		t.Error("second not unlocked with maya present")
	}
	if got := h.texts(); !slices.Equal(got, []string{"New topic."}) {
		t.Errorf("lines = %v", got)
	}
}

func TestConversation_AuthoringFault(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: cutscene
      actions:
        - EnableCutscene: {cutscene: flashback}
`
	h := newHarness(t)
	h.env.Cutscenes = nil
	c := loadOne(t, src)

	err := h.runErr(t, c)
	if !errors.Is(err, script.ErrAuthoring) {
		t.Fatalf("error = %v, want ErrAuthoring", err)
	}
	if c.IsRunning() {
		t.Error("IsRunning = true after a fault")
	}
	if got := h.sum(t, "casescript.authoring_faults"); got != 1 {
		t.Errorf("authoring_faults = %d, want 1", got)
	}
}

func TestConversation_WaitTakesItsTime(t *testing.T) {
	t.Parallel()

	const src = `
conversations:
  - Conversation:
      id: wait
      actions:
        - Wait: {duration_ms: 160}
`
	h := newHarness(t)
	c := loadOne(t, src)
	h.begin(t, c)

	frames := 0
	h.until(t, c, func() bool {
		frames++
		return c.IsFinished()
	})
	if elapsed := time.Duration(frames-1) * frame; elapsed < 160*time.Millisecond {
		t.Errorf("finished after %v, want at least 160ms", elapsed)
	}
}
