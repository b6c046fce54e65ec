package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MrWong99/casescript/internal/config"
	"github.com/MrWong99/casescript/pkg/audio"
	"github.com/MrWong99/casescript/pkg/dialog"
	"github.com/MrWong99/casescript/pkg/menu"
	"github.com/MrWong99/casescript/pkg/stage"
)

func TestAutoDialog_Answers(t *testing.T) {
	t.Parallel()

	evidence := func() []string { return []string{"knife", "photo"} }

	tests := []struct {
		name     string
		autoplay bool
		line     dialog.Line
		want     []dialog.Event
	}{
		{
			name: "normal line",
			line: dialog.Line{Text: "hi"},
		},
		{
			name: "prompt declined without autoplay",
			line: dialog.Line{Mode: dialog.ModePresentEvidence, ContentID: "p"},
			want: []dialog.Event{{Kind: dialog.EventEndRequested}},
		},
		{
			name:     "prompt answered with autoplay",
			autoplay: true,
			line:     dialog.Line{Mode: dialog.ModePresentEvidence, ContentID: "p"},
			want:     []dialog.Event{{Kind: dialog.EventEvidencePresented, Value: "knife"}},
		},
		{
			name:     "first hearing of a statement",
			autoplay: true,
			line:     dialog.Line{Mode: dialog.ModeInterrogation, ContentID: "s", CanPresent: true},
		},
		{
			name:     "heard statement is challenged",
			autoplay: true,
			line:     dialog.Line{Mode: dialog.ModeInterrogation, ContentID: "s", Seen: true, CanPresent: true},
			want:     []dialog.Event{{Kind: dialog.EventEvidencePresented, Value: "knife"}},
		},
		{
			name: "heard statement without autoplay",
			line: dialog.Line{Mode: dialog.ModeInterrogation, ContentID: "s", Seen: true, CanPresent: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := newAutoDialog(nil, tt.autoplay, evidence)

			var got []dialog.Event
			d.Begin(tt.line, func(ev dialog.Event) { got = append(got, ev) })
			if d.IsFinished() {
				t.Fatal("line finished before the first update")
			}
			d.Update(0)
			if !d.IsFinished() {
				t.Fatal("line not finished after one update")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("events = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAutoDialog_TriesEachEvidenceOnce(t *testing.T) {
	t.Parallel()

	d := newAutoDialog(nil, true, func() []string { return []string{"knife", "photo"} })
	line := dialog.Line{Mode: dialog.ModeInterrogation, ContentID: "s", Seen: true, CanPresent: true, CanEnd: true}

	var got []dialog.Event
	for range 3 {
		d.Begin(line, func(ev dialog.Event) { got = append(got, ev) })
		d.Update(0)
	}
	want := []dialog.Event{
		{Kind: dialog.EventEvidencePresented, Value: "knife"},
		{Kind: dialog.EventEvidencePresented, Value: "photo"},
		{Kind: dialog.EventEndRequested},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAutoDialog_Transcript(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	d := newAutoDialog(&out, false, nil)
	d.Begin(dialog.Line{SpeakerID: "judge", Text: "Order!"}, nil)
	d.Begin(dialog.Line{Text: "Evidence added.", Mode: dialog.ModeNotification}, nil)
	d.Finish()
	d.Reset()
	d.Update(0)

	want := "judge: Order!\n[notification] -: Evidence added.\n"
	if out.String() != want {
		t.Errorf("transcript = %q, want %q", out.String(), want)
	}
	if d.lines != 2 {
		t.Errorf("lines = %d, want 2", d.lines)
	}
}

func TestAutoMenu(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	m := newAutoMenu(&out)
	var clicked []string
	m.OnClick(func(id string) { clicked = append(clicked, id) })
	m.Load([]menu.Option{
		{ID: "a", Text: "Ask again", Visited: true},
		{ID: "b", Text: "Something new"},
	})

	m.Update(0)
	if len(clicked) != 0 {
		t.Fatal("clicked before the menu was shown")
	}
	m.Show()
	if m.IsClosed() {
		t.Error("menu closed after Show")
	}
	m.Update(0)
	m.Update(0)
	if len(clicked) != 1 || clicked[0] != "b" {
		t.Errorf("clicked = %v, want the unvisited option once", clicked)
	}
	m.Close()
	if !m.IsClosed() {
		t.Error("menu open after Close")
	}
	if !strings.Contains(out.String(), "Something new") {
		t.Errorf("transcript = %q", out.String())
	}

	m.Load([]menu.Option{{ID: "a", Visited: true}})
	m.Show()
	m.Update(0)
	if clicked[len(clicked)-1] != "a" {
		t.Errorf("clicked = %v, want the only option when all are visited", clicked)
	}
}

func TestLogAudio(t *testing.T) {
	t.Parallel()

	p := newLogAudio()
	p.Play(audio.Music, "trial")
	p.Play(audio.Ambiance, "rain")
	p.Pause(audio.Music, false)
	if got := p.Current(audio.Music); got != "trial" {
		t.Errorf("paused music = %q, want it still current", got)
	}
	p.Stop(audio.Ambiance, true)
	if got := p.Current(audio.Ambiance); got != "" {
		t.Errorf("stopped ambiance = %q", got)
	}
}

func TestLogScene(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := &logScene{out: &out}
	if _, ok := s.last(); ok {
		t.Error("last() reports a transition before any")
	}
	s.Transition(stage.Transition{Kind: stage.TransitionEndCase})
	s.Transition(stage.Transition{Kind: stage.TransitionLocation, Target: "lobby"})
	if tr, ok := s.last(); !ok || tr.Target != "lobby" {
		t.Errorf("last() = %+v, %v", tr, ok)
	}
	if !strings.Contains(out.String(), "=> location lobby") {
		t.Errorf("transcript = %q", out.String())
	}
}

func TestSkipInput(t *testing.T) {
	t.Parallel()

	var in skipInput
	if in.FastForwardHeld() {
		t.Error("held by default")
	}
	in.held.Store(true)
	if !in.FastForwardHeld() {
		t.Error("not held after Store(true)")
	}
}

func TestApp_EnvSkipAllowedIsNotHeld(t *testing.T) {
	t.Parallel()
	a := &App{cfg: &config.Config{Player: config.PlayerConfig{MaxStepsPerTick: 7}}}
	a.SetFastForward(true)
	a.HoldSkip(false)

	env := a.env()
	if !env.FastForward {
		t.Error("FastForward = false with skipping allowed")
	}
	if env.Input.FastForwardHeld() {
		t.Error("skip control held after HoldSkip(false)")
	}
	if env.MaxSteps != 7 {
		t.Errorf("MaxSteps = %d, want 7", env.MaxSteps)
	}

	// The run keeps polling the same control.
	a.HoldSkip(true)
	if !env.Input.FastForwardHeld() {
		t.Error("skip control not held after HoldSkip(true)")
	}

	a.SetFastForward(false)
	if a.env().FastForward {
		t.Error("FastForward = true after disallowing skips")
	}
}
