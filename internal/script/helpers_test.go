package script_test

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/casescript/internal/observe"
	"github.com/MrWong99/casescript/internal/script"
	"github.com/MrWong99/casescript/internal/script/yamlsrc"
	audiomock "github.com/MrWong99/casescript/pkg/audio/mock"
	"github.com/MrWong99/casescript/pkg/casefile"
	dialogmock "github.com/MrWong99/casescript/pkg/dialog/mock"
	menumock "github.com/MrWong99/casescript/pkg/menu/mock"
	stagemock "github.com/MrWong99/casescript/pkg/stage/mock"
)

const frame = 16 * time.Millisecond

// maxFrames bounds every drive loop so a broken script fails instead of
// hanging.
const maxFrames = 2000

type fakeInput struct{ held bool }

func (i *fakeInput) FastForwardHeld() bool { return i.held }

// harness bundles a run environment built from mocks.
type harness struct {
	store  *casefile.MemStore
	audio  *audiomock.Player
	stage  *stagemock.Stage
	scene  *stagemock.SceneDriver
	dialog *dialogmock.Dialog
	menu   *menumock.ButtonArray
	input  *fakeInput
	reader *sdkmetric.ManualReader
	env    *script.Env
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	h := &harness{
		store:  casefile.NewMemStore(casefile.Seed{}),
		audio:  audiomock.NewPlayer(),
		stage:  &stagemock.Stage{BreakdownComplete: true},
		scene:  &stagemock.SceneDriver{},
		dialog: &dialogmock.Dialog{},
		menu:   &menumock.ButtonArray{},
		input:  &fakeInput{},
		reader: reader,
	}
	h.env = &script.Env{
		Flags:       h.store,
		Evidence:    h.store,
		Partners:    h.store,
		Cutscenes:   h.store,
		Checkpoints: h.store,
		Audio:       h.audio,
		Stage:       h.stage,
		Dialog:      h.dialog,
		Menu:        h.menu,
		Scene:       h.scene,
		Input:       h.input,
		Metrics:     m,
	}
	return h
}

// load decodes a YAML script and returns its conversations.
func load(t *testing.T, src string) []*script.Conversation {
	t.Helper()
	r, err := yamlsrc.NewReader([]byte(src))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	convs, err := script.Load(r)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return convs
}

// loadOne decodes a YAML script holding exactly one conversation.
func loadOne(t *testing.T, src string) *script.Conversation {
	t.Helper()
	convs := load(t, src)
	if len(convs) != 1 {
		t.Fatalf("Load: got %d conversations, want 1", len(convs))
	}
	return convs[0]
}

// loadErr decodes a YAML script that is expected to fail.
func loadErr(t *testing.T, src string) error {
	t.Helper()
	r, err := yamlsrc.NewReader([]byte(src))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, err = script.Load(r)
	if err == nil {
		t.Fatal("Load: expected error, got nil")
	}
	return err
}

func (h *harness) begin(t *testing.T, c *script.Conversation) {
	t.Helper()
	if err := c.Begin(context.Background(), h.env); err != nil {
		t.Fatalf("Begin: %v", err)
	}
}

// tick runs one frame the way a game loop does: update, then draw.
func (h *harness) tick(c *script.Conversation) error {
	if err := c.Update(frame); err != nil {
		return err
	}
	c.DrawBackground()
	c.Draw()
	return nil
}

// step runs n frames and fails the test on any error.
func (h *harness) step(t *testing.T, c *script.Conversation, n int) {
	t.Helper()
	for range n {
		if err := h.tick(c); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
}

// until runs frames until cond holds.
func (h *harness) until(t *testing.T, c *script.Conversation, cond func() bool) {
	t.Helper()
	for range maxFrames {
		if cond() {
			return
		}
		if err := h.tick(c); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	t.Fatalf("condition not reached after %d frames", maxFrames)
}

// finish runs frames until c finishes.
func (h *harness) finish(t *testing.T, c *script.Conversation) {
	t.Helper()
	h.until(t, c, c.IsFinished)
}

// run begins c and plays it to the end.
func (h *harness) run(t *testing.T, c *script.Conversation) {
	t.Helper()
	h.begin(t, c)
	h.finish(t, c)
}

// runErr begins c and plays it until Update returns an error.
func (h *harness) runErr(t *testing.T, c *script.Conversation) error {
	t.Helper()
	h.begin(t, c)
	for range maxFrames {
		if err := h.tick(c); err != nil {
			return err
		}
		if c.IsFinished() {
			t.Fatal("conversation finished without error")
		}
	}
	t.Fatalf("no error after %d frames", maxFrames)
	return nil
}

// texts returns the text of every line shown so far.
func (h *harness) texts() []string {
	out := make([]string, 0, len(h.dialog.Lines))
	for _, l := range h.dialog.Lines {
		out = append(out, l.Text)
	}
	return out
}

// sum returns the total of every data point of the int64 sum metric name.
func (h *harness) sum(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			s, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is not an int64 sum", name)
			}
			var total int64
			for _, dp := range s.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}
