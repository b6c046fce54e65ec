// Package app wires the casescript subsystems into a headless player.
//
// The App struct owns the full lifecycle: New loads the case scripts and
// connects the annotation store, Run plays conversations frame by frame,
// and Shutdown tears everything down in order.
//
// For testing, inject collaborators via functional options (WithStore,
// WithCaseStore, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/casescript/internal/annotations"
	"github.com/MrWong99/casescript/internal/config"
	"github.com/MrWong99/casescript/internal/health"
	"github.com/MrWong99/casescript/internal/observe"
	"github.com/MrWong99/casescript/internal/resilience"
	"github.com/MrWong99/casescript/internal/script"
	"github.com/MrWong99/casescript/internal/script/yamlsrc"
	"github.com/MrWong99/casescript/pkg/casefile"
	"github.com/MrWong99/casescript/pkg/stage"
)

// ErrFrameLimit is returned for a run that did not finish within the
// configured number of frames.
var ErrFrameLimit = errors.New("app: frame limit exceeded")

// Result summarises one played conversation.
type Result struct {
	ID   string
	Kind script.Kind

	// Completed is the conversation's completion state after the run. It
	// stays true once any run has completed it.
	Completed  bool
	Frames     int
	Lines      int
	Transition *stage.Transition
}

// RunInfo describes the conversation currently being played.
type RunInfo struct {
	ConversationID string    `json:"conversation_id"`
	StartedAt      time.Time `json:"started_at"`
	Frames         int       `json:"frames"`
}

// Status is the snapshot served on the status endpoint.
type Status struct {
	Current       *RunInfo `json:"current,omitempty"`
	Played        int      `json:"played"`
	Conversations int      `json:"conversations"`
}

// App owns all subsystem lifetimes and plays the loaded case.
type App struct {
	cfg *config.Config

	// Subsystems, initialised in New and torn down in Shutdown.
	catalog    *script.Catalog
	cases      *casefile.MemStore
	store      annotations.Store
	metrics    *observe.Metrics
	transcript io.Writer

	// Headless collaborators shared by every run.
	dialog *autoDialog
	menu   *autoMenu
	audio  *logAudio
	stage  *logStage
	scene  *logScene
	input  skipInput

	// skipAllowed seeds Env.FastForward of each new run.
	skipAllowed atomic.Bool

	mu      sync.Mutex
	current *RunInfo
	results []Result

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects an annotation store instead of creating one from config.
func WithStore(s annotations.Store) Option {
	return func(a *App) { a.store = s }
}

// WithCaseStore injects the case state instead of seeding one from the
// loaded scripts.
func WithCaseStore(s *casefile.MemStore) Option {
	return func(a *App) { a.cases = s }
}

// WithMetrics injects the metrics instruments instead of
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithTranscript sets where played lines are written. Nil discards them.
func WithTranscript(w io.Writer) Option {
	return func(a *App) { a.transcript = w }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by loading every configured script and restoring the
// annotations saved in the configured slot. Use Option functions to inject
// test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.transcript == nil {
		a.transcript = io.Discard
	}

	// ── 1. Scripts ───────────────────────────────────────────────────────
	seed, err := a.initScripts(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: init scripts: %w", err)
	}

	// ── 2. Case state ────────────────────────────────────────────────────
	if a.cases == nil {
		a.cases = casefile.NewMemStore(seed)
	}

	// ── 3. Annotation store ──────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("app: init annotation store: %w", err)
	}

	// ── 4. Saved annotations ─────────────────────────────────────────────
	if err := a.restore(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("app: restore annotations: %w", err)
	}

	// ── 5. Headless collaborators ────────────────────────────────────────
	a.dialog = newAutoDialog(a.transcript, cfg.Player.Autoplay, func() []string {
		return a.cases.Seed().Evidence
	})
	a.menu = newAutoMenu(a.transcript)
	a.audio = newLogAudio()
	a.stage = &logStage{}
	a.scene = &logScene{out: a.transcript}
	a.skipAllowed.Store(cfg.Player.FastForward)
	a.input.held.Store(true)

	if _, err := a.playlist(); err != nil {
		a.close()
		return nil, fmt.Errorf("app: %w", err)
	}
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

type loadedFile struct {
	convs []*script.Conversation
	seed  casefile.Seed
}

// initScripts loads the script files concurrently and adds their
// conversations to the catalog in file order. The case seeds of all files
// are merged.
func (a *App) initScripts(ctx context.Context) (casefile.Seed, error) {
	files := a.cfg.Scripts.Files
	loaded := make([]loadedFile, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lf, err := loadFile(path)
			if err != nil {
				a.metrics.RecordAuthoringFault(gctx, "load")
				return fmt.Errorf("load %q: %w", path, err)
			}
			loaded[i] = lf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return casefile.Seed{}, err
	}

	var (
		seed  casefile.Seed
		convs []*script.Conversation
	)
	for i, lf := range loaded {
		convs = append(convs, lf.convs...)
		seed = mergeSeed(seed, lf.seed)
		slog.Info("loaded case script", "path", files[i], "conversations", len(lf.convs))
	}
	catalog, err := script.NewCatalog(convs...)
	if err != nil {
		a.metrics.RecordAuthoringFault(ctx, "load")
		return casefile.Seed{}, err
	}
	a.catalog = catalog
	return seed, nil
}

// loadFile reads the conversations of one script file and its optional
// "case" section holding the initial case state.
func loadFile(path string) (loadedFile, error) {
	r, err := yamlsrc.ReadFile(path)
	if err != nil {
		return loadedFile{}, err
	}
	convs, err := script.Load(r)
	if err != nil {
		return loadedFile{}, err
	}
	seed, err := readSeed(r)
	if err != nil {
		return loadedFile{}, err
	}
	return loadedFile{convs: convs, seed: seed}, nil
}

func readSeed(r script.Reader) (casefile.Seed, error) {
	var seed casefile.Seed
	if !r.Has("case") {
		return seed, nil
	}
	if err := r.Enter("case"); err != nil {
		return seed, err
	}
	var errs []error
	list := func(name string) []string {
		if !r.Has(name) {
			return nil
		}
		v, err := r.ReadTextList(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("case: %w", err))
		}
		return v
	}
	seed.Flags = list("flags")
	seed.Evidence = list("evidence")
	seed.Cutscenes = list("cutscenes")
	if r.Has("partner") {
		p, err := r.ReadText("partner")
		if err != nil {
			errs = append(errs, fmt.Errorf("case: %w", err))
		}
		seed.Partner = p
	}
	if err := r.Exit(); err != nil {
		errs = append(errs, err)
	}
	return seed, errors.Join(errs...)
}

// mergeSeed adds the state of b to a. A partner set in b wins.
func mergeSeed(a, b casefile.Seed) casefile.Seed {
	a.Flags = append(a.Flags, b.Flags...)
	a.Evidence = append(a.Evidence, b.Evidence...)
	a.Cutscenes = append(a.Cutscenes, b.Cutscenes...)
	if b.Partner != "" {
		a.Partner = b.Partner
	}
	return a
}

// initStore sets up the configured annotation backend unless one was injected.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	switch a.cfg.Annotations.Backend {
	case config.BackendFile:
		s, err := annotations.NewFileStore(a.cfg.Annotations.Path)
		if err != nil {
			return err
		}
		a.store = s
	case config.BackendPostgres:
		return a.initPostgres(ctx)
	default:
		slog.Info("annotation persistence disabled")
	}
	return nil
}

// initPostgres connects the database. With a fallback directory configured,
// saves are mirrored there and a database that cannot be reached at start
// leaves the fallback serving alone.
func (a *App) initPostgres(ctx context.Context) error {
	ann := a.cfg.Annotations
	pg, err := annotations.Open(ctx, ann.DSN)
	if ann.Fallback == "" {
		if err != nil {
			return err
		}
		a.store = pg
		a.closers = append(a.closers, func() error {
			pg.Close()
			return nil
		})
		return nil
	}

	files, ferr := annotations.NewFileStore(ann.Fallback)
	if ferr != nil {
		if pg != nil {
			pg.Close()
		}
		return ferr
	}
	if err != nil {
		slog.Warn("postgres unreachable, saving to fallback directory only", "err", err, "path", ann.Fallback)
		a.store = files
		return nil
	}
	a.closers = append(a.closers, func() error {
		pg.Close()
		return nil
	})
	a.store = resilience.NewStore(
		resilience.BreakerConfig{
			OnStateChange: func(name string, _, to resilience.State) {
				a.metrics.RecordBreakerTransition(context.Background(), name, to.String())
			},
		},
		resilience.Backend{Name: "postgres", Store: pg},
		resilience.Backend{Name: "file", Store: files},
	)
	return nil
}

// restore applies the annotations saved in the configured slot. A slot that
// was never saved is not an error.
func (a *App) restore(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	slot := a.cfg.Annotations.Slot
	anns, err := a.store.Load(ctx, slot)
	if errors.Is(err, annotations.ErrNotFound) {
		slog.Info("no saved annotations", "slot", slot)
		return nil
	}
	if err != nil {
		return err
	}
	skipped, err := a.catalog.Apply(anns)
	if len(skipped) > 0 {
		slog.Warn("saved annotations for unknown conversations ignored", "slot", slot, "ids", skipped)
	}
	if err != nil {
		return err
	}
	slog.Info("restored annotations", "slot", slot, "conversations", len(anns)-len(skipped))
	return nil
}

// playlist returns the conversations named in scripts.play, or nil when
// every enabled conversation is played.
func (a *App) playlist() ([]*script.Conversation, error) {
	var (
		out  []*script.Conversation
		errs []error
	)
	for _, id := range a.cfg.Scripts.Play {
		conv, ok := a.catalog.Conversation(id)
		if !ok {
			errs = append(errs, fmt.Errorf("scripts.play: unknown conversation %q", id))
			continue
		}
		out = append(out, conv)
	}
	return out, errors.Join(errs...)
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Catalog returns the loaded conversations.
func (a *App) Catalog() *script.Catalog { return a.catalog }

// Cases returns the case state the conversations read and mutate.
func (a *App) Cases() *casefile.MemStore { return a.cases }

// Results returns the results of every run played so far.
func (a *App) Results() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Result(nil), a.results...)
}

// Current returns the run in progress, if any. Safe for concurrent use.
func (a *App) Current() (RunInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return RunInfo{}, false
	}
	return *a.current, true
}

// Status returns a snapshot of the player. Safe for concurrent use.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := Status{Played: len(a.results), Conversations: a.catalog.Len()}
	if a.current != nil {
		cur := *a.current
		st.Current = &cur
	}
	return st
}

// Checkers returns the readiness checks of the player: at least one
// conversation is loaded and the annotation store, if any, answers.
func (a *App) Checkers() []health.Checker {
	return []health.Checker{
		{Name: "scripts", Check: func(context.Context) error {
			if a.catalog.Len() == 0 {
				return errors.New("no conversations loaded")
			}
			return nil
		}},
		{Name: "annotations", Check: func(ctx context.Context) error {
			if a.store == nil {
				return nil
			}
			_, err := a.store.Slots(ctx)
			return err
		}},
	}
}

// SetFastForward changes whether runs may skip lines already seen. It
// applies from the next run and is safe for concurrent use.
func (a *App) SetFastForward(v bool) {
	a.skipAllowed.Store(v)
}

// HoldSkip presses or releases the skip control. The headless player holds
// it by default; a change takes effect on the next frame.
func (a *App) HoldSkip(v bool) {
	a.input.held.Store(v)
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run plays the conversations listed in scripts.play in order, or every
// enabled conversation in catalog order, and saves the annotations after
// each run. Authoring faults and frame-limit overruns end the affected run;
// the remaining conversations are still played and the errors are returned
// joined. Run stops early when ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	convs, err := a.playlist()
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	explicit := len(convs) > 0
	if !explicit {
		convs = a.catalog.Conversations()
	}

	var errs []error
	for _, conv := range convs {
		if !explicit && !conv.IsEnabled() {
			slog.Debug("skipping disabled conversation", "id", conv.ID)
			continue
		}
		res, err := a.play(ctx, conv)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		a.mu.Lock()
		a.results = append(a.results, res)
		a.mu.Unlock()

		if err := a.save(ctx); err != nil {
			slog.Warn("failed to save annotations", "err", err)
		}
	}

	slog.Info("case played", "runs", len(a.Results()), "failed", len(errs))
	return errors.Join(errs...)
}

// play runs conv to completion, one Update per frame.
func (a *App) play(ctx context.Context, conv *script.Conversation) (Result, error) {
	env := a.env()
	if err := conv.Begin(ctx, env); err != nil {
		return Result{}, err
	}
	log := observe.Logger(conv.State().Context()).With("conversation", conv.ID)
	log.Info("run started", "kind", conv.Kind())

	a.mu.Lock()
	a.current = &RunInfo{ConversationID: conv.ID, StartedAt: time.Now()}
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.current = nil
		a.mu.Unlock()
	}()

	delta := time.Second / time.Duration(a.cfg.Player.FrameRate)
	var tick <-chan time.Time
	if a.cfg.Player.Realtime {
		t := time.NewTicker(delta)
		defer t.Stop()
		tick = t.C
	}

	lines := a.dialog.lines
	transitions := len(a.scene.transitions)
	frames := 0
	for !conv.IsFinished() {
		if err := ctx.Err(); err != nil {
			conv.Reset()
			return Result{}, err
		}
		if limit := a.cfg.Player.MaxFrames; limit > 0 && frames >= limit {
			conv.Reset()
			return Result{}, fmt.Errorf("%w: %q after %d frames", ErrFrameLimit, conv.ID, frames)
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				conv.Reset()
				return Result{}, ctx.Err()
			case <-tick:
			}
		}

		start := time.Now()
		if err := conv.Update(delta); err != nil {
			return Result{}, err
		}
		conv.DrawBackground()
		conv.Draw()
		a.metrics.FrameDuration.Record(ctx, time.Since(start).Seconds())

		frames++
		a.mu.Lock()
		a.current.Frames = frames
		a.mu.Unlock()
	}

	res := Result{
		ID:        conv.ID,
		Kind:      conv.Kind(),
		Completed: conv.IsCompleted(),
		Frames:    frames,
		Lines:     a.dialog.lines - lines,
	}
	if t, ok := a.scene.last(); ok && len(a.scene.transitions) > transitions {
		res.Transition = &t
	}
	log.Info("run finished", "completed", res.Completed, "frames", frames, "lines", res.Lines)
	return res, nil
}

// env builds the collaborators of one run.
func (a *App) env() *script.Env {
	return &script.Env{
		Flags:         a.cases,
		Evidence:      a.cases,
		Partners:      a.cases,
		Cutscenes:     a.cases,
		Checkpoints:   a.cases,
		Audio:         a.audio,
		Stage:         a.stage,
		Dialog:        a.dialog,
		Menu:          a.menu,
		Conversations: a.catalog,
		Scene:         a.scene,
		Input:         &a.input,
		FastForward:   a.skipAllowed.Load(),
		DetourDepth:   a.cfg.Player.DetourDepth,
		MaxSteps:      a.cfg.Player.MaxStepsPerTick,
		Metrics:       a.metrics,
	}
}

// save writes the current annotations to the configured slot.
func (a *App) save(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	return a.store.Save(ctx, a.cfg.Annotations.Slot, a.catalog.Annotations())
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// close runs the closers registered so far after a failed New.
func (a *App) close() {
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			slog.Warn("closer error", "err", err)
		}
	}
	a.closers = nil
}
