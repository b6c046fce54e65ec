// Command casescript plays the conversations of a case script headlessly,
// frame by frame, printing every line to a transcript.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/casescript/internal/app"
	"github.com/MrWong99/casescript/internal/config"
	"github.com/MrWong99/casescript/internal/health"
	"github.com/MrWong99/casescript/internal/observe"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "casescript.yaml", "path to the YAML configuration file")
	play := flag.String("play", "", "comma-separated conversation ids to play instead of scripts.play")
	transcriptPath := flag.String("transcript", "-", "file the transcript is written to; - for stdout")
	watch := flag.Bool("watch", false, "reload log level and fast-forward when the config file changes")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "casescript: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "casescript: %v\n", err)
		}
		return 1
	}
	if *play != "" {
		cfg.Scripts.Play = strings.Split(*play, ",")
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("casescript starting",
		"version", version,
		"config", *configPath,
		"scripts", len(cfg.Scripts.Files),
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	tel, err := observe.StartTelemetry(observe.TelemetryOptions{
		Service:    cfg.Telemetry.ServiceName,
		Version:    version,
		Registerer: registry,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Transcript ────────────────────────────────────────────────────────────
	var transcript io.Writer = os.Stdout
	if *transcriptPath != "-" {
		f, err := os.Create(*transcriptPath)
		if err != nil {
			slog.Error("failed to create transcript", "err", err)
			return 1
		}
		defer f.Close()
		transcript = f
	}

	application, err := app.New(ctx, cfg,
		app.WithTranscript(transcript),
		app.WithMetrics(tel.Metrics),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Metrics and probes ────────────────────────────────────────────────────
	if cfg.Server.MetricsAddr != "" {
		probes := health.New(func() any { return application.Status() }, application.Checkers()...)
		srv := metricsServer(cfg.Server.MetricsAddr, registry, tel.Metrics, probes)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics listener error", "err", err)
			}
		}()
		defer srv.Close()
		slog.Info("metrics listener started", "addr", cfg.Server.MetricsAddr)
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	if *watch {
		w, err := config.NewWatcher(*configPath, func(_, _ *config.Config, diff config.ConfigDiff) {
			if diff.LogLevelChanged {
				level.Set(slogLevel(diff.NewLogLevel))
			}
			if diff.FastForwardChanged {
				application.SetFastForward(diff.NewFastForward)
			}
			if diff.ScriptsChanged {
				slog.Warn("script list changed; restart to load it",
					"added", diff.AddedScripts, "removed", diff.RemovedScripts)
			}
		})
		if err != nil {
			slog.Error("failed to watch config", "err", err)
			return 1
		}
		defer w.Stop()
	}

	exit := 0
	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("interrupted")
		} else {
			slog.Error("run error", "err", err)
			exit = 1
		}
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	return exit
}

// metricsServer serves the Prometheus registry on /metrics next to the
// health probes.
func metricsServer(addr string, registry *prometheus.Registry, m *observe.Metrics, probes *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	probes.Register(mux)
	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(m)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
