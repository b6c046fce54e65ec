package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment
// overrides and defaults, and validates the result. An empty document
// yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv overrides fields of cfg from their CASESCRIPT_* environment
// variables. Unset variables leave the field unchanged.
func ParseEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Player
	if cfg.Player.FrameRate < 1 || cfg.Player.FrameRate > 1000 {
		errs = append(errs, fmt.Errorf("player.frame_rate %d is out of range [1, 1000]", cfg.Player.FrameRate))
	}
	if cfg.Player.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("player.max_frames %d must not be negative", cfg.Player.MaxFrames))
	}
	if cfg.Player.DetourDepth < 0 {
		errs = append(errs, fmt.Errorf("player.detour_depth %d must not be negative", cfg.Player.DetourDepth))
	}
	if cfg.Player.MaxStepsPerTick < 0 {
		errs = append(errs, fmt.Errorf("player.max_steps_per_tick %d must not be negative", cfg.Player.MaxStepsPerTick))
	}
	if cfg.Player.FastForward && !cfg.Player.Autoplay {
		slog.Warn("player.fast_forward without player.autoplay skips lines but still waits for input")
	}

	// Scripts
	if len(cfg.Scripts.Files) == 0 {
		errs = append(errs, errors.New("scripts.files is required"))
	}
	filesSeen := make(map[string]int, len(cfg.Scripts.Files))
	for i, f := range cfg.Scripts.Files {
		prefix := fmt.Sprintf("scripts.files[%d]", i)
		if strings.TrimSpace(f) == "" {
			errs = append(errs, fmt.Errorf("%s is empty", prefix))
			continue
		}
		if prev, ok := filesSeen[f]; ok {
			errs = append(errs, fmt.Errorf("%s %q is a duplicate of scripts.files[%d]", prefix, f, prev))
		}
		filesSeen[f] = i
	}

	// Annotations
	switch b := cfg.Annotations.Backend; {
	case b != "" && !b.IsValid():
		errs = append(errs, fmt.Errorf("annotations.backend %q is invalid; valid values: none, file, postgres", b))
	case b == BackendFile && cfg.Annotations.Path == "":
		errs = append(errs, errors.New("annotations.path is required when backend is file"))
	case b == BackendPostgres && cfg.Annotations.DSN == "":
		errs = append(errs, errors.New("annotations.dsn is required when backend is postgres"))
	}
	if cfg.Annotations.Fallback != "" && cfg.Annotations.Backend != BackendPostgres {
		errs = append(errs, errors.New("annotations.fallback is only used with the postgres backend"))
	}
	if strings.ContainsAny(cfg.Annotations.Slot, `/\`) {
		errs = append(errs, fmt.Errorf("annotations.slot %q must not contain path separators", cfg.Annotations.Slot))
	}

	return errors.Join(errs...)
}
