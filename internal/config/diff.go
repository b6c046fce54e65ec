package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	FastForwardChanged bool
	NewFastForward     bool

	// ScriptsChanged is true when scripts.files changed. Scripts are
	// reloaded between runs, never during one.
	ScriptsChanged bool
	AddedScripts   []string
	RemovedScripts []string
}

// IsEmpty reports whether nothing hot-reloadable changed.
func (d ConfigDiff) IsEmpty() bool {
	return !d.LogLevelChanged && !d.FastForwardChanged && !d.ScriptsChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Player.FastForward != new.Player.FastForward {
		d.FastForwardChanged = true
		d.NewFastForward = new.Player.FastForward
	}

	for _, f := range new.Scripts.Files {
		if !slices.Contains(old.Scripts.Files, f) {
			d.AddedScripts = append(d.AddedScripts, f)
		}
	}
	for _, f := range old.Scripts.Files {
		if !slices.Contains(new.Scripts.Files, f) {
			d.RemovedScripts = append(d.RemovedScripts, f)
		}
	}
	d.ScriptsChanged = len(d.AddedScripts) > 0 || len(d.RemovedScripts) > 0

	return d
}
