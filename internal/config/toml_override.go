package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	fserrors "github.com/buildgraph/fsstate/internal/errors"
)

// OverrideFile is a per-user, per-machine file that tunes performance and
// persistence knobs without touching the checked-in project file — the
// same two-tier idea as the teacher's ~/.lci.kdl global config, but as a
// dedicated override format (TOML) rather than a second KDL document, since
// this file is meant to be hand-edited locally and never committed.
const OverrideFile = "fsstate.toml"

type overrideDoc struct {
	Performance struct {
		WatchDebounceMs *int  `toml:"watch_debounce_ms"`
		AlwaysScanFS    *bool `toml:"always_scan_fs"`
	} `toml:"performance"`
	Persistence struct {
		StatePath *string `toml:"state_path"`
	} `toml:"persistence"`
}

// ApplyOverride reads OverrideFile from dir, if present, and applies any
// fields it sets on top of cfg. A missing file is not an error.
func ApplyOverride(cfg *Config, dir string) error {
	path := filepath.Join(dir, OverrideFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fserrors.NewConfigError(OverrideFile, path, err)
	}

	var doc overrideDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fserrors.NewConfigError(OverrideFile, path, err)
	}

	if doc.Performance.WatchDebounceMs != nil {
		cfg.Performance.WatchDebounceMs = *doc.Performance.WatchDebounceMs
	}
	if doc.Performance.AlwaysScanFS != nil {
		cfg.Performance.AlwaysScanFS = *doc.Performance.AlwaysScanFS
	}
	if doc.Persistence.StatePath != nil {
		cfg.Persistence.StatePath = *doc.Persistence.StatePath
	}
	return nil
}

// Load resolves a project's configuration: ProjectFile (or Default if
// absent), then OverrideFile layered on top.
func Load(dir string) (*Config, error) {
	cfg, err := LoadKDL(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = Default(dir)
	}

	if err := ApplyOverride(cfg, dir); err != nil {
		return nil, err
	}
	return cfg, nil
}
