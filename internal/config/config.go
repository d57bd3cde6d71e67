// Package config resolves an fsstate project's configuration: which target
// types exist, what roots and scope each declares, and the ambient
// performance/persistence knobs. It mirrors the teacher's layered loading
// (internal/config/config.go, kdl_config.go): a project file
// (.fsstate.kdl) holding the target model, optionally overridden by a
// per-user file (fsstate.toml) for machine-local tuning (debounce, state
// path) that should never be checked into the project file.
package config

// Config is the fully resolved configuration driving cmd/fsstate.
type Config struct {
	Project     Project
	Targets     []TargetConfig
	Performance Performance
	Persistence Persistence
}

// Project identifies the root directory the project file was resolved
// against.
type Project struct {
	Root string
	Name string
}

// TargetConfig declares one target type: its persisted type id, whether it
// participates in the round overlay, its source roots, and its compile
// scope globs.
type TargetConfig struct {
	TypeID        string
	IsModuleBuild bool
	Roots         []RootConfig
	Include       []string
	Exclude       []string
}

// RootConfig is one source directory belonging to a TargetConfig.
type RootConfig struct {
	Dir       string
	Generated bool
}

// Performance holds the ambient tuning knobs (§10): watch debounce and
// whether the façade should always re-scan the filesystem rather than
// trust IsInitialScanPerformed (§3).
type Performance struct {
	WatchDebounceMs int
	AlwaysScanFS    bool
}

// Persistence holds where the saved FSS record lives.
type Persistence struct {
	StatePath string
}

// Default returns the configuration used when no .fsstate.kdl is present:
// a single generic target type rooted at the project directory, no scope
// restrictions, 300ms debounce, state saved alongside the project root.
func Default(projectRoot string) *Config {
	return &Config{
		Project: Project{Root: projectRoot},
		Targets: []TargetConfig{
			{
				TypeID:        "module",
				IsModuleBuild: true,
				Roots:         []RootConfig{{Dir: projectRoot}},
			},
		},
		Performance: Performance{
			WatchDebounceMs: 300,
			AlwaysScanFS:    false,
		},
		Persistence: Persistence{
			StatePath: ".fsstate/state.bin",
		},
	}
}
