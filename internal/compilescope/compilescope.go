// Package compilescope is the reference fsstate.CompileScope implementation:
// an include/exclude glob scope per target, matched with doublestar the way
// the project's exclusion patterns are matched (pipeline_types.go's
// shouldExcludeFast/shouldIncludeFast in the teacher).
package compilescope

import (
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/buildgraph/fsstate/internal/fsstate"
)

// Scope holds one target's include/exclude pattern lists. An empty include
// list means "include everything not excluded" — the teacher's default
// policy for its top-level Include/Exclude config.
type Scope struct {
	Include []string
	Exclude []string
}

// Registry is the reference fsstate.CompileScope: a Scope per target, plus
// exclusions shared across every target (build-artifact directories
// detected once for the whole project).
type Registry struct {
	mu       sync.RWMutex
	perTarget map[fsstate.Target]Scope
	shared    []string
}

// NewRegistry returns a registry with no per-target scopes and no shared
// exclusions.
func NewRegistry() *Registry {
	return &Registry{perTarget: make(map[fsstate.Target]Scope)}
}

// SetScope assigns target's include/exclude patterns.
func (r *Registry) SetScope(target fsstate.Target, scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perTarget[target] = scope
}

// SetSharedExclusions replaces the exclusion patterns applied to every
// target regardless of its own scope — e.g. detected build-output
// directories (node_modules, target/, dist/, ...).
func (r *Registry) SetSharedExclusions(patterns []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shared = append([]string(nil), patterns...)
}

// IsAffected implements fsstate.CompileScope: file is in scope for target
// iff it matches no exclusion (shared or target-specific) and, when the
// target declares an include list, matches at least one inclusion.
func (r *Registry) IsAffected(target fsstate.Target, file string) bool {
	r.mu.RLock()
	scope := r.perTarget[target]
	shared := r.shared
	r.mu.RUnlock()

	for _, pattern := range shared {
		if matches(pattern, file) {
			return false
		}
	}
	for _, pattern := range scope.Exclude {
		if matches(pattern, file) {
			return false
		}
	}
	if len(scope.Include) == 0 {
		return true
	}
	for _, pattern := range scope.Include {
		if matches(pattern, file) {
			return true
		}
	}
	return false
}

func matches(pattern, path string) bool {
	matched, err := doublestar.Match(pattern, path)
	return err == nil && matched
}

var _ fsstate.CompileScope = (*Registry)(nil)
