// Package buildmodel is the reference target-model implementation: the
// concrete Target identity, TargetType registry, and Loader that
// internal/fsstate consumes through its narrow interfaces (§1a).
//
// fsstate never constructs a Target itself; every identity it holds
// originates here, either from a live project scan (NewTarget) or from
// FSState.Load reconstituting a persisted id through a registered Loader.
package buildmodel

import "github.com/buildgraph/fsstate/internal/fsstate"

// BuildTarget is the concrete fsstate.Target: a (typeId, id) pair plus the
// module-build flag the round overlay gates on (§4.3). Comparable by value,
// so it is safe to use directly as a map key the way fsstate does.
type BuildTarget struct {
	typeID        string
	id            string
	isModuleBuild bool
}

// NewTarget constructs a BuildTarget. isModuleBuild should be true for
// targets that participate in the multi-round compile overlay (ordinary
// module compilation) and false for one-shot targets (e.g. an annotation
// processing pass or an artifact-packaging target) that the build driver
// never re-enters mid-chunk.
func NewTarget(typeID, id string, isModuleBuild bool) BuildTarget {
	return BuildTarget{typeID: typeID, id: id, isModuleBuild: isModuleBuild}
}

func (t BuildTarget) TypeID() string      { return t.typeID }
func (t BuildTarget) ID() string          { return t.id }
func (t BuildTarget) IsModuleBuild() bool { return t.isModuleBuild }

var _ fsstate.Target = BuildTarget{}
