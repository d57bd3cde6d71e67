// Package fsstate is the in-memory file-system state (FSS) of an
// incremental builder: per-target dirty/deleted deltas, a multi-round
// overlay used within one build invocation, the concurrency discipline
// protecting each delta, and a versioned persisted form.
//
// fsstate owns none of its four collaborators — the target model, the root
// index, the compile scope, and the stamp store. It consumes them through
// the narrow interfaces declared in this file and makes no assumption about
// how they're implemented. Reference implementations live in sibling
// packages (internal/buildmodel, internal/rootindex, internal/compilescope,
// internal/stampstore) and are wired together by cmd/fsstate.
package fsstate

// Target is an opaque build-target identity: a (typeId, id) pair. Owned by
// the target model (internal/buildmodel); fsstate holds references to it
// keyed by identity, so the concrete type backing this interface must be
// comparable (a plain struct of string fields satisfies that).
type Target interface {
	TypeID() string
	ID() string
	// IsModuleBuild reports whether this target participates in the
	// RoundOverlay (§4.3: "Only module-build targets participate").
	IsModuleBuild() bool
}

// RootDescriptor is an opaque build-root descriptor: a directory associated
// with exactly one target, possibly holding generated (build-output) files.
// Owned by the root index (internal/rootindex).
type RootDescriptor interface {
	Target() Target
	IsGenerated() bool
}

// RootIndex maps file paths to the root descriptors that contain them and
// assigns/resolves the stable per-target integer IDs the wire format (§6)
// persists in place of a full descriptor.
type RootIndex interface {
	// FindAllParentDescriptors returns every root descriptor (across all
	// targets) whose directory contains file. Used by HasUnprocessedChanges
	// to decide whether a file is reachable only through a generated root.
	FindAllParentDescriptors(file string, ctx CompileContext) []RootDescriptor

	// RootID returns the stable integer persisted for root in the wire
	// format, scoped to root.Target(). ok is false if root is unknown to
	// this index.
	RootID(root RootDescriptor) (id uint32, ok bool)

	// ResolveRoot is RootID's inverse, used while loading a persisted delta.
	ResolveRoot(target Target, id uint32) (root RootDescriptor, ok bool)
}

// CompileScope is the predicate "is this file in scope for this target?".
// Owned by the compilation scheduler (out of the core's scope, §1c).
type CompileScope interface {
	IsAffected(target Target, file string) bool
}

// Stamp is an opaque fingerprint value produced and interpreted only by the
// stamp store implementation; fsstate never inspects it.
type Stamp interface{}

// StampStore is the companion fingerprint database keyed by (file, target).
// Owned externally (§1d); fsstate calls it to invalidate and to read/write
// stamps but never stores fingerprints itself (a Non-goal).
type StampStore interface {
	SaveStamp(file string, target Target, stamp Stamp) error
	RemoveStamp(file string, target Target) error
	CurrentStamp(file string) (Stamp, error)
}

// FS is the minimal filesystem clock fsstate needs: file modification time,
// in milliseconds since the epoch.
type FS interface {
	LastModified(file string) (int64, error)
}

// TargetTypeRegistry resolves a persisted type identifier to a TargetType
// capable of reconstituting target identities — the "target model" (§1a).
type TargetTypeRegistry interface {
	GetType(typeID string) (TargetType, bool)
}

// TargetType produces a Loader bound to the caller's project model. model
// is opaque to fsstate; it is forwarded unexamined from FSState.Load's
// caller to the target model.
type TargetType interface {
	CreateLoader(model interface{}) Loader
}

// Loader reconstitutes a Target identity from its persisted string id.
// Returns ok=false if id is no longer valid for this type (§7b).
type Loader interface {
	CreateTarget(id string) (Target, bool)
}

// Round selects which overlay slot a mark-dirty call targets, mirroring
// the "current-round" / "next-round" split of §4.3.
type Round int

const (
	RoundCurrent Round = iota
	RoundNext
)

// CompileContext is the typed-key attachment store a single build
// invocation carries (§6, §9 "Typed keys on context"). fsstate stores its
// RoundDeltaPair and ContextTargets into it via the slot keys declared in
// context.go; CompileContext owns the slots, fsstate owns only the key
// identities. The concrete implementation and its Scope/RootIndex/
// CompilationStartStamp accessors are supplied by the compilation driver
// (out of the core's scope, §1f) — internal/fsstate/context.go provides a
// minimal reference implementation for tests and the CLI.
type CompileContext interface {
	Scope() CompileScope
	RootIndex() RootIndex
	// CompilationStartStamp returns the wall-clock millisecond time
	// compilation of target began in this invocation, or <= 0 if no build
	// for that target is in progress.
	CompilationStartStamp(target Target) int64

	slot(key contextSlotKey) interface{}
	setSlot(key contextSlotKey, value interface{})
}
