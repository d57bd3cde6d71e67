package fsstate

import (
	"sync"
	"time"
)

// FSState is the top-level façade (§4.4): it owns the target→delta mapping,
// the initialScanPerformed set, and EventStamps, and coordinates every
// public operation a compilation driver calls.
type FSState struct {
	// stateMu is lock #1 in the acquisition order (§5): the deltas map and
	// initialScanPerformed set are both process-wide and only ever held
	// briefly for a lookup-or-create or set mutation, never across a
	// FilesDelta lock acquisition.
	stateMu              sync.Mutex
	deltas               map[Target]*FilesDelta
	initialScanPerformed map[Target]struct{}

	eventStamps *EventStamps

	fs FS

	// alwaysScanFS forces IsInitialScanPerformed to always report false
	// (§3): the system never trusts event-based tracking and always
	// re-scans.
	alwaysScanFS bool
}

// NewFSState constructs an empty façade. fs supplies LastModified for
// MarkAllUpToDate and HasUnprocessedChanges.
func NewFSState(fs FS, alwaysScanFS bool) *FSState {
	return &FSState{
		deltas:               make(map[Target]*FilesDelta),
		initialScanPerformed: make(map[Target]struct{}),
		eventStamps:          NewEventStamps(),
		fs:                   fs,
		alwaysScanFS:         alwaysScanFS,
	}
}

// getOrCreateDelta returns the per-target delta, creating it on first
// reference. Only ever holds stateMu; never acquires the returned delta's
// lock.
func (s *FSState) getOrCreateDelta(target Target) *FilesDelta {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	delta, ok := s.deltas[target]
	if !ok {
		delta = NewFilesDelta()
		s.deltas[target] = delta
	}
	return delta
}

// getDelta returns the per-target delta without creating one.
func (s *FSState) getDelta(target Target) (*FilesDelta, bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	delta, ok := s.deltas[target]
	return delta, ok
}

// MarkInitialScanPerformed adds target to initialScanPerformed.
func (s *FSState) MarkInitialScanPerformed(target Target) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.initialScanPerformed[target] = struct{}{}
}

// IsInitialScanPerformed reports whether an initial filesystem scan has
// been declared complete for target (§3): always false when alwaysScanFS
// is set, regardless of what initialScanPerformed records.
func (s *FSState) IsInitialScanPerformed(target Target) bool {
	if s.alwaysScanFS {
		return false
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	_, ok := s.initialScanPerformed[target]
	return ok
}

// HasWorkToDo reports true when no initial scan has been recorded for
// target, or the per-target delta has pending changes — even an empty
// delta counts as work to do until the initial scan is declared.
func (s *FSState) HasWorkToDo(target Target) bool {
	s.stateMu.Lock()
	_, scanned := s.initialScanPerformed[target]
	delta, ok := s.deltas[target]
	s.stateMu.Unlock()

	if !scanned {
		return true
	}
	if !ok {
		return false
	}
	return delta.HasChanges()
}

// ClearAll resets the façade to its initial empty state: empties
// initialScanPerformed, deltas, and eventStamps. It takes no context, so no
// round-overlay or chunk-targets slot of any CompileContext is touched.
func (s *FSState) ClearAll() {
	s.stateMu.Lock()
	s.initialScanPerformed = make(map[Target]struct{})
	s.deltas = make(map[Target]*FilesDelta)
	s.stateMu.Unlock()

	s.eventStamps.Clear()
}

// MarkDirty is the dirty-marking entry point (§4.4). It mirrors the mark
// into the active round overlay (gated on the root's target being part of
// the chunk recorded by BeforeChunkBuildStart) before locking and mutating
// the authoritative per-target delta, which alone determines the return
// value. An error from stamps.RemoveStamp is not reported to the caller.
func (s *FSState) MarkDirty(ctx CompileContext, round Round, file string, root RootDescriptor, stamps StampStore, saveEventStamp bool) bool {
	s.mirrorToOverlay(ctx, round, root, file, false)

	target := root.Target()
	delta := s.getOrCreateDelta(target)
	delta.Lock()
	marked := delta.markRecompileLocked(root, file)
	delta.Unlock()

	if marked {
		if saveEventStamp {
			s.eventStamps.Put(file, nowMillis())
		}
		if stamps != nil {
			_ = stamps.RemoveStamp(file, target)
		}
	}
	return marked
}

// MarkDirtyIfNotDeleted is MarkDirty using the if-not-deleted policy, and
// never writes an event stamp. As in MarkDirty, an error from
// stamps.RemoveStamp is not reported to the caller.
func (s *FSState) MarkDirtyIfNotDeleted(ctx CompileContext, round Round, file string, root RootDescriptor, stamps StampStore) bool {
	s.mirrorToOverlay(ctx, round, root, file, true)

	target := root.Target()
	delta := s.getOrCreateDelta(target)
	marked := delta.MarkRecompileIfNotDeleted(root, file)

	if marked && stamps != nil {
		_ = stamps.RemoveStamp(file, target)
	}
	return marked
}

// mirrorToOverlay mirrors a mark into the overlay delta for round, gated by
// the chunk-targets set (ifNotDeleted only selects which primitive the
// overlay uses, matching the façade call; deletions never pass through here,
// see RegisterDeleted). The overlay
// delta's own return value is discarded (§9 "Unresolved behavior"): the
// per-target delta alone is the authoritative "was this newly dirty?"
// signal.
func (s *FSState) mirrorToOverlay(ctx CompileContext, round Round, root RootDescriptor, file string, ifNotDeleted bool) {
	overlay := s.overlayDelta(ctx, round)
	if overlay == nil {
		return
	}
	targets := s.chunkContextTargets(ctx)
	if _, inChunk := targets[root.Target()]; !inChunk {
		return
	}
	if ifNotDeleted {
		overlay.MarkRecompileIfNotDeleted(root, file)
	} else {
		overlay.MarkRecompile(root, file)
	}
}

// RegisterDeleted adds file to the per-target delta's deleted set and to
// both round-overlay deltas if present — unconditionally, the
// context-targets gate that guards MarkDirty does not apply to deletions.
func (s *FSState) RegisterDeleted(ctx CompileContext, target Target, file string, stamps StampStore) error {
	if current := s.overlayDelta(ctx, RoundCurrent); current != nil {
		current.AddDeleted(file)
	}
	if next := s.overlayDelta(ctx, RoundNext); next != nil {
		next.AddDeleted(file)
	}

	delta := s.getOrCreateDelta(target)
	delta.AddDeleted(file)

	if stamps != nil {
		return stamps.RemoveStamp(file, target)
	}
	return nil
}

// ClearDeletedPaths delegates to the per-target delta, if one exists.
func (s *FSState) ClearDeletedPaths(target Target) {
	if delta, ok := s.getDelta(target); ok {
		delta.ClearDeletedPaths()
	}
}

// GetAndClearDeletedPaths delegates to the per-target delta, if one exists.
func (s *FSState) GetAndClearDeletedPaths(target Target) []string {
	delta, ok := s.getDelta(target)
	if !ok {
		return nil
	}
	return delta.GetAndClearDeletedPaths()
}

// Visitor is invoked once per (root, file) by ProcessFilesToRecompile.
// Returning false stops iteration early.
type Visitor func(target Target, file string, root RootDescriptor) bool

// ProcessFilesToRecompile iterates the effective delta for target (overlay
// or per-target, per §4.3's read policy), skipping roots that belong to a
// peer target (possible when the delta is a module-cycle merge) and files
// out of scope, invoking visitor for the rest. Returns false iff the
// visitor asked to stop early.
func (s *FSState) ProcessFilesToRecompile(ctx CompileContext, target Target, scope CompileScope, visitor Visitor) bool {
	delta := s.GetEffectiveFilesDelta(ctx, target)
	if delta == nil {
		return true
	}

	delta.Lock()
	defer delta.Unlock()

	for root, files := range delta.SourcesToRecompile() {
		if root.Target() != target {
			continue
		}
		for _, file := range files {
			if scope != nil && !scope.IsAffected(target, file) {
				continue
			}
			if !visitor(target, file, root) {
				return false
			}
		}
	}
	return true
}

// MarkAllUpToDate reconciles a successfully completed build for root's
// target (§4.4). It clears the recompile set for root and, for every file
// that was really processed (affected, not modified or event-stamped after
// buildStart, unless the root is generated), saves its fresh stamp; files
// the build did not actually process — out of scope, or changed
// concurrently — are re-marked dirty instead.
func (s *FSState) MarkAllUpToDate(ctx CompileContext, root RootDescriptor, scope CompileScope, stamps StampStore) (bool, error) {
	target := root.Target()
	delta := s.getOrCreateDelta(target)
	buildStart := ctx.CompilationStartStamp(target)

	delta.Lock()
	defer delta.Unlock()

	files, ok := delta.clearRecompileLocked(root)
	if !ok {
		return false, nil
	}

	marked := false
	for file := range files {
		if scope != nil && !scope.IsAffected(target, file) {
			delta.markRecompileLocked(root, file)
			continue
		}

		currentTs, err := s.fs.LastModified(file)
		if err != nil {
			return marked, err
		}
		stamp, err := stamps.CurrentStamp(file)
		if err != nil {
			return marked, err
		}

		changedDuringBuild := currentTs > buildStart || s.eventStamps.Get(file) > buildStart
		if !root.IsGenerated() && changedDuringBuild {
			delta.markRecompileLocked(root, file)
			continue
		}

		if err := stamps.SaveStamp(file, target, stamp); err != nil {
			return marked, err
		}
		marked = true
	}
	return marked, nil
}

// HasUnprocessedChanges reports whether changes have arrived for target's
// recompile set since the current build began that the build has not yet
// seen (§4.4). Files reachable only through generated roots are ignored:
// they are outputs of this build, and their post-start mutation is
// expected.
func (s *FSState) HasUnprocessedChanges(ctx CompileContext, target Target, scope CompileScope, rootIndex RootIndex) (bool, error) {
	if !s.hasInitialScanEntry(target) {
		return false, nil
	}

	buildStart := ctx.CompilationStartStamp(target)
	if buildStart <= 0 {
		return false, nil
	}

	delta, ok := s.getDelta(target)
	if !ok {
		return false, nil
	}

	delta.Lock()
	defer delta.Unlock()

	now := nowMillis()
	for root, files := range delta.SourcesToRecompile() {
		for _, file := range files {
			if s.eventStamps.Get(file) <= buildStart {
				mtime, err := s.fs.LastModified(file)
				if err != nil {
					return false, err
				}
				if !(buildStart < mtime && mtime < now) {
					continue
				}
			}

			if scope != nil && !scope.IsAffected(target, file) {
				continue
			}

			if anyGeneratedRoot(rootIndex.FindAllParentDescriptors(file, ctx)) {
				continue
			}

			return true, nil
		}
	}
	return false, nil
}

func anyGeneratedRoot(roots []RootDescriptor) bool {
	if len(roots) == 0 {
		return false
	}
	for _, r := range roots {
		if r.IsGenerated() {
			return true
		}
	}
	return false
}

func (s *FSState) hasInitialScanEntry(target Target) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	_, ok := s.initialScanPerformed[target]
	return ok
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
