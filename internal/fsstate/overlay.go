package fsstate

// This file implements the RoundOverlay transitions (§4.3) as methods on
// FSState, since the overlay has no state of its own beyond the two typed
// slots (current-round, next-round delta) and the chunk-targets slot it
// asks CompileContext to hold.

// BeforeChunkBuildStart records the chunk's target set on the context, so
// later MarkDirty calls know whether a root's target is "in play" for this
// chunk's current build pass.
func (s *FSState) BeforeChunkBuildStart(ctx CompileContext, targets []Target) {
	set := make(map[Target]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}
	ctx.setSlot(slotChunkTargets, set)
}

// ClearContextChunk clears the chunk-targets slot.
func (s *FSState) ClearContextChunk(ctx CompileContext) {
	ctx.setSlot(slotChunkTargets, nil)
}

// BeforeNextRoundStart advances the round overlay (§4.3):
//
//   - If there is no next-round delta yet (this is the initial round for
//     the chunk), the new current-round delta is a fresh merge of every
//     module target's per-target delta in moduleTargets.
//   - Otherwise the previous next-round delta becomes the new current.
//
// Either way, a brand-new empty delta becomes the new next-round.
func (s *FSState) BeforeNextRoundStart(ctx CompileContext, moduleTargets []Target) {
	prevNext, _ := ctx.slot(slotRoundNext).(*FilesDelta)

	var newCurrent *FilesDelta
	if prevNext == nil {
		deltas := make([]*FilesDelta, 0, len(moduleTargets))
		for _, t := range moduleTargets {
			if delta, ok := s.getDelta(t); ok {
				deltas = append(deltas, delta)
			}
		}
		newCurrent = MergeFilesDeltas(deltas...)
	} else {
		newCurrent = prevNext
	}

	ctx.setSlot(slotRoundCurrent, newCurrent)
	ctx.setSlot(slotRoundNext, NewFilesDelta())
}

// ClearContextRoundData clears both overlay slots.
func (s *FSState) ClearContextRoundData(ctx CompileContext) {
	ctx.setSlot(slotRoundCurrent, nil)
	ctx.setSlot(slotRoundNext, nil)
}

// GetEffectiveFilesDelta returns the context's current-round delta iff
// target is a module-build target and that delta is present; otherwise the
// per-target delta (which may be nil if the target has never been
// referenced).
func (s *FSState) GetEffectiveFilesDelta(ctx CompileContext, target Target) *FilesDelta {
	if ctx != nil && target.IsModuleBuild() {
		if current, ok := ctx.slot(slotRoundCurrent).(*FilesDelta); ok && current != nil {
			return current
		}
	}
	delta, _ := s.getDelta(target)
	return delta
}

// IsMarkedForRecompilation prefers the requested round's overlay if
// present, else falls back to the per-target delta.
func (s *FSState) IsMarkedForRecompilation(ctx CompileContext, round Round, root RootDescriptor, file string) bool {
	if ctx != nil {
		key := slotRoundNext
		if round == RoundCurrent {
			key = slotRoundCurrent
		}
		if delta, ok := ctx.slot(key).(*FilesDelta); ok && delta != nil {
			return delta.IsMarkedRecompile(root, file)
		}
	}
	delta, ok := s.getDelta(root.Target())
	if !ok {
		return false
	}
	return delta.IsMarkedRecompile(root, file)
}

func (s *FSState) chunkContextTargets(ctx CompileContext) map[Target]struct{} {
	if ctx == nil {
		return nil
	}
	set, _ := ctx.slot(slotChunkTargets).(map[Target]struct{})
	return set
}

func (s *FSState) overlayDelta(ctx CompileContext, round Round) *FilesDelta {
	if ctx == nil {
		return nil
	}
	key := slotRoundNext
	if round == RoundCurrent {
		key = slotRoundCurrent
	}
	delta, _ := ctx.slot(key).(*FilesDelta)
	return delta
}
