package fsstate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverlay_BeforeNextRoundStart_InitialRoundMergesPerTargetDeltas(t *testing.T) {
	state := NewFSState(newFakeFS(), false)
	ctx := NewContext(nil, nil)

	moduleTarget := fakeTarget{typeID: "module", id: "m1", isModuleBuild: true}
	root := fakeRoot{target: moduleTarget}

	state.MarkDirty(nil, RoundCurrent, "/src/a.go", root, nil, false)

	state.BeforeChunkBuildStart(ctx, []Target{moduleTarget})
	state.BeforeNextRoundStart(ctx, []Target{moduleTarget})

	require.True(t, state.IsMarkedForRecompilation(ctx, RoundCurrent, root, "/src/a.go"),
		"the initial round's current delta is seeded from the per-target deltas")
	require.False(t, state.IsMarkedForRecompilation(ctx, RoundNext, root, "/src/a.go"),
		"the initial round's next delta starts empty")
}

func TestOverlay_BeforeNextRoundStart_AdvancesNextToCurrentOnSubsequentRounds(t *testing.T) {
	state := NewFSState(newFakeFS(), false)
	ctx := NewContext(nil, nil)

	moduleTarget := fakeTarget{typeID: "module", id: "m1", isModuleBuild: true}
	root := fakeRoot{target: moduleTarget}

	state.BeforeChunkBuildStart(ctx, []Target{moduleTarget})
	state.BeforeNextRoundStart(ctx, []Target{moduleTarget})

	// A file discovered mid-round lands in round-next.
	state.MarkDirty(ctx, RoundNext, "/src/b.go", root, nil, false)
	require.True(t, state.IsMarkedForRecompilation(ctx, RoundNext, root, "/src/b.go"))

	state.BeforeNextRoundStart(ctx, []Target{moduleTarget})

	require.True(t, state.IsMarkedForRecompilation(ctx, RoundCurrent, root, "/src/b.go"),
		"the prior round's next delta becomes the new current delta")
}

func TestOverlay_ClearContextRoundData(t *testing.T) {
	state := NewFSState(newFakeFS(), false)
	ctx := NewContext(nil, nil)
	moduleTarget := fakeTarget{typeID: "module", id: "m1", isModuleBuild: true}

	state.BeforeChunkBuildStart(ctx, []Target{moduleTarget})
	state.BeforeNextRoundStart(ctx, []Target{moduleTarget})
	state.ClearContextRoundData(ctx)

	require.Nil(t, state.GetEffectiveFilesDelta(ctx, moduleTarget),
		"clearing round data falls back to the (nonexistent) per-target delta")
}

func TestOverlay_GetEffectiveFilesDelta_NonModuleTargetIgnoresOverlay(t *testing.T) {
	state := NewFSState(newFakeFS(), false)
	ctx := NewContext(nil, nil)

	nonModule := fakeTarget{typeID: "artifact", id: "a1", isModuleBuild: false}
	root := fakeRoot{target: nonModule}

	state.BeforeChunkBuildStart(ctx, []Target{nonModule})
	state.BeforeNextRoundStart(ctx, []Target{nonModule})
	state.MarkDirty(nil, RoundCurrent, "/src/a.go", root, nil, false)

	delta := state.GetEffectiveFilesDelta(ctx, nonModule)
	require.NotNil(t, delta)
	require.True(t, delta.IsMarkedRecompile(root, "/src/a.go"),
		"non-module targets always read the per-target delta, never the overlay")
}

func TestOverlay_ClearContextChunk(t *testing.T) {
	state := NewFSState(newFakeFS(), false)
	ctx := NewContext(nil, nil)
	moduleTarget := fakeTarget{typeID: "module", id: "m1", isModuleBuild: true}

	state.BeforeChunkBuildStart(ctx, []Target{moduleTarget})
	require.NotNil(t, state.chunkContextTargets(ctx))

	state.ClearContextChunk(ctx)
	require.Nil(t, state.chunkContextTargets(ctx))
}
