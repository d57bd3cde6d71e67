package fsstate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeLoader reconstitutes targets of a single type, rejecting any id not
// listed in known.
type fakeLoader struct {
	typeID string
	known  map[string]bool
}

func (l fakeLoader) CreateTarget(id string) (Target, bool) {
	if !l.known[id] {
		return nil, false
	}
	return fakeTarget{typeID: l.typeID, id: id}, true
}

type fakeTargetType struct {
	typeID string
	known  map[string]bool
}

func (tt fakeTargetType) CreateLoader(model interface{}) Loader {
	return fakeLoader{typeID: tt.typeID, known: tt.known}
}

type fakeRegistry struct {
	types map[string]fakeTargetType
}

func (r fakeRegistry) GetType(typeID string) (TargetType, bool) {
	tt, ok := r.types[typeID]
	return tt, ok
}

func TestFilesDelta_SaveLoadRoundTrip(t *testing.T) {
	target := fakeTarget{typeID: "module", id: "m1"}
	root := fakeRoot{target: target}
	rootIdx := newFakeRootIndex()
	rootIdx.add(root)

	d := NewFilesDelta()
	d.MarkRecompile(root, "/src/a.go")
	d.MarkRecompile(root, "/src/b.go")
	d.AddDeleted("/src/gone.go")

	var buf bytes.Buffer
	require.NoError(t, d.Save(&buf, rootIdx))

	loaded := NewFilesDelta()
	require.NoError(t, loaded.Load(&buf, target, rootIdx))

	require.True(t, loaded.IsMarkedRecompile(root, "/src/a.go"))
	require.True(t, loaded.IsMarkedRecompile(root, "/src/b.go"))

	paths := loaded.GetAndClearDeletedPaths()
	require.Equal(t, []string{"/src/gone.go"}, paths)
}

func TestFilesDelta_Load_DropsUnresolvableRoot(t *testing.T) {
	target := fakeTarget{typeID: "module", id: "m1"}
	root := fakeRoot{target: target}
	rootIdx := newFakeRootIndex()
	rootIdx.add(root)

	d := NewFilesDelta()
	d.MarkRecompile(root, "/src/a.go")

	var buf bytes.Buffer
	require.NoError(t, d.Save(&buf, rootIdx))

	// Load against a fresh root index that never learned this root's id.
	loaded := NewFilesDelta()
	require.NoError(t, loaded.Load(&buf, target, newFakeRootIndex()))
	require.False(t, loaded.HasChanges(), "files under an unresolvable root are dropped, not errored")
}

func TestFSState_SaveLoadRoundTrip(t *testing.T) {
	target := fakeTarget{typeID: "module", id: "m1"}
	root := fakeRoot{target: target}
	rootIdx := newFakeRootIndex()
	rootIdx.add(root)

	state := NewFSState(newFakeFS(), false)
	state.MarkInitialScanPerformed(target)
	state.MarkDirty(nil, RoundCurrent, "/src/a.go", root, nil, false)

	var buf bytes.Buffer
	require.NoError(t, state.Save(&buf, rootIdx))

	registry := fakeRegistry{types: map[string]fakeTargetType{
		"module": {typeID: "module", known: map[string]bool{"m1": true}},
	}}

	loaded := NewFSState(newFakeFS(), false)
	require.NoError(t, loaded.Load(&buf, registry, nil, rootIdx))

	require.True(t, loaded.IsInitialScanPerformed(target))
	require.True(t, loaded.HasWorkToDo(target))
}

func TestFSState_Load_SkipsUnknownTargetType(t *testing.T) {
	knownTarget := fakeTarget{typeID: "module", id: "m1"}
	unknownTarget := fakeTarget{typeID: "artifact", id: "a1"}
	knownRoot := fakeRoot{target: knownTarget}
	unknownRoot := fakeRoot{target: unknownTarget}

	rootIdx := newFakeRootIndex()
	rootIdx.add(knownRoot)
	rootIdx.add(unknownRoot)

	state := NewFSState(newFakeFS(), false)
	state.MarkInitialScanPerformed(knownTarget)
	state.MarkInitialScanPerformed(unknownTarget)
	state.MarkDirty(nil, RoundCurrent, "/src/a.go", knownRoot, nil, false)
	state.MarkDirty(nil, RoundCurrent, "/out/a.class", unknownRoot, nil, false)

	var buf bytes.Buffer
	require.NoError(t, state.Save(&buf, rootIdx))

	// Only "module" is registered on load; "artifact" is unknown and must be
	// skipped without aborting the whole load.
	registry := fakeRegistry{types: map[string]fakeTargetType{
		"module": {typeID: "module", known: map[string]bool{"m1": true}},
	}}

	loaded := NewFSState(newFakeFS(), false)
	require.NoError(t, loaded.Load(&buf, registry, nil, rootIdx))

	require.True(t, loaded.IsInitialScanPerformed(knownTarget))
	require.False(t, loaded.IsInitialScanPerformed(unknownTarget))
}

func TestFSState_Load_SkipsUnknownTargetID(t *testing.T) {
	target := fakeTarget{typeID: "module", id: "m1"}
	root := fakeRoot{target: target}
	rootIdx := newFakeRootIndex()
	rootIdx.add(root)

	state := NewFSState(newFakeFS(), false)
	state.MarkInitialScanPerformed(target)
	state.MarkDirty(nil, RoundCurrent, "/src/a.go", root, nil, false)

	var buf bytes.Buffer
	require.NoError(t, state.Save(&buf, rootIdx))

	// The type is known but "m1" is no longer a valid id for it.
	registry := fakeRegistry{types: map[string]fakeTargetType{
		"module": {typeID: "module", known: map[string]bool{}},
	}}

	loaded := NewFSState(newFakeFS(), false)
	require.NoError(t, loaded.Load(&buf, registry, nil, rootIdx))
	require.False(t, loaded.IsInitialScanPerformed(target))
}

func TestSkip_ConsumesRecordWithoutError(t *testing.T) {
	target := fakeTarget{typeID: "module", id: "m1"}
	root := fakeRoot{target: target}
	rootIdx := newFakeRootIndex()
	rootIdx.add(root)

	d := NewFilesDelta()
	d.MarkRecompile(root, "/src/a.go")
	d.AddDeleted("/src/gone.go")

	var buf bytes.Buffer
	require.NoError(t, d.Save(&buf, rootIdx))
	require.NoError(t, Skip(&buf))
	require.Zero(t, buf.Len(), "Skip consumes the entire record")
}
