package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/buildgraph/fsstate/internal/fsstate"
)

func newTestContext(pf *projectFacade) fsstate.CompileContext {
	return fsstate.NewContext(pf.scope, pf.rootIndex)
}

func TestLoadProject_DefaultConfigWalksProjectRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))

	pf, err := loadProject(dir)
	require.NoError(t, err)
	require.Contains(t, pf.targets, "module")
	require.Len(t, pf.descByType["module"], 1)
}

func TestScanThenSave_PersistsState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package a\n"), 0o644))

	pf, err := loadProject(dir)
	require.NoError(t, err)

	target := pf.targets["module"]
	var total int
	for _, desc := range pf.descByType["module"] {
		ctx := newTestContext(pf)
		count, err := walkAndMark(pf.state, ctx, target, desc, pf.stamps)
		require.NoError(t, err)
		total += count
	}
	pf.state.MarkInitialScanPerformed(target)
	require.Equal(t, 2, total)

	require.NoError(t, pf.save())

	statePath := filepath.Join(dir, pf.cfg.Persistence.StatePath)
	info, err := os.Stat(statePath)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestDumpCommand_LoadsPersistedState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))

	pf, err := loadProject(dir)
	require.NoError(t, err)
	target := pf.targets["module"]

	ctx := newTestContext(pf)
	for _, desc := range pf.descByType["module"] {
		_, err := walkAndMark(pf.state, ctx, target, desc, pf.stamps)
		require.NoError(t, err)
	}
	pf.state.MarkInitialScanPerformed(target)
	require.NoError(t, pf.save())

	statePath := filepath.Join(dir, pf.cfg.Persistence.StatePath)

	loaded, err := loadProject(dir)
	require.NoError(t, err)
	require.NoError(t, loaded.loadState(statePath))
	require.True(t, loaded.state.HasWorkToDo(loaded.targets["module"]), "the loaded target is scanned and still has the walked a.go pending")
}
