package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/buildgraph/fsstate/internal/fsstate"
)

type fakeTarget struct{ id string }

func (t fakeTarget) TypeID() string      { return "module" }
func (t fakeTarget) ID() string          { return t.id }
func (t fakeTarget) IsModuleBuild() bool { return true }

type fakeRoot struct{ target fsstate.Target }

func (r fakeRoot) Target() fsstate.Target { return r.target }
func (r fakeRoot) IsGenerated() bool      { return false }

type fakeStampStore struct{}

func (fakeStampStore) SaveStamp(string, fsstate.Target, fsstate.Stamp) error { return nil }
func (fakeStampStore) RemoveStamp(string, fsstate.Target) error             { return nil }
func (fakeStampStore) CurrentStamp(file string) (fsstate.Stamp, error)      { return file, nil }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestWatcher_DetectsNewFileAsDirty(t *testing.T) {
	dir := t.TempDir()
	target := fakeTarget{id: "m1"}
	root := fakeRoot{target: target}
	state := fsstate.NewFSState(nil, false)
	ctx := fsstate.NewContext(nil, nil)

	w, err := New(state, ctx, target, root, fakeStampStore{}, 50)
	require.NoError(t, err)
	require.NoError(t, w.AddDir(dir))

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(runCtx)
	defer w.Stop()

	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))

	waitFor(t, 2*time.Second, func() bool {
		return state.IsMarkedForRecompilation(ctx, fsstate.RoundCurrent, root, path)
	})
}

func TestWatcher_DetectsDeletion(t *testing.T) {
	dir := t.TempDir()
	target := fakeTarget{id: "m1"}
	root := fakeRoot{target: target}
	state := fsstate.NewFSState(nil, false)
	ctx := fsstate.NewContext(nil, nil)

	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))

	w, err := New(state, ctx, target, root, fakeStampStore{}, 50)
	require.NoError(t, err)
	require.NoError(t, w.AddDir(dir))

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(runCtx)
	defer w.Stop()

	require.NoError(t, os.Remove(path))

	waitFor(t, 2*time.Second, func() bool {
		deleted := state.GetAndClearDeletedPaths(target)
		for _, p := range deleted {
			if p == path {
				return true
			}
		}
		return false
	})
}

func TestNew_DefaultsDebounce(t *testing.T) {
	state := fsstate.NewFSState(nil, false)
	target := fakeTarget{id: "m1"}
	root := fakeRoot{target: target}
	ctx := fsstate.NewContext(nil, nil)

	w, err := New(state, ctx, target, root, fakeStampStore{}, 0)
	require.NoError(t, err)
	require.Equal(t, 300*time.Millisecond, w.debounce)
	require.NoError(t, w.fsw.Close())
}
