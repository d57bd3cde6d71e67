// Package fswatch is a debounced fsnotify driver that feeds filesystem
// change events into an fsstate.FSState through its public MarkDirty /
// RegisterDeleted entry points. It is explicitly a caller of the core, not
// an extension of it — FSState never imports fsnotify, and this package
// never reaches past FSState's exported API.
//
// Grounded on the teacher's watcher.go/debounced_rebuilder.go pairing: an
// fsnotify watcher feeding a debounce timer that performs the real work
// once events settle.
package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/buildgraph/fsstate/internal/debug"
	"github.com/buildgraph/fsstate/internal/fsstate"
)

// Watcher watches a set of directories and mirrors changes into an
// fsstate.FSState for a single target.
type Watcher struct {
	fsw    *fsnotify.Watcher
	state  *fsstate.FSState
	ctx    fsstate.CompileContext
	target fsstate.Target
	root   fsstate.RootDescriptor
	stamps fsstate.StampStore

	debounce time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a watcher that reports changes under root's directories into
// state for target, using compileCtx as the CompileContext passed to every
// MarkDirty/RegisterDeleted call (§4.4 — a driver normally has one context
// per build invocation; a long-running watch process uses one fixed
// context for its whole lifetime since it never runs compile rounds).
func New(state *fsstate.FSState, compileCtx fsstate.CompileContext, target fsstate.Target, root fsstate.RootDescriptor, stamps fsstate.StampStore, debounceMs int) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounceMs <= 0 {
		debounceMs = 300
	}

	return &Watcher{
		fsw:      fsw,
		state:    state,
		ctx:      compileCtx,
		target:   target,
		root:     root,
		stamps:   stamps,
		debounce: time.Duration(debounceMs) * time.Millisecond,
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// AddDir registers dir and every subdirectory beneath it with the
// underlying fsnotify watcher — fsnotify watches directories, not trees, so
// a new subdirectory created after Start will not be picked up
// automatically (a known limitation shared with the teacher's watcher,
// which re-walks on each batch instead).
func (w *Watcher) AddDir(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Start begins processing fsnotify events in a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.loop(runCtx)
}

// Stop halts the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
	return w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.schedule(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debug.LogWatch("fsnotify error: %v", err)
		}
	}
}

// schedule records path as changed and (re)arms the debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush marks every pending path dirty against the façade. A path that no
// longer exists on disk is registered as deleted instead — the watcher has
// no reliable create/write/remove classification across platforms, so it
// re-checks the filesystem itself (the same approach as the teacher's
// watcher, which treats a failed stat as a removal).
func (w *Watcher) flush() {
	w.mu.Lock()
	paths := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}

	for path := range paths {
		if pathExists(path) {
			w.state.MarkDirty(w.ctx, fsstate.RoundCurrent, path, w.root, w.stamps, true)
		} else {
			if err := w.state.RegisterDeleted(w.ctx, w.target, path, w.stamps); err != nil {
				debug.LogWatch("register-deleted failed for %s: %v", path, err)
			}
		}
	}
	debug.LogWatch("flushed %d paths", len(paths))
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
