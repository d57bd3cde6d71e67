package fsstate

import (
	"sync"

	"github.com/buildgraph/fsstate/pkg/pathutil"
)

// FilesDelta holds the dirty set for one target, grouped by root, plus the
// target's deleted-path set (§4.1). It owns its own non-reentrant lock;
// every public accessor below takes it, except SourcesToRecompile which
// requires the caller to already hold it (documented per method).
type FilesDelta struct {
	mu sync.Mutex

	// recompile[root][key] = original path, keyed via pathutil.Key so the
	// map honors the active case-sensitivity policy.
	recompile map[RootDescriptor]map[string]string

	// deleted[key] = original path.
	deleted map[string]string
}

// NewFilesDelta returns an empty delta.
func NewFilesDelta() *FilesDelta {
	return &FilesDelta{
		recompile: make(map[RootDescriptor]map[string]string),
		deleted:   make(map[string]string),
	}
}

// Lock acquires the delta's exclusive mutex. Non-reentrant: do not call
// back into the façade while holding it (§5).
func (d *FilesDelta) Lock() { d.mu.Lock() }

// Unlock releases the mutex acquired by Lock.
func (d *FilesDelta) Unlock() { d.mu.Unlock() }

// MarkRecompile inserts file into the set at root. Returns true iff this
// call added a new entry — the file was not already present for that root.
func (d *FilesDelta) MarkRecompile(root RootDescriptor, file string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markRecompileLocked(root, file)
}

func (d *FilesDelta) markRecompileLocked(root RootDescriptor, file string) bool {
	key := pathutil.Key(file)
	set, ok := d.recompile[root]
	if !ok {
		set = make(map[string]string)
		d.recompile[root] = set
	}
	if _, exists := set[key]; exists {
		return false
	}
	set[key] = file
	return true
}

// MarkRecompileIfNotDeleted is MarkRecompile except it is a no-op (returns
// false) when file's path is currently in the deleted set — a deletion
// subsumes any pending dirty mark until the deleted set is cleared.
func (d *FilesDelta) MarkRecompileIfNotDeleted(root RootDescriptor, file string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, deleted := d.deleted[pathutil.Key(file)]; deleted {
		return false
	}
	return d.markRecompileLocked(root, file)
}

// AddDeleted inserts file into the deleted set and removes it from every
// per-root recompile set of this delta — deletion supersedes dirtiness.
func (d *FilesDelta) AddDeleted(file string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := pathutil.Key(file)
	d.deleted[key] = file
	for _, set := range d.recompile {
		delete(set, key)
	}
}

// ClearRecompile atomically removes and returns the set of files tracked
// for root, or ok=false if root had no entry.
func (d *FilesDelta) ClearRecompile(root RootDescriptor) (files map[string]struct{}, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clearRecompileLocked(root)
}

func (d *FilesDelta) clearRecompileLocked(root RootDescriptor) (files map[string]struct{}, ok bool) {
	set, exists := d.recompile[root]
	if !exists {
		return nil, false
	}
	delete(d.recompile, root)
	result := make(map[string]struct{}, len(set))
	for _, path := range set {
		result[path] = struct{}{}
	}
	return result, true
}

// ClearDeletedPaths empties the deleted set.
func (d *FilesDelta) ClearDeletedPaths() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = make(map[string]string)
}

// GetAndClearDeletedPaths atomically snapshots and clears the deleted set.
func (d *FilesDelta) GetAndClearDeletedPaths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	paths := make([]string, 0, len(d.deleted))
	for _, path := range d.deleted {
		paths = append(paths, path)
	}
	d.deleted = make(map[string]string)
	return paths
}

// IsMarkedRecompile reports whether file is currently tracked dirty for root.
func (d *FilesDelta) IsMarkedRecompile(root RootDescriptor, file string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.recompile[root]
	if !ok {
		return false
	}
	_, marked := set[pathutil.Key(file)]
	return marked
}

// SourcesToRecompile returns the live recompile map. The caller must hold
// the delta's lock (via Lock/Unlock) for the duration of any iteration —
// this method does not lock on its own.
func (d *FilesDelta) SourcesToRecompile() map[RootDescriptor]map[string]string {
	return d.recompile
}

// HasChanges reports whether either the recompile or deleted set is
// non-empty.
func (d *FilesDelta) HasChanges() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.deleted) > 0 {
		return true
	}
	for _, set := range d.recompile {
		if len(set) > 0 {
			return true
		}
	}
	return false
}

// MergeFilesDeltas builds a fresh delta containing the union of recompile
// entries and deleted paths across inputs. The result shares no mutable
// state with its inputs — marks made on it afterward never leak into the
// originals (§9 "Merged round delta"). Used to synthesize the initial
// current-round overlay for a module chunk (§4.3).
func MergeFilesDeltas(deltas ...*FilesDelta) *FilesDelta {
	merged := NewFilesDelta()
	for _, d := range deltas {
		if d == nil {
			continue
		}
		d.mu.Lock()
		for root, set := range d.recompile {
			for _, path := range set {
				merged.markRecompileLocked(root, path)
			}
		}
		for _, path := range d.deleted {
			merged.deleted[pathutil.Key(path)] = path
		}
		d.mu.Unlock()
	}
	return merged
}
