// Package rootindex is the reference fsstate.RootIndex implementation: it
// maps absolute source directories ("roots") to the target that owns them,
// matches a file path against a root's glob, and assigns each root the
// stable per-target integer id the FSS wire format persists (§6).
package rootindex

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/buildgraph/fsstate/internal/fsstate"
)

// Descriptor is the reference fsstate.RootDescriptor: one source directory
// belonging to a single target, optionally flagged as holding generated
// (build-output) files — files under a generated root are never considered
// "changed during the build" by FSState.MarkAllUpToDate (§4.4).
type Descriptor struct {
	dir       string // absolute, slash-normalized
	target    fsstate.Target
	generated bool
}

func (d Descriptor) Target() fsstate.Target { return d.target }
func (d Descriptor) IsGenerated() bool      { return d.generated }
func (d Descriptor) Dir() string            { return d.dir }

var _ fsstate.RootDescriptor = Descriptor{}

// Index is the reference fsstate.RootIndex. It holds every known root,
// grouped by target, and the bidirectional rootId<->Descriptor table each
// target needs for persistence.
type Index struct {
	mu sync.RWMutex

	byTarget map[fsstate.Target][]Descriptor
	idOf     map[fsstate.Target]map[string]uint32 // target -> dir -> id
	dirOf    map[fsstate.Target]map[uint32]Descriptor
	nextID   map[fsstate.Target]uint32
}

// New returns an empty root index.
func New() *Index {
	return &Index{
		byTarget: make(map[fsstate.Target][]Descriptor),
		idOf:     make(map[fsstate.Target]map[string]uint32),
		dirOf:    make(map[fsstate.Target]map[uint32]Descriptor),
		nextID:   make(map[fsstate.Target]uint32),
	}
}

// AddRoot registers dir as a source root for target, assigning it the next
// free persistence id for that target. Re-adding the same dir is a no-op
// and returns the previously assigned descriptor.
func (ix *Index) AddRoot(target fsstate.Target, dir string, generated bool) Descriptor {
	dir = normalize(dir)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ids, ok := ix.idOf[target]; ok {
		if id, exists := ids[dir]; exists {
			return ix.dirOf[target][id]
		}
	}

	desc := Descriptor{dir: dir, target: target, generated: generated}
	id := ix.nextID[target]
	ix.nextID[target] = id + 1

	ix.byTarget[target] = append(ix.byTarget[target], desc)
	if ix.idOf[target] == nil {
		ix.idOf[target] = make(map[string]uint32)
	}
	if ix.dirOf[target] == nil {
		ix.dirOf[target] = make(map[uint32]Descriptor)
	}
	ix.idOf[target][dir] = id
	ix.dirOf[target][id] = desc
	return desc
}

// RootID implements fsstate.RootIndex.
func (ix *Index) RootID(root fsstate.RootDescriptor) (uint32, bool) {
	d, ok := root.(Descriptor)
	if !ok {
		return 0, false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	id, ok := ix.idOf[d.target][d.dir]
	return id, ok
}

// ResolveRoot implements fsstate.RootIndex.
func (ix *Index) ResolveRoot(target fsstate.Target, id uint32) (fsstate.RootDescriptor, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	d, ok := ix.dirOf[target][id]
	return d, ok
}

// FindAllParentDescriptors implements fsstate.RootIndex: every registered
// root, across every target, whose directory is a (glob-matching or plain
// path-prefix) parent of file. ctx is accepted to satisfy the interface but
// unused by this reference implementation — a project-aware index might
// use it to scope the search to the context's active module set.
func (ix *Index) FindAllParentDescriptors(file string, ctx fsstate.CompileContext) []fsstate.RootDescriptor {
	file = normalize(file)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []fsstate.RootDescriptor
	for _, descs := range ix.byTarget {
		for _, d := range descs {
			if underRoot(d.dir, file) {
				out = append(out, d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].(Descriptor).dir < out[j].(Descriptor).dir
	})
	return out
}

// Roots returns every descriptor registered for target, in registration
// order.
func (ix *Index) Roots(target fsstate.Target) []Descriptor {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Descriptor, len(ix.byTarget[target]))
	copy(out, ix.byTarget[target])
	return out
}

func underRoot(dir, file string) bool {
	if dir == file {
		return true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if strings.HasPrefix(file, prefix) {
		return true
	}
	matched, err := doublestar.Match(filepath.Join(dir, "**"), file)
	return err == nil && matched
}

func normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}
