package fsstate

import "fmt"

// fakeFS is an in-memory FS for tests that need deterministic mtimes.
type fakeFS struct {
	mtimes map[string]int64
}

func newFakeFS() *fakeFS {
	return &fakeFS{mtimes: make(map[string]int64)}
}

func (f *fakeFS) LastModified(file string) (int64, error) {
	ts, ok := f.mtimes[file]
	if !ok {
		return 0, fmt.Errorf("fakeFS: no mtime recorded for %s", file)
	}
	return ts, nil
}

// fakeStampStore is an in-memory StampStore for tests.
type fakeStampStore struct {
	stamps map[string]Stamp
}

func newFakeStampStore() *fakeStampStore {
	return &fakeStampStore{stamps: make(map[string]Stamp)}
}

func (s *fakeStampStore) key(file string, target Target) string {
	return target.TypeID() + "\x00" + target.ID() + "\x00" + file
}

func (s *fakeStampStore) SaveStamp(file string, target Target, stamp Stamp) error {
	s.stamps[s.key(file, target)] = stamp
	return nil
}

func (s *fakeStampStore) RemoveStamp(file string, target Target) error {
	delete(s.stamps, s.key(file, target))
	return nil
}

func (s *fakeStampStore) CurrentStamp(file string) (Stamp, error) {
	return file, nil
}

func (s *fakeStampStore) has(file string, target Target) bool {
	_, ok := s.stamps[s.key(file, target)]
	return ok
}

// fakeRootIndex is a minimal RootIndex for tests that don't need real
// glob-based root resolution.
type fakeRootIndex struct {
	ids   map[RootDescriptor]uint32
	byID  map[Target]map[uint32]RootDescriptor
	next  map[Target]uint32
	roots []RootDescriptor
}

func newFakeRootIndex() *fakeRootIndex {
	return &fakeRootIndex{
		ids:  make(map[RootDescriptor]uint32),
		byID: make(map[Target]map[uint32]RootDescriptor),
		next: make(map[Target]uint32),
	}
}

func (r *fakeRootIndex) add(root RootDescriptor) {
	if _, ok := r.ids[root]; ok {
		return
	}
	target := root.Target()
	id := r.next[target]
	r.next[target] = id + 1
	r.ids[root] = id
	if r.byID[target] == nil {
		r.byID[target] = make(map[uint32]RootDescriptor)
	}
	r.byID[target][id] = root
	r.roots = append(r.roots, root)
}

func (r *fakeRootIndex) FindAllParentDescriptors(file string, ctx CompileContext) []RootDescriptor {
	return r.roots
}

func (r *fakeRootIndex) RootID(root RootDescriptor) (uint32, bool) {
	id, ok := r.ids[root]
	return id, ok
}

func (r *fakeRootIndex) ResolveRoot(target Target, id uint32) (RootDescriptor, bool) {
	root, ok := r.byID[target][id]
	return root, ok
}
