// Package stampstore is the reference fsstate.StampStore implementation: a
// content-fingerprint database keyed by (file, target), using xxhash for
// the fingerprint the way the teacher's metrics cache keys entries off a
// content hash (internal/cache/metrics_cache.go), but backed by a single
// RWMutex-guarded map rather than per-purpose caches since a stamp store has
// only one concern. Stamps are held in memory only; nothing is persisted.
package stampstore

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/buildgraph/fsstate/internal/fsstate"
)

// FileStamp is the Stamp this store produces: the file's content hash at
// the moment it was last successfully processed, paired with the mtime
// observed at that time so a caller can cheaply skip re-hashing an
// untouched file.
type FileStamp struct {
	Hash  uint64
	Mtime int64
}

// Store is the reference fsstate.StampStore, keyed by (target typeId/id,
// file path).
type Store struct {
	mu     sync.RWMutex
	stamps map[string]FileStamp
}

// New returns an empty stamp store.
func New() *Store {
	return &Store{stamps: make(map[string]FileStamp)}
}

// SaveStamp implements fsstate.StampStore.
func (s *Store) SaveStamp(file string, target fsstate.Target, stamp fsstate.Stamp) error {
	fs, ok := stamp.(FileStamp)
	if !ok {
		return fmt.Errorf("stampstore: unexpected stamp type %T", stamp)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamps[key(file, target)] = fs
	return nil
}

// RemoveStamp implements fsstate.StampStore.
func (s *Store) RemoveStamp(file string, target fsstate.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stamps, key(file, target))
	return nil
}

// CurrentStamp implements fsstate.StampStore: hashes file's current content
// with xxhash and returns it alongside the file's current mtime, both read
// from the open file. FSState never inspects the returned Stamp's shape, so
// this reads the file itself rather than requiring a separate plumbing step.
func (s *Store) CurrentStamp(file string) (fsstate.Stamp, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	return FileStamp{Hash: h.Sum64(), Mtime: info.ModTime().UnixMilli()}, nil
}

// Lookup returns the stamp currently saved for (file, target), if any —
// used by callers outside the fsstate.StampStore contract, e.g. the
// doctor CLI subcommand comparing saved stamps against a fresh scan.
func (s *Store) Lookup(file string, target fsstate.Target) (FileStamp, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fs, ok := s.stamps[key(file, target)]
	return fs, ok
}

func key(file string, target fsstate.Target) string {
	return target.TypeID() + "\x00" + target.ID() + "\x00" + file
}

var _ fsstate.StampStore = (*Store)(nil)
