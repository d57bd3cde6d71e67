package fsstate

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/buildgraph/fsstate/internal/debug"
	fserrors "github.com/buildgraph/fsstate/internal/errors"
	"github.com/buildgraph/fsstate/pkg/pathutil"
)

// FormatVersion is the wire format version this package produces and
// expects. The delta record itself carries no version byte (§4.5) —
// versioning is the enclosing storage layer's concern; FSState.Save/Load
// operate purely on the record shapes below and leave the version check to
// the caller.
const FormatVersion = 3

// Save writes the FilesDelta wire format (§6):
//
//	u32 numRoots
//	{ u32 rootId ; u32 numFiles ; { utf8 absPath }×numFiles }×numRoots
//	u32 numDeleted
//	{ utf8 absPath }×numDeleted
//
// rootIndex assigns the stable per-root integer persisted in place of a
// full descriptor.
func (d *FilesDelta) Save(w io.Writer, rootIndex RootIndex) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	type rootEntry struct {
		id    uint32
		files []string
	}
	entries := make([]rootEntry, 0, len(d.recompile))
	for root, set := range d.recompile {
		id, ok := rootIndex.RootID(root)
		if !ok {
			continue
		}
		files := make([]string, 0, len(set))
		for _, path := range set {
			files = append(files, path)
		}
		sort.Strings(files)
		entries = append(entries, rootEntry{id: id, files: files})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	if err := writeU32(w, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeU32(w, e.id); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(e.files))); err != nil {
			return err
		}
		for _, path := range e.files {
			if err := writeString(w, path); err != nil {
				return err
			}
		}
	}

	deleted := make([]string, 0, len(d.deleted))
	for _, path := range d.deleted {
		deleted = append(deleted, path)
	}
	sort.Strings(deleted)

	if err := writeU32(w, uint32(len(deleted))); err != nil {
		return err
	}
	for _, path := range deleted {
		if err := writeString(w, path); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a FilesDelta record written by Save, resolving each persisted
// rootId back to a RootDescriptor for target via rootIndex. A root id that
// no longer resolves (a build root removed since the file was saved) is
// skipped — its files are dropped rather than failing the whole load.
func (d *FilesDelta) Load(r io.Reader, target Target, rootIndex RootIndex) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	numRoots, err := readU32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < numRoots; i++ {
		rootID, err := readU32(r)
		if err != nil {
			return err
		}
		numFiles, err := readU32(r)
		if err != nil {
			return err
		}
		root, ok := rootIndex.ResolveRoot(target, rootID)
		for j := uint32(0); j < numFiles; j++ {
			path, err := readString(r)
			if err != nil {
				return err
			}
			if ok {
				d.markRecompileLocked(root, path)
			}
		}
	}

	numDeleted, err := readU32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < numDeleted; i++ {
		path, err := readString(r)
		if err != nil {
			return err
		}
		d.deleted[pathutil.Key(path)] = path
	}
	return nil
}

// Skip consumes a FilesDelta record without materializing any entities —
// used when the owning target's type is no longer registered (§7b).
func Skip(r io.Reader) error {
	numRoots, err := readU32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < numRoots; i++ {
		if _, err := readU32(r); err != nil { // rootId
			return err
		}
		numFiles, err := readU32(r)
		if err != nil {
			return err
		}
		for j := uint32(0); j < numFiles; j++ {
			if _, err := readString(r); err != nil {
				return err
			}
		}
	}

	numDeleted, err := readU32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < numDeleted; i++ {
		if _, err := readString(r); err != nil {
			return err
		}
	}
	return nil
}

// Save persists every target in initialScanPerformed, grouped by target
// type (§4.5):
//
//	u32 numTypes
//	{ utf8 typeId ; u32 numTargets ; { utf8 targetId ; delta }×numTargets }×numTypes
func (s *FSState) Save(w io.Writer, rootIndex RootIndex) error {
	bw := bufio.NewWriter(w)

	s.stateMu.Lock()
	byType := make(map[string][]Target)
	for target := range s.initialScanPerformed {
		byType[target.TypeID()] = append(byType[target.TypeID()], target)
	}
	s.stateMu.Unlock()

	types := make([]string, 0, len(byType))
	for typeID := range byType {
		types = append(types, typeID)
	}
	sort.Strings(types)

	if err := writeU32(bw, uint32(len(types))); err != nil {
		return fserrors.NewStateError("save", err)
	}

	for _, typeID := range types {
		targets := byType[typeID]
		sort.Slice(targets, func(i, j int) bool { return targets[i].ID() < targets[j].ID() })

		if err := writeString(bw, typeID); err != nil {
			return fserrors.NewStateError("save", err)
		}
		if err := writeU32(bw, uint32(len(targets))); err != nil {
			return fserrors.NewStateError("save", err)
		}
		for _, target := range targets {
			if err := writeString(bw, target.ID()); err != nil {
				return fserrors.NewStateError("save", err)
			}
			delta, _ := s.getDelta(target)
			if delta == nil {
				delta = NewFilesDelta()
			}
			if err := delta.Save(bw, rootIndex); err != nil {
				return fserrors.NewStateError("save", err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fserrors.NewStateError("save", err)
	}
	return nil
}

// Load restores FSState from a record written by Save. Unknown target
// types, and unknown target ids within a known type, are logged at info
// level and skipped (§7b) — this is explicitly recoverable and expected
// after the set of registered target types changes between runs.
func (s *FSState) Load(r io.Reader, registry TargetTypeRegistry, model interface{}, rootIndex RootIndex) error {
	numTypes, err := readU32(r)
	if err != nil {
		return fserrors.NewStateError("load", err)
	}

	for i := uint32(0); i < numTypes; i++ {
		typeID, err := readString(r)
		if err != nil {
			return fserrors.NewStateError("load", err)
		}
		numTargets, err := readU32(r)
		if err != nil {
			return fserrors.NewStateError("load", err)
		}

		targetType, typeKnown := registry.GetType(typeID)
		var loader Loader
		if typeKnown {
			loader = targetType.CreateLoader(model)
		}

		for j := uint32(0); j < numTargets; j++ {
			targetID, err := readString(r)
			if err != nil {
				return fserrors.NewStateError("load", err)
			}

			var target Target
			var ok bool
			if loader != nil {
				target, ok = loader.CreateTarget(targetID)
			}

			if !ok {
				debug.Info("skipping unknown target on load: %s", fserrors.NewUnknownTargetError(typeID, targetID))
				if err := Skip(r); err != nil {
					return fserrors.NewStateError("load", err)
				}
				continue
			}

			delta := NewFilesDelta()
			if err := delta.Load(r, target, rootIndex); err != nil {
				return fserrors.NewStateError("load", err)
			}

			s.stateMu.Lock()
			s.deltas[target] = delta
			s.initialScanPerformed[target] = struct{}{}
			s.stateMu.Unlock()
		}
	}
	return nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("reading %d-byte string: %w", n, err)
	}
	return string(buf), nil
}
