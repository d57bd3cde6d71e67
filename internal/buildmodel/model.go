package buildmodel

import "sync"

// Model is a minimal in-memory project model: the set of target ids known
// to exist right now, grouped by type. It stands in for a real build
// system's module graph; fsstate only ever sees it indirectly, as the
// opaque "model" argument threaded through FSState.Load into each Loader.
type Model struct {
	mu      sync.RWMutex
	targets map[string]map[string]struct{} // typeID -> id -> present
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{targets: make(map[string]map[string]struct{})}
}

// Add declares that a target of typeID/id currently exists in the project.
func (m *Model) Add(typeID, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.targets[typeID]
	if !ok {
		set = make(map[string]struct{})
		m.targets[typeID] = set
	}
	set[id] = struct{}{}
}

// Remove declares that a target no longer exists, e.g. a module deleted
// from the project since the last persisted FSS was written.
func (m *Model) Remove(typeID, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.targets[typeID]; ok {
		delete(set, id)
	}
}

// Has reports whether typeID/id is currently present.
func (m *Model) Has(typeID, id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.targets[typeID]
	if !ok {
		return false
	}
	_, present := set[id]
	return present
}

// Targets returns every target currently declared for typeID, as
// constructed BuildTarget values; isModuleBuild matches kind's declared
// setting.
func (m *Model) Targets(kind TargetKind) []BuildTarget {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.targets[kind.TypeID]
	out := make([]BuildTarget, 0, len(set))
	for id := range set {
		out = append(out, NewTarget(kind.TypeID, id, kind.IsModuleBuild))
	}
	return out
}
