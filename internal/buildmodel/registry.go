package buildmodel

import (
	"sync"

	"github.com/buildgraph/fsstate/internal/fsstate"
)

// TargetKind is a registered target type: a stable typeId plus whether
// targets of this type participate in the round overlay.
type TargetKind struct {
	TypeID        string
	IsModuleBuild bool
}

// Registry is the reference fsstate.TargetTypeRegistry: a static table of
// known target kinds, populated once at startup by the project model
// (cmd/fsstate reads it from the resolved Config).
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]TargetKind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]TargetKind)}
}

// Register adds or replaces a target kind.
func (r *Registry) Register(kind TargetKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind.TypeID] = kind
}

// GetType implements fsstate.TargetTypeRegistry.
func (r *Registry) GetType(typeID string) (fsstate.TargetType, bool) {
	r.mu.RLock()
	kind, ok := r.kinds[typeID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return kindType{kind: kind}, true
}

// kindType is the fsstate.TargetType for one registered TargetKind. model is
// forwarded to its Loader, which uses it to validate a target id only when
// it is a *Model (see kindLoader.CreateTarget).
type kindType struct {
	kind TargetKind
}

func (k kindType) CreateLoader(model interface{}) fsstate.Loader {
	return kindLoader{kind: k.kind, model: model}
}

type kindLoader struct {
	kind  TargetKind
	model interface{}
}

// CreateTarget implements fsstate.Loader. If model is a Model, the target id
// must still resolve against it (§7b: a module removed from the project
// since the state was saved is an expected, recoverable miss); a nil model
// accepts every id, which is what the reference tests use.
func (l kindLoader) CreateTarget(id string) (fsstate.Target, bool) {
	if model, ok := l.model.(*Model); ok {
		if !model.Has(l.kind.TypeID, id) {
			return nil, false
		}
	}
	return NewTarget(l.kind.TypeID, id, l.kind.IsModuleBuild), true
}
