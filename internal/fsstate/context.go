package fsstate

import "sync"

// contextSlotKey enumerates the typed slots fsstate attaches to a
// CompileContext. Per §9 "Typed keys on context": no global key registry is
// necessary, just a small enum-indexed slot table owned by the context.
type contextSlotKey int

const (
	slotRoundCurrent contextSlotKey = iota
	slotRoundNext
	slotChunkTargets
	numContextSlots
)

// Context is the reference CompileContext implementation. A real
// compilation driver would supply its own type satisfying the
// CompileContext interface; this one is enough to exercise every operation
// in §4 and is what cmd/fsstate and the test suite use.
type Context struct {
	mu        sync.Mutex
	slots     [numContextSlots]interface{}
	scope     CompileScope
	rootIndex RootIndex

	startMu    sync.Mutex
	startStamp map[string]int64 // keyed by target TypeID+"/"+ID
}

// NewContext creates a fresh build context bound to the given scope and
// root index. Both may be nil: ProcessFilesToRecompile and
// HasUnprocessedChanges take their scope and root index as arguments, and no
// FSState operation reads them back from the context.
func NewContext(scope CompileScope, rootIndex RootIndex) *Context {
	return &Context{
		scope:      scope,
		rootIndex:  rootIndex,
		startStamp: make(map[string]int64),
	}
}

func (c *Context) Scope() CompileScope       { return c.scope }
func (c *Context) RootIndex() RootIndex      { return c.rootIndex }

// SetCompilationStartStamp records the wall-clock millisecond time
// compilation of target began. Call with stamp <= 0 to mark "no build in
// progress" for that target.
func (c *Context) SetCompilationStartStamp(target Target, stamp int64) {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	c.startStamp[targetKey(target)] = stamp
}

func (c *Context) CompilationStartStamp(target Target) int64 {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	return c.startStamp[targetKey(target)]
}

func (c *Context) slot(key contextSlotKey) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[key]
}

func (c *Context) setSlot(key contextSlotKey, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[key] = value
}

func targetKey(target Target) string {
	if target == nil {
		return ""
	}
	return target.TypeID() + "/" + target.ID()
}
