package fsstate

import (
	"sync"

	"github.com/buildgraph/fsstate/pkg/pathutil"
)

// EventStamps is the process-wide mapping from file path to the wall-clock
// millisecond timestamp at which a dirty notification for that file was
// last recorded (§4.2). It exists to detect changes whose notification
// arrived after a build started even though the file's own mtime predates
// the build (§4.4 MarkAllUpToDate, HasUnprocessedChanges).
type EventStamps struct {
	mu     sync.Mutex
	stamps map[string]int64
}

// NewEventStamps returns an empty stamps map.
func NewEventStamps() *EventStamps {
	return &EventStamps{stamps: make(map[string]int64)}
}

// Put records stamp for file. The most recent write wins; Put performs no
// monotonicity check, so a newer stamp may be overwritten by an older one.
func (e *EventStamps) Put(file string, stamp int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stamps[pathutil.Key(file)] = stamp
}

// Get returns the stored stamp for file, or 0 if none was ever recorded.
func (e *EventStamps) Get(file string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stamps[pathutil.Key(file)]
}

// Clear empties the map.
func (e *EventStamps) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stamps = make(map[string]int64)
}
