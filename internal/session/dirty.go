package session

import "sync"

// DirtyTracker derives the unsaved-changes flag from session events.
type DirtyTracker struct {
	mu    sync.Mutex
	dirty bool
}

// Observe applies one event.
func (d *DirtyTracker) Observe(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev.Kind {
	case EventMutated:
		d.dirty = true
	case EventLoaded:
		d.dirty = ev.Source != SourceSaved
	case EventSaved:
		d.dirty = ev.Pending
	}
}

// Dirty reports whether there are unsaved changes.
func (d *DirtyTracker) Dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}
