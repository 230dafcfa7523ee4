package instances

import (
	"slices"
	"sync"
)

// Action is a local, optimistic operation on one instance.
type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionDelete Action = "delete"
)

// List holds the authoritative instance list. Actions mutate it locally only;
// nothing is sent back to the messaging API.
type List struct {
	mu    sync.RWMutex
	items []Instance
}

func NewList() *List {
	return &List{}
}

// SetAuthoritative replaces the whole list with a copy of items.
func (l *List) SetAuthoritative(items []Instance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.Clone(items)
}

// ApplyAction applies action to the instance with the given id.
// An unknown id is ignored.
func (l *List) ApplyAction(id int64, action Action) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := slices.IndexFunc(l.items, func(inst Instance) bool { return inst.ID == id })
	if idx < 0 {
		return
	}

	switch action {
	case ActionStart:
		l.items[idx].ConnectionStatus = StatusConnecting
	case ActionStop:
		l.items[idx].ConnectionStatus = StatusOffline
	case ActionDelete:
		// Rebuild rather than delete in place so slices handed out earlier stay intact.
		items := make([]Instance, 0, len(l.items)-1)
		items = append(items, l.items[:idx]...)
		l.items = append(items, l.items[idx+1:]...)
	}
}

// FilteredView recomputes the view of the list under f.
func (l *List) FilteredView(f Filter) []Instance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Apply(l.items, f)
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Snapshot returns a copy of the authoritative list.
func (l *List) Snapshot() []Instance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}
