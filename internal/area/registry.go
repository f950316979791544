package area

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/screenvoice/platform/internal/errdefs"
)

// ChangeKind classifies a registry mutation.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeUpdated  ChangeKind = "updated"
	ChangeRemoved  ChangeKind = "removed"
	ChangeReloaded ChangeKind = "reloaded" // whole set replaced by a layout swap
)

// Change is published after every successful mutation. The scheduler
// consumes these to re-derive its timer and trigger sets.
type Change struct {
	Kind ChangeKind
	Area Area // zero value for ChangeReloaded
}

// Registry holds the active set of capture areas.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	areas      map[string]Area
	layoutName string
	eventsCh   chan Change
}

// NewRegistry creates an empty registry.
func NewRegistry(eventBuffer int) *Registry {
	return &Registry{
		areas:    make(map[string]Area),
		eventsCh: make(chan Change, eventBuffer),
	}
}

// Add validates the area, assigns it a fresh ID, and appends it to the
// active set. IDs are never reused after deletion.
func (r *Registry) Add(a Area) (Area, error) {
	a.ID = uuid.NewString()
	if err := a.Validate(); err != nil {
		return Area{}, err
	}

	r.mu.Lock()
	r.order = append(r.order, a.ID)
	r.areas[a.ID] = a
	r.mu.Unlock()

	r.emit(Change{Kind: ChangeAdded, Area: a})
	return a, nil
}

// Update replaces the area's fields, keeping its ID and position.
func (r *Registry) Update(id string, a Area) (Area, error) {
	a.ID = id
	if err := a.Validate(); err != nil {
		return Area{}, err
	}

	r.mu.Lock()
	if _, ok := r.areas[id]; !ok {
		r.mu.Unlock()
		return Area{}, errdefs.Newf(errdefs.CodeNotFound, "area %s", id)
	}
	r.areas[id] = a
	r.mu.Unlock()

	r.emit(Change{Kind: ChangeUpdated, Area: a})
	return a, nil
}

// Remove deletes the area from the active set.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	a, ok := r.areas[id]
	if !ok {
		r.mu.Unlock()
		return errdefs.Newf(errdefs.CodeNotFound, "area %s", id)
	}
	delete(r.areas, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.emit(Change{Kind: ChangeRemoved, Area: a})
	return nil
}

// Get returns the area by ID.
func (r *Registry) Get(id string) (Area, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.areas[id]
	return a, ok
}

// All returns the active set in insertion order. The slice is a copy.
func (r *Registry) All() []Area {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Area, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.areas[id])
	}
	return out
}

// ActiveLayout returns the name of the last loaded layout, if any.
func (r *Registry) ActiveLayout() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.layoutName
}

// LoadLayout atomically replaces the whole active set with the layout's
// areas. A layout that fails validation leaves the previous set unchanged.
func (r *Registry) LoadLayout(l Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}

	order := make([]string, 0, len(l.Areas))
	areas := make(map[string]Area, len(l.Areas))
	for _, a := range l.Areas {
		order = append(order, a.ID)
		areas[a.ID] = a
	}

	r.mu.Lock()
	r.order = order
	r.areas = areas
	r.layoutName = l.Name
	r.mu.Unlock()

	r.emit(Change{Kind: ChangeReloaded})
	return nil
}

// SaveLayout snapshots the active set as a named layout document.
func (r *Registry) SaveLayout(name string) Layout {
	return Layout{Name: name, Areas: r.All()}
}

// Events returns the change stream.
func (r *Registry) Events() <-chan Change {
	return r.eventsCh
}

// emit publishes a change without blocking mutations. A dropped event
// means the consumer is stalled and may hold stale timer state, so it
// is logged loudly.
func (r *Registry) emit(c Change) {
	select {
	case r.eventsCh <- c:
	default:
		slog.Warn("area change event dropped", "kind", c.Kind, "area_id", c.Area.ID)
	}
}
