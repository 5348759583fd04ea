package hotkeys

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Action is the opaque callback bound to a hotkey.
type Action func() error

// Definition is one registered hotkey.
type Definition struct {
	ID        int
	Key       KeyCode
	Modifiers ModifierSet
	Enabled   bool
	// Name identifies the action in logs and notifications (e.g. "play_pause").
	Name   string
	Action Action
}

// Registry owns the hotkey table.
//
// Mutations take mu and then publish a fresh immutable snapshot through
// current, so readers on the hook path never wait on a writer.
type Registry struct {
	mu      sync.Mutex
	byID    map[int]Definition
	closed  bool
	current atomic.Pointer[[]Definition]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[int]Definition)}
	r.publishLocked()
	return r
}

// Register inserts def. It returns false when def.ID is already present,
// is not positive, def.Action is nil, or the registry is closed.
func (r *Registry) Register(def Definition) bool {
	if !validDefinition(def) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if _, exists := r.byID[def.ID]; exists {
		return false
	}
	r.byID[def.ID] = def
	r.publishLocked()
	return true
}

// Update replaces the definition with the same ID in a single step.
// It returns false when the ID is unknown or def is invalid.
func (r *Registry) Update(def Definition) bool {
	if !validDefinition(def) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[def.ID]; !exists {
		return false
	}
	delete(r.byID, def.ID)
	r.byID[def.ID] = def
	r.publishLocked()
	return true
}

// SetEnabled flips the enabled flag of id. It returns false for unknown ids.
func (r *Registry) SetEnabled(id int, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, exists := r.byID[id]
	if !exists {
		return false
	}
	if def.Enabled == enabled {
		return true
	}
	def.Enabled = enabled
	r.byID[id] = def
	r.publishLocked()
	return true
}

// Unregister removes id. It returns false when id is not registered.
func (r *Registry) Unregister(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[id]; !exists {
		return false
	}
	delete(r.byID, id)
	r.publishLocked()
	return true
}

// Close removes every definition and rejects later registrations. It
// returns how many definitions were removed.
func (r *Registry) Close() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	n := len(r.byID)
	clear(r.byID)
	r.publishLocked()
	return n
}

// UnregisterAll removes every definition and returns how many were removed.
func (r *Registry) UnregisterAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.byID)
	clear(r.byID)
	r.publishLocked()
	return n
}

// IsRegistered reports whether id is present.
func (r *Registry) IsRegistered(id int) bool {
	_, ok := r.Get(id)
	return ok
}

// Get returns the definition for id.
func (r *Registry) Get(id int) (Definition, bool) {
	for _, def := range *r.current.Load() {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int { return len(*r.current.Load()) }

// Snapshot returns the definitions ordered by ID. The slice is shared and
// must not be modified by the caller.
func (r *Registry) Snapshot() []Definition { return *r.current.Load() }

func (r *Registry) publishLocked() {
	defs := make([]Definition, 0, len(r.byID))
	for _, def := range r.byID {
		defs = append(defs, def)
	}
	slices.SortFunc(defs, func(a, b Definition) int { return a.ID - b.ID })
	r.current.Store(&defs)
}

func validDefinition(def Definition) bool {
	if def.ID <= 0 {
		slog.Warn("[hotkey] rejecting hotkey with non-positive id", "hotkeyID", def.ID)
		return false
	}
	if def.Action == nil {
		slog.Warn("[hotkey] rejecting hotkey without action", "hotkeyID", def.ID)
		return false
	}
	return true
}
