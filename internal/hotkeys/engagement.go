package hotkeys

import (
	"slices"
	"sync"
)

// engagementSet holds the ids whose action fired and whose combination has
// not been released yet. An id is Idle when absent and Engaged when present.
type engagementSet struct {
	mu  sync.Mutex
	ids map[int]struct{}
}

func newEngagementSet() *engagementSet {
	return &engagementSet{ids: make(map[int]struct{})}
}

// engage moves id to Engaged. It returns false if id was already Engaged,
// which is what suppresses OS key-repeat.
func (s *engagementSet) engage(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.ids[id]; held {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// release re-arms every engaged id for which stillHeld returns false.
// Ids missing from the registry count as released.
func (s *engagementSet) release(lookup func(int) (Definition, bool), stillHeld func(Definition) bool) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return nil
	}
	var released []int
	for id := range s.ids {
		def, ok := lookup(id)
		if ok && stillHeld(def) {
			continue
		}
		delete(s.ids, id)
		released = append(released, id)
	}
	slices.Sort(released)
	return released
}

func (s *engagementSet) contains(id int) bool {
	s.mu.Lock()
	_, ok := s.ids[id]
	s.mu.Unlock()
	return ok
}

func (s *engagementSet) list() []int {
	s.mu.Lock()
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	slices.Sort(ids)
	return ids
}

func (s *engagementSet) reset() {
	s.mu.Lock()
	clear(s.ids)
	s.mu.Unlock()
}
