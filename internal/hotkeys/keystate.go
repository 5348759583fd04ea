package hotkeys

import (
	"slices"
	"sync"
)

// KeyState tracks the raw key codes currently held down and derives the
// active modifier set from them.
type KeyState struct {
	modifiers ModifierTable

	mu      sync.Mutex
	pressed map[KeyCode]struct{}
}

// NewKeyState creates an empty tracker resolving modifiers via table.
func NewKeyState(table ModifierTable) *KeyState {
	return &KeyState{
		modifiers: table,
		pressed:   make(map[KeyCode]struct{}, 8),
	}
}

// KeyDown records code as pressed. Repeats are idempotent.
func (s *KeyState) KeyDown(code KeyCode) {
	s.mu.Lock()
	s.pressed[code] = struct{}{}
	s.mu.Unlock()
}

// KeyUp records code as released.
func (s *KeyState) KeyUp(code KeyCode) {
	s.mu.Lock()
	delete(s.pressed, code)
	s.mu.Unlock()
}

// IsDown reports whether code is currently pressed.
func (s *KeyState) IsDown(code KeyCode) bool {
	s.mu.Lock()
	_, ok := s.pressed[code]
	s.mu.Unlock()
	return ok
}

// Modifiers computes the active modifier set from the pressed keys.
func (s *KeyState) Modifiers() ModifierSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modifiersLocked()
}

func (s *KeyState) modifiersLocked() ModifierSet {
	return s.modifiers.Resolve(func(code KeyCode) bool {
		_, ok := s.pressed[code]
		return ok
	})
}

// view returns a consistent read of the modifier set and a membership probe
// over a copy of the pressed set, taken under a single lock acquisition.
func (s *KeyState) view() (ModifierSet, func(KeyCode) bool) {
	s.mu.Lock()
	mods := s.modifiersLocked()
	pressed := make(map[KeyCode]struct{}, len(s.pressed))
	for code := range s.pressed {
		pressed[code] = struct{}{}
	}
	s.mu.Unlock()
	return mods, func(code KeyCode) bool {
		_, ok := pressed[code]
		return ok
	}
}

// Pressed returns the pressed codes in ascending order.
func (s *KeyState) Pressed() []KeyCode {
	s.mu.Lock()
	codes := make([]KeyCode, 0, len(s.pressed))
	for code := range s.pressed {
		codes = append(codes, code)
	}
	s.mu.Unlock()
	slices.Sort(codes)
	return codes
}

// Reset forgets every pressed key.
func (s *KeyState) Reset() {
	s.mu.Lock()
	clear(s.pressed)
	s.mu.Unlock()
}
