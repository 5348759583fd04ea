package hotkeys

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ManualSource is a KeySource driven by code instead of the OS. Press,
// Release and Tap deliver events synchronously to the installed handler.
type ManualSource struct {
	// deliverMu serializes deliveries against Uninstall.
	deliverMu sync.Mutex

	mu         sync.Mutex
	handler    KeyHandler
	hook       *manualHook
	installErr error
	installs   int
}

// NewManualSource creates a source with no hook installed.
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

func (s *ManualSource) Name() string { return "manual" }

// Install implements KeySource.
func (s *ManualSource) Install(h KeyHandler) (Hook, error) {
	if h == nil {
		return nil, &HookInstallError{Source: s.Name(), Err: fmt.Errorf("nil key handler")}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.installErr != nil {
		return nil, &HookInstallError{Source: s.Name(), Err: s.installErr}
	}
	if s.hook != nil {
		return nil, &HookInstallError{Source: s.Name(), Err: ErrHookAlreadyInstalled}
	}
	hook := &manualHook{src: s}
	hook.alive.Store(true)
	s.hook = hook
	s.handler = h
	s.installs++
	return hook, nil
}

// SetInstallError makes subsequent Install calls fail with err (nil clears it).
func (s *ManualSource) SetInstallError(err error) {
	s.mu.Lock()
	s.installErr = err
	s.mu.Unlock()
}

// Installs returns how many times Install succeeded.
func (s *ManualSource) Installs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installs
}

// Installed reports whether a hook is currently installed and alive.
func (s *ManualSource) Installed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hook != nil && s.hook.alive.Load()
}

// Detach simulates the OS silently removing the hook: events stop flowing
// and Alive turns false, but the hook stays installed until Uninstall.
func (s *ManualSource) Detach() {
	s.mu.Lock()
	if s.hook != nil {
		s.hook.alive.Store(false)
	}
	s.mu.Unlock()
}

// Press delivers a key-down. It returns false when no live hook received it.
func (s *ManualSource) Press(code KeyCode) bool {
	return s.deliver(func(h KeyHandler) { h.KeyDown(code) })
}

// Release delivers a key-up. It returns false when no live hook received it.
func (s *ManualSource) Release(code KeyCode) bool {
	return s.deliver(func(h KeyHandler) { h.KeyUp(code) })
}

// Tap presses codes in order and releases them in reverse order.
func (s *ManualSource) Tap(codes ...KeyCode) bool {
	delivered := true
	for _, code := range codes {
		delivered = s.Press(code) && delivered
	}
	for i := len(codes) - 1; i >= 0; i-- {
		delivered = s.Release(codes[i]) && delivered
	}
	return delivered
}

func (s *ManualSource) deliver(fn func(KeyHandler)) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	h := s.handler
	live := s.hook != nil && s.hook.alive.Load()
	s.mu.Unlock()
	if !live {
		return false
	}
	fn(h)
	return true
}

type manualHook struct {
	src   *ManualSource
	alive atomic.Bool
}

func (h *manualHook) Uninstall() error {
	s := h.src
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	h.alive.Store(false)
	if s.hook == h {
		s.hook = nil
		s.handler = nil
	}
	return nil
}

func (h *manualHook) Alive() bool { return h.alive.Load() }
