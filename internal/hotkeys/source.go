package hotkeys

import (
	"errors"
	"strings"
	"sync"
)

// KeyHandler receives raw key transitions from a KeySource. Calls arrive
// sequentially and must return quickly.
type KeyHandler interface {
	KeyDown(code KeyCode)
	KeyUp(code KeyCode)
}

// KeySource installs a system-wide keyboard observation hook.
type KeySource interface {
	// Name identifies the source in logs ("win32-ll", "evdev", "manual").
	Name() string
	// Install starts delivering key events to h. Failures are *HookInstallError.
	Install(h KeyHandler) (Hook, error)
}

// Hook is an installed keyboard hook.
type Hook interface {
	// Uninstall is idempotent. No callbacks occur after it returns.
	Uninstall() error
	// Alive reports whether the OS still delivers events to the hook.
	Alive() bool
}

// Combine merges several sources into one. Events from all of them are
// serialized before reaching the handler, so the handler still sees one
// event at a time.
func Combine(sources ...KeySource) KeySource {
	if len(sources) == 1 {
		return sources[0]
	}
	return &combinedSource{sources: sources}
}

type combinedSource struct {
	sources []KeySource
}

func (c *combinedSource) Name() string {
	names := make([]string, 0, len(c.sources))
	for _, src := range c.sources {
		names = append(names, src.Name())
	}
	return strings.Join(names, "+")
}

func (c *combinedSource) Install(h KeyHandler) (Hook, error) {
	serial := &serialHandler{next: h}
	hooks := make(combinedHook, 0, len(c.sources))
	for _, src := range c.sources {
		hook, err := src.Install(serial)
		if err != nil {
			if rollbackErr := hooks.Uninstall(); rollbackErr != nil {
				err = errors.Join(err, rollbackErr)
			}
			return nil, err
		}
		hooks = append(hooks, hook)
	}
	return hooks, nil
}

type combinedHook []Hook

func (hs combinedHook) Uninstall() error {
	var errs []error
	for _, h := range hs {
		if err := h.Uninstall(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (hs combinedHook) Alive() bool {
	for _, h := range hs {
		if !h.Alive() {
			return false
		}
	}
	return true
}

type serialHandler struct {
	mu   sync.Mutex
	next KeyHandler
}

func (s *serialHandler) KeyDown(code KeyCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.KeyDown(code)
}

func (s *serialHandler) KeyUp(code KeyCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next.KeyUp(code)
}
