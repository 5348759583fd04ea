package hotkeys

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform is the cause of HookInstallError on platforms
	// without a global keyboard hook.
	ErrUnsupportedPlatform = errors.New("global keyboard hook is not supported on this platform")
	// ErrHookAlreadyInstalled is returned when a source already has a live hook.
	ErrHookAlreadyInstalled = errors.New("keyboard hook already installed")
	// ErrEngineShutdown is returned by lifecycle calls after Shutdown.
	ErrEngineShutdown = errors.New("hotkey engine is shut down")
)

// HookInstallError reports that the OS refused the keyboard hook.
type HookInstallError struct {
	Source string
	Err    error
}

func (e *HookInstallError) Error() string {
	return fmt.Sprintf("install %s keyboard hook: %v", e.Source, e.Err)
}

func (e *HookInstallError) Unwrap() error { return e.Err }

// ActionExecutionError wraps a failure (returned error or panic) of a
// dispatched action.
type ActionExecutionError struct {
	HotkeyID int
	Name     string
	Err      error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("hotkey %d (%s) action failed: %v", e.HotkeyID, e.Name, e.Err)
}

func (e *ActionExecutionError) Unwrap() error { return e.Err }
