package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"beatbind/internal/workerutil"
)

// State is the engine lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StatePaused
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// Modifiers maps modifier families to raw codes of the source's code
	// space. Defaults to PlatformLayout().Modifiers().
	Modifiers ModifierTable
	// LivenessInterval is the hook liveness check period. 0 disables checks.
	LivenessInterval time.Duration
	// ReinstallOnDetach replaces a hook that the OS silently removed.
	ReinstallOnDetach bool
	// Now stamps TriggerEvents. Defaults to time.Now.
	Now func() time.Time
}

// Status is a point-in-time view of the engine.
type Status struct {
	State      State
	Source     string
	HookAlive  bool
	Hotkeys    int
	Engaged    []int
	Pressed    []KeyCode
	InFlight   int64
	Detaches   int
	Reinstalls int
	LastError  string
}

// Engine is the global hotkey detection engine. It owns the registry, the
// pressed-key state, the engagement set and the dispatcher, and consumes key
// events from a KeySource.
type Engine struct {
	source     KeySource
	opts       EngineOptions
	registry   *Registry
	keys       *KeyState
	engaged    *engagementSet
	dispatcher *Dispatcher
	input      engineInput

	// running gates the hook path without taking mu.
	running atomic.Bool
	closed  atomic.Bool

	mu             sync.Mutex
	state          State
	hook           Hook
	lastErr        error
	detachWarned   bool
	detaches       int
	reinstalls     int
	watchdogCancel context.CancelFunc
	watchdogWG     sync.WaitGroup
}

// NewEngine creates a stopped engine reading from source.
func NewEngine(source KeySource, opts EngineOptions) *Engine {
	if opts.Modifiers == nil {
		opts.Modifiers = PlatformLayout().Modifiers()
	}
	e := &Engine{
		source:     source,
		opts:       opts,
		registry:   NewRegistry(),
		keys:       NewKeyState(opts.Modifiers),
		engaged:    newEngagementSet(),
		dispatcher: NewDispatcher(opts.Now),
	}
	e.input = engineInput{e: e}
	return e
}

// engineInput adapts the engine to KeyHandler without exporting the hook
// entry points on Engine itself.
type engineInput struct{ e *Engine }

func (in engineInput) KeyDown(code KeyCode) { in.e.onKeyDown(code) }
func (in engineInput) KeyUp(code KeyCode)   { in.e.onKeyUp(code) }

func (e *Engine) onKeyDown(code KeyCode) {
	if !e.running.Load() {
		return
	}
	defer e.recoverHook("key-down", code)

	e.keys.KeyDown(code)
	mods, isDown := e.keys.view()
	for _, def := range e.registry.Snapshot() {
		if !def.Enabled || !isDown(def.Key) || def.Modifiers != mods {
			continue
		}
		// Already engaged: OS key-repeat of a held combination.
		if !e.engaged.engage(def.ID) {
			continue
		}
		slog.Debug("[DEBUG-HOTKEY] hotkey engaged",
			"hotkeyID", def.ID,
			"action", def.Name,
			"modifiers", mods.String(),
		)
		e.dispatcher.Dispatch(def)
	}
}

func (e *Engine) onKeyUp(code KeyCode) {
	if !e.running.Load() {
		return
	}
	defer e.recoverHook("key-up", code)

	e.keys.KeyUp(code)
	mods, isDown := e.keys.view()
	released := e.engaged.release(e.registry.Get, func(def Definition) bool {
		return isDown(def.Key) && def.Modifiers == mods
	})
	if len(released) > 0 {
		slog.Debug("[DEBUG-HOTKEY] hotkeys re-armed", "hotkeyIDs", released)
	}
}

func (e *Engine) recoverHook(phase string, code KeyCode) {
	if r := recover(); r != nil {
		slog.Error("[DEBUG-PANIC] recovered panic in keyboard hook",
			"phase", phase,
			"key", code,
			"panic", r,
		)
	}
}

// Start installs the keyboard hook and begins matching. Install failures are
// returned as *HookInstallError; the engine stays usable and Start or Resume
// may be retried.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateRunning:
		return nil
	case StateShutdown:
		return ErrEngineShutdown
	}
	return e.activateLocked("start")
}

// Pause uninstalls the hook. Registered hotkeys stay registered but inert.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StatePaused:
		return nil
	case StateShutdown:
		return ErrEngineShutdown
	}
	err := e.deactivateLocked()
	e.state = StatePaused
	slog.Info("[hotkey] hotkeys paused")
	return err
}

// Resume reinstalls the hook after Pause (or after a failed Start).
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateRunning:
		return nil
	case StateShutdown:
		return ErrEngineShutdown
	}
	return e.activateLocked("resume")
}

// Shutdown unregisters every hotkey and then uninstalls the hook. It is
// idempotent. Actions already dispatched keep running; use Wait to drain them.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if e.state == StateShutdown {
		e.mu.Unlock()
		return nil
	}
	e.closed.Store(true)
	removed := e.registry.Close()
	err := e.deactivateLocked()
	e.state = StateShutdown
	e.mu.Unlock()

	e.watchdogWG.Wait()
	slog.Info("[hotkey] hotkey engine shut down", "unregistered", removed)
	return err
}

// Wait blocks until every dispatched action has returned and every trigger
// notification has been delivered, or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	return e.dispatcher.Wait(ctx)
}

func (e *Engine) activateLocked(op string) error {
	e.keys.Reset()
	e.engaged.reset()

	hook, err := e.install()
	if err != nil {
		e.lastErr = err
		slog.Warn("[WARN-HOTKEY] hotkeys are currently inactive",
			"operation", op,
			"source", e.source.Name(),
			"error", err,
		)
		return err
	}
	e.hook = hook
	e.lastErr = nil
	e.detachWarned = false
	e.state = StateRunning
	e.running.Store(true)
	e.startWatchdogLocked()
	slog.Info("[hotkey] keyboard hook installed",
		"operation", op,
		"source", e.source.Name(),
		"hotkeys", e.registry.Len(),
	)
	return nil
}

func (e *Engine) install() (Hook, error) {
	hook, err := e.source.Install(e.input)
	if err != nil {
		var installErr *HookInstallError
		if !errors.As(err, &installErr) {
			err = &HookInstallError{Source: e.source.Name(), Err: err}
		}
		return nil, err
	}
	return hook, nil
}

func (e *Engine) deactivateLocked() error {
	e.running.Store(false)
	e.stopWatchdogLocked()

	var err error
	if e.hook != nil {
		if uninstallErr := e.hook.Uninstall(); uninstallErr != nil {
			err = fmt.Errorf("uninstall %s keyboard hook: %w", e.source.Name(), uninstallErr)
			slog.Warn("[WARN-HOTKEY] keyboard hook uninstall failed", "error", uninstallErr)
		}
		e.hook = nil
	}
	e.keys.Reset()
	e.engaged.reset()
	return err
}

func (e *Engine) startWatchdogLocked() {
	if e.opts.LivenessInterval <= 0 || e.watchdogCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.watchdogCancel = cancel
	workerutil.RunWithPanicRecovery(ctx, "hotkey-liveness", &e.watchdogWG, e.watchLiveness, workerutil.RecoveryOptions{
		MaxRetries: 3,
		IsShutdown: e.closed.Load,
	})
}

// stopWatchdogLocked cancels the current watchdog without waiting for it:
// the watchdog takes mu on every tick, and its context check makes a stale
// tick a no-op.
func (e *Engine) stopWatchdogLocked() {
	if e.watchdogCancel != nil {
		e.watchdogCancel()
		e.watchdogCancel = nil
	}
}

func (e *Engine) watchLiveness(ctx context.Context) {
	ticker := time.NewTicker(e.opts.LivenessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.checkLiveness(ctx)
		}
	}
}

func (e *Engine) checkLiveness(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() != nil || e.state != StateRunning {
		return
	}
	if e.hook != nil && e.hook.Alive() {
		e.detachWarned = false
		return
	}
	if !e.detachWarned {
		e.detachWarned = true
		e.detaches++
		slog.Warn("[WARN-HOTKEY] keyboard hook detached",
			"source", e.source.Name(),
			"reinstall", e.opts.ReinstallOnDetach,
		)
	}
	if e.opts.ReinstallOnDetach {
		e.reinstallLocked()
	}
}

func (e *Engine) reinstallLocked() {
	if e.hook != nil {
		if err := e.hook.Uninstall(); err != nil {
			slog.Debug("[DEBUG-HOTKEY] uninstalling detached hook failed", "error", err)
		}
		e.hook = nil
	}
	e.keys.Reset()
	e.engaged.reset()

	hook, err := e.install()
	if err != nil {
		e.lastErr = err
		slog.Warn("[WARN-HOTKEY] keyboard hook reinstall failed, retrying on next check", "error", err)
		return
	}
	e.hook = hook
	e.lastErr = nil
	e.detachWarned = false
	e.reinstalls++
	slog.Info("[hotkey] keyboard hook reinstalled", "source", e.source.Name())
}

// RegisterHotkey adds def. It returns false when def.ID is already
// registered, def is invalid, or the engine is shut down.
func (e *Engine) RegisterHotkey(def Definition) bool {
	if e.closed.Load() {
		slog.Warn("[WARN-HOTKEY] engine is shut down, hotkey not registered", "hotkeyID", def.ID)
		return false
	}
	if e.registry.IsRegistered(def.ID) {
		slog.Warn("[WARN-HOTKEY] hotkey id already registered", "hotkeyID", def.ID, "action", def.Name)
		return false
	}
	if !e.registry.Register(def) {
		if e.closed.Load() {
			slog.Warn("[WARN-HOTKEY] engine is shut down, hotkey not registered", "hotkeyID", def.ID)
		}
		return false
	}
	slog.Info("[hotkey] hotkey registered",
		"hotkeyID", def.ID,
		"action", def.Name,
		"modifiers", def.Modifiers.String(),
		"key", def.Key,
		"enabled", def.Enabled,
	)
	return true
}

// UnregisterHotkey removes id. It returns false when id is unknown.
func (e *Engine) UnregisterHotkey(id int) bool {
	if !e.registry.Unregister(id) {
		slog.Debug("[DEBUG-HOTKEY] unregister of unknown hotkey id", "hotkeyID", id)
		return false
	}
	slog.Info("[hotkey] hotkey unregistered", "hotkeyID", id)
	return true
}

// UnregisterAllHotkeys removes every hotkey.
func (e *Engine) UnregisterAllHotkeys() {
	n := e.registry.UnregisterAll()
	slog.Info("[hotkey] all hotkeys unregistered", "count", n)
}

// IsHotkeyRegistered reports whether id is registered.
func (e *Engine) IsHotkeyRegistered(id int) bool {
	return e.registry.IsRegistered(id)
}

// UpdateHotkey atomically replaces the definition with def.ID.
func (e *Engine) UpdateHotkey(def Definition) bool {
	if e.closed.Load() {
		return false
	}
	if !e.registry.Update(def) {
		return false
	}
	slog.Info("[hotkey] hotkey updated",
		"hotkeyID", def.ID,
		"action", def.Name,
		"modifiers", def.Modifiers.String(),
		"key", def.Key,
		"enabled", def.Enabled,
	)
	return true
}

// SetHotkeyEnabled enables or disables id without replacing it.
func (e *Engine) SetHotkeyEnabled(id int, enabled bool) bool {
	return e.registry.SetEnabled(id, enabled)
}

// Hotkeys returns the registered definitions ordered by id.
func (e *Engine) Hotkeys() []Definition {
	return slices.Clone(e.registry.Snapshot())
}

// OnHotkeyTriggered subscribes fn to trigger notifications. fn runs after
// the action has been dispatched, possibly while it is still running, and
// never holds the action back.
func (e *Engine) OnHotkeyTriggered(fn func(TriggerEvent)) (unsubscribe func()) {
	return e.dispatcher.Subscribe(fn)
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	st := Status{
		State:      e.state,
		Source:     e.source.Name(),
		HookAlive:  e.hook != nil && e.hook.Alive(),
		Detaches:   e.detaches,
		Reinstalls: e.reinstalls,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	e.mu.Unlock()

	st.Hotkeys = e.registry.Len()
	st.Engaged = e.engaged.list()
	st.Pressed = e.keys.Pressed()
	st.InFlight = e.dispatcher.InFlight()
	return st
}
