package main

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"beatbind/internal/actions"
	"beatbind/internal/config"
	"beatbind/internal/hotkeys"
)

var newControllerFn = newController

// newController builds the action controller for cfg. Dry-run mode only logs.
func newController(cfg config.ActionsConfig) (actions.Controller, error) {
	if cfg.DryRun {
		return actions.NewLogController(), nil
	}
	commands := make(map[actions.ID][]string, len(cfg.Commands))
	for id, argv := range cfg.Commands {
		commands[actions.ID(id)] = argv
	}
	ctrl, err := actions.NewExecController(actions.ExecOptions{
		Commands:   commands,
		VolumeStep: cfg.VolumeStep,
		SeekStep:   cfg.SeekStep,
	})
	if err != nil {
		return nil, err
	}
	return ctrl, nil
}

// hotkeyDefinition converts one configured hotkey into an engine definition
// whose action runs on ctrl.
func hotkeyDefinition(h config.Hotkey, layout hotkeys.Layout, ctrl actions.Controller, cfg config.ActionsConfig) (hotkeys.Definition, error) {
	binding, err := hotkeys.ParseBinding(h.Binding, layout)
	if err != nil {
		return hotkeys.Definition{}, fmt.Errorf("hotkey %d: %w", h.ID, err)
	}
	return hotkeys.Definition{
		ID:        h.ID,
		Key:       binding.Key(),
		Modifiers: binding.Modifiers(),
		Enabled:   h.IsEnabled(),
		Name:      h.Action,
		Action:    actions.Bind(ctrl, actions.ID(h.Action), cfg.Timeout),
	}, nil
}

// bindingConflicts groups enabled hotkey ids by the normalized binding they
// share. Only bindings used more than once are returned; every id in a group
// fires on the same combination. Unparseable bindings are ignored.
func bindingConflicts(cfg config.Config, layout hotkeys.Layout) map[string][]int {
	byBinding := make(map[string][]int)
	for _, h := range cfg.Hotkeys {
		if !h.IsEnabled() {
			continue
		}
		binding, err := hotkeys.ParseBinding(h.Binding, layout)
		if err != nil {
			continue
		}
		byBinding[binding.Normalized()] = append(byBinding[binding.Normalized()], h.ID)
	}
	for key, ids := range byBinding {
		if len(ids) < 2 {
			delete(byBinding, key)
			continue
		}
		slices.Sort(ids)
	}
	return byBinding
}

type configuredChecker interface {
	Configured(id actions.ID) bool
}

// applyConfig reconciles the engine's hotkey table with cfg: new ids are
// registered, existing ids are replaced atomically and ids missing from cfg
// are unregistered. Hotkeys with invalid bindings are skipped and reported
// in the joined error; the rest of the table is still applied.
func (a *App) applyConfig(cfg config.Config) error {
	a.applyMu.Lock()
	defer a.applyMu.Unlock()

	var errs []error
	ctrl, err := newControllerFn(cfg.Actions)
	if err != nil {
		errs = append(errs, fmt.Errorf("build action controller: %w", err))
		ctrl = a.controller()
		if ctrl == nil {
			slog.Warn("[WARN-CONFIG] falling back to dry-run actions", "error", err)
			ctrl = actions.NewLogController()
		}
	}
	a.ctrlMu.Lock()
	a.ctrl = ctrl
	a.ctrlMu.Unlock()

	checker, _ := ctrl.(configuredChecker)
	wanted := make(map[int]struct{}, len(cfg.Hotkeys))
	for _, h := range cfg.Hotkeys {
		def, err := hotkeyDefinition(h, a.layout, ctrl, cfg.Actions)
		if err != nil {
			slog.Warn("[WARN-CONFIG] skipping hotkey with invalid binding",
				"hotkeyID", h.ID,
				"binding", h.Binding,
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		if checker != nil && !checker.Configured(actions.ID(h.Action)) {
			slog.Warn("[WARN-CONFIG] no command configured for action",
				"hotkeyID", h.ID,
				"action", h.Action,
			)
		}
		wanted[def.ID] = struct{}{}

		if a.engine.IsHotkeyRegistered(def.ID) {
			if !a.engine.UpdateHotkey(def) {
				errs = append(errs, fmt.Errorf("hotkey %d: update rejected", def.ID))
			}
			continue
		}
		if !a.engine.RegisterHotkey(def) {
			errs = append(errs, fmt.Errorf("hotkey %d: registration rejected", def.ID))
		}
	}

	for _, def := range a.engine.Hotkeys() {
		if _, ok := wanted[def.ID]; !ok {
			a.engine.UnregisterHotkey(def.ID)
		}
	}

	for binding, ids := range bindingConflicts(cfg, a.layout) {
		slog.Warn("[WARN-CONFIG] hotkeys share a binding and will fire together",
			"binding", binding,
			"hotkeyIDs", ids,
		)
	}

	a.setConfigSnapshot(cfg)
	return errors.Join(errs...)
}

// restartRequiredChanges lists the settings that differ between prev and
// next but only take effect after a restart.
func restartRequiredChanges(prev, next config.Config) []string {
	var changed []string
	if prev.Engine.LivenessInterval != next.Engine.LivenessInterval {
		changed = append(changed, "engine.liveness_interval")
	}
	if prev.Engine.ReinstallOnDetach != next.Engine.ReinstallOnDetach {
		changed = append(changed, "engine.reinstall_on_detach")
	}
	if prev.Notifications.WebSocketAddr != next.Notifications.WebSocketAddr {
		changed = append(changed, "notifications.websocket_addr")
	}
	if prev.History != next.History {
		changed = append(changed, "history")
	}
	if prev.Control != next.Control {
		changed = append(changed, "control")
	}
	return changed
}
