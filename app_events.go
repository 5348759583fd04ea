package main

import (
	"context"
	"log/slog"
	"time"

	"beatbind/internal/actions"
	"beatbind/internal/config"
	"beatbind/internal/history"
	"beatbind/internal/hotkeys"
	"beatbind/internal/wsserver"
)

const historyWriteTimeout = 2 * time.Second

// onTriggered observes every dispatched hotkey: it records the trigger and
// notifies websocket observers. It runs on the dispatch goroutine.
func (a *App) onTriggered(ev hotkeys.TriggerEvent) {
	binding := hotkeys.FormatBinding(ev.Hotkey.Modifiers, ev.Hotkey.Key, a.layout)
	slog.Info("[hotkey] hotkey triggered",
		"hotkeyID", ev.Hotkey.ID,
		"action", ev.Hotkey.Name,
		"binding", binding,
	)

	if a.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
		defer cancel()
		_, err := a.history.Record(ctx, history.Entry{
			HotkeyID: ev.Hotkey.ID,
			Action:   ev.Hotkey.Name,
			Binding:  binding,
			At:       ev.At,
		})
		if err != nil {
			slog.Warn("[WARN-HISTORY] failed to record trigger",
				"hotkeyID", ev.Hotkey.ID,
				"error", err,
			)
		}
	}

	a.broadcast(wsserver.EventHotkeyTriggered, wsserver.TriggeredPayload{
		HotkeyID:    ev.Hotkey.ID,
		Action:      ev.Hotkey.Name,
		DisplayName: actions.DisplayName(actions.ID(ev.Hotkey.Name)),
		Binding:     binding,
		TriggeredAt: ev.At,
	})
}

func (a *App) broadcast(eventType string, payload any) {
	if a.hub == nil {
		return
	}
	if _, err := a.hub.Broadcast(eventType, payload); err != nil {
		slog.Warn("[DEBUG-WS] broadcast failed", "event", eventType, "error", err)
	}
}

// emitEngineState tells observers about the current engine state.
func (a *App) emitEngineState(detail string) {
	st := a.engine.Status()
	a.broadcast(wsserver.EventEngineState, wsserver.EngineStatePayload{
		State:     st.State.String(),
		HookAlive: st.HookAlive,
		Detail:    detail,
	})
}

// onConfigChanged applies a reloaded config. Errors leave the valid part of
// the new hotkey table in effect.
func (a *App) onConfigChanged(cfg config.Config) {
	if a.shuttingDown.Load() {
		return
	}
	prev := a.getConfigSnapshot()
	a.applyLogLevel(cfg.LogLevel)
	err := a.applyConfig(cfg)

	if changed := restartRequiredChanges(prev, cfg); len(changed) > 0 {
		slog.Warn("[WARN-CONFIG] settings change takes effect after restart", "settings", changed)
	}

	payload := wsserver.ConfigReloadedPayload{Hotkeys: len(a.engine.Hotkeys())}
	if err != nil {
		payload.Error = err.Error()
		slog.Warn("[WARN-CONFIG] config reloaded with errors", "path", a.configPath, "error", err)
	} else {
		slog.Info("[config] config reloaded", "path", a.configPath, "hotkeys", payload.Hotkeys)
	}
	a.broadcast(wsserver.EventConfigReloaded, payload)
}

// onConfigError keeps the previous config after a failed reload.
func (a *App) onConfigError(err error) {
	slog.Warn("[WARN-CONFIG] config reload failed, keeping previous config",
		"path", a.configPath,
		"error", err,
	)
	a.broadcast(wsserver.EventConfigReloaded, wsserver.ConfigReloadedPayload{
		Hotkeys: len(a.engine.Hotkeys()),
		Error:   err.Error(),
	})
}
