package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"beatbind/internal/config"
	"beatbind/internal/history"
	"beatbind/internal/hotkeys"
	"beatbind/internal/ipc"
	"beatbind/internal/wsserver"

	"golang.org/x/sync/errgroup"
)

var (
	newKeySourceFn     = hotkeys.NewPlatformSource
	openHistoryFn      = history.Open
	newHubFn           = wsserver.NewHub
	newControlServerFn = ipc.NewServer
	watchConfigFn      = config.Watch
)

const shutdownWaitTimeout = 10 * time.Second

// startup loads the config, registers hotkeys, starts the optional services
// and installs the keyboard hook. Only a cancelled ctx is fatal: every other
// failure is logged, kept as a startup warning and the daemon keeps running.
func (a *App) startup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.startedAt = time.Now()

	if a.configPath == "" {
		a.configPath = config.DefaultPath()
		for _, message := range config.ConsumeDefaultPathWarnings() {
			a.addStartupWarning(message)
		}
	}
	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		// Continue with defaults; the watcher picks up a fixed file later.
		cfg = config.DefaultConfig()
		a.addStartupWarning("Failed to load config file at startup. Running with defaults. Error: " + err.Error())
		slog.Warn("[WARN-CONFIG] failed to load config", "path", a.configPath, "error", err)
	}
	a.applyLogLevel(cfg.LogLevel)

	a.engine = a.newEngine(cfg.Engine)
	a.unsubscribe = a.engine.OnHotkeyTriggered(a.onTriggered)
	if err := a.applyConfig(cfg); err != nil {
		a.addStartupWarning("Some hotkeys could not be registered: " + err.Error())
	}

	a.startHistory(cfg)
	a.startHub(ctx, cfg)
	a.startControl(cfg)
	a.startWatcher()

	if err := a.engine.Start(); err != nil {
		slog.Error("[hotkey] hotkeys are currently inactive",
			"source", a.engine.Status().Source,
			"error", err,
		)
		a.addStartupWarning("hotkeys are currently inactive: " + err.Error())
	}
	a.emitEngineState("startup")

	for _, warning := range a.startupWarningsSnapshot() {
		slog.Warn("[WARN-CONFIG] startup warning", "message", warning)
	}
	slog.Info("[hotkey] beatbind started",
		"config", a.configPath,
		"hotkeys", len(a.engine.Hotkeys()),
		"state", a.engine.Status().State.String(),
	)
	return nil
}

func (a *App) startHistory(cfg config.Config) {
	if !cfg.History.Enabled {
		slog.Debug("[DEBUG-CONFIG] trigger history disabled")
		return
	}
	path := config.HistoryPath(cfg, a.configPath)
	store, err := openHistoryFn(path, cfg.History.Keep)
	if err != nil {
		slog.Warn("[WARN-HISTORY] trigger history unavailable", "path", path, "error", err)
		a.addStartupWarning("Failed to open trigger history. Triggers will not be recorded. Error: " + err.Error())
		return
	}
	a.history = store
}

func (a *App) startHub(ctx context.Context, cfg config.Config) {
	addr := cfg.Notifications.WebSocketAddr
	if addr == "" {
		slog.Debug("[DEBUG-WS] notification hub disabled")
		return
	}
	hub := newHubFn(wsserver.HubOptions{Addr: addr})
	if err := hub.Start(ctx); err != nil {
		slog.Warn("[DEBUG-WS] notification hub failed to start", "addr", addr, "error", err)
		a.addStartupWarning("Failed to start notification server. Observers will not receive events. Error: " + err.Error())
		return
	}
	a.hub = hub
}

func (a *App) startControl(cfg config.Config) {
	if !cfg.Control.Enabled {
		slog.Debug("[DEBUG-IPC] control channel disabled")
		return
	}
	server := newControlServerFn(cfg.Control.Address, ipc.ExecutorFunc(a.Execute))
	if err := server.Start(); err != nil {
		slog.Warn("[ipc] control server failed", "error", err)
		a.addStartupWarning("Failed to start control channel. beatbind ctl will be unavailable. Error: " + err.Error())
		return
	}
	a.control = server
}

func (a *App) startWatcher() {
	w, err := watchConfigFn(a.configPath, a.onConfigChanged, config.WatchOptions{OnError: a.onConfigError})
	if err != nil {
		slog.Warn("[WARN-CONFIG] config watcher unavailable", "path", a.configPath, "error", err)
		a.addStartupWarning("Config changes will not be picked up until restart. Error: " + err.Error())
		return
	}
	a.watcher = w
}

// shutdown stops the watcher, shuts the engine down, drains running actions
// and then tears down the remaining services concurrently. It is idempotent.
func (a *App) shutdown() error {
	if !a.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil && !errors.Is(err, config.ErrWatcherClosed) {
			errs = append(errs, fmt.Errorf("close config watcher: %w", err))
		}
	}

	if a.engine != nil {
		if err := a.engine.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown hotkey engine: %w", err))
		}
		a.emitEngineState("shutdown")

		drain := a.getConfigSnapshot().Engine.DrainTimeout
		if drain <= 0 {
			drain = shutdownWaitTimeout
		}
		drainCtx, cancel := context.WithTimeout(context.Background(), drain)
		if err := a.engine.Wait(drainCtx); err != nil {
			slog.Warn("[WARN-HOTKEY] timed out waiting for running actions",
				"timeout", drain,
				"inFlight", a.engine.Status().InFlight,
			)
		}
		cancel()
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}

	var g errgroup.Group
	if a.hub != nil {
		g.Go(a.hub.Stop)
	}
	if a.control != nil {
		g.Go(a.control.Stop)
	}
	if a.history != nil {
		g.Go(a.history.Close)
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err != nil {
		slog.Warn("[hotkey] shutdown completed with errors", "error", err)
	} else {
		slog.Info("[hotkey] beatbind stopped")
	}
	return err
}

// run starts the daemon and blocks until ctx is done.
func (a *App) run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.shutdown()
}
