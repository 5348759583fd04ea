package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"beatbind/internal/actions"
	"beatbind/internal/config"
	"beatbind/internal/history"
	"beatbind/internal/hotkeys"
	"beatbind/internal/ipc"
	"beatbind/internal/testutil"
	"beatbind/internal/wsserver"
)

// NOTE: tests in this package replace package-level function variables
// (newKeySourceFn, newControllerFn, ...). Do not use t.Parallel() here.

const appTestTimeout = 2 * time.Second

func restoreAppSeams() {
	newKeySourceFn = hotkeys.NewPlatformSource
	newControllerFn = newController
	openHistoryFn = history.Open
	newHubFn = wsserver.NewHub
	newControlServerFn = ipc.NewServer
	watchConfigFn = config.Watch
}

// isolateDefaultServices keeps configs that enable every service (the
// defaults) from claiming the per-user control address or a fixed port.
func isolateDefaultServices(t *testing.T) {
	t.Helper()
	t.Cleanup(restoreAppSeams)
	newControlServerFn = func(address string, _ ipc.CommandExecutor) *ipc.Server {
		// A server without an executor fails in Start before listening.
		return ipc.NewServer(address, nil)
	}
	newHubFn = func(opts wsserver.HubOptions) *wsserver.Hub {
		opts.Addr = "127.0.0.1:0"
		return wsserver.NewHub(opts)
	}
}

// testConfig is the default config with the services that need OS resources
// outside t.TempDir() turned off.
func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Engine.LivenessInterval = 0
	cfg.Engine.DrainTimeout = time.Second
	cfg.Notifications.WebSocketAddr = ""
	cfg.Control.Enabled = false
	return cfg
}

func writeTestConfig(t *testing.T, path string, cfg config.Config) {
	t.Helper()
	if _, err := config.Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func writeRawConfig(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

// startTestApp writes cfg to a temp dir and starts an App driven only by
// simulated input. The app is shut down in t.Cleanup.
func startTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	t.Cleanup(restoreAppSeams)

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeTestConfig(t, path, cfg)

	app := NewApp(AppOptions{ConfigPath: path, ManualInput: true})
	if err := app.startup(t.Context()); err != nil {
		t.Fatalf("startup() error = %v", err)
	}
	t.Cleanup(func() {
		if err := app.shutdown(); err != nil {
			t.Errorf("shutdown() error = %v", err)
		}
	})
	return app
}

func dryRunController(t *testing.T, app *App) *actions.LogController {
	t.Helper()
	ctrl, ok := app.controller().(*actions.LogController)
	if !ok {
		t.Fatalf("controller = %T, want *actions.LogController", app.controller())
	}
	return ctrl
}

func waitForExecuted(t *testing.T, ctrl *actions.LogController, want ...actions.ID) {
	t.Helper()
	testutil.WaitFor(t, appTestTimeout, "dry-run actions executed", func() bool {
		return slices.Equal(ctrl.Executed(), want)
	})
}

// waitForObservers waits until every trigger has been recorded and
// broadcast. Observers run apart from the actions, so an executed action
// does not mean its history row exists yet.
func waitForObservers(t *testing.T, app *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), appTestTimeout)
	defer cancel()
	if err := app.engine.Wait(ctx); err != nil {
		t.Fatalf("engine.Wait() error = %v", err)
	}
}

func registeredIDs(app *App) []int {
	defs := app.engine.Hotkeys()
	ids := make([]int, len(defs))
	for i, def := range defs {
		ids[i] = def.ID
	}
	return ids
}
