package main

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"beatbind/internal/actions"
	"beatbind/internal/config"
	"beatbind/internal/history"
	"beatbind/internal/hotkeys"
	"beatbind/internal/ipc"
	"beatbind/internal/sessionlog"
	"beatbind/internal/wsserver"
)

// App is the beatbind daemon: it owns the hotkey engine and the services
// that configure, observe and control it.
type App struct {
	// Lock ordering (outer -> inner):
	//   applyMu -> cfgMu
	//   applyMu -> ctrlMu
	//
	// Independent locks: startupWarnMu.
	cfgMu      sync.RWMutex
	cfg        config.Config
	configPath string

	// applyMu serializes hotkey table reconciliation (startup, watcher, reload).
	applyMu sync.Mutex
	ctrlMu  sync.RWMutex
	ctrl    actions.Controller

	layout hotkeys.Layout
	// manual feeds simulated key events into the same engine as the OS hook.
	manual      *hotkeys.ManualSource
	manualInput bool
	engine      *hotkeys.Engine

	// Optional services. Each is set once during startup before any reader
	// goroutine starts and stays nil when disabled or failed to start.
	history *history.Store
	hub     *wsserver.Hub
	control *ipc.Server
	watcher *config.Watcher

	journal *sessionlog.Journal
	// logLevel is shared with the root slog handler. logLevelPinned keeps a
	// command-line level from being replaced by the config file.
	logLevel       *slog.LevelVar
	logLevelPinned bool

	startupWarnMu   sync.Mutex
	startupWarnings []string

	unsubscribe  func()
	startedAt    time.Time
	shuttingDown atomic.Bool
}

// AppOptions configures NewApp.
type AppOptions struct {
	// ConfigPath defaults to config.DefaultPath().
	ConfigPath string
	// ManualInput skips the OS keyboard hook; only simulated input reaches
	// the engine.
	ManualInput bool
	// Journal receives captured warnings. Defaults to a fresh journal.
	Journal *sessionlog.Journal
	// LogLevel is the root handler level. Defaults to a private LevelVar.
	LogLevel *slog.LevelVar
	// PinLogLevel ignores log_level from the config file.
	PinLogLevel bool
}

// NewApp creates the daemon. Nothing is started until startup.
func NewApp(opts AppOptions) *App {
	journal := opts.Journal
	if journal == nil {
		journal = sessionlog.NewJournal(0)
	}
	level := opts.LogLevel
	if level == nil {
		level = new(slog.LevelVar)
	}
	return &App{
		configPath:     opts.ConfigPath,
		layout:         hotkeys.PlatformLayout(),
		manual:         hotkeys.NewManualSource(),
		manualInput:    opts.ManualInput,
		journal:        journal,
		logLevel:       level,
		logLevelPinned: opts.PinLogLevel,
	}
}

func (a *App) newEngine(cfg config.EngineConfig) *hotkeys.Engine {
	source := hotkeys.KeySource(a.manual)
	if !a.manualInput {
		source = hotkeys.Combine(newKeySourceFn(), a.manual)
	}
	return hotkeys.NewEngine(source, hotkeys.EngineOptions{
		Modifiers:         a.layout.Modifiers(),
		LivenessInterval:  cfg.LivenessInterval,
		ReinstallOnDetach: cfg.ReinstallOnDetach,
	})
}

func (a *App) getConfigSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.Clone(a.cfg)
}

func (a *App) setConfigSnapshot(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = config.Clone(cfg)
	a.cfgMu.Unlock()
}

func (a *App) controller() actions.Controller {
	a.ctrlMu.RLock()
	defer a.ctrlMu.RUnlock()
	return a.ctrl
}

func (a *App) addStartupWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	a.startupWarnMu.Lock()
	a.startupWarnings = append(a.startupWarnings, trimmed)
	a.startupWarnMu.Unlock()
}

func (a *App) startupWarningsSnapshot() []string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	return append([]string(nil), a.startupWarnings...)
}

func (a *App) applyLogLevel(level string) {
	if a.logLevelPinned {
		return
	}
	parsed, err := config.ParseLogLevel(level)
	if err != nil {
		slog.Warn("[WARN-CONFIG] ignoring invalid log level", "logLevel", level, "error", err)
		return
	}
	if a.logLevel.Level() != parsed {
		a.logLevel.Set(parsed)
		slog.Info("[config] log level changed", "logLevel", parsed.String())
	}
}
