package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"beatbind/internal/actions"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	appDirName               = "beatbind"
	configFileName           = "config.yaml"
	historyFileName          = "history.db"
)

var userHomeDirFn = os.UserHomeDir

var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	out := defaultPathWarningState.messages
	defaultPathWarningState.messages = nil
	return out
}

// Config is the on-disk settings file.
type Config struct {
	LogLevel      string              `yaml:"log_level,omitempty"`
	Hotkeys       []Hotkey            `yaml:"hotkeys"`
	Engine        EngineConfig        `yaml:"engine"`
	Actions       ActionsConfig       `yaml:"actions"`
	Notifications NotificationsConfig `yaml:"notifications"`
	History       HistoryConfig       `yaml:"history"`
	Control       ControlConfig       `yaml:"control"`
}

// Hotkey binds a key combination to a catalog action.
// Enabled defaults to true when omitted.
type Hotkey struct {
	ID      int    `yaml:"id"`
	Action  string `yaml:"action"`
	Binding string `yaml:"binding"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// IsEnabled reports the effective enabled flag.
func (h Hotkey) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// EngineConfig tunes the hotkey engine.
type EngineConfig struct {
	// LivenessInterval is how often the keyboard hook is probed. 0 disables.
	LivenessInterval  time.Duration `yaml:"liveness_interval"`
	ReinstallOnDetach bool          `yaml:"reinstall_on_detach"`
	// DrainTimeout bounds how long shutdown waits for running actions.
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// ActionsConfig selects how actions are carried out.
type ActionsConfig struct {
	// DryRun logs actions instead of running commands.
	DryRun     bool                `yaml:"dry_run"`
	Commands   map[string][]string `yaml:"commands,omitempty"`
	Timeout    time.Duration       `yaml:"timeout"`
	VolumeStep int                 `yaml:"volume_step"`
	SeekStep   time.Duration       `yaml:"seek_step"`
}

// NotificationsConfig configures the websocket notification hub.
type NotificationsConfig struct {
	// WebSocketAddr is host:port; empty disables the hub.
	WebSocketAddr string `yaml:"websocket_addr"`
}

// HistoryConfig configures the trigger history store.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path defaults to history.db beside the config file.
	Path string `yaml:"path,omitempty"`
	// Keep bounds the number of stored triggers. 0 keeps everything.
	Keep int `yaml:"keep"`
}

// ControlConfig configures the local control channel.
type ControlConfig struct {
	Enabled bool `yaml:"enabled"`
	// Address overrides the per-user pipe or socket path.
	Address string `yaml:"address,omitempty"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Hotkeys: []Hotkey{
			{ID: 1, Action: string(actions.PlayPause), Binding: "Ctrl+Alt+Space"},
			{ID: 2, Action: string(actions.NextTrack), Binding: "Ctrl+Alt+Right"},
			{ID: 3, Action: string(actions.PreviousTrack), Binding: "Ctrl+Alt+Left"},
			{ID: 4, Action: string(actions.VolumeUp), Binding: "Ctrl+Alt+Up"},
			{ID: 5, Action: string(actions.VolumeDown), Binding: "Ctrl+Alt+Down"},
		},
		Engine: EngineConfig{
			LivenessInterval: 5 * time.Second,
			DrainTimeout:     3 * time.Second,
		},
		Actions: ActionsConfig{
			DryRun:     true,
			Timeout:    5 * time.Second,
			VolumeStep: 10,
			SeekStep:   10 * time.Second,
		},
		Notifications: NotificationsConfig{WebSocketAddr: "127.0.0.1:0"},
		History:       HistoryConfig{Enabled: true, Keep: 500},
		Control:       ControlConfig{Enabled: true},
	}
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory; settings persistence may be limited.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, configFileName)
}

// HistoryPath returns the effective history database path for a config
// loaded from configPath.
func HistoryPath(cfg Config, configPath string) string {
	if p := strings.TrimSpace(cfg.History.Path); p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), historyFileName)
}

// Load reads the config file. A missing or empty file yields defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EnsureFile writes the default config if missing and returns the loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
		slog.Info("[config] wrote default config", "path", path)
	}
	return cfg, nil
}

// Save validates cfg and writes it atomically.
func Save(path string, cfg Config) (Config, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return cfg, errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmed)
	if err != nil {
		return cfg, fmt.Errorf("save config: resolve path: %w", err)
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(absolutePath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", absolutePath)
	return cfg, nil
}

// Clone returns a deep copy of src.
func Clone(src Config) Config {
	dst := src
	if src.Hotkeys != nil {
		dst.Hotkeys = make([]Hotkey, len(src.Hotkeys))
		for i, h := range src.Hotkeys {
			if h.Enabled != nil {
				enabled := *h.Enabled
				h.Enabled = &enabled
			}
			dst.Hotkeys[i] = h
		}
	}
	if src.Actions.Commands != nil {
		dst.Actions.Commands = make(map[string][]string, len(src.Actions.Commands))
		for k, v := range src.Actions.Commands {
			dst.Actions.Commands[k] = append([]string(nil), v...)
		}
	}
	return dst
}

// applyDefaultsAndValidate fills missing defaults and validates cfg in-place.
// MUTATES: cfg is directly modified.
func applyDefaultsAndValidate(cfg *Config) error {
	if isZeroConfig(*cfg) {
		*cfg = DefaultConfig()
		return nil
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	var errs []error
	seen := make(map[int]struct{}, len(cfg.Hotkeys))
	for i := range cfg.Hotkeys {
		h := &cfg.Hotkeys[i]
		h.Action = strings.TrimSpace(h.Action)
		h.Binding = strings.TrimSpace(h.Binding)
		if h.ID <= 0 {
			errs = append(errs, fmt.Errorf("hotkeys[%d]: id must be positive, got %d", i, h.ID))
		} else if _, dup := seen[h.ID]; dup {
			errs = append(errs, fmt.Errorf("hotkeys[%d]: duplicate id %d", i, h.ID))
		}
		seen[h.ID] = struct{}{}
		if h.Binding == "" {
			errs = append(errs, fmt.Errorf("hotkeys[%d]: binding is required", i))
		}
		if h.Action == "" {
			errs = append(errs, fmt.Errorf("hotkeys[%d]: action is required", i))
		} else if _, ok := actions.Lookup(h.Action); !ok {
			errs = append(errs, fmt.Errorf("hotkeys[%d]: unknown action %q", i, h.Action))
		}
	}

	for name, d := range map[string]time.Duration{
		"engine.liveness_interval": cfg.Engine.LivenessInterval,
		"engine.drain_timeout":     cfg.Engine.DrainTimeout,
		"actions.timeout":          cfg.Actions.Timeout,
		"actions.seek_step":        cfg.Actions.SeekStep,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, d))
		}
	}
	if cfg.Actions.VolumeStep < 0 || cfg.Actions.VolumeStep > 100 {
		errs = append(errs, fmt.Errorf("actions.volume_step must be within 0-100, got %d", cfg.Actions.VolumeStep))
	}
	for name, argv := range cfg.Actions.Commands {
		if _, ok := actions.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("actions.commands: unknown action %q", name))
		} else if len(argv) == 0 {
			errs = append(errs, fmt.Errorf("actions.commands.%s: empty command", name))
		}
	}
	if cfg.History.Keep < 0 {
		errs = append(errs, fmt.Errorf("history.keep must not be negative, got %d", cfg.History.Keep))
	}
	cfg.Notifications.WebSocketAddr = strings.TrimSpace(cfg.Notifications.WebSocketAddr)
	return errors.Join(errs...)
}

// ParseLogLevel maps a config log level to slog.
func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

func isZeroConfig(cfg Config) bool {
	// reflect.DeepEqual guards against field-addition drift that manual checks miss.
	return reflect.DeepEqual(cfg, Config{})
}
