package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"beatbind/internal/config"
	"beatbind/internal/hotkeys"
	"beatbind/internal/ipc"
	"beatbind/internal/sessionlog"
	"beatbind/internal/singleinstance"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

// exitCodeError carries a non-zero exit code without printing anything more.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "beatbind",
	Short: "Global media hotkeys",
	Long: `beatbind listens for global key combinations and turns them into
playback actions, even when another application has focus.

Run without a subcommand to start the daemon.

Examples:
  beatbind                          # Start the daemon
  beatbind ctl status               # Ask a running daemon for its state
  beatbind ctl simulate Ctrl+Alt+Space
  beatbind check --config my.yaml   # Validate a config file`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the hotkey daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd)
	},
}

var ctlCmd = &cobra.Command{
	Use:   "ctl <command> [args...]",
	Short: "Send a command to the running daemon",
	Long: `Send a command to the running daemon over the local control channel.

Commands:
  status [--json]      Engine state, hook health and services
  pause | resume       Uninstall or reinstall the keyboard hook
  list                 Registered hotkeys with their last trigger time
  enable|disable ID    Toggle one hotkey until the next reload
  history [N]          Most recent triggers (default 20, 0 for all)
  simulate BINDING     Feed a key combination through the engine
  reload               Re-read the config file
  log [N]              Recent warnings and errors`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCtl(cmd, args)
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the key names accepted in bindings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printKeys(cmd.OutOrStdout(), hotkeys.PlatformLayout())
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config file and every binding in it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := flagConfigPath
		if path == "" {
			path = config.DefaultPath()
		}
		return checkConfigFile(cmd.OutOrStdout(), path, hotkeys.PlatformLayout())
	},
}

var (
	flagConfigPath  string
	flagLogLevel    string
	flagManualInput bool
	flagControlAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "", "Config file (default: per-user config directory)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().BoolVar(&flagManualInput, "manual-input", false, "Do not install the OS keyboard hook; accept simulated input only")
	}
	ctlCmd.Flags().SetInterspersed(false)
	ctlCmd.Flags().StringVar(&flagControlAddr, "address", "", "Control pipe or socket (default: per-user address)")

	rootCmd.AddCommand(runCmd, ctlCmd, keysCmd, checkCmd)
}

func setupLogging(w io.Writer, level *slog.LevelVar, journal *sessionlog.Journal) {
	base := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(sessionlog.NewTeeHandler(base, slog.LevelWarn, journal.Add)))
}

func runDaemon(cmd *cobra.Command) error {
	level := new(slog.LevelVar)
	if flagLogLevel != "" {
		parsed, err := config.ParseLogLevel(flagLogLevel)
		if err != nil {
			return err
		}
		level.Set(parsed)
	}
	journal := sessionlog.NewJournal(0)
	setupLogging(cmd.ErrOrStderr(), level, journal)

	lock, err := singleinstance.TryLock(singleinstance.DefaultName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[hotkey] another instance is already running")
		return errors.New("beatbind is already running for this user (try 'beatbind ctl status')")
	}
	if err != nil {
		slog.Warn("[hotkey] single-instance lock failed, proceeding without it", "error", err)
	}
	if lock != nil {
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				slog.Warn("[hotkey] single-instance lock release failed", "error", releaseErr)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(AppOptions{
		ConfigPath:  flagConfigPath,
		ManualInput: flagManualInput,
		Journal:     journal,
		LogLevel:    level,
		PinLogLevel: flagLogLevel != "",
	})
	return app.run(ctx)
}

func runCtl(cmd *cobra.Command, args []string) error {
	address := flagControlAddr
	if address == "" && flagConfigPath != "" {
		if cfg, err := config.Load(flagConfigPath); err == nil {
			address = cfg.Control.Address
		}
	}
	resp, err := ipc.Send(address, ipc.Request{Command: args[0], Args: args[1:]})
	if err != nil {
		if ipc.IsConnectionError(err) {
			return errors.New("beatbind daemon is not running")
		}
		return fmt.Errorf("control request failed: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), resp.Stdout)
	fmt.Fprint(cmd.ErrOrStderr(), resp.Stderr)
	if resp.ExitCode != 0 {
		return exitCodeError{code: resp.ExitCode}
	}
	return nil
}

func printKeys(w io.Writer, layout hotkeys.Layout) error {
	if _, err := fmt.Fprintf(w, "layout: %s\nmodifiers: Ctrl (Control), Alt (Option), Shift, Meta (Win, Super, Cmd)\nkeys:\n", layout.Name()); err != nil {
		return err
	}
	for _, name := range layout.KeyNames() {
		if _, err := fmt.Fprintf(w, "  %s\n", name); err != nil {
			return err
		}
	}
	return nil
}

// checkConfigFile validates path and reports every problem it finds. A
// missing file is reported as defaults, not as an error.
func checkConfigFile(w io.Writer, path string, layout hotkeys.Layout) error {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(w, "%s: invalid\n%v\n", path, err)
		return exitCodeError{code: 1}
	}

	problems := 0
	for _, h := range cfg.Hotkeys {
		binding, err := hotkeys.ParseBinding(h.Binding, layout)
		if err != nil {
			fmt.Fprintf(w, "hotkey %d (%s): %v\n", h.ID, h.Action, err)
			problems++
			continue
		}
		fmt.Fprintf(w, "hotkey %d: %-16s %s\n", h.ID, binding.Normalized(), h.Action)
	}
	for binding, ids := range bindingConflicts(cfg, layout) {
		fmt.Fprintf(w, "warning: hotkeys %v share %s and fire together\n", ids, binding)
	}
	if problems > 0 {
		fmt.Fprintf(w, "%s: %d invalid binding(s)\n", path, problems)
		return exitCodeError{code: 1}
	}
	fmt.Fprintf(w, "%s: ok (%d hotkeys)\n", path, len(cfg.Hotkeys))
	return nil
}
