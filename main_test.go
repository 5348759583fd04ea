package main

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"beatbind/internal/hotkeys"
	"beatbind/internal/sessionlog"
	"beatbind/internal/testutil"
)

func TestCheckConfigFile(t *testing.T) {
	layout := hotkeys.PlatformLayout()

	tests := []struct {
		name     string
		content  string
		wantExit bool
		want     []string
	}{
		{
			name: "missing file uses defaults",
			want: []string{"hotkey 1: Ctrl+Alt+Space", "ok (5 hotkeys)"},
		},
		{
			name:    "valid",
			content: "hotkeys:\n  - id: 4\n    action: mute\n    binding: ctrl+shift+m\n",
			want:    []string{"hotkey 4: Ctrl+Shift+M", "ok (1 hotkeys)"},
		},
		{
			name:     "invalid binding",
			content:  "hotkeys:\n  - id: 1\n    action: play\n    binding: Ctrl+Teleport\n",
			wantExit: true,
			want:     []string{"hotkey 1 (play)", "1 invalid binding(s)"},
		},
		{
			name:     "invalid config",
			content:  "hotkeys:\n  - id: 1\n    action: dance\n    binding: Space\n",
			wantExit: true,
			want:     []string{"invalid", `unknown action "dance"`},
		},
		{
			name:    "shared binding",
			content: "hotkeys:\n  - id: 1\n    action: play\n    binding: Ctrl+P\n  - id: 2\n    action: pause\n    binding: control+p\n",
			want:    []string{"warning: hotkeys [1 2] share Ctrl+P", "ok (2 hotkeys)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if tt.content != "" {
				if err := writeRawConfig(path, tt.content); err != nil {
					t.Fatal(err)
				}
			}
			var out bytes.Buffer
			err := checkConfigFile(&out, path, layout)

			var exitErr exitCodeError
			if gotExit := errors.As(err, &exitErr); gotExit != tt.wantExit {
				t.Fatalf("checkConfigFile() error = %v, wantExit %v\n%s", err, tt.wantExit, out.String())
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestPrintKeys(t *testing.T) {
	layout := hotkeys.PlatformLayout()
	var out bytes.Buffer
	if err := printKeys(&out, layout); err != nil {
		t.Fatalf("printKeys() error = %v", err)
	}
	text := out.String()
	if !strings.HasPrefix(text, "layout: "+layout.Name()+"\n") {
		t.Fatalf("missing layout header:\n%s", text)
	}
	for _, name := range []string{"  SPACE\n", "  F12\n"} {
		if !strings.Contains(strings.ToUpper(text), name) {
			t.Errorf("key list missing %q", strings.TrimSpace(name))
		}
	}
	if got := strings.Count(text, "\n  "); got != len(layout.KeyNames()) {
		t.Fatalf("listed %d keys, want %d", got, len(layout.KeyNames()))
	}
}

func TestSetupLoggingTeesWarningsIntoJournal(t *testing.T) {
	testutil.CaptureLogBuffer(t, slog.LevelInfo)
	journal := sessionlog.NewJournal(4)
	level := new(slog.LevelVar)
	out := &testutil.LogBuffer{}
	setupLogging(out, level, journal)

	slog.Debug("[DEBUG-HOTKEY] hidden")
	slog.Info("[hotkey] visible")
	slog.Warn("[WARN-HOTKEY] captured", "hotkeyID", 3)

	if out.Contains("hidden") || !out.Contains("visible") || !out.Contains("captured") {
		t.Fatalf("unexpected base output: %s", out.String())
	}
	entries := journal.Entries()
	if len(entries) != 1 || entries[0].Message != "[WARN-HOTKEY] captured" || entries[0].Attrs["hotkeyID"] != "3" {
		t.Fatalf("journal = %+v", entries)
	}

	level.Set(slog.LevelDebug)
	slog.Debug("[DEBUG-HOTKEY] now shown")
	if !out.Contains("now shown") {
		t.Fatal("level change did not reach the handler")
	}
}

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"run", "ctl", "keys", "check"} {
		if !names[want] {
			t.Errorf("subcommand %q not registered", want)
		}
	}
	if rootCmd.PersistentFlags().Lookup("config") == nil || rootCmd.PersistentFlags().Lookup("log-level") == nil {
		t.Fatal("persistent flags not registered")
	}
	if runCmd.Flags().Lookup("manual-input") == nil {
		t.Fatal("run --manual-input not registered")
	}
}

func TestExitCodeError(t *testing.T) {
	err := error(exitCodeError{code: 3})
	var exitErr exitCodeError
	if !errors.As(err, &exitErr) || exitErr.code != 3 {
		t.Fatalf("errors.As() = %v", exitErr)
	}
	if err.Error() != "exit status 3" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
