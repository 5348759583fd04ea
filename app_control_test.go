package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"beatbind/internal/actions"
	"beatbind/internal/hotkeys"
	"beatbind/internal/ipc"
	"beatbind/internal/testutil"
)

func ipcRequest(command string, args ...string) ipc.Request {
	return ipc.Request{Command: command, Args: args}
}

func TestExecuteSimulateRunsActionAndRecordsHistory(t *testing.T) {
	app := startTestApp(t, testConfig())
	ctrl := dryRunController(t, app)

	resp := app.Execute(ipcRequest("simulate", "ctrl + alt + space"))
	if resp.ExitCode != 0 {
		t.Fatalf("simulate failed: %+v", resp)
	}
	if resp.Stdout != "simulated Ctrl+Alt+Space\n" {
		t.Fatalf("stdout = %q", resp.Stdout)
	}
	waitForExecuted(t, ctrl, actions.PlayPause)
	waitForObservers(t, app)

	entries, err := app.history.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if e := entries[0]; e.HotkeyID != 1 || e.Action != "play_pause" || e.Binding != "Ctrl+Alt+Space" {
		t.Fatalf("history entry = %+v", e)
	}

	resp = app.Execute(ipcRequest("history"))
	if resp.ExitCode != 0 || !strings.Contains(resp.Stdout, "#1") || !strings.Contains(resp.Stdout, "Play/Pause") {
		t.Fatalf("history response = %+v", resp)
	}
}

func TestExecuteSimulateRequiresExactModifiers(t *testing.T) {
	app := startTestApp(t, testConfig())
	ctrl := dryRunController(t, app)

	// Ctrl+Alt+Shift+Space carries an extra modifier and must not match
	// Ctrl+Alt+Space.
	if resp := app.Execute(ipcRequest("simulate", "Ctrl+Alt+Shift+Space")); resp.ExitCode != 0 {
		t.Fatalf("simulate failed: %+v", resp)
	}
	if resp := app.Execute(ipcRequest("simulate", "Ctrl+Alt+Right")); resp.ExitCode != 0 {
		t.Fatalf("simulate failed: %+v", resp)
	}
	waitForExecuted(t, ctrl, actions.NextTrack)
}

func TestExecuteSimulateErrors(t *testing.T) {
	app := startTestApp(t, testConfig())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing binding", want: "usage: simulate"},
		{name: "unknown key", args: []string{"Ctrl+Bogus"}, want: "Bogus"},
		{name: "unknown modifier", args: []string{"Hyper+A"}, want: "unknown modifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.Execute(ipcRequest("simulate", tt.args...))
			if resp.ExitCode == 0 {
				t.Fatalf("expected failure, got %+v", resp)
			}
			if !strings.Contains(resp.Stderr, tt.want) {
				t.Fatalf("stderr = %q, want substring %q", resp.Stderr, tt.want)
			}
		})
	}
}

func TestExecutePauseAndResume(t *testing.T) {
	app := startTestApp(t, testConfig())
	ctrl := dryRunController(t, app)

	if resp := app.Execute(ipcRequest("pause")); resp.ExitCode != 0 || resp.Stdout != "hotkeys paused\n" {
		t.Fatalf("pause response = %+v", resp)
	}
	if st := app.engine.Status(); st.State != hotkeys.StatePaused {
		t.Fatalf("state = %v, want paused", st.State)
	}
	resp := app.Execute(ipcRequest("simulate", "Ctrl+Alt+Space"))
	if resp.ExitCode == 0 || !strings.Contains(resp.Stderr, "state: paused") {
		t.Fatalf("simulate while paused = %+v", resp)
	}
	if got := app.Execute(ipcRequest("status")); !strings.Contains(got.Stdout, "hotkeys are currently inactive") {
		t.Fatalf("status while paused = %q", got.Stdout)
	}
	// Pausing twice is a no-op.
	if resp := app.Execute(ipcRequest("pause")); resp.ExitCode != 0 {
		t.Fatalf("second pause = %+v", resp)
	}

	if resp := app.Execute(ipcRequest("resume")); resp.ExitCode != 0 || resp.Stdout != "hotkeys resumed\n" {
		t.Fatalf("resume response = %+v", resp)
	}
	if resp := app.Execute(ipcRequest("simulate", "Ctrl+Alt+Space")); resp.ExitCode != 0 {
		t.Fatalf("simulate after resume = %+v", resp)
	}
	waitForExecuted(t, ctrl, actions.PlayPause)
}

func TestExecuteStatus(t *testing.T) {
	app := startTestApp(t, testConfig())

	resp := app.Execute(ipcRequest("status"))
	if resp.ExitCode != 0 {
		t.Fatalf("status failed: %+v", resp)
	}
	for _, want := range []string{"state:      running", "source:     manual (alive: true)", "hotkeys:    5", "dry run:    true"} {
		if !strings.Contains(resp.Stdout, want) {
			t.Errorf("status missing %q:\n%s", want, resp.Stdout)
		}
	}
	if strings.Contains(resp.Stdout, "inactive") {
		t.Errorf("running engine reported inactive:\n%s", resp.Stdout)
	}

	resp = app.Execute(ipcRequest("status", "--json"))
	var report statusReport
	if err := json.Unmarshal([]byte(resp.Stdout), &report); err != nil {
		t.Fatalf("status --json is not JSON: %v\n%s", err, resp.Stdout)
	}
	if report.State != "running" || report.Hotkeys != 5 || !report.HookAlive || report.ConfigPath != app.configPath {
		t.Fatalf("report = %+v", report)
	}
	if report.Engaged == nil {
		t.Fatal("engaged should encode as an empty list")
	}
}

func TestExecuteListShowsBindingsAndLastTriggered(t *testing.T) {
	app := startTestApp(t, testConfig())
	ctrl := dryRunController(t, app)

	resp := app.Execute(ipcRequest("list"))
	if resp.ExitCode != 0 {
		t.Fatalf("list failed: %+v", resp)
	}
	lines := strings.Split(strings.TrimSpace(resp.Stdout), "\n")
	if len(lines) != 6 {
		t.Fatalf("list lines = %d, want header + 5:\n%s", len(lines), resp.Stdout)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[1], "Ctrl+Alt+Space") || !strings.HasSuffix(lines[1], "-") {
		t.Fatalf("unexpected list output:\n%s", resp.Stdout)
	}

	app.Execute(ipcRequest("simulate", "Ctrl+Alt+Space"))
	waitForExecuted(t, ctrl, actions.PlayPause)
	waitForObservers(t, app)
	resp = app.Execute(ipcRequest("list"))
	lines = strings.Split(strings.TrimSpace(resp.Stdout), "\n")
	if strings.HasSuffix(lines[1], "-") {
		t.Fatalf("last triggered not reported after trigger:\n%s", resp.Stdout)
	}
}

func TestExecuteEnableDisable(t *testing.T) {
	app := startTestApp(t, testConfig())
	ctrl := dryRunController(t, app)

	if resp := app.Execute(ipcRequest("disable", "1")); resp.ExitCode != 0 {
		t.Fatalf("disable failed: %+v", resp)
	}
	app.Execute(ipcRequest("simulate", "Ctrl+Alt+Space"))
	app.Execute(ipcRequest("simulate", "Ctrl+Alt+Up"))
	waitForExecuted(t, ctrl, actions.VolumeUp)

	if resp := app.Execute(ipcRequest("enable", "1")); resp.ExitCode != 0 {
		t.Fatalf("enable failed: %+v", resp)
	}
	app.Execute(ipcRequest("simulate", "Ctrl+Alt+Space"))
	waitForExecuted(t, ctrl, actions.VolumeUp, actions.PlayPause)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing id", want: "usage: enable|disable"},
		{name: "not a number", args: []string{"one"}, want: `invalid hotkey id "one"`},
		{name: "unknown id", args: []string{"99"}, want: "hotkey 99 is not registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.Execute(ipcRequest("enable", tt.args...))
			if resp.ExitCode == 0 || !strings.Contains(resp.Stderr, tt.want) {
				t.Fatalf("response = %+v, want stderr containing %q", resp, tt.want)
			}
		})
	}
}

func TestExecuteHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.History.Enabled = false
		app := startTestApp(t, cfg)
		resp := app.Execute(ipcRequest("history"))
		if resp.ExitCode == 0 || !strings.Contains(resp.Stderr, "disabled") {
			t.Fatalf("response = %+v", resp)
		}
	})

	t.Run("empty", func(t *testing.T) {
		app := startTestApp(t, testConfig())
		resp := app.Execute(ipcRequest("history"))
		if resp.Stdout != "no triggers recorded\n" {
			t.Fatalf("stdout = %q", resp.Stdout)
		}
	})

	t.Run("limit", func(t *testing.T) {
		app := startTestApp(t, testConfig())
		ctrl := dryRunController(t, app)
		app.Execute(ipcRequest("simulate", "Ctrl+Alt+Up"))
		waitForExecuted(t, ctrl, actions.VolumeUp)
		app.Execute(ipcRequest("simulate", "Ctrl+Alt+Down"))
		waitForExecuted(t, ctrl, actions.VolumeUp, actions.VolumeDown)
		waitForObservers(t, app)

		resp := app.Execute(ipcRequest("history", "1"))
		lines := strings.Split(strings.TrimSpace(resp.Stdout), "\n")
		if len(lines) != 1 || !strings.Contains(lines[0], "Volume Down") {
			t.Fatalf("history 1 = %q", resp.Stdout)
		}
		if resp := app.Execute(ipcRequest("history", "-3")); resp.ExitCode == 0 {
			t.Fatalf("negative limit accepted: %+v", resp)
		}
	})
}

func TestExecuteReload(t *testing.T) {
	app := startTestApp(t, testConfig())

	cfg := testConfig()
	cfg.Hotkeys = cfg.Hotkeys[:2]
	writeTestConfig(t, app.configPath, cfg)

	resp := app.Execute(ipcRequest("reload"))
	if resp.ExitCode != 0 || resp.Stdout != "reloaded 2 hotkeys\n" {
		t.Fatalf("reload response = %+v", resp)
	}
	if got := registeredIDs(app); len(got) != 2 {
		t.Fatalf("registered ids = %v", got)
	}
}

func TestExecuteReloadKeepsConfigOnError(t *testing.T) {
	app := startTestApp(t, testConfig())
	app.watcher.Close()

	if err := writeRawConfig(app.configPath, "hotkeys:\n  - id: 0\n    action: play_pause\n    binding: Space\n"); err != nil {
		t.Fatal(err)
	}
	resp := app.Execute(ipcRequest("reload"))
	if resp.ExitCode == 0 || !strings.Contains(resp.Stderr, "id must be positive") {
		t.Fatalf("reload response = %+v", resp)
	}
	if got := len(app.engine.Hotkeys()); got != 5 {
		t.Fatalf("hotkeys after failed reload = %d, want 5", got)
	}
}

func TestExecuteLogShowsCapturedWarnings(t *testing.T) {
	app := startTestApp(t, testConfig())
	if resp := app.Execute(ipcRequest("log")); resp.Stdout != "no warnings logged\n" {
		t.Fatalf("empty log = %q", resp.Stdout)
	}

	testutil.CaptureLogBuffer(t, slog.LevelDebug)
	setupLogging(&testutil.LogBuffer{}, new(slog.LevelVar), app.journal)
	slog.Warn("[WARN-HOTKEY] keyboard hook detached", "source", "manual", "attempt", 2)
	slog.Error("[hotkey] hotkeys are currently inactive")

	resp := app.Execute(ipcRequest("log", "1"))
	if strings.Count(resp.Stdout, "\n") != 1 || !strings.Contains(resp.Stdout, "hotkeys are currently inactive") {
		t.Fatalf("log 1 = %q", resp.Stdout)
	}
	resp = app.Execute(ipcRequest("log"))
	if !strings.Contains(resp.Stdout, "attempt=2 source=manual") {
		t.Fatalf("log attrs not rendered in sorted order: %q", resp.Stdout)
	}
	if status := app.Execute(ipcRequest("status")); !strings.Contains(status.Stdout, "warnings:   2 logged") {
		t.Fatalf("status = %q", status.Stdout)
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	app := startTestApp(t, testConfig())
	resp := app.Execute(ipcRequest("self-destruct"))
	if resp.ExitCode != 1 || resp.Stderr != "unknown command \"self-destruct\"\n" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestExecuteBeforeStartup(t *testing.T) {
	app := NewApp(AppOptions{ManualInput: true})
	resp := app.Execute(ipcRequest("status"))
	if resp.ExitCode == 0 || !strings.Contains(resp.Stderr, "starting") {
		t.Fatalf("response = %+v", resp)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		args    []string
		want    int
		wantErr bool
	}{
		{args: nil, want: 7},
		{args: []string{"3"}, want: 3},
		{args: []string{"0"}, want: 0},
		{args: []string{"-1"}, wantErr: true},
		{args: []string{"x"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseLimit(tt.args, 7)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseLimit(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("parseLimit(%v) = %d, want %d", tt.args, got, tt.want)
		}
	}
}
