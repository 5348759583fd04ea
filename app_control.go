package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"beatbind/internal/actions"
	"beatbind/internal/config"
	"beatbind/internal/hotkeys"
	"beatbind/internal/ipc"
)

const (
	defaultHistoryLimit = 20
	defaultLogLimit     = 20
	controlQueryTimeout = 5 * time.Second
)

// statusReport is the JSON form of the status command.
type statusReport struct {
	State        string   `json:"state"`
	Source       string   `json:"source"`
	HookAlive    bool     `json:"hook_alive"`
	Hotkeys      int      `json:"hotkeys"`
	Engaged      []int    `json:"engaged"`
	InFlight     int64    `json:"in_flight"`
	Detaches     int      `json:"detaches"`
	Reinstalls   int      `json:"reinstalls"`
	LastError    string   `json:"last_error,omitempty"`
	ConfigPath   string   `json:"config_path"`
	WebSocketURL string   `json:"websocket_url,omitempty"`
	DryRun       bool     `json:"dry_run"`
	Uptime       string   `json:"uptime"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Execute handles one control request. It is the ipc.CommandExecutor of the
// control server.
func (a *App) Execute(req ipc.Request) ipc.Response {
	slog.Debug("[DEBUG-IPC] control command", "command", req.Command, "args", req.Args)
	if a.engine == nil {
		return ipc.Errorf("beatbind is starting")
	}
	switch req.Command {
	case "status":
		return a.cmdStatus(req.Args)
	case "pause":
		return a.cmdPause()
	case "resume":
		return a.cmdResume()
	case "list":
		return a.cmdList()
	case "enable", "disable":
		return a.cmdSetEnabled(req.Command == "enable", req.Args)
	case "history":
		return a.cmdHistory(req.Args)
	case "simulate":
		return a.cmdSimulate(req.Args)
	case "reload":
		return a.cmdReload()
	case "log":
		return a.cmdLog(req.Args)
	default:
		return ipc.Errorf("unknown command %q", req.Command)
	}
}

func (a *App) statusReport() statusReport {
	st := a.engine.Status()
	cfg := a.getConfigSnapshot()
	report := statusReport{
		State:      st.State.String(),
		Source:     st.Source,
		HookAlive:  st.HookAlive,
		Hotkeys:    st.Hotkeys,
		Engaged:    st.Engaged,
		InFlight:   st.InFlight,
		Detaches:   st.Detaches,
		Reinstalls: st.Reinstalls,
		LastError:  st.LastError,
		ConfigPath: a.configPath,
		DryRun:     cfg.Actions.DryRun,
		Uptime:     time.Since(a.startedAt).Round(time.Second).String(),
		Warnings:   a.startupWarningsSnapshot(),
	}
	if report.Engaged == nil {
		report.Engaged = []int{}
	}
	if a.hub != nil {
		report.WebSocketURL = a.hub.URL()
	}
	return report
}

func (a *App) cmdStatus(args []string) ipc.Response {
	report := a.statusReport()
	if len(args) > 0 && args[0] == "--json" {
		raw, err := json.Marshal(report)
		if err != nil {
			return ipc.Errorf("encode status: %v", err)
		}
		return ipc.Response{Stdout: string(raw) + "\n"}
	}

	var b strings.Builder
	if report.State != hotkeys.StateRunning.String() {
		b.WriteString("hotkeys are currently inactive\n")
	}
	fmt.Fprintf(&b, "state:      %s\n", report.State)
	fmt.Fprintf(&b, "source:     %s (alive: %t)\n", report.Source, report.HookAlive)
	fmt.Fprintf(&b, "hotkeys:    %d\n", report.Hotkeys)
	fmt.Fprintf(&b, "engaged:    %v\n", report.Engaged)
	fmt.Fprintf(&b, "in flight:  %d\n", report.InFlight)
	fmt.Fprintf(&b, "detaches:   %d (reinstalls: %d)\n", report.Detaches, report.Reinstalls)
	if report.LastError != "" {
		fmt.Fprintf(&b, "last error: %s\n", report.LastError)
	}
	fmt.Fprintf(&b, "config:     %s\n", report.ConfigPath)
	if report.WebSocketURL != "" {
		fmt.Fprintf(&b, "websocket:  %s\n", report.WebSocketURL)
	}
	fmt.Fprintf(&b, "dry run:    %t\n", report.DryRun)
	fmt.Fprintf(&b, "uptime:     %s\n", report.Uptime)
	if n := a.journal.Total(); n > 0 {
		fmt.Fprintf(&b, "warnings:   %d logged (see 'beatbind ctl log')\n", n)
	}
	return ipc.Response{Stdout: b.String()}
}

func (a *App) cmdPause() ipc.Response {
	if err := a.engine.Pause(); err != nil {
		a.emitEngineState("pause failed")
		return ipc.Errorf("pause: %v", err)
	}
	a.emitEngineState("paused by control command")
	return ipc.Response{Stdout: "hotkeys paused\n"}
}

func (a *App) cmdResume() ipc.Response {
	if err := a.engine.Resume(); err != nil {
		slog.Error("[hotkey] hotkeys are currently inactive", "error", err)
		a.emitEngineState("resume failed")
		return ipc.Errorf("hotkeys are currently inactive: %v", err)
	}
	a.emitEngineState("resumed by control command")
	return ipc.Response{Stdout: "hotkeys resumed\n"}
}

func (a *App) cmdList() ipc.Response {
	var last map[int]time.Time
	if a.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), controlQueryTimeout)
		defer cancel()
		var err error
		if last, err = a.history.LastTriggered(ctx); err != nil {
			slog.Warn("[WARN-HISTORY] failed to load last triggered times", "error", err)
		}
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTION\tBINDING\tENABLED\tLAST TRIGGERED")
	for _, def := range a.engine.Hotkeys() {
		lastText := "-"
		if at, ok := last[def.ID]; ok {
			lastText = at.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n",
			def.ID,
			actions.DisplayName(actions.ID(def.Name)),
			hotkeys.FormatBinding(def.Modifiers, def.Key, a.layout),
			def.Enabled,
			lastText,
		)
	}
	if err := tw.Flush(); err != nil {
		return ipc.Errorf("render hotkeys: %v", err)
	}
	return ipc.Response{Stdout: b.String()}
}

func (a *App) cmdSetEnabled(enabled bool, args []string) ipc.Response {
	if len(args) != 1 {
		return ipc.Errorf("usage: enable|disable <hotkey-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return ipc.Errorf("invalid hotkey id %q", args[0])
	}
	if !a.engine.SetHotkeyEnabled(id, enabled) {
		return ipc.Errorf("hotkey %d is not registered", id)
	}
	slog.Info("[hotkey] hotkey enabled state changed", "hotkeyID", id, "enabled", enabled)
	return ipc.Response{Stdout: fmt.Sprintf("hotkey %d enabled: %t\n", id, enabled)}
}

func parseLimit(args []string, fallback int) (int, error) {
	if len(args) == 0 {
		return fallback, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", args[0])
	}
	return n, nil
}

func (a *App) cmdHistory(args []string) ipc.Response {
	if a.history == nil {
		return ipc.Errorf("trigger history is disabled")
	}
	limit, err := parseLimit(args, defaultHistoryLimit)
	if err != nil {
		return ipc.Errorf("%v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), controlQueryTimeout)
	defer cancel()
	entries, err := a.history.Recent(ctx, limit)
	if err != nil {
		return ipc.Errorf("load history: %v", err)
	}
	if len(entries) == 0 {
		return ipc.Response{Stdout: "no triggers recorded\n"}
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  #%d  %-16s %s\n",
			e.At.Local().Format(time.DateTime),
			e.HotkeyID,
			actions.DisplayName(actions.ID(e.Action)),
			e.Binding,
		)
	}
	return ipc.Response{Stdout: b.String()}
}

// cmdSimulate feeds a binding's key sequence through the live engine, as if
// it had been typed.
func (a *App) cmdSimulate(args []string) ipc.Response {
	if len(args) == 0 {
		return ipc.Errorf("usage: simulate <binding>")
	}
	spec := strings.Join(args, " ")
	binding, err := hotkeys.ParseBinding(spec, a.layout)
	if err != nil {
		return ipc.Errorf("%v", err)
	}
	if !a.manual.Tap(binding.Codes(a.layout.Modifiers())...) {
		return ipc.Errorf("hotkeys are not active (state: %s)", a.engine.Status().State)
	}
	return ipc.Response{Stdout: fmt.Sprintf("simulated %s\n", binding.Normalized())}
}

func (a *App) cmdReload() ipc.Response {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		a.onConfigError(err)
		return ipc.Errorf("reload %s: %v", a.configPath, err)
	}
	a.onConfigChanged(cfg)
	return ipc.Response{Stdout: fmt.Sprintf("reloaded %d hotkeys\n", len(a.engine.Hotkeys()))}
}

func (a *App) cmdLog(args []string) ipc.Response {
	limit, err := parseLimit(args, defaultLogLimit)
	if err != nil {
		return ipc.Errorf("%v", err)
	}
	entries := a.journal.Entries()
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	if len(entries) == 0 {
		return ipc.Response{Stdout: "no warnings logged\n"}
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %-5s %s", e.Time.Local().Format(time.TimeOnly), e.Level.String(), e.Message)
		for _, key := range slices.Sorted(maps.Keys(e.Attrs)) {
			fmt.Fprintf(&b, " %s=%s", key, e.Attrs[key])
		}
		b.WriteByte('\n')
	}
	return ipc.Response{Stdout: b.String()}
}
