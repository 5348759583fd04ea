package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"beatbind/internal/procutil"
)

const maxCommandOutputBytes = 4096

// ExecOptions configures an ExecController.
type ExecOptions struct {
	// Commands maps an action to the argv that performs it,
	// e.g. play_pause: ["playerctl", "play-pause"].
	Commands map[ID][]string
	// VolumeStep replaces "{volume_step}" in argv (percent).
	VolumeStep int
	// SeekStep replaces "{seek_ms}" in argv (milliseconds).
	SeekStep time.Duration
}

// ExecController runs a configured external command per action.
type ExecController struct {
	commands map[ID][]string
	replacer *strings.Replacer

	// commandContextFn is a test seam.
	commandContextFn func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewExecController validates opts and builds a controller.
func NewExecController(opts ExecOptions) (*ExecController, error) {
	commands := make(map[ID][]string, len(opts.Commands))
	for id, argv := range opts.Commands {
		if _, ok := Lookup(string(id)); !ok {
			return nil, fmt.Errorf("unknown action %q in commands", id)
		}
		if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
			return nil, fmt.Errorf("empty command for action %q", id)
		}
		commands[id] = append([]string(nil), argv...)
	}
	return &ExecController{
		commands: commands,
		replacer: strings.NewReplacer(
			"{volume_step}", strconv.Itoa(opts.VolumeStep),
			"{seek_ms}", strconv.FormatInt(opts.SeekStep.Milliseconds(), 10),
		),
		commandContextFn: exec.CommandContext,
	}, nil
}

// Configured reports whether id has a command.
func (c *ExecController) Configured(id ID) bool {
	_, ok := c.commands[id]
	return ok
}

func (c *ExecController) Execute(ctx context.Context, id ID) error {
	argv, ok := c.commands[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConfigured, id)
	}
	args := make([]string, len(argv)-1)
	for i, a := range argv[1:] {
		args[i] = c.replacer.Replace(a)
	}

	cmd := c.commandContextFn(ctx, argv[0], args...)
	procutil.PrepareBackground(cmd)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}
		return fmt.Errorf("run %s: %w (output: %s)", argv[0], err, truncateOutput(out.String()))
	}
	slog.Debug("[DEBUG-ACTIONS] action command finished",
		"action", id,
		"command", argv[0],
		"elapsed", time.Since(start),
	)
	return nil
}

func truncateOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxCommandOutputBytes {
		return s
	}
	return s[:maxCommandOutputBytes] + "...(truncated)"
}
