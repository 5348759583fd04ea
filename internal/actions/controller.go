package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNotConfigured is returned when a controller has no way to run an action.
var ErrNotConfigured = errors.New("action not configured")

// Controller performs playback actions. Implementations must be safe for
// concurrent use: different hotkeys dispatch concurrently.
type Controller interface {
	Execute(ctx context.Context, id ID) error
}

// Bind returns a zero-argument callback that runs id on ctrl with timeout.
// A zero timeout means no deadline.
func Bind(ctrl Controller, id ID, timeout time.Duration) func() error {
	return func() error {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := ctrl.Execute(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", DisplayName(id), err)
		}
		return nil
	}
}

// LogController only records and logs the actions it is asked to perform.
// It backs dry-run mode.
type LogController struct {
	mu       sync.Mutex
	executed []ID
}

// NewLogController creates an empty dry-run controller.
func NewLogController() *LogController {
	return &LogController{}
}

func (c *LogController) Execute(_ context.Context, id ID) error {
	c.mu.Lock()
	c.executed = append(c.executed, id)
	c.mu.Unlock()
	slog.Info("[actions] dry-run action", "action", id, "name", DisplayName(id))
	return nil
}

// Executed returns the actions performed so far, oldest first.
func (c *LogController) Executed() []ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ID, len(c.executed))
	copy(out, c.executed)
	return out
}
