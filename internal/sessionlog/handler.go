// Package sessionlog tees warning-and-above log records into a bounded
// in-memory journal so the daemon can report recent problems over the
// control channel.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time  `json:"time"`
	Level   slog.Level `json:"level"`
	Message string     `json:"message"`
	// Source is the dot-separated slog group, or "".
	Source string `json:"source,omitempty"`
	// Attrs holds the record's attributes rendered as strings. Attributes
	// added through WithAttrs are included.
	Attrs map[string]string `json:"attrs,omitempty"`
}

// EntryCallback is invoked for each log record at or above the capture threshold.
type EntryCallback func(Entry)

// TeeHandler wraps a base [slog.Handler] and tees records at or above
// minLevel to a callback. Every record reaches the base handler; only the
// callback is gated by minLevel.
type TeeHandler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Level
	group    string
	attrs    []slog.Attr
}

// NewTeeHandler creates a TeeHandler. A nil callback disables teeing.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryCallback) *TeeHandler {
	return &TeeHandler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
	}
}

// Enabled defers to the base handler; minLevel does not affect visibility.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards the record to the base handler and then invokes the
// callback when the level meets minLevel, even if the base handler failed.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.callback != nil && record.Level >= h.minLevel {
		entry := Entry{
			Time:    record.Time,
			Level:   record.Level,
			Message: record.Message,
			Source:  h.group,
		}
		if n := len(h.attrs) + record.NumAttrs(); n > 0 {
			entry.Attrs = make(map[string]string, n)
			for _, a := range h.attrs {
				entry.Attrs[a.Key] = a.Value.String()
			}
			record.Attrs(func(a slog.Attr) bool {
				entry.Attrs[a.Key] = a.Value.String()
				return true
			})
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					// stderr, not slog: logging here would re-enter this handler.
					fmt.Fprintf(os.Stderr, "[session-log] callback panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.callback(entry)
		}()
	}

	// slog.Logger reports a returned error on stderr ("slog: <error>").
	return err
}

// WithAttrs returns a TeeHandler whose base has attrs applied. The attrs are
// also captured into Entry.Attrs.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &TeeHandler{
		base:     h.base.WithAttrs(attrs),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    h.group,
		attrs:    merged,
	}
}

// WithGroup returns a TeeHandler whose base is wrapped with the group name.
// The name is appended to Source with a "." separator.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newGroup := name
	if h.group != "" {
		newGroup = h.group + "." + name
	}

	return &TeeHandler{
		base:     h.base.WithGroup(name),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    newGroup,
		attrs:    h.attrs,
	}
}
