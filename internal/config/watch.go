package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	"beatbind/internal/workerutil"
)

// DefaultReloadDebounce coalesces the burst of events an editor save produces.
const DefaultReloadDebounce = 250 * time.Millisecond

// ErrWatcherClosed is returned by Close on a watcher that is already closed.
var ErrWatcherClosed = errors.New("config watcher closed")

// Watcher reloads the config file when it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// atomic temp-file + rename saves are observed.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	debounce func(func())
	onChange func(Config)
	onError  func(error)

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	done   chan struct{}
}

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce defaults to DefaultReloadDebounce.
	Debounce time.Duration
	// OnError receives load errors. The previous config stays in effect.
	OnError func(error)
}

// Watch starts watching path and calls onChange with each successfully
// reloaded config.
func Watch(path string, onChange func(Config), opts WatchOptions) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch config: onChange is required")
	}
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch config: resolve path: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultReloadDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	if err := fsw.Add(filepath.Dir(absolutePath)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}

	w := &Watcher{
		path:     absolutePath,
		fsw:      fsw,
		debounce: debounce.New(opts.Debounce),
		onChange: onChange,
		onError:  opts.OnError,
		done:     make(chan struct{}),
	}
	workerutil.Go(&w.wg, "config-watcher", w.loop)
	slog.Debug("[DEBUG-CONFIG] watching config file", "path", absolutePath)
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.debounce(w.reload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("[WARN-CONFIG] config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config reload failed, keeping previous config", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	slog.Info("[config] config reloaded", "path", w.path)
	w.onChange(cfg)
}

// Close stops watching. Pending debounced reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
