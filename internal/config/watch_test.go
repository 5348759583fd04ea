package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"beatbind/internal/testutil"
)

type reloadRecorder struct {
	mu      sync.Mutex
	configs []Config
	errs    []error
}

func (r *reloadRecorder) onChange(cfg Config) {
	r.mu.Lock()
	r.configs = append(r.configs, cfg)
	r.mu.Unlock()
}

func (r *reloadRecorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *reloadRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs), len(r.errs)
}

func (r *reloadRecorder) last() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configs[len(r.configs)-1]
}

func startWatcher(t *testing.T, path string, rec *reloadRecorder) *Watcher {
	t.Helper()
	w, err := Watch(path, rec.onChange, WatchOptions{Debounce: 20 * time.Millisecond, OnError: rec.onError})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWatchReloadsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := Save(path, DefaultConfig()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rec := &reloadRecorder{}
	startWatcher(t, path, rec)

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	if _, err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	testutil.WaitFor(t, 3*time.Second, "config reload", func() bool {
		n, _ := rec.counts()
		return n > 0 && rec.last().LogLevel == "debug"
	})
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	rec := &reloadRecorder{}
	startWatcher(t, path, rec)

	if err := os.WriteFile(filepath.Join(dir, "history.db"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write sibling: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if n, e := rec.counts(); n != 0 || e != 0 {
		t.Fatalf("sibling write triggered reload: changes=%d errors=%d", n, e)
	}
}

func TestWatchReportsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	rec := &reloadRecorder{}
	startWatcher(t, path, rec)

	if err := os.WriteFile(path, []byte("hotkeys:\n  - id: 1\n    action: nope\n    binding: F1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	testutil.WaitFor(t, 3*time.Second, "reload error", func() bool {
		_, e := rec.counts()
		return e > 0
	})
	if n, _ := rec.counts(); n != 0 {
		t.Fatalf("invalid config delivered to onChange %d times", n)
	}
}

func TestWatchCloseIsIdempotentError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	w, err := Watch(path, func(Config) {}, WatchOptions{})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); !errors.Is(err, ErrWatcherClosed) {
		t.Fatalf("second Close() = %v, want ErrWatcherClosed", err)
	}
}

func TestWatchRequiresCallbackAndDirectory(t *testing.T) {
	if _, err := Watch(filepath.Join(t.TempDir(), "config.yaml"), nil, WatchOptions{}); err == nil {
		t.Fatal("Watch(nil onChange) expected error")
	}
	missing := filepath.Join(t.TempDir(), "no", "such", "config.yaml")
	if _, err := Watch(missing, func(Config) {}, WatchOptions{}); err == nil {
		t.Fatal("Watch(missing dir) expected error")
	}
}
