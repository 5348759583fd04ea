//go:build !windows

package ipc

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxSocketPathLen is the portable sun_path limit (104 on BSD, 108 on Linux).
const maxSocketPathLen = 104

var runtimeDirFn = func() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); dir != "" {
		return dir
	}
	return os.TempDir()
}

func defaultAddressFor(username string) string {
	return filepath.Join(runtimeDirFn(), "beatbind-"+username+".sock")
}

func validAddress(address string) bool {
	return filepath.IsAbs(address) &&
		strings.HasSuffix(address, ".sock") &&
		len(address) < maxSocketPathLen
}

// listen creates a unix socket readable only by the current user. A stale
// socket left by a crashed daemon is removed first; a live one is refused.
func listen(address string) (net.Listener, error) {
	if len(address) >= maxSocketPathLen {
		return nil, fmt.Errorf("socket path exceeds %d bytes: %s", maxSocketPathLen, address)
	}
	if err := os.MkdirAll(filepath.Dir(address), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if _, err := os.Lstat(address); err == nil {
		if conn, dialErr := net.DialTimeout("unix", address, 200*time.Millisecond); dialErr == nil {
			_ = conn.Close()
			return nil, fmt.Errorf("control socket %s is in use", address)
		}
		slog.Debug("[ipc] removing stale control socket", "path", address)
		if err := os.Remove(address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", address)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(address, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}
	if ul, ok := ln.(*net.UnixListener); ok {
		// Close removes the socket file; cleanupAddress covers crashes.
		ul.SetUnlinkOnClose(true)
	}
	return ln, nil
}

func dial(address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", address, timeout)
}

func cleanupAddress(address string) {
	if err := os.Remove(address); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("[ipc] failed to remove control socket", "path", address, "error", err)
	}
}
