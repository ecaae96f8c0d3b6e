package daemon

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// ErrAlreadyRunning is returned by Listen when another daemon already holds
// the socket.
var ErrAlreadyRunning = errors.New("daemon: another instance is already listening on this socket")

// Listen binds the daemon's Unix socket at path, creating its parent
// directory (mode 0700) if needed. If a stale socket file exists at path, a
// connect probe distinguishes a dead daemon (socket removed, bind retried)
// from a live one (ErrAlreadyRunning).
func Listen(path string) (net.Listener, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("daemon: create socket dir %s: %w", dir, err)
	}

	if _, err := os.Stat(path); err == nil {
		if probeSocketAlive(path) {
			return nil, ErrAlreadyRunning
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("daemon: remove stale socket %s: %w", path, err)
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("daemon: listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("daemon: chmod socket %s: %w", path, err)
	}
	return ln, nil
}

// probeSocketAlive reports whether a live daemon accepts connections at
// path. A short timeout treats a hung listener as dead rather than blocking
// startup indefinitely.
func probeSocketAlive(path string) bool {
	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// RemoveSocket deletes the socket file at path. Safe to call when the file
// is already gone.
func RemoveSocket(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
