package ptyfactory

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// process is the concrete PTYHandle: either a creack/pty master (the normal
// case) or a pipe-mode fallback process.
type process struct {
	mu       sync.RWMutex
	cmd      *exec.Cmd
	ptmx     *os.File // PTY master, nil in pipe-mode fallback
	stdin    io.WriteCloser
	stdout   io.ReadCloser
	stderr   io.ReadCloser
	closed   bool
	closeErr error
}

func (p *process) Pid() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return 0, errors.New("pty closed")
	}
	if p.ptmx != nil {
		n, err := p.ptmx.Write(data)
		if err != nil {
			slog.Warn("ptyfactory: write failed", "error", err, "bytes", len(data))
		}
		return n, err
	}
	if p.stdin == nil {
		return 0, errors.New("pty stdin unavailable")
	}
	n, err := p.stdin.Write(data)
	if err != nil {
		slog.Warn("ptyfactory: pipe write failed", "error", err, "bytes", len(data))
	}
	return n, err
}

func (p *process) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return errors.New("invalid size")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("pty closed")
	}
	if p.ptmx == nil {
		return nil // pipe-mode fallback has no resizable terminal
	}
	return pty.Setsize(p.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

// ReadLoop blocks, delivering output chunks to onData until the child's
// streams are exhausted.
func (p *process) ReadLoop(onData func([]byte)) {
	if onData == nil {
		return
	}
	p.mu.RLock()
	ptmx := p.ptmx
	stdout := p.stdout
	stderr := p.stderr
	p.mu.RUnlock()

	if ptmx != nil {
		readSource(ptmx, onData)
		return
	}
	var wg sync.WaitGroup
	if stdout != nil {
		wg.Add(1)
		go func() { defer wg.Done(); readSource(stdout, onData) }()
	}
	if stderr != nil {
		wg.Add(1)
		go func() { defer wg.Done(); readSource(stderr, onData) }()
	}
	wg.Wait()
}

func readSource(r io.Reader, onData func([]byte)) {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			// onData must consume the bytes before returning; buf is reused.
			onData(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func (p *process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.closeErr
	}
	p.closed = true

	var firstErr error
	// With a PTY, closing the master below hangs up the child (SIGHUP). The
	// pipe-mode fallback has no terminal to hang up, so its child is killed.
	if p.ptmx == nil && p.cmd != nil && p.cmd.Process != nil {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			slog.Debug("ptyfactory: process kill during close failed", "error", err)
		}
	}
	if p.stdin != nil {
		if err := p.stdin.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.stdout != nil {
		if err := p.stdout.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.stderr != nil {
		if err := p.stderr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.ptmx != nil {
		if err := p.ptmx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.closeErr = firstErr
	return firstErr
}
