// Package ptyfactory spawns the PTY child behind each tab. It is the one
// place that knows how to fork a shell with a controlling terminal; the mux
// package only ever sees the PTYFactory/PTYHandle interfaces, so tests can
// substitute a fake factory instead of forking real processes.
package ptyfactory

import (
	"errors"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

const (
	defaultCols = 120
	defaultRows = 40
)

// PTYConfig configures a spawned PTY process: the command to run, its
// working directory and environment overlay, and the initial terminal size.
type PTYConfig struct {
	Shell   string
	Args    []string
	Dir     string
	Env     []string
	Columns int
	Rows    int
}

// PTYHandle is a running PTY child. ReadLoop blocks until the child's output
// stream ends (normal exit, crash, or Close); callers run it in its own
// goroutine.
type PTYHandle interface {
	Write(p []byte) (int, error)
	Resize(cols, rows int) error
	Close() error
	Pid() int
	ReadLoop(onData func([]byte))
}

// PTYFactory starts new PTY-backed processes. The production factory is
// Default; tests substitute a fake to avoid forking real shells.
type PTYFactory interface {
	Start(cfg PTYConfig) (PTYHandle, error)
}

// unixFactory spawns processes with a real controlling terminal via
// creack/pty, falling back to plain stdio pipes when the host has no PTY
// support (e.g. some sandboxes).
type unixFactory struct{}

// Default is the production PTYFactory.
var Default PTYFactory = unixFactory{}

func (unixFactory) Start(cfg PTYConfig) (PTYHandle, error) {
	if cfg.Shell == "" {
		cfg.Shell = defaultShell()
	}
	if cfg.Columns <= 0 {
		cfg.Columns = defaultCols
	}
	if cfg.Rows <= 0 {
		cfg.Rows = defaultRows
	}

	// SECURITY: cfg.Shell and cfg.Args are trusted values built by application
	// code (tab spawn requests), never passed through from raw user input.
	cmd := exec.Command(cfg.Shell, cfg.Args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = cfg.Env
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(cfg.Columns),
		Rows: uint16(cfg.Rows),
	})
	if err == nil {
		return &process{cmd: cmd, ptmx: ptmx}, nil
	}
	if !errors.Is(err, pty.ErrUnsupported) {
		return nil, err
	}
	return startPipeMode(cfg)
}

func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// startPipeMode starts a process over plain stdio pipes, for hosts where
// opening a PTY master fails.
func startPipeMode(cfg PTYConfig) (*process, error) {
	cmd := exec.Command(cfg.Shell, cfg.Args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = cfg.Env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, err
	}
	return &process{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}
