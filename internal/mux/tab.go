package mux

import (
	"errors"
	"fmt"
	"log/slog"

	"panemux/internal/panestate"
	"panemux/internal/ptyfactory"
	"panemux/internal/screen"
)

// TabKind is a small closed enum selecting a tab's spawn command and
// default title. Effect is limited to those two things; a tagged variant
// is sufficient and dynamic dispatch is unwarranted.
type TabKind int

const (
	KindShell TabKind = iota
	KindAgent
	KindEditor
	KindDevServer
)

func (k TabKind) String() string {
	switch k {
	case KindShell:
		return "shell"
	case KindAgent:
		return "agent"
	case KindEditor:
		return "editor"
	case KindDevServer:
		return "dev-server"
	default:
		return "shell"
	}
}

func (k TabKind) defaultTitle() string {
	switch k {
	case KindAgent:
		return "agent"
	case KindEditor:
		return "editor"
	case KindDevServer:
		return "dev-server"
	default:
		return "shell"
	}
}

// ParseTabKind maps a CLI/config string to a TabKind; unknown strings fall
// back to KindShell.
func ParseTabKind(s string) TabKind {
	switch s {
	case "agent":
		return KindAgent
	case "editor":
		return KindEditor
	case "dev-server", "devserver":
		return KindDevServer
	default:
		return KindShell
	}
}

// SpawnRequest is the PTY factory contract: a command, arguments, size,
// working directory, and environment overlay.
type SpawnRequest struct {
	Kind    TabKind
	Command string
	Args    []string
	Cols    int
	Rows    int
	Cwd     string
	Env     []string

	// OnOutput, when non-nil, is invoked with every chunk of PTY output read
	// for this tab, in addition to the normal Screen/replay feed. The daemon
	// wires this to its broadcast hub so attached clients receive live output.
	OnOutput func(TabID, []byte)
}

// defaultSpawner is the production PTY factory; tests override Tab spawning
// by constructing Tabs with a fake ptyfactory.PTYFactory via
// newTabWithSpawner.
var defaultSpawner ptyfactory.PTYFactory = ptyfactory.Default

// Tab owns one PTY child and its screen. The screen is a
// restartable grid-and-scrollback abstraction; the tab's output is also fed
// to the lazy-emulation replay ring used for late-attaching clients and for
// persistence (see panestate.Manager).
type Tab struct {
	ID      TabID
	Kind    TabKind
	Title   string
	Exited  bool
	Command string // empty means "default shell for Kind"
	Args    []string
	Cwd     string

	Screen *screen.Grid

	pty      ptyfactory.PTYHandle
	spawner  ptyfactory.PTYFactory
	onOutput func(TabID, []byte)
}

// NewTab creates and spawns a tab per SpawnRequest. On spawn failure the
// tab enters an error state instead: Exited=true, no writer/child, and a
// single pre-rendered error-banner line in Screen.
// replay is optional; when non-nil, output is also fed to it under paneID
// for scrollback replay to late-attaching clients.
func NewTab(req SpawnRequest, replay *panestate.Manager, onExit func(TabID)) *Tab {
	return newTabWithSpawner(req, replay, onExit, defaultSpawner)
}

func newTabWithSpawner(req SpawnRequest, replay *panestate.Manager, onExit func(TabID), spawner ptyfactory.PTYFactory) *Tab {
	id := NewTabID()
	cols, rows := req.Cols, req.Rows
	if cols <= 0 {
		cols = 120
	}
	if rows <= 0 {
		rows = 40
	}

	t := &Tab{
		ID:       id,
		Kind:     req.Kind,
		Title:    req.Kind.defaultTitle(),
		Command:  req.Command,
		Args:     req.Args,
		Cwd:      req.Cwd,
		Screen:   screen.New(cols, rows, 10000, nil),
		spawner:  spawner,
		onOutput: req.OnOutput,
	}

	shell := req.Command
	handle, err := spawner.Start(ptyfactory.PTYConfig{
		Shell:   shell,
		Args:    req.Args,
		Dir:     req.Cwd,
		Env:     req.Env,
		Columns: cols,
		Rows:    rows,
	})
	if err != nil {
		t.enterErrorState(err)
		return t
	}
	t.pty = handle
	if replay != nil {
		replay.EnsurePane(id.String(), cols, rows)
	}
	go t.readLoop(replay, onExit)
	return t
}

func (t *Tab) enterErrorState(err error) {
	t.Exited = true
	t.pty = nil
	banner := fmt.Sprintf("failed to start %s: %v\r\n", t.Kind, err)
	t.Screen.Write([]byte(banner))
}

func (t *Tab) readLoop(replay *panestate.Manager, onExit func(TabID)) {
	handle := t.pty
	if handle == nil {
		return
	}
	handle.ReadLoop(func(data []byte) {
		t.ProcessOutput(data)
		if replay != nil {
			replay.Feed(t.ID.String(), data)
		}
		if t.onOutput != nil {
			t.onOutput(t.ID, data)
		}
	})
	t.Exited = true
	if onExit != nil {
		onExit(t.ID)
	}
}

// WriteInput writes bytes to the PTY. Fatal (returns an error) if no writer
// is present, i.e. the tab is in an error or exited state.
func (t *Tab) WriteInput(data []byte) error {
	if t.pty == nil {
		return errors.New("tab has no active pty")
	}
	_, err := t.pty.Write(data)
	return err
}

// ProcessOutput feeds bytes into the VT parser driving Screen.
func (t *Tab) ProcessOutput(data []byte) {
	t.Screen.Write(data)
}

// ResizePty updates both the in-memory grid and the OS-level PTY size.
func (t *Tab) ResizePty(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	t.Screen.Resize(cols, rows)
	if t.pty != nil {
		if err := t.pty.Resize(cols, rows); err != nil {
			slog.Debug("[mux] tab resize failed", "tab", t.ID, "error", err)
		}
	}
}

// ScrollUp scrolls the tab's view back n lines; ScrollDown is its inverse.
// These are cosmetic view-offset operations layered over the grid's
// scrollback; a real implementation would track a viewport offset in
// Screen. Kept minimal: the grid always renders its live tail, so these are
// no-ops unless a richer viewport model is added by the client.
func (t *Tab) ScrollUp(n int)        {}
func (t *Tab) ScrollDown(n int)      {}
func (t *Tab) ScrollToTop()          {}
func (t *Tab) ScrollToBottom()       {}
func (t *Tab) IsScrolled() bool      { return false }

// Restart respawns the tab's PTY in place, reusing its TabID so client-held
// references and screen parsers stay valid. Only valid on an exited tab.
// The old screen content is cleared before the new child's output starts
// replaying.
func (t *Tab) Restart(cols, rows int, cwd string, env []string, replay *panestate.Manager, onExit func(TabID)) error {
	if !t.Exited {
		return errors.New("tab is not exited")
	}
	t.Screen = screen.New(cols, rows, 10000, nil)
	handle, err := t.spawner.Start(ptyfactory.PTYConfig{
		Shell:   t.Command,
		Args:    t.Args,
		Dir:     cwd,
		Env:     env,
		Columns: cols,
		Rows:    rows,
	})
	if err != nil {
		t.enterErrorState(err)
		return err
	}
	t.pty = handle
	t.Exited = false
	if replay != nil {
		replay.EnsurePane(t.ID.String(), cols, rows)
	}
	go t.readLoop(replay, onExit)
	return nil
}

// Close releases the tab's PTY master, which causes the child to receive
// SIGHUP.
func (t *Tab) Close() error {
	if t.pty == nil {
		return nil
	}
	return t.pty.Close()
}

// PID returns the underlying child process id, or 0 if none.
func (t *Tab) PID() int {
	if t.pty == nil {
		return 0
	}
	return t.pty.Pid()
}
