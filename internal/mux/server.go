package mux

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"panemux/internal/layout"
	"panemux/internal/panestate"
)

// ServerState owns every workspace a daemon serves, the id map shared with
// the command layer, and the client registry used to compute the effective
// terminal size. A single mutex guards ServerState and the
// IdMap together; command execution never suspends while holding it.
type ServerState struct {
	mu sync.Mutex

	Workspaces      map[string]*Workspace
	workspaceOrder  []string // insertion order, for numeric target resolution
	ActiveWorkspace string

	IDs     *IDMap
	Clients *ClientRegistry
	Replay  *panestate.Manager

	// OnTabOutput, when non-nil, is attached to every tab this server spawns
	// and is invoked with each chunk of PTY output read for it. The daemon
	// sets this before spawning any workspace, wiring it to its broadcast hub
	// so attached clients receive live output.
	OnTabOutput func(TabID, []byte)
}

// NewServerState returns an empty server with no workspaces.
func NewServerState() *ServerState {
	return &ServerState{
		Workspaces: map[string]*Workspace{},
		IDs:        NewIDMap(),
		Clients:    NewClientRegistry(),
		Replay:     panestate.NewManager(0),
	}
}

// Lock/Unlock expose the single mutex to callers (the command executor)
// that need to hold it across a multi-step mutation and its broadcast.
func (s *ServerState) Lock()   { s.mu.Lock() }
func (s *ServerState) Unlock() { s.mu.Unlock() }

// autoWorkspaceName picks, in order: the git top-level basename of cwd, the
// cwd basename, or a non-colliding numeric name.
func (s *ServerState) autoWorkspaceName(cwd string) string {
	if name := gitTopLevelBasename(cwd); name != "" && !s.workspaceNameTaken(name) {
		return name
	}
	if base := filepath.Base(cwd); base != "" && base != "." && base != string(filepath.Separator) && !s.workspaceNameTaken(base) {
		return base
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%d", i)
		if !s.workspaceNameTaken(candidate) {
			return candidate
		}
	}
}

func (s *ServerState) workspaceNameTaken(name string) bool {
	_, ok := s.Workspaces[name]
	return ok
}

func gitTopLevelBasename(cwd string) string {
	cmd := exec.Command("git", "-C", cwd, "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	top := strings.TrimSpace(string(out))
	if top == "" {
		return ""
	}
	return filepath.Base(top)
}

// NewWorkspace creates and registers a workspace seeded with one shell tab,
// auto-naming it. Must be called with the lock held.
func (s *ServerState) NewWorkspace(cwd string, cols, rows int, env []string) (*Workspace, *Tab) {
	name := s.autoWorkspaceName(cwd)
	tmuxEnv, _ := s.nextTmuxEnvLocked()
	tab := NewTab(SpawnRequest{
		Kind:     KindShell,
		Cols:     cols,
		Rows:     rows,
		Cwd:      cwd,
		Env:      append(append([]string{}, env...), tmuxEnv),
		OnOutput: s.OnTabOutput,
	}, s.Replay, s.onTabExited)
	ws := NewWorkspace(name, tab)
	s.IDs.RegisterTab(tab.ID)
	s.IDs.RegisterWindow(ws.ActiveWin)
	s.Workspaces[name] = ws
	s.workspaceOrder = append(s.workspaceOrder, name)
	s.ActiveWorkspace = name
	return ws, tab
}

// CloseWorkspace tears down a named workspace's tabs and removes it,
// reporting true iff it was the last workspace (daemon shutdown signal).
func (s *ServerState) CloseWorkspace(name string) (lastWorkspace bool, err error) {
	ws, ok := s.Workspaces[name]
	if !ok {
		return false, ErrWorkspaceNotFound
	}
	for _, tab := range ws.AllTabs() {
		tab.Close()
		s.IDs.UnregisterTab(tab.ID)
	}
	for winID := range ws.Windows {
		s.IDs.UnregisterWindow(winID)
	}
	delete(s.Workspaces, name)
	s.workspaceOrder = removeString(s.workspaceOrder, name)
	if s.ActiveWorkspace == name {
		if len(s.workspaceOrder) > 0 {
			s.ActiveWorkspace = s.workspaceOrder[len(s.workspaceOrder)-1]
		} else {
			s.ActiveWorkspace = ""
		}
	}
	return len(s.Workspaces) == 0, nil
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// WorkspaceByIndex resolves the Nth workspace in creation order (0-based),
// used by select-workspace-by-index.
func (s *ServerState) WorkspaceByIndex(index int) (*Workspace, bool) {
	if index < 0 || index >= len(s.workspaceOrder) {
		return nil, false
	}
	return s.Workspaces[s.workspaceOrder[index]], true
}

// SortedWorkspaceNames returns workspace names in a stable, deterministic
// order for listing commands.
func (s *ServerState) SortedWorkspaceNames() []string {
	names := make([]string, 0, len(s.Workspaces))
	for n := range s.Workspaces {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// nextTmuxEnvLocked allocates the next %N and builds the TMUX env string
// exposed to hosted child processes. Must be
// called with the lock held, before the tab it labels is registered.
func (s *ServerState) nextTmuxEnvLocked() (tmuxValue string, paneLabel string) {
	n := s.IDs.nextTab // peek: the tab about to be spawned will register as this number
	paneLabel = fmt.Sprintf("%%%d", n)
	tmuxValue = fmt.Sprintf("TMUX=panemux,%d,%s", os.Getpid(), paneLabel)
	return tmuxValue, paneLabel
}

// AddTabToActiveWindow spawns a new tab and appends it to the active
// window of the named workspace.
func (s *ServerState) AddTabToActiveWindow(wsName string, kind TabKind, command string, args []string, cols, rows int, env []string) (TabID, error) {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return TabID{}, ErrWorkspaceNotFound
	}
	win := ws.ActiveWindow()
	if win == nil {
		return TabID{}, ErrWindowNotFound
	}
	tmuxEnv, _ := s.nextTmuxEnvLocked()
	tab := NewTab(SpawnRequest{
		Kind: kind, Command: command, Args: args, Cols: cols, Rows: rows,
		Cwd: win.Active().Cwd, Env: append(append([]string{}, env...), tmuxEnv),
		OnOutput: s.OnTabOutput,
	}, s.Replay, s.onTabExited)
	s.IDs.RegisterTab(tab.ID)
	win.AddTab(tab)
	return tab.ID, nil
}

// SplitActiveWindow splits the active window of the named workspace and
// spawns a new tab on the new leaf.
func (s *ServerState) SplitActiveWindow(wsName string, direction layout.Direction, kind TabKind, cols, rows int, env []string) (layout.WindowID, TabID, error) {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return layout.WindowID{}, TabID{}, ErrWorkspaceNotFound
	}
	active := ws.ActiveWindow()
	var cwd string
	if active != nil && active.Active() != nil {
		cwd = active.Active().Cwd
	}
	tmuxEnv, _ := s.nextTmuxEnvLocked()
	tab := NewTab(SpawnRequest{
		Kind: kind, Cols: cols, Rows: rows, Cwd: cwd,
		Env:      append(append([]string{}, env...), tmuxEnv),
		OnOutput: s.OnTabOutput,
	}, s.Replay, s.onTabExited)
	winID, err := ws.SplitActive(direction, tab)
	if err != nil {
		tab.Close()
		return layout.WindowID{}, TabID{}, err
	}
	s.IDs.RegisterTab(tab.ID)
	s.IDs.RegisterWindow(winID)
	return winID, tab.ID, nil
}

// MoveTabToNeighbor moves the active tab of the named workspace's active
// window to the neighbor in the given direction, transferring focus. It
// requires at least two tabs in the source window and an existing
// neighbor.
func (s *ServerState) MoveTabToNeighbor(wsName string, direction layout.Direction, side layout.Side) error {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return ErrWorkspaceNotFound
	}
	src := ws.ActiveWindow()
	if src == nil {
		return ErrWindowNotFound
	}
	if len(src.Tabs) < 2 {
		return ErrLastPane
	}
	neighborID, ok := ws.Layout.FindNeighbor(src.ID, direction, side)
	if !ok {
		return ErrNoNeighbor
	}
	dst, ok := ws.Windows[neighborID]
	if !ok {
		return ErrWindowNotFound
	}
	idx := src.ActiveTab
	tab := src.Tabs[idx]
	if err := src.CloseTab(idx); err != nil && err != ErrNoTabs {
		return err
	}
	dst.AddTab(tab)
	ws.ActiveWin = neighborID
	return nil
}

// RestartActiveTab respawns the active tab of the named workspace if it is
// exited, reusing its TabID and original (kind, command).
func (s *ServerState) RestartActiveTab(wsName string, cols, rows int, env []string) error {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return ErrWorkspaceNotFound
	}
	win := ws.ActiveWindow()
	if win == nil {
		return ErrWindowNotFound
	}
	tab := win.Active()
	if tab == nil {
		return ErrTabNotFound
	}
	if !tab.Exited {
		return ErrNotExited
	}
	return tab.Restart(cols, rows, tab.Cwd, env, s.Replay, s.onTabExited)
}

// HandlePtyExited marks a tab exited and cascades window/workspace closure,
// returning true if this was the last workspace's last window (daemon
// shutdown signal).
func (s *ServerState) HandlePtyExited(id TabID) (shouldQuit bool) {
	for wsName, ws := range s.Workspaces {
		for winID, win := range ws.Windows {
			idx := win.IndexOf(id)
			if idx < 0 {
				continue
			}
			win.Tabs[idx].Exited = true
			if len(win.Tabs) > 1 {
				return false
			}
			// Last tab in this window.
			if len(ws.Windows) == 1 {
				// Also the workspace's last window: the layout tree's sole
				// leaf can't collapse into a sibling, so close the
				// workspace directly instead of going through CloseWindow.
				last, _ := s.CloseWorkspace(wsName)
				return last
			}
			tabs, err := ws.CloseWindow(winID)
			if err != nil {
				return false
			}
			for _, t := range tabs {
				s.IDs.UnregisterTab(t.ID)
			}
			s.IDs.UnregisterWindow(winID)
			ws.PruneFoldedWindows()
			return false
		}
	}
	return false
}

func (s *ServerState) onTabExited(id TabID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HandlePtyExited(id)
}

// FocusGroup switches the active window of the named workspace, unfolding
// it first if it was folded.
func (s *ServerState) FocusGroup(wsName string, winID layout.WindowID) error {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return ErrWorkspaceNotFound
	}
	if _, ok := ws.Windows[winID]; !ok {
		return ErrWindowNotFound
	}
	delete(ws.Folds, winID)
	ws.ActiveWin = winID
	return nil
}

// preferredNeighborOrder is the fold-target preference order: horizontal-
// second, horizontal-first, vertical-second, vertical-first.
var preferredNeighborOrder = []struct {
	dir  layout.Direction
	side layout.Side
}{
	{layout.Horizontal, layout.Second},
	{layout.Horizontal, layout.First},
	{layout.Vertical, layout.Second},
	{layout.Vertical, layout.First},
}

// ToggleFoldActiveGroup folds the active window (selecting a neighbor to
// receive focus in the preference order above) or unfolds it if already
// folded. No-op if it is the last visible window.
func (s *ServerState) ToggleFoldActiveGroup(wsName string) (bool, error) {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return false, ErrWorkspaceNotFound
	}
	active := ws.ActiveWin
	if _, folded := ws.Folds[active]; folded {
		ws.ToggleFold(active)
		return true, nil
	}
	visible := len(ws.Windows) - len(ws.Folds)
	if visible < 2 {
		return false, nil
	}
	for _, pref := range preferredNeighborOrder {
		if neighbor, ok := ws.Layout.FindNeighbor(active, pref.dir, pref.side); ok {
			if _, isFolded := ws.Folds[neighbor]; !isFolded {
				ws.ToggleFold(active)
				ws.ActiveWin = neighbor
				return true, nil
			}
		}
	}
	return false, nil
}

// ResizeAllTabs recomputes every visible window's inner rectangle for the
// named workspace and resizes every tab in each window to match.
func (s *ServerState) ResizeAllTabs(wsName string, terminalW, terminalH int) error {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return ErrWorkspaceNotFound
	}
	area := layout.Rect{X: 0, Y: 0, W: terminalW, H: terminalH}
	for _, pane := range ws.Resolve(area) {
		if pane.Folded {
			continue
		}
		if win, ok := ws.Windows[pane.ID]; ok {
			win.ResizeAll(pane.Rect.W, pane.Rect.H)
		}
	}
	return nil
}

// ResizeAllWorkspaces applies ResizeAllTabs to every workspace using the
// client registry's effective size; called after any attach/detach/resize
// event changes that size.
func (s *ServerState) ResizeAllWorkspaces() {
	w, h, ok := s.Clients.EffectiveSize()
	if !ok {
		return
	}
	for name := range s.Workspaces {
		s.ResizeAllTabs(name, w, h)
	}
}

// RenameWindow sets a window's display name.
func (s *ServerState) RenameWindow(wsName string, winID layout.WindowID, name string) error {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return ErrWorkspaceNotFound
	}
	win, ok := ws.Windows[winID]
	if !ok {
		return ErrWindowNotFound
	}
	win.Name = name
	return nil
}

// RenameWorkspace renames a workspace, failing if the new name is already
// taken by a different workspace.
func (s *ServerState) RenameWorkspace(oldName, newName string) error {
	ws, ok := s.Workspaces[oldName]
	if !ok {
		return ErrWorkspaceNotFound
	}
	if oldName == newName {
		return nil
	}
	if s.workspaceNameTaken(newName) {
		return fmt.Errorf("workspace %q already exists", newName)
	}
	delete(s.Workspaces, oldName)
	ws.Name = newName
	s.Workspaces[newName] = ws
	for i, n := range s.workspaceOrder {
		if n == oldName {
			s.workspaceOrder[i] = newName
		}
	}
	if s.ActiveWorkspace == oldName {
		s.ActiveWorkspace = newName
	}
	return nil
}

// KillPaneResult reports which entity a KillPane call actually removed, for
// the executor to decide what to broadcast.
type KillPaneResult int

const (
	KillPaneClosedTab KillPaneResult = iota
	KillPaneClosedWindow
	KillPaneClosedWorkspace
)

// KillPane applies a three-way policy: close just the tab if its window
// holds others; close the window if the workspace holds other windows, or
// if other workspaces exist; otherwise refuse.
func (s *ServerState) KillPane(wsName string, tabID TabID, winID layout.WindowID) (KillPaneResult, error) {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return 0, ErrWorkspaceNotFound
	}
	win, ok := ws.Windows[winID]
	if !ok {
		return 0, ErrWindowNotFound
	}
	idx := win.IndexOf(tabID)
	if idx < 0 {
		return 0, ErrTabNotFound
	}

	if len(win.Tabs) > 1 {
		tab := win.Tabs[idx]
		if err := win.CloseTab(idx); err != nil && err != ErrNoTabs {
			return 0, err
		}
		tab.Close()
		s.IDs.UnregisterTab(tab.ID)
		return KillPaneClosedTab, nil
	}

	if len(ws.Windows) > 1 || len(s.Workspaces) > 1 {
		tabs, err := ws.CloseWindow(winID)
		if err != nil {
			return 0, err
		}
		for _, t := range tabs {
			t.Close()
			s.IDs.UnregisterTab(t.ID)
		}
		s.IDs.UnregisterWindow(winID)
		ws.PruneFoldedWindows()
		if ws.IsEmpty() {
			s.CloseWorkspace(wsName)
			return KillPaneClosedWorkspace, nil
		}
		return KillPaneClosedWindow, nil
	}

	return 0, ErrLastPane
}

// KillWindow refuses when the workspace would be left with zero windows;
// otherwise tears down every tab in the window and removes it.
func (s *ServerState) KillWindow(wsName string, winID layout.WindowID) error {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return ErrWorkspaceNotFound
	}
	if len(ws.Windows) <= 1 {
		return ErrLastWindow
	}
	tabs, err := ws.CloseWindow(winID)
	if err != nil {
		return err
	}
	for _, t := range tabs {
		t.Close()
		s.IDs.UnregisterTab(t.ID)
	}
	s.IDs.UnregisterWindow(winID)
	ws.PruneFoldedWindows()
	return nil
}

// SelectLayout rebuilds a workspace's layout tree from one of the named
// presets, keeping the same set of windows but resetting their arrangement.
func (s *ServerState) SelectLayout(wsName string, preset layout.Preset) error {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return ErrWorkspaceNotFound
	}
	ids := ws.Layout.LeafIDs()
	ws.Layout = layout.BuildPreset(preset, ids)
	ws.Zoomed = nil
	return nil
}

// Workspace returns the named workspace, or (nil, false).
func (s *ServerState) Workspace(name string) (*Workspace, bool) {
	ws, ok := s.Workspaces[name]
	return ws, ok
}
