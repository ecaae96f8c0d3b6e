package command

import (
	"fmt"
	"sort"
	"strings"

	"panemux/internal/layout"
	"panemux/internal/mux"
)

// ResultKind tags what an executed command asks the caller to do.
type ResultKind int

const (
	ResultOk ResultKind = iota
	ResultOkWithID
	ResultLayoutChanged
	ResultSessionEnded
	ResultDetachRequested
)

// Result is what Execute returns. Broadcasting a RenderState for
// LayoutChanged (and teardown for SessionEnded) is the caller's
// responsibility — Execute only reports which happened, so the daemon can
// serialize protocol messages without this package importing the wire
// format.
type Result struct {
	Kind     ResultKind
	Output   string
	PaneID   *uint32
	WindowID *uint32
}

// Execute mutates state under s's lock and returns the outcome. Callers
// (the daemon's per-connection handler) must hold no other lock; Execute
// acquires s's lock itself and releases it before returning.
func Execute(cmd Command, s *mux.ServerState, wsName string, termW, termH int) (Result, error) {
	s.Lock()
	defer s.Unlock()
	return execLocked(cmd, s, wsName, termW, termH)
}

func execLocked(cmd Command, s *mux.ServerState, wsName string, termW, termH int) (Result, error) {
	switch cmd.Kind {
	case KillServer:
		return Result{Kind: ResultSessionEnded}, nil

	case ListSessions:
		return Result{Kind: ResultOk, Output: listSessions(s, cmd.Format)}, nil

	case RenameSession:
		if err := s.RenameWorkspace(wsName, cmd.Name); err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultOk, Output: cmd.Name}, nil

	case HasSession:
		_, ok := s.Workspace(cmd.Name)
		if !ok {
			return Result{}, fmt.Errorf("session not found: %s", cmd.Name)
		}
		return Result{Kind: ResultOk}, nil

	case NewSession:
		ws, tab := s.NewWorkspace(".", termW, termH, nil)
		n, _ := s.IDs.TabNumber(tab.ID)
		return Result{Kind: ResultLayoutChanged, Output: ws.Name, PaneID: &n}, nil

	case NewWindow:
		winID, tabID, err := s.SplitActiveWindow(wsName, layout.Horizontal, mux.KindShell, termW, termH, nil)
		if err != nil {
			return Result{}, err
		}
		if cmd.WindowName != "" {
			s.RenameWindow(wsName, winID, cmd.WindowName)
		}
		n, _ := s.IDs.WindowNumber(winID)
		p, _ := s.IDs.TabNumber(tabID)
		return Result{Kind: ResultLayoutChanged, WindowID: &n, PaneID: &p}, nil

	case KillWindow:
		winID, err := s.ResolveWindow(wsName, cmd.WindowTarget)
		if err != nil {
			return Result{}, err
		}
		if err := s.KillWindow(wsName, winID); err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultLayoutChanged}, nil

	case SelectWindow:
		winID, err := s.ResolveWindow(wsName, cmd.WindowTarget)
		if err != nil {
			return Result{}, err
		}
		if err := s.FocusGroup(wsName, winID); err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultLayoutChanged}, nil

	case RenameWindow:
		winID, err := s.ResolveWindow(wsName, cmd.WindowTarget)
		if err != nil {
			return Result{}, err
		}
		if err := s.RenameWindow(wsName, winID, cmd.Name); err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultLayoutChanged}, nil

	case ListWindows:
		ws, ok := s.Workspace(wsName)
		if !ok {
			return Result{}, mux.ErrWorkspaceNotFound
		}
		return Result{Kind: ResultOk, Output: listWindows(s, ws, cmd.Format)}, nil

	case SplitWindow:
		dir := layout.Vertical
		if cmd.Horizontal {
			dir = layout.Horizontal
		}
		winID, tabID, err := s.SplitActiveWindow(wsName, dir, mux.KindShell, termW, termH, nil)
		if err != nil {
			return Result{}, err
		}
		n, _ := s.IDs.WindowNumber(winID)
		p, _ := s.IDs.TabNumber(tabID)
		return Result{Kind: ResultLayoutChanged, WindowID: &n, PaneID: &p}, nil

	case KillPane:
		tabID, winID, err := s.ResolveTab(wsName, cmd.PaneTarget)
		if err != nil {
			return Result{}, err
		}
		if _, err := s.KillPane(wsName, tabID, winID); err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultLayoutChanged}, nil

	case SelectPane:
		tabID, winID, err := s.ResolveTab(wsName, cmd.PaneTarget)
		if err != nil {
			return Result{}, err
		}
		if err := s.FocusGroup(wsName, winID); err != nil {
			return Result{}, err
		}
		ws, _ := s.Workspace(wsName)
		if win, ok := ws.Windows[winID]; ok {
			if idx := win.IndexOf(tabID); idx >= 0 {
				win.SelectTab(idx)
				if cmd.PaneTitle != nil {
					win.Tabs[idx].Title = *cmd.PaneTitle
				}
			}
		}
		return Result{Kind: ResultLayoutChanged}, nil

	case ListPanes:
		ws, ok := s.Workspace(wsName)
		if !ok {
			return Result{}, mux.ErrWorkspaceNotFound
		}
		return Result{Kind: ResultOk, Output: listPanes(s, ws, cmd.Format)}, nil

	case SendKeys:
		tabID, _, err := s.ResolveTab(wsName, cmd.PaneTarget)
		if err != nil {
			return Result{}, err
		}
		ws, _ := s.Workspace(wsName)
		tab := findTab(ws, tabID)
		if tab == nil {
			return Result{}, mux.ErrTabNotFound
		}
		for _, chunk := range TranslateKeys(cmd.Keys) {
			if err := tab.WriteInput(chunk); err != nil {
				return Result{}, err
			}
		}
		return Result{Kind: ResultOk}, nil

	case SelectLayout:
		preset, ok := layout.ParsePreset(cmd.LayoutName)
		if !ok {
			return Result{}, fmt.Errorf("unknown layout: %s", cmd.LayoutName)
		}
		if err := s.SelectLayout(wsName, preset); err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultLayoutChanged}, nil

	case ResizePane:
		dir, side := resizeDirToLayout(cmd.ResizeDir)
		ws, ok := s.Workspace(wsName)
		if !ok {
			return Result{}, mux.ErrWorkspaceNotFound
		}
		_, winID, err := s.ResolveTab(wsName, cmd.PaneTarget)
		if err != nil {
			return Result{}, err
		}
		delta := float64(cmd.ResizeAmount) / 100.0
		if side == layout.First {
			delta = -delta
		}
		_ = dir
		ws.Layout.Resize(winID, delta)
		return Result{Kind: ResultLayoutChanged}, nil

	case CloseWorkspace:
		last, err := s.CloseWorkspace(wsName)
		if err != nil {
			return Result{}, err
		}
		if last {
			return Result{Kind: ResultSessionEnded}, nil
		}
		return Result{Kind: ResultLayoutChanged}, nil

	case SelectWorkspaceByIndex:
		ws, ok := s.WorkspaceByIndex(cmd.WorkspaceIndex)
		if !ok {
			return Result{}, fmt.Errorf("no workspace at index %d", cmd.WorkspaceIndex)
		}
		s.ActiveWorkspace = ws.Name
		return Result{Kind: ResultLayoutChanged, Output: ws.Name}, nil

	case NextWindow, PreviousWindow:
		ws, ok := s.Workspace(wsName)
		if !ok {
			return Result{}, mux.ErrWorkspaceNotFound
		}
		ids := ws.Layout.LeafIDs()
		if len(ids) == 0 {
			return Result{}, mux.ErrWindowNotFound
		}
		cur := indexOfWindow(ids, ws.ActiveWin)
		var next int
		if cmd.Kind == NextWindow {
			next = (cur + 1) % len(ids)
		} else {
			next = (cur - 1 + len(ids)) % len(ids)
		}
		ws.ActiveWin = ids[next]
		return Result{Kind: ResultLayoutChanged}, nil

	case RestartPane:
		if err := s.RestartActiveTab(wsName, termW, termH, nil); err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultLayoutChanged}, nil

	case MoveTab:
		if err := s.MoveTabToNeighbor(wsName, cmd.Direction, cmd.Side); err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultLayoutChanged}, nil

	case EqualizeLayout:
		ws, ok := s.Workspace(wsName)
		if !ok {
			return Result{}, mux.ErrWorkspaceNotFound
		}
		ws.Equalize()
		return Result{Kind: ResultLayoutChanged}, nil

	case ToggleSync:
		ws, ok := s.Workspace(wsName)
		if !ok {
			return Result{}, mux.ErrWorkspaceNotFound
		}
		ws.SyncInput = !ws.SyncInput
		return Result{Kind: ResultOk, Output: boolFlag(ws.SyncInput)}, nil

	case PasteBuffer:
		ws, ok := s.Workspace(wsName)
		if !ok {
			return Result{}, mux.ErrWorkspaceNotFound
		}
		win := ws.ActiveWindow()
		if win == nil || win.Active() == nil {
			return Result{}, mux.ErrTabNotFound
		}
		if err := win.Active().WriteInput([]byte(cmd.PasteText)); err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultOk}, nil

	case DetachClient:
		return Result{Kind: ResultDetachRequested}, nil

	case DisplayMessage:
		ws, _ := s.Workspace(wsName)
		return Result{Kind: ResultOk, Output: ExpandFormat(cmd.Format, contextFor(s, ws))}, nil

	default:
		return Result{}, fmt.Errorf("unsupported command")
	}
}

func resizeDirToLayout(d ResizeDirection) (layout.Direction, layout.Side) {
	switch d {
	case ResizeLeft:
		return layout.Horizontal, layout.First
	case ResizeRight:
		return layout.Horizontal, layout.Second
	case ResizeUp:
		return layout.Vertical, layout.First
	case ResizeDown:
		return layout.Vertical, layout.Second
	default:
		return layout.Horizontal, layout.Second
	}
}

func indexOfWindow(ids []layout.WindowID, target layout.WindowID) int {
	for i, id := range ids {
		if id == target {
			return i
		}
	}
	return 0
}

func findTab(ws *mux.Workspace, id mux.TabID) *mux.Tab {
	if ws == nil {
		return nil
	}
	for _, win := range ws.Windows {
		if idx := win.IndexOf(id); idx >= 0 {
			return win.Tabs[idx]
		}
	}
	return nil
}

func contextFor(s *mux.ServerState, ws *mux.Workspace) FormatContext {
	if ws == nil {
		return FormatContext{}
	}
	win := ws.ActiveWindow()
	var ctx FormatContext
	ctx.SessionName = ws.Name
	if win == nil {
		return ctx
	}
	n, _ := s.IDs.WindowNumber(win.ID)
	ctx.WindowID = fmt.Sprintf("@%d", n)
	ctx.WindowName = win.Name
	ctx.WindowActive = win.ID == ws.ActiveWin
	if tab := win.Active(); tab != nil {
		p, _ := s.IDs.TabNumber(tab.ID)
		ctx.PaneID = fmt.Sprintf("%%%d", p)
		ctx.PaneTitle = tab.Title
		ctx.PaneCommand = tab.Command
		ctx.PaneActive = true
		cols, rows := tab.Screen.Size()
		ctx.PaneWidth, ctx.PaneHeight = cols, rows
	}
	return ctx
}

func listSessions(s *mux.ServerState, format string) string {
	names := s.SortedWorkspaceNames()
	lines := make([]string, 0, len(names))
	for _, name := range names {
		ws, _ := s.Workspace(name)
		f := format
		if f == "" {
			f = "#{session_name}: " + fmt.Sprintf("%d windows", len(ws.Windows))
		}
		lines = append(lines, ExpandFormat(f, contextFor(s, ws)))
	}
	return strings.Join(lines, "\n")
}

func listWindows(s *mux.ServerState, ws *mux.Workspace, format string) string {
	ids := ws.Layout.LeafIDs()
	lines := make([]string, 0, len(ids))
	for i, id := range ids {
		win := ws.Windows[id]
		n, _ := s.IDs.WindowNumber(id)
		f := format
		if f == "" {
			f = "#{window_index}: #{window_name} (" + fmt.Sprintf("%d panes", len(win.Tabs)) + ")"
		}
		var ctx FormatContext
		ctx.WindowID = fmt.Sprintf("@%d", n)
		ctx.WindowIndex = i
		ctx.WindowName = win.Name
		ctx.WindowActive = id == ws.ActiveWin
		if tab := win.Active(); tab != nil {
			p, _ := s.IDs.TabNumber(tab.ID)
			ctx.PaneID = fmt.Sprintf("%%%d", p)
		}
		lines = append(lines, ExpandFormat(f, ctx))
	}
	return strings.Join(lines, "\n")
}

func listPanes(s *mux.ServerState, ws *mux.Workspace, format string) string {
	win := ws.ActiveWindow()
	if win == nil {
		return ""
	}
	lines := make([]string, 0, len(win.Tabs))
	for i, tab := range win.Tabs {
		p, _ := s.IDs.TabNumber(tab.ID)
		f := format
		cols, rows := tab.Screen.Size()
		if f == "" {
			f = fmt.Sprintf("#{pane_index}: [%dx%d] #{pane_id}", cols, rows)
		}
		ctx := FormatContext{
			PaneID:     fmt.Sprintf("%%%d", p),
			PaneIndex:  i,
			PaneTitle:  tab.Title,
			PaneActive: i == win.ActiveTab,
			PaneWidth:  cols,
			PaneHeight: rows,
		}
		lines = append(lines, ExpandFormat(f, ctx))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
