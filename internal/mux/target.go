package mux

import (
	"fmt"

	"panemux/internal/layout"
)

// WindowTargetKind distinguishes the two ways a command can name a window:
// by its stable @N id, or by its position in the workspace's leaf order.
type WindowTargetKind int

const (
	WindowTargetActive WindowTargetKind = iota
	WindowTargetID
	WindowTargetIndex
)

// WindowTarget names a window for window-level commands (kill-window,
// select-window, rename-window, ...). The zero value resolves to the
// active window.
type WindowTarget struct {
	Kind  WindowTargetKind
	ID    uint32
	Index int
}

// PaneTargetKind distinguishes the two ways a command can name a tab/pane:
// by its stable %N id, or by a direction relative to the active window.
type PaneTargetKind int

const (
	PaneTargetActive PaneTargetKind = iota
	PaneTargetID
	PaneTargetDirection
)

// PaneTarget names a tab for pane-level commands (split-window, kill-pane,
// select-pane, send-keys, resize-pane, ...). The zero value resolves to
// the active tab of the active window.
type PaneTarget struct {
	Kind PaneTargetKind
	ID   uint32
	Dir  layout.Direction
	Side layout.Side
}

// ResolveWindow resolves a WindowTarget against the named workspace,
// returning the window's id.
func (s *ServerState) ResolveWindow(wsName string, t WindowTarget) (layout.WindowID, error) {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return layout.WindowID{}, ErrWorkspaceNotFound
	}
	switch t.Kind {
	case WindowTargetActive:
		return ws.ActiveWin, nil
	case WindowTargetID:
		id, ok := s.IDs.WindowByNumber(t.ID)
		if !ok {
			return layout.WindowID{}, fmt.Errorf("%w: @%d", ErrWindowNotFound, t.ID)
		}
		if _, ok := ws.Windows[id]; !ok {
			return layout.WindowID{}, fmt.Errorf("%w: @%d", ErrWindowNotFound, t.ID)
		}
		return id, nil
	case WindowTargetIndex:
		ids := ws.Layout.LeafIDs()
		if t.Index < 0 || t.Index >= len(ids) {
			return layout.WindowID{}, fmt.Errorf("%w: index %d", ErrWindowNotFound, t.Index)
		}
		return ids[t.Index], nil
	default:
		return layout.WindowID{}, ErrWindowNotFound
	}
}

// ResolveTab resolves a PaneTarget against the named workspace, returning
// both the tab and the window it belongs to.
func (s *ServerState) ResolveTab(wsName string, t PaneTarget) (TabID, layout.WindowID, error) {
	ws, ok := s.Workspaces[wsName]
	if !ok {
		return TabID{}, layout.WindowID{}, ErrWorkspaceNotFound
	}
	switch t.Kind {
	case PaneTargetActive:
		win := ws.ActiveWindow()
		if win == nil || win.Active() == nil {
			return TabID{}, layout.WindowID{}, ErrTabNotFound
		}
		return win.Active().ID, win.ID, nil
	case PaneTargetID:
		id, ok := s.IDs.TabByNumber(t.ID)
		if !ok {
			return TabID{}, layout.WindowID{}, fmt.Errorf("%w: %%%d", ErrTabNotFound, t.ID)
		}
		for _, win := range ws.Windows {
			if win.IndexOf(id) >= 0 {
				return id, win.ID, nil
			}
		}
		return TabID{}, layout.WindowID{}, fmt.Errorf("%w: %%%d", ErrTabNotFound, t.ID)
	case PaneTargetDirection:
		neighbor, ok := ws.Layout.FindNeighbor(ws.ActiveWin, t.Dir, t.Side)
		if !ok {
			return TabID{}, layout.WindowID{}, ErrNoNeighbor
		}
		win, ok := ws.Windows[neighbor]
		if !ok || win.Active() == nil {
			return TabID{}, layout.WindowID{}, ErrTabNotFound
		}
		return win.Active().ID, win.ID, nil
	default:
		return TabID{}, layout.WindowID{}, ErrTabNotFound
	}
}
