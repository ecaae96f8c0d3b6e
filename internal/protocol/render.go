package protocol

import (
	"strconv"

	"panemux/internal/layout"
	"panemux/internal/mux"
)

// BuildLayoutNode converts a layout.Node into its JSON-serializable mirror.
func BuildLayoutNode(n *layout.Node) *LayoutNode {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		return &LayoutNode{Leaf: n.LeafID().String()}
	}
	dir := "horizontal"
	if n.Direction() == layout.Vertical {
		dir = "vertical"
	}
	return &LayoutNode{
		Direction: dir,
		Ratio:     n.Ratio(),
		First:     BuildLayoutNode(n.First()),
		Second:    BuildLayoutNode(n.Second()),
	}
}

// BuildRenderState snapshots the full mux state for a LayoutChanged
// message. s must already be locked by the caller.
func BuildRenderState(s *mux.ServerState) *RenderState {
	names := s.SortedWorkspaceNames()
	snapshots := make([]WorkspaceSnapshot, 0, len(names))
	for _, name := range names {
		ws, ok := s.Workspace(name)
		if !ok {
			continue
		}
		snapshots = append(snapshots, buildWorkspaceSnapshot(s, ws))
	}
	return &RenderState{Workspaces: snapshots, ActiveWorkspace: s.ActiveWorkspace}
}

func buildWorkspaceSnapshot(s *mux.ServerState, ws *mux.Workspace) WorkspaceSnapshot {
	ids := ws.Layout.LeafIDs()
	windows := make([]WindowSnapshot, 0, len(ids))
	for _, id := range ids {
		win, ok := ws.Windows[id]
		if !ok {
			continue
		}
		windows = append(windows, buildWindowSnapshot(s, win))
	}
	return WorkspaceSnapshot{
		Name: ws.Name,
		Layout:       BuildLayoutNode(ws.Layout),
		Windows:      windows,
		ActiveWindow: ws.ActiveWin.String(),
		SyncPanes:    ws.SyncInput,
	}
}

func buildWindowSnapshot(s *mux.ServerState, win *mux.Window) WindowSnapshot {
	tabs := make([]TabSnapshot, 0, len(win.Tabs))
	for _, tab := range win.Tabs {
		n, _ := s.IDs.TabNumber(tab.ID)
		tabs = append(tabs, TabSnapshot{
			ID:                formatTabID(n),
			Kind:              tab.Kind.String(),
			Title:             tab.Title,
			Exited:            tab.Exited,
			ForegroundProcess: tab.Command,
		})
	}
	return WindowSnapshot{
		ID:        win.ID.String(),
		Tabs:      tabs,
		ActiveTab: win.ActiveTab,
	}
}

func formatTabID(n uint32) string {
	return "%" + strconv.FormatUint(uint64(n), 10)
}
