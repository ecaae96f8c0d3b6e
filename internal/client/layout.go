package client

import "panemux/internal/protocol"

// Rect is an integer-celled screen rectangle, the client-side mirror of
// layout.Rect (that package operates on layout.WindowID leaves; the client
// only ever sees the wire-serialized *protocol.LayoutNode, so the same
// split-rectangle arithmetic is reapplied here over string leaf ids).
type Rect struct {
	X, Y, W, H int
}

// PaneRect pairs a window id with its resolved rectangle for one frame.
type PaneRect struct {
	WindowID string
	Rect     Rect
}

// ResolveLayout walks a *protocol.LayoutNode and returns each leaf's
// rectangle within area, in tree order. Mirrors layout.Node.Resolve's
// percentage-based split math exactly so the client's frame lines up
// with the daemon's own geometry.
func ResolveLayout(n *protocol.LayoutNode, area Rect) []PaneRect {
	var out []PaneRect
	resolveInner(n, area, &out)
	return out
}

func resolveInner(n *protocol.LayoutNode, area Rect, out *[]PaneRect) {
	if n == nil {
		return
	}
	if n.Leaf != "" {
		*out = append(*out, PaneRect{WindowID: n.Leaf, Rect: area})
		return
	}
	first, second := splitRects(n.Direction, n.Ratio, area)
	resolveInner(n.First, first, out)
	resolveInner(n.Second, second, out)
}

func splitRects(direction string, ratio float64, area Rect) (Rect, Rect) {
	if direction == "vertical" {
		firstH := clampDim(int(float64(area.H)*ratio), area.H)
		return Rect{area.X, area.Y, area.W, firstH},
			Rect{area.X, area.Y + firstH, area.W, area.H - firstH}
	}
	firstW := clampDim(int(float64(area.W)*ratio), area.W)
	return Rect{area.X, area.Y, firstW, area.H},
		Rect{area.X + firstW, area.Y, area.W - firstW, area.H}
}

func clampDim(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// ActiveTabID resolves a window leaf id to the id of its currently
// visible tab: a Window holds an ordered list of tabs but shows only
// ActiveTab at a time, so everything that
// renders or feeds a pane's grid needs this lookup rather than treating
// the window id itself as a grid key.
func ActiveTabID(ws *protocol.WorkspaceSnapshot, windowID string) (string, bool) {
	for _, win := range ws.Windows {
		if win.ID != windowID {
			continue
		}
		if win.ActiveTab < 0 || win.ActiveTab >= len(win.Tabs) {
			return "", false
		}
		return win.Tabs[win.ActiveTab].ID, true
	}
	return "", false
}

// AllTabIDs collects every tab id across every window in ws, regardless of
// which tab is active, so background tabs keep a live grid ready for when
// they're switched to.
func AllTabIDs(ws *protocol.WorkspaceSnapshot) []string {
	var out []string
	for _, win := range ws.Windows {
		for _, tab := range win.Tabs {
			out = append(out, tab.ID)
		}
	}
	return out
}
