package mux

import (
	"errors"
	"time"

	"panemux/internal/layout"
)

// ErrWindowNotFound is returned by Workspace operations given a WindowID
// that is not part of the workspace's layout tree.
var ErrWindowNotFound = errors.New("mux: window not found in workspace")

// Workspace is a named layout tree plus the Windows sitting at its leaves
//. Exactly one window is active at a time; folds are
// a transient per-workspace view (collapsed windows keep their state, just
// not their screen area), and Zoom temporarily overrides the layout with a
// single maximized window while remembering the prior ratios to restore.
type Workspace struct {
	Name      string
	Layout    *layout.Node
	Windows   map[layout.WindowID]*Window
	ActiveWin layout.WindowID

	// Folds holds windows manually collapsed by the user; folded windows are excluded from Resolve's on-screen
	// area but remain addressable and keep running.
	Folds map[layout.WindowID]struct{}

	// Zoomed, when non-nil, names the single window temporarily occupying
	// the whole workspace area; ratios are restored from savedRatios on
	// unzoom.
	Zoomed      *layout.WindowID
	savedRatios []float64

	SyncInput bool

	CreatedAt time.Time
}

// NewWorkspace creates a workspace with a single window wrapping tab.
func NewWorkspace(name string, tab *Tab) *Workspace {
	winID := layout.NewWindowID()
	win := NewWindow(winID, tab)
	return &Workspace{
		Name:      name,
		Layout:    layout.NewLeaf(winID),
		Windows:   map[layout.WindowID]*Window{winID: win},
		ActiveWin: winID,
		Folds:     map[layout.WindowID]struct{}{},
		CreatedAt: time.Now(),
	}
}

// ActiveWindow returns the currently active window, or nil if the
// workspace has somehow gone empty (should not happen outside teardown).
func (w *Workspace) ActiveWindow() *Window {
	return w.Windows[w.ActiveWin]
}

// SplitActive splits the active window's layout leaf in the given
// direction and inserts a new window wrapping tab on the new leaf.
func (w *Workspace) SplitActive(direction layout.Direction, tab *Tab) (layout.WindowID, error) {
	return w.Split(w.ActiveWin, direction, tab)
}

// Split splits the leaf belonging to target in the given direction.
func (w *Workspace) Split(target layout.WindowID, direction layout.Direction, tab *Tab) (layout.WindowID, error) {
	if _, ok := w.Windows[target]; !ok {
		return layout.WindowID{}, ErrWindowNotFound
	}
	newID := layout.NewWindowID()
	if !w.Layout.SplitPane(target, direction, newID) {
		return layout.WindowID{}, ErrWindowNotFound
	}
	w.Windows[newID] = NewWindow(newID, tab)
	w.ActiveWin = newID
	return newID, nil
}

// CloseWindow removes a window entirely: its layout leaf collapses into its
// sibling, and its tabs are handed back to the caller so they can be closed
// (the caller owns PTY teardown, not Workspace).
func (w *Workspace) CloseWindow(id layout.WindowID) ([]*Tab, error) {
	win, ok := w.Windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	survivor, removed := w.Layout.ClosePane(id)
	if !removed {
		return nil, ErrWindowNotFound
	}
	delete(w.Windows, id)
	delete(w.Folds, id)
	if w.Zoomed != nil && *w.Zoomed == id {
		w.Zoomed = nil
		w.savedRatios = nil
	}
	if w.ActiveWin == id {
		if _, ok := w.Windows[survivor]; ok {
			w.ActiveWin = survivor
		} else if len(w.Windows) > 0 {
			w.ActiveWin = w.Layout.FirstLeaf()
		}
	}
	return win.Tabs, nil
}

// IsEmpty reports whether the workspace has no windows left.
func (w *Workspace) IsEmpty() bool {
	return len(w.Windows) == 0
}

// FocusDirection moves ActiveWin to the neighbor in the given direction,
// if one exists.
func (w *Workspace) FocusDirection(dir layout.Direction, side layout.Side) bool {
	neighbor, ok := w.Layout.FindNeighbor(w.ActiveWin, dir, side)
	if !ok {
		return false
	}
	w.ActiveWin = neighbor
	return true
}

// ToggleFold flips the fold state of window id. Folding the last unfolded window is a no-op: a workspace
// always shows at least one window's contents.
func (w *Workspace) ToggleFold(id layout.WindowID) {
	if _, ok := w.Windows[id]; !ok {
		return
	}
	if _, folded := w.Folds[id]; folded {
		delete(w.Folds, id)
		return
	}
	if len(w.Folds)+1 >= len(w.Windows) {
		return
	}
	w.Folds[id] = struct{}{}
}

// PruneFoldedWindows drops fold entries for windows no longer present, e.g.
// after a close; called defensively after any layout mutation.
func (w *Workspace) PruneFoldedWindows() {
	for id := range w.Folds {
		if _, ok := w.Windows[id]; !ok {
			delete(w.Folds, id)
		}
	}
}

// Resolve returns the on-screen rects for every unfolded window, honoring
// the fold set.
func (w *Workspace) Resolve(area layout.Rect) []layout.ResolvedPane {
	return w.Layout.ResolveWithFolds(area, w.Folds)
}

// ToggleZoom maximizes the active window to fill the whole workspace area,
// remembering prior split ratios so a second call restores them exactly.
func (w *Workspace) ToggleZoom() {
	if w.Zoomed != nil {
		w.Layout.RestoreRatios(w.savedRatios)
		w.Zoomed = nil
		w.savedRatios = nil
		return
	}
	id := w.ActiveWin
	w.savedRatios = w.Layout.SnapshotRatios()
	if w.Layout.MaximizeLeaf(id) {
		w.Zoomed = &id
	} else {
		w.savedRatios = nil
	}
}

// Equalize resets every split ratio in the tree to 0.5, clearing any zoom.
func (w *Workspace) Equalize() {
	w.Zoomed = nil
	w.savedRatios = nil
	w.Layout.Equalize()
}

// AllTabs returns every tab across every window, used for bulk operations
// like resize_all_tabs and persistence snapshots.
func (w *Workspace) AllTabs() []*Tab {
	var out []*Tab
	for _, win := range w.Windows {
		out = append(out, win.Tabs...)
	}
	return out
}
