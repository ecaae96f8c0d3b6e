package mux

import (
	"errors"

	"panemux/internal/layout"
)

// ErrNoTabs is returned by operations that require at least one tab.
var ErrNoTabs = errors.New("mux: window has no tabs")

// Window is one leaf of a Workspace's layout tree: an ordered stack of
// Tabs with one active at a time. Tabs are addressed by
// position within Tabs, not by a separate per-window id; the window's own
// identity is its layout.WindowID.
type Window struct {
	ID        layout.WindowID
	Name      string
	Tabs      []*Tab
	ActiveTab int
}

// NewWindow wraps a single tab as a freshly created window.
func NewWindow(id layout.WindowID, tab *Tab) *Window {
	return &Window{ID: id, Tabs: []*Tab{tab}, ActiveTab: 0}
}

// Active returns the currently active tab, or nil if the window has none
// (only possible transiently during CloseTab on the last tab, just before
// the caller removes the window itself).
func (w *Window) Active() *Tab {
	if len(w.Tabs) == 0 {
		return nil
	}
	if w.ActiveTab < 0 || w.ActiveTab >= len(w.Tabs) {
		w.ActiveTab = 0
	}
	return w.Tabs[w.ActiveTab]
}

// AddTab appends tab and makes it active.
func (w *Window) AddTab(tab *Tab) {
	w.Tabs = append(w.Tabs, tab)
	w.ActiveTab = len(w.Tabs) - 1
}

// CloseTab removes the tab at index i. It reports ErrNoTabs having removed
// the window's last tab, leaving the window empty — the caller (Workspace)
// is responsible for then pruning the window from the layout tree.
func (w *Window) CloseTab(i int) error {
	if i < 0 || i >= len(w.Tabs) {
		return errors.New("mux: tab index out of range")
	}
	w.Tabs = append(w.Tabs[:i], w.Tabs[i+1:]...)
	if len(w.Tabs) == 0 {
		w.ActiveTab = 0
		return ErrNoTabs
	}
	if w.ActiveTab >= len(w.Tabs) {
		w.ActiveTab = len(w.Tabs) - 1
	}
	return nil
}

// IndexOf returns the position of tab id within Tabs, or -1.
func (w *Window) IndexOf(id TabID) int {
	for i, t := range w.Tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// SelectTab makes the tab at index i active.
func (w *Window) SelectTab(i int) error {
	if i < 0 || i >= len(w.Tabs) {
		return errors.New("mux: tab index out of range")
	}
	w.ActiveTab = i
	return nil
}

// NextTab cycles the active tab forward, wrapping around.
func (w *Window) NextTab() {
	if len(w.Tabs) == 0 {
		return
	}
	w.ActiveTab = (w.ActiveTab + 1) % len(w.Tabs)
}

// PrevTab cycles the active tab backward, wrapping around.
func (w *Window) PrevTab() {
	if len(w.Tabs) == 0 {
		return
	}
	w.ActiveTab = (w.ActiveTab - 1 + len(w.Tabs)) % len(w.Tabs)
}

// ResizeAll applies cols/rows to every tab's PTY, not just the active one,
// so background tabs stay consistent with the window's on-screen size.
func (w *Window) ResizeAll(cols, rows int) {
	for _, t := range w.Tabs {
		t.ResizePty(cols, rows)
	}
}
