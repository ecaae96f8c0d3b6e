package mux

import (
	"testing"

	"panemux/internal/layout"
)

func TestNewWorkspaceHasOneWindow(t *testing.T) {
	ws := NewWorkspace("demo", fakeTab())
	if len(ws.Windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(ws.Windows))
	}
	if ws.ActiveWindow() == nil {
		t.Fatalf("ActiveWindow() = nil")
	}
}

func TestWorkspaceSplitAddsWindow(t *testing.T) {
	ws := NewWorkspace("demo", fakeTab())
	origID := ws.ActiveWin

	newID, err := ws.SplitActive(layout.Horizontal, fakeTab())
	if err != nil {
		t.Fatalf("SplitActive() error = %v", err)
	}
	if len(ws.Windows) != 2 {
		t.Fatalf("expected 2 windows after split, got %d", len(ws.Windows))
	}
	if ws.ActiveWin != newID {
		t.Fatalf("expected new window to become active")
	}
	if !ws.Layout.Contains(origID) || !ws.Layout.Contains(newID) {
		t.Fatalf("layout tree missing one of the split windows")
	}
}

func TestWorkspaceCloseWindowCollapsesLayout(t *testing.T) {
	ws := NewWorkspace("demo", fakeTab())
	origID := ws.ActiveWin
	newID, _ := ws.SplitActive(layout.Vertical, fakeTab())

	tabs, err := ws.CloseWindow(newID)
	if err != nil {
		t.Fatalf("CloseWindow() error = %v", err)
	}
	if len(tabs) != 1 {
		t.Fatalf("expected 1 returned tab, got %d", len(tabs))
	}
	if _, ok := ws.Windows[newID]; ok {
		t.Fatalf("closed window still present in Windows map")
	}
	if ws.ActiveWin != origID {
		t.Fatalf("ActiveWin = %v, want surviving window %v", ws.ActiveWin, origID)
	}
}

func TestWorkspaceToggleFoldRefusesLastVisible(t *testing.T) {
	ws := NewWorkspace("demo", fakeTab())
	ws.ToggleFold(ws.ActiveWin)
	if len(ws.Folds) != 0 {
		t.Fatalf("expected fold of the sole window to be refused")
	}
}

func TestWorkspaceToggleFoldAndUnfold(t *testing.T) {
	ws := NewWorkspace("demo", fakeTab())
	_, _ = ws.SplitActive(layout.Horizontal, fakeTab())
	first := ws.Layout.FirstLeaf()

	ws.ToggleFold(first)
	if _, folded := ws.Folds[first]; !folded {
		t.Fatalf("expected window to be folded")
	}
	ws.ToggleFold(first)
	if _, folded := ws.Folds[first]; folded {
		t.Fatalf("expected window to be unfolded on second toggle")
	}
}

func TestWorkspacePruneFoldedWindows(t *testing.T) {
	ws := NewWorkspace("demo", fakeTab())
	newID, _ := ws.SplitActive(layout.Horizontal, fakeTab())
	ws.ToggleFold(newID)

	ws.CloseWindow(newID)
	ws.PruneFoldedWindows()

	if len(ws.Folds) != 0 {
		t.Fatalf("expected fold entry for closed window to be pruned")
	}
}

func TestWorkspaceToggleZoomRestoresRatios(t *testing.T) {
	ws := NewWorkspace("demo", fakeTab())
	ws.SplitActive(layout.Horizontal, fakeTab())
	ws.Layout.SetRatioAtPath(nil, 0.75)

	before := ws.Layout.SnapshotRatios()
	ws.ToggleZoom()
	if ws.Zoomed == nil {
		t.Fatalf("expected Zoomed to be set after ToggleZoom")
	}
	ws.ToggleZoom()
	if ws.Zoomed != nil {
		t.Fatalf("expected Zoomed to be cleared after second ToggleZoom")
	}
	after := ws.Layout.SnapshotRatios()
	if len(before) != len(after) {
		t.Fatalf("ratio count changed across zoom/unzoom: %v vs %v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("ratio %d = %v after zoom/unzoom, want %v", i, after[i], before[i])
		}
	}
}

func TestWorkspaceFocusDirection(t *testing.T) {
	ws := NewWorkspace("demo", fakeTab())
	origID := ws.ActiveWin
	newID, _ := ws.SplitActive(layout.Horizontal, fakeTab())

	if ok := ws.FocusDirection(layout.Horizontal, layout.First); !ok {
		t.Fatalf("FocusDirection() = false, want true")
	}
	if ws.ActiveWin != origID {
		t.Fatalf("expected focus to move to %v, got %v", origID, ws.ActiveWin)
	}
	_ = newID
}

func TestWorkspaceAllTabs(t *testing.T) {
	ws := NewWorkspace("demo", fakeTab())
	ws.SplitActive(layout.Horizontal, fakeTab())

	if got := len(ws.AllTabs()); got != 2 {
		t.Fatalf("AllTabs() returned %d tabs, want 2", got)
	}
}
