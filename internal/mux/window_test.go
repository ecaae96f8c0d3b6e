package mux

import (
	"testing"

	"panemux/internal/layout"
)

func fakeTab() *Tab {
	return &Tab{ID: NewTabID(), Kind: KindShell}
}

func TestWindowAddTabFocusesNew(t *testing.T) {
	w := NewWindow(layout.NewWindowID(), fakeTab())
	second := fakeTab()
	w.AddTab(second)

	if w.Active() != second {
		t.Fatalf("AddTab did not focus the new tab")
	}
}

func TestWindowCloseLastTabReturnsErrNoTabs(t *testing.T) {
	w := NewWindow(layout.NewWindowID(), fakeTab())
	if err := w.CloseTab(0); err != ErrNoTabs {
		t.Fatalf("CloseTab on last tab = %v, want ErrNoTabs", err)
	}
	if len(w.Tabs) != 0 {
		t.Fatalf("expected window to be left empty, has %d tabs", len(w.Tabs))
	}
}

func TestWindowCloseTabKeepsActiveInRange(t *testing.T) {
	w := NewWindow(layout.NewWindowID(), fakeTab())
	w.AddTab(fakeTab())
	w.AddTab(fakeTab())
	w.ActiveTab = 2

	if err := w.CloseTab(2); err != nil {
		t.Fatalf("CloseTab() error = %v", err)
	}
	if w.ActiveTab != 1 {
		t.Fatalf("ActiveTab = %d, want 1 after closing the active last tab", w.ActiveTab)
	}
}

func TestWindowNextPrevTabWraps(t *testing.T) {
	w := NewWindow(layout.NewWindowID(), fakeTab())
	w.AddTab(fakeTab())
	w.AddTab(fakeTab())
	w.ActiveTab = 2

	w.NextTab()
	if w.ActiveTab != 0 {
		t.Fatalf("NextTab from last index = %d, want wraparound to 0", w.ActiveTab)
	}
	w.PrevTab()
	if w.ActiveTab != 2 {
		t.Fatalf("PrevTab from 0 = %d, want wraparound to 2", w.ActiveTab)
	}
}

func TestWindowIndexOf(t *testing.T) {
	w := NewWindow(layout.NewWindowID(), fakeTab())
	target := fakeTab()
	w.AddTab(target)

	if idx := w.IndexOf(target.ID); idx != 1 {
		t.Fatalf("IndexOf = %d, want 1", idx)
	}
	if idx := w.IndexOf(NewTabID()); idx != -1 {
		t.Fatalf("IndexOf for unknown id = %d, want -1", idx)
	}
}
