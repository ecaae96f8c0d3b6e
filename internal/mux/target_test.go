package mux

import (
	"testing"

	"panemux/internal/layout"
)

func TestResolveWindowDefaultsToActive(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	defer s.Unlock()
	id, err := s.ResolveWindow(ws.Name, WindowTarget{})
	if err != nil {
		t.Fatalf("ResolveWindow() error = %v", err)
	}
	if id != ws.ActiveWin {
		t.Fatalf("ResolveWindow() = %v, want active window %v", id, ws.ActiveWin)
	}
}

func TestResolveWindowByID(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	winID, _, _ := s.SplitActiveWindow(ws.Name, layout.Horizontal, KindShell, 80, 24, nil)
	n, _ := s.IDs.WindowNumber(winID)
	got, err := s.ResolveWindow(ws.Name, WindowTarget{Kind: WindowTargetID, ID: n})
	s.Unlock()

	if err != nil {
		t.Fatalf("ResolveWindow() error = %v", err)
	}
	if got != winID {
		t.Fatalf("ResolveWindow(@%d) = %v, want %v", n, got, winID)
	}
}

func TestResolveTabByDirection(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	_, newTabID, _ := s.SplitActiveWindow(ws.Name, layout.Horizontal, KindShell, 80, 24, nil)
	gotTab, _, err := s.ResolveTab(ws.Name, PaneTarget{Kind: PaneTargetDirection, Dir: layout.Horizontal, Side: layout.First})
	s.Unlock()

	if err != nil {
		t.Fatalf("ResolveTab() error = %v", err)
	}
	_ = newTabID
	if gotTab == newTabID {
		t.Fatalf("expected the First-side neighbor to resolve to the original tab, not the newly split one")
	}
}

func TestKillPaneRefusesLastPane(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	defer s.Unlock()
	tab := ws.ActiveWindow().Active()
	_, err := s.KillPane(ws.Name, tab.ID, ws.ActiveWin)
	if err != ErrLastPane {
		t.Fatalf("KillPane() error = %v, want ErrLastPane", err)
	}
}

func TestKillPaneClosesTabWhenWindowHasMultiple(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	defer s.Unlock()
	win := ws.ActiveWindow()
	extraID, err := s.AddTabToActiveWindow(ws.Name, KindShell, "", nil, 80, 24, nil)
	if err != nil {
		t.Fatalf("AddTabToActiveWindow() error = %v", err)
	}
	result, err := s.KillPane(ws.Name, extraID, win.ID)
	if err != nil {
		t.Fatalf("KillPane() error = %v", err)
	}
	if result != KillPaneClosedTab {
		t.Fatalf("KillPane() result = %v, want KillPaneClosedTab", result)
	}
	if len(win.Tabs) != 1 {
		t.Fatalf("expected 1 tab remaining, got %d", len(win.Tabs))
	}
}

func TestKillWindowRefusesLastWindow(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	defer s.Unlock()
	if err := s.KillWindow(ws.Name, ws.ActiveWin); err != ErrLastWindow {
		t.Fatalf("KillWindow() error = %v, want ErrLastWindow", err)
	}
}

func TestSelectLayoutPreservesWindowSet(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	s.SplitActiveWindow(ws.Name, layout.Horizontal, KindShell, 80, 24, nil)
	before := len(ws.Windows)
	err := s.SelectLayout(ws.Name, layout.EvenVertical)
	s.Unlock()

	if err != nil {
		t.Fatalf("SelectLayout() error = %v", err)
	}
	if len(ws.Windows) != before {
		t.Fatalf("expected window count unchanged, got %d want %d", len(ws.Windows), before)
	}
}

func TestRenameWorkspace(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	oldName := ws.Name
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	err := s.RenameWorkspace(oldName, "renamed")
	s.Unlock()

	if err != nil {
		t.Fatalf("RenameWorkspace() error = %v", err)
	}
	if _, ok := s.Workspaces["renamed"]; !ok {
		t.Fatalf("expected workspace registered under new name")
	}
	if ws.Name != "renamed" {
		t.Fatalf("Workspace.Name = %q, want %q", ws.Name, "renamed")
	}
}
