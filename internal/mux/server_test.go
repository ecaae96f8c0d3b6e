package mux

import (
	"testing"
	"time"

	"panemux/internal/layout"
)

func spawnServerWithWorkspace(t *testing.T) (*ServerState, *Workspace) {
	t.Helper()
	s := NewServerState()
	s.Lock()
	ws, _ := s.NewWorkspace(t.TempDir(), 80, 24, nil)
	s.Unlock()
	return s, ws
}

func TestServerStateNewWorkspaceAutoNames(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	if ws.Name == "" {
		t.Fatalf("expected a non-empty auto-assigned workspace name")
	}
	if _, ok := s.Workspaces[ws.Name]; !ok {
		t.Fatalf("workspace %q not registered", ws.Name)
	}
	if n, ok := s.IDs.TabNumber(ws.ActiveWindow().Active().ID); !ok || n != 0 {
		t.Fatalf("expected the first tab to register as %%0, got (%d, %v)", n, ok)
	}
}

func TestServerStateSplitActiveWindow(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	winID, tabID, err := s.SplitActiveWindow(ws.Name, layout.Horizontal, KindShell, 80, 24, nil)
	s.Unlock()
	if err != nil {
		t.Fatalf("SplitActiveWindow() error = %v", err)
	}
	if _, ok := ws.Windows[winID]; !ok {
		t.Fatalf("new window %v not present in workspace", winID)
	}
	if ws.ActiveWin != winID {
		t.Fatalf("expected new window to become active")
	}
	if n, ok := s.IDs.TabNumber(tabID); !ok || n != 1 {
		t.Fatalf("expected the split's tab to register as %%1, got (%d, %v)", n, ok)
	}
}

func TestServerStateMoveTabRefusesSingleTabWindow(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	defer s.Unlock()
	err := s.MoveTabToNeighbor(ws.Name, layout.Horizontal, layout.Second)
	if err != ErrLastPane {
		t.Fatalf("MoveTabToNeighbor on a single-tab window = %v, want ErrLastPane", err)
	}
}

func TestServerStateToggleFoldActiveGroup(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	s.SplitActiveWindow(ws.Name, layout.Horizontal, KindShell, 80, 24, nil)
	folded, err := s.ToggleFoldActiveGroup(ws.Name)
	s.Unlock()

	if err != nil {
		t.Fatalf("ToggleFoldActiveGroup() error = %v", err)
	}
	if !folded {
		t.Fatalf("expected the active window to fold with a neighbor present")
	}
	if len(ws.Folds) != 1 {
		t.Fatalf("expected exactly one folded window, got %d", len(ws.Folds))
	}
}

func TestServerStateResizeAllTabs(t *testing.T) {
	s, ws := spawnServerWithWorkspace(t)
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	s.SplitActiveWindow(ws.Name, layout.Vertical, KindShell, 80, 24, nil)
	err := s.ResizeAllTabs(ws.Name, 160, 48)
	s.Unlock()

	if err != nil {
		t.Fatalf("ResizeAllTabs() error = %v", err)
	}
	for _, tab := range ws.AllTabs() {
		cols, rows := tab.Screen.Size()
		if cols == 0 || rows == 0 {
			t.Fatalf("expected tab screen to be resized to a nonzero size, got (%d, %d)", cols, rows)
		}
	}
}

func TestServerStateCloseWorkspaceReportsLast(t *testing.T) {
	s := NewServerState()
	s.Lock()
	ws, _ := s.NewWorkspace(t.TempDir(), 80, 24, nil)
	last, err := s.CloseWorkspace(ws.Name)
	s.Unlock()

	if err != nil {
		t.Fatalf("CloseWorkspace() error = %v", err)
	}
	if !last {
		t.Fatalf("expected CloseWorkspace to report true for the only workspace")
	}
	if len(s.Workspaces) != 0 {
		t.Fatalf("expected no workspaces left, got %d", len(s.Workspaces))
	}
}

func TestServerStateHandlePtyExitedCascadesToWorkspace(t *testing.T) {
	s := NewServerState()
	s.Lock()
	ws, _ := s.NewWorkspace(t.TempDir(), 80, 24, nil)
	tab := ws.ActiveWindow().Active()
	s.Unlock()

	if err := tab.WriteInput([]byte("exit\r")); err != nil {
		t.Fatalf("WriteInput() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		s.Lock()
		_, ok := s.Workspaces[ws.Name]
		s.Unlock()
		if !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for workspace teardown after pty exit")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
