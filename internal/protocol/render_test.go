package protocol

import (
	"testing"

	"panemux/internal/layout"
	"panemux/internal/mux"
)

func TestBuildLayoutNodeLeaf(t *testing.T) {
	id := layout.NewWindowID()
	n := layout.NewLeaf(id)
	ln := BuildLayoutNode(n)
	if ln.Leaf != id.String() {
		t.Fatalf("got leaf %q want %q", ln.Leaf, id.String())
	}
	if ln.First != nil || ln.Second != nil {
		t.Fatal("leaf node must have no children")
	}
}

func TestBuildRenderStateReflectsWorkspace(t *testing.T) {
	s := mux.NewServerState()
	s.Lock()
	ws, tab := s.NewWorkspace(t.TempDir(), 80, 24, nil)
	s.Unlock()
	defer func() {
		s.Lock()
		s.CloseWorkspace(ws.Name)
		s.Unlock()
	}()

	s.Lock()
	rs := BuildRenderState(s)
	s.Unlock()

	if rs.ActiveWorkspace != s.ActiveWorkspace {
		t.Fatalf("got active workspace %q", rs.ActiveWorkspace)
	}
	if len(rs.Workspaces) != 1 {
		t.Fatalf("got %d workspaces", len(rs.Workspaces))
	}
	snap := rs.Workspaces[0]
	if snap.Name != ws.Name {
		t.Fatalf("got name %q", snap.Name)
	}
	if len(snap.Windows) != 1 || len(snap.Windows[0].Tabs) != 1 {
		t.Fatalf("got windows %+v", snap.Windows)
	}
	if snap.Windows[0].Tabs[0].ID != "%0" {
		t.Fatalf("got first tab id %q want %%0", snap.Windows[0].Tabs[0].ID)
	}
	if snap.Windows[0].Tabs[0].Kind != tab.Kind.String() {
		t.Fatalf("got kind %q", snap.Windows[0].Tabs[0].Kind)
	}
}
