package client

import (
	"testing"

	"panemux/internal/protocol"
)

func sampleWorkspaceSnapshot() *protocol.WorkspaceSnapshot {
	return &protocol.WorkspaceSnapshot{
		Name: "main",
		Layout: &protocol.LayoutNode{
			Direction: "horizontal",
			Ratio:     0.5,
			First:     &protocol.LayoutNode{Leaf: "w1"},
			Second:    &protocol.LayoutNode{Leaf: "w2"},
		},
		Windows: []protocol.WindowSnapshot{
			{
				ID: "w1",
				Tabs: []protocol.TabSnapshot{
					{ID: "w1t1", Title: "shell"},
					{ID: "w1t2", Title: "editor"},
				},
				ActiveTab: 1,
			},
			{
				ID:        "w2",
				Tabs:      []protocol.TabSnapshot{{ID: "w2t1", Title: "shell"}},
				ActiveTab: 0,
			},
		},
		ActiveWindow: "w1",
	}
}

func TestActiveTabIDResolvesActiveIndex(t *testing.T) {
	ws := sampleWorkspaceSnapshot()
	id, ok := ActiveTabID(ws, "w1")
	if !ok || id != "w1t2" {
		t.Fatalf("ActiveTabID(w1) = %q,%v want w1t2,true", id, ok)
	}
	id, ok = ActiveTabID(ws, "w2")
	if !ok || id != "w2t1" {
		t.Fatalf("ActiveTabID(w2) = %q,%v want w2t1,true", id, ok)
	}
}

func TestActiveTabIDUnknownWindow(t *testing.T) {
	ws := sampleWorkspaceSnapshot()
	if _, ok := ActiveTabID(ws, "nope"); ok {
		t.Fatal("expected ok=false for unknown window id")
	}
}

func TestActiveTabIDOutOfRangeIndex(t *testing.T) {
	ws := sampleWorkspaceSnapshot()
	ws.Windows[0].ActiveTab = 5
	if _, ok := ActiveTabID(ws, "w1"); ok {
		t.Fatal("expected ok=false for out-of-range active tab")
	}
}

func TestAllTabIDsCollectsEveryTab(t *testing.T) {
	ws := sampleWorkspaceSnapshot()
	ids := AllTabIDs(ws)
	want := map[string]bool{"w1t1": true, "w1t2": true, "w2t1": true}
	if len(ids) != len(want) {
		t.Fatalf("len(ids) = %d, want %d", len(ids), len(want))
	}
	for _, id := range ids {
		if !want[id] {
			t.Fatalf("unexpected tab id %q", id)
		}
	}
}

func TestResolveLayoutSingleLeafFillsArea(t *testing.T) {
	area := Rect{0, 0, 80, 24}
	rects := ResolveLayout(&protocol.LayoutNode{Leaf: "only"}, area)
	if len(rects) != 1 {
		t.Fatalf("len(rects) = %d, want 1", len(rects))
	}
	if rects[0].Rect != area {
		t.Fatalf("rect = %+v, want %+v", rects[0].Rect, area)
	}
}

func TestResolveLayoutHorizontalSplit(t *testing.T) {
	n := &protocol.LayoutNode{
		Direction: "horizontal",
		Ratio:     0.5,
		First:     &protocol.LayoutNode{Leaf: "left"},
		Second:    &protocol.LayoutNode{Leaf: "right"},
	}
	rects := ResolveLayout(n, Rect{0, 0, 80, 24})
	if len(rects) != 2 {
		t.Fatalf("len(rects) = %d, want 2", len(rects))
	}
	left, right := rects[0], rects[1]
	if left.WindowID != "left" || right.WindowID != "right" {
		t.Fatalf("rects = %+v", rects)
	}
	if left.Rect.W+right.Rect.W != 80 {
		t.Fatalf("widths don't sum to area width: %d + %d", left.Rect.W, right.Rect.W)
	}
	if left.Rect.X != 0 || right.Rect.X != left.Rect.W {
		t.Fatalf("rects not adjacent: %+v %+v", left.Rect, right.Rect)
	}
}

func TestResolveLayoutVerticalSplit(t *testing.T) {
	n := &protocol.LayoutNode{
		Direction: "vertical",
		Ratio:     0.25,
		First:     &protocol.LayoutNode{Leaf: "top"},
		Second:    &protocol.LayoutNode{Leaf: "bottom"},
	}
	rects := ResolveLayout(n, Rect{0, 0, 80, 24})
	top, bottom := rects[0], rects[1]
	if top.Rect.H+bottom.Rect.H != 24 {
		t.Fatalf("heights don't sum: %d + %d", top.Rect.H, bottom.Rect.H)
	}
	if top.Rect.Y != 0 || bottom.Rect.Y != top.Rect.H {
		t.Fatalf("rects not stacked: %+v %+v", top.Rect, bottom.Rect)
	}
}

func TestResolveLayoutNilNodeYieldsNoRects(t *testing.T) {
	rects := ResolveLayout(nil, Rect{0, 0, 10, 10})
	if len(rects) != 0 {
		t.Fatalf("len(rects) = %d, want 0", len(rects))
	}
}
