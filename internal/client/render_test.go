package client

import (
	"strings"
	"testing"

	"panemux/internal/screen"
)

func TestGridSetReconcileCreatesAndDrops(t *testing.T) {
	gs := NewGridSet(100, nil)
	gs.Reconcile([]string{"a", "b"}, 10, 5)
	if _, ok := gs.Get("a"); !ok {
		t.Fatal("expected grid a to exist")
	}
	if _, ok := gs.Get("b"); !ok {
		t.Fatal("expected grid b to exist")
	}
	gs.Reconcile([]string{"a"}, 10, 5)
	if _, ok := gs.Get("b"); ok {
		t.Fatal("expected grid b to be dropped")
	}
	if _, ok := gs.Get("a"); !ok {
		t.Fatal("expected grid a to survive reconcile")
	}
}

func TestGridSetFeedCreatesOnDemand(t *testing.T) {
	gs := NewGridSet(100, nil)
	gs.Feed("win1", 10, 5, []byte("hi"))
	g, ok := gs.Get("win1")
	if !ok {
		t.Fatal("expected grid win1 to be created by Feed")
	}
	if cols, rows := g.Size(); cols != 10 || rows != 5 {
		t.Fatalf("size = %d,%d want 10,5", cols, rows)
	}
}

func TestSgrForDefaultCellIsPlainReset(t *testing.T) {
	got := sgrFor(screen.Cell{})
	if got != "\x1b[0m" {
		t.Fatalf("got %q", got)
	}
}

func TestSgrForBoldIndexedColor(t *testing.T) {
	got := sgrFor(screen.Cell{Attr: screen.AttrBold, Fg: screen.Color{Kind: screen.ColorIndexed, Idx: 5}})
	if !strings.Contains(got, "1") || !strings.Contains(got, "38;5;5") {
		t.Fatalf("got %q", got)
	}
}

func TestFrameRendererRenderProducesOutput(t *testing.T) {
	var buf strings.Builder
	fr := NewFrameRenderer(&buf)
	gs := NewGridSet(100, nil)
	gs.Feed("w1t2", 10, 5, []byte("hello"))
	ws := sampleWorkspaceSnapshot()
	fr.Render(ws, gs, Rect{0, 0, 20, 10})
	if buf.Len() == 0 {
		t.Fatal("expected non-empty rendered output")
	}
}
