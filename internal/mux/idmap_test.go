package mux

import (
	"testing"

	"panemux/internal/layout"
)

func TestIDMapRegisterIsIdempotent(t *testing.T) {
	m := NewIDMap()
	id := NewTabID()
	n1 := m.RegisterTab(id)
	n2 := m.RegisterTab(id)
	if n1 != n2 {
		t.Fatalf("RegisterTab returned different numbers for the same id: %d != %d", n1, n2)
	}
}

func TestIDMapCountersAreIndependent(t *testing.T) {
	m := NewIDMap()
	tabID := NewTabID()
	winID := layout.NewWindowID()

	tabN := m.RegisterTab(tabID)
	winN := m.RegisterWindow(winID)

	if tabN != 0 || winN != 0 {
		t.Fatalf("expected both counters to start at 0, got tab=%d win=%d", tabN, winN)
	}
}

func TestIDMapNumbersNeverReused(t *testing.T) {
	m := NewIDMap()
	a := NewTabID()
	b := NewTabID()

	na := m.RegisterTab(a)
	m.UnregisterTab(a)
	nb := m.RegisterTab(b)

	if na == nb {
		t.Fatalf("expected a fresh number after unregister, got the same number %d twice", na)
	}
	if _, ok := m.TabByNumber(na); ok {
		t.Fatalf("expected number %d to no longer resolve after unregister", na)
	}
}

func TestIDMapRoundTrip(t *testing.T) {
	m := NewIDMap()
	id := NewTabID()
	n := m.RegisterTab(id)

	got, ok := m.TabByNumber(n)
	if !ok || got != id {
		t.Fatalf("TabByNumber(%d) = (%v, %v), want (%v, true)", n, got, ok, id)
	}
	gotN, ok := m.TabNumber(id)
	if !ok || gotN != n {
		t.Fatalf("TabNumber(%v) = (%d, %v), want (%d, true)", id, gotN, ok, n)
	}
}

func TestIDMapUnregisterUnknownIsNoop(t *testing.T) {
	m := NewIDMap()
	m.UnregisterTab(NewTabID())
	m.UnregisterWindow(layout.NewWindowID())
}
