package client

import "testing"

func TestNewModeStartsNormalNoOverlay(t *testing.T) {
	m := NewMode()
	if m.Base != Normal {
		t.Fatalf("Base = %v, want Normal", m.Base)
	}
	if m.Overlay() != OverlayNone {
		t.Fatalf("Overlay() = %v, want OverlayNone", m.Overlay())
	}
	if m.InOverlay() {
		t.Fatal("InOverlay() = true on a fresh Mode")
	}
}

func TestOverlayStackLIFO(t *testing.T) {
	m := NewMode()
	m.PushOverlay(OverlayLeader)
	m.PushOverlay(OverlayCopy)
	if got := m.Overlay(); got != OverlayCopy {
		t.Fatalf("Overlay() = %v, want OverlayCopy", got)
	}
	m.PopOverlay()
	if got := m.Overlay(); got != OverlayLeader {
		t.Fatalf("Overlay() after pop = %v, want OverlayLeader", got)
	}
	m.PopOverlay()
	if got := m.Overlay(); got != OverlayNone {
		t.Fatalf("Overlay() after draining stack = %v, want OverlayNone", got)
	}
}

func TestPopOverlayOnEmptyStackIsNoOp(t *testing.T) {
	m := NewMode()
	m.PopOverlay()
	if m.InOverlay() {
		t.Fatal("InOverlay() = true after popping an empty stack")
	}
}

func TestClearOverlaysDropsEverything(t *testing.T) {
	m := NewMode()
	m.PushOverlay(OverlayLeader)
	m.PushOverlay(OverlayScroll)
	m.ClearOverlays()
	if m.InOverlay() {
		t.Fatal("InOverlay() = true after ClearOverlays")
	}
}

func TestSetBase(t *testing.T) {
	m := NewMode()
	m.SetBase(Interact)
	if m.Base != Interact {
		t.Fatalf("Base = %v, want Interact", m.Base)
	}
}

func TestBaseModeString(t *testing.T) {
	if Normal.String() != "normal" {
		t.Fatalf("Normal.String() = %q", Normal.String())
	}
	if Interact.String() != "interact" {
		t.Fatalf("Interact.String() = %q", Interact.String())
	}
}
