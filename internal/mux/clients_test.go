package mux

import "testing"

func TestClientRegistryEffectiveSizeIsMinimum(t *testing.T) {
	r := NewClientRegistry()
	a := r.Attach(100, 40, "demo")
	b := r.Attach(80, 50, "demo")

	w, h, ok := r.EffectiveSize()
	if !ok {
		t.Fatalf("EffectiveSize() ok = false, want true")
	}
	if w != 80 || h != 40 {
		t.Fatalf("EffectiveSize() = (%d, %d), want (80, 40)", w, h)
	}

	r.Detach(a)
	w, h, ok = r.EffectiveSize()
	if !ok || w != 80 || h != 50 {
		t.Fatalf("EffectiveSize() after detach = (%d, %d, %v), want (80, 50, true)", w, h, ok)
	}

	r.Detach(b)
	if _, _, ok := r.EffectiveSize(); ok {
		t.Fatalf("EffectiveSize() with no clients ok = true, want false")
	}
}

func TestClientRegistrySetSizeUpdates(t *testing.T) {
	r := NewClientRegistry()
	id := r.Attach(100, 40, "demo")
	r.SetSize(id, 60, 20)

	info, ok := r.Get(id)
	if !ok {
		t.Fatalf("Get() ok = false")
	}
	if info.Width != 60 || info.Height != 20 {
		t.Fatalf("Get() = %+v, want width=60 height=20", info)
	}
}

func TestClientRegistrySetActiveWorkspace(t *testing.T) {
	r := NewClientRegistry()
	id := r.Attach(100, 40, "demo")
	r.SetActiveWorkspace(id, "other")

	info, _ := r.Get(id)
	if info.ActiveWorkspace != "other" {
		t.Fatalf("ActiveWorkspace = %q, want %q", info.ActiveWorkspace, "other")
	}
}

func TestClientRegistryCount(t *testing.T) {
	r := NewClientRegistry()
	if r.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", r.Count())
	}
	id := r.Attach(10, 10, "x")
	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
	r.Detach(id)
	if r.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after detach", r.Count())
	}
}
