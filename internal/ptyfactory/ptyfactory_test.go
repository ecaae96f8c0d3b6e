package ptyfactory

import "testing"

func TestStartSmoke(t *testing.T) {
	handle, err := Default.Start(PTYConfig{
		Shell:   "/bin/sh",
		Args:    []string{"-c", "exit 0"},
		Columns: 120,
		Rows:    40,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer handle.Close()

	if handle.Pid() == 0 {
		t.Fatalf("expected a non-zero pid")
	}
}

func TestResizeRejectsNonPositiveSize(t *testing.T) {
	p := &process{}
	if err := p.Resize(0, 10); err == nil {
		t.Fatalf("expected Resize(0, 10) to error")
	}
	if err := p.Resize(10, 0); err == nil {
		t.Fatalf("expected Resize(10, 0) to error")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	handle, err := Default.Start(PTYConfig{Shell: "/bin/sh", Args: []string{"-c", "sleep 5"}})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
