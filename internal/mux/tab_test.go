package mux

import (
	"errors"
	"testing"
	"time"

	"panemux/internal/ptyfactory"
)

type failingSpawner struct{ err error }

func (f failingSpawner) Start(ptyfactory.PTYConfig) (ptyfactory.PTYHandle, error) {
	return nil, f.err
}

func TestNewTabEntersErrorStateOnSpawnFailure(t *testing.T) {
	spawnErr := errors.New("exec: no such file")
	tab := newTabWithSpawner(SpawnRequest{Kind: KindShell, Cols: 80, Rows: 24}, nil, nil, failingSpawner{spawnErr})

	if !tab.Exited {
		t.Fatalf("expected Exited=true after spawn failure")
	}
	if tab.pty != nil {
		t.Fatalf("expected no pty after spawn failure")
	}
	if err := tab.WriteInput([]byte("x")); err == nil {
		t.Fatalf("expected WriteInput to fail with no writer")
	}
	if got := tab.Screen.Snapshot(); len(got) == 0 {
		t.Fatalf("expected a pre-rendered error banner in Screen")
	}
}

func TestNewTabSpawnsRealShellAndExits(t *testing.T) {
	var exited chan TabID = make(chan TabID, 1)
	tab := NewTab(SpawnRequest{
		Kind:    KindShell,
		Command: "/bin/sh",
		Args:    []string{"-c", "exit 0"},
		Cols:    80,
		Rows:    24,
	}, nil, func(id TabID) { exited <- id })

	if tab.Exited {
		t.Fatalf("expected a freshly spawned tab not to be exited yet")
	}

	select {
	case id := <-exited:
		if id != tab.ID {
			t.Fatalf("onExit called with %v, want %v", id, tab.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for onExit callback")
	}
	if !tab.Exited {
		t.Fatalf("expected Exited=true once readLoop observes EOF")
	}
}

func TestTabResizePty(t *testing.T) {
	tab := newTabWithSpawner(SpawnRequest{Kind: KindShell, Cols: 80, Rows: 24}, nil, nil, failingSpawner{errors.New("boom")})
	tab.ResizePty(100, 30)

	cols, rows := tab.Screen.Size()
	if cols != 100 || rows != 30 {
		t.Fatalf("Screen.Size() = (%d, %d), want (100, 30)", cols, rows)
	}
}

func TestTabRestartRequiresExited(t *testing.T) {
	tab := NewTab(SpawnRequest{Kind: KindShell, Command: "/bin/sh", Args: []string{"-c", "sleep 5"}, Cols: 80, Rows: 24}, nil, nil)
	defer tab.Close()

	if err := tab.Restart(80, 24, "", nil, nil, nil); err == nil {
		t.Fatalf("expected Restart to fail on a still-running tab")
	}
}
