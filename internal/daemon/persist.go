package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"panemux/internal/mux"
	"panemux/internal/protocol"
)

// currentSavedStateVersion is bumped whenever SavedState's shape changes in
// a way loaders must migrate. LoadSavedState always returns this version;
// callers persisting an older document get it rewritten on the next Save.
const currentSavedStateVersion = 1

// scrollbackTailLines bounds the best-effort scrollback persisted per tab:
// a small tail, not a full replay.
const scrollbackTailLines = 200

// SavedState is the root of pane/state.json:
// RenderState's shape plus per-tab command/cwd/env and a scrollback tail.
type SavedState struct {
	Version         int              `json:"version"`
	UpdatedAt       time.Time        `json:"updated_at"`
	ActiveWorkspace string           `json:"active_workspace"`
	Workspaces      []SavedWorkspace `json:"workspaces"`
}

// SavedWorkspace mirrors protocol.WorkspaceSnapshot.
type SavedWorkspace struct {
	Name         string              `json:"name"`
	Layout       *protocol.LayoutNode `json:"layout"`
	Windows      []SavedWindow       `json:"windows"`
	ActiveWindow string              `json:"active_window"`
	SyncPanes    bool                `json:"sync_panes"`
}

// SavedWindow mirrors protocol.WindowSnapshot.
type SavedWindow struct {
	ID        string     `json:"id"`
	Tabs      []SavedTab `json:"tabs"`
	ActiveTab int        `json:"active_tab"`
}

// SavedTab extends protocol.TabSnapshot with the fields needed to respawn a
// tab on restore: the original spawn command, cwd, environment overlay, and
// a cosmetic scrollback tail.
type SavedTab struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Title      string   `json:"title"`
	Command    string   `json:"command,omitempty"`
	Args       []string `json:"args,omitempty"`
	Cwd        string   `json:"cwd,omitempty"`
	Env        []string `json:"env,omitempty"`
	Scrollback string   `json:"scrollback,omitempty"`
}

// BuildSavedState snapshots the full mux state for persistence. s must
// already be locked by the caller.
func BuildSavedState(s *mux.ServerState) *SavedState {
	names := s.SortedWorkspaceNames()
	out := &SavedState{
		Version:         currentSavedStateVersion,
		UpdatedAt:       time.Now(),
		ActiveWorkspace: s.ActiveWorkspace,
		Workspaces:      make([]SavedWorkspace, 0, len(names)),
	}
	for _, name := range names {
		ws, ok := s.Workspace(name)
		if !ok {
			continue
		}
		out.Workspaces = append(out.Workspaces, buildSavedWorkspace(s, ws))
	}
	return out
}

func buildSavedWorkspace(s *mux.ServerState, ws *mux.Workspace) SavedWorkspace {
	ids := ws.Layout.LeafIDs()
	windows := make([]SavedWindow, 0, len(ids))
	for _, id := range ids {
		win, ok := ws.Windows[id]
		if !ok {
			continue
		}
		windows = append(windows, buildSavedWindow(s, win))
	}
	return SavedWorkspace{
		Name:         ws.Name,
		Layout:       protocol.BuildLayoutNode(ws.Layout),
		Windows:      windows,
		ActiveWindow: ws.ActiveWin.String(),
		SyncPanes:    ws.SyncInput,
	}
}

func buildSavedWindow(s *mux.ServerState, win *mux.Window) SavedWindow {
	tabs := make([]SavedTab, 0, len(win.Tabs))
	for _, tab := range win.Tabs {
		n, _ := s.IDs.TabNumber(tab.ID)
		tabs = append(tabs, SavedTab{
			ID:         formatTabID(n),
			Kind:       tab.Kind.String(),
			Title:      tab.Title,
			Command:    tab.Command,
			Args:       tab.Args,
			Cwd:        tab.Cwd,
			Scrollback: lastNLines(s.Replay.Snapshot(tab.ID.String()), scrollbackTailLines),
		})
	}
	return SavedWindow{ID: win.ID.String(), Tabs: tabs, ActiveTab: win.ActiveTab}
}

func formatTabID(n uint32) string { return fmt.Sprintf("%%%d", n) }

func lastNLines(s string, n int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// SaveState writes state to path using temp-file-then-rename, matching
// internal/config's atomic write discipline.
func SaveState(path string, state *SavedState) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("daemon: save state: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("daemon: save state: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state.json.tmp.*")
	if err != nil {
		return fmt.Errorf("daemon: save state: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("daemon: save state: write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("daemon: save state: sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("daemon: save state: close: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("daemon: save state: rename: %w", err)
	}
	return nil
}

// LoadSavedState reads and migrates a persisted state document. A missing
// file is not an error; it reports ok=false so the caller starts fresh.
func LoadSavedState(path string) (state *SavedState, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("daemon: load state: %w", err)
	}
	var s SavedState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false, fmt.Errorf("daemon: load state: parse: %w", err)
	}
	s.Version = currentSavedStateVersion // migrate forward; fields SavedState does not declare are dropped by the decode
	return &s, true, nil
}
