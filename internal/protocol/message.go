// Package protocol defines the wire messages exchanged between a pane
// client and the daemon, and the framing used to send them over a local
// stream socket.
package protocol


// ClientKind discriminates the Client→Server message variants.
type ClientKind int

const (
	ClientAttach ClientKind = iota
	ClientDetach
	ClientResize
	ClientKey
	ClientMouseDown
	ClientMouseDrag
	ClientMouseMove
	ClientMouseUp
	ClientMouseScroll
	ClientCommand
	ClientCommandSync
	ClientKickClient
	ClientSetActiveWorkspace
)

// Modifier bits for ClientMessage.Modifiers.
const (
	ModCtrl  uint8 = 1
	ModAlt   uint8 = 2
	ModShift uint8 = 4
)

// KeyName enumerates the named (non-character) keys a client can send.
type KeyName int

const (
	KeyNone KeyName = iota
	KeyEnter
	KeyEsc
	KeyTab
	KeyBackTab
	KeyBackspace
	KeyDelete
	KeyInsert
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyNull
)

// KeyCode is a tagged union: either a literal rune (Char != 0), a function
// key (FN > 0), or a Name from the named-key set. At most one of these is
// meaningful for a given KeyCode value.
type KeyCode struct {
	Char rune    `json:"char,omitempty"`
	FN   int     `json:"fn,omitempty"`
	Name KeyName `json:"name,omitempty"`
}

// ClientMessage is the parsed form of every Client→Server wire message.
// Only the fields relevant to Kind are populated.
type ClientMessage struct {
	Kind ClientKind `json:"kind"`

	Width, Height uint16 `json:"width,omitempty"`

	Code      KeyCode `json:"code,omitempty"`
	Modifiers uint8   `json:"modifiers,omitempty"`

	X, Y uint16 `json:"x,omitempty"`
	Up   bool   `json:"up,omitempty"`

	Command string `json:"command,omitempty"`

	ClientID uint64 `json:"client_id,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// ServerKind discriminates the Server→Client message variants.
type ServerKind int

const (
	ServerAttached ServerKind = iota
	ServerPaneOutput
	ServerPaneExited
	ServerLayoutChanged
	ServerStatsUpdate
	ServerSessionEnded
	ServerFullScreenDump
	ServerClientListChanged
	ServerError
	ServerCommandOutput
	ServerLogEntry
)

// ServerMessage is the parsed form of every Server→Client wire message.
type ServerMessage struct {
	Kind ServerKind `json:"kind"`

	ClientID uint64 `json:"client_id,omitempty"`

	PaneID string `json:"pane_id,omitempty"`
	Data   []byte `json:"data,omitempty"`

	RenderState *RenderState `json:"render_state,omitempty"`

	CPUPct  float64 `json:"cpu_pct,omitempty"`
	MemPct  float64 `json:"mem_pct,omitempty"`
	Load1   float64 `json:"load_1,omitempty"`
	DiskPct float64 `json:"disk_pct,omitempty"`

	Clients []ClientSummary `json:"clients,omitempty"`

	Message string `json:"message,omitempty"`
	Level   string `json:"level,omitempty"` // ServerLogEntry: slog level name

	Output   string  `json:"output,omitempty"`
	WindowID *uint32 `json:"window_id,omitempty"`
	PaneNum  *uint32 `json:"pane_num,omitempty"`
	Success  bool    `json:"success,omitempty"`
}

// ClientSummary is one entry of a ClientListChanged broadcast.
type ClientSummary struct {
	ClientID        uint64 `json:"client_id"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	ActiveWorkspace string `json:"active_workspace"`
}

// RenderState is the serialized form of the full mux tree, sent on every
// geometry- or focus-affecting mutation. Persisted state uses the daemon's
// own SavedState types, not RenderState.
type RenderState struct {
	Workspaces      []WorkspaceSnapshot `json:"workspaces"`
	ActiveWorkspace string              `json:"active_workspace"`
}

// WorkspaceSnapshot mirrors one mux.Workspace.
type WorkspaceSnapshot struct {
	Name         string              `json:"name"`
	Layout       *LayoutNode         `json:"layout"`
	Windows      []WindowSnapshot    `json:"windows"`
	ActiveWindow string              `json:"active_window"`
	SyncPanes    bool                `json:"sync_panes"`
	LeafMinSizes map[string]LeafSize `json:"leaf_min_sizes,omitempty"`
}

// LayoutNode is the JSON-serializable mirror of layout.Node. Its shape
// matches the in-memory tree field for field: a leaf carries WindowID, a
// split carries Direction/Ratio/First/Second.
type LayoutNode struct {
	Leaf      string      `json:"leaf,omitempty"`
	Direction string      `json:"direction,omitempty"`
	Ratio     float64     `json:"ratio,omitempty"`
	First     *LayoutNode `json:"first,omitempty"`
	Second    *LayoutNode `json:"second,omitempty"`
}

// LeafSize is the minimum usable size of a folded or otherwise constrained
// leaf, keyed by its window id string in WorkspaceSnapshot.LeafMinSizes.
type LeafSize struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// WindowSnapshot mirrors one mux.Window.
type WindowSnapshot struct {
	ID        string        `json:"id"`
	Tabs      []TabSnapshot `json:"tabs"`
	ActiveTab int           `json:"active_tab"`
}

// TabSnapshot mirrors one mux.Tab.
type TabSnapshot struct {
	ID                string `json:"id"`
	Kind              string `json:"kind"`
	Title             string `json:"title"`
	Exited            bool   `json:"exited"`
	ForegroundProcess string `json:"foreground_process,omitempty"`
	Cwd               string `json:"cwd,omitempty"`
}
