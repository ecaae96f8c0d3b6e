// Package client implements the thin TUI attached over internal/protocol:
// the mode/overlay input state machine, the leader-key trie, copy-mode
// grid selection, the client-side layout mirror, ANSI rendering, and the
// socket/stdin/resize event loop (cmd/pane is its entrypoint).
package client

// BaseMode is the client's two-state root: Interact forwards unmatched
// keys to the active pane's PTY, Normal does not.
type BaseMode int

const (
	Normal BaseMode = iota
	Interact
)

func (m BaseMode) String() string {
	if m == Interact {
		return "interact"
	}
	return "normal"
}

// OverlayKind names the modal overlays that can sit on top of a BaseMode.
// At most one is active at a time; Mode.Overlay is the stack top.
type OverlayKind int

const (
	OverlayNone OverlayKind = iota
	OverlayScroll
	OverlayCopy
	OverlayCommandPalette
	OverlayTabPicker
	OverlayConfirm
	OverlayLeader
)

func (k OverlayKind) String() string {
	switch k {
	case OverlayScroll:
		return "scroll"
	case OverlayCopy:
		return "copy"
	case OverlayCommandPalette:
		return "command-palette"
	case OverlayTabPicker:
		return "tab-picker"
	case OverlayConfirm:
		return "confirm"
	case OverlayLeader:
		return "leader"
	default:
		return "none"
	}
}

// Mode is the client's full input-dispatch state: a base mode plus a stack
// of overlays. Only the topmost overlay ever sees input; when the stack is
// empty, input falls through to the base mode handler.
type Mode struct {
	Base    BaseMode
	overlay []OverlayKind
}

// NewMode starts in Normal with no overlay, matching a freshly attached
// client before the user has pressed anything.
func NewMode() *Mode {
	return &Mode{Base: Normal}
}

// Overlay reports the active (topmost) overlay, or OverlayNone if the
// stack is empty.
func (m *Mode) Overlay() OverlayKind {
	if len(m.overlay) == 0 {
		return OverlayNone
	}
	return m.overlay[len(m.overlay)-1]
}

// PushOverlay enters a new overlay on top of whatever is currently active.
func (m *Mode) PushOverlay(k OverlayKind) {
	m.overlay = append(m.overlay, k)
}

// PopOverlay leaves the topmost overlay, if any. Popping an empty stack is
// a no-op so callers don't need to guard every Esc/cancel path.
func (m *Mode) PopOverlay() {
	if len(m.overlay) == 0 {
		return
	}
	m.overlay = m.overlay[:len(m.overlay)-1]
}

// ClearOverlays drops every active overlay, returning to the base mode.
func (m *Mode) ClearOverlays() {
	m.overlay = nil
}

// SetBase transitions the base mode directly; used by Esc in Interact and
// by the normal keymap's enter-interact binding.
func (m *Mode) SetBase(b BaseMode) {
	m.Base = b
}

// InOverlay reports whether any overlay is currently active.
func (m *Mode) InOverlay() bool {
	return len(m.overlay) > 0
}
