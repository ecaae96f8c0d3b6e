// Package command implements the tmux-style command algebra (tokenizer,
// parser, executor, format expansion, send-keys grammar) that sits between
// the wire protocol and the mux state machine. A Command is a small tagged
// union: Kind selects which fields are meaningful, mirroring the shape
// tmux's own command table takes.
package command

import (
	"panemux/internal/layout"
	"panemux/internal/mux"
)

// Kind enumerates every command the parser can produce.
type Kind int

const (
	KillServer Kind = iota
	ListSessions
	RenameSession
	HasSession
	NewSession

	NewWindow
	KillWindow
	SelectWindow
	RenameWindow
	ListWindows

	SplitWindow
	KillPane
	SelectPane
	ListPanes
	SendKeys

	SelectLayout
	ResizePane

	CloseWorkspace
	SelectWorkspaceByIndex

	NextWindow
	PreviousWindow
	RestartPane
	MoveTab
	EqualizeLayout
	ToggleSync
	PasteBuffer
	DetachClient
	DisplayMessage
)

// ResizeDirection is the direction argument to ResizePane.
type ResizeDirection int

const (
	ResizeRight ResizeDirection = iota
	ResizeLeft
	ResizeUp
	ResizeDown
)

// Command is the parsed form of one command line. Only the fields relevant
// to Kind are populated; see each Kind's parse function for which ones.
type Command struct {
	Kind Kind

	Name       string // RenameSession, RenameWindow, NewSession (session name), HasSession
	Detached   bool   // NewSession
	WindowName string // NewSession's optional initial window name

	WindowTarget mux.WindowTarget
	PaneTarget   mux.PaneTarget

	Horizontal bool // SplitWindow
	Size       *int // SplitWindow optional size hint (unused by layout, kept for CLI fidelity)

	Keys []string // SendKeys

	LayoutName string // SelectLayout raw name, resolved by the executor

	ResizeDir    ResizeDirection
	ResizeAmount int

	WorkspaceIndex int // SelectWorkspaceByIndex

	Direction layout.Direction // MoveTab
	Side      layout.Side      // MoveTab

	PasteText string // PasteBuffer

	Format    string // ListWindows/ListPanes/ListSessions/DisplayMessage
	ToStdout  bool   // DisplayMessage
	PaneTitle *string
}
