// Package mux holds the daemon's live state: tabs (one PTY each), windows
// (an ordered stack of tabs sitting at one layout leaf), workspaces (a
// layout tree plus its windows), and the top-level ServerState that owns
// every workspace. Package layout supplies the split-tree geometry; this
// package supplies what lives at the leaves.
package mux

import "github.com/google/uuid"

// TabID identifies a tab (a pane in tmux vocabulary). It is process-unique
// and stable for the tab's lifetime, including across restart-pane.
type TabID uuid.UUID

// NewTabID allocates a fresh, random tab identifier.
func NewTabID() TabID {
	return TabID(uuid.New())
}

func (t TabID) String() string {
	return uuid.UUID(t).String()
}
