package mux

import "errors"

var (
	// ErrLastPane is returned by policy checks that refuse to close the
	// only remaining tab in the only remaining window of the only
	// remaining workspace.
	ErrLastPane = errors.New("cannot kill the last pane")

	// ErrLastWindow is returned when a kill-window request targets the
	// workspace's only window.
	ErrLastWindow = errors.New("cannot kill the last window")

	// ErrWorkspaceNotFound is returned by operations given an unknown
	// workspace name.
	ErrWorkspaceNotFound = errors.New("mux: workspace not found")

	// ErrTabNotFound is returned when a %N target or index does not
	// resolve to a live tab.
	ErrTabNotFound = errors.New("mux: tab not found")

	// ErrNoNeighbor is returned by directional moves/focus changes with no
	// neighbor in the requested direction.
	ErrNoNeighbor = errors.New("mux: no neighbor in that direction")

	// ErrNotExited is returned by restart-pane on a tab that is still
	// running.
	ErrNotExited = errors.New("mux: tab is not exited")
)
