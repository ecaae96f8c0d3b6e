package client

import "time"

// LeaderNode is one node of the leader-key trie: a Leaf fires an action, a
// Group advances the path and waits for the next key, and PassThrough
// means "forward the leader key itself to the pane" (so pressing the
// leader key twice types it literally).
type LeaderNode struct {
	Leaf  *LeaderLeaf
	Group map[string]*LeaderNode
	Label string

	PassThrough bool
}

// LeaderLeaf names the command a trie leaf dispatches and the label shown
// in the which-key popup.
type LeaderLeaf struct {
	Action string
	Label  string
}

// IsLeaf reports whether this node fires an action rather than advancing
// into a child group.
func (n *LeaderNode) IsLeaf() bool {
	return n != nil && n.Leaf != nil
}

// IsGroup reports whether this node has children to descend into.
func (n *LeaderNode) IsGroup() bool {
	return n != nil && n.Group != nil
}

// LeaderState tracks progress through the trie for one leader-overlay
// session: the keys typed so far, the node reached, when the overlay was
// entered, and whether the which-key popup has become visible.
type LeaderState struct {
	root        *LeaderNode
	Path        []string
	Node        *LeaderNode
	EnteredAt   time.Time
	popupDelay  time.Duration
	PopupVisible bool
}

// NewLeaderState starts a fresh leader session at the root of tree, armed
// to show its which-key popup after popupDelay with no match.
func NewLeaderState(tree *LeaderNode, popupDelay time.Duration, now time.Time) *LeaderState {
	return &LeaderState{
		root:       tree,
		Node:       tree,
		EnteredAt:  now,
		popupDelay: popupDelay,
	}
}

// LeaderResult is what advancing the trie by one key produces.
type LeaderResult int

const (
	// LeaderContinue means the path advanced into a Group; the overlay
	// stays open waiting for the next key.
	LeaderContinue LeaderResult = iota
	// LeaderFire means a Leaf was reached; Action names the command to run
	// and the overlay should close.
	LeaderFire
	// LeaderPassThrough means the matched node is a PassThrough leaf: send
	// the ORIGINAL leader key to the pane and close the overlay.
	LeaderPassThrough
	// LeaderCancel means the key didn't match anything under the current
	// node; the overlay closes silently instead of sending the key through.
	LeaderCancel
)

// Advance feeds one normalized key chord (as produced by NormalizeChord)
// into the trie from the current node.
func (s *LeaderState) Advance(chord string) (LeaderResult, string) {
	if s.Node == nil || s.Node.Group == nil {
		return LeaderCancel, ""
	}
	next, ok := s.Node.Group[chord]
	if !ok {
		return LeaderCancel, ""
	}
	s.Path = append(s.Path, chord)
	switch {
	case next.PassThrough:
		return LeaderPassThrough, ""
	case next.IsLeaf():
		return LeaderFire, next.Leaf.Action
	default:
		s.Node = next
		s.PopupVisible = false
		return LeaderContinue, ""
	}
}

// Tick updates PopupVisible based on elapsed time since EnteredAt (or since
// the last group transition, which callers re-stamp via Restart). Callers
// poll this on a short timer while the Leader overlay is active.
func (s *LeaderState) Tick(now time.Time) {
	if !s.PopupVisible && now.Sub(s.EnteredAt) >= s.popupDelay {
		s.PopupVisible = true
	}
}

// Restart resets the popup timer, called whenever the node changes so the
// delay is measured from the most recent keystroke rather than from entry.
func (s *LeaderState) Restart(now time.Time) {
	s.EnteredAt = now
	s.PopupVisible = false
}

// Entries returns the current node's children for which-key rendering,
// each paired with the literal key chord that reaches it.
type LeaderEntry struct {
	Chord   string
	Label   string
	IsGroup bool
}

func (s *LeaderState) Entries() []LeaderEntry {
	if s.Node == nil || s.Node.Group == nil {
		return nil
	}
	out := make([]LeaderEntry, 0, len(s.Node.Group))
	for chord, node := range s.Node.Group {
		switch {
		case node.PassThrough:
			out = append(out, LeaderEntry{Chord: chord, Label: "passthrough"})
		case node.IsLeaf():
			out = append(out, LeaderEntry{Chord: chord, Label: node.Leaf.Label})
		default:
			out = append(out, LeaderEntry{Chord: chord, Label: node.Label, IsGroup: true})
		}
	}
	return out
}
