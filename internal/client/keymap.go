package client

import (
	"strconv"
	"strings"

	"panemux/internal/protocol"
)

// Action names a client-side or command-string action reachable via a
// keymap or leader-trie leaf. Actions that map 1:1 onto a command line are
// their own command string (e.g. "detach-client"); a handful are
// client-local and handled before ever reaching the command layer.
type Action string

const (
	ActionQuit           Action = "quit"
	ActionEnterInteract  Action = "enter-interact"
	ActionEnterNormal    Action = "enter-normal"
	ActionScrollMode     Action = "scroll-mode"
	ActionCopyMode       Action = "copy-mode"
	ActionCommandPalette Action = "command-palette"
	ActionTabPicker      Action = "tab-picker"
)

// Keymap maps a normalized key chord to the action it triggers.
type Keymap map[string]Action

// DefaultGlobalKeymap returns the context-free bindings available in both
// Normal and Interact (quit, scroll-mode, and the like). These are
// deliberately few: most bindings are leader-triggered commands, not raw
// keymap entries.
func DefaultGlobalKeymap() Keymap {
	return Keymap{
		"ctrl+q": ActionQuit,
	}
}

// DefaultNormalKeymap returns the bindings available only in Normal mode,
// layered under the global keymap.
func DefaultNormalKeymap() Keymap {
	return Keymap{
		"i": ActionEnterInteract,
		"s": ActionScrollMode,
		"[": ActionCopyMode,
		":": ActionCommandPalette,
		"c": ActionTabPicker,
	}
}

// NormalizeChord renders a KeyCode/modifier pair into the canonical
// lower-case "mod+mod+key" form used as a Keymap/LeaderNode.Group key, so
// the same chord always produces the same lookup string regardless of
// modifier bit order.
func NormalizeChord(code protocol.KeyCode, modifiers uint8) string {
	var mods []string
	if modifiers&protocol.ModCtrl != 0 {
		mods = append(mods, "ctrl")
	}
	if modifiers&protocol.ModAlt != 0 {
		mods = append(mods, "alt")
	}
	if modifiers&protocol.ModShift != 0 {
		mods = append(mods, "shift")
	}

	var key string
	switch {
	case code.Name != protocol.KeyNone:
		key = namedKeyChordText[code.Name]
	case code.FN > 0:
		key = "f" + strconv.Itoa(code.FN)
	case code.Char != 0:
		key = strings.ToLower(string(code.Char))
	}
	if key == "" {
		return ""
	}
	mods = append(mods, key)
	return strings.Join(mods, "+")
}

var namedKeyChordText = map[protocol.KeyName]string{
	protocol.KeyEnter:     "enter",
	protocol.KeyEsc:       "esc",
	protocol.KeyTab:       "tab",
	protocol.KeyBackTab:   "backtab",
	protocol.KeyBackspace: "backspace",
	protocol.KeyDelete:    "delete",
	protocol.KeyInsert:    "insert",
	protocol.KeyHome:      "home",
	protocol.KeyEnd:       "end",
	protocol.KeyPageUp:    "pageup",
	protocol.KeyPageDown:  "pagedown",
	protocol.KeyUp:        "up",
	protocol.KeyDown:      "down",
	protocol.KeyLeft:      "left",
	protocol.KeyRight:     "right",
}

// ParseChordSpec parses a human-written chord spec from config (e.g.
// "Ctrl+b", "%", "F5", "Esc") into the KeyCode/modifiers pair it denotes,
// in the same normalized form NormalizeChord would produce for a matching
// key event. Case-insensitive on modifier and named-key tokens.
func ParseChordSpec(spec string) (protocol.KeyCode, uint8) {
	parts := strings.Split(spec, "+")
	var mods uint8
	tail := parts[len(parts)-1]
	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "ctrl", "control", "c":
			mods |= protocol.ModCtrl
		case "alt", "meta", "a":
			mods |= protocol.ModAlt
		case "shift", "s":
			mods |= protocol.ModShift
		}
	}
	tail = strings.TrimSpace(tail)
	if name, ok := reverseNamedKey[strings.ToLower(tail)]; ok {
		return protocol.KeyCode{Name: name}, mods
	}
	runes := []rune(tail)
	if len(runes) == 1 {
		return protocol.KeyCode{Char: runes[0]}, mods
	}
	return protocol.KeyCode{}, mods
}

var reverseNamedKey = map[string]protocol.KeyName{
	"enter":    protocol.KeyEnter,
	"esc":      protocol.KeyEsc,
	"escape":   protocol.KeyEsc,
	"tab":      protocol.KeyTab,
	"backtab":  protocol.KeyBackTab,
	"backspace": protocol.KeyBackspace,
	"delete":   protocol.KeyDelete,
	"insert":   protocol.KeyInsert,
	"home":     protocol.KeyHome,
	"end":      protocol.KeyEnd,
	"pageup":   protocol.KeyPageUp,
	"pagedown": protocol.KeyPageDown,
	"up":       protocol.KeyUp,
	"down":     protocol.KeyDown,
	"left":     protocol.KeyLeft,
	"right":    protocol.KeyRight,
}

// LeaderChord returns the normalized chord string for the configured
// leader key, used both to recognize when to open the Leader overlay and
// as the PassThrough entry's own trigger ("<leader><leader>" types it).
func LeaderChord(prefix string) string {
	code, mods := ParseChordSpec(prefix)
	return NormalizeChord(code, mods)
}

// BuildLeaderTree turns the flat action->chord config map into a
// single-level LeaderNode trie: pressing the leader key, then one of the
// configured chords, fires the matching command. The leader key itself is
// bound as a PassThrough leaf so double-tapping it sends the literal key.
func BuildLeaderTree(keys map[string]string, prefix string) *LeaderNode {
	root := &LeaderNode{Group: map[string]*LeaderNode{}}
	for action, chordSpec := range keys {
		code, mods := ParseChordSpec(chordSpec)
		chord := NormalizeChord(code, mods)
		if chord == "" {
			continue
		}
		root.Group[chord] = &LeaderNode{Leaf: &LeaderLeaf{Action: action, Label: action}}
	}
	if leaderChord := LeaderChord(prefix); leaderChord != "" {
		root.Group[leaderChord] = &LeaderNode{PassThrough: true}
	}
	return root
}
