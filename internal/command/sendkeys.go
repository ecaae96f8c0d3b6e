package command

import "strings"

// namedKeys maps case-insensitive key literal names to their byte
// sequences. Checked before the C-x control-key fallback, which is in turn
// checked before treating the argument as literal text.
var namedKeys = map[string][]byte{
	"enter": {'\r'}, "cr": {'\r'},
	"escape": {0x1b}, "esc": {0x1b},
	"tab":    {'\t'},
	"space":  {' '},
	"bspace": {0x7f}, "backspace": {0x7f},
	"up": {0x1b, '[', 'A'}, "down": {0x1b, '[', 'B'},
	"right": {0x1b, '[', 'C'}, "left": {0x1b, '[', 'D'},
	"home": {0x1b, '[', 'H'}, "end": {0x1b, '[', 'F'},
	"pageup": {0x1b, '[', '5', '~'}, "pagedown": {0x1b, '[', '6', '~'},
	"delete": {0x1b, '[', '3', '~'},
}

// TranslateKey parses one SendKeys argument into its byte sequence per the
// key-literal grammar: named keys (case-insensitive), "C-m" as an alias for
// Enter, "C-x" control-byte notation, or a literal passthrough.
func TranslateKey(arg string) []byte {
	if arg == "C-m" {
		return []byte{'\r'}
	}
	if b, ok := namedKeys[strings.ToLower(arg)]; ok {
		return append([]byte{}, b...)
	}
	if b, ok := parseControlKey(arg); ok {
		return []byte{b}
	}
	return []byte(arg)
}

// TranslateKeys encodes every SendKeys argument as one atomic write per
// argument, in order.
func TranslateKeys(args []string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = TranslateKey(a)
	}
	return out
}

// parseControlKey parses "C-x" notation into a control byte. x must be a
// single ASCII letter; C-a => 0x01 .. C-z => 0x1a.
func parseControlKey(arg string) (byte, bool) {
	if len(arg) != 3 || arg[0] != 'C' || arg[1] != '-' {
		return 0, false
	}
	ch := arg[2]
	if ch >= 'a' && ch <= 'z' {
		return ch - 'a' + 1, true
	}
	if ch >= 'A' && ch <= 'Z' {
		return ch - 'A' + 1, true
	}
	return 0, false
}
