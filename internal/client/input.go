package client

import "panemux/internal/protocol"

// Decoder turns raw bytes read from a raw-mode terminal into discrete
// KeyCode/modifier pairs, the reverse of internal/daemon/keytrans.go's
// translateKeyCode. It buffers a partial escape sequence across Feed
// calls so a CSI split across two reads (e.g. by a slow pty or a large
// paste) still decodes correctly.
type Decoder struct {
	pending []byte
}

// DecodedKey is one fully-decoded key event produced by Feed.
type DecodedKey struct {
	Code      protocol.KeyCode
	Modifiers uint8
}

// csiTimeout-style incompleteness: Feed never blocks. An escape sequence
// that never completes within maxPendingBytes is flushed as a literal Esc
// plus whatever bytes followed, so a bare Esc keypress is never silently
// swallowed waiting for a CSI that isn't coming.
const maxPendingBytes = 16

// Feed consumes data and returns every key it could decode. Any
// incomplete trailing escape sequence is retained for the next call.
func (d *Decoder) Feed(data []byte) []DecodedKey {
	buf := append(d.pending, data...)
	d.pending = nil

	var out []DecodedKey
	i := 0
	for i < len(buf) {
		if buf[i] != 0x1b {
			k, n := decodeByte(buf[i:])
			out = append(out, k)
			i += n
			continue
		}
		// A lone Esc with nothing after it is a bare Esc keypress. An
		// incomplete longer sequence keeps buffering, unless we've already
		// accumulated more than a plausible sequence length.
		rest := buf[i:]
		k, n, complete := decodeEscape(rest)
		if !complete {
			if len(rest) == 1 || len(rest) > maxPendingBytes {
				out = append(out, DecodedKey{Code: protocol.KeyCode{Name: protocol.KeyEsc}})
				i++
				continue
			}
			d.pending = append(d.pending, rest...)
			break
		}
		out = append(out, k)
		i += n
	}
	return out
}

// decodeByte decodes a single non-escape byte: a control byte (Ctrl+letter
// convention), a literal printable byte, or one of the handful of
// single-byte named keys (Enter, Tab, Backspace).
func decodeByte(b []byte) (DecodedKey, int) {
	c := b[0]
	switch c {
	case '\r', '\n':
		return DecodedKey{Code: protocol.KeyCode{Name: protocol.KeyEnter}}, 1
	case '\t':
		return DecodedKey{Code: protocol.KeyCode{Name: protocol.KeyTab}}, 1
	case 0x7f:
		return DecodedKey{Code: protocol.KeyCode{Name: protocol.KeyBackspace}}, 1
	case 0x00:
		return DecodedKey{Code: protocol.KeyCode{Name: protocol.KeyNull}}, 1
	}
	if c >= 1 && c <= 26 && c != '\t' && c != '\r' && c != '\n' {
		return DecodedKey{Code: protocol.KeyCode{Char: rune('a' + c - 1)}, Modifiers: protocol.ModCtrl}, 1
	}
	// UTF-8 continuation bytes never start a rune; anything else decodes
	// as a single rune. Multi-byte runes are decoded whole so wide
	// characters (and combining marks, mirrored via uniseg on render)
	// round-trip correctly.
	r, size := decodeRune(b)
	return DecodedKey{Code: protocol.KeyCode{Char: r}}, size
}

func decodeRune(b []byte) (rune, int) {
	if len(b) == 0 {
		return 0, 0
	}
	first := b[0]
	var size int
	switch {
	case first < 0x80:
		return rune(first), 1
	case first&0xe0 == 0xc0:
		size = 2
	case first&0xf0 == 0xe0:
		size = 3
	case first&0xf8 == 0xf0:
		size = 4
	default:
		return rune(first), 1
	}
	if len(b) < size {
		return rune(first), 1
	}
	r := rune(first & (0xff >> (size + 1)))
	for i := 1; i < size; i++ {
		r = r<<6 | rune(b[i]&0x3f)
	}
	return r, size
}

// csiFinals maps a CSI final byte (no intermediate parameters) to the
// named key it denotes.
var csiFinals = map[byte]protocol.KeyName{
	'A': protocol.KeyUp,
	'B': protocol.KeyDown,
	'C': protocol.KeyRight,
	'D': protocol.KeyLeft,
	'H': protocol.KeyHome,
	'F': protocol.KeyEnd,
	'Z': protocol.KeyBackTab,
}

// csiTildeCodes maps a CSI "<n>~" parameter to the named key it denotes.
var csiTildeCodes = map[string]protocol.KeyName{
	"2":  protocol.KeyInsert,
	"3":  protocol.KeyDelete,
	"5":  protocol.KeyPageUp,
	"6":  protocol.KeyPageDown,
}

// ssFinals maps an SS3 (\x1bO<final>) final byte to F1-F4.
var ssFinals = map[byte]int{'P': 1, 'Q': 2, 'R': 3, 'S': 4}

// decodeEscape attempts to decode one escape sequence starting at b[0] ==
// 0x1b. complete is false when more bytes are needed.
func decodeEscape(b []byte) (key DecodedKey, consumed int, complete bool) {
	if len(b) == 1 {
		return DecodedKey{}, 0, false
	}
	if b[1] != '[' && b[1] != 'O' {
		// Alt+<key>: ESC followed by a plain byte means the Alt modifier
		// prefixing that key, matching translateKeyCode's own convention.
		inner, n := decodeByte(b[1:])
		inner.Modifiers |= protocol.ModAlt
		return inner, 1 + n, true
	}
	if b[1] == 'O' {
		if len(b) < 3 {
			return DecodedKey{}, 0, false
		}
		if fn, ok := ssFinals[b[2]]; ok {
			return DecodedKey{Code: protocol.KeyCode{FN: fn}}, 3, true
		}
		return DecodedKey{Code: protocol.KeyCode{Name: protocol.KeyEsc}}, 1, true
	}

	// CSI: ESC '[' <params> <final>
	i := 2
	for i < len(b) && (b[i] == ';' || (b[i] >= '0' && b[i] <= '9')) {
		i++
	}
	if i >= len(b) {
		return DecodedKey{}, 0, false
	}
	params := string(b[2:i])
	final := b[i]
	consumed = i + 1

	if final == '~' {
		if name, ok := csiTildeCodes[params]; ok {
			return DecodedKey{Code: protocol.KeyCode{Name: name}}, consumed, true
		}
		if fn, ok := functionTildeCodes[params]; ok {
			return DecodedKey{Code: protocol.KeyCode{FN: fn}}, consumed, true
		}
		return DecodedKey{Code: protocol.KeyCode{Name: protocol.KeyEsc}}, consumed, true
	}
	if name, ok := csiFinals[final]; ok {
		return DecodedKey{Code: protocol.KeyCode{Name: name}}, consumed, true
	}
	return DecodedKey{Code: protocol.KeyCode{Name: protocol.KeyEsc}}, consumed, true
}

// functionTildeCodes maps F5-F12's CSI "<n>~" parameter to their number,
// mirroring keytrans.go's functionKeyBytes in reverse.
var functionTildeCodes = map[string]int{
	"15": 5, "17": 6, "18": 7, "19": 8, "20": 9, "21": 10, "23": 11, "24": 12,
}
