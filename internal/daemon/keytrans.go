package daemon

import "panemux/internal/protocol"

// namedKeyBytes maps a protocol.KeyName to the byte sequence written to the
// PTY, mirroring internal/command's SendKeys literal grammar.
var namedKeyBytes = map[protocol.KeyName][]byte{
	protocol.KeyEnter:     {'\r'},
	protocol.KeyEsc:       {0x1b},
	protocol.KeyTab:       {'\t'},
	protocol.KeyBackTab:   {0x1b, '[', 'Z'},
	protocol.KeyBackspace: {0x7f},
	protocol.KeyDelete:    {0x1b, '[', '3', '~'},
	protocol.KeyInsert:    {0x1b, '[', '2', '~'},
	protocol.KeyHome:      {0x1b, '[', 'H'},
	protocol.KeyEnd:       {0x1b, '[', 'F'},
	protocol.KeyPageUp:    {0x1b, '[', '5', '~'},
	protocol.KeyPageDown:  {0x1b, '[', '6', '~'},
	protocol.KeyUp:        {0x1b, '[', 'A'},
	protocol.KeyDown:      {0x1b, '[', 'B'},
	protocol.KeyLeft:      {0x1b, '[', 'D'},
	protocol.KeyRight:     {0x1b, '[', 'C'},
	protocol.KeyNull:      {0x00},
}

// translateKeyCode converts a Key message into the bytes written to the
// active tab's PTY. Ctrl held with a printable letter produces the control
// byte (Ctrl+A -> 0x01) rather than the literal rune, matching terminal
// convention. Alt prefixes the sequence with ESC (meta-key convention).
func translateKeyCode(code protocol.KeyCode, modifiers uint8) []byte {
	var out []byte
	switch {
	case code.Name != protocol.KeyNone:
		out = append(out, namedKeyBytes[code.Name]...)
	case code.FN > 0:
		out = functionKeyBytes(code.FN)
	case code.Char != 0:
		if modifiers&protocol.ModCtrl != 0 {
			if b, ok := controlByte(code.Char); ok {
				out = append(out, b)
				break
			}
		}
		out = append(out, []byte(string(code.Char))...)
	}
	if modifiers&protocol.ModAlt != 0 && len(out) > 0 {
		out = append([]byte{0x1b}, out...)
	}
	return out
}

func controlByte(r rune) (byte, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return byte(r-'a') + 1, true
	case r >= 'A' && r <= 'Z':
		return byte(r-'A') + 1, true
	default:
		return 0, false
	}
}

// functionKeyBytes encodes F1-F12 as xterm CSI sequences.
func functionKeyBytes(n int) []byte {
	switch {
	case n >= 1 && n <= 4:
		return []byte{0x1b, 'O', byte('P' + n - 1)}
	case n >= 5 && n <= 12:
		codes := map[int]string{5: "15", 6: "17", 7: "18", 8: "19", 9: "20", 10: "21", 11: "23", 12: "24"}
		seq := codes[n]
		return append([]byte{0x1b, '['}, append([]byte(seq), '~')...)
	default:
		return nil
	}
}
