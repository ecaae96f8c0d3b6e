package client

import (
	"testing"

	"panemux/internal/protocol"
)

func TestDecodePlainChar(t *testing.T) {
	var d Decoder
	keys := d.Feed([]byte("a"))
	if len(keys) != 1 || keys[0].Code.Char != 'a' || keys[0].Modifiers != 0 {
		t.Fatalf("keys = %+v", keys)
	}
}

func TestDecodeCtrlLetter(t *testing.T) {
	var d Decoder
	keys := d.Feed([]byte{0x02}) // Ctrl+B
	if len(keys) != 1 {
		t.Fatalf("len(keys) = %d", len(keys))
	}
	if keys[0].Code.Char != 'b' || keys[0].Modifiers != protocol.ModCtrl {
		t.Fatalf("keys[0] = %+v", keys[0])
	}
}

func TestDecodeEnterAndTab(t *testing.T) {
	var d Decoder
	keys := d.Feed([]byte{'\r', '\t'})
	if len(keys) != 2 {
		t.Fatalf("len(keys) = %d", len(keys))
	}
	if keys[0].Code.Name != protocol.KeyEnter || keys[1].Code.Name != protocol.KeyTab {
		t.Fatalf("keys = %+v", keys)
	}
}

func TestDecodeArrowKeys(t *testing.T) {
	var d Decoder
	keys := d.Feed([]byte("\x1b[A\x1b[B\x1b[C\x1b[D"))
	want := []protocol.KeyName{protocol.KeyUp, protocol.KeyDown, protocol.KeyRight, protocol.KeyLeft}
	if len(keys) != len(want) {
		t.Fatalf("len(keys) = %d, want %d: %+v", len(keys), len(want), keys)
	}
	for i, w := range want {
		if keys[i].Code.Name != w {
			t.Fatalf("keys[%d].Code.Name = %v, want %v", i, keys[i].Code.Name, w)
		}
	}
}

func TestDecodeDeleteTilde(t *testing.T) {
	var d Decoder
	keys := d.Feed([]byte("\x1b[3~"))
	if len(keys) != 1 || keys[0].Code.Name != protocol.KeyDelete {
		t.Fatalf("keys = %+v", keys)
	}
}

func TestDecodeFunctionKeySS3(t *testing.T) {
	var d Decoder
	keys := d.Feed([]byte("\x1bOP"))
	if len(keys) != 1 || keys[0].Code.FN != 1 {
		t.Fatalf("keys = %+v", keys)
	}
}

func TestDecodeFunctionKeyTilde(t *testing.T) {
	var d Decoder
	keys := d.Feed([]byte("\x1b[15~"))
	if len(keys) != 1 || keys[0].Code.FN != 5 {
		t.Fatalf("keys = %+v", keys)
	}
}

func TestDecodeAltPrefixedKey(t *testing.T) {
	var d Decoder
	keys := d.Feed([]byte("\x1bx"))
	if len(keys) != 1 || keys[0].Code.Char != 'x' || keys[0].Modifiers != protocol.ModAlt {
		t.Fatalf("keys = %+v", keys)
	}
}

func TestDecodeSplitAcrossFeeds(t *testing.T) {
	var d Decoder
	keys := d.Feed([]byte{0x1b, '['})
	if len(keys) != 0 {
		t.Fatalf("keys = %+v, want none yet", keys)
	}
	keys = d.Feed([]byte{'A'})
	if len(keys) != 1 || keys[0].Code.Name != protocol.KeyUp {
		t.Fatalf("keys after completion = %+v", keys)
	}
}

func TestDecodeMultiByteRune(t *testing.T) {
	var d Decoder
	keys := d.Feed([]byte("é")) // U+00E9, 2-byte UTF-8
	if len(keys) != 1 || keys[0].Code.Char != 'é' {
		t.Fatalf("keys = %+v", keys)
	}
}
