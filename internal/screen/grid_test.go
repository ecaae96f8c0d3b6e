package screen

import "testing"

func TestWritePlainText(t *testing.T) {
	g := New(10, 3, 100, nil)
	g.Write([]byte("hi"))
	lines := g.Lines(3)
	if lines[0][:2] != "hi" {
		t.Fatalf("expected row to start with hi, got %q", lines[0])
	}
}

func TestNewlineScrollsIntoScrollback(t *testing.T) {
	g := New(5, 2, 10, nil)
	g.Write([]byte("aaaaa\nbbbbb\nccccc"))
	if len(g.scrollback) == 0 {
		t.Fatal("expected scrolled-off rows to enter scrollback")
	}
	lines := g.Lines(10)
	joined := ""
	for _, l := range lines {
		joined += l + "|"
	}
	if joined != "aaaaa|bbbbb|ccccc|" {
		t.Fatalf("unexpected lines: %q", joined)
	}
}

func TestResizePreservesRecentRows(t *testing.T) {
	g := New(5, 2, 10, nil)
	g.Write([]byte("one\ntwo"))
	g.Resize(5, 3)
	cols, rows := g.Size()
	if cols != 5 || rows != 3 {
		t.Fatalf("unexpected size after resize: %dx%d", cols, rows)
	}
	lines := g.Lines(3)
	if lines[0][:3] != "one" || lines[1][:3] != "two" {
		t.Fatalf("expected rows one/two preserved after resize, got %q", lines)
	}
}

func TestSGRColorAndBoldTracked(t *testing.T) {
	g := New(10, 1, 10, nil)
	g.Write([]byte("\x1b[1;31mX\x1b[0m"))
	cell := g.cells[0][0]
	if cell.Rune != 'X' {
		t.Fatalf("expected X, got %q", cell.Rune)
	}
	if cell.Attr&AttrBold == 0 {
		t.Fatal("expected bold attribute")
	}
	if cell.Fg.Kind != ColorIndexed || cell.Fg.Idx != 1 {
		t.Fatalf("expected red fg, got %+v", cell.Fg)
	}
}

func TestCursorPositioningCSI(t *testing.T) {
	g := New(10, 5, 10, nil)
	g.Write([]byte("\x1b[3;4Hx"))
	col, row := g.Cursor()
	// x was written at (col=3,row=2) then cursor advanced to col=4.
	if row != 2 {
		t.Fatalf("expected row 2, got %d", row)
	}
	if col != 4 {
		t.Fatalf("expected col 4 after advancing past written rune, got %d", col)
	}
	if g.cells[2][3].Rune != 'x' {
		t.Fatalf("expected x at (2,3), got %q", g.cells[2][3].Rune)
	}
}

func TestUTF8ChunkBoundarySafe(t *testing.T) {
	g := New(10, 1, 10, nil)
	full := []byte("é") // 2-byte UTF-8
	g.Write(full[:1])
	g.Write(full[1:])
	if g.cells[0][0].Rune != 'é' {
		t.Fatalf("expected é reassembled across writes, got %q", g.cells[0][0].Rune)
	}
}

func TestOSCTitleCallback(t *testing.T) {
	var got string
	g := New(10, 1, 10, func(title string) { got = title })
	g.Write([]byte("\x1b]0;hello\x07"))
	if got != "hello" {
		t.Fatalf("expected title callback with 'hello', got %q", got)
	}
}
