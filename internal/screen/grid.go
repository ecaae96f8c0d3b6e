// Package screen is the stand-in for the "external VT parser" collaborator:
// a hand-rolled ANSI/CSI/OSC decoder feeding a cell grid with cursor and
// attributes, plus a scrollback ring. No third-party VT crate is available
// in this module's dependency pack, so this is a direct, modest extension
// of the ring-buffer/escape-state-machine shape used elsewhere in the
// surrounding packages, adding SGR attribute/color tracking.
package screen

import "unicode/utf8"

// CellAttr is a bitmask of SGR text attributes.
type CellAttr uint8

const (
	AttrBold CellAttr = 1 << iota
	AttrUnderline
	AttrReverse
	AttrDim
	AttrItalic
)

// Color is either the terminal default, an indexed 256-color value, or a
// truecolor RGB triple.
type Color struct {
	Kind ColorKind
	Idx  uint8
	R, G, B uint8
}

type ColorKind uint8

const (
	ColorDefault ColorKind = iota
	ColorIndexed
	ColorRGB
)

// Cell is a single grid position.
type Cell struct {
	Rune rune
	Attr CellAttr
	Fg   Color
	Bg   Color
}

func blankCell() Cell { return Cell{Rune: ' '} }

type escapeMode int

const (
	escNone escapeMode = iota
	escEscape
	escCSI
	escOSC
)

const maxCSILen = 256
const maxOSCLen = 2048

// TitleFunc is invoked when an OSC 0/2 "set title" sequence is decoded.
type TitleFunc func(title string)

// Grid is a fixed cols x rows cell buffer with cursor, current SGR state,
// and a capped scrollback ring of evicted rows.
type Grid struct {
	cols, rows int
	cells      [][]Cell // rows x cols, row 0 is the top of the visible screen
	scrollback [][]Cell // oldest first, capped at scrollbackCap
	scrollCap  int

	row, col int
	curAttr  CellAttr
	curFg    Color
	curBg    Color

	mode      escapeMode
	csiBuf    []byte
	oscBuf    []byte
	remainder [utf8.UTFMax]byte
	remLen    int

	onTitle TitleFunc
}

// New builds a Grid sized cols x rows with the given scrollback capacity
// (in lines). onTitle may be nil.
func New(cols, rows, scrollbackCap int, onTitle TitleFunc) *Grid {
	g := &Grid{
		cols:      cols,
		rows:      rows,
		scrollCap: scrollbackCap,
		onTitle:   onTitle,
	}
	g.cells = make([][]Cell, rows)
	for i := range g.cells {
		g.cells[i] = newBlankRow(cols)
	}
	return g
}

func newBlankRow(cols int) []Cell {
	row := make([]Cell, cols)
	for i := range row {
		row[i] = blankCell()
	}
	return row
}

// Size returns the current dimensions.
func (g *Grid) Size() (cols, rows int) { return g.cols, g.rows }

// Cursor returns the current cursor position.
func (g *Grid) Cursor() (col, row int) { return g.col, g.row }

// Resize grows or shrinks the grid, preserving the most recent rows and
// clamping the cursor into bounds. Overlong lines are truncated; short
// lines are padded with blanks.
func (g *Grid) Resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	// Linearize: scrollback (oldest..newest) + visible rows.
	all := make([][]Cell, 0, len(g.scrollback)+len(g.cells))
	all = append(all, g.scrollback...)
	all = append(all, g.cells...)

	resized := make([][]Cell, len(all))
	for i, row := range all {
		resized[i] = resizeRow(row, cols)
	}

	if len(resized) >= rows {
		split := len(resized) - rows
		g.scrollback = resized[:split]
		g.cells = resized[split:]
	} else {
		g.scrollback = nil
		g.cells = make([][]Cell, rows)
		copy(g.cells, resized)
		for i := len(resized); i < rows; i++ {
			g.cells[i] = newBlankRow(cols)
		}
	}
	g.trimScrollback()

	g.cols, g.rows = cols, rows
	if g.col >= cols {
		g.col = cols - 1
	}
	if g.row >= rows {
		g.row = rows - 1
	}
}

func resizeRow(row []Cell, cols int) []Cell {
	out := make([]Cell, cols)
	n := len(row)
	if n > cols {
		n = cols
	}
	copy(out, row[:n])
	for i := n; i < cols; i++ {
		out[i] = blankCell()
	}
	return out
}

func (g *Grid) trimScrollback() {
	if g.scrollCap <= 0 {
		g.scrollback = nil
		return
	}
	if len(g.scrollback) > g.scrollCap {
		g.scrollback = g.scrollback[len(g.scrollback)-g.scrollCap:]
	}
}

// Write feeds raw PTY output bytes into the parser, UTF-8-aware and
// chunk-boundary safe (an incomplete multi-byte sequence at the end of one
// Write call is completed by the start of the next).
func (g *Grid) Write(data []byte) {
	if g.remLen > 0 {
		data = append(append([]byte{}, g.remainder[:g.remLen]...), data...)
		g.remLen = 0
	}
	i := 0
	for i < len(data) {
		b := data[i]
		if b < utf8.RuneSelf {
			g.consumeByte(b)
			i++
			continue
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			need := utf8NeedBytes(b)
			if need > 1 && len(data)-i < need {
				g.remLen = copy(g.remainder[:], data[i:])
				return
			}
			g.consumeRune(utf8.RuneError)
			i++
			continue
		}
		g.consumeRune(r)
		i += size
	}
}

func utf8NeedBytes(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

func (g *Grid) consumeByte(b byte) {
	switch g.mode {
	case escNone:
		g.consumeGroundByte(b)
	case escEscape:
		g.consumeEscapeByte(b)
	case escCSI:
		g.consumeCSIByte(b)
	case escOSC:
		g.consumeOSCByte(b)
	}
}

func (g *Grid) consumeRune(r rune) {
	if g.mode != escNone || r < utf8.RuneSelf {
		g.consumeByte(byte(r))
		return
	}
	g.putRune(r)
}

func (g *Grid) consumeGroundByte(b byte) {
	switch b {
	case 0x1b:
		g.mode = escEscape
	case '\r':
		g.col = 0
	case '\n':
		g.newLine()
	case '\b':
		if g.col > 0 {
			g.col--
		}
	case '\t':
		next := (g.col/8 + 1) * 8
		if next > g.cols {
			next = g.cols
		}
		g.col = next
	default:
		if b >= 0x20 {
			g.putRune(rune(b))
		}
	}
}

func (g *Grid) consumeEscapeByte(b byte) {
	switch b {
	case '[':
		g.mode = escCSI
		g.csiBuf = g.csiBuf[:0]
	case ']':
		g.mode = escOSC
		g.oscBuf = g.oscBuf[:0]
	default:
		g.mode = escNone
	}
}

func (g *Grid) consumeCSIByte(b byte) {
	if len(g.csiBuf) >= maxCSILen {
		g.mode = escNone
		return
	}
	if b >= 0x40 && b <= 0x7e {
		g.applyCSI(b, string(g.csiBuf))
		g.mode = escNone
		return
	}
	g.csiBuf = append(g.csiBuf, b)
}

func (g *Grid) consumeOSCByte(b byte) {
	if b == 0x07 || (len(g.oscBuf) > 0 && g.oscBuf[len(g.oscBuf)-1] == 0x1b && b == '\\') {
		g.applyOSC(string(g.oscBuf))
		g.mode = escNone
		return
	}
	if len(g.oscBuf) >= maxOSCLen {
		g.mode = escNone
		return
	}
	g.oscBuf = append(g.oscBuf, b)
}

func (g *Grid) putRune(r rune) {
	if g.col >= g.cols {
		g.newLine()
	}
	if g.row < len(g.cells) && g.col < g.cols {
		g.cells[g.row][g.col] = Cell{Rune: r, Attr: g.curAttr, Fg: g.curFg, Bg: g.curBg}
	}
	g.col++
}

func (g *Grid) newLine() {
	g.col = 0
	if g.row == g.rows-1 {
		g.scrollback = append(g.scrollback, g.cells[0])
		g.trimScrollback()
		copy(g.cells, g.cells[1:])
		g.cells[g.rows-1] = newBlankRow(g.cols)
		return
	}
	g.row++
}

// VisibleCells returns a defensive copy of the currently visible rows,
// cell attributes and colors included, for renderers that need more than
// Snapshot's plain text (the client's ANSI frame writer).
func (g *Grid) VisibleCells() [][]Cell {
	out := make([][]Cell, len(g.cells))
	for i, row := range g.cells {
		out[i] = append([]Cell(nil), row...)
	}
	return out
}

// Snapshot renders the visible grid to newline-joined text (used for
// FullScreenDump and best-effort cosmetic persistence).
func (g *Grid) Snapshot() []byte {
	return []byte(g.renderRows(g.cells))
}

// Lines returns up to n of the most recent logical lines, scrollback
// included.
func (g *Grid) Lines(n int) []string {
	all := make([][]Cell, 0, len(g.scrollback)+len(g.cells))
	all = append(all, g.scrollback...)
	all = append(all, g.cells...)
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]string, len(all))
	for i, row := range all {
		out[i] = renderRow(row)
	}
	return out
}

func (g *Grid) renderRows(rows [][]Cell) string {
	out := ""
	for i, row := range rows {
		if i > 0 {
			out += "\n"
		}
		out += renderRow(row)
	}
	return out
}

func renderRow(row []Cell) string {
	runes := make([]rune, len(row))
	for i, c := range row {
		r := c.Rune
		if r == 0 {
			r = ' '
		}
		runes[i] = r
	}
	return string(runes)
}
