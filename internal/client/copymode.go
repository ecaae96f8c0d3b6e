package client

import "strings"

// SelectionMode is the shape of a Copy overlay's active selection.
type SelectionMode int

const (
	SelectionNone SelectionMode = iota
	SelectionChar
	SelectionLine
	SelectionBlock
)

// SearchMatch is one substring hit on the visible grid.
type SearchMatch struct {
	Row, ColStart, ColEnd int
}

// CopyMode holds all state for one Copy overlay session: the grid cursor,
// the selection anchor/mode, and an incremental search. It operates over
// plain []string lines (screen.Grid.Lines' output) rather than the Grid
// itself, so it has no dependency on the VT parser's internals.
type CopyMode struct {
	CursorRow, CursorCol int
	SelectionStart       *[2]int
	Mode                 SelectionMode

	SearchActive bool
	SearchQuery  string
	Matches      []SearchMatch
}

// NewCopyMode starts a Copy overlay with the cursor at (row, col) — the
// client seeds this from the active pane's on-screen cursor position.
func NewCopyMode(row, col int) *CopyMode {
	return &CopyMode{CursorRow: row, CursorCol: col}
}

// CopyAction is what one key produced.
type CopyAction int

const (
	CopyNone CopyAction = iota
	CopyYank
	CopyExit
)

// HandleKey advances copy-mode state by one normalized key chord, given
// the current visible lines (for bounds-checking movement and search).
// yanked is populated only when action == CopyYank.
func (c *CopyMode) HandleKey(chord string, lines []string) (action CopyAction, yanked string) {
	if c.SearchActive {
		return c.handleSearchKey(chord), ""
	}
	switch chord {
	case "esc":
		if c.Mode != SelectionNone {
			c.Mode = SelectionNone
			c.SelectionStart = nil
			return CopyNone, ""
		}
		return CopyExit, ""
	case "q":
		return CopyExit, ""

	case "h", "left":
		c.CursorCol = max0(c.CursorCol - 1)
	case "j", "down":
		if maxRow := len(lines) - 1; c.CursorRow < maxRow {
			c.CursorRow++
		}
	case "k", "up":
		c.CursorRow = max0(c.CursorRow - 1)
	case "l", "right":
		if c.CursorCol < lineEndCol(lines, c.CursorRow) {
			c.CursorCol++
		}

	case "w":
		c.moveWordForward(lines)
	case "b":
		c.moveWordBackward(lines)

	case "0":
		c.CursorCol = 0
	case "$":
		c.CursorCol = lineEndCol(lines, c.CursorRow)

	case "g", "home":
		c.CursorRow, c.CursorCol = 0, 0
	case "shift+g":
		c.CursorRow = max0(len(lines) - 1)
		c.CursorCol = 0

	case "ctrl+u", "pageup":
		c.CursorRow = max0(c.CursorRow - len(lines)/2)
	case "ctrl+d", "pagedown":
		if maxRow := len(lines) - 1; c.CursorRow+len(lines)/2 < maxRow {
			c.CursorRow += len(lines) / 2
		} else {
			c.CursorRow = maxRow
		}

	case "v":
		c.toggleSelection(SelectionChar)
	case "shift+v":
		c.toggleSelection(SelectionLine)
	case "ctrl+v":
		c.toggleSelection(SelectionBlock)

	case "y":
		if c.Mode != SelectionNone {
			text := c.SelectedText(lines)
			if text != "" {
				return CopyYank, text
			}
		}

	case "/":
		c.SearchActive = true
		c.SearchQuery = ""

	case "n":
		c.nextMatch()
	case "shift+n":
		c.prevMatch()
	}
	return CopyNone, ""
}

func (c *CopyMode) handleSearchKey(chord string) CopyAction {
	switch chord {
	case "esc":
		c.SearchActive = false
		c.SearchQuery = ""
		c.Matches = nil
	case "enter":
		c.SearchActive = false
	case "backspace":
		if n := len(c.SearchQuery); n > 0 {
			r := []rune(c.SearchQuery)
			c.SearchQuery = string(r[:len(r)-1])
		}
	default:
		if r := []rune(chord); len(r) == 1 {
			c.SearchQuery += chord
		}
	}
	return CopyNone
}

// PerformSearch rescans lines for SearchQuery and moves to the first match
// after the cursor (wrapping to the first match overall).
func (c *CopyMode) PerformSearch(lines []string) {
	c.Matches = nil
	if c.SearchQuery == "" {
		return
	}
	for row, line := range lines {
		start := 0
		for {
			idx := strings.Index(line[start:], c.SearchQuery)
			if idx < 0 {
				break
			}
			colStart := start + idx
			colEnd := colStart + len([]rune(c.SearchQuery)) - 1
			c.Matches = append(c.Matches, SearchMatch{Row: row, ColStart: colStart, ColEnd: colEnd})
			start = colStart + 1
			if start >= len(line) {
				break
			}
		}
	}
	c.nextMatch()
}

func (c *CopyMode) nextMatch() {
	if len(c.Matches) == 0 {
		return
	}
	for _, m := range c.Matches {
		if m.Row > c.CursorRow || (m.Row == c.CursorRow && m.ColStart > c.CursorCol) {
			c.CursorRow, c.CursorCol = m.Row, m.ColStart
			return
		}
	}
	c.CursorRow, c.CursorCol = c.Matches[0].Row, c.Matches[0].ColStart
}

func (c *CopyMode) prevMatch() {
	if len(c.Matches) == 0 {
		return
	}
	for i := len(c.Matches) - 1; i >= 0; i-- {
		m := c.Matches[i]
		if m.Row < c.CursorRow || (m.Row == c.CursorRow && m.ColStart < c.CursorCol) {
			c.CursorRow, c.CursorCol = m.Row, m.ColStart
			return
		}
	}
	last := c.Matches[len(c.Matches)-1]
	c.CursorRow, c.CursorCol = last.Row, last.ColStart
}

func (c *CopyMode) toggleSelection(mode SelectionMode) {
	if c.Mode == mode {
		c.Mode = SelectionNone
		c.SelectionStart = nil
		return
	}
	c.Mode = mode
	c.SelectionStart = &[2]int{c.CursorRow, c.CursorCol}
}

// SelectedText renders the current selection as yankable text: Char joins
// a partial first/last row with full rows between via newlines, Line
// joins whole trimmed rows, Block joins each row's column slice.
func (c *CopyMode) SelectedText(lines []string) string {
	if c.SelectionStart == nil || c.Mode == SelectionNone {
		return ""
	}
	sr, sc := c.SelectionStart[0], c.SelectionStart[1]
	switch c.Mode {
	case SelectionChar:
		return c.extractChar(lines, sr, sc)
	case SelectionLine:
		return c.extractLine(lines, sr)
	case SelectionBlock:
		return c.extractBlock(lines, sr, sc)
	default:
		return ""
	}
}

func (c *CopyMode) normalizeRange(sr, sc int) (int, int, int, int) {
	if sr < c.CursorRow || (sr == c.CursorRow && sc <= c.CursorCol) {
		return sr, sc, c.CursorRow, c.CursorCol
	}
	return c.CursorRow, c.CursorCol, sr, sc
}

func (c *CopyMode) extractChar(lines []string, sr, sc int) string {
	startRow, startCol, endRow, endCol := c.normalizeRange(sr, sc)
	var b strings.Builder
	for row := startRow; row <= endRow && row < len(lines); row++ {
		chars := []rune(lines[row])
		from := 0
		if row == startRow {
			from = min(startCol, len(chars))
		}
		to := len(chars)
		if row == endRow {
			to = min(endCol+1, len(chars))
		}
		if row > startRow {
			b.WriteByte('\n')
		}
		if from < to {
			b.WriteString(string(chars[from:to]))
		}
	}
	return b.String()
}

func (c *CopyMode) extractLine(lines []string, startRow int) string {
	sr, er := startRow, c.CursorRow
	if sr > er {
		sr, er = er, sr
	}
	out := make([]string, 0, er-sr+1)
	for row := sr; row <= er && row < len(lines); row++ {
		out = append(out, strings.TrimRight(lines[row], " "))
	}
	return strings.Join(out, "\n")
}

func (c *CopyMode) extractBlock(lines []string, sr, sc int) string {
	startRow, startCol, endRow, endCol := c.normalizeRange(sr, sc)
	out := make([]string, 0, endRow-startRow+1)
	for row := startRow; row <= endRow && row < len(lines); row++ {
		chars := []rune(lines[row])
		from := min(startCol, len(chars))
		to := min(endCol+1, len(chars))
		if from > to {
			from = to
		}
		out = append(out, string(chars[from:to]))
	}
	return strings.Join(out, "\n")
}

func (c *CopyMode) moveWordForward(lines []string) {
	if c.CursorRow >= len(lines) {
		return
	}
	chars := []rune(lines[c.CursorRow])
	col := c.CursorCol
	for col < len(chars) && !isSpace(chars[col]) {
		col++
	}
	for col < len(chars) && isSpace(chars[col]) {
		col++
	}
	if col >= len(chars) && c.CursorRow < len(lines)-1 {
		c.CursorRow++
		next := []rune(lines[c.CursorRow])
		col = 0
		for col < len(next) && isSpace(next[col]) {
			col++
		}
	}
	c.CursorCol = col
}

func (c *CopyMode) moveWordBackward(lines []string) {
	if c.CursorRow >= len(lines) {
		return
	}
	chars := []rune(lines[c.CursorRow])
	col := c.CursorCol
	for col > 0 && isSpace(safeAt(chars, col-1)) {
		col--
	}
	for col > 0 && !isSpace(safeAt(chars, col-1)) {
		col--
	}
	c.CursorCol = col
}

func safeAt(r []rune, i int) rune {
	if i < 0 || i >= len(r) {
		return ' '
	}
	return r[i]
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}

func lineEndCol(lines []string, row int) int {
	if row < 0 || row >= len(lines) {
		return 0
	}
	trimmed := strings.TrimRight(lines[row], " ")
	if trimmed == "" {
		return 0
	}
	return len([]rune(trimmed)) - 1
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
