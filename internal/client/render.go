package client

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"

	"panemux/internal/protocol"
	"panemux/internal/screen"
)

// GridSet owns one screen.Grid per tab id currently known to the client,
// keyed the same way protocol.TabSnapshot.ID and ServerMessage.PaneID are:
// a window only ever displays its ActiveTab, but every tab (background
// ones included) keeps its own parser running so switching tabs doesn't
// lose scrollback.
type GridSet struct {
	grids         map[string]*screen.Grid
	scrollbackCap int
	onTitle       screen.TitleFunc
}

// NewGridSet starts empty; scrollbackCap bounds each new Grid's history.
func NewGridSet(scrollbackCap int, onTitle screen.TitleFunc) *GridSet {
	return &GridSet{grids: map[string]*screen.Grid{}, scrollbackCap: scrollbackCap, onTitle: onTitle}
}

// Feed routes PaneOutput bytes to the grid for tabID, creating one sized
// cols x rows if this is the first output seen for it.
func (gs *GridSet) Feed(tabID string, cols, rows int, data []byte) {
	g, ok := gs.grids[tabID]
	if !ok {
		g = screen.New(cols, rows, gs.scrollbackCap, gs.onTitle)
		gs.grids[tabID] = g
	}
	g.Write(data)
}

// Reconcile creates grids for any tab id in ids not yet tracked (sized
// cols x rows) and drops tracked grids for ids no longer present, per the
// attach-sequence's "create for new tabs, drop for vanished ones".
func (gs *GridSet) Reconcile(ids []string, cols, rows int) {
	live := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
		if _, ok := gs.grids[id]; !ok {
			gs.grids[id] = screen.New(cols, rows, gs.scrollbackCap, gs.onTitle)
		}
	}
	for id := range gs.grids {
		if _, ok := live[id]; !ok {
			delete(gs.grids, id)
		}
	}
}

// Resize resizes the grid for tabID in place, if tracked.
func (gs *GridSet) Resize(tabID string, cols, rows int) {
	if g, ok := gs.grids[tabID]; ok {
		g.Resize(cols, rows)
	}
}

func (gs *GridSet) Get(tabID string) (*screen.Grid, bool) {
	g, ok := gs.grids[tabID]
	return g, ok
}

// FrameRenderer draws the current workspace snapshot to a terminal: a
// full-redraw strategy (no damage tracking) since pane content already
// changes on nearly every PaneOutput and the wire protocol gives no cheap
// way to diff two RenderStates cell-by-cell.
type FrameRenderer struct {
	w io.Writer
}

// NewFrameRenderer wraps w; SGR sequences are written to it unchanged
// (cmd/pane passes os.Stdout).
func NewFrameRenderer(w io.Writer) *FrameRenderer {
	return &FrameRenderer{w: w}
}

// Render draws every pane in the workspace at its resolved rectangle,
// border included, with the active window's border highlighted, then
// positions the real cursor inside the active pane.
func (r *FrameRenderer) Render(ws *protocol.WorkspaceSnapshot, grids *GridSet, area Rect) {
	var b strings.Builder
	b.WriteString("\x1b[2J\x1b[H")

	rects := ResolveLayout(ws.Layout, area)
	var activeRect *PaneRect
	var activeTabID string
	for i := range rects {
		pr := &rects[i]
		tabID, _ := ActiveTabID(ws, pr.WindowID)
		active := ws.ActiveWindow == pr.WindowID
		r.renderPane(&b, pr, tabID, active, grids)
		if active {
			activeRect = pr
			activeTabID = tabID
		}
	}
	if activeRect != nil && activeTabID != "" {
		g, ok := grids.Get(activeTabID)
		if ok {
			col, row := g.Cursor()
			b.WriteString(fmt.Sprintf("\x1b[%d;%dH", activeRect.Rect.Y+row+2, activeRect.Rect.X+col+2))
		}
	}
	io.WriteString(r.w, b.String())
}

func (r *FrameRenderer) renderPane(b *strings.Builder, pr *PaneRect, tabID string, active bool, grids *GridSet) {
	drawBorder(b, pr.Rect, active)
	if tabID == "" {
		return
	}
	g, ok := grids.Get(tabID)
	if !ok {
		return
	}
	inner := Rect{pr.Rect.X + 1, pr.Rect.Y + 1, pr.Rect.W - 2, pr.Rect.H - 2}
	if inner.W <= 0 || inner.H <= 0 {
		return
	}
	rows := g.VisibleCells()
	var last screen.Cell
	haveLast := false
	for y := 0; y < inner.H && y < len(rows); y++ {
		fmt.Fprintf(b, "\x1b[%d;%dH", inner.Y+y+1, inner.X+1)
		row := rows[y]
		width := 0
		for _, cell := range row {
			if width >= inner.W {
				break
			}
			if !haveLast || cell.Attr != last.Attr || cell.Fg != last.Fg || cell.Bg != last.Bg {
				b.WriteString(sgrFor(cell))
				last = cell
				haveLast = true
			}
			ru := cell.Rune
			if ru == 0 {
				ru = ' '
			}
			b.WriteRune(ru)
			width += uniseg.StringWidth(string(ru))
		}
		b.WriteString("\x1b[0m")
		haveLast = false
	}
}

// drawBorder draws a single-line box around rect using box-drawing
// characters, brightened when active is true (the focused pane).
func drawBorder(b *strings.Builder, rect Rect, active bool) {
	if rect.W < 2 || rect.H < 2 {
		return
	}
	color := "\x1b[2m" // dim
	if active {
		color = "\x1b[1;36m" // bold cyan
	}
	fmt.Fprintf(b, "\x1b[%d;%dH%s┌%s┐\x1b[0m", rect.Y+1, rect.X+1, color, strings.Repeat("─", rect.W-2))
	for y := 1; y < rect.H-1; y++ {
		fmt.Fprintf(b, "\x1b[%d;%dH%s│\x1b[0m", rect.Y+y+1, rect.X+1, color)
		fmt.Fprintf(b, "\x1b[%d;%dH%s│\x1b[0m", rect.Y+y+1, rect.X+rect.W, color)
	}
	fmt.Fprintf(b, "\x1b[%d;%dH%s└%s┘\x1b[0m", rect.Y+rect.H, rect.X+1, color, strings.Repeat("─", rect.W-2))
}

// sgrFor renders one cell's attributes/colors as an SGR escape sequence,
// always starting from a reset so adjacent runs never inherit stale state.
func sgrFor(c screen.Cell) string {
	var codes []string
	if c.Attr&screen.AttrBold != 0 {
		codes = append(codes, "1")
	}
	if c.Attr&screen.AttrDim != 0 {
		codes = append(codes, "2")
	}
	if c.Attr&screen.AttrItalic != 0 {
		codes = append(codes, "3")
	}
	if c.Attr&screen.AttrUnderline != 0 {
		codes = append(codes, "4")
	}
	if c.Attr&screen.AttrReverse != 0 {
		codes = append(codes, "7")
	}
	codes = append(codes, colorCode(c.Fg, false), colorCode(c.Bg, true))
	filtered := codes[:0]
	for _, code := range codes {
		if code != "" {
			filtered = append(filtered, code)
		}
	}
	if len(filtered) == 0 {
		return "\x1b[0m"
	}
	return "\x1b[0;" + strings.Join(filtered, ";") + "m"
}

func colorCode(c screen.Color, background bool) string {
	switch c.Kind {
	case screen.ColorIndexed:
		if background {
			return "48;5;" + strconv.Itoa(int(c.Idx))
		}
		return "38;5;" + strconv.Itoa(int(c.Idx))
	case screen.ColorRGB:
		if background {
			return fmt.Sprintf("48;2;%d;%d;%d", c.R, c.G, c.B)
		}
		return fmt.Sprintf("38;2;%d;%d;%d", c.R, c.G, c.B)
	default:
		return ""
	}
}
