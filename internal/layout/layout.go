// Package layout implements the recursive binary split tree that backs a
// workspace's visual arrangement: geometry resolution, manual folds,
// neighbor navigation, border hit-testing, and the ratio-mutating
// operations (resize, drag-resize, equalize, zoom).
package layout

import (
	"github.com/google/uuid"
)

// WindowID identifies a leaf of the tree. It is process-unique and stable
// for the lifetime of the window it names.
type WindowID uuid.UUID

// NewWindowID allocates a fresh, random window identifier.
func NewWindowID() WindowID {
	return WindowID(uuid.New())
}

func (w WindowID) String() string {
	return uuid.UUID(w).String()
}

// Direction is the axis a Split divides its rectangle along.
type Direction int

const (
	Horizontal Direction = iota // children sit left/right
	Vertical                    // children sit top/bottom
)

// Side names which child of a Split a path step, or a navigation query,
// refers to.
type Side int

const (
	First Side = iota
	Second
)

func (s Side) opposite() Side {
	if s == First {
		return Second
	}
	return First
}

const (
	minRatioResize   = 0.1
	maxRatioResize   = 0.9
	minRatioAbsolute = 0.05
	maxRatioAbsolute = 0.95
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Node is either a Leaf(WindowID) or a Split{Direction, Ratio, First, Second}.
// A nil *Node is never a valid tree; the tree always has at least one leaf.
type Node struct {
	isLeaf    bool
	leaf      WindowID
	direction Direction
	ratio     float64
	first     *Node
	second    *Node
}

// NewLeaf builds a single-leaf tree.
func NewLeaf(id WindowID) *Node {
	return &Node{isLeaf: true, leaf: id}
}

func newSplit(direction Direction, ratio float64, first, second *Node) *Node {
	return &Node{
		isLeaf:    false,
		direction: direction,
		ratio:     clamp(ratio, minRatioAbsolute, maxRatioAbsolute),
		first:     first,
		second:    second,
	}
}

// IsLeaf reports whether this node is a leaf rather than a split.
func (n *Node) IsLeaf() bool { return n.isLeaf }

// LeafID returns the window id of a leaf node; only valid when IsLeaf is true.
func (n *Node) LeafID() WindowID { return n.leaf }

// Direction returns the split axis; only valid when IsLeaf is false.
func (n *Node) Direction() Direction { return n.direction }

// Ratio returns the split ratio in [0.05, 0.95]; only valid when IsLeaf is false.
func (n *Node) Ratio() float64 { return n.ratio }

// First returns the first child; nil for a leaf.
func (n *Node) First() *Node { return n.first }

// Second returns the second child; nil for a leaf.
func (n *Node) Second() *Node { return n.second }

// Clone deep-copies the tree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	if n.isLeaf {
		return &Node{isLeaf: true, leaf: n.leaf}
	}
	return &Node{
		isLeaf:    false,
		direction: n.direction,
		ratio:     n.ratio,
		first:     n.first.Clone(),
		second:    n.second.Clone(),
	}
}

// Rect is an integer-celled rectangle.
type Rect struct {
	X, Y, W, H int
}

func splitRects(direction Direction, ratio float64, area Rect) (Rect, Rect) {
	if direction == Horizontal {
		firstW := int(float64(area.W) * ratio)
		if firstW < 0 {
			firstW = 0
		}
		if firstW > area.W {
			firstW = area.W
		}
		secondW := area.W - firstW // tie cell goes to the second child
		return Rect{area.X, area.Y, firstW, area.H},
			Rect{area.X + firstW, area.Y, secondW, area.H}
	}
	firstH := int(float64(area.H) * ratio)
	if firstH < 0 {
		firstH = 0
	}
	if firstH > area.H {
		firstH = area.H
	}
	secondH := area.H - firstH
	return Rect{area.X, area.Y, area.W, firstH},
		Rect{area.X, area.Y + firstH, area.W, secondH}
}

// Resolve walks the tree and returns each leaf's rectangle within area, in
// tree order.
func (n *Node) Resolve(area Rect) []LeafRect {
	var out []LeafRect
	n.resolveInner(area, &out)
	return out
}

// LeafRect pairs a window with its resolved rectangle.
type LeafRect struct {
	ID   WindowID
	Rect Rect
}

func (n *Node) resolveInner(area Rect, out *[]LeafRect) {
	if n.isLeaf {
		*out = append(*out, LeafRect{n.leaf, area})
		return
	}
	firstArea, secondArea := splitRects(n.direction, n.ratio, area)
	n.first.resolveInner(firstArea, out)
	n.second.resolveInner(secondArea, out)
}

// ResolvedPane is either Visible or Folded.
type ResolvedPane struct {
	ID        WindowID
	Rect      Rect
	Folded    bool
	FoldAxis  Direction // meaningful only when Folded
}

// ResolveWithFolds is like Resolve but subtrees whose leaves are entirely
// within folded collapse into a single 1-cell-wide/tall fold bar along the
// parent split's axis; a partially-folded subtree's visible sibling
// receives the reclaimed space. A tree with a single leaf never folds (a
// lone window can't fold itself away).
func (n *Node) ResolveWithFolds(area Rect, folded map[WindowID]struct{}) []ResolvedPane {
	if n.isLeaf {
		return []ResolvedPane{{ID: n.leaf, Rect: area}}
	}
	var out []ResolvedPane
	n.resolveFoldsInner(area, folded, &out)
	return out
}

func (n *Node) allLeavesFolded(folded map[WindowID]struct{}) bool {
	if n.isLeaf {
		_, ok := folded[n.leaf]
		return ok
	}
	return n.first.allLeavesFolded(folded) && n.second.allLeavesFolded(folded)
}

// foldCellCount returns how many cells along direction a subtree occupies
// once fully folded: leaves count 1; for a split whose own direction
// matches, children's counts sum; for a cross-direction split, the max
// applies.
func (n *Node) foldCellCount(direction Direction) int {
	if n.isLeaf {
		return 1
	}
	firstCount := n.first.foldCellCount(direction)
	secondCount := n.second.foldCellCount(direction)
	if n.direction == direction {
		return firstCount + secondCount
	}
	if firstCount > secondCount {
		return firstCount
	}
	return secondCount
}

func (n *Node) resolveFoldsInner(area Rect, folded map[WindowID]struct{}, out *[]ResolvedPane) {
	if n.isLeaf {
		*out = append(*out, ResolvedPane{ID: n.leaf, Rect: area})
		return
	}

	firstAllFolded := n.first.allLeavesFolded(folded)
	secondAllFolded := n.second.allLeavesFolded(folded)

	switch {
	case firstAllFolded && secondAllFolded:
		// Both fold; each consumes only its own cell count, one bar after
		// the other, rather than sharing the parent's ratio-based split.
		firstCells := n.first.foldCellCount(n.direction)
		firstRect, secondRect := splitByCells(n.direction, firstCells, area)
		n.fold(n.first, firstRect, out)
		n.fold(n.second, secondRect, out)
	case firstAllFolded:
		firstCells := n.first.foldCellCount(n.direction)
		firstRect, secondRect := splitByCells(n.direction, firstCells, area)
		n.fold(n.first, firstRect, out)
		n.second.resolveFoldsInner(secondRect, folded, out)
	case secondAllFolded:
		secondCells := n.second.foldCellCount(n.direction)
		secondRect, firstRect := splitByCellsFromEnd(n.direction, secondCells, area)
		n.first.resolveFoldsInner(firstRect, folded, out)
		n.fold(n.second, secondRect, out)
	default:
		firstArea, secondArea := splitRects(n.direction, n.ratio, area)
		n.first.resolveFoldsInner(firstArea, folded, out)
		n.second.resolveFoldsInner(secondArea, folded, out)
	}
}

func (n *Node) fold(sub *Node, rect Rect, out *[]ResolvedPane) {
	// A fully-folded subtree still contributes one ResolvedPane per leaf
	// (for stable ids in the client's pane registry) but all of them marked
	// Folded and sharing the bar's rect.
	for _, id := range sub.LeafIDs() {
		*out = append(*out, ResolvedPane{ID: id, Rect: rect, Folded: true, FoldAxis: n.direction})
	}
}

// splitByCells carves `cells` worth of space (along direction) off the
// start of area for the first part, returning (folded-bar-rect, remaining-rect).
func splitByCells(direction Direction, cells int, area Rect) (Rect, Rect) {
	if direction == Horizontal {
		w := cells
		if w > area.W {
			w = area.W
		}
		return Rect{area.X, area.Y, w, area.H}, Rect{area.X + w, area.Y, area.W - w, area.H}
	}
	h := cells
	if h > area.H {
		h = area.H
	}
	return Rect{area.X, area.Y, area.W, h}, Rect{area.X, area.Y + h, area.W, area.H - h}
}

// splitByCellsFromEnd carves `cells` worth of space off the end of area,
// returning (folded-bar-rect-at-end, remaining-rect-at-start).
func splitByCellsFromEnd(direction Direction, cells int, area Rect) (Rect, Rect) {
	if direction == Horizontal {
		w := cells
		if w > area.W {
			w = area.W
		}
		return Rect{area.X + area.W - w, area.Y, w, area.H}, Rect{area.X, area.Y, area.W - w, area.H}
	}
	h := cells
	if h > area.H {
		h = area.H
	}
	return Rect{area.X, area.Y + area.H - h, area.W, h}, Rect{area.X, area.Y, area.W, area.H - h}
}

// SplitPane replaces the leaf `target` with a Split{First: old leaf, Second:
// Leaf(newID)} at ratio 0.5. Returns false if target is not found.
func (n *Node) SplitPane(target WindowID, direction Direction, newID WindowID) bool {
	found, replacement := n.splitInner(target, direction, newID)
	if !found {
		return false
	}
	*n = *replacement
	return true
}

func (n *Node) splitInner(target WindowID, direction Direction, newID WindowID) (bool, *Node) {
	if n.isLeaf {
		if n.leaf == target {
			return true, newSplit(direction, 0.5, NewLeaf(target), NewLeaf(newID))
		}
		return false, nil
	}
	if ok, repl := n.first.splitInner(target, direction, newID); ok {
		return true, newSplit(n.direction, n.ratio, repl, n.second)
	}
	if ok, repl := n.second.splitInner(target, direction, newID); ok {
		return true, newSplit(n.direction, n.ratio, n.first, repl)
	}
	return false, nil
}

// ClosePane removes the leaf `target`; its parent Split collapses into the
// sibling subtree. Returns the first leaf of the sibling (for focus
// transfer) and true, or the zero value and false if target is the tree
// root (the only leaf) or not found.
func (n *Node) ClosePane(target WindowID) (WindowID, bool) {
	if n.isLeaf {
		return WindowID{}, false
	}
	newRoot, survivor, ok := n.closeInner(target)
	if !ok {
		return WindowID{}, false
	}
	*n = *newRoot
	return survivor, true
}

func (n *Node) closeInner(target WindowID) (*Node, WindowID, bool) {
	if n.isLeaf {
		return nil, WindowID{}, false
	}
	if n.first.isLeaf && n.first.leaf == target {
		return n.second, n.second.FirstLeaf(), true
	}
	if n.second.isLeaf && n.second.leaf == target {
		return n.first, n.first.FirstLeaf(), true
	}
	if newFirst, survivor, ok := n.first.closeInner(target); ok {
		return newSplit(n.direction, n.ratio, newFirst, n.second), survivor, true
	}
	if newSecond, survivor, ok := n.second.closeInner(target); ok {
		return newSplit(n.direction, n.ratio, n.first, newSecond), survivor, true
	}
	return nil, WindowID{}, false
}

// Resize adjusts the nearest split directly containing target as a leaf.
// Sign is inverted when target is the Second child, so a positive delta
// always grows the target. Ratio is clamped to [0.1, 0.9].
func (n *Node) Resize(target WindowID, delta float64) bool {
	return n.resizeInner(target, delta)
}

func (n *Node) resizeInner(target WindowID, delta float64) bool {
	if n.isLeaf {
		return false
	}
	if n.first.isLeaf && n.first.leaf == target {
		n.ratio = clamp(n.ratio+delta, minRatioResize, maxRatioResize)
		return true
	}
	if n.second.isLeaf && n.second.leaf == target {
		n.ratio = clamp(n.ratio-delta, minRatioResize, maxRatioResize)
		return true
	}
	if n.first.resizeInner(target, delta) {
		return true
	}
	return n.second.resizeInner(target, delta)
}

// SetRatioAtPath sets the ratio of the Split node identified by path
// (a sequence of First/Second steps from the root), clamped to [0.05, 0.95].
// Used by the drag protocol.
func (n *Node) SetRatioAtPath(path []Side, ratio float64) bool {
	node := n
	for _, step := range path {
		if node.isLeaf {
			return false
		}
		if step == First {
			node = node.first
		} else {
			node = node.second
		}
	}
	if node == nil || node.isLeaf {
		return false
	}
	node.ratio = clamp(ratio, minRatioAbsolute, maxRatioAbsolute)
	return true
}

// Equalize recursively sets every split's ratio to 0.5.
func (n *Node) Equalize() {
	if n.isLeaf {
		return
	}
	n.ratio = 0.5
	n.first.Equalize()
	n.second.Equalize()
}

// MaximizeLeaf pushes every split on the path to target towards 0.95,
// favoring the side containing target, and equalizes every sibling subtree
// branching off that path. Reversible by restoring a prior ratio snapshot
// (callers should snapshot ratios before calling this).
func (n *Node) MaximizeLeaf(target WindowID) bool {
	if n.isLeaf {
		return n.leaf == target
	}
	if n.first.Contains(target) {
		n.ratio = maxRatioAbsolute
		n.second.Equalize()
		return n.first.MaximizeLeaf(target)
	}
	if n.second.Contains(target) {
		n.ratio = minRatioAbsolute
		n.first.Equalize()
		return n.second.MaximizeLeaf(target)
	}
	return false
}

// SnapshotRatios returns every split's ratio in a stable DFS order, for
// later use with RestoreRatios.
func (n *Node) SnapshotRatios() []float64 {
	var out []float64
	n.snapshotRatiosInner(&out)
	return out
}

func (n *Node) snapshotRatiosInner(out *[]float64) {
	if n.isLeaf {
		return
	}
	*out = append(*out, n.ratio)
	n.first.snapshotRatiosInner(out)
	n.second.snapshotRatiosInner(out)
}

// RestoreRatios re-applies ratios captured by SnapshotRatios, in the same
// DFS order. The tree's shape must not have changed between snapshot and
// restore.
func (n *Node) RestoreRatios(ratios []float64) {
	i := 0
	n.restoreRatiosInner(ratios, &i)
}

func (n *Node) restoreRatiosInner(ratios []float64, i *int) {
	if n.isLeaf {
		return
	}
	if *i < len(ratios) {
		n.ratio = ratios[*i]
		*i++
	}
	n.first.restoreRatiosInner(ratios, i)
	n.second.restoreRatiosInner(ratios, i)
}

// FindNeighbor returns the leaf adjacent to target across the nearest
// ancestor split whose direction matches `direction` and where target lies
// on the opposite of `side`. The chosen neighbor is the near edge leaf of
// the sibling subtree: its first (leftmost/topmost) leaf when stepping onto
// a Second-side sibling, its last (rightmost/bottommost) leaf when stepping
// onto a First-side sibling.
func (n *Node) FindNeighbor(target WindowID, direction Direction, side Side) (WindowID, bool) {
	_, result, ok := n.findNeighborInner(target, direction, side)
	return result, ok
}

func (n *Node) findNeighborInner(target WindowID, direction Direction, side Side) (bool, WindowID, bool) {
	if n.isLeaf {
		return n.leaf == target, WindowID{}, false
	}
	if containsInner, id, ok := n.first.findNeighborInner(target, direction, side); containsInner {
		if ok {
			return true, id, true
		}
		if n.direction == direction && side == Second {
			return true, n.second.edgeLeaf(side.opposite()), true
		}
		return true, WindowID{}, false
	}
	if containsInner, id, ok := n.second.findNeighborInner(target, direction, side); containsInner {
		if ok {
			return true, id, true
		}
		if n.direction == direction && side == First {
			return true, n.first.edgeLeaf(side.opposite()), true
		}
		return true, WindowID{}, false
	}
	return false, WindowID{}, false
}

// edgeLeaf returns the leftmost leaf (side==First) or rightmost leaf
// (side==Second) of the subtree.
func (n *Node) edgeLeaf(side Side) WindowID {
	if n.isLeaf {
		return n.leaf
	}
	if side == First {
		return n.first.edgeLeaf(side)
	}
	return n.second.edgeLeaf(side)
}

// BorderHit describes a split border near a queried point.
type BorderHit struct {
	Path      []Side
	Direction Direction
	Position  int // cell offset of the dividing line within the parent area
	Total     int // total size along Direction of the parent area
}

// FindSplitBorder returns the split whose dividing line is within 1 cell of
// (x, y), searching depth-first so that borders drawn at a shallower split's
// shared edge take precedence over a deeper nested split's border that
// happens to overlap it.
func (n *Node) FindSplitBorder(area Rect, x, y int) (BorderHit, bool) {
	var path []Side
	return n.hitTestInner(area, x, y, path)
}

func (n *Node) hitTestInner(area Rect, x, y int, path []Side) (BorderHit, bool) {
	if n.isLeaf {
		return BorderHit{}, false
	}
	firstArea, secondArea := splitRects(n.direction, n.ratio, area)
	var borderPos, total int
	var withinBand bool
	if n.direction == Horizontal {
		borderPos = firstArea.W
		total = area.W
		withinBand = y >= area.Y && y < area.Y+area.H && abs(x-area.X-borderPos) <= 1
	} else {
		borderPos = firstArea.H
		total = area.H
		withinBand = x >= area.X && x < area.X+area.W && abs(y-area.Y-borderPos) <= 1
	}
	if withinBand {
		hitPath := append([]Side{}, path...)
		return BorderHit{Path: hitPath, Direction: n.direction, Position: borderPos, Total: total}, true
	}
	if hit, ok := n.first.hitTestInner(firstArea, x, y, append(path, First)); ok {
		return hit, true
	}
	if hit, ok := n.second.hitTestInner(secondArea, x, y, append(path, Second)); ok {
		return hit, true
	}
	return BorderHit{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// LeafIDs returns every window id in the tree, in tree (left-to-right) order.
func (n *Node) LeafIDs() []WindowID {
	var out []WindowID
	n.collectIDs(&out)
	return out
}

func (n *Node) collectIDs(out *[]WindowID) {
	if n.isLeaf {
		*out = append(*out, n.leaf)
		return
	}
	n.first.collectIDs(out)
	n.second.collectIDs(out)
}

// Contains reports whether target appears anywhere in the tree.
func (n *Node) Contains(target WindowID) bool {
	if n.isLeaf {
		return n.leaf == target
	}
	return n.first.Contains(target) || n.second.Contains(target)
}

// FirstLeaf returns the leftmost leaf.
func (n *Node) FirstLeaf() WindowID {
	return n.edgeLeaf(First)
}
