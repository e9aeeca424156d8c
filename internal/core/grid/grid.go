// Package grid is a uniform-cell spatial index over world rectangles.
//
// Objects live in an arena and are addressed by versioned handles; cells
// store handles, never pointers. Objects whose bounds are empty or span more
// cells than the configured maximum go to a global set that every query
// visits. Objects reaching outside the grid are additionally kept in an
// outer set that is only visited by queries touching the grid border.
package grid

import (
	"fmt"
	"math"

	"chosenoffset.com/lumen2d/internal/core/geom"
)

// Handle identifies an object inside a Grid. The zero Handle is never valid.
type Handle struct {
	index   uint32
	version uint32
}

// Valid reports whether h was ever issued by a grid.
func (h Handle) Valid() bool {
	return h.version != 0
}

func (h Handle) String() string {
	return fmt.Sprintf("grid.Handle(%d@%d)", h.index, h.version)
}

// Config fixes the shape of a grid at creation.
type Config struct {
	// Extent is the world size covered by cells, starting at (0, 0).
	Extent geom.Vec2 `yaml:"extent" json:"extent"`
	// CellSize is the side of a square cell in world units.
	CellSize float64 `yaml:"cell_size" json:"cell_size"`
	// MaxSpanX and MaxSpanY bound the number of cells an object may occupy
	// before it is moved to the global set.
	MaxSpanX int `yaml:"max_span_x" json:"max_span_x"`
	MaxSpanY int `yaml:"max_span_y" json:"max_span_y"`
}

// DefaultConfig matches the values used by the demo world.
func DefaultConfig() Config {
	return Config{
		Extent:   geom.V(4096, 4096),
		CellSize: 128,
		MaxSpanX: 5,
		MaxSpanY: 5,
	}
}

// cellRange is an inclusive range of cell coordinates.
type cellRange struct {
	minX, minY, maxX, maxY int
}

func (c cellRange) contains(x, y int) bool {
	return x >= c.minX && x <= c.maxX && y >= c.minY && y <= c.maxY
}

func (c cellRange) empty() bool {
	return c.maxX < c.minX || c.maxY < c.minY
}

var noCells = cellRange{minX: 0, minY: 0, maxX: -1, maxY: -1}

type object[T any] struct {
	value   T
	version uint32
	alive   bool

	bounds   geom.Rect
	cells    []int32
	covered  cellRange
	inGlobal bool
	inOuter  bool
	lastSeen uint32
}

// Grid maps world rectangles to the values overlapping them. A Grid is not
// safe for concurrent use.
type Grid[T any] struct {
	cfg           Config
	width, height int
	invCell       float64

	cells   [][]Handle
	objects []object[T]
	free    []uint32
	global  []Handle
	outer   []Handle

	generation uint32
	count      int
	stats      Stats
}

// New creates a grid. Invalid sizes fall back to DefaultConfig values.
func New[T any](cfg Config) *Grid[T] {
	def := DefaultConfig()
	if cfg.CellSize <= 0 {
		cfg.CellSize = def.CellSize
	}
	if cfg.Extent[0] <= 0 || cfg.Extent[1] <= 0 {
		cfg.Extent = def.Extent
	}
	if cfg.MaxSpanX <= 0 {
		cfg.MaxSpanX = def.MaxSpanX
	}
	if cfg.MaxSpanY <= 0 {
		cfg.MaxSpanY = def.MaxSpanY
	}

	w := int(math.Ceil(cfg.Extent[0] / cfg.CellSize))
	h := int(math.Ceil(cfg.Extent[1] / cfg.CellSize))
	return &Grid[T]{
		cfg:     cfg,
		width:   w,
		height:  h,
		invCell: 1 / cfg.CellSize,
		cells:   make([][]Handle, w*h),
	}
}

// Config returns the configuration the grid was built with.
func (g *Grid[T]) Config() Config {
	return g.cfg
}

// Size returns the number of cells along each axis.
func (g *Grid[T]) Size() (width, height int) {
	return g.width, g.height
}

// Len returns the number of live objects.
func (g *Grid[T]) Len() int {
	return g.count
}

// Add stores value in the grid without any placement. It becomes visible
// to queries after its first Update.
func (g *Grid[T]) Add(value T) Handle {
	var idx uint32
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		g.objects = append(g.objects, object[T]{})
		idx = uint32(len(g.objects) - 1)
	}

	o := &g.objects[idx]
	o.version++
	if o.version == 0 {
		o.version = 1
	}
	o.value = value
	o.alive = true
	o.bounds = geom.Rect{}
	o.covered = noCells
	o.inGlobal = false
	o.inOuter = false
	o.lastSeen = 0
	if o.cells == nil {
		o.cells = make([]int32, 0, g.cfg.MaxSpanX*g.cfg.MaxSpanY)
	}
	o.cells = o.cells[:0]

	g.count++
	return Handle{index: idx, version: o.version}
}

// Contains reports whether h refers to a live object.
func (g *Grid[T]) Contains(h Handle) bool {
	return g.get(h) != nil
}

// Value returns the value stored for h.
func (g *Grid[T]) Value(h Handle) (T, bool) {
	o := g.get(h)
	if o == nil {
		var zero T
		return zero, false
	}
	return o.value, true
}

// Bounds returns the rect h was last updated with.
func (g *Grid[T]) Bounds(h Handle) (geom.Rect, bool) {
	o := g.get(h)
	if o == nil {
		return geom.Rect{}, false
	}
	return o.bounds, true
}

// InGlobal reports whether h currently lives in the global set.
func (g *Grid[T]) InGlobal(h Handle) bool {
	o := g.get(h)
	return o != nil && o.inGlobal
}

// InOuter reports whether h currently lives in the outer set.
func (g *Grid[T]) InOuter(h Handle) bool {
	o := g.get(h)
	return o != nil && o.inOuter
}

// CellCount returns how many cells h occupies.
func (g *Grid[T]) CellCount(h Handle) int {
	o := g.get(h)
	if o == nil {
		return 0
	}
	return len(o.cells)
}

// Update places h according to r. Only cells that enter or leave the
// covered range are touched. Stale handles are ignored.
func (g *Grid[T]) Update(h Handle, r geom.Rect) {
	o := g.get(h)
	if o == nil {
		return
	}
	o.bounds = r

	raw := g.cellRangeOf(r)
	if r.Empty() || raw.maxX-raw.minX+1 > g.cfg.MaxSpanX || raw.maxY-raw.minY+1 > g.cfg.MaxSpanY {
		g.clearCells(h, o)
		g.setOuter(h, o, false)
		if !o.inGlobal {
			o.inGlobal = true
			g.global = append(g.global, h)
		}
		return
	}

	if o.inGlobal {
		o.inGlobal = false
		g.global = removeHandle(g.global, h)
	}

	clamped := g.clamp(raw)
	g.setOuter(h, o, clamped != raw)
	g.moveCells(h, o, clamped)
}

// Remove erases h from every cell and set it is part of. The handle becomes
// stale.
func (g *Grid[T]) Remove(h Handle) {
	o := g.get(h)
	if o == nil {
		return
	}
	g.clearCells(h, o)
	g.setOuter(h, o, false)
	if o.inGlobal {
		o.inGlobal = false
		g.global = removeHandle(g.global, h)
	}

	var zero T
	o.value = zero
	o.alive = false
	g.free = append(g.free, h.index)
	g.count--
}

func (g *Grid[T]) get(h Handle) *object[T] {
	if !h.Valid() || int(h.index) >= len(g.objects) {
		return nil
	}
	o := &g.objects[h.index]
	if !o.alive || o.version != h.version {
		return nil
	}
	return o
}

// cellRangeOf returns the unclamped cells covered by r. A max edge lying
// exactly on a cell border does not reach into the next cell.
func (g *Grid[T]) cellRangeOf(r geom.Rect) cellRange {
	c := cellRange{
		minX: toCell(math.Floor(r.Min[0] * g.invCell)),
		minY: toCell(math.Floor(r.Min[1] * g.invCell)),
		maxX: toCell(math.Ceil(r.Max[0]*g.invCell)) - 1,
		maxY: toCell(math.Ceil(r.Max[1]*g.invCell)) - 1,
	}
	if c.maxX < c.minX {
		c.maxX = c.minX
	}
	if c.maxY < c.minY {
		c.maxY = c.minY
	}
	return c
}

// cellLimit keeps float to int conversion defined for far away or infinite
// coordinates.
const cellLimit = 1 << 30

func toCell(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > cellLimit:
		return cellLimit
	case v < -cellLimit:
		return -cellLimit
	}
	return int(v)
}

func (g *Grid[T]) clamp(c cellRange) cellRange {
	out := cellRange{
		minX: max(c.minX, 0),
		minY: max(c.minY, 0),
		maxX: min(c.maxX, g.width-1),
		maxY: min(c.maxY, g.height-1),
	}
	if out.empty() {
		return noCells
	}
	return out
}

// touchesBorder reports whether a query over raw has to visit the outer set.
func (g *Grid[T]) touchesBorder(raw cellRange) bool {
	return raw.minX <= 0 || raw.minY <= 0 || raw.maxX >= g.width-1 || raw.maxY >= g.height-1
}

func (g *Grid[T]) moveCells(h Handle, o *object[T], next cellRange) {
	prev := o.covered

	// Leave cells outside the new range.
	kept := o.cells[:0]
	for _, ci := range o.cells {
		x, y := int(ci)%g.width, int(ci)/g.width
		if next.contains(x, y) {
			kept = append(kept, ci)
			continue
		}
		g.cells[ci] = removeHandle(g.cells[ci], h)
	}
	o.cells = kept

	// Join cells that were not covered before.
	if !next.empty() {
		for y := next.minY; y <= next.maxY; y++ {
			for x := next.minX; x <= next.maxX; x++ {
				if prev.contains(x, y) {
					continue
				}
				ci := int32(y*g.width + x)
				g.cells[ci] = append(g.cells[ci], h)
				o.cells = append(o.cells, ci)
			}
		}
	}
	o.covered = next
}

func (g *Grid[T]) clearCells(h Handle, o *object[T]) {
	for _, ci := range o.cells {
		g.cells[ci] = removeHandle(g.cells[ci], h)
	}
	o.cells = o.cells[:0]
	o.covered = noCells
}

func (g *Grid[T]) setOuter(h Handle, o *object[T], outer bool) {
	if o.inOuter == outer {
		return
	}
	o.inOuter = outer
	if outer {
		g.outer = append(g.outer, h)
	} else {
		g.outer = removeHandle(g.outer, h)
	}
}

// removeHandle swap-removes h from s.
func removeHandle(s []Handle, h Handle) []Handle {
	for i := range s {
		if s[i] == h {
			last := len(s) - 1
			s[i] = s[last]
			s[last] = Handle{}
			return s[:last]
		}
	}
	return s
}
