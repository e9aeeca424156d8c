package grid

import (
	"iter"

	"chosenoffset.com/lumen2d/internal/core/geom"
)

const (
	phaseGlobal = iota
	phaseOuter
	phaseCells
	phaseDone
)

// Query is a lazy, duplicate-free traversal of the objects overlapping a
// rect. It visits the global set, then the outer set when the rect touches
// the grid border, then every covered cell.
//
// Each query carries its own generation. Starting another query on the same
// grid invalidates this one: Next then reports false.
type Query[T any] struct {
	g          *Grid[T]
	gen        uint32
	cells      cellRange
	visitOuter bool

	phase int
	i     int
	x, y  int
}

// Query starts a traversal over r. An empty r yields no cell-local objects
// but still visits the global and outer sets.
func (g *Grid[T]) Query(r geom.Rect) Query[T] {
	g.generation++
	if g.generation == 0 {
		// Wrapped: forget every mark so no object looks already seen.
		for i := range g.objects {
			g.objects[i].lastSeen = 0
		}
		g.generation = 1
	}
	g.stats.Queries++

	q := Query[T]{g: g, gen: g.generation, cells: noCells, visitOuter: true}
	if !r.Empty() {
		raw := g.cellRangeOf(r)
		q.cells = g.clamp(raw)
		q.visitOuter = g.touchesBorder(raw)
	}
	q.x, q.y = q.cells.minX, q.cells.minY
	return q
}

// Next returns the next unseen object.
func (q *Query[T]) Next() (Handle, T, bool) {
	var zero T
	if q.g == nil || q.gen != q.g.generation {
		q.phase = phaseDone
		return Handle{}, zero, false
	}

	for q.phase != phaseDone {
		var set []Handle
		switch q.phase {
		case phaseGlobal:
			set = q.g.global
		case phaseOuter:
			if q.visitOuter {
				set = q.g.outer
			}
		case phaseCells:
			if q.cells.empty() || q.y > q.cells.maxY {
				q.phase = phaseDone
				continue
			}
			set = q.g.cells[q.y*q.g.width+q.x]
		}

		for q.i < len(set) {
			h := set[q.i]
			q.i++
			o := &q.g.objects[h.index]
			if o.lastSeen == q.gen {
				continue
			}
			o.lastSeen = q.gen
			q.g.stats.Yielded++
			return h, o.value, true
		}

		q.i = 0
		if q.phase == phaseCells {
			q.x++
			if q.x > q.cells.maxX {
				q.x = q.cells.minX
				q.y++
			}
			continue
		}
		q.phase++
	}
	return Handle{}, zero, false
}

// All adapts the query to a range-over-func loop.
func (q *Query[T]) All() iter.Seq2[Handle, T] {
	return func(yield func(Handle, T) bool) {
		for {
			h, v, ok := q.Next()
			if !ok || !yield(h, v) {
				return
			}
		}
	}
}

// Collect appends every remaining value to dst.
func (q *Query[T]) Collect(dst []T) []T {
	for {
		_, v, ok := q.Next()
		if !ok {
			return dst
		}
		dst = append(dst, v)
	}
}

// Stats counts grid activity since creation.
type Stats struct {
	Queries uint64
	Yielded uint64
	Global  int
	Outer   int
	Objects int
}

// Stats returns a snapshot of the grid counters.
func (g *Grid[T]) Stats() Stats {
	s := g.stats
	s.Global = len(g.global)
	s.Outer = len(g.outer)
	s.Objects = g.count
	return s
}
