package shadow

import (
	"math"

	"chosenoffset.com/lumen2d/internal/core/geom"
)

// Worst case for one casting edge: two near points, two far points and two
// square corners, fanned into four triangles.
const (
	MaxEdgeVertices = 6
	MaxEdgeIndices  = 12
)

// Buffer is the reusable vertex and index storage of a caster. Capacity is
// fixed at creation; Reset keeps the memory.
type Buffer struct {
	Vertices []geom.Vec2
	Indices  []uint16

	maxVertices int
	maxIndices  int
}

// NewBuffer allocates a buffer. Vertex capacity is capped to what 16 bit
// indices can address.
func NewBuffer(maxVertices, maxIndices int) *Buffer {
	maxVertices = min(max(maxVertices, 0), math.MaxUint16+1)
	maxIndices = max(maxIndices, 0)
	return &Buffer{
		Vertices:    make([]geom.Vec2, 0, maxVertices),
		Indices:     make([]uint16, 0, maxIndices),
		maxVertices: maxVertices,
		maxIndices:  maxIndices,
	}
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.Vertices = b.Vertices[:0]
	b.Indices = b.Indices[:0]
}

// Cap returns the vertex and index capacity.
func (b *Buffer) Cap() (vertices, indices int) {
	return b.maxVertices, b.maxIndices
}

// Triangles returns the number of complete triangles.
func (b *Buffer) Triangles() int {
	return len(b.Indices) / 3
}

// fits reports whether nv more vertices and ni more indices fit.
func (b *Buffer) fits(nv, ni int) bool {
	return len(b.Vertices)+nv <= b.maxVertices && len(b.Indices)+ni <= b.maxIndices
}

// fan appends a convex polygon as a triangle fan around its first point.
// The caller checks fits first.
func (b *Buffer) fan(points ...geom.Vec2) {
	base := uint16(len(b.Vertices))
	b.Vertices = append(b.Vertices, points...)
	for i := 1; i+1 < len(points); i++ {
		b.Indices = append(b.Indices, base, base+uint16(i), base+uint16(i+1))
	}
}
