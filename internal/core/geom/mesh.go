package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh is a closed convex polygon. Positions and Normals always have the
// same length; edge i runs from vertex i to vertex (i+1)%N and Normals[i]
// is its unit outward normal.
//
// A mesh with two vertices is a segment whose two edges face opposite ways.
type Mesh struct {
	Positions []Vec2
	Normals   []Vec2
}

// NewMesh copies points into a new mesh and computes its outward normals.
// Points may wind either way.
func NewMesh(points ...Vec2) *Mesh {
	m := &Mesh{
		Positions: make([]Vec2, len(points)),
		Normals:   make([]Vec2, len(points)),
	}
	copy(m.Positions, points)
	m.computeNormals()
	return m
}

// NewBoxMesh returns a four vertex mesh covering r.
func NewBoxMesh(r Rect) *Mesh {
	m := &Mesh{}
	m.SetRect(r)
	return m
}

// Len returns the number of vertices (and edges).
func (m *Mesh) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Positions)
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	c := &Mesh{
		Positions: make([]Vec2, len(m.Positions)),
		Normals:   make([]Vec2, len(m.Normals)),
	}
	copy(c.Positions, m.Positions)
	copy(c.Normals, m.Normals)
	return c
}

// SetRect reshapes m into the axis-aligned box r, reusing its storage.
func (m *Mesh) SetRect(r Rect) {
	m.resize(4)
	m.Positions[0] = r.Min
	m.Positions[1] = Vec2{r.Max[0], r.Min[1]}
	m.Positions[2] = r.Max
	m.Positions[3] = Vec2{r.Min[0], r.Max[1]}
	m.computeNormals()
}

// SetSegment reshapes m into the segment a-b, reusing its storage.
func (m *Mesh) SetSegment(a, b Vec2) {
	m.resize(2)
	m.Positions[0] = a
	m.Positions[1] = b
	m.computeNormals()
}

// SetTranslated overwrites m with src moved by offset. Normals are copied
// unchanged.
func (m *Mesh) SetTranslated(src *Mesh, offset Vec2) {
	m.resize(src.Len())
	for i, p := range src.Positions {
		m.Positions[i] = p.Add(offset)
	}
	copy(m.Normals, src.Normals)
}

// SetTransformed overwrites m with src mapped through the homogeneous 2D
// matrix xf. Normals are recomputed since xf may scale non-uniformly.
func (m *Mesh) SetTransformed(src *Mesh, xf mgl64.Mat3) {
	m.resize(src.Len())
	for i, p := range src.Positions {
		m.Positions[i] = xf.Mul3x1(p.Vec3(1)).Vec2()
	}
	m.computeNormals()
}

// SetRotated overwrites m with src rotated inside a square tile of the given
// size.
func (m *Mesh) SetRotated(src *Mesh, rot Rotation, size float64) {
	m.resize(src.Len())
	for i, p := range src.Positions {
		m.Positions[i] = rot.Apply(p, size)
	}
	m.computeNormals()
}

// Bounds returns the axis-aligned box around the vertices.
func (m *Mesh) Bounds() Rect {
	if m.Len() == 0 {
		return Rect{}
	}
	r := Rect{Min: m.Positions[0], Max: m.Positions[0]}
	for _, p := range m.Positions[1:] {
		r.Min[0] = math.Min(r.Min[0], p[0])
		r.Min[1] = math.Min(r.Min[1], p[1])
		r.Max[0] = math.Max(r.Max[0], p[0])
		r.Max[1] = math.Max(r.Max[1], p[1])
	}
	return r
}

// Project returns the interval covered by the vertices along axis.
func (m *Mesh) Project(axis Vec2) (lo, hi float64) {
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for _, p := range m.Positions {
		d := p.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// Centroid returns the vertex average.
func (m *Mesh) Centroid() Vec2 {
	var c Vec2
	if m.Len() == 0 {
		return c
	}
	for _, p := range m.Positions {
		c = c.Add(p)
	}
	return c.Mul(1 / float64(len(m.Positions)))
}

// ContainsPoint reports whether p lies strictly inside the polygon, i.e.
// behind every edge.
func (m *Mesh) ContainsPoint(p Vec2) bool {
	if m.Len() < 3 {
		return false
	}
	for i, n := range m.Normals {
		if n.Dot(p.Sub(m.Positions[i])) >= 0 {
			return false
		}
	}
	return true
}

// Convex reports whether the vertices form a convex polygon with non-zero
// area. Collinear vertices are tolerated.
func (m *Mesh) Convex() bool {
	n := m.Len()
	if n < 3 {
		return false
	}
	if signedArea(m.Positions) == 0 {
		return false
	}
	var sign float64
	for i := 0; i < n; i++ {
		a := m.Positions[i]
		b := m.Positions[(i+1)%n]
		c := m.Positions[(i+2)%n]
		cross := (b[0]-a[0])*(c[1]-b[1]) - (b[1]-a[1])*(c[0]-b[0])
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
			continue
		}
		if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}

func (m *Mesh) resize(n int) {
	if cap(m.Positions) < n {
		m.Positions = make([]Vec2, n)
	}
	if cap(m.Normals) < n {
		m.Normals = make([]Vec2, n)
	}
	m.Positions = m.Positions[:n]
	m.Normals = m.Normals[:n]
}

func (m *Mesh) computeNormals() {
	n := len(m.Positions)
	switch {
	case n == 0:
		return
	case n == 1:
		m.Normals[0] = Vec2{}
		return
	case n == 2:
		d := m.Positions[1].Sub(m.Positions[0])
		nrm := unit(Vec2{d[1], -d[0]})
		m.Normals[0] = nrm
		m.Normals[1] = nrm.Mul(-1)
		return
	}

	// Counter-clockwise in math orientation has its outside on the right
	// of each edge.
	sign := 1.0
	if signedArea(m.Positions) < 0 {
		sign = -1
	}
	for i := 0; i < n; i++ {
		d := m.Positions[(i+1)%n].Sub(m.Positions[i])
		m.Normals[i] = unit(Vec2{d[1] * sign, -d[0] * sign})
	}
}

func signedArea(pts []Vec2) float64 {
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i][0]*pts[j][1] - pts[j][0]*pts[i][1]
	}
	return a * 0.5
}

func unit(v Vec2) Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return v.Mul(1 / l)
}
