// Package shadow builds the shadow geometry of one light against the solid
// tiles of a layer. The triangles mark the area the light must not reach;
// the renderer writes them to a stencil mask before the light pass.
package shadow

import (
	"math"

	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/logging"
	"chosenoffset.com/lumen2d/internal/metrics"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

// Default buffer capacity.
const (
	DefaultMaxVertices = 8192
	DefaultMaxIndices  = 16384
)

// Options configures a Caster. Zero capacities select the defaults.
type Options struct {
	MaxVertices int
	MaxIndices  int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Result is the shadow geometry of one light. Vertices and Indices alias
// the caster's buffer and stay valid until the next Cast.
type Result struct {
	Vertices []geom.Vec2
	Indices  []uint16
	// Rect is the light's bounding square; every vertex lies inside it.
	Rect geom.Rect
	// Edges counts the casting edges found, Dropped the ones that did not
	// fit in the buffer.
	Edges   int
	Dropped int
}

// Triangles returns the number of shadow triangles.
func (r Result) Triangles() int {
	return len(r.Indices) / 3
}

// Caster builds shadow geometry into one reused buffer. It is not safe for
// concurrent use.
type Caster struct {
	buf     *Buffer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCaster creates a caster with its buffer.
func NewCaster(opts Options) *Caster {
	if opts.MaxVertices <= 0 {
		opts.MaxVertices = DefaultMaxVertices
	}
	if opts.MaxIndices <= 0 {
		opts.MaxIndices = DefaultMaxIndices
	}
	return &Caster{
		buf:     NewBuffer(opts.MaxVertices, opts.MaxIndices),
		logger:  logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}
}

// Occluded reports whether p lies strictly inside the rotated mesh of a
// shadow casting tile of layer. A light there is hidden for the frame.
func (c *Caster) Occluded(p geom.Vec2, layer *tilemap.Layer) bool {
	if layer == nil {
		return false
	}
	tile, origin, ok := layer.TileAtPoint(p)
	if !ok || !tile.CastsShadow() {
		return false
	}
	return tile.Mesh().ContainsPoint(p.Sub(origin))
}

// Casts reports whether e throws a shadow from a light at the tile-local
// position light: the edge must face away from it.
func Casts(e geom.ShadowEdge, light geom.Vec2) bool {
	return e.Normal.Dot(light.Sub(e.Mid)) < 0
}

// Cast builds the shadow triangles of a light at center with the given far
// radius against the shadow casting tiles of layer. A radius that is not
// positive casts nothing.
func (c *Caster) Cast(center geom.Vec2, radius float64, layer *tilemap.Layer) Result {
	c.buf.Reset()
	res := Result{}
	if radius <= 0 || layer == nil {
		return res
	}
	res.Rect = geom.RectAround(center, radius, radius)

	for origin, tile := range layer.TilesIn(res.Rect) {
		if !tile.CastsShadow() {
			continue
		}
		mesh := tile.Mesh()
		tileRect := mesh.Bounds().Translate(origin)
		if !tileRect.Intersects(res.Rect) {
			continue
		}
		clamp := !res.Rect.Contains(tileRect)
		local := center.Sub(origin)

		for _, e := range tile.Edges() {
			if !Casts(e, local) {
				continue
			}
			res.Edges++
			p0 := mesh.Positions[e.Start].Add(origin)
			p1 := mesh.Positions[e.End].Add(origin)
			if !c.emit(center, res.Rect, p0, p1, e.Mid.Add(origin), clamp) {
				res.Dropped++
			}
		}
	}

	res.Vertices = c.buf.Vertices
	res.Indices = c.buf.Indices
	c.metrics.Shadow(res.Triangles(), res.Dropped)
	if res.Dropped > 0 {
		c.logger.Debug("shadow buffer full, dropped casting edges",
			zap.Int("dropped", res.Dropped),
			zap.Int("edges", res.Edges),
			zap.Float64("x", center[0]),
			zap.Float64("y", center[1]))
	}
	return res
}

type side int

const (
	sideLeft side = iota
	sideRight
	sideTop
	sideBottom
)

// project pushes p away from center onto the square rect. The exit side
// follows the dominant axis of the ray from center through p.
func project(center, p geom.Vec2, rect geom.Rect) (geom.Vec2, side) {
	d := p.Sub(center)
	half := rect.Dx() * 0.5
	if math.Abs(d[0]) >= math.Abs(d[1]) {
		if d[0] == 0 {
			return p, sideRight
		}
		t := half / math.Abs(d[0])
		if d[0] < 0 {
			return geom.V(rect.Min[0], center[1]+d[1]*t), sideLeft
		}
		return geom.V(rect.Max[0], center[1]+d[1]*t), sideRight
	}
	t := half / math.Abs(d[1])
	if d[1] < 0 {
		return geom.V(center[0]+d[0]*t, rect.Min[1]), sideTop
	}
	return geom.V(center[0]+d[0]*t, rect.Max[1]), sideBottom
}

func horizontal(s side) bool {
	return s == sideLeft || s == sideRight
}

// corner returns the square corner shared by a left/right side and a
// top/bottom side.
func corner(rect geom.Rect, a, b side) geom.Vec2 {
	if !horizontal(a) {
		a, b = b, a
	}
	var p geom.Vec2
	if a == sideLeft {
		p[0] = rect.Min[0]
	} else {
		p[0] = rect.Max[0]
	}
	if b == sideTop {
		p[1] = rect.Min[1]
	} else {
		p[1] = rect.Max[1]
	}
	return p
}

// emit appends the shadow of the edge p0-p1. The polygon runs near0, near1,
// far1, the square corners between the far points, far0. It is convex, so
// it is written as a fan. It reports false when the polygon does not fit.
func (c *Caster) emit(center geom.Vec2, rect geom.Rect, p0, p1, mid geom.Vec2, clamp bool) bool {
	if clamp {
		p0 = rect.Clamp(p0)
		p1 = rect.Clamp(p1)
	}
	f0, s0 := project(center, p0, rect)
	f1, s1 := project(center, p1, rect)
	if clamp {
		f0 = rect.Clamp(f0)
		f1 = rect.Clamp(f1)
	}

	var poly [MaxEdgeVertices]geom.Vec2
	n := 0
	add := func(p geom.Vec2) {
		poly[n] = p
		n++
	}
	add(p0)
	add(p1)
	add(f1)
	switch {
	case s0 == s1:
	case horizontal(s0) != horizontal(s1):
		add(corner(rect, s0, s1))
	default:
		// Opposite sides: the wedge wraps around the side the edge lies on.
		dir := mid.Sub(center)
		var across side
		if horizontal(s0) {
			across = sideBottom
			if dir[1] < 0 {
				across = sideTop
			}
		} else {
			across = sideRight
			if dir[0] < 0 {
				across = sideLeft
			}
		}
		add(corner(rect, s1, across))
		add(corner(rect, s0, across))
	}
	add(f0)

	if !c.buf.fits(n, (n-2)*3) {
		return false
	}
	c.buf.fan(poly[:n]...)
	return true
}
