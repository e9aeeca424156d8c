// Package geom holds the 2D primitives shared by the grid, the collider and
// the shadow caster: vectors, axis-aligned rectangles, convex meshes and the
// per-rotation shadow edge lists derived from them.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 is a point or direction in world space (y grows downwards).
type Vec2 = mgl64.Vec2

// V is shorthand for building a Vec2.
func V(x, y float64) Vec2 {
	return Vec2{x, y}
}

// Perp returns v rotated by a quarter turn.
func Perp(v Vec2) Vec2 {
	return Vec2{-v[1], v[0]}
}

// Rect is an axis-aligned bounding box. A rect whose Max is not strictly
// greater than Min on both axes is empty.
type Rect struct {
	Min, Max Vec2
}

// R builds a rect from two corners.
func R(x0, y0, x1, y1 float64) Rect {
	return Rect{Min: Vec2{x0, y0}, Max: Vec2{x1, y1}}
}

// RectAt builds a rect from its top-left corner and size.
func RectAt(pos Vec2, w, h float64) Rect {
	return Rect{Min: pos, Max: Vec2{pos[0] + w, pos[1] + h}}
}

// RectAround builds a rect centered on c with the given half extents.
func RectAround(c Vec2, halfW, halfH float64) Rect {
	return Rect{Min: Vec2{c[0] - halfW, c[1] - halfH}, Max: Vec2{c[0] + halfW, c[1] + halfH}}
}

// Dx returns the width.
func (r Rect) Dx() float64 { return r.Max[0] - r.Min[0] }

// Dy returns the height.
func (r Rect) Dy() float64 { return r.Max[1] - r.Min[1] }

// Empty reports whether the rect has zero or negative extent on any axis.
func (r Rect) Empty() bool {
	return !(r.Max[0] > r.Min[0] && r.Max[1] > r.Min[1])
}

// Center returns the midpoint of the rect.
func (r Rect) Center() Vec2 {
	return Vec2{(r.Min[0] + r.Max[0]) * 0.5, (r.Min[1] + r.Max[1]) * 0.5}
}

// Intersects reports strict overlap; rects that only share an edge do not
// intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.Min[0] < o.Max[0] && o.Min[0] < r.Max[0] &&
		r.Min[1] < o.Max[1] && o.Min[1] < r.Max[1]
}

// Contains reports whether o lies completely inside r (edges inclusive).
func (r Rect) Contains(o Rect) bool {
	return o.Min[0] >= r.Min[0] && o.Max[0] <= r.Max[0] &&
		o.Min[1] >= r.Min[1] && o.Max[1] <= r.Max[1]
}

// ContainsPoint reports whether p lies inside r (edges inclusive).
func (r Rect) ContainsPoint(p Vec2) bool {
	return p[0] >= r.Min[0] && p[0] <= r.Max[0] && p[1] >= r.Min[1] && p[1] <= r.Max[1]
}

// Translate returns r moved by d.
func (r Rect) Translate(d Vec2) Rect {
	return Rect{Min: r.Min.Add(d), Max: r.Max.Add(d)}
}

// Union returns the smallest rect containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: Vec2{math.Min(r.Min[0], o.Min[0]), math.Min(r.Min[1], o.Min[1])},
		Max: Vec2{math.Max(r.Max[0], o.Max[0]), math.Max(r.Max[1], o.Max[1])},
	}
}

// Intersect returns the overlapping part of r and o, which may be empty.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		Min: Vec2{math.Max(r.Min[0], o.Min[0]), math.Max(r.Min[1], o.Min[1])},
		Max: Vec2{math.Min(r.Max[0], o.Max[0]), math.Min(r.Max[1], o.Max[1])},
	}
}

// Clamp moves p to the nearest point inside r.
func (r Rect) Clamp(p Vec2) Vec2 {
	return Vec2{clamp(p[0], r.Min[0], r.Max[0]), clamp(p[1], r.Min[1], r.Max[1])}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
