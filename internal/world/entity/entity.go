// Package entity holds the movable things of a world: the transform and
// bounds shared by everything, collision bodies and drawable sprites.
package entity

import (
	"github.com/go-gl/mathgl/mgl64"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/core/grid"
)

// Tracker receives an entity's new world bounds after every transform
// change. *grid.Grid satisfies it for any value type.
type Tracker interface {
	Update(h grid.Handle, r geom.Rect)
}

// Entity is a transform plus the world AABB derived from it. When a shape is
// attached the AABB is the bounds of the transformed shape, otherwise the
// bounds of the transformed local rect.
//
// Every mutation recomputes the AABB and forwards it to the tracker, which
// keeps spatial grid membership current.
type Entity struct {
	position geom.Vec2
	rotation float64
	scale    geom.Vec2

	local geom.Rect
	base  *geom.Mesh
	mesh  geom.Mesh
	aabb  geom.Rect

	tracker Tracker
	handle  grid.Handle
}

// NewEntity returns an entity at the origin with the given local bounds.
func NewEntity(local geom.Rect) *Entity {
	e := &Entity{}
	e.Reset(local)
	return e
}

// Reset puts e back at the origin with unit scale and the given local
// bounds. It keeps the tracker.
func (e *Entity) Reset(local geom.Rect) {
	e.position = geom.Vec2{}
	e.rotation = 0
	e.scale = geom.V(1, 1)
	e.local = local
	e.recompute()
}

// SetShape attaches a local collision mesh. The entity keeps the pointer;
// the caller must not modify base afterwards. A nil base detaches it.
func (e *Entity) SetShape(base *geom.Mesh) {
	e.base = base
	if base != nil {
		e.local = base.Bounds()
	}
	e.recompute()
}

// SetLocalBounds replaces the local rect used when no shape is attached.
func (e *Entity) SetLocalBounds(r geom.Rect) {
	e.local = r
	e.recompute()
}

// Position returns the world position.
func (e *Entity) Position() geom.Vec2 { return e.position }

// Rotation returns the rotation in radians.
func (e *Entity) Rotation() float64 { return e.rotation }

// Scale returns the scale factors.
func (e *Entity) Scale() geom.Vec2 { return e.scale }

// AABB returns the world bounds.
func (e *Entity) AABB() geom.Rect { return e.aabb }

// Mesh returns the world-space collision mesh, or nil without a shape.
func (e *Entity) Mesh() *geom.Mesh {
	if e.base == nil {
		return nil
	}
	return &e.mesh
}

// Handle returns the grid handle set by Track.
func (e *Entity) Handle() grid.Handle { return e.handle }

// SetPosition moves the entity.
func (e *Entity) SetPosition(p geom.Vec2) {
	e.position = p
	e.recompute()
}

// Translate moves the entity by d.
func (e *Entity) Translate(d geom.Vec2) {
	e.position = e.position.Add(d)
	e.recompute()
}

// SetRotation sets the rotation in radians.
func (e *Entity) SetRotation(rad float64) {
	e.rotation = rad
	e.recompute()
}

// SetScale sets the scale factors.
func (e *Entity) SetScale(s geom.Vec2) {
	e.scale = s
	e.recompute()
}

// Matrix returns the local to world transform.
func (e *Entity) Matrix() mgl64.Mat3 {
	return mgl64.Translate2D(e.position[0], e.position[1]).
		Mul3(mgl64.HomogRotate2D(e.rotation)).
		Mul3(mgl64.Scale2D(e.scale[0], e.scale[1]))
}

// Track registers t to receive bounds changes under h and pushes the
// current bounds right away.
func (e *Entity) Track(t Tracker, h grid.Handle) {
	e.tracker = t
	e.handle = h
	if t != nil {
		t.Update(h, e.aabb)
	}
}

// Untrack stops forwarding bounds changes.
func (e *Entity) Untrack() {
	e.tracker = nil
	e.handle = grid.Handle{}
}

func (e *Entity) recompute() {
	xf := e.Matrix()
	if e.base != nil {
		e.mesh.SetTransformed(e.base, xf)
		e.aabb = e.mesh.Bounds()
	} else {
		e.aabb = transformRect(e.local, xf)
	}
	if e.tracker != nil {
		e.tracker.Update(e.handle, e.aabb)
	}
}

func transformRect(r geom.Rect, xf mgl64.Mat3) geom.Rect {
	corners := [4]geom.Vec2{r.Min, {r.Max[0], r.Min[1]}, r.Max, {r.Min[0], r.Max[1]}}
	var out geom.Rect
	for i, c := range corners {
		p := xf.Mul3x1(c.Vec3(1)).Vec2()
		if i == 0 {
			out = geom.Rect{Min: p, Max: p}
			continue
		}
		out = out.Union(geom.Rect{Min: p, Max: p})
	}
	return out
}
