package entity

import (
	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/world/material"
)

// Flags is a collision category bitmask. Bit 0 stands for the tile world;
// the remaining bits are assigned by the game to body types.
type Flags uint32

// FlagTile is reported when a collision involved map tiles.
const FlagTile Flags = 1 << 0

// Body is an entity that collides with tiles and with other bodies.
type Body struct {
	Entity

	Name     string
	Velocity geom.Vec2
	Active   bool

	// CollideType is what this body is; other bodies test it against
	// their CollideMask.
	CollideType Flags
	// CollideMask selects the body types this body is pushed out of.
	CollideMask Flags

	// Contacts holds the flags of the last CollideBody call.
	Contacts Flags
	// LastPush holds the per-axis dominant push of the last CollideBody call.
	LastPush geom.Vec2
}

// NewBody creates an active body with the given local collision mesh.
func NewBody(name string, shape *geom.Mesh) *Body {
	b := &Body{Name: name, Active: true}
	b.Reset(shape.Bounds())
	b.SetShape(shape)
	return b
}

// NewBoxBody creates a body with a w x h box centered on its position.
func NewBoxBody(name string, w, h float64) *Body {
	return NewBody(name, geom.NewBoxMesh(geom.RectAround(geom.Vec2{}, w*0.5, h*0.5)))
}

// Sprite is a drawable rect in the world.
type Sprite struct {
	Entity

	Name     string
	Material *material.Material
	Visible  bool
}

// NewSprite creates a visible w x h sprite centered on its position.
func NewSprite(name string, w, h float64, m *material.Material) *Sprite {
	s := &Sprite{Name: name, Material: m, Visible: true}
	s.Reset(geom.RectAround(geom.Vec2{}, w*0.5, h*0.5))
	return s
}
