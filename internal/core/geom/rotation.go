package geom

import "strings"

// Rotation is the orientation a tile is placed with. Quarter turns are
// clockwise on screen.
type Rotation uint8

const (
	Rot0 Rotation = iota
	Rot90
	Rot180
	Rot270
	FlipH
	FlipV
	FlipHV

	RotationCount
)

var rotationNames = [RotationCount]string{"0", "90", "180", "270", "fh", "fv", "fhv"}

func (r Rotation) String() string {
	if r >= RotationCount {
		return "invalid"
	}
	return rotationNames[r]
}

// ParseRotation accepts the names produced by String.
func ParseRotation(s string) (Rotation, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range rotationNames {
		if name == s {
			return Rotation(i), true
		}
	}
	return Rot0, false
}

// ApplyVector maps a direction through the rotation.
func (r Rotation) ApplyVector(v Vec2) Vec2 {
	x, y := v[0], v[1]
	switch r {
	case Rot90:
		return Vec2{-y, x}
	case Rot180, FlipHV:
		return Vec2{-x, -y}
	case Rot270:
		return Vec2{y, -x}
	case FlipH:
		return Vec2{-x, y}
	case FlipV:
		return Vec2{x, -y}
	default:
		return v
	}
}

// Apply maps a tile-local point (inside a size x size square with its
// origin at the top-left corner) through the rotation about the tile
// center.
func (r Rotation) Apply(p Vec2, size float64) Vec2 {
	h := size * 0.5
	c := Vec2{h, h}
	return r.ApplyVector(p.Sub(c)).Add(c)
}
