// Package lighting holds the lights of a world and the collection the
// renderer queries by view rect.
package lighting

import (
	"image/color"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/core/grid"
	"chosenoffset.com/lumen2d/internal/world/entity"
)

// DefaultColor is a warm torch light.
var DefaultColor = color.NRGBA{R: 255, G: 200, B: 100, A: 255}

// Light is a point light. Its bounding square is centered on the position
// with a half side of FarRadius; light fades from full at NearRadius to
// nothing at FarRadius.
type Light struct {
	entity.Entity

	Name       string
	NearRadius float64
	FarRadius  float64
	Intensity  float64 // 0.0 to 1.0
	Color      color.NRGBA

	CastShadows    bool
	AffectMaterial bool
	Active         bool
}

// NewLight creates an active, shadow casting light at pos.
func NewLight(name string, pos geom.Vec2, radius float64) *Light {
	l := &Light{
		Name:           name,
		Intensity:      1,
		Color:          DefaultColor,
		CastShadows:    true,
		AffectMaterial: true,
		Active:         true,
	}
	l.Reset(geom.Rect{})
	l.SetPosition(pos)
	l.SetRadius(0, radius)
	return l
}

// SetRadius sets the attenuation radii and refreshes the light's bounds.
func (l *Light) SetRadius(near, far float64) {
	l.NearRadius = near
	l.FarRadius = far
	if far > 0 {
		l.SetLocalBounds(geom.RectAround(geom.Vec2{}, far, far))
	} else {
		l.SetLocalBounds(geom.Rect{})
	}
}

// BoundingRect returns the square lit by l. It is empty when FarRadius is
// not positive.
func (l *Light) BoundingRect() geom.Rect {
	if l.FarRadius <= 0 {
		return geom.Rect{}
	}
	return geom.RectAround(l.Position(), l.FarRadius, l.FarRadius)
}

// Set is the light collection of a world. Lights are indexed in a spatial
// grid so the renderer only visits the ones overlapping its view.
type Set struct {
	grid         *grid.Grid[*Light]
	ambientLight float64     // 0.0 = pitch black, 1.0 = fully lit
	ambientColor color.NRGBA // color of unlit areas at full ambient level

	playerLight   *Light
	playerLightOn bool
}

// NewSet creates an empty light set indexed with cfg.
func NewSet(cfg grid.Config) *Set {
	return &Set{
		grid:         grid.New[*Light](cfg),
		ambientLight: 0.15,
		ambientColor: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Grid exposes the index for metrics.
func (s *Set) Grid() *grid.Grid[*Light] {
	return s.grid
}

// Len returns the number of lights, the player light included.
func (s *Set) Len() int {
	return s.grid.Len()
}

// Add indexes l. Moving or resizing l afterwards keeps the index current.
func (s *Set) Add(l *Light) {
	if s.has(l) {
		return
	}
	l.Track(s.grid, s.grid.Add(l))
}

// Remove drops l from the set.
func (s *Set) Remove(l *Light) {
	if !s.has(l) {
		return
	}
	s.grid.Remove(l.Handle())
	l.Untrack()
}

func (s *Set) has(l *Light) bool {
	v, ok := s.grid.Value(l.Handle())
	return ok && v == l
}

// Query appends to dst every active light whose bounding square overlaps
// r. The order follows the index and is stable between frames while lights
// do not move.
func (s *Set) Query(r geom.Rect, dst []*Light) []*Light {
	q := s.grid.Query(r)
	for _, l := range q.All() {
		if l.Active && l.BoundingRect().Intersects(r) {
			dst = append(dst, l)
		}
	}
	return dst
}

// SetAmbientLight sets the global ambient light level.
func (s *Set) SetAmbientLight(level float64) {
	s.ambientLight = min(max(level, 0), 1)
}

// GetAmbientLight returns the current ambient light level.
func (s *Set) GetAmbientLight() float64 {
	return s.ambientLight
}

// SetAmbientColor sets the tint of unlit areas.
func (s *Set) SetAmbientColor(c color.NRGBA) {
	s.ambientColor = c
}

// Ambient returns the ambient color scaled by the ambient level.
func (s *Set) Ambient() color.NRGBA {
	scale := func(v uint8) uint8 { return uint8(float64(v)*s.ambientLight + 0.5) }
	return color.NRGBA{
		R: scale(s.ambientColor.R),
		G: scale(s.ambientColor.G),
		B: scale(s.ambientColor.B),
		A: 255,
	}
}

// SetPlayerLight configures the player's equipped light. It stays out of
// the set until enabled.
func (s *Set) SetPlayerLight(pos geom.Vec2, radius, intensity float64, col color.NRGBA) *Light {
	if s.playerLight == nil {
		s.playerLight = NewLight("player", pos, radius)
	}
	s.playerLight.SetPosition(pos)
	s.playerLight.SetRadius(s.playerLight.NearRadius, radius)
	s.playerLight.Intensity = intensity
	s.playerLight.Color = col
	return s.playerLight
}

// EnablePlayerLight turns the player's light on or off.
func (s *Set) EnablePlayerLight(enabled bool) {
	s.playerLightOn = enabled
	if s.playerLight == nil {
		return
	}
	if enabled {
		s.Add(s.playerLight)
	} else {
		s.Remove(s.playerLight)
	}
}

// IsPlayerLightOn returns whether the player's light is currently on.
func (s *Set) IsPlayerLightOn() bool {
	return s.playerLightOn && s.playerLight != nil
}

// UpdatePlayerLightPosition moves the player's light; called each frame.
func (s *Set) UpdatePlayerLightPosition(pos geom.Vec2) {
	if s.playerLight != nil {
		s.playerLight.SetPosition(pos)
	}
}
