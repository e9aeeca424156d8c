// Package world ties the tile map, the bodies, the sprites and the lights
// together and steps them once per frame.
package world

import (
	"fmt"
	"image/color"
	"slices"

	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/core/grid"
	"chosenoffset.com/lumen2d/internal/logging"
	"chosenoffset.com/lumen2d/internal/metrics"
	"chosenoffset.com/lumen2d/internal/physics/collide"
	"chosenoffset.com/lumen2d/internal/render/lighting"
	"chosenoffset.com/lumen2d/internal/world/entity"
	"chosenoffset.com/lumen2d/internal/world/material"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

// Body categories used by the demo. Bit 0 is entity.FlagTile.
const (
	FlagProp   entity.Flags = 1 << 1
	FlagPlayer entity.Flags = 1 << 2
)

// Options configures a World.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Grid sets cell size and spans; the extent always covers the map.
	Grid grid.Config
	// Ambient, when not zero, is the color of unlit areas.
	Ambient color.NRGBA
}

// Positioner is anything that can be moved along with a body. Sprites and
// lights both are.
type Positioner interface {
	SetPosition(p geom.Vec2)
}

type follower struct {
	target *entity.Body
	obj    Positioner
	offset geom.Vec2
}

// UpdateStats summarizes one Update call.
type UpdateStats struct {
	Bodies   int // active bodies stepped
	Moved    int // bodies with a non-zero velocity
	Contacts int // bodies that ended up pushed
}

// World owns every object of a level. It is frame synchronous: Update
// mutates, rendering only reads.
type World struct {
	Map *tilemap.Map

	bodies   *grid.Grid[*entity.Body]
	sprites  *grid.Grid[*entity.Sprite]
	lights   *lighting.Set
	collider *collide.Collider

	bodyList  []*entity.Body
	followers []follower

	logger *zap.Logger
	frame  uint64
}

// New builds a world for m and places the lights the map defines.
func New(m *tilemap.Map, opts Options) (*World, error) {
	if m == nil {
		return nil, fmt.Errorf("world needs a map")
	}
	cfg := opts.Grid
	if cfg.CellSize <= 0 {
		cfg = grid.DefaultConfig()
	}
	cfg.Extent = m.Bounds().Max

	w := &World{
		Map:     m,
		bodies:  grid.New[*entity.Body](cfg),
		sprites: grid.New[*entity.Sprite](cfg),
		lights:  lighting.NewSet(cfg),
		logger:  logging.OrNop(opts.Logger),
	}
	w.collider = collide.New(m, w.bodies, collide.Options{Logger: opts.Logger, Metrics: opts.Metrics})
	if opts.Ambient != (color.NRGBA{}) {
		w.lights.SetAmbientColor(opts.Ambient)
		w.lights.SetAmbientLight(1)
	}

	for i, def := range m.Lights {
		l, err := lightFromDef(fmt.Sprintf("%s-%d", m.Name, i), def)
		if err != nil {
			return nil, fmt.Errorf("map %s light %d: %w", m.Name, i, err)
		}
		w.lights.Add(l)
	}

	for _, p := range m.Props {
		w.addProp(p)
	}

	opts.Metrics.RegisterGrid("bodies", w.bodies)
	opts.Metrics.RegisterGrid("sprites", w.sprites)
	opts.Metrics.RegisterGrid("lights", w.lights.Grid())

	w.logger.Info("world created",
		zap.String("map", m.Name),
		zap.Int("width", m.Width),
		zap.Int("height", m.Height),
		zap.Int("lights", w.lights.Len()),
		zap.Float64("cell_size", cfg.CellSize),
	)
	return w, nil
}

func lightFromDef(name string, def tilemap.LightDef) (*lighting.Light, error) {
	l := lighting.NewLight(name, def.Position, def.FarRadius)
	l.SetRadius(def.NearRadius, def.FarRadius)
	if def.Color != "" {
		c, err := material.ParseColor(def.Color)
		if err != nil {
			return nil, err
		}
		l.Color = c
	}
	l.Intensity = def.Intensity
	l.CastShadows = def.CastShadows
	l.AffectMaterial = def.AffectMaterial
	return l, nil
}

// addProp places a sprite; solid props get a static body the sprite
// follows.
func (w *World) addProp(p tilemap.PropDef) {
	s := entity.NewSprite(p.Name, p.Size[0], p.Size[1], p.Material)
	s.SetPosition(p.Position)
	w.AddSprite(s)
	if !p.Solid {
		return
	}
	b := entity.NewBoxBody(p.Name, p.Size[0], p.Size[1])
	b.CollideType = FlagProp
	b.SetPosition(p.Position)
	w.AddBody(b)
	w.Follow(b, s, geom.Vec2{})
}

// Lights returns the light set.
func (w *World) Lights() *lighting.Set { return w.lights }

// Collider returns the collider over the map and the bodies.
func (w *World) Collider() *collide.Collider { return w.collider }

// Bodies returns the bodies in insertion order.
func (w *World) Bodies() []*entity.Body { return w.bodyList }

// Frame returns the number of completed updates.
func (w *World) Frame() uint64 { return w.frame }

// AddBody indexes b and steps it from the next Update on.
func (w *World) AddBody(b *entity.Body) {
	if w.hasBody(b) {
		return
	}
	b.Track(w.bodies, w.bodies.Add(b))
	w.bodyList = append(w.bodyList, b)
}

// RemoveBody drops b and everything following it.
func (w *World) RemoveBody(b *entity.Body) {
	if !w.hasBody(b) {
		return
	}
	w.bodies.Remove(b.Handle())
	b.Untrack()
	w.bodyList = slices.DeleteFunc(w.bodyList, func(o *entity.Body) bool { return o == b })
	w.followers = slices.DeleteFunc(w.followers, func(f follower) bool { return f.target == b })
}

func (w *World) hasBody(b *entity.Body) bool {
	v, ok := w.bodies.Value(b.Handle())
	return ok && v == b
}

// AddSprite indexes s for drawing and lighting.
func (w *World) AddSprite(s *entity.Sprite) {
	if v, ok := w.sprites.Value(s.Handle()); ok && v == s {
		return
	}
	s.Track(w.sprites, w.sprites.Add(s))
}

// RemoveSprite drops s.
func (w *World) RemoveSprite(s *entity.Sprite) {
	if v, ok := w.sprites.Value(s.Handle()); !ok || v != s {
		return
	}
	w.sprites.Remove(s.Handle())
	s.Untrack()
	w.followers = slices.DeleteFunc(w.followers, func(f follower) bool { return f.obj == Positioner(s) })
}

// AddLight adds l to the light set.
func (w *World) AddLight(l *lighting.Light) {
	w.lights.Add(l)
}

// RemoveLight drops l from the light set.
func (w *World) RemoveLight(l *lighting.Light) {
	w.lights.Remove(l)
	w.followers = slices.DeleteFunc(w.followers, func(f follower) bool { return f.obj == Positioner(l) })
}

// Follow keeps obj at target's position plus offset after every Update.
func (w *World) Follow(target *entity.Body, obj Positioner, offset geom.Vec2) {
	w.followers = append(w.followers, follower{target: target, obj: obj, offset: offset})
	obj.SetPosition(target.Position().Add(offset))
}

// Update moves every active body by its velocity, pushes it out of tiles
// and other bodies, then moves followers.
func (w *World) Update(dt float64) UpdateStats {
	var stats UpdateStats
	for _, b := range w.bodyList {
		if !b.Active {
			continue
		}
		stats.Bodies++
		if b.Velocity != (geom.Vec2{}) {
			stats.Moved++
			b.Translate(b.Velocity.Mul(dt))
		}
		if w.collider.CollideBody(b) != 0 {
			stats.Contacts++
		}
	}
	for _, f := range w.followers {
		f.obj.SetPosition(f.target.Position().Add(f.offset))
	}
	w.frame++
	return stats
}

// QueryObjects appends every sprite overlapping r to dst.
func (w *World) QueryObjects(r geom.Rect, dst []*entity.Sprite) []*entity.Sprite {
	for _, s := range w.sprites.Query(r).All() {
		if s.AABB().Intersects(r) {
			dst = append(dst, s)
		}
	}
	return dst
}

// ShadowLayer returns the layer lights are gated and shadowed by.
func (w *World) ShadowLayer() *tilemap.Layer {
	return w.Map.ShadowLayer()
}

// Bounds returns the world rect covered by the map.
func (w *World) Bounds() geom.Rect {
	return w.Map.Bounds()
}
