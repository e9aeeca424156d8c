// Package tilemap is the tile world the collider and the shadow caster read:
// a shared tileset of tile data and layers of rotated tile references.
package tilemap

import (
	"iter"
	"math"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/world/material"
)

// TileData is shared by every tile placed with the same tileset entry.
type TileData struct {
	Name     string
	Material *material.Material
	// Shape is nil for tiles without collision.
	Shape      *geom.Shape
	Properties map[string]interface{}
}

// Solid reports whether the tile has a collision mesh.
func (d *TileData) Solid() bool {
	return d != nil && d.Shape != nil
}

// CastsShadow reports whether the tile occludes lights.
func (d *TileData) CastsShadow() bool {
	return d.Solid() && d.Material.CastsShadow()
}

// GetPropertyBool returns a boolean property, or defaultValue when missing.
func (d *TileData) GetPropertyBool(key string, defaultValue bool) bool {
	if v, ok := d.Properties[key].(bool); ok {
		return v
	}
	return defaultValue
}

// GetPropertyString returns a string property, or defaultValue when missing.
func (d *TileData) GetPropertyString(key, defaultValue string) string {
	if v, ok := d.Properties[key].(string); ok {
		return v
	}
	return defaultValue
}

// Tile places shared data with a rotation. Geometry always comes from the
// data for the current rotation, so it can never be stale.
type Tile struct {
	Data     *TileData
	Rotation geom.Rotation
}

// Mesh returns the tile-local collision mesh, or nil.
func (t *Tile) Mesh() *geom.Mesh {
	if t == nil || t.Data == nil {
		return nil
	}
	return t.Data.Shape.Mesh(t.Rotation)
}

// Edges returns the shadow edges for the current rotation.
func (t *Tile) Edges() []geom.ShadowEdge {
	if t == nil || t.Data == nil {
		return nil
	}
	return t.Data.Shape.Edges(t.Rotation)
}

// CastsShadow reports whether the placed tile occludes lights.
func (t *Tile) CastsShadow() bool {
	return t != nil && t.Data.CastsShadow()
}

// Layer is a width x height array of tiles; nil entries are empty.
type Layer struct {
	Name string
	// Collide marks the layer for body and rect collision.
	Collide bool
	// CastShadows marks the layer as the map's shadow layer.
	CastShadows bool

	width, height int
	tileSize      float64
	tiles         []*Tile
}

// NewLayer creates an empty layer.
func NewLayer(name string, width, height int, tileSize float64) *Layer {
	return &Layer{
		Name:     name,
		width:    width,
		height:   height,
		tileSize: tileSize,
		tiles:    make([]*Tile, width*height),
	}
}

// Size returns the layer size in tiles.
func (l *Layer) Size() (width, height int) {
	return l.width, l.height
}

// TileSize returns the side of a tile in world units.
func (l *Layer) TileSize() float64 {
	return l.tileSize
}

// At returns the tile at (x, y), or nil when empty or out of bounds.
func (l *Layer) At(x, y int) *Tile {
	if x < 0 || x >= l.width || y < 0 || y >= l.height {
		return nil
	}
	return l.tiles[y*l.width+x]
}

// Set places t at (x, y). Out of bounds coordinates are ignored.
func (l *Layer) Set(x, y int, t *Tile) {
	if x < 0 || x >= l.width || y < 0 || y >= l.height {
		return
	}
	l.tiles[y*l.width+x] = t
}

// Origin returns the world position of the top-left corner of (x, y).
func (l *Layer) Origin(x, y int) geom.Vec2 {
	return geom.V(float64(x)*l.tileSize, float64(y)*l.tileSize)
}

// TileAtPoint returns the tile under p together with its origin.
func (l *Layer) TileAtPoint(p geom.Vec2) (*Tile, geom.Vec2, bool) {
	x := int(math.Floor(p[0] / l.tileSize))
	y := int(math.Floor(p[1] / l.tileSize))
	t := l.At(x, y)
	if t == nil {
		return nil, geom.Vec2{}, false
	}
	return t, l.Origin(x, y), true
}

// TileRange returns the inclusive tile coordinates touched by r, clamped to
// the layer. ok is false when nothing is left after clamping.
func (l *Layer) TileRange(r geom.Rect) (x0, y0, x1, y1 int, ok bool) {
	if r.Max[0] < r.Min[0] || r.Max[1] < r.Min[1] {
		return 0, 0, 0, 0, false
	}
	x0 = int(math.Floor(r.Min[0] / l.tileSize))
	y0 = int(math.Floor(r.Min[1] / l.tileSize))
	x1 = max(int(math.Ceil(r.Max[0]/l.tileSize))-1, x0)
	y1 = max(int(math.Ceil(r.Max[1]/l.tileSize))-1, y0)

	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, l.width-1), min(y1, l.height-1)
	return x0, y0, x1, y1, x0 <= x1 && y0 <= y1
}

// TilesIn yields the origin and tile of every non-empty tile touched by r.
// The range is fixed when iteration starts.
func (l *Layer) TilesIn(r geom.Rect) iter.Seq2[geom.Vec2, *Tile] {
	return func(yield func(geom.Vec2, *Tile) bool) {
		x0, y0, x1, y1, ok := l.TileRange(r)
		if !ok {
			return
		}
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				t := l.tiles[y*l.width+x]
				if t == nil {
					continue
				}
				if !yield(l.Origin(x, y), t) {
					return
				}
			}
		}
	}
}

// Map is a stack of layers sharing one tileset.
type Map struct {
	Name     string
	Width    int
	Height   int
	TileSize float64

	Tileset     map[string]*TileData
	Layers      []*Layer
	PlayerSpawn geom.Vec2
	Lights      []LightDef
	Props       []PropDef
}

// LightDef is a light placed by the map file.
type LightDef struct {
	Position       geom.Vec2
	NearRadius     float64
	FarRadius      float64
	Color          string
	Intensity      float64
	CastShadows    bool
	AffectMaterial bool
}

// PropDef is a sprite placed by the map file; solid props also get a body.
type PropDef struct {
	Name     string
	Position geom.Vec2
	Size     geom.Vec2
	Material *material.Material
	Solid    bool
}

// New creates an empty map.
func New(name string, width, height int, tileSize float64) *Map {
	return &Map{
		Name:     name,
		Width:    width,
		Height:   height,
		TileSize: tileSize,
		Tileset:  make(map[string]*TileData),
	}
}

// AddTileData registers d in the tileset under its name.
func (m *Map) AddTileData(d *TileData) *TileData {
	m.Tileset[d.Name] = d
	return d
}

// AddLayer appends an empty layer.
func (m *Map) AddLayer(name string) *Layer {
	l := NewLayer(name, m.Width, m.Height, m.TileSize)
	m.Layers = append(m.Layers, l)
	return l
}

// Layer returns the layer with the given name.
func (m *Map) Layer(name string) *Layer {
	for _, l := range m.Layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// TileLayers returns every layer in draw order.
func (m *Map) TileLayers() []*Layer {
	return m.Layers
}

// ShadowLayer returns the first layer marked CastShadows, or nil.
func (m *Map) ShadowLayer() *Layer {
	for _, l := range m.Layers {
		if l.CastShadows {
			return l
		}
	}
	return nil
}

// Bounds returns the world rect covered by the map.
func (m *Map) Bounds() geom.Rect {
	return geom.R(0, 0, float64(m.Width)*m.TileSize, float64(m.Height)*m.TileSize)
}
