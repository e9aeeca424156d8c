package collide

import (
	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/core/grid"
	"chosenoffset.com/lumen2d/internal/logging"
	"chosenoffset.com/lumen2d/internal/metrics"
	"chosenoffset.com/lumen2d/internal/world/entity"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

// Flags is the collision category bitmask.
type Flags = entity.Flags

// FlagTile is bit 0: the collision involved map tiles.
const FlagTile = entity.FlagTile

// lineSlop widens the bounds of axis-aligned line probes so the grid sees a
// non-empty query.
const lineSlop = 1e-6

// TileSource provides the tile layers to collide against. *tilemap.Map
// satisfies it. Only layers with Collide set are used.
type TileSource interface {
	TileLayers() []*tilemap.Layer
}

// Options configures a Collider.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Collider runs collision queries against a tile source and a grid of
// bodies. It reuses two scratch meshes and is not safe for concurrent use.
type Collider struct {
	tiles  TileSource
	bodies *grid.Grid[*entity.Body]

	logger  *zap.Logger
	metrics *metrics.Metrics

	probe    geom.Mesh
	tileMesh geom.Mesh
}

// New creates a collider. Either source may be nil.
func New(tiles TileSource, bodies *grid.Grid[*entity.Body], opts Options) *Collider {
	return &Collider{
		tiles:   tiles,
		bodies:  bodies,
		logger:  logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}
}

// SetTiles replaces the tile source.
func (c *Collider) SetTiles(tiles TileSource) {
	c.tiles = tiles
}

// CollideBody pushes b out of solid tiles and then out of the first
// overlapping body selected by its CollideMask. Each tile hit moves b at
// once and later tiles are tested against the new position; when pushes
// disagree on an axis the larger one wins. The body pass stops at the first
// hit. The result is also stored in b.Contacts, and the dominant tile push
// in b.LastPush.
func (c *Collider) CollideBody(b *entity.Body) Flags {
	if b == nil || !b.Active || b.Mesh() == nil {
		return 0
	}

	var flags Flags
	var push geom.Vec2
	if c.tiles != nil {
		for _, layer := range c.tiles.TileLayers() {
			if !layer.Collide {
				continue
			}
			for origin, tile := range layer.TilesIn(b.AABB()) {
				local := tile.Mesh()
				if local == nil {
					continue
				}
				c.tileMesh.SetTranslated(local, origin)
				mtv, ok := Overlap(b.Mesh(), &c.tileMesh)
				if !ok {
					continue
				}
				mtv = Orient(mtv, b.Mesh().Centroid(), c.tileMesh.Centroid())
				if step := resolveAxes(&push, mtv); step != (geom.Vec2{}) {
					b.Translate(step)
				}
				flags |= FlagTile
				c.metrics.Collision(metrics.KindTile)
			}
		}
	}

	if c.bodies != nil && b.CollideMask != 0 {
		var hit *entity.Body
		var mtv geom.Vec2
		q := c.bodies.Query(b.AABB())
		for _, other := range q.All() {
			if other == b || !other.Active || other.CollideType&b.CollideMask == 0 {
				continue
			}
			om := other.Mesh()
			if om == nil {
				continue
			}
			if v, ok := Overlap(b.Mesh(), om); ok {
				hit = other
				mtv = Orient(v, b.Mesh().Centroid(), om.Centroid())
				break
			}
		}
		if hit != nil {
			b.Translate(mtv)
			flags |= hit.CollideType & b.CollideMask
			c.metrics.Collision(metrics.KindBody)
			c.logger.Debug("body collision",
				zap.String("body", b.Name),
				zap.String("other", hit.Name),
				zap.Float64("push_x", mtv[0]),
				zap.Float64("push_y", mtv[1]))
		}
	}

	b.Contacts = flags
	b.LastPush = push
	return flags
}

// CollideRect tests the box r against tiles when mask has FlagTile, and
// against bodies whose CollideType intersects the other mask bits. Nothing
// is moved. When push is non-nil it receives the last push that would move
// r out of an obstacle, or zero when nothing was hit. An empty r hits
// nothing.
func (c *Collider) CollideRect(r geom.Rect, mask Flags, push *geom.Vec2) Flags {
	if push != nil {
		*push = geom.Vec2{}
	}
	if r.Empty() {
		return 0
	}
	c.probe.SetRect(r)
	flags := c.collideProbe(r, mask, push)
	if flags != 0 {
		c.metrics.Collision(metrics.KindRect)
	}
	return flags
}

// CollideLine tests the segment a-b like CollideRect tests a box. The
// segment must cross an obstacle; running along its edge is not a hit.
func (c *Collider) CollideLine(a, b geom.Vec2, mask Flags) Flags {
	if a == b {
		return 0
	}
	c.probe.SetSegment(a, b)
	bounds := c.probe.Bounds()
	if bounds.Dx() == 0 {
		bounds.Min[0] -= lineSlop
		bounds.Max[0] += lineSlop
	}
	if bounds.Dy() == 0 {
		bounds.Min[1] -= lineSlop
		bounds.Max[1] += lineSlop
	}
	flags := c.collideProbe(bounds, mask, nil)
	if flags != 0 {
		c.metrics.Collision(metrics.KindLine)
	}
	return flags
}

func (c *Collider) collideProbe(bounds geom.Rect, mask Flags, push *geom.Vec2) Flags {
	var flags Flags
	center := c.probe.Centroid()

	if mask&FlagTile != 0 && c.tiles != nil {
	layers:
		for _, layer := range c.tiles.TileLayers() {
			if !layer.Collide {
				continue
			}
			for origin, tile := range layer.TilesIn(bounds) {
				local := tile.Mesh()
				if local == nil {
					continue
				}
				c.tileMesh.SetTranslated(local, origin)
				mtv, ok := Overlap(&c.probe, &c.tileMesh)
				if !ok {
					continue
				}
				flags |= FlagTile
				if push == nil {
					break layers
				}
				*push = Orient(mtv, center, c.tileMesh.Centroid())
			}
		}
	}

	if bodyMask := mask &^ FlagTile; bodyMask != 0 && c.bodies != nil {
		q := c.bodies.Query(bounds)
		for _, other := range q.All() {
			if !other.Active || other.CollideType&bodyMask == 0 {
				continue
			}
			om := other.Mesh()
			if om == nil {
				continue
			}
			mtv, ok := Overlap(&c.probe, om)
			if !ok {
				continue
			}
			flags |= other.CollideType & bodyMask
			if push != nil {
				*push = Orient(mtv, center, om.Centroid())
			}
		}
	}
	return flags
}
