package collide

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/core/grid"
	"chosenoffset.com/lumen2d/internal/world/entity"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

const tileSize = 32

const (
	typeCrate entity.Flags = 1 << 1
	typeGhost entity.Flags = 1 << 2
)

// buildMap turns rows of '#' (solid box), 'o' (tile without collision) and
// '.' (empty) into a one layer map.
func buildMap(t *testing.T, rows ...string) *tilemap.Map {
	t.Helper()
	m := tilemap.New("test", len(rows[0]), len(rows), tileSize)
	wall := m.AddTileData(&tilemap.TileData{Name: "wall", Shape: geom.NewBoxShape(tileSize)})
	floor := m.AddTileData(&tilemap.TileData{Name: "floor"})
	l := m.AddLayer("walls")
	l.Collide = true
	for y, row := range rows {
		require.Len(t, row, m.Width)
		for x, ch := range row {
			switch ch {
			case '#':
				l.Set(x, y, &tilemap.Tile{Data: wall})
			case 'o':
				l.Set(x, y, &tilemap.Tile{Data: floor})
			}
		}
	}
	return m
}

func newBodyGrid() *grid.Grid[*entity.Body] {
	return grid.New[*entity.Body](grid.Config{Extent: geom.V(512, 512), CellSize: 64, MaxSpanX: 4, MaxSpanY: 4})
}

func addBody(g *grid.Grid[*entity.Body], name string, pos geom.Vec2, typ entity.Flags) *entity.Body {
	b := entity.NewBoxBody(name, 10, 10)
	b.CollideType = typ
	b.SetPosition(pos)
	b.Track(g, g.Add(b))
	return b
}

func TestOverlapSeparatingAxis(t *testing.T) {
	tests := []struct {
		name string
		a, b *geom.Mesh
	}{
		{"boxes apart on x", geom.NewBoxMesh(geom.R(0, 0, 10, 10)), geom.NewBoxMesh(geom.R(20, 0, 30, 10))},
		{"boxes apart on y", geom.NewBoxMesh(geom.R(0, 0, 10, 10)), geom.NewBoxMesh(geom.R(0, 11, 10, 20))},
		// AABBs overlap; only the hypotenuse normal separates them.
		{"triangle diagonal", geom.NewMesh(geom.V(0, 0), geom.V(10, 0), geom.V(0, 10)), geom.NewBoxMesh(geom.R(7, 7, 12, 12))},
		{"segment past box", geom.NewMesh(geom.V(-5, 20), geom.V(20, -5)), geom.NewBoxMesh(geom.R(0, 0, 5, 5))},
		{"touching edges", geom.NewBoxMesh(geom.R(0, 0, 10, 10)), geom.NewBoxMesh(geom.R(10, 0, 20, 10))},
		{"touching corners", geom.NewBoxMesh(geom.R(0, 0, 10, 10)), geom.NewBoxMesh(geom.R(10, 10, 20, 20))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Overlap(tt.a, tt.b)
			assert.False(t, ok)
			_, ok = Overlap(tt.b, tt.a)
			assert.False(t, ok)
		})
	}
}

func TestOverlapBoxesScenario(t *testing.T) {
	a := geom.NewBoxMesh(geom.RectAt(geom.V(0, 0), 10, 10))
	b := geom.NewBoxMesh(geom.RectAt(geom.V(5, 0), 10, 10))

	mtv, ok := Overlap(a, b)
	require.True(t, ok)
	assert.Equal(t, 5.0, mtv.Len())
	assert.Equal(t, 0.0, mtv[1])

	mtv = Orient(mtv, a.Centroid(), b.Centroid())
	assert.Equal(t, geom.V(-5, 0), mtv)
}

func TestOverlapMissingMesh(t *testing.T) {
	_, ok := Overlap(nil, geom.NewBoxMesh(geom.R(0, 0, 1, 1)))
	assert.False(t, ok)
	_, ok = Overlap(geom.NewBoxMesh(geom.R(0, 0, 1, 1)), &geom.Mesh{})
	assert.False(t, ok)
}

// Overlapping boxes always separate along a face normal and leave exactly
// touching boxes behind.
func TestOverlapBoxMTVLeavesZeroOverlap(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	randRect := func() geom.Rect {
		x, y := float64(rng.IntN(20)), float64(rng.IntN(20))
		return geom.R(x, y, x+float64(1+rng.IntN(12)), y+float64(1+rng.IntN(12)))
	}

	checked := 0
	for checked < 200 {
		ra, rb := randRect(), randRect()
		if !ra.Intersects(rb) {
			continue
		}
		checked++

		a, b := geom.NewBoxMesh(ra), geom.NewBoxMesh(rb)
		mtv, ok := Overlap(a, b)
		require.True(t, ok, "%v %v", ra, rb)
		require.True(t, mtv[0] == 0 || mtv[1] == 0, "mtv %v is not along a face normal", mtv)

		depthX := min(ra.Max[0]-rb.Min[0], rb.Max[0]-ra.Min[0])
		depthY := min(ra.Max[1]-rb.Min[1], rb.Max[1]-ra.Min[1])
		assert.Equal(t, min(depthX, depthY), mtv.Len())

		mtv = Orient(mtv, a.Centroid(), b.Centroid())
		moved := ra.Translate(mtv)
		_, ok = Overlap(geom.NewBoxMesh(moved), b)
		assert.False(t, ok, "%v still overlaps %v after %v", moved, rb, mtv)
		inter := moved.Intersect(rb)
		assert.True(t, inter.Dx() == 0 || inter.Dy() == 0, "%v and %v", moved, rb)
	}
}

func TestResolveAxes(t *testing.T) {
	acc := geom.V(3, 0)
	assert.Equal(t, geom.V(0, 1), resolveAxes(&acc, geom.V(-2, 1)))
	assert.Equal(t, geom.V(3, 1), acc)

	assert.Equal(t, geom.V(-5, 0), resolveAxes(&acc, geom.V(-5, 0)))
	assert.Equal(t, geom.V(-5, 1), acc)

	assert.Equal(t, geom.V(-1, 0.5), resolveAxes(&acc, geom.V(-1, 0.5)))
	assert.Equal(t, geom.V(-5, 1), acc)
}

func TestCollideBodyTouchingTileDoesNotCollide(t *testing.T) {
	m := buildMap(t,
		"....",
		".#..",
		"....",
	)
	c := New(m, nil, Options{})

	b := entity.NewBoxBody("player", 10, 10)
	b.SetPosition(geom.V(40, 27))
	assert.Equal(t, Flags(0), c.CollideBody(b))
	assert.Equal(t, geom.V(40, 27), b.Position())

	b.SetPosition(geom.V(27, 40))
	assert.Equal(t, Flags(0), c.CollideBody(b))
	assert.Equal(t, geom.V(27, 40), b.Position())
}

func TestCollideBodyResolvesAcrossTiles(t *testing.T) {
	m := buildMap(t,
		"....",
		"##..",
		"....",
	)
	c := New(m, nil, Options{})

	// Resting 3 units into two floor tiles: pushed up once, not twice.
	b := entity.NewBoxBody("player", 10, 10)
	b.SetPosition(geom.V(32, 30))
	assert.Equal(t, FlagTile, c.CollideBody(b))
	assert.Equal(t, geom.V(32, 27), b.Position())
	assert.Equal(t, geom.V(0, -3), b.LastPush)
	assert.Equal(t, FlagTile, b.Contacts)

	// Resolved bodies stay put.
	assert.Equal(t, Flags(0), c.CollideBody(b))
	assert.Equal(t, geom.V(32, 27), b.Position())
}

func TestCollideBodyCorner(t *testing.T) {
	m := buildMap(t,
		"..#.",
		".#..",
		"....",
	)
	c := New(m, nil, Options{})

	b := entity.NewBoxBody("player", 10, 10)
	b.SetPosition(geom.V(60, 30))
	assert.Equal(t, FlagTile, c.CollideBody(b))
	assert.InDelta(t, 59, b.Position()[0], 1e-9)
	assert.InDelta(t, 27, b.Position()[1], 1e-9)
	assert.Equal(t, geom.V(-1, -3), b.LastPush)
}

func TestCollideBodySkipsMissingMeshes(t *testing.T) {
	m := buildMap(t,
		"oo",
		"oo",
	)
	c := New(m, nil, Options{})

	b := entity.NewBoxBody("player", 10, 10)
	b.SetPosition(geom.V(32, 32))
	assert.Equal(t, Flags(0), c.CollideBody(b))

	ghost := entity.NewBody("ghost", nil)
	assert.Nil(t, ghost.Mesh())
	assert.Equal(t, Flags(0), c.CollideBody(ghost))
}

func TestCollideBodyAgainstBodies(t *testing.T) {
	g := newBodyGrid()
	c := New(nil, g, Options{})

	player := addBody(g, "player", geom.V(100, 100), 0)
	player.CollideMask = typeCrate
	addBody(g, "ghost", geom.V(104, 100), typeGhost)

	assert.Equal(t, Flags(0), c.CollideBody(player), "ghost is not in the mask")
	assert.Equal(t, geom.V(100, 100), player.Position())

	addBody(g, "crate", geom.V(106, 100), typeCrate)
	assert.Equal(t, typeCrate, c.CollideBody(player))
	assert.Equal(t, geom.V(96, 100), player.Position())

	// The grid follows the push.
	r, ok := g.Bounds(player.Handle())
	require.True(t, ok)
	assert.Equal(t, player.AABB(), r)
}

func TestCollideBodyStopsAtFirstBody(t *testing.T) {
	g := newBodyGrid()
	c := New(nil, g, Options{})

	player := addBody(g, "player", geom.V(100, 100), 0)
	player.CollideMask = typeCrate
	left := addBody(g, "left", geom.V(94, 100), typeCrate)
	right := addBody(g, "right", geom.V(106, 100), typeCrate)

	assert.Equal(t, typeCrate, c.CollideBody(player))

	_, hitsLeft := Overlap(player.Mesh(), left.Mesh())
	_, hitsRight := Overlap(player.Mesh(), right.Mesh())
	assert.True(t, hitsLeft != hitsRight, "exactly one crate is resolved per call")
}

func TestCollideBodyInactive(t *testing.T) {
	g := newBodyGrid()
	c := New(nil, g, Options{})

	player := addBody(g, "player", geom.V(100, 100), 0)
	player.CollideMask = typeCrate
	crate := addBody(g, "crate", geom.V(104, 100), typeCrate)
	crate.Active = false
	assert.Equal(t, Flags(0), c.CollideBody(player))

	player.Active = false
	crate.Active = true
	assert.Equal(t, Flags(0), c.CollideBody(player))
}

func TestCollideRect(t *testing.T) {
	m := buildMap(t,
		"....",
		".#..",
		"....",
	)
	g := newBodyGrid()
	addBody(g, "crate", geom.V(200, 200), typeCrate)
	c := New(m, g, Options{})

	var push geom.Vec2
	assert.Equal(t, FlagTile, c.CollideRect(geom.R(28, 40, 36, 48), FlagTile|typeCrate, &push))
	assert.Equal(t, geom.V(-4, 0), push)

	assert.Equal(t, Flags(0), c.CollideRect(geom.R(28, 40, 36, 48), typeCrate, &push))
	assert.Equal(t, geom.Vec2{}, push)

	assert.Equal(t, typeCrate, c.CollideRect(geom.R(190, 190, 200, 200), FlagTile|typeCrate, nil))
	assert.Equal(t, Flags(0), c.CollideRect(geom.R(190, 190, 200, 200), typeGhost, nil))

	assert.Equal(t, FlagTile|typeCrate, c.CollideRect(geom.R(40, 40, 200, 200), FlagTile|typeCrate, nil))
	assert.Equal(t, Flags(0), c.CollideRect(geom.R(40, 40, 40, 80), FlagTile|typeCrate, nil))
}

func TestCollideLine(t *testing.T) {
	m := buildMap(t,
		"....",
		".#..",
		"....",
	)
	g := newBodyGrid()
	addBody(g, "crate", geom.V(200, 200), typeCrate)
	c := New(m, g, Options{})

	assert.Equal(t, FlagTile, c.CollideLine(geom.V(0, 48), geom.V(100, 48), FlagTile))
	assert.Equal(t, FlagTile, c.CollideLine(geom.V(0, 0), geom.V(100, 100), FlagTile))
	assert.Equal(t, Flags(0), c.CollideLine(geom.V(0, 16), geom.V(120, 16), FlagTile))
	assert.Equal(t, Flags(0), c.CollideLine(geom.V(40, 32), geom.V(60, 32), FlagTile), "running along an edge")
	assert.Equal(t, Flags(0), c.CollideLine(geom.V(0, 48), geom.V(100, 48), typeCrate))

	assert.Equal(t, typeCrate, c.CollideLine(geom.V(180, 200), geom.V(220, 200), typeCrate))
	assert.Equal(t, typeCrate, c.CollideLine(geom.V(200, 150), geom.V(200, 250), typeCrate))
	assert.Equal(t, Flags(0), c.CollideLine(geom.V(200, 200), geom.V(200, 200), typeCrate))
}
