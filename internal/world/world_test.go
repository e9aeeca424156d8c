package world

import (
	"image/color"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/core/grid"
	"chosenoffset.com/lumen2d/internal/metrics"
	"chosenoffset.com/lumen2d/internal/render/lighting"
	"chosenoffset.com/lumen2d/internal/world/entity"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

const roomMap = `
name: room
width: 5
height: 5
tile_size: 32
tileset:
  - name: wall
    collision: box
layers:
  - name: walls
    collide: true
    shadows: true
    tiles:
      - [wall, wall, wall, wall, wall]
      - [wall, ., ., ., wall]
      - [wall, ., ., ., wall]
      - [wall, ., ., ., wall]
      - [wall, wall, wall, wall, wall]
lights:
  - {x: 80, y: 80, radius: 64, color: "ff0000"}
  - {x: 48, y: 48, near: 8, radius: 32, shadows: false}
props:
  - {name: pillar, x: 112, y: 112, w: 8, h: 8, solid: true}
  - {name: rug, x: 48, y: 112, w: 16, h: 8}
`

var testGrid = grid.Config{CellSize: 32, MaxSpanX: 4, MaxSpanY: 4}

func newRoom(t *testing.T, opts Options) *World {
	t.Helper()
	m, err := tilemap.Decode(strings.NewReader(roomMap))
	require.NoError(t, err)
	if opts.Grid.CellSize == 0 {
		opts.Grid = testGrid
	}
	w, err := New(m, opts)
	require.NoError(t, err)
	return w
}

func TestNewPlacesMapLights(t *testing.T) {
	w := newRoom(t, Options{})
	assert.Equal(t, 2, w.Lights().Len())

	lights := w.Lights().Query(w.Bounds(), nil)
	require.Len(t, lights, 2)
	byRadius := map[float64]*lighting.Light{}
	for _, l := range lights {
		byRadius[l.FarRadius] = l
	}
	red := byRadius[64]
	require.NotNil(t, red)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, red.Color)
	assert.True(t, red.CastShadows)
	assert.Equal(t, 1.0, red.Intensity)

	small := byRadius[32]
	require.NotNil(t, small)
	assert.Equal(t, 8.0, small.NearRadius)
	assert.False(t, small.CastShadows)
	assert.Equal(t, lighting.DefaultColor, small.Color)
	assert.Same(t, w.Map.ShadowLayer(), w.ShadowLayer())
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)

	m, err := tilemap.Decode(strings.NewReader(roomMap))
	require.NoError(t, err)
	m.Lights[0].Color = "nope"
	_, err = New(m, Options{Grid: testGrid})
	assert.Error(t, err)
}

func TestAmbientOverride(t *testing.T) {
	w := newRoom(t, Options{Ambient: color.NRGBA{R: 0x20, G: 0x20, B: 0x28, A: 255}})
	assert.Equal(t, color.NRGBA{R: 0x20, G: 0x20, B: 0x28, A: 255}, w.Lights().Ambient())
}

func TestNewPlacesProps(t *testing.T) {
	w := newRoom(t, Options{})
	sprites := w.QueryObjects(w.Bounds(), nil)
	require.Len(t, sprites, 2)

	require.Len(t, w.Bodies(), 1)
	pillar := w.Bodies()[0]
	assert.Equal(t, "pillar", pillar.Name)
	assert.Equal(t, FlagProp, pillar.CollideType)
	assert.Equal(t, geom.V(112, 112), pillar.Position())
}

func TestPlayerIsPushedOutOfProps(t *testing.T) {
	w := newRoom(t, Options{})
	p := entity.NewBoxBody("player", 8, 8)
	p.CollideType = FlagPlayer
	p.CollideMask = FlagProp
	p.SetPosition(geom.V(100, 112))
	p.Velocity = geom.V(10, 0)
	w.AddBody(p)

	w.Update(0.5)
	// Moved to 105 then pushed back out of the pillar at 108..116.
	assert.InDelta(t, 104, p.Position()[0], 1e-9)
	assert.Equal(t, FlagProp, p.Contacts)
}

func TestUpdateMovesAndCollides(t *testing.T) {
	w := newRoom(t, Options{})
	b := entity.NewBoxBody("player", 16, 16)
	b.SetPosition(geom.V(80, 80))
	b.Velocity = geom.V(0, 100)
	w.AddBody(b)

	still := entity.NewBoxBody("crate", 16, 16)
	still.SetPosition(geom.V(48, 48))
	w.AddBody(still)

	stats := w.Update(0.5)
	assert.Equal(t, UpdateStats{Bodies: 3, Moved: 1, Contacts: 1}, stats)
	assert.InDelta(t, 80, b.Position()[0], 1e-9)
	assert.InDelta(t, 120, b.Position()[1], 1e-9)
	assert.Equal(t, entity.FlagTile, b.Contacts)
	assert.Equal(t, uint64(1), w.Frame())

	b.Active = false
	stats = w.Update(0.5)
	assert.Equal(t, 2, stats.Bodies)
	assert.InDelta(t, 120, b.Position()[1], 1e-9)
}

func TestFollowersTrackBody(t *testing.T) {
	w := newRoom(t, Options{})
	b := entity.NewBoxBody("player", 8, 8)
	b.SetPosition(geom.V(64, 64))
	w.AddBody(b)

	s := entity.NewSprite("lantern", 4, 4, nil)
	w.AddSprite(s)
	l := lighting.NewLight("torch", geom.Vec2{}, 40)
	w.AddLight(l)

	w.Follow(b, s, geom.V(0, -6))
	w.Follow(b, l, geom.Vec2{})
	assert.Equal(t, geom.V(64, 58), s.Position())

	b.Velocity = geom.V(20, 0)
	w.Update(0.5)
	assert.Equal(t, geom.V(74, 58), s.Position())
	assert.Equal(t, geom.V(74, 64), l.Position())

	// The sprite index follows the move.
	found := w.QueryObjects(geom.R(70, 54, 78, 62), nil)
	assert.Equal(t, []*entity.Sprite{s}, found)

	w.RemoveBody(b)
	assert.Len(t, w.Bodies(), 1)
	w.Update(0.5)
	assert.Equal(t, geom.V(74, 58), s.Position())
}

func TestAddRemoveAreIdempotent(t *testing.T) {
	w := newRoom(t, Options{})
	b := entity.NewBoxBody("crate", 8, 8)
	w.AddBody(b)
	w.AddBody(b)
	assert.Len(t, w.Bodies(), 2)
	w.RemoveBody(b)
	w.RemoveBody(b)
	assert.Len(t, w.Bodies(), 1)

	s := entity.NewSprite("rock", 4, 4, nil)
	s.SetPosition(geom.V(50, 50))
	w.AddSprite(s)
	w.AddSprite(s)
	assert.Len(t, w.QueryObjects(w.Bounds(), nil), 3)
	w.RemoveSprite(s)
	w.RemoveSprite(s)
	assert.Len(t, w.QueryObjects(w.Bounds(), nil), 2)

	l := lighting.NewLight("spare", geom.V(50, 50), 10)
	w.AddLight(l)
	assert.Equal(t, 3, w.Lights().Len())
	w.RemoveLight(l)
	assert.Equal(t, 2, w.Lights().Len())
}

func TestWorldRegistersGridMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := newRoom(t, Options{Metrics: metrics.New(reg)})
	w.AddBody(entity.NewBoxBody("crate", 8, 8))

	families, err := reg.Gather()
	require.NoError(t, err)
	objects := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "lumen2d_grid_objects" {
			continue
		}
		for _, m := range mf.GetMetric() {
			objects[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"bodies": 2, "sprites": 2, "lights": 2}, objects)
}

func TestDemoMapBuilds(t *testing.T) {
	m, err := tilemap.Load("../../data/maps/demo.yaml")
	require.NoError(t, err)
	require.NotNil(t, m.ShadowLayer())

	w, err := New(m, Options{Grid: grid.DefaultConfig()})
	require.NoError(t, err)
	assert.Equal(t, len(m.Lights), w.Lights().Len())
	assert.Len(t, w.Bodies(), 3, "one body per solid prop")

	walls := m.ShadowLayer()
	for _, def := range m.Lights {
		_, _, buried := walls.TileAtPoint(def.Position)
		assert.False(t, buried, "light at %v sits inside a wall", def.Position)
	}
	_, _, blocked := walls.TileAtPoint(m.PlayerSpawn)
	assert.False(t, blocked)
}

func TestQueryObjectsSkipsCandidatesOutsideRect(t *testing.T) {
	w := newRoom(t, Options{})
	// Shares the pillar's cell without touching it.
	near := entity.NewSprite("near", 4, 4, nil)
	near.SetPosition(geom.V(100, 100))
	w.AddSprite(near)
	// Outside the map, so it lands in the outer set.
	stray := entity.NewSprite("stray", 8, 8, nil)
	stray.SetPosition(geom.V(-20, -20))
	w.AddSprite(stray)

	assert.Empty(t, w.QueryObjects(geom.R(104, 104, 107, 107), nil))
	assert.Empty(t, w.QueryObjects(geom.R(0, 0, 10, 10), nil))

	got := w.QueryObjects(geom.R(104, 104, 110, 110), nil)
	require.Len(t, got, 1)
	assert.Equal(t, "pillar", got[0].Name)

	assert.Equal(t, []*entity.Sprite{near}, w.QueryObjects(geom.R(96, 96, 104, 104), nil))
}
