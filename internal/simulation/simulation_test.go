package simulation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/core/grid"
	"chosenoffset.com/lumen2d/internal/render"
	"chosenoffset.com/lumen2d/internal/world"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

const arena = `
name: arena
width: 8
height: 6
tile_size: 32
tileset:
  - name: wall
    collision: box
layers:
  - name: walls
    collide: true
    shadows: true
    tiles:
      - [wall, wall, wall, wall, wall, wall, wall, wall]
      - [wall, ., ., ., ., ., ., wall]
      - [wall, ., ., wall, ., ., ., wall]
      - [wall, ., ., ., ., wall, ., wall]
      - [wall, ., ., ., ., ., ., wall]
      - [wall, wall, wall, wall, wall, wall, wall, wall]
`

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Frames = 240
	cfg.Bodies = 6
	cfg.LightEvery = 2
	cfg.LightRadius = 64
	cfg.ViewWidth = 128
	cfg.ViewHeight = 96
	return cfg
}

func newRunner(t *testing.T, cfg Config) (*Runner, *render.CountingSink) {
	t.Helper()
	m, err := tilemap.Decode(strings.NewReader(arena))
	require.NoError(t, err)
	w, err := world.New(m, world.Options{Grid: grid.Config{CellSize: 64, MaxSpanX: 4, MaxSpanY: 4}})
	require.NoError(t, err)
	sink := &render.CountingSink{}
	pass := render.NewLightPass(w.Lights(), w, w, nil, sink, render.Options{})
	r, err := New(w, pass, cfg, nil)
	require.NoError(t, err)
	return r, sink
}

func TestRunStepsEveryFrame(t *testing.T) {
	r, sink := newRunner(t, testConfig())
	assert.Len(t, r.Wanderers(), 6)
	assert.Equal(t, 3, r.world.Lights().Len())

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 240, res.Frames)
	assert.Equal(t, 240, sink.Frames)
	assert.Equal(t, 6, res.Bodies)
	assert.Positive(t, res.Lights)
	assert.Positive(t, res.Objects)
	assert.Equal(t, sink.Lights, res.Lights-res.Invisible)

	bounds := r.world.Bounds()
	for _, b := range r.Wanderers() {
		assert.True(t, bounds.ContainsPoint(b.Position()), "%s escaped to %v", b.Name, b.Position())
	}
}

func TestRunIsDeterministic(t *testing.T) {
	a, _ := newRunner(t, testConfig())
	b, _ := newRunner(t, testConfig())
	_, err := a.Run(context.Background())
	require.NoError(t, err)
	_, err = b.Run(context.Background())
	require.NoError(t, err)

	for i := range a.Wanderers() {
		assert.Equal(t, a.Wanderers()[i].Position(), b.Wanderers()[i].Position())
	}
}

func TestWanderersSpawnOnOpenTiles(t *testing.T) {
	r, _ := newRunner(t, testConfig())
	walls := r.world.Map.Layer("walls")
	for _, b := range r.Wanderers() {
		tile, _, _ := walls.TileAtPoint(b.Position())
		assert.Nil(t, tile, "%s spawned in a wall", b.Name)
		assert.NotEqual(t, geom.Vec2{}, b.Velocity)
	}
}

func TestViewStaysInsideMap(t *testing.T) {
	r, _ := newRunner(t, testConfig())
	r.Wanderers()[0].SetPosition(geom.V(40, 40))
	assert.Equal(t, geom.R(0, 0, 128, 96), r.View())

	cfg := testConfig()
	cfg.Bodies = 0
	cfg.ViewWidth = 512
	empty, _ := newRunner(t, cfg)
	assert.Equal(t, geom.R(-128, 48, 384, 144), empty.View())
}

func TestRunStopsOnCancel(t *testing.T) {
	r, _ := newRunner(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Frames)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"frames", func(c *Config) { c.Frames = -1 }},
		{"bodies", func(c *Config) { c.Bodies = -1 }},
		{"light every", func(c *Config) { c.LightEvery = -2 }},
		{"light radius", func(c *Config) { c.LightRadius = 0 }},
		{"speed", func(c *Config) { c.MaxSpeed = c.MinSpeed - 1 }},
		{"step", func(c *Config) { c.Step = 0 }},
		{"view", func(c *Config) { c.ViewHeight = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
