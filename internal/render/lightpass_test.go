package render

import (
	"fmt"
	"image/color"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/core/grid"
	"chosenoffset.com/lumen2d/internal/metrics"
	"chosenoffset.com/lumen2d/internal/render/lighting"
	"chosenoffset.com/lumen2d/internal/render/shadow"
	"chosenoffset.com/lumen2d/internal/world/entity"
	"chosenoffset.com/lumen2d/internal/world/material"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

const tileSize = 32

// recordingSink logs every call as a short string.
type recordingSink struct {
	calls   []string
	objects map[string][]*entity.Sprite
}

func (s *recordingSink) BeginLights(view geom.Rect, _ color.NRGBA) {
	s.calls = append(s.calls, fmt.Sprintf("begin %v", view))
}

func (s *recordingSink) ClearStencil(r geom.Rect) {
	s.calls = append(s.calls, fmt.Sprintf("clear %v", r))
}

func (s *recordingSink) DrawStencil(vertices []geom.Vec2, indices []uint16) {
	s.calls = append(s.calls, fmt.Sprintf("stencil %d", len(indices)/3))
}

func (s *recordingSink) DrawLight(l *lighting.Light, masked bool, objects []*entity.Sprite) {
	s.calls = append(s.calls, fmt.Sprintf("light %s masked=%t", l.Name, masked))
	if s.objects == nil {
		s.objects = make(map[string][]*entity.Sprite)
	}
	s.objects[l.Name] = append([]*entity.Sprite(nil), objects...)
}

func (s *recordingSink) EndLights() {
	s.calls = append(s.calls, "end")
}

type staticShadows struct{ layer *tilemap.Layer }

func (s staticShadows) ShadowLayer() *tilemap.Layer { return s.layer }

type spriteGrid struct{ g *grid.Grid[*entity.Sprite] }

func (s spriteGrid) QueryObjects(r geom.Rect, dst []*entity.Sprite) []*entity.Sprite {
	for _, o := range s.g.Query(r).All() {
		if o.AABB().Intersects(r) {
			dst = append(dst, o)
		}
	}
	return dst
}

type fixture struct {
	lights  *lighting.Set
	sprites spriteGrid
	layer   *tilemap.Layer
	sink    *recordingSink
	states  []string
	pass    *LightPass
}

// newFixture builds a 16x16 tile world with a solid tile at (4, 4).
func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	cfg := grid.Config{Extent: geom.V(512, 512), CellSize: 64, MaxSpanX: 4, MaxSpanY: 4}
	f := &fixture{
		lights:  lighting.NewSet(cfg),
		sprites: spriteGrid{grid.New[*entity.Sprite](cfg)},
		layer:   tilemap.NewLayer("walls", 16, 16, tileSize),
		sink:    &recordingSink{},
	}
	f.layer.CastShadows = true
	f.layer.Set(4, 4, &tilemap.Tile{Data: &tilemap.TileData{Name: "wall", Shape: geom.NewBoxShape(tileSize)}})

	opts.Trace = func(l *lighting.Light, s LightState) {
		f.states = append(f.states, l.Name+":"+s.String())
	}
	f.pass = NewLightPass(f.lights, f.sprites, staticShadows{f.layer}, shadow.NewCaster(shadow.Options{}), f.sink, opts)
	return f
}

func (f *fixture) addLight(name string, pos geom.Vec2, radius float64, shadows bool) *lighting.Light {
	l := lighting.NewLight(name, pos, radius)
	l.CastShadows = shadows
	f.lights.Add(l)
	return l
}

func (f *fixture) addSprite(name string, pos geom.Vec2, m *material.Material) *entity.Sprite {
	s := entity.NewSprite(name, 8, 8, m)
	s.SetPosition(pos)
	s.Track(f.sprites.g, f.sprites.g.Add(s))
	return s
}

func TestLightStateString(t *testing.T) {
	assert.Equal(t, "invisible", StateInvisible.String())
	assert.Equal(t, "light_pass", StateLightPass.String())
	assert.Equal(t, "unknown", LightState(9).String())
}

func TestLightInsideSolidTileIsInvisible(t *testing.T) {
	f := newFixture(t, Options{})
	f.addLight("buried", geom.V(144, 144), 64, true)

	stats := f.pass.Render(geom.R(0, 0, 512, 512))
	assert.Equal(t, []string{"buried:invisible"}, f.states)
	assert.Equal(t, []string{"begin {[0 0] [512 512]}", "end"}, f.sink.calls)
	assert.Equal(t, 1, stats.Lights)
	assert.Equal(t, 1, stats.Invisible)
}

func TestLightWithoutShadowsSkipsStencil(t *testing.T) {
	f := newFixture(t, Options{})
	f.addLight("lamp", geom.V(100, 144), 64, false)

	f.pass.Render(geom.R(0, 0, 512, 512))
	assert.Equal(t, []string{"lamp:visible", "lamp:light_pass"}, f.states)
	assert.Equal(t, []string{"begin {[0 0] [512 512]}", "light lamp masked=false", "end"}, f.sink.calls)
}

func TestShadowPassClearsPreviousStencil(t *testing.T) {
	f := newFixture(t, Options{})
	f.addLight("a", geom.V(100, 144), 64, true)

	stats := f.pass.Render(geom.R(0, 0, 512, 512))
	assert.Equal(t, []string{"a:visible", "a:shadow_pass", "a:light_pass"}, f.states)
	require.Len(t, f.sink.calls, 4)
	assert.Equal(t, "stencil 6", f.sink.calls[1])
	assert.Equal(t, "light a masked=true", f.sink.calls[2])
	assert.Equal(t, 1, stats.Shadowed)
	assert.Equal(t, 6, stats.Triangles)

	// The next frame clears what the last shadow marked.
	f.sink.calls = nil
	f.pass.Render(geom.R(0, 0, 512, 512))
	assert.Equal(t, []string{
		"begin {[0 0] [512 512]}",
		"clear {[36 80] [164 208]}",
		"stencil 6",
		"light a masked=true",
		"end",
	}, f.sink.calls)
}

func TestShadowLightWithNothingToCast(t *testing.T) {
	f := newFixture(t, Options{})
	f.addLight("open", geom.V(400, 400), 64, true)

	stats := f.pass.Render(geom.R(0, 0, 512, 512))
	assert.Equal(t, []string{"open:visible", "open:shadow_pass", "open:light_pass"}, f.states)
	assert.Equal(t, []string{"begin {[0 0] [512 512]}", "light open masked=false", "end"}, f.sink.calls)
	assert.Zero(t, stats.Shadowed)
}

func TestLightsOutsideViewOrWithoutRadiusAreSkipped(t *testing.T) {
	f := newFixture(t, Options{})
	f.addLight("dead", geom.V(100, 100), 0, true)
	f.addLight("far", geom.V(450, 450), 20, true)

	stats := f.pass.Render(geom.R(0, 0, 256, 256))
	assert.Empty(t, f.states)
	assert.Zero(t, stats.Lights)
}

func TestLightPassObjects(t *testing.T) {
	f := newFixture(t, Options{})
	stone := material.New("stone", material.Diffuse, color.NRGBA{A: 255})
	glow := material.New("glow", material.Additive, color.NRGBA{A: 255})

	crate := f.addSprite("crate", geom.V(60, 60), stone)
	f.addSprite("ember", geom.V(70, 70), glow)
	hidden := f.addSprite("hidden", geom.V(80, 80), stone)
	hidden.Visible = false
	f.addSprite("elsewhere", geom.V(400, 400), stone)
	plain := f.addSprite("plain", geom.V(50, 50), nil)

	f.addLight("torch", geom.V(64, 64), 48, false)
	flat := f.addLight("flat", geom.V(64, 64), 48, false)
	flat.AffectMaterial = false

	stats := f.pass.Render(geom.R(0, 0, 512, 512))
	assert.ElementsMatch(t, []*entity.Sprite{crate, plain}, f.sink.objects["torch"])
	assert.Empty(t, f.sink.objects["flat"])
	assert.Equal(t, 2, stats.Objects)
}

func TestLightPassMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, Options{Metrics: metrics.New(reg)})
	f.addLight("a", geom.V(100, 144), 64, true)
	f.addLight("buried", geom.V(144, 144), 64, true)

	f.pass.Render(geom.R(0, 0, 512, 512))

	families, err := reg.Gather()
	require.NoError(t, err)
	states := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "lumen2d_lights_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			states[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"invisible":   1,
		"visible":     1,
		"shadow_pass": 1,
		"light_pass":  1,
	}, states)
}

func TestCountingSink(t *testing.T) {
	f := newFixture(t, Options{})
	f.addLight("a", geom.V(100, 144), 64, true)
	f.addLight("b", geom.V(400, 400), 64, false)

	sink := &CountingSink{}
	f.pass.SetSink(sink)
	f.pass.Render(geom.R(0, 0, 512, 512))
	f.pass.Render(geom.R(0, 0, 512, 512))

	assert.Equal(t, 2, sink.Frames)
	assert.Equal(t, 1, sink.StencilClears)
	assert.Equal(t, 2, sink.StencilBatches)
	assert.Equal(t, 12, sink.StencilTriangles)
	assert.Equal(t, 4, sink.Lights)
	assert.Equal(t, 2, sink.MaskedLights)
}
