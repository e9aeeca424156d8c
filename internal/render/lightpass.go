package render

import (
	"image/color"
	"time"

	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/logging"
	"chosenoffset.com/lumen2d/internal/metrics"
	"chosenoffset.com/lumen2d/internal/render/lighting"
	"chosenoffset.com/lumen2d/internal/render/shadow"
	"chosenoffset.com/lumen2d/internal/world/entity"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

// LightState is where a light got to in the current frame.
type LightState int

const (
	// StateInvisible lights sit inside a solid tile and contribute nothing.
	StateInvisible LightState = iota
	StateVisible
	StateShadowPass
	StateLightPass
)

var lightStateNames = [...]string{"invisible", "visible", "shadow_pass", "light_pass"}

func (s LightState) String() string {
	if s < 0 || int(s) >= len(lightStateNames) {
		return "unknown"
	}
	return lightStateNames[s]
}

// LightSource is the light collection of a world. *lighting.Set satisfies
// it.
type LightSource interface {
	Query(r geom.Rect, dst []*lighting.Light) []*lighting.Light
	Ambient() color.NRGBA
}

// ObjectSource finds the drawable objects overlapping a rect.
type ObjectSource interface {
	QueryObjects(r geom.Rect, dst []*entity.Sprite) []*entity.Sprite
}

// ShadowSource provides the layer lights are gated and shadowed by.
type ShadowSource interface {
	ShadowLayer() *tilemap.Layer
}

// Options configures a LightPass.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Trace, when set, observes every state a light enters.
	Trace func(l *lighting.Light, s LightState)
}

// FrameStats summarizes one Render call.
type FrameStats struct {
	Lights    int // lights overlapping the view
	Invisible int
	Shadowed  int // lights drawn with a stencil mask
	Triangles int
	Dropped   int
	Objects   int
	Duration  time.Duration
}

// LightPass renders every light overlapping a view into a Sink: per light the
// visibility gate, the shadow stencil and the masked light pass.
type LightPass struct {
	lights  LightSource
	objects ObjectSource
	shadows ShadowSource
	caster  *shadow.Caster
	sink    Sink

	logger  *zap.Logger
	metrics *metrics.Metrics
	trace   func(*lighting.Light, LightState)

	// prevShadow is the rect of the last stencil written, kept across
	// frames so it can be cleared before the next one.
	prevShadow geom.Rect
	hasPrev    bool

	lightBuf  []*lighting.Light
	objectBuf []*entity.Sprite
	litBuf    []*entity.Sprite
}

// NewLightPass creates a light pass. objects and shadows may be nil; a nil
// caster gets the default buffer size.
func NewLightPass(lights LightSource, objects ObjectSource, shadows ShadowSource, caster *shadow.Caster, sink Sink, opts Options) *LightPass {
	if caster == nil {
		caster = shadow.NewCaster(shadow.Options{Logger: opts.Logger, Metrics: opts.Metrics})
	}
	return &LightPass{
		lights:  lights,
		objects: objects,
		shadows: shadows,
		caster:  caster,
		sink:    sink,
		logger:  logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
		trace:   opts.Trace,
	}
}

// SetSink replaces the sink, e.g. when the screen is recreated. The stencil
// of a new sink starts clear.
func (p *LightPass) SetSink(sink Sink) {
	p.sink = sink
	p.hasPrev = false
}

// Render draws every active light overlapping view. It only reads the
// world, so all updates of the frame must come first.
func (p *LightPass) Render(view geom.Rect) FrameStats {
	start := time.Now()
	var stats FrameStats

	p.sink.BeginLights(view, p.lights.Ambient())

	// Collect first: the object queries below must not interleave with a
	// live light query.
	p.lightBuf = p.lights.Query(view, p.lightBuf[:0])

	var layer *tilemap.Layer
	if p.shadows != nil {
		layer = p.shadows.ShadowLayer()
	}

	for _, l := range p.lightBuf {
		bounds := l.BoundingRect()
		if !l.Active || bounds.Empty() {
			continue
		}
		stats.Lights++

		if p.caster.Occluded(l.Position(), layer) {
			stats.Invisible++
			p.enter(l, StateInvisible)
			continue
		}
		p.enter(l, StateVisible)

		masked := false
		if l.CastShadows && layer != nil {
			p.enter(l, StateShadowPass)
			res := p.caster.Cast(l.Position(), l.FarRadius, layer)
			stats.Triangles += res.Triangles()
			stats.Dropped += res.Dropped
			if res.Triangles() > 0 {
				if p.hasPrev {
					p.sink.ClearStencil(p.prevShadow)
				}
				p.sink.DrawStencil(res.Vertices, res.Indices)
				p.prevShadow = res.Rect
				p.hasPrev = true
				masked = true
				stats.Shadowed++
			}
		}

		p.enter(l, StateLightPass)
		lit := p.litObjects(l, bounds)
		stats.Objects += len(lit)
		p.sink.DrawLight(l, masked, lit)
	}

	p.sink.EndLights()

	stats.Duration = time.Since(start)
	p.metrics.Frame(stats.Duration)
	if stats.Dropped > 0 {
		p.logger.Debug("frame dropped shadow edges", zap.Int("dropped", stats.Dropped))
	}
	return stats
}

// litObjects returns the visible objects inside bounds whose material
// takes light, or nothing for lights that do not affect materials.
func (p *LightPass) litObjects(l *lighting.Light, bounds geom.Rect) []*entity.Sprite {
	p.litBuf = p.litBuf[:0]
	if !l.AffectMaterial || p.objects == nil {
		return p.litBuf
	}
	p.objectBuf = p.objects.QueryObjects(bounds, p.objectBuf[:0])
	for _, o := range p.objectBuf {
		if o.Visible && o.Material.Lit() {
			p.litBuf = append(p.litBuf, o)
		}
	}
	return p.litBuf
}

func (p *LightPass) enter(l *lighting.Light, s LightState) {
	p.metrics.Light(s.String())
	if p.trace != nil {
		p.trace(l, s)
	}
}
