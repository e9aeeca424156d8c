package render

import (
	"image/color"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/render/lighting"
	"chosenoffset.com/lumen2d/internal/world/entity"
)

// Sink receives the batches of the light pass. All geometry is in world
// coordinates; the sink maps it through the view given to BeginLights.
//
// The stencil is one mask shared by every light of a frame. It is only
// cleared where asked, so a sink must keep marks between calls.
type Sink interface {
	// BeginLights starts a frame. Unlit areas get the ambient color.
	BeginLights(view geom.Rect, ambient color.NRGBA)
	// ClearStencil removes the shadow marks inside r.
	ClearStencil(r geom.Rect)
	// DrawStencil marks the area covered by the indexed triangles.
	DrawStencil(vertices []geom.Vec2, indices []uint16)
	// DrawLight adds the light's footprint and lights objects. When masked
	// is set, marked pixels are left out.
	DrawLight(l *lighting.Light, masked bool, objects []*entity.Sprite)
	// EndLights finishes the frame.
	EndLights()
}

// TargetSink is a Sink that draws onto an Image. The target is set once per
// frame, before BeginLights.
type TargetSink interface {
	Sink
	SetTarget(dst Image)
	Dispose()
}

// CountingSink discards the batches and counts them. It backs headless
// runs.
type CountingSink struct {
	Frames           int
	StencilClears    int
	StencilBatches   int
	StencilTriangles int
	Lights           int
	MaskedLights     int
	LitObjects       int
}

var _ Sink = (*CountingSink)(nil)

func (s *CountingSink) BeginLights(geom.Rect, color.NRGBA) {}

func (s *CountingSink) ClearStencil(geom.Rect) {
	s.StencilClears++
}

func (s *CountingSink) DrawStencil(_ []geom.Vec2, indices []uint16) {
	s.StencilBatches++
	s.StencilTriangles += len(indices) / 3
}

func (s *CountingSink) DrawLight(_ *lighting.Light, masked bool, objects []*entity.Sprite) {
	s.Lights++
	if masked {
		s.MaskedLights++
	}
	s.LitObjects += len(objects)
}

func (s *CountingSink) EndLights() {
	s.Frames++
}
