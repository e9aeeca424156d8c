package ebiten

import (
	_ "embed"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/render"
	"chosenoffset.com/lumen2d/internal/render/lighting"
	"chosenoffset.com/lumen2d/internal/world/entity"
)

// lightShader draws a radial falloff: full strength inside Near, nothing
// past Far.
//
//go:embed light.kage
var lightShader []byte

// multiply scales the destination by the source color.
var multiply = ebiten.Blend{
	BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
	BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
	BlendFactorDestinationRGB:   ebiten.BlendFactorZero,
	BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
	BlendOperationRGB:           ebiten.BlendOperationAdd,
	BlendOperationAlpha:         ebiten.BlendOperationAdd,
}

// LightSink implements render.Sink on offscreen images. The stencil is an
// alpha mask the size of the target; each light is drawn into a scratch
// layer, cut by the mask and added to a light map that is finally
// multiplied onto the target.
type LightSink struct {
	shader *ebiten.Shader
	white  *ebiten.Image

	target   *ebiten.Image
	mask     *ebiten.Image
	layer    *ebiten.Image
	lightMap *ebiten.Image

	view     geom.Rect
	lastView geom.Rect
	scale    float64

	vertices []ebiten.Vertex
	indices  []uint16
}

var _ render.TargetSink = (*LightSink)(nil)

// NewLightSink compiles the light shader. white is a 1x1 white source
// image for flat triangles.
func NewLightSink(white *ebiten.Image) (*LightSink, error) {
	shader, err := ebiten.NewShader(lightShader)
	if err != nil {
		return nil, fmt.Errorf("failed to compile light shader: %w", err)
	}
	return &LightSink{shader: shader, white: white}, nil
}

// SetTarget sets the image the next frame is drawn onto.
func (s *LightSink) SetTarget(dst render.Image) {
	s.target = unwrap(dst)
}

// Dispose releases the offscreen images and the shader.
func (s *LightSink) Dispose() {
	for _, img := range []*ebiten.Image{s.mask, s.layer, s.lightMap} {
		if img != nil {
			img.Dispose()
		}
	}
	s.mask, s.layer, s.lightMap = nil, nil, nil
	s.shader.Dispose()
}

// BeginLights sizes the offscreen images to the target and fills the light
// map with the ambient color.
func (s *LightSink) BeginLights(view geom.Rect, ambient color.NRGBA) {
	b := s.target.Bounds()
	w, h := b.Dx(), b.Dy()
	resized := s.mask == nil || s.mask.Bounds().Dx() != w || s.mask.Bounds().Dy() != h
	if resized {
		for _, img := range []*ebiten.Image{s.mask, s.layer, s.lightMap} {
			if img != nil {
				img.Dispose()
			}
		}
		s.mask = ebiten.NewImage(w, h)
		s.layer = ebiten.NewImage(w, h)
		s.lightMap = ebiten.NewImage(w, h)
	}
	// Marks are kept in screen space, so they go stale once the view moves.
	if !resized && view != s.lastView {
		s.mask.Clear()
	}
	s.view, s.lastView = view, view
	s.scale = 1
	if view.Dx() > 0 {
		s.scale = float64(w) / view.Dx()
	}
	s.lightMap.Fill(ambient)
}

// ClearStencil removes the marks inside r.
func (s *LightSink) ClearStencil(r geom.Rect) {
	s.quad(s.mask, s.toScreen(r), color.White, ebiten.BlendClear)
}

// DrawStencil marks the triangles on the mask.
func (s *LightSink) DrawStencil(vertices []geom.Vec2, indices []uint16) {
	s.vertices = s.vertices[:0]
	for _, v := range vertices {
		p := s.point(v)
		s.vertices = append(s.vertices, ebiten.Vertex{
			DstX: float32(p[0]), DstY: float32(p[1]),
			SrcX: 1, SrcY: 1,
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		})
	}
	s.mask.DrawTriangles(s.vertices, indices, s.white, nil)
}

// DrawLight draws the light's falloff and its lit objects into the layer,
// cuts the shadow marks out when masked and adds the result to the light
// map.
func (s *LightSink) DrawLight(l *lighting.Light, masked bool, objects []*entity.Sprite) {
	lr := s.toScreen(l.BoundingRect()).Intersect(s.lightMap.Bounds())
	if lr.Empty() {
		return
	}

	c := l.Color
	k := float32(l.Intensity) / 255
	center := s.point(l.Position())

	op := &ebiten.DrawRectShaderOptions{Blend: ebiten.BlendCopy}
	op.GeoM.Translate(float64(lr.Min.X), float64(lr.Min.Y))
	op.Uniforms = map[string]any{
		"Center": []float32{float32(center[0]), float32(center[1])},
		"Near":   float32(l.NearRadius * s.scale),
		"Far":    float32(l.FarRadius * s.scale),
		"Color":  []float32{float32(c.R) * k, float32(c.G) * k, float32(c.B) * k, 1},
	}
	s.layer.DrawRectShader(lr.Dx(), lr.Dy(), s.shader, op)

	for _, o := range objects {
		a := attenuation(l, o.Position())
		if a <= 0 {
			continue
		}
		mc := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		if o.Material != nil {
			mc = o.Material.Color
		}
		oc := color.NRGBA{
			R: uint8(float64(mc.R) * float64(c.R) / 255 * a * l.Intensity),
			G: uint8(float64(mc.G) * float64(c.G) / 255 * a * l.Intensity),
			B: uint8(float64(mc.B) * float64(c.B) / 255 * a * l.Intensity),
			A: 255,
		}
		s.quad(s.layer, s.toScreen(o.AABB()), oc, ebiten.BlendLighter)
	}

	sub := func(img *ebiten.Image) *ebiten.Image {
		return img.SubImage(lr).(*ebiten.Image)
	}
	if masked {
		op := &ebiten.DrawImageOptions{Blend: ebiten.BlendDestinationOut}
		op.GeoM.Translate(float64(lr.Min.X), float64(lr.Min.Y))
		s.layer.DrawImage(sub(s.mask), op)
	}
	op2 := &ebiten.DrawImageOptions{Blend: ebiten.BlendLighter}
	op2.GeoM.Translate(float64(lr.Min.X), float64(lr.Min.Y))
	s.lightMap.DrawImage(sub(s.layer), op2)
}

// EndLights multiplies the light map onto the target.
func (s *LightSink) EndLights() {
	s.target.DrawImage(s.lightMap, &ebiten.DrawImageOptions{Blend: multiply})
}

// attenuation matches the shader's falloff at p.
func attenuation(l *lighting.Light, p geom.Vec2) float64 {
	d := p.Sub(l.Position()).Len()
	if d <= l.NearRadius {
		return 1
	}
	if d >= l.FarRadius {
		return 0
	}
	t := (d - l.NearRadius) / (l.FarRadius - l.NearRadius)
	return 1 - t*t*(3-2*t)
}

func (s *LightSink) point(p geom.Vec2) geom.Vec2 {
	return p.Sub(s.view.Min).Mul(s.scale)
}

func (s *LightSink) toScreen(r geom.Rect) image.Rectangle {
	a, b := s.point(r.Min), s.point(r.Max)
	return image.Rect(
		int(math.Floor(a[0])), int(math.Floor(a[1])),
		int(math.Ceil(b[0])), int(math.Ceil(b[1])),
	)
}

func (s *LightSink) quad(dst *ebiten.Image, r image.Rectangle, clr color.Color, blend ebiten.Blend) {
	if r.Empty() {
		return
	}
	cr, cg, cb, ca := colorScale(clr)
	x0, y0, x1, y1 := float32(r.Min.X), float32(r.Min.Y), float32(r.Max.X), float32(r.Max.Y)
	s.vertices = append(s.vertices[:0],
		ebiten.Vertex{DstX: x0, DstY: y0, SrcX: 1, SrcY: 1, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
		ebiten.Vertex{DstX: x1, DstY: y0, SrcX: 1, SrcY: 1, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
		ebiten.Vertex{DstX: x1, DstY: y1, SrcX: 1, SrcY: 1, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
		ebiten.Vertex{DstX: x0, DstY: y1, SrcX: 1, SrcY: 1, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
	)
	s.indices = append(s.indices[:0], 0, 1, 2, 0, 2, 3)
	dst.DrawTriangles(s.vertices, s.indices, s.white, &ebiten.DrawTrianglesOptions{Blend: blend})
}
