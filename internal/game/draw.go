package game

import (
	"fmt"
	"image/color"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/render"
	"chosenoffset.com/lumen2d/internal/world/material"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

var (
	wallColor   = color.NRGBA{R: 130, G: 130, B: 140, A: 255}
	floorColor  = color.NRGBA{R: 70, G: 66, B: 60, A: 255}
	spriteColor = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	playerColor = color.NRGBA{R: 255, G: 255, B: 100, A: 255}
	blockedRed  = color.NRGBA{R: 255, G: 80, B: 80, A: 255}
	clearGrey   = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
)

// Draw renders the game to the screen.
func (g *Game) Draw(screen render.Image) {
	screen.Fill(color.Black)
	view := g.View()

	// Step 1: Albedo of everything that takes light
	g.drawTiles(screen, view)
	g.drawSprites(screen, view, true)
	g.drawPlayer(screen)

	// Step 2: Lights, shadows and ambient
	g.Sink.SetTarget(screen)
	g.LastFrame = g.LightPass.Render(view)

	// Step 3: Unlit and glowing sprites on top
	g.drawSprites(screen, view, false)
	g.drawLightMarkers(screen, view)

	// Step 4: Draw UI elements on top (unaffected by lighting)
	g.drawUI(screen)
	g.drawHUD(screen)
	g.FrameCount++
}

func (g *Game) toScreen(p geom.Vec2) geom.Vec2 {
	return geom.V(p[0]-g.Camera.X, p[1]-g.Camera.Y)
}

func (g *Game) drawTiles(screen render.Image, view geom.Rect) {
	for _, layer := range g.World.Map.Layers {
		size := layer.TileSize()
		for origin, t := range layer.TilesIn(view) {
			clr := tileColor(t)
			mesh := t.Mesh()
			if mesh == nil {
				o := g.toScreen(origin)
				g.Renderer.FillRect(screen, geom.RectAt(o, size, size), clr)
				continue
			}
			g.polyBuf = g.polyBuf[:0]
			for _, p := range mesh.Positions {
				g.polyBuf = append(g.polyBuf, g.toScreen(p.Add(origin)))
			}
			g.Renderer.FillPolygon(screen, g.polyBuf, clr)
		}
	}
}

func tileColor(t *tilemap.Tile) color.Color {
	if t.Data.Material != nil {
		return t.Data.Material.Color
	}
	if t.Data.Solid() {
		return wallColor
	}
	return floorColor
}

// drawSprites draws the visible sprites whose material takes light (lit)
// or does not (!lit).
func (g *Game) drawSprites(screen render.Image, view geom.Rect, lit bool) {
	g.spriteBuf = g.World.QueryObjects(view, g.spriteBuf[:0])
	for _, s := range g.spriteBuf {
		if !s.Visible || s.Material.Lit() != lit {
			continue
		}
		clr := spriteColor
		if s.Material != nil {
			clr = s.Material.Color
		}
		if s.Material.Blend() == material.BlendAdd {
			clr.A /= 2
		}
		g.Renderer.FillRect(screen, s.AABB().Translate(geom.V(-g.Camera.X, -g.Camera.Y)), clr)
	}
}

func (g *Game) drawPlayer(screen render.Image) {
	g.Renderer.FillRect(screen, g.Player.AABB().Translate(geom.V(-g.Camera.X, -g.Camera.Y)), playerColor)
}

// drawLightMarkers dots every light on screen and rings the cursor, red
// when a wall blocks the line from the player.
func (g *Game) drawLightMarkers(screen render.Image, view geom.Rect) {
	g.lightBuf = g.World.Lights().Query(view, g.lightBuf[:0])
	for _, l := range g.lightBuf {
		p := g.toScreen(l.Position())
		g.Renderer.FillCircle(screen, float32(p[0]), float32(p[1]), 3, l.Color)
	}

	c := g.toScreen(g.Cursor)
	ring := clearGrey
	if !g.CursorClear {
		ring = blockedRed
	}
	g.Renderer.StrokeCircle(screen, float32(c[0]), float32(c[1]), 6, 1, ring)
}

func (g *Game) drawUI(screen render.Image) {
	// Draw on-screen messages
	y := 50
	for _, msg := range g.Messages {
		g.Renderer.DrawText(screen, msg.Text, 20, y)
		y += 20
	}
}

func (g *Game) drawHUD(screen render.Image) {
	f := g.LastFrame
	g.Renderer.DrawText(screen, fmt.Sprintf("lights %d  shadowed %d  hidden %d  lit objects %d",
		f.Lights, f.Shadowed, f.Invisible, f.Objects), 8, 4)
	g.Renderer.DrawText(screen, fmt.Sprintf("triangles %d  dropped edges %d", f.Triangles, f.Dropped), 8, 20)

	help := fmt.Sprintf("[F] shadows %s  [L] lantern %s  [click] place light",
		onOff(g.ShadowsOn), onOff(g.World.Lights().IsPlayerLightOn()))
	w, h := g.Renderer.MeasureText(help, 1)
	g.Renderer.DrawText(screen, help, g.ScreenWidth-w-8, g.ScreenHeight-h-4)

	timing := fmt.Sprintf("light pass %.2fms", float64(f.Duration.Microseconds())/1000)
	w, _ = g.Renderer.MeasureText(timing, 1)
	g.Renderer.DrawText(screen, timing, g.ScreenWidth-w-8, 4)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
