// Package game is the interactive demo: a player body walking a tile map
// lit by shadow casting lights.
package game

import (
	"fmt"
	"image/color"

	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/logging"
	"chosenoffset.com/lumen2d/internal/metrics"
	"chosenoffset.com/lumen2d/internal/physics/collide"
	"chosenoffset.com/lumen2d/internal/render"
	"chosenoffset.com/lumen2d/internal/render/lighting"
	"chosenoffset.com/lumen2d/internal/render/shadow"
	"chosenoffset.com/lumen2d/internal/world"
	"chosenoffset.com/lumen2d/internal/world/entity"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

const (
	playerSize        = 12.0
	playerLightNear   = 16.0
	playerLightRadius = 220.0
	placedLightRadius = 120.0
	maxPlacedLights   = 32
)

var playerLightColor = color.NRGBA{R: 255, G: 240, B: 200, A: 255}

// placedColors cycles through the colors of lights placed with the mouse.
var placedColors = []color.NRGBA{
	{R: 255, G: 120, B: 80, A: 255},
	{R: 120, G: 200, B: 255, A: 255},
	{R: 160, G: 255, B: 140, A: 255},
	{R: 230, G: 140, B: 255, A: 255},
}

// Options configures a Game.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Shadow sizes the shadow buffer; zero values take the defaults.
	Shadow shadow.Options
	// PlayerSpeed is in world units per second.
	PlayerSpeed float64
}

// Game holds all game state and logic.
type Game struct {
	ScreenWidth  int
	ScreenHeight int

	World     *world.World
	Player    *entity.Body
	Camera    Camera
	Renderer  render.Renderer
	InputMgr  render.InputManager
	LightPass *render.LightPass
	Sink      render.TargetSink

	PlayerSpeed float64
	ShadowsOn   bool

	// Cursor is the mouse position in world coordinates; CursorClear is
	// set when no tile blocks the line from the player to it.
	Cursor      geom.Vec2
	CursorClear bool

	// LastFrame holds the stats of the last light pass.
	LastFrame render.FrameStats

	// UI state
	Messages []Message

	placed    int
	spriteBuf []*entity.Sprite
	lightBuf  []*lighting.Light
	polyBuf   []geom.Vec2

	logger *zap.Logger

	// Debug
	FrameCount int
}

// New creates the demo on w. The player spawns at the map's spawn point
// carrying a light.
func New(w *world.World, r render.Renderer, input render.InputManager, width, height int, opts Options) (*Game, error) {
	sink, err := r.NewLightSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create light sink: %w", err)
	}

	g := &Game{
		ScreenWidth:  width,
		ScreenHeight: height,
		World:        w,
		Renderer:     r,
		InputMgr:     input,
		Sink:         sink,
		PlayerSpeed:  opts.PlayerSpeed,
		ShadowsOn:    true,
		logger:       logging.OrNop(opts.Logger),
	}
	if g.PlayerSpeed <= 0 {
		g.PlayerSpeed = 180
	}

	spawn := w.Map.PlayerSpawn
	g.Player = entity.NewBoxBody("player", playerSize, playerSize)
	g.Player.CollideType = world.FlagPlayer
	g.Player.CollideMask = world.FlagProp
	g.Player.SetPosition(spawn)
	w.AddBody(g.Player)

	lights := w.Lights()
	pl := lights.SetPlayerLight(spawn, playerLightRadius, 1.0, playerLightColor)
	pl.SetRadius(playerLightNear, playerLightRadius)
	lights.EnablePlayerLight(true)
	w.Follow(g.Player, pl, geom.Vec2{})

	so := opts.Shadow
	so.Logger, so.Metrics = opts.Logger, opts.Metrics
	caster := shadow.NewCaster(so)
	g.LightPass = render.NewLightPass(lights, w, g, caster, sink, render.Options{
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})

	g.UpdateCamera()
	g.logger.Info("game started", zap.String("map", w.Map.Name), zap.Float64("x", spawn[0]), zap.Float64("y", spawn[1]))
	return g, nil
}

// Update handles game logic updates.
func (g *Game) Update() error {
	// Delta time for timers (assuming 60 FPS)
	dt := 1.0 / 60.0

	g.updateMessages(dt)

	var dir geom.Vec2
	if g.InputMgr.IsKeyPressed(render.KeyW) || g.InputMgr.IsKeyPressed(render.KeyUp) {
		dir[1]--
	}
	if g.InputMgr.IsKeyPressed(render.KeyS) || g.InputMgr.IsKeyPressed(render.KeyDown) {
		dir[1]++
	}
	if g.InputMgr.IsKeyPressed(render.KeyA) || g.InputMgr.IsKeyPressed(render.KeyLeft) {
		dir[0]--
	}
	if g.InputMgr.IsKeyPressed(render.KeyD) || g.InputMgr.IsKeyPressed(render.KeyRight) {
		dir[0]++
	}
	if dir != (geom.Vec2{}) {
		dir = dir.Normalize()
	}
	g.Player.Velocity = dir.Mul(g.PlayerSpeed)

	// Toggle player light with L key
	if g.InputMgr.IsKeyJustPressed(render.KeyL) {
		lights := g.World.Lights()
		wasOn := lights.IsPlayerLightOn()
		lights.EnablePlayerLight(!wasOn)
		if !wasOn {
			g.ShowMessage("Lantern on")
		} else {
			g.ShowMessage("Lantern off")
		}
	}

	// Toggle shadows with F key
	if g.InputMgr.IsKeyJustPressed(render.KeyF) {
		g.ShadowsOn = !g.ShadowsOn
		if g.ShadowsOn {
			g.ShowMessage("Shadows on")
		} else {
			g.ShowMessage("Shadows off")
		}
	}

	cx, cy := g.InputMgr.GetCursorPosition()
	g.Cursor = geom.V(float64(cx)+g.Camera.X, float64(cy)+g.Camera.Y)
	if g.InputMgr.IsMouseButtonJustPressed(render.MouseButtonLeft) {
		g.PlaceLight(g.Cursor)
	}

	g.World.Update(dt)
	g.UpdateCamera()

	g.CursorClear = g.World.Collider().CollideLine(g.Player.Position(), g.Cursor, collide.FlagTile) == 0
	return nil
}

// PlaceLight adds a colored light at p unless p is inside a wall or a
// solid prop.
func (g *Game) PlaceLight(p geom.Vec2) bool {
	if g.placed >= maxPlacedLights {
		g.ShowMessage("No more lights to place")
		return false
	}
	probe := geom.RectAround(p, 2, 2)
	if g.World.Collider().CollideRect(probe, collide.FlagTile|world.FlagProp, nil) != 0 {
		g.ShowMessage("Cannot place a light inside a wall")
		return false
	}

	l := lighting.NewLight(fmt.Sprintf("placed-%d", g.placed), p, placedLightRadius)
	l.Color = placedColors[g.placed%len(placedColors)]
	g.World.AddLight(l)
	g.placed++
	g.ShowMessage(fmt.Sprintf("Placed light %d", g.placed))
	return true
}

// ShadowLayer implements render.ShadowSource; it hides the shadow layer
// while shadows are toggled off.
func (g *Game) ShadowLayer() *tilemap.Layer {
	if !g.ShadowsOn {
		return nil
	}
	return g.World.ShadowLayer()
}

// Layout returns the game's logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.ScreenWidth, g.ScreenHeight
}

// View returns the world rect shown on screen.
func (g *Game) View() geom.Rect {
	return geom.RectAt(geom.V(g.Camera.X, g.Camera.Y), float64(g.ScreenWidth), float64(g.ScreenHeight))
}

func (g *Game) updateMessages(dt float64) {
	var active []Message
	for _, msg := range g.Messages {
		msg.TimeLeft -= dt
		if msg.TimeLeft > 0 {
			active = append(active, msg)
		}
	}
	g.Messages = active
}

// ShowMessage adds a new message to be displayed on screen.
func (g *Game) ShowMessage(text string) {
	g.Messages = append(g.Messages, Message{
		Text:     text,
		TimeLeft: 3.0,
		MaxTime:  3.0,
	})
	g.logger.Debug("message", zap.String("text", text))
}

// UpdateCamera updates the camera to follow the player.
func (g *Game) UpdateCamera() {
	pos := g.Player.Position()
	bounds := g.World.Bounds()
	g.Camera.X = clampAxis(pos[0]-float64(g.ScreenWidth)/2, bounds.Dx(), float64(g.ScreenWidth))
	g.Camera.Y = clampAxis(pos[1]-float64(g.ScreenHeight)/2, bounds.Dy(), float64(g.ScreenHeight))
}

// clampAxis keeps the camera inside the map, or centers the map when it is
// smaller than the screen.
func clampAxis(v, mapSize, screenSize float64) float64 {
	if mapSize <= screenSize {
		return (mapSize - screenSize) / 2
	}
	return max(0, min(v, mapSize-screenSize))
}
