package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/core/geom"
	"chosenoffset.com/lumen2d/internal/logging"
	"chosenoffset.com/lumen2d/internal/render"
	"chosenoffset.com/lumen2d/internal/render/lighting"
	"chosenoffset.com/lumen2d/internal/world"
	"chosenoffset.com/lumen2d/internal/world/entity"
)

const wandererSize = 10.0

// Result sums the stats of every frame of a run.
type Result struct {
	Frames   int `json:"frames"`
	Bodies   int `json:"bodies"`
	Contacts int `json:"contacts"`

	Lights    int `json:"lights"`
	Invisible int `json:"invisible"`
	Shadowed  int `json:"shadowed"`
	Triangles int `json:"triangles"`
	Dropped   int `json:"dropped"`
	Objects   int `json:"objects"`

	Update time.Duration `json:"update_ns"`
	Render time.Duration `json:"render_ns"`
}

// Runner steps a world and renders it into the light pass's sink.
type Runner struct {
	world     *world.World
	pass      *render.LightPass
	cfg       Config
	rng       *rand.Rand
	wanderers []*entity.Body
	logger    *zap.Logger
}

// New spawns the wanderers of cfg on random open tiles of w.
func New(w *world.World, pass *render.LightPass, cfg Config, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	r := &Runner{
		world:  w,
		pass:   pass,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		logger: logging.OrNop(logger),
	}

	open := openTiles(w)
	if cfg.Bodies > 0 && len(open) == 0 {
		return nil, fmt.Errorf("map %s has no open tile to spawn on", w.Map.Name)
	}
	for i := 0; i < cfg.Bodies; i++ {
		r.spawn(i, open[r.rng.IntN(len(open))])
	}
	return r, nil
}

// Wanderers returns the spawned bodies.
func (r *Runner) Wanderers() []*entity.Body {
	return r.wanderers
}

func (r *Runner) spawn(i int, pos geom.Vec2) {
	b := entity.NewBoxBody(fmt.Sprintf("wanderer-%d", i), wandererSize, wandererSize)
	b.CollideType = world.FlagPlayer
	b.CollideMask = world.FlagPlayer | world.FlagProp
	b.SetPosition(pos)

	angle := r.rng.Float64() * 2 * math.Pi
	speed := r.cfg.MinSpeed + r.rng.Float64()*(r.cfg.MaxSpeed-r.cfg.MinSpeed)
	b.Velocity = geom.V(math.Cos(angle), math.Sin(angle)).Mul(speed)
	r.world.AddBody(b)

	s := entity.NewSprite(b.Name, wandererSize, wandererSize, nil)
	r.world.AddSprite(s)
	r.world.Follow(b, s, geom.Vec2{})

	if r.cfg.LightEvery > 0 && i%r.cfg.LightEvery == 0 {
		l := lighting.NewLight(b.Name, pos, r.cfg.LightRadius)
		r.world.AddLight(l)
		r.world.Follow(b, l, geom.Vec2{})
	}
	r.wanderers = append(r.wanderers, b)
}

// openTiles returns the centers of the tiles no collide layer fills.
func openTiles(w *world.World) []geom.Vec2 {
	m := w.Map
	var open []geom.Vec2
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			solid := false
			for _, l := range m.Layers {
				if l.Collide && l.At(x, y).Mesh() != nil {
					solid = true
					break
				}
			}
			if !solid {
				open = append(open, geom.V((float64(x)+0.5)*m.TileSize, (float64(y)+0.5)*m.TileSize))
			}
		}
	}
	return open
}

// Step runs one frame: update, bounce, then render the view.
func (r *Runner) Step(res *Result) {
	start := time.Now()
	us := r.world.Update(r.cfg.Step)
	for _, b := range r.wanderers {
		// Bounce off whatever pushed back against the motion.
		if b.LastPush[0]*b.Velocity[0] < 0 {
			b.Velocity[0] = -b.Velocity[0]
		}
		if b.LastPush[1]*b.Velocity[1] < 0 {
			b.Velocity[1] = -b.Velocity[1]
		}
	}
	res.Update += time.Since(start)

	fs := r.pass.Render(r.View())
	res.Frames++
	res.Contacts += us.Contacts
	res.Lights += fs.Lights
	res.Invisible += fs.Invisible
	res.Shadowed += fs.Shadowed
	res.Triangles += fs.Triangles
	res.Dropped += fs.Dropped
	res.Objects += fs.Objects
	res.Render += fs.Duration
}

// View follows the first wanderer, kept inside the map; without wanderers
// it shows the map center.
func (r *Runner) View() geom.Rect {
	bounds := r.world.Bounds()
	c := bounds.Center()
	if len(r.wanderers) > 0 {
		c = r.wanderers[0].Position()
	}
	x := clampAxis(c[0]-r.cfg.ViewWidth/2, bounds.Dx(), r.cfg.ViewWidth)
	y := clampAxis(c[1]-r.cfg.ViewHeight/2, bounds.Dy(), r.cfg.ViewHeight)
	return geom.RectAt(geom.V(x, y), r.cfg.ViewWidth, r.cfg.ViewHeight)
}

func clampAxis(v, mapSize, viewSize float64) float64 {
	if mapSize <= viewSize {
		return (mapSize - viewSize) / 2
	}
	return max(0, min(v, mapSize-viewSize))
}

// Run steps cfg.Frames frames or until ctx is done.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	res := Result{Bodies: len(r.wanderers)}
	for i := 0; i < r.cfg.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("simulation stopped after %d frames: %w", i, err)
		}
		r.Step(&res)
	}
	r.logger.Debug("simulation finished", zap.Int("frames", res.Frames), zap.Int("dropped", res.Dropped))
	return res, nil
}
