// Package simulation runs a world headless: bodies wander the map while the
// light pass renders a moving view into a sink. It backs the bench command.
package simulation

import (
	"fmt"
)

// Config holds the parameters of a headless run.
type Config struct {
	Frames int `yaml:"frames" json:"frames"`
	// Bodies is the number of wandering bodies spawned on open tiles.
	Bodies int `yaml:"bodies" json:"bodies"`
	// LightEvery gives every n-th body a light; 0 spawns none.
	LightEvery  int     `yaml:"light_every" json:"light_every"`
	LightRadius float64 `yaml:"light_radius" json:"light_radius"`
	Seed        uint64  `yaml:"seed" json:"seed"`

	MinSpeed float64 `yaml:"min_speed" json:"min_speed"` // world units per second
	MaxSpeed float64 `yaml:"max_speed" json:"max_speed"`
	Step     float64 `yaml:"step" json:"step"` // seconds per frame

	ViewWidth  float64 `yaml:"view_width" json:"view_width"`
	ViewHeight float64 `yaml:"view_height" json:"view_height"`
}

// DefaultConfig returns the settings of the stock bench.
func DefaultConfig() Config {
	return Config{
		Frames:      600,
		Bodies:      64,
		LightEvery:  4,
		LightRadius: 128,
		Seed:        1,
		MinSpeed:    40,
		MaxSpeed:    120,
		Step:        1.0 / 60.0,
		ViewWidth:   1280,
		ViewHeight:  720,
	}
}

// Validate checks the ranges a run depends on.
func (c Config) Validate() error {
	if c.Frames < 0 {
		return fmt.Errorf("frames must not be negative: %d", c.Frames)
	}
	if c.Bodies < 0 {
		return fmt.Errorf("bodies must not be negative: %d", c.Bodies)
	}
	if c.LightEvery < 0 {
		return fmt.Errorf("light_every must not be negative: %d", c.LightEvery)
	}
	if c.LightEvery > 0 && c.LightRadius <= 0 {
		return fmt.Errorf("light_radius must be positive: %v", c.LightRadius)
	}
	if c.MinSpeed < 0 || c.MaxSpeed < c.MinSpeed {
		return fmt.Errorf("invalid speed range %v..%v", c.MinSpeed, c.MaxSpeed)
	}
	if c.Step <= 0 {
		return fmt.Errorf("step must be positive: %v", c.Step)
	}
	if c.ViewWidth <= 0 || c.ViewHeight <= 0 {
		return fmt.Errorf("invalid view size %vx%v", c.ViewWidth, c.ViewHeight)
	}
	return nil
}
