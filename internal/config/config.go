// Package config loads the engine settings file.
package config

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"chosenoffset.com/lumen2d/internal/core/grid"
	"chosenoffset.com/lumen2d/internal/logging"
	"chosenoffset.com/lumen2d/internal/simulation"
	"chosenoffset.com/lumen2d/internal/world/material"
)

// Config holds every section of the settings file.
type Config struct {
	Window   Window            `yaml:"window" json:"window"`
	Grid     grid.Config       `yaml:"grid" json:"grid"`
	Shadow   Shadow            `yaml:"shadow" json:"shadow"`
	Lighting Lighting          `yaml:"lighting" json:"lighting"`
	Log      logging.Config    `yaml:"log" json:"log"`
	Map      Map               `yaml:"map" json:"map"`
	Bench    simulation.Config `yaml:"bench" json:"bench"`
}

// Window configures the demo window.
type Window struct {
	Title  string `yaml:"title" json:"title"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Shadow sizes the per-light shadow buffer. Indices are 16 bit, so the
// vertex capacity is capped at 65536.
type Shadow struct {
	MaxVertices int `yaml:"max_vertices" json:"max_vertices"`
	MaxIndices  int `yaml:"max_indices" json:"max_indices"`
}

// Lighting holds scene-wide light settings.
type Lighting struct {
	// Ambient is the color of unlit areas as RRGGBB.
	Ambient string `yaml:"ambient" json:"ambient"`
}

// Map selects the map file to load.
type Map struct {
	Path string `yaml:"path" json:"path"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Window: Window{
			Title:  "lumen2d",
			Width:  1280,
			Height: 720,
		},
		Grid: grid.DefaultConfig(),
		Shadow: Shadow{
			MaxVertices: 8192,
			MaxIndices:  16384,
		},
		Lighting: Lighting{Ambient: "202028"},
		Log:      logging.Config{Level: "info"},
		Map:      Map{Path: "data/maps/demo.yaml"},
		Bench:    simulation.DefaultConfig(),
	}
}

// AmbientColor returns the parsed ambient color, or the zero color when
// none is set.
func (c Config) AmbientColor() color.NRGBA {
	if c.Lighting.Ambient == "" {
		return color.NRGBA{}
	}
	clr, err := material.ParseColor(c.Lighting.Ambient)
	if err != nil {
		return color.NRGBA{}
	}
	return clr
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses settings from r on top of the defaults. An empty document
// yields the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size: %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Grid.CellSize <= 0 || math.IsNaN(c.Grid.CellSize) {
		return fmt.Errorf("invalid grid cell size: %v", c.Grid.CellSize)
	}
	if c.Grid.Extent[0] <= 0 || c.Grid.Extent[1] <= 0 {
		return fmt.Errorf("invalid grid extent: %v", c.Grid.Extent)
	}
	if c.Grid.MaxSpanX <= 0 || c.Grid.MaxSpanY <= 0 {
		return fmt.Errorf("invalid grid span limit: %dx%d", c.Grid.MaxSpanX, c.Grid.MaxSpanY)
	}
	if c.Shadow.MaxVertices < 6 || c.Shadow.MaxVertices > math.MaxUint16+1 {
		return fmt.Errorf("invalid shadow vertex capacity: %d", c.Shadow.MaxVertices)
	}
	if c.Shadow.MaxIndices < 12 {
		return fmt.Errorf("invalid shadow index capacity: %d", c.Shadow.MaxIndices)
	}
	if c.Lighting.Ambient != "" {
		if _, err := material.ParseColor(c.Lighting.Ambient); err != nil {
			return fmt.Errorf("invalid ambient color: %w", err)
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if err := c.Bench.Validate(); err != nil {
		return fmt.Errorf("invalid bench settings: %w", err)
	}
	return nil
}
