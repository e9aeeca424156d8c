package main

import (
	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/config"
	"chosenoffset.com/lumen2d/internal/metrics"
	"chosenoffset.com/lumen2d/internal/world"
	"chosenoffset.com/lumen2d/internal/world/tilemap"
)

// loadWorld loads the configured map and builds a world on it.
func loadWorld(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*world.World, error) {
	tm, err := tilemap.Load(cfg.Map.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("map loaded",
		zap.String("path", cfg.Map.Path),
		zap.String("name", tm.Name),
		zap.Int("layers", len(tm.Layers)),
		zap.Int("tiles", len(tm.Tileset)),
	)
	return world.New(tm, world.Options{
		Logger:  logger,
		Metrics: m,
		Grid:    cfg.Grid,
		Ambient: cfg.AmbientColor(),
	})
}
