// Package main is the entry point for the lumen2d demo and bench.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/config"
	"chosenoffset.com/lumen2d/internal/logging"
)

var (
	configPath string
	mapPath    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "lumen2d",
	Short: "2D lighting and collision sandbox",
	Long: `lumen2d walks a tile map with a spatial grid, a separating axis collider
and shadow casting lights. "run" opens the interactive demo, "bench" renders
frames headless.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&mapPath, "map", "", "map file, overrides the settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the settings file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
}

// setup loads the settings, applies flag overrides and builds the logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, nil, err
		}
	}
	if mapPath != "" {
		cfg.Map.Path = mapPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}
