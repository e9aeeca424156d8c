package main

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/metrics"
	"chosenoffset.com/lumen2d/internal/render"
	"chosenoffset.com/lumen2d/internal/render/shadow"
	"chosenoffset.com/lumen2d/internal/simulation"
)

var (
	benchFrames int
	benchBodies int
	benchSeed   uint64
	dumpMetrics bool
	jsonReport  bool
)

var benchCmd = newBenchCmd()

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Render frames headless and report the stats",
		Long: `Load the map, spawn wandering bodies carrying lights and run the light
pass into a counting sink for a number of frames.`,
		RunE: runBench,
	}
	cmd.Flags().IntVar(&benchFrames, "frames", 0, "number of frames, overrides the settings file")
	cmd.Flags().IntVar(&benchBodies, "bodies", 0, "number of wandering bodies, overrides the settings file")
	cmd.Flags().Uint64Var(&benchSeed, "seed", 0, "random seed, overrides the settings file")
	cmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "print the collected metrics when done")
	cmd.Flags().BoolVar(&jsonReport, "json", false, "print the result as JSON")
	return cmd
}

// benchSettings applies the flags the user set on top of base.
func benchSettings(cmd *cobra.Command, base simulation.Config) simulation.Config {
	flags := cmd.Flags()
	if flags.Changed("frames") {
		base.Frames = benchFrames
	}
	if flags.Changed("bodies") {
		base.Bodies = benchBodies
	}
	if flags.Changed("seed") {
		base.Seed = benchSeed
	}
	return base
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	sim := benchSettings(cmd, cfg.Bench)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	w, err := loadWorld(cfg, logger, m)
	if err != nil {
		return err
	}

	sink := &render.CountingSink{}
	caster := shadow.NewCaster(shadow.Options{
		MaxVertices: cfg.Shadow.MaxVertices,
		MaxIndices:  cfg.Shadow.MaxIndices,
		Logger:      logger,
		Metrics:     m,
	})
	pass := render.NewLightPass(w.Lights(), w, w, caster, sink, render.Options{Logger: logger, Metrics: m})

	runner, err := simulation.New(w, pass, sim, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	perFrame := func(d time.Duration) time.Duration {
		if res.Frames == 0 {
			return 0
		}
		return d / time.Duration(res.Frames)
	}
	logger.Info("bench finished",
		zap.Int("frames", res.Frames),
		zap.Int("bodies", res.Bodies),
		zap.Int("lights", w.Lights().Len()),
		zap.Int("contacts", res.Contacts),
		zap.Int("lights_drawn", sink.Lights),
		zap.Int("lights_masked", sink.MaskedLights),
		zap.Int("invisible", res.Invisible),
		zap.Int("triangles", res.Triangles),
		zap.Int("dropped_edges", res.Dropped),
		zap.Int("lit_objects", res.Objects),
		zap.Duration("update_per_frame", perFrame(res.Update)),
		zap.Duration("render_per_frame", perFrame(res.Render)),
		zap.Duration("elapsed", elapsed),
	)

	if jsonReport {
		if err := writeReport(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	}

	if dumpMetrics {
		families, err := reg.Gather()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeReport(w io.Writer, res simulation.Result) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
