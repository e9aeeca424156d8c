package main

import (
	"errors"
	"net/http"
	"net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/game"
	"chosenoffset.com/lumen2d/internal/metrics"
	ebitenrender "chosenoffset.com/lumen2d/internal/render/ebiten"
	"chosenoffset.com/lumen2d/internal/render/shadow"
)

var (
	adminAddr   string
	playerSpeed float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the interactive demo",
	Long: `Open a window on the map. WASD or arrows move, L toggles the lantern,
F toggles shadows, a click places a light and ESC pauses.`,
	RunE: runDemo,
}

func init() {
	runCmd.Flags().StringVar(&adminAddr, "admin-addr", "", "serve /metrics and /debug/pprof on this address")
	runCmd.Flags().Float64Var(&playerSpeed, "speed", 180, "player speed in world units per second")
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	m := metrics.New(prometheus.DefaultRegisterer)
	w, err := loadWorld(cfg, logger, m)
	if err != nil {
		return err
	}

	if adminAddr != "" {
		var admin http.ServeMux
		admin.Handle("/metrics", promhttp.Handler())
		admin.HandleFunc("/debug/pprof/", pprof.Index)
		admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
		admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
		srv := &http.Server{Addr: adminAddr, Handler: &admin}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("admin server listening", zap.String("addr", adminAddr))
	}

	// Initialize the renderer backend (ebiten)
	renderer := ebitenrender.NewRenderer()
	inputMgr := ebitenrender.NewInputManager()
	engine := ebitenrender.NewEngine()

	manager := game.NewManager(renderer, inputMgr, cfg.Window.Width, cfg.Window.Height, logger)
	err = manager.LoadGame(w, game.Options{
		Logger:  logger,
		Metrics: m,
		Shadow: shadow.Options{
			MaxVertices: cfg.Shadow.MaxVertices,
			MaxIndices:  cfg.Shadow.MaxIndices,
		},
		PlayerSpeed: playerSpeed,
	})
	if err != nil {
		return err
	}

	// Set up the window
	engine.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	engine.SetWindowTitle(cfg.Window.Title)
	engine.SetWindowResizable(true)

	logger.Info("starting demo", zap.String("map", w.Map.Name))
	return engine.RunGame(manager)
}
