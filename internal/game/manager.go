package game

import (
	"fmt"

	"go.uber.org/zap"

	"chosenoffset.com/lumen2d/internal/logging"
	"chosenoffset.com/lumen2d/internal/render"
	"chosenoffset.com/lumen2d/internal/world"
)

// Manager handles the overall demo state: pausing, resizing and the game
// itself.
type Manager struct {
	ScreenWidth  int
	ScreenHeight int
	State        State
	Game         *Game
	Renderer     render.Renderer
	InputMgr     render.InputManager

	logger *zap.Logger
}

// NewManager creates a new game manager.
func NewManager(r render.Renderer, input render.InputManager, width, height int, logger *zap.Logger) *Manager {
	return &Manager{
		ScreenWidth:  width,
		ScreenHeight: height,
		State:        StatePlaying,
		Renderer:     r,
		InputMgr:     input,
		logger:       logging.OrNop(logger),
	}
}

// LoadGame starts a game on w, replacing the current one.
func (m *Manager) LoadGame(w *world.World, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = m.logger
	}
	g, err := New(w, m.Renderer, m.InputMgr, m.ScreenWidth, m.ScreenHeight, opts)
	if err != nil {
		return fmt.Errorf("failed to load game: %w", err)
	}
	if m.Game != nil {
		m.Game.Sink.Dispose()
	}
	m.Game = g
	m.State = StatePlaying
	return nil
}

// Update updates the game state. Escape pauses and resumes.
func (m *Manager) Update() error {
	if m.Game == nil {
		return nil
	}
	if m.InputMgr.IsKeyJustPressed(render.KeyEscape) {
		if m.State == StatePlaying {
			m.State = StatePaused
		} else {
			m.State = StatePlaying
		}
		m.logger.Debug("pause toggled", zap.Bool("paused", m.State == StatePaused))
	}
	if m.State == StatePaused {
		return nil
	}
	return m.Game.Update()
}

// Draw draws the current state.
func (m *Manager) Draw(screen render.Image) {
	if m.Game == nil {
		return
	}
	m.Game.Draw(screen)
	if m.State == StatePaused {
		text := "Paused - press ESC to resume"
		w, h := m.Renderer.MeasureText(text, 1)
		m.Renderer.DrawText(screen, text, (m.ScreenWidth-w)/2, (m.ScreenHeight-h)/2)
	}
}

// Layout handles window resize.
func (m *Manager) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != m.ScreenWidth || outsideHeight != m.ScreenHeight {
		m.ScreenWidth = outsideWidth
		m.ScreenHeight = outsideHeight
		if m.Game != nil {
			m.Game.ScreenWidth = outsideWidth
			m.Game.ScreenHeight = outsideHeight
			m.Game.UpdateCamera()
		}
	}
	return outsideWidth, outsideHeight
}
