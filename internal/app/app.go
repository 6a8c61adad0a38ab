// Package app wires pose input, gesture classification and the game engine
// into a running PoseBeat session.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/posebeat/internal/capture"
	"github.com/ayusman/posebeat/internal/game"
	"github.com/ayusman/posebeat/internal/gesture"
	"github.com/ayusman/posebeat/internal/pose"
	"github.com/ayusman/posebeat/internal/store"
)

// Loop timing defaults.
const (
	// DefaultCaptureFPS is the native camera frame rate.
	DefaultCaptureFPS = 30
	// DefaultTickInterval drives the engine at roughly 60Hz.
	DefaultTickInterval = 16 * time.Millisecond
)

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store
	// Native enables the camera and pose subprocess pipeline. Without it,
	// frames arrive through HandleFrame, e.g. from the browser websocket.
	Native            bool
	Camera            capture.Config
	CaptureFPS        int
	TickInterval      time.Duration
	CalibrationFrames int
	Pose              pose.Config
	Gesture           gesture.Options
	Game              game.Config
}

// App is the main application that runs the pose pipeline and the game loop.
type App struct {
	config  Config
	camera  capture.Camera
	source  pose.Source
	engine  *game.Engine
	session *Session
	enabled bool
	epoch   time.Time
	mu      sync.RWMutex
	stopCh  chan struct{}

	previewMu sync.RWMutex
	preview   []byte
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.CaptureFPS <= 0 {
		config.CaptureFPS = DefaultCaptureFPS
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.CalibrationFrames <= 0 {
		config.CalibrationFrames = pose.DefaultCalibrationFrames
	}

	engine := game.New(config.Game)
	a := &App{
		config:  config,
		engine:  engine,
		session: NewSession(engine, config.Gesture),
		enabled: true,
		epoch:   time.Now(),
	}

	if config.Native {
		a.camera = capture.NewCameraWithConfig(config.Camera)

		// Try MediaPipe first, fall back to mock source
		if mp, err := pose.NewMediaPipeSource(config.Pose); err == nil {
			a.source = mp
			log.Println("Using MediaPipe pose estimation")
		} else {
			log.Printf("MediaPipe not available (%v), using mock pose source", err)
			a.source = pose.NewMockSource()
		}
	}

	a.session.OnCalibrated(a.saveCalibration)
	return a
}

// Engine returns the game engine.
func (a *App) Engine() *game.Engine {
	return a.engine
}

// Session returns the session controller.
func (a *App) Session() *Session {
	return a.session
}

// Camera returns the camera, nil unless the native pipeline is configured.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// SetCamera replaces the camera used by the native pipeline.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetSource sets the pose estimation implementation to use.
func (a *App) SetSource(s pose.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = s
}

// Source returns the pose source.
func (a *App) Source() pose.Source {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.source
}

// SetListener sets the receiver of game notifications.
func (a *App) SetListener(l game.Listener) {
	a.engine.SetListener(l)
}

// SetEnabled enables or disables play. Disabling pauses a running game and
// stops frame processing; enabling resumes it.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if enabled {
		a.engine.Resume()
	} else {
		a.engine.Pause()
	}
}

// IsEnabled returns whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Now returns milliseconds since the app was created. It is the clock for
// both engine ticks and natively captured frames.
func (a *App) Now() float64 {
	return float64(time.Since(a.epoch)) / float64(time.Millisecond)
}

// BeginCalibration starts a calibration run with the configured frame count.
func (a *App) BeginCalibration() {
	a.session.BeginCalibration(a.config.CalibrationFrames)
	log.Printf("Calibration started (%d frames)", a.config.CalibrationFrames)
}

// CancelCalibration stops an in-progress calibration run.
func (a *App) CancelCalibration() {
	a.session.CancelCalibration()
}

// CalibrationStatus reports calibration progress and whether a baseline is installed.
func (a *App) CalibrationStatus() (active bool, collected, required int, calibrated bool) {
	active, collected, required = a.session.Calibrating()
	return active, collected, required, a.session.Baseline() != nil
}

// LoadCalibration installs the active stored calibration profile, if any.
func (a *App) LoadCalibration() error {
	if a.config.Store == nil {
		return nil
	}

	c, err := a.config.Store.Calibrations().Active()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load active calibration: %w", err)
	}

	a.session.SetBaseline(c.Baseline)
	log.Printf("Loaded calibration profile %q", c.Name)
	return nil
}

// ActivateCalibration installs a stored profile and marks it active.
func (a *App) ActivateCalibration(id string) error {
	if a.config.Store == nil {
		return errors.New("no store configured")
	}

	c, err := a.config.Store.Calibrations().GetByID(id)
	if err != nil {
		return err
	}
	if err := a.config.Store.Calibrations().SetActive(id); err != nil {
		return err
	}
	a.session.SetBaseline(c.Baseline)
	return nil
}

// saveCalibration persists a fresh baseline as the active profile.
func (a *App) saveCalibration(b *pose.Baseline) {
	log.Printf("Calibration complete (hip center y %.3f)", b.HipCenterY)
	if a.config.Store == nil {
		return
	}

	c := &store.Calibration{
		Name:     "calibration " + time.Now().Format("2006-01-02 15:04:05"),
		Baseline: b,
	}
	if err := a.config.Store.Calibrations().Create(c); err != nil {
		log.Printf("Failed to save calibration: %v", err)
		return
	}
	if err := a.config.Store.Calibrations().SetActive(c.ID); err != nil {
		log.Printf("Failed to activate calibration: %v", err)
	}
}

// Start begins the game loop and, when configured, the native pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if a.config.Native {
		if a.camera == nil || a.source == nil {
			return errors.New("native pipeline needs a camera and a pose source")
		}
		if err := a.camera.Open(); err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
		a.camera.SetFPS(a.config.CaptureFPS)
	}

	a.stopCh = make(chan struct{})
	go a.runTicker(a.stopCh)
	if a.config.Native {
		go a.runPipeline(a.stopCh)
	}

	log.Println("Game loop started")
	return nil
}

// Stop halts the loops and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}

	if a.source != nil {
		if err := a.source.Close(); err != nil {
			log.Printf("Error closing pose source: %v", err)
		}
	}

	log.Println("Game loop stopped")
}

// Running reports whether the loops are active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}
