package app

import (
	"sync"

	"github.com/ayusman/posebeat/internal/game"
	"github.com/ayusman/posebeat/internal/gesture"
	"github.com/ayusman/posebeat/internal/pose"
)

// GestureCallback is called for every classified gesture with the engine's
// verdict on it.
type GestureCallback func(ev gesture.Event, hit game.HitResult)

// CalibrationCallback is called once a calibration run completes.
type CalibrationCallback func(b *pose.Baseline)

// Session connects a pose stream to a game engine. It owns the calibration
// baseline and the classifier's tracking state; frames are classified
// whether or not a game is running, and the engine decides what counts.
type Session struct {
	mu     sync.Mutex
	engine *game.Engine
	opts   gesture.Options

	calibrator *pose.Calibrator
	baseline   *pose.Baseline
	state      gesture.TrackingState
	last       gesture.Event

	onGesture    []GestureCallback
	onCalibrated []CalibrationCallback
}

// NewSession creates a Session that feeds engine. Invalid options fall back
// to gesture.DefaultOptions. Tracking state is cleared whenever the engine
// starts or resets a game.
func NewSession(engine *game.Engine, opts gesture.Options) *Session {
	if opts.Validate() != nil {
		opts = gesture.DefaultOptions()
	}
	s := &Session{
		engine: engine,
		opts:   opts,
		state:  gesture.NewTrackingState(),
	}
	engine.OnRestart(s.ResetTracking)
	return s
}

// Engine returns the game engine driven by this session.
func (s *Session) Engine() *game.Engine {
	return s.engine
}

// Options returns the classifier tuning.
func (s *Session) Options() gesture.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// SetOptions replaces the classifier tuning. Invalid options are rejected.
func (s *Session) SetOptions(opts gesture.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
	return nil
}

// OnGesture registers a callback for classified gestures.
func (s *Session) OnGesture(fn GestureCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onGesture = append(s.onGesture, fn)
}

// OnCalibrated registers a callback for completed calibrations.
func (s *Session) OnCalibrated(fn CalibrationCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCalibrated = append(s.onCalibrated, fn)
}

// BeginCalibration starts collecting frames for a new baseline. The current
// baseline stays active until the new one is complete.
func (s *Session) BeginCalibration(frames int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrator = pose.NewCalibrator(frames)
}

// CancelCalibration stops an in-progress calibration.
func (s *Session) CancelCalibration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrator = nil
}

// Calibrating reports whether a calibration run is in progress and how far along it is.
func (s *Session) Calibrating() (active bool, collected, required int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calibrator == nil {
		return false, 0, 0
	}
	collected, required = s.calibrator.Progress()
	return true, collected, required
}

// SetBaseline installs a baseline directly, e.g. a stored profile, and
// clears the tracking state.
func (s *Session) SetBaseline(b *pose.Baseline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = b
	s.state = gesture.NewTrackingState()
}

// ResetTracking drops wrist samples, the jump latch and debounce times.
func (s *Session) ResetTracking() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = gesture.NewTrackingState()
}

// Baseline returns the active baseline, or nil before calibration.
func (s *Session) Baseline() *pose.Baseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline
}

// LastGesture returns the most recent classified gesture.
func (s *Session) LastGesture() (gesture.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last.Type.Valid()
}

// HandleFrame processes one pose frame. A nil frame means nobody is in
// view. While calibrating, frames go to the calibrator; otherwise they are
// classified against the baseline and any gesture is matched by the engine.
func (s *Session) HandleFrame(f *pose.Frame) (gesture.Event, game.HitResult, bool) {
	s.mu.Lock()

	if s.calibrator != nil {
		if !s.calibrator.Add(f) {
			s.mu.Unlock()
			return gesture.Event{}, game.HitResult{}, false
		}
		b := s.calibrator.Baseline()
		s.calibrator = nil
		s.baseline = b
		s.state = gesture.NewTrackingState()
		callbacks := append([]CalibrationCallback(nil), s.onCalibrated...)
		s.mu.Unlock()

		for _, fn := range callbacks {
			fn(b)
		}
		return gesture.Event{}, game.HitResult{}, false
	}

	if f == nil || s.baseline == nil {
		s.mu.Unlock()
		return gesture.Event{}, game.HitResult{}, false
	}

	res := gesture.ProcessFrame(&f.Landmarks, s.baseline, s.state, f.Timestamp, s.opts)
	s.state = res.State

	ev, ok := res.Event(f.Timestamp)
	if !ok {
		s.mu.Unlock()
		return gesture.Event{}, game.HitResult{}, false
	}
	s.last = ev
	callbacks := append([]GestureCallback(nil), s.onGesture...)
	s.mu.Unlock()

	hit := s.engine.ProcessGesture(ev)
	for _, fn := range callbacks {
		fn(ev, hit)
	}
	return ev, hit, true
}
