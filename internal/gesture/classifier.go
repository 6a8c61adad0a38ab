// Package gesture classifies a stream of body poses into discrete,
// debounced wave and jump events.
package gesture

import (
	"errors"

	"github.com/ayusman/posebeat/internal/pose"
)

// Type identifies a detected gesture.
type Type string

const (
	// None means no gesture was detected in the frame.
	None Type = ""
	// WaveLeft is an up-down oscillation of the left wrist.
	WaveLeft Type = "wave-left"
	// WaveRight is an up-down oscillation of the right wrist.
	WaveRight Type = "wave-right"
	// Jump is a rise of the hips above the calibrated resting height.
	Jump Type = "jump"
)

// Valid reports whether t is one of the three detectable gestures.
func (t Type) Valid() bool {
	return t == WaveLeft || t == WaveRight || t == Jump
}

// Event is a single detected gesture.
type Event struct {
	Type       Type    `json:"type"`
	Timestamp  float64 `json:"timestamp"`
	Confidence float64 `json:"confidence"`
}

// Options tunes the classifier. All durations are in milliseconds,
// distances in normalized image units.
type Options struct {
	WaveThreshold  float64 `json:"wave_threshold"`
	WaveTimeWindow float64 `json:"wave_time_window"`
	JumpThreshold  float64 `json:"jump_threshold"`
	DebounceTime   float64 `json:"debounce_time"`
}

// DefaultOptions returns the standard classifier tuning.
func DefaultOptions() Options {
	return Options{
		WaveThreshold:  0.05,
		WaveTimeWindow: 500,
		JumpThreshold:  0.08,
		DebounceTime:   500,
	}
}

// Validate checks that every option is positive.
func (o Options) Validate() error {
	if o.WaveThreshold <= 0 {
		return errors.New("wave threshold must be positive")
	}
	if o.WaveTimeWindow <= 0 {
		return errors.New("wave time window must be positive")
	}
	if o.JumpThreshold <= 0 {
		return errors.New("jump threshold must be positive")
	}
	if o.DebounceTime <= 0 {
		return errors.New("debounce time must be positive")
	}
	return nil
}

// Sample is one wrist height reading.
type Sample struct {
	Y         float64 `json:"y"`
	Timestamp float64 `json:"timestamp"`
}

// WristTrack is the sliding window and debounce clock for one wrist.
type WristTrack struct {
	Samples         []Sample `json:"samples"`
	LastGestureTime float64  `json:"last_gesture_time"`
}

// JumpTrack is the jump edge detector state.
type JumpTrack struct {
	InJump          bool    `json:"in_jump"`
	LastGestureTime float64 `json:"last_gesture_time"`
}

// TrackingState is threaded through ProcessFrame call by call.
// The zero value is a fresh state.
type TrackingState struct {
	Left  WristTrack `json:"left"`
	Right WristTrack `json:"right"`
	Jump  JumpTrack  `json:"jump"`
}

// NewTrackingState returns an empty tracking state.
func NewTrackingState() TrackingState {
	return TrackingState{}
}

// Clone returns a deep copy of s.
func (s TrackingState) Clone() TrackingState {
	s.Left.Samples = append([]Sample(nil), s.Left.Samples...)
	s.Right.Samples = append([]Sample(nil), s.Right.Samples...)
	return s
}

// Result is the outcome of classifying one frame.
type Result struct {
	Gesture    Type
	State      TrackingState
	Confidence float64
}

// Event converts a detection into an Event. ok is false when nothing was detected.
func (r Result) Event(timestamp float64) (Event, bool) {
	if r.Gesture == None {
		return Event{}, false
	}
	return Event{Type: r.Gesture, Timestamp: timestamp, Confidence: r.Confidence}, true
}

// ProcessFrame classifies one pose frame. It never mutates state; the
// caller must keep Result.State and pass it to the next call.
//
// Gestures are evaluated in priority order left wave, right wave, jump.
// The first detection wins and the lower priorities are not evaluated.
// A nil pose or a nil baseline yields no gesture and the state unchanged.
func ProcessFrame(landmarks *pose.Landmarks, baseline *pose.Baseline, state TrackingState, timestamp float64, opts Options) Result {
	if landmarks == nil || baseline == nil {
		return Result{Gesture: None, State: state}
	}

	next := state.Clone()

	if conf, ok := trackWave(&next.Left, landmarks[pose.LeftWrist], timestamp, opts); ok {
		return Result{Gesture: WaveLeft, State: next, Confidence: conf}
	}
	if conf, ok := trackWave(&next.Right, landmarks[pose.RightWrist], timestamp, opts); ok {
		return Result{Gesture: WaveRight, State: next, Confidence: conf}
	}

	jr := DetectJump(landmarks, baseline, next.Jump.InJump, opts.JumpThreshold)
	if !jr.Signal {
		return Result{Gesture: None, State: next}
	}

	if timestamp-next.Jump.LastGestureTime > opts.DebounceTime {
		next.Jump.InJump = jr.InJump
		if jr.Detected {
			next.Jump.LastGestureTime = timestamp
			return Result{Gesture: Jump, State: next, Confidence: jr.Confidence}
		}
		return Result{Gesture: None, State: next}
	}

	// Debounced: keep following the edge but hold the clock at the last detection.
	next.Jump.InJump = jr.InJump
	return Result{Gesture: None, State: next}
}

// trackWave updates one wrist window and checks it for a wave.
func trackWave(track *WristTrack, wrist pose.Landmark, timestamp float64, opts Options) (float64, bool) {
	track.Samples = prune(track.Samples, timestamp-opts.WaveTimeWindow)

	if !wrist.Visible() {
		return 0, false
	}
	track.Samples = append(track.Samples, Sample{Y: wrist.Y, Timestamp: timestamp})

	if timestamp-track.LastGestureTime <= opts.DebounceTime {
		return 0, false
	}

	wr := DetectWave(track.Samples, opts.WaveThreshold)
	if !wr.Detected {
		return 0, false
	}

	track.Samples = track.Samples[:0]
	track.LastGestureTime = timestamp
	return wr.Confidence, true
}

// prune drops samples older than cutoff. The returned slice may share
// storage with the input only when nothing was dropped.
func prune(samples []Sample, cutoff float64) []Sample {
	i := 0
	for i < len(samples) && samples[i].Timestamp < cutoff {
		i++
	}
	if i == 0 {
		return samples
	}
	return append([]Sample(nil), samples[i:]...)
}
