package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/posebeat/internal/pose"
)

func standingBaseline(t *testing.T) *pose.Baseline {
	t.Helper()
	b, err := pose.ComputeBaseline([]*pose.Frame{{Landmarks: pose.StandingLandmarks()}})
	require.NoError(t, err)
	return b
}

// step feeds one frame and returns the result with the state carried forward.
type stepper struct {
	baseline *pose.Baseline
	state    TrackingState
	opts     Options
}

func (s *stepper) step(lm pose.Landmarks, ts float64) Result {
	r := ProcessFrame(&lm, s.baseline, s.state, ts, s.opts)
	s.state = r.State
	return r
}

func TestDetectWave(t *testing.T) {
	t.Run("monotonic sweep is not a wave", func(t *testing.T) {
		samples := []Sample{
			{Y: 0.50, Timestamp: 0},
			{Y: 0.53, Timestamp: 100},
			{Y: 0.57, Timestamp: 200},
			{Y: 0.60, Timestamp: 300},
		}

		r := DetectWave(samples, 0.05)
		assert.False(t, r.Detected)
		assert.InDelta(t, 0.10, r.Amplitude, 1e-9)
	})

	t.Run("rise then fall is a wave", func(t *testing.T) {
		samples := []Sample{
			{Y: 0.50, Timestamp: 0},
			{Y: 0.55, Timestamp: 150},
			{Y: 0.60, Timestamp: 300},
			{Y: 0.50, Timestamp: 400},
		}

		r := DetectWave(samples, 0.05)
		assert.True(t, r.Detected)
		assert.InDelta(t, 1.0, r.Confidence, 1e-9)
	})

	t.Run("confidence scales with amplitude", func(t *testing.T) {
		samples := []Sample{
			{Y: 0.50, Timestamp: 0},
			{Y: 0.44, Timestamp: 100},
			{Y: 0.50, Timestamp: 200},
		}

		r := DetectWave(samples, 0.05)
		assert.True(t, r.Detected)
		assert.InDelta(t, 0.6, r.Confidence, 1e-9)
	})

	t.Run("needs three samples", func(t *testing.T) {
		r := DetectWave([]Sample{{Y: 0.4, Timestamp: 0}, {Y: 0.6, Timestamp: 200}}, 0.05)
		assert.False(t, r.Detected)
	})

	t.Run("extremes too close in time", func(t *testing.T) {
		samples := []Sample{
			{Y: 0.50, Timestamp: 0},
			{Y: 0.60, Timestamp: 30},
			{Y: 0.50, Timestamp: 40},
		}
		assert.False(t, DetectWave(samples, 0.05).Detected)
	})

	t.Run("amplitude below threshold", func(t *testing.T) {
		samples := []Sample{
			{Y: 0.50, Timestamp: 0},
			{Y: 0.53, Timestamp: 150},
			{Y: 0.50, Timestamp: 300},
		}
		assert.False(t, DetectWave(samples, 0.05).Detected)
	})
}

func TestDetectJump(t *testing.T) {
	baseline := standingBaseline(t)

	t.Run("rising edge detects", func(t *testing.T) {
		lm := pose.Raised(pose.StandingLandmarks(), 0.10)

		r := DetectJump(&lm, baseline, false, 0.08)
		assert.True(t, r.Signal)
		assert.True(t, r.Detected)
		assert.True(t, r.InJump)
		assert.InDelta(t, 0.10, r.Rise, 1e-9)
		// 0.10/0.16 plus the ankle bonus
		assert.InDelta(t, 0.725, r.Confidence, 1e-9)
	})

	t.Run("no ankle bonus without visible ankles", func(t *testing.T) {
		lm := pose.Occluded(pose.Raised(pose.StandingLandmarks(), 0.10), pose.LeftAnkle, pose.RightAnkle)

		r := DetectJump(&lm, baseline, false, 0.08)
		assert.True(t, r.Detected)
		assert.InDelta(t, 0.625, r.Confidence, 1e-9)
	})

	t.Run("confidence is capped", func(t *testing.T) {
		lm := pose.Raised(pose.StandingLandmarks(), 0.30)
		r := DetectJump(&lm, baseline, false, 0.08)
		assert.Equal(t, 1.0, r.Confidence)
	})

	t.Run("already in jump does not detect again", func(t *testing.T) {
		lm := pose.Raised(pose.StandingLandmarks(), 0.10)
		r := DetectJump(&lm, baseline, true, 0.08)
		assert.False(t, r.Detected)
		assert.True(t, r.InJump)
	})

	t.Run("landing clears the jump", func(t *testing.T) {
		lm := pose.StandingLandmarks()
		r := DetectJump(&lm, baseline, true, 0.08)
		assert.False(t, r.Detected)
		assert.False(t, r.InJump)
	})

	t.Run("no visible hips is no signal", func(t *testing.T) {
		lm := pose.Occluded(pose.Raised(pose.StandingLandmarks(), 0.10), pose.LeftHip, pose.RightHip)
		r := DetectJump(&lm, baseline, true, 0.08)
		assert.False(t, r.Signal)
		assert.False(t, r.Detected)
		assert.True(t, r.InJump)
	})
}

func TestProcessFrame_Wave(t *testing.T) {
	s := &stepper{baseline: standingBaseline(t), opts: DefaultOptions()}
	base := pose.StandingLandmarks()

	ys := []float64{0.52, 0.45, 0.38}
	for i, y := range ys {
		r := s.step(pose.WithWristY(base, pose.LeftWrist, y), 1000+float64(i)*100)
		require.Equal(t, None, r.Gesture, "frame %d", i)
	}

	r := s.step(pose.WithWristY(base, pose.LeftWrist, 0.46), 1300)
	assert.Equal(t, WaveLeft, r.Gesture)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Empty(t, r.State.Left.Samples, "window is cleared on detection")
	assert.Equal(t, 1300.0, r.State.Left.LastGestureTime)

	ev, ok := r.Event(1300)
	require.True(t, ok)
	assert.Equal(t, Event{Type: WaveLeft, Timestamp: 1300, Confidence: 1.0}, ev)
}

func TestProcessFrame_WaveDebounce(t *testing.T) {
	s := &stepper{baseline: standingBaseline(t), opts: DefaultOptions()}
	base := pose.StandingLandmarks()

	wave := func(start float64) []Type {
		var got []Type
		for i, y := range []float64{0.52, 0.40, 0.52, 0.40} {
			r := s.step(pose.WithWristY(base, pose.RightWrist, y), start+float64(i)*100)
			if r.Gesture != None {
				got = append(got, r.Gesture)
			}
		}
		return got
	}

	assert.Equal(t, []Type{WaveRight}, wave(1000))
	// The second wave starts right away and ends inside the debounce window.
	assert.Empty(t, wave(1400))
	assert.Equal(t, []Type{WaveRight}, wave(2500))
}

func TestProcessFrame_Priority(t *testing.T) {
	s := &stepper{baseline: standingBaseline(t), opts: DefaultOptions()}
	base := pose.StandingLandmarks()

	both := func(y float64) pose.Landmarks {
		return pose.WithWristY(pose.WithWristY(base, pose.LeftWrist, y), pose.RightWrist, y)
	}

	s.step(both(0.52), 1000)
	s.step(both(0.40), 1100)
	r := s.step(both(0.52), 1200)
	assert.Equal(t, WaveLeft, r.Gesture)

	// The right window was not touched on the frame the left wave fired.
	assert.Len(t, r.State.Right.Samples, 2)
}

func TestProcessFrame_Jump(t *testing.T) {
	s := &stepper{baseline: standingBaseline(t), opts: DefaultOptions()}
	// Hide the wrists so the body shift cannot read as a wave.
	standing := pose.Occluded(pose.StandingLandmarks(), pose.LeftWrist, pose.RightWrist)
	raised := pose.Raised(standing, 0.10)

	var jumps []float64
	feed := func(lm pose.Landmarks, ts float64) {
		if r := s.step(lm, ts); r.Gesture == Jump {
			jumps = append(jumps, ts)
		}
	}

	// Sustained rise fires once.
	for ts := 1000.0; ts <= 2000; ts += 100 {
		feed(raised, ts)
	}
	assert.Equal(t, []float64{1000}, jumps)
	assert.True(t, s.state.Jump.InJump)

	// Land, then rise again.
	feed(standing, 2100)
	assert.False(t, s.state.Jump.InJump)
	feed(raised, 2200)
	assert.Equal(t, []float64{1000, 2200}, jumps)
}

func TestProcessFrame_JumpDuringDebounce(t *testing.T) {
	s := &stepper{baseline: standingBaseline(t), opts: DefaultOptions()}
	standing := pose.Occluded(pose.StandingLandmarks(), pose.LeftWrist, pose.RightWrist)
	raised := pose.Raised(standing, 0.10)

	r := s.step(raised, 1000)
	require.Equal(t, Jump, r.Gesture)

	s.step(standing, 1100)
	r = s.step(raised, 1200)
	assert.Equal(t, None, r.Gesture, "debounce blocks the second jump")
	assert.True(t, r.State.Jump.InJump, "edge tracking continues while debounced")
	assert.Equal(t, 1000.0, r.State.Jump.LastGestureTime, "clock is held at the last detection")

	// Still airborne after the debounce window: no new rising edge.
	r = s.step(raised, 1600)
	assert.Equal(t, None, r.Gesture)
}

func TestProcessFrame_MissingInput(t *testing.T) {
	baseline := standingBaseline(t)
	state := TrackingState{Left: WristTrack{Samples: []Sample{{Y: 0.5, Timestamp: 900}}}}

	t.Run("no person", func(t *testing.T) {
		r := ProcessFrame(nil, baseline, state, 1000, DefaultOptions())
		assert.Equal(t, None, r.Gesture)
		assert.Equal(t, state, r.State)
	})

	t.Run("no baseline", func(t *testing.T) {
		lm := pose.Raised(pose.StandingLandmarks(), 0.2)
		r := ProcessFrame(&lm, nil, state, 1000, DefaultOptions())
		assert.Equal(t, None, r.Gesture)
		assert.Equal(t, state, r.State)
	})

	t.Run("occluded wrist is not sampled", func(t *testing.T) {
		lm := pose.Occluded(pose.StandingLandmarks(), pose.LeftWrist)
		r := ProcessFrame(&lm, baseline, state, 1000, DefaultOptions())
		assert.Len(t, r.State.Left.Samples, 1)
		assert.Len(t, r.State.Right.Samples, 1)
	})
}

func TestProcessFrame_DoesNotMutateInput(t *testing.T) {
	baseline := standingBaseline(t)
	samples := make([]Sample, 2, 8)
	samples[0] = Sample{Y: 0.52, Timestamp: 1000}
	samples[1] = Sample{Y: 0.40, Timestamp: 1100}
	state := TrackingState{Left: WristTrack{Samples: samples}}

	lm := pose.WithWristY(pose.StandingLandmarks(), pose.LeftWrist, 0.52)
	r := ProcessFrame(&lm, baseline, state, 1200, DefaultOptions())
	require.Equal(t, WaveLeft, r.Gesture)

	assert.Len(t, state.Left.Samples, 2)
	assert.Equal(t, 0.0, state.Left.LastGestureTime)
	assert.Equal(t, Sample{}, samples[:3][2], "backing array untouched")
}

func TestProcessFrame_WindowPruning(t *testing.T) {
	s := &stepper{baseline: standingBaseline(t), opts: DefaultOptions()}
	base := pose.StandingLandmarks()

	s.step(base, 1000)
	s.step(base, 1200)
	s.step(pose.Occluded(base, pose.LeftWrist), 1600)

	require.Len(t, s.state.Left.Samples, 1)
	assert.Equal(t, 1200.0, s.state.Left.Samples[0].Timestamp)
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	bad := DefaultOptions()
	bad.DebounceTime = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.WaveThreshold = -1
	assert.Error(t, bad.Validate())
}
