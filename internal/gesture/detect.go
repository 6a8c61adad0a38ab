package gesture

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/posebeat/internal/pose"
)

const (
	// minWaveSamples is the smallest window that can hold a wave.
	minWaveSamples = 3
	// minExtremaSeparation rejects a single noisy reading posing as motion (ms).
	minExtremaSeparation = 50.0
	// ankleBaselineOffset estimates resting ankle height below the hip center.
	ankleBaselineOffset = 0.3
	// ankleBonus is added to jump confidence when the ankles confirm the rise.
	ankleBonus = 0.1
)

// WaveResult describes the wave test over one sample window.
type WaveResult struct {
	Detected   bool
	Amplitude  float64
	Confidence float64
}

// DetectWave tests a wrist window for an up-down oscillation.
//
// The window must hold at least three samples, span at least threshold
// between its lowest and highest reading, have those extremes more than
// 50ms apart, and retrace from the later extreme by at least half the
// threshold. The retrace requirement is what separates a wave from a
// single sweep of the arm.
func DetectWave(samples []Sample, threshold float64) WaveResult {
	if len(samples) < minWaveSamples {
		return WaveResult{}
	}

	ys := make([]float64, len(samples))
	for i, s := range samples {
		ys[i] = s.Y
	}

	maxIdx := floats.MaxIdx(ys)
	minIdx := floats.MinIdx(ys)
	amplitude := ys[maxIdx] - ys[minIdx]
	confidence := math.Min(1, amplitude/(2*threshold))
	result := WaveResult{Amplitude: amplitude, Confidence: confidence}

	if amplitude < threshold {
		return result
	}
	if math.Abs(samples[maxIdx].Timestamp-samples[minIdx].Timestamp) <= minExtremaSeparation {
		return result
	}
	if retrace(ys, maxIdx, minIdx) < threshold/2 {
		return result
	}

	result.Detected = true
	return result
}

// retrace measures how far the signal came back after the later of the two
// extremes, in the direction of the earlier one.
func retrace(ys []float64, maxIdx, minIdx int) float64 {
	later := maxIdx
	if minIdx > later {
		later = minIdx
	}
	tail := ys[later+1:]
	if len(tail) == 0 {
		return 0
	}

	if later == maxIdx {
		return ys[maxIdx] - floats.Min(tail)
	}
	return floats.Max(tail) - ys[minIdx]
}

// JumpResult describes the jump test for one frame.
type JumpResult struct {
	// Signal is false when neither hip is visible; nothing else is meaningful then.
	Signal     bool
	Detected   bool
	InJump     bool
	Rise       float64
	Confidence float64
}

// DetectJump compares the current hip height to the calibrated baseline.
// A detection is the rising edge: rise above threshold while not already
// in a jump. Falling back to or below the threshold clears InJump.
func DetectJump(landmarks *pose.Landmarks, baseline *pose.Baseline, inJump bool, threshold float64) JumpResult {
	if landmarks == nil || baseline == nil {
		return JumpResult{InJump: inJump}
	}

	hipY, ok := landmarks.AverageY(pose.LeftHip, pose.RightHip)
	if !ok {
		return JumpResult{InJump: inJump}
	}

	rise := baseline.HipCenterY - hipY
	result := JumpResult{Signal: true, Rise: rise}

	if rise <= threshold {
		return result
	}

	result.InJump = true
	if inJump {
		return result
	}

	result.Detected = true
	result.Confidence = rise / (2 * threshold)
	if ankleY, ok := landmarks.AverageY(pose.LeftAnkle, pose.RightAnkle); ok {
		ankleRise := baseline.HipCenterY + ankleBaselineOffset - ankleY
		if ankleRise > threshold/2 {
			result.Confidence += ankleBonus
		}
	}
	result.Confidence = math.Min(1, result.Confidence)

	return result
}
