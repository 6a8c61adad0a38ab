// Package testdata provides scripted pose sequences for driving the
// classifier and the game from tests.
package testdata

import (
	"encoding/json"
	"fmt"

	"github.com/ayusman/posebeat/internal/pose"
)

// FrameInterval is the spacing of generated frames in milliseconds.
const FrameInterval = 100.0

// Standing returns n frames of a person standing still, starting at start.
func Standing(n int, start float64) []*pose.Frame {
	frames := make([]*pose.Frame, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, &pose.Frame{
			Landmarks: pose.StandingLandmarks(),
			Timestamp: start + float64(i)*FrameInterval,
		})
	}
	return frames
}

// Wave returns a raise-and-return of one wrist that classifies as a wave
// on its last frame. wrist is pose.LeftWrist or pose.RightWrist.
func Wave(wrist int, start float64) []*pose.Frame {
	base := pose.StandingLandmarks()
	var frames []*pose.Frame
	for i, y := range []float64{0.52, 0.45, 0.38, 0.46} {
		frames = append(frames, &pose.Frame{
			Landmarks: pose.WithWristY(base, wrist, y),
			Timestamp: start + float64(i)*FrameInterval,
		})
	}
	return frames
}

// WaveLeft is Wave for the left wrist.
func WaveLeft(start float64) []*pose.Frame {
	return Wave(pose.LeftWrist, start)
}

// WaveRight is Wave for the right wrist.
func WaveRight(start float64) []*pose.Frame {
	return Wave(pose.RightWrist, start)
}

// Jump returns a standing frame, a raised frame and a landing. The jump
// classifies on the raised frame. Wrists are hidden so the body shift
// cannot read as a wave.
func Jump(start float64) []*pose.Frame {
	standing := pose.Occluded(pose.StandingLandmarks(), pose.LeftWrist, pose.RightWrist)
	raised := pose.Raised(standing, 0.10)
	return []*pose.Frame{
		{Landmarks: standing, Timestamp: start},
		{Landmarks: raised, Timestamp: start + FrameInterval},
		{Landmarks: standing, Timestamp: start + 2*FrameInterval},
	}
}

// Concat joins sequences into one.
func Concat(seqs ...[]*pose.Frame) []*pose.Frame {
	var out []*pose.Frame
	for _, s := range seqs {
		out = append(out, s...)
	}
	return out
}

// Landmarks extracts the landmark sets of frames, for feeding a pose.MockSource.
func Landmarks(frames []*pose.Frame) []*pose.Landmarks {
	out := make([]*pose.Landmarks, 0, len(frames))
	for _, f := range frames {
		if f == nil {
			out = append(out, nil)
			continue
		}
		lm := f.Landmarks
		out = append(out, &lm)
	}
	return out
}

// PoseMessages encodes frames as websocket pose messages.
func PoseMessages(frames []*pose.Frame) ([][]byte, error) {
	out := make([][]byte, 0, len(frames))
	for _, f := range frames {
		data, err := json.Marshal(map[string]any{"type": "pose", "frame": f})
		if err != nil {
			return nil, fmt.Errorf("encode frame: %w", err)
		}
		out = append(out, data)
	}
	return out, nil
}
