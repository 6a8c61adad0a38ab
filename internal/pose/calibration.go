package pose

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

// DefaultCalibrationFrames is the number of consecutive qualifying frames
// a Calibrator collects before producing a baseline.
const DefaultCalibrationFrames = 15

// ErrNoFrames is returned when a baseline is requested from an empty frame set.
var ErrNoFrames = errors.New("no calibration frames")

// Baseline is the averaged resting pose used as the zero reference for
// jump detection. It is read-only once computed.
type Baseline struct {
	LeftHip         Landmark `json:"left_hip"`
	RightHip        Landmark `json:"right_hip"`
	LeftShoulder    Landmark `json:"left_shoulder"`
	RightShoulder   Landmark `json:"right_shoulder"`
	Nose            Landmark `json:"nose"`
	LeftWrist       Landmark `json:"left_wrist"`
	RightWrist      Landmark `json:"right_wrist"`
	HipCenterY      float64  `json:"hip_center_y"`
	ShoulderCenterY float64  `json:"shoulder_center_y"`
	Timestamp       float64  `json:"timestamp"`
}

// fallbackLandmark is used for a baseline landmark that never had a visible sample.
var fallbackLandmark = Landmark{X: 0.5, Y: 0.5, Z: 0, Visibility: 0}

// ComputeBaseline averages frames into a Baseline. Each landmark is averaged
// only over the frames where that landmark is visible, so an occluded
// landmark in one frame excludes that sample alone, not the whole frame.
// Nil frames are skipped.
func ComputeBaseline(frames []*Frame) (*Baseline, error) {
	var last *Frame
	for _, f := range frames {
		if f != nil {
			last = f
		}
	}
	if last == nil {
		return nil, ErrNoFrames
	}

	b := &Baseline{
		LeftHip:       averageLandmark(frames, LeftHip),
		RightHip:      averageLandmark(frames, RightHip),
		LeftShoulder:  averageLandmark(frames, LeftShoulder),
		RightShoulder: averageLandmark(frames, RightShoulder),
		Nose:          averageLandmark(frames, Nose),
		LeftWrist:     averageLandmark(frames, LeftWrist),
		RightWrist:    averageLandmark(frames, RightWrist),
		Timestamp:     last.Timestamp,
	}
	b.HipCenterY = (b.LeftHip.Y + b.RightHip.Y) / 2
	b.ShoulderCenterY = (b.LeftShoulder.Y + b.RightShoulder.Y) / 2

	return b, nil
}

func averageLandmark(frames []*Frame, idx int) Landmark {
	var xs, ys, zs, vs []float64
	for _, f := range frames {
		if f == nil {
			continue
		}
		lm := f.Landmarks[idx]
		if !lm.Visible() {
			continue
		}
		xs = append(xs, lm.X)
		ys = append(ys, lm.Y)
		zs = append(zs, lm.Z)
		vs = append(vs, lm.Visibility)
	}

	if len(xs) == 0 {
		return fallbackLandmark
	}

	return Landmark{
		X:          stat.Mean(xs, nil),
		Y:          stat.Mean(ys, nil),
		Z:          stat.Mean(zs, nil),
		Visibility: stat.Mean(vs, nil),
	}
}

// Qualifies reports whether a frame is usable for calibration: a person is
// present with both hips and both shoulders visible.
func Qualifies(f *Frame) bool {
	if f == nil {
		return false
	}
	lm := &f.Landmarks
	return lm[LeftHip].Visible() && lm[RightHip].Visible() &&
		lm[LeftShoulder].Visible() && lm[RightShoulder].Visible()
}

// Calibrator collects consecutive qualifying frames and produces a Baseline
// once enough have been seen. A frame that does not qualify restarts the run.
type Calibrator struct {
	required int
	frames   []*Frame
	baseline *Baseline
}

// NewCalibrator creates a Calibrator that needs the given number of frames.
// Values less than or equal to 0 use DefaultCalibrationFrames.
func NewCalibrator(required int) *Calibrator {
	if required <= 0 {
		required = DefaultCalibrationFrames
	}
	return &Calibrator{
		required: required,
		frames:   make([]*Frame, 0, required),
	}
}

// Add feeds one frame. It returns true once the baseline is complete.
// Frames added after completion are ignored.
func (c *Calibrator) Add(f *Frame) bool {
	if c.baseline != nil {
		return true
	}

	if !Qualifies(f) {
		c.frames = c.frames[:0]
		return false
	}

	frame := *f
	c.frames = append(c.frames, &frame)
	if len(c.frames) < c.required {
		return false
	}

	b, err := ComputeBaseline(c.frames)
	if err != nil {
		return false
	}
	c.baseline = b
	return true
}

// Progress returns the collected and required frame counts.
func (c *Calibrator) Progress() (collected, required int) {
	if c.baseline != nil {
		return c.required, c.required
	}
	return len(c.frames), c.required
}

// Baseline returns the computed baseline, or nil while calibration is in progress.
func (c *Calibrator) Baseline() *Baseline {
	return c.baseline
}
