package pose

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockSource is a test implementation of the Source interface.
// It plays back a configured sequence of poses, one per Detect call,
// and repeats the last one once the sequence is exhausted.
type MockSource struct {
	mu    sync.Mutex
	poses []*Landmarks
	index int
	err   error
	calls int
}

// NewMockSource creates a new MockSource instance.
func NewMockSource() *MockSource {
	return &MockSource{}
}

// SetPose makes every Detect call return lm.
func (m *MockSource) SetPose(lm *Landmarks) {
	m.SetSequence([]*Landmarks{lm})
}

// SetSequence sets the poses returned by successive Detect calls.
// Nil entries simulate frames without a person.
func (m *MockSource) SetSequence(poses []*Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = poses
	m.index = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next configured pose or error.
func (m *MockSource) Detect(frame *gocv.Mat) (*Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.poses) == 0 {
		return nil, nil
	}

	lm := m.poses[m.index]
	if m.index < len(m.poses)-1 {
		m.index++
	}
	if lm == nil {
		return nil, nil
	}

	out := *lm
	return &out, nil
}

// Close is a no-op for the mock source.
func (m *MockSource) Close() error {
	return nil
}

// StandingLandmarks returns a preset pose of a person standing still,
// arms relaxed, fully visible and centered in frame.
func StandingLandmarks() Landmarks {
	var lm Landmarks
	for i := range lm {
		lm[i] = Landmark{X: 0.5, Y: 0.5, Visibility: 0.9}
	}

	// Head
	lm[Nose] = Landmark{X: 0.50, Y: 0.15, Visibility: 0.99}
	lm[LeftEye] = Landmark{X: 0.52, Y: 0.13, Visibility: 0.99}
	lm[RightEye] = Landmark{X: 0.48, Y: 0.13, Visibility: 0.99}
	lm[LeftEar] = Landmark{X: 0.54, Y: 0.14, Visibility: 0.95}
	lm[RightEar] = Landmark{X: 0.46, Y: 0.14, Visibility: 0.95}

	// Torso
	lm[LeftShoulder] = Landmark{X: 0.60, Y: 0.30, Visibility: 0.99}
	lm[RightShoulder] = Landmark{X: 0.40, Y: 0.30, Visibility: 0.99}
	lm[LeftHip] = Landmark{X: 0.56, Y: 0.55, Visibility: 0.98}
	lm[RightHip] = Landmark{X: 0.44, Y: 0.55, Visibility: 0.98}

	// Arms hanging down
	lm[LeftElbow] = Landmark{X: 0.63, Y: 0.42, Visibility: 0.97}
	lm[RightElbow] = Landmark{X: 0.37, Y: 0.42, Visibility: 0.97}
	lm[LeftWrist] = Landmark{X: 0.64, Y: 0.52, Visibility: 0.95}
	lm[RightWrist] = Landmark{X: 0.36, Y: 0.52, Visibility: 0.95}

	// Legs
	lm[LeftKnee] = Landmark{X: 0.56, Y: 0.70, Visibility: 0.95}
	lm[RightKnee] = Landmark{X: 0.44, Y: 0.70, Visibility: 0.95}
	lm[LeftAnkle] = Landmark{X: 0.56, Y: 0.85, Visibility: 0.93}
	lm[RightAnkle] = Landmark{X: 0.44, Y: 0.85, Visibility: 0.93}

	return lm
}

// WithWristY returns a copy of lm with one wrist moved to y.
func WithWristY(lm Landmarks, wrist int, y float64) Landmarks {
	lm[wrist].Y = y
	return lm
}

// Raised returns a copy of lm with the whole body shifted up by dy,
// as seen mid-jump.
func Raised(lm Landmarks, dy float64) Landmarks {
	for i := range lm {
		lm[i].Y -= dy
	}
	return lm
}

// Occluded returns a copy of lm with the given landmarks made invisible.
func Occluded(lm Landmarks, idx ...int) Landmarks {
	for _, i := range idx {
		lm[i].Visibility = 0.1
	}
	return lm
}
