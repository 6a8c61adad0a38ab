// Package pose provides body landmark types, calibration baselines and pose sources.
package pose

// Body landmark indices following the MediaPipe pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// MinVisibility is the visibility a landmark must exceed to count as reliable data.
const MinVisibility = 0.5

// Landmark is one tracked body keypoint in normalized image coordinates.
// Y grows downward.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Visible reports whether the landmark carries reliable data.
func (l Landmark) Visible() bool {
	return l.Visibility > MinVisibility
}

// Landmarks holds the 33 pose keypoints of a single person.
type Landmarks [NumLandmarks]Landmark

// Frame is one pose estimation result. A nil *Frame means no person was detected.
type Frame struct {
	Landmarks Landmarks `json:"landmarks"`
	Timestamp float64   `json:"timestamp"` // milliseconds
}

// AverageY returns the mean Y of the visible landmarks among idx.
// ok is false when none of them is visible.
func (l *Landmarks) AverageY(idx ...int) (y float64, ok bool) {
	if l == nil {
		return 0, false
	}

	var sum float64
	var n int
	for _, i := range idx {
		if i < 0 || i >= NumLandmarks || !l[i].Visible() {
			continue
		}
		sum += l[i].Y
		n++
	}

	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
