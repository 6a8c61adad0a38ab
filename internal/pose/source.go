package pose

import "gocv.io/x/gocv"

// Source defines the interface for pose estimation implementations.
type Source interface {
	// Detect analyzes a video frame and returns the pose of the most
	// prominent person. Returns nil if nobody is detected.
	Detect(frame *gocv.Mat) (*Landmarks, error)

	// Close releases any resources held by the source.
	Close() error
}

// Config holds configuration options for pose estimation.
type Config struct {
	// MinDetectionConf is the minimum detection confidence threshold (0.0-1.0).
	MinDetectionConf float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ModelComplexity selects the landmark model (0 lite, 1 full, 2 heavy).
	ModelComplexity int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinDetectionConf: 0.5,
		MinTrackingConf:  0.5,
		ModelComplexity:  1,
	}
}
