package app

import (
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posebeat/internal/capture"
	"github.com/ayusman/posebeat/internal/pose"
)

// runTicker advances the engine until stopCh is closed.
func (a *App) runTicker(stopCh <-chan struct{}) {
	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.engine.Tick(a.Now())
		}
	}
}

// runPipeline is the native capture loop: camera frame, pose estimation,
// then the session. Read and detection errors are logged and the frame is
// skipped.
func (a *App) runPipeline(stopCh <-chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(a.config.CaptureFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// Skip processing if play is disabled
			if !a.IsEnabled() {
				continue
			}

			a.mu.RLock()
			camera := a.camera
			a.mu.RUnlock()

			frame, err := camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			err = a.processFrame(frame, a.Now())
			frame.Close()
			if err != nil {
				log.Printf("Error estimating pose: %v", err)
			}
		}
	}
}

// processFrame runs pose estimation on one camera frame and hands the
// result to the session. An empty detection is passed on as a nil frame.
func (a *App) processFrame(mat *gocv.Mat, timestamp float64) error {
	source := a.Source()
	if source == nil {
		return nil
	}

	lm, err := source.Detect(mat)
	if err != nil {
		return err
	}

	var f *pose.Frame
	if lm != nil {
		f = &pose.Frame{Landmarks: *lm, Timestamp: timestamp}
	}
	a.session.HandleFrame(f)

	if mat != nil && !mat.Empty() {
		a.updatePreview(mat, lm)
	}
	return nil
}

// updatePreview stores the frame with the skeleton drawn on it for the
// MJPEG stream.
func (a *App) updatePreview(mat *gocv.Mat, lm *pose.Landmarks) {
	capture.DrawPose(mat, lm)
	data, err := capture.EncodeJPEG(mat)
	if err != nil {
		return
	}

	a.previewMu.Lock()
	a.preview = data
	a.previewMu.Unlock()
}

// Preview returns the latest annotated camera frame as JPEG.
func (a *App) Preview() ([]byte, bool) {
	a.previewMu.RLock()
	defer a.previewMu.RUnlock()
	return a.preview, a.preview != nil
}
