package server

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultStreamInterval paces the preview stream at roughly 15 FPS.
const DefaultStreamInterval = 66 * time.Millisecond

// PreviewFunc returns the latest encoded JPEG frame, ok is false until one exists.
type PreviewFunc func() (jpeg []byte, ok bool)

// StreamHandler serves MJPEG frames of the annotated camera preview.
type StreamHandler struct {
	preview  PreviewFunc
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler reading frames from preview.
func NewStreamHandler(preview PreviewFunc, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &StreamHandler{preview: preview, interval: interval}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, ok := h.preview()
		if !ok || sameFrame(frame, last) {
			continue
		}
		last = frame

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		if _, err := w.Write(frame); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// sameFrame reports whether a and b are the same stored frame. Preview
// buffers are replaced, never mutated, so identity is enough.
func sameFrame(a, b []byte) bool {
	return len(a) > 0 && len(a) == len(b) && &a[0] == &b[0]
}
