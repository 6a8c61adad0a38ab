package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func serveStream(t *testing.T, h *StreamHandler, d time.Duration) *httptest.ResponseRecorder {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStreamHandler_WritesFrames(t *testing.T) {
	var n atomic.Int32
	frames := [][]byte{[]byte("jpeg-one"), []byte("jpeg-two")}
	preview := func() ([]byte, bool) {
		i := n.Add(1)
		return frames[int(i)%2], true
	}

	rec := serveStream(t, NewStreamHandler(preview, time.Millisecond), 50*time.Millisecond)

	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("unexpected Content-Type %q", ct)
	}

	body := rec.Body.String()
	if strings.Count(body, "--frame\r\n") < 2 {
		t.Fatalf("expected several frames, got body %q", body)
	}
	if !strings.Contains(body, "Content-Type: image/jpeg\r\nContent-Length: 8\r\n\r\njpeg-") {
		t.Errorf("frame header malformed: %q", body)
	}
}

func TestStreamHandler_SkipsRepeatedFrame(t *testing.T) {
	frame := []byte("same")
	preview := func() ([]byte, bool) { return frame, true }

	rec := serveStream(t, NewStreamHandler(preview, time.Millisecond), 30*time.Millisecond)

	if got := strings.Count(rec.Body.String(), "--frame\r\n"); got != 1 {
		t.Errorf("expected the unchanged frame once, got %d", got)
	}
}

func TestStreamHandler_NoPreview(t *testing.T) {
	preview := func() ([]byte, bool) { return nil, false }

	rec := serveStream(t, NewStreamHandler(preview, time.Millisecond), 20*time.Millisecond)

	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(func() ([]byte, bool) { return nil, false }, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	if h.interval != DefaultStreamInterval {
		t.Errorf("interval = %v, want default", h.interval)
	}
}
