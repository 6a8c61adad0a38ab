package pose

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	scriptName = "pose_service.py"
	// idleShutdown stops the Python process after this long without frames.
	idleShutdown = 30 * time.Second
)

// MediaPipeSource implements Source using a Python MediaPipe pose subprocess.
// Frames are sent as a 4-byte big-endian length followed by JPEG bytes;
// the service answers with one JSON line per frame.
type MediaPipeSource struct {
	config    Config
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewMediaPipeSource creates a new MediaPipe pose source.
// The Python process is started lazily on first detection.
func NewMediaPipeSource(config Config) (*MediaPipeSource, error) {
	script := findScript()
	if script == "" {
		return nil, fmt.Errorf("%s not found", scriptName)
	}

	return &MediaPipeSource{
		config: config,
		script: script,
	}, nil
}

// Detect sends a frame to the pose service and returns the detected landmarks.
func (s *MediaPipeSource) Detect(frame *gocv.Mat) (*Landmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	if _, err := s.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := s.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := s.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	lm, err := parseResponse([]byte(line))
	if err != nil {
		return nil, err
	}

	s.resetIdleTimer()
	return lm, nil
}

// Close shuts down the Python process.
func (s *MediaPipeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *MediaPipeSource) ensureStarted() error {
	if s.started {
		return nil
	}

	python := findVenvPython()
	if python == "" {
		python = "python3"
	}

	s.cmd = exec.Command(python, s.script,
		"--min-detection", strconv.FormatFloat(s.config.MinDetectionConf, 'f', 2, 64),
		"--min-tracking", strconv.FormatFloat(s.config.MinTrackingConf, 'f', 2, 64),
		"--model-complexity", strconv.Itoa(s.config.ModelComplexity),
	)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true

	return nil
}

func (s *MediaPipeSource) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

func (s *MediaPipeSource) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(idleShutdown, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdown()
	})
}

// jsonResponse is one line written by the pose service.
type jsonResponse struct {
	Landmarks []Landmark `json:"landmarks"`
}

// parseResponse converts a service line into landmarks. An empty landmark
// list means nobody was in view.
func parseResponse(line []byte) (*Landmarks, error) {
	var resp jsonResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(resp.Landmarks) == 0 {
		return nil, nil
	}
	if len(resp.Landmarks) != NumLandmarks {
		return nil, fmt.Errorf("parse response: got %d landmarks, want %d", len(resp.Landmarks), NumLandmarks)
	}

	var lm Landmarks
	copy(lm[:], resp.Landmarks)
	return &lm, nil
}

func findScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", scriptName),
		filepath.Join("..", "scripts", scriptName),
		filepath.Join(execDir, "scripts", scriptName),
		filepath.Join(os.Getenv("HOME"), ".posebeat", "scripts", scriptName),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".posebeat/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
