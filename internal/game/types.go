// Package game implements the rhythm game engine: session lifecycle,
// arrow spawning and movement, hit matching and scoring.
package game

import (
	"time"

	"github.com/ayusman/posebeat/internal/gesture"
)

// Lane is one of the three target channels.
type Lane int

const (
	LaneLeft   Lane = 0
	LaneCenter Lane = 1
	LaneRight  Lane = 2
)

// NumLanes is the number of target channels.
const NumLanes = 3

// LaneFor maps a gesture to the lane it hits. ok is false for unknown gestures.
func LaneFor(t gesture.Type) (lane Lane, ok bool) {
	switch t {
	case gesture.WaveLeft:
		return LaneLeft, true
	case gesture.Jump:
		return LaneCenter, true
	case gesture.WaveRight:
		return LaneRight, true
	default:
		return 0, false
	}
}

// Status is the session lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusCountdown Status = "countdown"
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusEnded     Status = "ended"
)

// Arrow is one scrolling target.
type Arrow struct {
	ID        string  `json:"id"`
	Lane      Lane    `json:"lane"`
	SpawnTime float64 `json:"spawn_time"`
	Position  float64 `json:"position"`
	Hit       bool    `json:"hit"`
	Missed    bool    `json:"missed"`
	Rating    Rating  `json:"rating,omitempty"`
}

// Resolved reports whether the arrow was hit or missed.
func (a *Arrow) Resolved() bool {
	return a.Hit || a.Missed
}

// HitResult is the outcome of matching one gesture against the arrows.
type HitResult struct {
	Hit        bool    `json:"hit"`
	Lane       Lane    `json:"lane"`
	Arrow      *Arrow  `json:"arrow,omitempty"`
	Rating     Rating  `json:"rating,omitempty"`
	Points     int     `json:"points"`
	Combo      int     `json:"combo"`
	Multiplier int     `json:"multiplier"`
	Confidence float64 `json:"confidence"`
}

// Stats is the final summary of a session.
type Stats struct {
	Score              int           `json:"score"`
	MaxCombo           int           `json:"max_combo"`
	PerfectHits        int           `json:"perfect_hits"`
	GoodHits           int           `json:"good_hits"`
	Misses             int           `json:"misses"`
	TotalArrowsSpawned int           `json:"total_arrows_spawned"`
	Accuracy           float64       `json:"accuracy"`
	Duration           time.Duration `json:"-"`
	DurationMs         float64       `json:"duration_ms"`
}

// Accuracy returns the hit percentage, 0 when nothing was attempted.
func Accuracy(perfect, good, misses int) float64 {
	hits := perfect + good
	total := hits + misses
	if total <= 0 {
		return 0
	}
	return 100 * float64(hits) / float64(total)
}

// Snapshot is a consistent read-only copy of the session for renderers.
type Snapshot struct {
	Status      Status     `json:"status"`
	Difficulty  Difficulty `json:"difficulty"`
	Countdown   int        `json:"countdown"`
	Score       int        `json:"score"`
	Combo       int        `json:"combo"`
	MaxCombo    int        `json:"max_combo"`
	Multiplier  int        `json:"multiplier"`
	PerfectHits int        `json:"perfect_hits"`
	GoodHits    int        `json:"good_hits"`
	Misses      int        `json:"misses"`
	Arrows      []Arrow    `json:"arrows"`
}
