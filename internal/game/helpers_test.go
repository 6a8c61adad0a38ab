package game

import (
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/posebeat/internal/gesture"
)

// fakeScheduler fires callbacks when the test advances its clock.
type fakeScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{at: s.now + d, seq: len(s.pending), f: f}
	s.pending = append(s.pending, t)
	return t
}

// Advance moves the clock forward and runs every callback that came due,
// including ones scheduled by other callbacks.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var due []*fakeTimer
		for _, t := range s.pending {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = target
			s.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at != due[j].at {
				return due[i].at < due[j].at
			}
			return due[i].seq < due[j].seq
		})
		next := due[0]
		next.fired = true
		s.now = next.at
		s.mu.Unlock()

		next.f()
	}
}

// recorder keeps every notification in order.
type recorder struct {
	mu     sync.Mutex
	events []string
	hits   []HitResult
	misses []Arrow
	combos [][2]int
	ends   []Stats
}

func (r *recorder) OnHit(h HitResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "hit")
	r.hits = append(r.hits, h)
}

func (r *recorder) OnMiss(a Arrow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "miss")
	r.misses = append(r.misses, a)
}

func (r *recorder) OnComboChange(combo, multiplier int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "combo")
	r.combos = append(r.combos, [2]int{combo, multiplier})
}

func (r *recorder) OnGameEnd(s Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "end")
	r.ends = append(r.ends, s)
}

// fakeClock is a settable wall clock.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

type harness struct {
	engine *Engine
	sched  *fakeScheduler
	rec    *recorder
	clock  *fakeClock
}

// noPattern keeps the automatic spawner quiet so tests can script arrows.
func noPattern(*rand.Rand, Difficulty) Pattern { return Pattern{} }

func newHarness(t *testing.T, pick func(*rand.Rand, Difficulty) Pattern) *harness {
	t.Helper()
	h := &harness{
		sched: &fakeScheduler{},
		rec:   &recorder{},
		clock: &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.engine = New(Config{
		Difficulty:  Medium,
		Listener:    h.rec,
		Scheduler:   h.sched,
		Clock:       h.clock.Now,
		Rand:        rand.New(rand.NewSource(1)),
		PickPattern: pick,
	})
	return h
}

// play starts the session and runs the countdown out.
func (h *harness) play(t *testing.T) {
	t.Helper()
	if !h.engine.Start() {
		t.Fatal("Start() returned false")
	}
	h.sched.Advance(3 * time.Second)
	if got := h.engine.Status(); got != StatusPlaying {
		t.Fatalf("expected playing after countdown, got %s", got)
	}
}

func single(l Lane) Pattern {
	return Pattern{Kind: Single, Notes: []Note{{Lane: l}}}
}

func wave(t gesture.Type) gesture.Event {
	return gesture.Event{Type: t, Confidence: 1}
}

// spawnAt spawns one arrow in lane l that sits at position pos when the
// medium-difficulty clock reads now.
func (h *harness) spawnAt(l Lane, pos, now float64) Arrow {
	travel := durationMs(Settings(Medium).TravelTime)
	return h.engine.Spawn(single(l), now-pos*travel)[0]
}
