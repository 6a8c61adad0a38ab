package game

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/posebeat/internal/gesture"
)

// Config holds configuration options for an Engine.
type Config struct {
	Difficulty Difficulty
	Listener   Listener
	Scheduler  Scheduler
	// Clock supplies wall time for session duration.
	Clock func() time.Time
	Rand  *rand.Rand
	// PickPattern chooses the next spawn. Defaults to PickPattern.
	PickPattern func(rng *rand.Rand, d Difficulty) Pattern
	// CountdownFrom is the first countdown value shown after Start.
	// Negative values start play immediately.
	CountdownFrom int
	// CountdownStep is the time between countdown values.
	CountdownStep time.Duration
	// HitCleanupDelay is how long a hit arrow stays visible before removal.
	HitCleanupDelay time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Difficulty:      Medium,
		Listener:        NopListener{},
		Scheduler:       RealScheduler{},
		Clock:           time.Now,
		Rand:            rand.New(rand.NewSource(time.Now().UnixNano())),
		PickPattern:     PickPattern,
		CountdownFrom:   3,
		CountdownStep:   time.Second,
		HitCleanupDelay: 300 * time.Millisecond,
	}
}

// Engine owns one game session. All methods are safe for concurrent use;
// every mutation happens under a single lock. Listener notifications are
// queued under that lock and delivered after it is released by a single
// drainer, so they reach the listener in the order the events occurred.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	sessionID  string
	status     Status
	difficulty Difficulty
	countdown  int

	score        int
	combo        int
	maxCombo     int
	perfectHits  int
	goodHits     int
	misses       int
	totalSpawned int

	arrows []*Arrow
	nextID int

	// generation invalidates deferred callbacks from earlier sessions.
	generation uint64
	timers     map[uint64]Timer
	timerSeq   uint64

	ticked    bool
	startWall time.Time
	lastTick  float64
	spawned   bool
	lastSpawn float64
	pausedAt  time.Time
	// shift is paused wall time not yet removed from the arrow timeline.
	shift time.Duration

	stats *Stats

	outbox      []notification
	dispatching bool
	onRestart   []func()
}

// New creates an idle Engine. Zero fields in cfg take their defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Difficulty == "" {
		cfg.Difficulty = def.Difficulty
	}
	if cfg.Listener == nil {
		cfg.Listener = def.Listener
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = def.Scheduler
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	if cfg.Rand == nil {
		cfg.Rand = def.Rand
	}
	if cfg.PickPattern == nil {
		cfg.PickPattern = def.PickPattern
	}
	switch {
	case cfg.CountdownFrom == 0:
		cfg.CountdownFrom = def.CountdownFrom
	case cfg.CountdownFrom < 0:
		cfg.CountdownFrom = 0
	}
	if cfg.CountdownStep <= 0 {
		cfg.CountdownStep = def.CountdownStep
	}
	if cfg.HitCleanupDelay <= 0 {
		cfg.HitCleanupDelay = def.HitCleanupDelay
	}

	return &Engine{
		cfg:        cfg,
		status:     StatusIdle,
		difficulty: cfg.Difficulty,
		timers:     make(map[uint64]Timer),
	}
}

// SetListener replaces the notification listener.
func (e *Engine) SetListener(l Listener) {
	if l == nil {
		l = NopListener{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Listener = l
}

// OnRestart registers fn to run after Start or Reset begins a fresh
// session, outside the engine lock.
func (e *Engine) OnRestart(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRestart = append(e.onRestart, fn)
}

// Status returns the current lifecycle state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SessionID returns the id of the current session, empty before the first Start.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Difficulty returns the active difficulty.
func (e *Engine) Difficulty() Difficulty {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.difficulty
}

// SetDifficulty changes the difficulty. It takes effect on the next spawn.
func (e *Engine) SetDifficulty(d Difficulty) bool {
	if _, err := ParseDifficulty(string(d)); err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.difficulty = d
	return true
}

// Start begins a new session with a countdown. Only valid from idle or ended.
func (e *Engine) Start() bool {
	e.mu.Lock()

	if e.status != StatusIdle && e.status != StatusEnded {
		e.mu.Unlock()
		return false
	}

	e.clearLocked()
	e.sessionID = uuid.NewString()

	if e.cfg.CountdownFrom == 0 {
		e.status = StatusPlaying
	} else {
		e.status = StatusCountdown
		e.countdown = e.cfg.CountdownFrom
		e.scheduleLocked(e.cfg.CountdownStep, e.countdownStep)
	}
	hooks := append([]func(){}, e.onRestart...)
	e.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return true
}

func (e *Engine) countdownStep() {
	e.countdown--
	if e.countdown > 0 {
		e.scheduleLocked(e.cfg.CountdownStep, e.countdownStep)
		return
	}
	e.countdown = 0
	e.status = StatusPlaying
}

// Pause suspends a playing session.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusPlaying {
		return false
	}
	e.status = StatusPaused
	e.pausedAt = e.cfg.Clock()
	return true
}

// Resume continues a paused session. The wall time spent paused is
// removed from the arrow timeline on the next tick.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusPaused {
		return false
	}
	e.status = StatusPlaying
	if e.ticked {
		e.shift += e.cfg.Clock().Sub(e.pausedAt)
	}
	return true
}

// End finishes a playing or paused session and returns its final stats.
func (e *Engine) End() (Stats, bool) {
	e.mu.Lock()

	if e.status != StatusPlaying && e.status != StatusPaused {
		e.mu.Unlock()
		return Stats{}, false
	}

	stats := Stats{
		Score:              e.score,
		MaxCombo:           e.maxCombo,
		PerfectHits:        e.perfectHits,
		GoodHits:           e.goodHits,
		Misses:             e.misses,
		TotalArrowsSpawned: e.totalSpawned,
		Accuracy:           Accuracy(e.perfectHits, e.goodHits, e.misses),
	}
	if e.ticked {
		stats.Duration = e.cfg.Clock().Sub(e.startWall)
		stats.DurationMs = durationMs(stats.Duration)
	}

	e.stats = &stats
	e.status = StatusEnded
	e.invalidateLocked()
	e.outbox = append(e.outbox, endNote(stats))
	e.mu.Unlock()

	e.flush()
	return stats, true
}

// Reset returns to idle from any state and drops the session.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.clearLocked()
	e.sessionID = ""
	e.status = StatusIdle
	hooks := append([]func(){}, e.onRestart...)
	e.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Stats returns the final stats of the last ended session.
func (e *Engine) Stats() (Stats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stats == nil {
		return Stats{}, false
	}
	return *e.stats, true
}

// Tick advances the simulation to now (milliseconds on the caller's clock).
// It spawns due patterns, moves arrows, marks misses and drops arrows that
// scrolled off. It does nothing unless the session is playing.
func (e *Engine) Tick(now float64) {
	e.mu.Lock()

	if e.status != StatusPlaying {
		e.mu.Unlock()
		return
	}

	if !e.ticked {
		e.ticked = true
		e.startWall = e.cfg.Clock()
		e.lastTick = now
	}
	if e.shift > 0 {
		gap := durationMs(e.shift)
		for _, a := range e.arrows {
			a.SpawnTime += gap
		}
		e.lastSpawn += gap
		e.shift = 0
	}
	e.lastTick = now

	settings := Settings(e.difficulty)
	interval := durationMs(settings.SpawnInterval)
	travel := durationMs(settings.TravelTime)

	if !e.spawned || now-e.lastSpawn >= interval {
		e.spawnLocked(e.cfg.PickPattern(e.cfg.Rand, e.difficulty), now)
		e.lastSpawn = now
		e.spawned = true
	}

	for _, a := range e.arrows {
		if a.Hit {
			continue
		}
		a.Position = math.Max(0, (now-a.SpawnTime)/travel)
	}

	var notes []notification
	missed := 0
	for _, a := range e.arrows {
		if a.Resolved() || a.Position <= PerfectZoneEnd {
			continue
		}
		a.Missed = true
		a.Rating = RatingMiss
		missed++
		notes = append(notes, missNote(*a))
	}
	if missed > 0 {
		e.misses += missed
		if e.combo != 0 {
			e.combo = 0
			notes = append(notes, comboNote(0))
		}
	}

	live := e.arrows[:0]
	for _, a := range e.arrows {
		if !a.Hit && a.Position > CleanupPosition {
			continue
		}
		live = append(live, a)
	}
	for i := len(live); i < len(e.arrows); i++ {
		e.arrows[i] = nil
	}
	e.arrows = live

	e.outbox = append(e.outbox, notes...)
	e.mu.Unlock()

	e.flush()
}

// Spawn enqueues a pattern at now as if the spawner had picked it.
// It is meant for scripted charts and tests; it does nothing unless playing.
func (e *Engine) Spawn(p Pattern, now float64) []Arrow {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusPlaying {
		return nil
	}

	added := e.spawnLocked(p, now)
	out := make([]Arrow, len(added))
	for i, a := range added {
		out[i] = *a
	}
	return out
}

func (e *Engine) spawnLocked(p Pattern, now float64) []*Arrow {
	added := make([]*Arrow, 0, len(p.Notes))
	for _, n := range p.Notes {
		e.nextID++
		a := &Arrow{
			ID:        fmt.Sprintf("arrow-%d", e.nextID),
			Lane:      n.Lane,
			SpawnTime: now + durationMs(n.Offset),
		}
		e.arrows = append(e.arrows, a)
		added = append(added, a)
	}
	e.totalSpawned += len(added)
	return added
}

// ProcessGesture matches a gesture event against the arrows in its lane.
// Of the unresolved arrows inside the hit zone, the one closest to the
// start of the perfect zone is resolved; exactly one arrow per event.
func (e *Engine) ProcessGesture(ev gesture.Event) HitResult {
	e.mu.Lock()

	lane, ok := LaneFor(ev.Type)
	if e.status != StatusPlaying || !ok {
		e.mu.Unlock()
		return HitResult{Lane: lane}
	}

	var target *Arrow
	best := math.Inf(1)
	for _, a := range e.arrows {
		if a.Lane != lane || a.Resolved() {
			continue
		}
		if a.Position < GoodZoneStart || a.Position > PerfectZoneEnd {
			continue
		}
		if d := math.Abs(a.Position - PerfectZoneStart); d < best {
			best = d
			target = a
		}
	}

	if target == nil {
		result := HitResult{Lane: lane, Combo: e.combo, Multiplier: Multiplier(e.combo)}
		e.mu.Unlock()
		return result
	}

	rating := HitRating(target.Position)
	e.combo++
	if e.combo > e.maxCombo {
		e.maxCombo = e.combo
	}
	multiplier := Multiplier(e.combo)
	points := BasePoints(rating) * multiplier
	e.score += points

	switch rating {
	case RatingPerfect:
		e.perfectHits++
	case RatingGood:
		e.goodHits++
	}

	target.Hit = true
	target.Rating = rating

	id := target.ID
	e.scheduleLocked(e.cfg.HitCleanupDelay, func() { e.removeLocked(id) })

	arrow := *target
	result := HitResult{
		Hit:        true,
		Lane:       lane,
		Arrow:      &arrow,
		Rating:     rating,
		Points:     points,
		Combo:      e.combo,
		Multiplier: multiplier,
		Confidence: ev.Confidence,
	}
	e.outbox = append(e.outbox, hitNote(result), comboNote(e.combo))
	e.mu.Unlock()

	e.flush()
	return result
}

// Snapshot returns a deep copy of the renderer-visible state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	arrows := make([]Arrow, len(e.arrows))
	for i, a := range e.arrows {
		arrows[i] = *a
	}

	return Snapshot{
		Status:      e.status,
		Difficulty:  e.difficulty,
		Countdown:   e.countdown,
		Score:       e.score,
		Combo:       e.combo,
		MaxCombo:    e.maxCombo,
		Multiplier:  Multiplier(e.combo),
		PerfectHits: e.perfectHits,
		GoodHits:    e.goodHits,
		Misses:      e.misses,
		Arrows:      arrows,
	}
}

func (e *Engine) removeLocked(id string) {
	for i, a := range e.arrows {
		if a.ID == id {
			e.arrows = append(e.arrows[:i], e.arrows[i+1:]...)
			return
		}
	}
}

// scheduleLocked runs f under the engine lock after d, unless the session
// was reset, ended or restarted in the meantime.
func (e *Engine) scheduleLocked(d time.Duration, f func()) {
	gen := e.generation
	e.timerSeq++
	seq := e.timerSeq

	e.timers[seq] = e.cfg.Scheduler.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		delete(e.timers, seq)
		if gen != e.generation {
			return
		}
		f()
	})
}

// invalidateLocked cancels every pending deferred callback.
func (e *Engine) invalidateLocked() {
	e.generation++
	for seq, t := range e.timers {
		t.Stop()
		delete(e.timers, seq)
	}
}

func (e *Engine) clearLocked() {
	e.invalidateLocked()
	e.countdown = 0
	e.score = 0
	e.combo = 0
	e.maxCombo = 0
	e.perfectHits = 0
	e.goodHits = 0
	e.misses = 0
	e.totalSpawned = 0
	e.arrows = nil
	e.nextID = 0
	e.ticked = false
	e.startWall = time.Time{}
	e.lastTick = 0
	e.spawned = false
	e.lastSpawn = 0
	e.pausedAt = time.Time{}
	e.shift = 0
	e.stats = nil
}

// flush delivers queued notifications in order. Only one caller drains at
// a time; notifications queued meanwhile by other callers, or by the
// listener itself, are picked up by the active drainer before it returns.
func (e *Engine) flush() {
	e.mu.Lock()
	if e.dispatching {
		e.mu.Unlock()
		return
	}
	e.dispatching = true

	for len(e.outbox) > 0 {
		notes := e.outbox
		e.outbox = nil
		listener := e.cfg.Listener
		e.mu.Unlock()

		for _, n := range notes {
			n(listener)
		}

		e.mu.Lock()
	}

	e.dispatching = false
	e.mu.Unlock()
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
