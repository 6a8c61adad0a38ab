// Package tui renders the game in a terminal with tcell and maps keys to
// game controls.
package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ayusman/posebeat/internal/game"
	"github.com/ayusman/posebeat/internal/gesture"
)

// DefaultFrameInterval redraws at roughly 30 FPS.
const DefaultFrameInterval = 33 * time.Millisecond

// Controller is the part of the engine the terminal drives.
type Controller interface {
	Snapshot() game.Snapshot
	Stats() (game.Stats, bool)
	Start() bool
	Pause() bool
	Resume() bool
	End() (game.Stats, bool)
	Reset()
	SetDifficulty(d game.Difficulty) bool
}

var (
	styleDefault = tcell.StyleDefault
	styleHeader  = tcell.StyleDefault.Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleZone    = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleArrow   = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleHit     = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleMiss    = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleBanner  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy).Bold(true)
)

var (
	laneGlyphs = [game.NumLanes]rune{'◀', '▲', '▶'}
	laneLabels = [game.NumLanes]string{"WAVE L", "JUMP", "WAVE R"}
)

// action is the outcome of a key press.
type action int

const (
	actionNone action = iota
	actionRedraw
	actionQuit
)

// Renderer draws snapshots onto a tcell screen.
type Renderer struct {
	screen tcell.Screen
	ctl    Controller

	mu      sync.Mutex
	message string
	msgAt   time.Time
}

// NewRenderer creates a Renderer for an initialized screen.
func NewRenderer(screen tcell.Screen, ctl Controller) *Renderer {
	return &Renderer{screen: screen, ctl: ctl}
}

// OnGesture shows the latest gesture and its verdict for a moment.
func (r *Renderer) OnGesture(ev gesture.Event, hit game.HitResult) {
	msg := strings.ToUpper(strings.ReplaceAll(string(ev.Type), "-", " "))
	if hit.Hit {
		msg += fmt.Sprintf("  %s +%d", strings.ToUpper(string(hit.Rating)), hit.Points)
	}

	r.mu.Lock()
	r.message = msg
	r.msgAt = time.Now()
	r.mu.Unlock()
}

func (r *Renderer) lastMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.msgAt) > 1500*time.Millisecond {
		return ""
	}
	return r.message
}

// Run draws until the user quits or stop is closed. It finalizes the screen on return.
func (r *Renderer) Run(stop <-chan struct{}) {
	defer r.screen.Fini()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go r.screen.ChannelEvents(events, quit)

	ticker := time.NewTicker(DefaultFrameInterval)
	defer ticker.Stop()

	r.Draw()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Draw()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if r.handleKey(ev.Key(), ev.Rune()) == actionQuit {
					return
				}
				r.Draw()
			case *tcell.EventResize:
				r.screen.Sync()
				r.Draw()
			}
		}
	}
}

// handleKey maps a key press to a game control.
func (r *Renderer) handleKey(key tcell.Key, ch rune) action {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return actionQuit
	case tcell.KeyEnter:
		r.ctl.End()
		return actionRedraw
	case tcell.KeyRune:
	default:
		return actionNone
	}

	switch ch {
	case 'q':
		return actionQuit
	case ' ':
		switch r.ctl.Snapshot().Status {
		case game.StatusIdle, game.StatusEnded:
			r.ctl.Start()
		case game.StatusPlaying:
			r.ctl.Pause()
		case game.StatusPaused:
			r.ctl.Resume()
		}
	case 'e':
		r.ctl.End()
	case 'r':
		r.ctl.Reset()
	case '1':
		r.ctl.SetDifficulty(game.Easy)
	case '2':
		r.ctl.SetDifficulty(game.Medium)
	case '3':
		r.ctl.SetDifficulty(game.Hard)
	default:
		return actionNone
	}
	return actionRedraw
}

// Draw renders the current snapshot.
func (r *Renderer) Draw() {
	snap := r.ctl.Snapshot()
	s := r.screen
	s.Clear()

	w, h := s.Size()
	if w < 20 || h < 10 {
		drawText(s, 0, 0, styleDefault, "terminal too small")
		s.Show()
		return
	}

	r.drawHeader(snap, w)

	top, hitRow := 2, h-4
	laneWidth := w / game.NumLanes

	// Lane separators and the hit zone
	for lane := 1; lane < game.NumLanes; lane++ {
		for y := top; y < h-2; y++ {
			s.SetContent(lane*laneWidth, y, '│', nil, styleDim)
		}
	}
	for x := 0; x < w; x++ {
		if x%laneWidth != 0 || x == 0 {
			s.SetContent(x, hitRow, '─', nil, styleZone)
		}
	}
	for lane := 0; lane < game.NumLanes; lane++ {
		label := laneLabels[lane]
		drawText(s, laneCenter(lane, laneWidth)-len(label)/2, hitRow+1, styleDim, label)
	}

	for _, a := range snap.Arrows {
		y, ok := arrowRow(a.Position, top, hitRow, h-2)
		if !ok {
			continue
		}
		style := styleArrow
		switch {
		case a.Hit:
			style = styleHit
		case a.Missed:
			style = styleMiss
		}
		s.SetContent(laneCenter(int(a.Lane), laneWidth), y, laneGlyphs[a.Lane], nil, style)
	}

	switch snap.Status {
	case game.StatusIdle:
		drawCentered(s, w, h/2, styleBanner, " press SPACE to start ")
	case game.StatusCountdown:
		drawCentered(s, w, h/2, styleBanner, fmt.Sprintf(" %d ", snap.Countdown))
	case game.StatusPaused:
		drawCentered(s, w, h/2, styleBanner, " PAUSED ")
	case game.StatusEnded:
		r.drawStats(w, h)
	}

	if msg := r.lastMessage(); msg != "" {
		drawCentered(s, w, top, styleHit, msg)
	}

	drawText(s, 0, h-1, styleDim, "space start/pause  e end  r reset  1/2/3 difficulty  q quit")
	s.Show()
}

func (r *Renderer) drawHeader(snap game.Snapshot, w int) {
	left := fmt.Sprintf("PoseBeat  Score: %d  Combo: %d  x%d", snap.Score, snap.Combo, snap.Multiplier)
	right := fmt.Sprintf("%s  %s", snap.Difficulty, snap.Status)
	drawText(r.screen, 0, 0, styleHeader, left)
	drawText(r.screen, w-len(right), 0, styleDim, right)
}

func (r *Renderer) drawStats(w, h int) {
	stats, ok := r.ctl.Stats()
	if !ok {
		return
	}
	lines := []string{
		" GAME OVER ",
		fmt.Sprintf(" Score: %d ", stats.Score),
		fmt.Sprintf(" Max combo: %d ", stats.MaxCombo),
		fmt.Sprintf(" Perfect: %d  Good: %d  Miss: %d ", stats.PerfectHits, stats.GoodHits, stats.Misses),
		fmt.Sprintf(" Accuracy: %.1f%% ", stats.Accuracy),
		fmt.Sprintf(" Time: %s ", stats.Duration.Round(time.Second)),
	}
	y := h/2 - len(lines)/2
	for i, line := range lines {
		drawCentered(r.screen, w, y+i, styleBanner, line)
	}
}

// arrowRow maps a position to a screen row. Position 0 is the top row and
// 1 the hit line; arrows past the hit line keep scrolling until bottom.
func arrowRow(position float64, top, hitRow, bottom int) (int, bool) {
	y := top + int(position*float64(hitRow-top)+0.5)
	if y < top || y >= bottom {
		return 0, false
	}
	return y, true
}

func laneCenter(lane, laneWidth int) int {
	return lane*laneWidth + laneWidth/2
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, ch := range text {
		s.SetContent(x, y, ch, nil, style)
		x++
	}
}

func drawCentered(s tcell.Screen, w, y int, style tcell.Style, text string) {
	drawText(s, (w-len([]rune(text)))/2, y, style, text)
}
