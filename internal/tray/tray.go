// Package tray provides a system tray menu for PoseBeat: play toggle,
// live status and quit.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/posebeat/internal/game"
	"github.com/ayusman/posebeat/internal/gesture"
)

// Tray represents the system tray application. It implements game.Listener
// to keep its status lines current.
type Tray struct {
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	status   string
	last     string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
	menuLast   *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
		status:  "Status: idle",
		last:    "Last: none",
	}
}

// OnToggle sets the callback function to be called when play is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback function to be called when the game page menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("PoseBeat")
	systray.SetTooltip("PoseBeat motion rhythm game")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume play")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(t.status, "Current game")
	t.menuStatus.Disable()
	t.menuLast = systray.AddMenuItem(t.last, "Last detected gesture")
	t.menuLast.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Game...", "Open the game in the browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit PoseBeat")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Playing"
	}
	return "○ Paused"
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleOpen handles the open menu item click.
func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus updates the status line.
func (t *Tray) SetStatus(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = "Status: " + text
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(t.status)
	}
}

// SetLastEvent updates the last event display in the menu.
func (t *Tray) SetLastEvent(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if text == "" {
		text = "none"
	}
	t.last = "Last: " + text
	if t.menuLast != nil {
		t.menuLast.SetTitle(t.last)
	}
}

// Lines returns the current status and last event lines.
func (t *Tray) Lines() (status, last string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status, t.last
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// OnGesture records a classified gesture and its verdict.
func (t *Tray) OnGesture(ev gesture.Event, hit game.HitResult) {
	text := string(ev.Type)
	if hit.Hit {
		text += " " + string(hit.Rating)
	}
	t.SetLastEvent(text)
}

// OnHit implements game.Listener.
func (t *Tray) OnHit(r game.HitResult) {
	t.SetStatus(fmt.Sprintf("playing, combo %d", r.Combo))
}

// OnMiss implements game.Listener.
func (t *Tray) OnMiss(game.Arrow) {}

// OnComboChange implements game.Listener.
func (t *Tray) OnComboChange(combo, multiplier int) {
	t.SetStatus(fmt.Sprintf("playing, combo %d x%d", combo, multiplier))
}

// OnGameEnd implements game.Listener.
func (t *Tray) OnGameEnd(s game.Stats) {
	t.SetStatus(fmt.Sprintf("ended, score %d (%.0f%%)", s.Score, s.Accuracy))
}

// Quit stops the tray loop, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}
