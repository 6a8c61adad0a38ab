package tray

import (
	"testing"

	"github.com/ayusman/posebeat/internal/game"
	"github.com/ayusman/posebeat/internal/gesture"
)

func TestTray_Toggle(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Fatal("expected tray enabled by default")
	}

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("expected enabled after two toggles")
	}
}

func TestTray_Open(t *testing.T) {
	tr := New()
	tr.handleOpen()

	opened := false
	tr.OnOpen(func() { opened = true })
	tr.handleOpen()
	if !opened {
		t.Error("expected open callback")
	}
}

func TestTray_Lines(t *testing.T) {
	tr := New()
	var _ game.Listener = tr

	status, last := tr.Lines()
	if status != "Status: idle" || last != "Last: none" {
		t.Errorf("initial lines = %q, %q", status, last)
	}

	tr.OnGesture(gesture.Event{Type: gesture.Jump}, game.HitResult{Hit: true, Rating: game.RatingGood})
	tr.OnComboChange(12, 2)
	status, last = tr.Lines()
	if last != "Last: jump good" {
		t.Errorf("last = %q", last)
	}
	if status != "Status: playing, combo 12 x2" {
		t.Errorf("status = %q", status)
	}

	tr.OnGameEnd(game.Stats{Score: 1500, Accuracy: 87.5})
	status, _ = tr.Lines()
	if status != "Status: ended, score 1500 (88%)" {
		t.Errorf("status = %q", status)
	}

	tr.SetLastEvent("")
	if _, last = tr.Lines(); last != "Last: none" {
		t.Errorf("last = %q", last)
	}
}
