package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/ayusman/posebeat/internal/game"
	"github.com/ayusman/posebeat/internal/gesture"
)

func newTestEngine() *game.Engine {
	return game.New(game.Config{CountdownFrom: -1})
}

func TestGameHandler_State(t *testing.T) {
	handler := NewGameHandler(newTestEngine(), nil)

	rec := do(t, handler, http.MethodGet, "/api/game", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp gameResponse
	decode(t, rec, &resp)
	if resp.Snapshot.Status != game.StatusIdle {
		t.Errorf("status = %s, want idle", resp.Snapshot.Status)
	}
	if resp.SessionID != "" {
		t.Errorf("expected no session id before start, got %q", resp.SessionID)
	}
	if resp.Stats != nil {
		t.Error("expected no stats before a game ends")
	}

	rec = do(t, handler, http.MethodPost, "/api/game", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/game: expected %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestGameHandler_Lifecycle(t *testing.T) {
	engine := newTestEngine()
	handler := NewGameHandler(engine, nil)

	steps := []struct {
		action string
		code   int
		status game.Status
	}{
		{"pause", http.StatusConflict, game.StatusIdle},
		{"start", http.StatusOK, game.StatusPlaying},
		{"start", http.StatusConflict, game.StatusPlaying},
		{"pause", http.StatusOK, game.StatusPaused},
		{"resume", http.StatusOK, game.StatusPlaying},
		{"end", http.StatusOK, game.StatusEnded},
		{"end", http.StatusConflict, game.StatusEnded},
		{"reset", http.StatusOK, game.StatusIdle},
	}

	for _, step := range steps {
		rec := do(t, handler, http.MethodPost, "/api/game/"+step.action, nil)
		if rec.Code != step.code {
			t.Errorf("%s: expected status %d, got %d: %s", step.action, step.code, rec.Code, rec.Body.String())
		}
		if got := engine.Status(); got != step.status {
			t.Errorf("%s: engine status = %s, want %s", step.action, got, step.status)
		}
		if step.code == http.StatusConflict && !strings.Contains(rec.Body.String(), step.action) {
			t.Errorf("%s: conflict message should name the action: %s", step.action, rec.Body.String())
		}
	}
}

func TestGameHandler_EndReturnsStats(t *testing.T) {
	engine := newTestEngine()
	handler := NewGameHandler(engine, nil)
	engine.Start()

	rec := do(t, handler, http.MethodPost, "/api/game/end", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp gameResponse
	decode(t, rec, &resp)
	if resp.Stats == nil {
		t.Fatal("expected stats in end response")
	}

	rec = do(t, handler, http.MethodGet, "/api/game/stats", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET stats: expected %d, got %d", http.StatusOK, rec.Code)
	}

	do(t, handler, http.MethodPost, "/api/game/reset", nil)
	rec = do(t, handler, http.MethodGet, "/api/game/stats", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET stats after reset: expected %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGameHandler_Difficulty(t *testing.T) {
	s := newTestStore(t)
	engine := newTestEngine()
	handler := NewGameHandler(engine, s)

	rec := do(t, handler, http.MethodPut, "/api/game/difficulty", difficultyRequest{Difficulty: "hard"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if engine.Difficulty() != game.Hard {
		t.Errorf("difficulty = %s, want hard", engine.Difficulty())
	}

	saved, err := s.Settings().Get(SettingDifficulty)
	if err != nil {
		t.Fatalf("difficulty not saved: %v", err)
	}
	if saved != "hard" {
		t.Errorf("saved difficulty = %q, want hard", saved)
	}

	rec = do(t, handler, http.MethodPut, "/api/game/difficulty", difficultyRequest{Difficulty: "insane"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid difficulty: expected %d, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = do(t, handler, http.MethodGet, "/api/game/difficulty", nil)
	var got difficultyRequest
	decode(t, rec, &got)
	if got.Difficulty != "hard" {
		t.Errorf("GET difficulty = %q, want hard", got.Difficulty)
	}
}

func TestGameHandler_UnknownAction(t *testing.T) {
	handler := NewGameHandler(newTestEngine(), nil)

	rec := do(t, handler, http.MethodPost, "/api/game/rewind", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	rec = do(t, handler, http.MethodGet, "/api/game/start", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET start: expected %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestGameHandler_Spawn(t *testing.T) {
	engine := newTestEngine()
	handler := NewGameHandler(engine, nil)

	rec := do(t, handler, http.MethodPost, "/api/game/spawn", spawnRequest{Lanes: []game.Lane{game.LaneLeft}})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("without clock: expected %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}

	handler.SetClock(func() float64 { return 1000 })

	rec = do(t, handler, http.MethodPost, "/api/game/spawn", spawnRequest{Lanes: []game.Lane{game.LaneLeft}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("while idle: expected %d, got %d", http.StatusConflict, rec.Code)
	}

	if !engine.Start() {
		t.Fatal("Start() returned false")
	}

	rec = do(t, handler, http.MethodPost, "/api/game/spawn", spawnRequest{Lanes: []game.Lane{game.LaneLeft, game.LaneRight}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp spawnResponse
	decode(t, rec, &resp)
	if len(resp.Arrows) != 2 {
		t.Fatalf("expected 2 arrows, got %d", len(resp.Arrows))
	}
	for i, want := range []game.Lane{game.LaneLeft, game.LaneRight} {
		if resp.Arrows[i].Lane != want || resp.Arrows[i].SpawnTime != 1000 {
			t.Errorf("arrow %d = %+v, want lane %d at 1000", i, resp.Arrows[i], want)
		}
	}

	// The spawned arrow is live: it reaches the perfect zone and can be hit.
	engine.Tick(1000 + 0.97*2000)
	hit := engine.ProcessGesture(gesture.Event{Type: gesture.WaveLeft, Confidence: 1})
	if !hit.Hit || hit.Rating != game.RatingPerfect {
		t.Errorf("hit = %+v, want perfect hit", hit)
	}

	rec = do(t, handler, http.MethodGet, "/api/game/spawn", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET spawn: expected %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestGameHandler_SpawnValidation(t *testing.T) {
	engine := newTestEngine()
	handler := NewGameHandler(engine, nil)
	handler.SetClock(func() float64 { return 0 })
	engine.Start()

	tests := []struct {
		name  string
		lanes []game.Lane
	}{
		{"no lanes", nil},
		{"duplicate lane", []game.Lane{game.LaneLeft, game.LaneLeft}},
		{"unknown lane", []game.Lane{3}},
		{"negative lane", []game.Lane{-1}},
		{"too many lanes", []game.Lane{0, 1, 2, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, "/api/game/spawn", spawnRequest{Lanes: tt.lanes})
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}

	if n := len(engine.Snapshot().Arrows); n != 0 {
		t.Errorf("rejected requests spawned %d arrows", n)
	}
}
