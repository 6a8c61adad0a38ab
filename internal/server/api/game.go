package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ayusman/posebeat/internal/game"
	"github.com/ayusman/posebeat/internal/store"
)

// SettingDifficulty is the settings key holding the last chosen difficulty.
const SettingDifficulty = "difficulty"

// GameHandler handles HTTP requests that control the game session.
type GameHandler struct {
	engine *game.Engine
	store  *store.Store
	now    func() float64
}

// NewGameHandler creates a new GameHandler. The store is optional; when set,
// difficulty changes are remembered across restarts.
func NewGameHandler(engine *game.Engine, s *store.Store) *GameHandler {
	return &GameHandler{engine: engine, store: s}
}

// SetClock sets the timeline clock used to place spawned arrows. It must
// be the clock that drives the engine's ticks. Spawning is unavailable
// until a clock is set.
func (h *GameHandler) SetClock(now func() float64) {
	h.now = now
}

// ServeHTTP routes /api/game and /api/game/{action}.
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/game")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.state(w)
	case "difficulty":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, difficultyRequest{Difficulty: string(h.engine.Difficulty())})
		case http.MethodPut:
			h.setDifficulty(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "stats":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		stats, ok := h.engine.Stats()
		if !ok {
			writeError(w, http.StatusNotFound, "No finished game")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	case "spawn":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.spawn(w, r)
	case "start", "pause", "resume", "end", "reset":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.control(w, path)
	default:
		writeError(w, http.StatusNotFound, "Unknown game action")
	}
}

type gameResponse struct {
	SessionID string        `json:"session_id,omitempty"`
	Snapshot  game.Snapshot `json:"snapshot"`
	Stats     *game.Stats   `json:"stats,omitempty"`
}

type difficultyRequest struct {
	Difficulty string `json:"difficulty"`
}

type spawnRequest struct {
	Lanes []game.Lane `json:"lanes"`
}

type spawnResponse struct {
	Arrows []game.Arrow `json:"arrows"`
}

var patternKinds = map[int]game.PatternKind{1: game.Single, 2: game.Double, 3: game.Triple}

func (h *GameHandler) response() gameResponse {
	resp := gameResponse{
		SessionID: h.engine.SessionID(),
		Snapshot:  h.engine.Snapshot(),
	}
	if stats, ok := h.engine.Stats(); ok {
		resp.Stats = &stats
	}
	return resp
}

// state handles GET /api/game.
func (h *GameHandler) state(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, h.response())
}

// control handles the lifecycle actions. Transitions that are not valid
// from the current state answer 409 and change nothing.
func (h *GameHandler) control(w http.ResponseWriter, action string) {
	before := h.engine.Status()

	var ok bool
	switch action {
	case "start":
		ok = h.engine.Start()
	case "pause":
		ok = h.engine.Pause()
	case "resume":
		ok = h.engine.Resume()
	case "end":
		_, ok = h.engine.End()
	case "reset":
		h.engine.Reset()
		ok = true
	}

	if !ok {
		writeError(w, http.StatusConflict, fmt.Sprintf("Cannot %s while %s", action, before))
		return
	}

	writeJSON(w, http.StatusOK, h.response())
}

// setDifficulty handles PUT /api/game/difficulty.
func (h *GameHandler) setDifficulty(w http.ResponseWriter, r *http.Request) {
	var req difficultyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	d, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid difficulty")
		return
	}
	h.engine.SetDifficulty(d)

	if h.store != nil {
		if err := h.store.Settings().Set(SettingDifficulty, string(d)); err != nil {
			log.Printf("Failed to save difficulty: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, difficultyRequest{Difficulty: string(d)})
}

// spawn handles POST /api/game/spawn. It drops one arrow per requested lane
// at the current time, e.g. for a scripted chart or a practice drill.
func (h *GameHandler) spawn(w http.ResponseWriter, r *http.Request) {
	if h.now == nil {
		writeError(w, http.StatusServiceUnavailable, "Game clock not available")
		return
	}

	var req spawnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	kind, ok := patternKinds[len(req.Lanes)]
	if !ok {
		writeError(w, http.StatusBadRequest, "Between 1 and 3 lanes required")
		return
	}

	p := game.Pattern{Kind: kind}
	seen := make(map[game.Lane]bool)
	for _, l := range req.Lanes {
		if l < game.LaneLeft || l > game.LaneRight || seen[l] {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid lane %d", l))
			return
		}
		seen[l] = true
		p.Notes = append(p.Notes, game.Note{Lane: l})
	}

	arrows := h.engine.Spawn(p, h.now())
	if arrows == nil {
		writeError(w, http.StatusConflict, fmt.Sprintf("Cannot spawn while %s", h.engine.Status()))
		return
	}

	writeJSON(w, http.StatusCreated, spawnResponse{Arrows: arrows})
}
