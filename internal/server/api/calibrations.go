package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/posebeat/internal/pose"
	"github.com/ayusman/posebeat/internal/store"
)

// Calibrator runs live calibration and installs stored profiles.
type Calibrator interface {
	BeginCalibration()
	CancelCalibration()
	CalibrationStatus() (active bool, collected, required int, calibrated bool)
	ActivateCalibration(id string) error
}

// CalibrationHandler handles live calibration and calibration profile resources.
type CalibrationHandler struct {
	store      *store.Store
	calibrator Calibrator
}

// NewCalibrationHandler creates a new CalibrationHandler.
func NewCalibrationHandler(s *store.Store, c Calibrator) *CalibrationHandler {
	return &CalibrationHandler{store: s, calibrator: c}
}

// ServeHTTP routes /api/calibration, /api/calibrations, /api/calibrations/{id}
// and /api/calibrations/{id}/activate.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSuffix(r.URL.Path, "/") == "/api/calibration" {
		h.live(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/calibrations")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/activate"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, id)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type calibrationStatusResponse struct {
	Active     bool `json:"active"`
	Collected  int  `json:"collected"`
	Required   int  `json:"required"`
	Calibrated bool `json:"calibrated"`
}

type createCalibrationRequest struct {
	Name     string         `json:"name"`
	Baseline *pose.Baseline `json:"baseline"`
}

type calibrationResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Active    bool           `json:"active"`
	Baseline  *pose.Baseline `json:"baseline"`
	CreatedAt string         `json:"created_at"`
}

type listCalibrationsResponse struct {
	Calibrations []calibrationResponse `json:"calibrations"`
}

func toCalibrationResponse(c *store.Calibration) calibrationResponse {
	return calibrationResponse{
		ID:        c.ID,
		Name:      c.Name,
		Active:    c.Active,
		Baseline:  c.Baseline,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

func (h *CalibrationHandler) status() calibrationStatusResponse {
	active, collected, required, calibrated := h.calibrator.CalibrationStatus()
	return calibrationStatusResponse{
		Active:     active,
		Collected:  collected,
		Required:   required,
		Calibrated: calibrated,
	}
}

// live handles GET (progress), POST (begin) and DELETE (cancel) on /api/calibration.
func (h *CalibrationHandler) live(w http.ResponseWriter, r *http.Request) {
	if h.calibrator == nil {
		writeError(w, http.StatusServiceUnavailable, "Calibration unavailable")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.status())
	case http.MethodPost:
		h.calibrator.BeginCalibration()
		writeJSON(w, http.StatusAccepted, h.status())
	case http.MethodDelete:
		h.calibrator.CancelCalibration()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// list handles GET /api/calibrations.
func (h *CalibrationHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Calibrations().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calibrations")
		return
	}

	response := listCalibrationsResponse{
		Calibrations: make([]calibrationResponse, 0, len(profiles)),
	}
	for _, c := range profiles {
		response.Calibrations = append(response.Calibrations, toCalibrationResponse(c))
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/calibrations, importing a baseline captured elsewhere.
func (h *CalibrationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createCalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Baseline == nil {
		writeError(w, http.StatusBadRequest, "Baseline is required")
		return
	}

	c := &store.Calibration{Name: req.Name, Baseline: req.Baseline}
	if err := h.store.Calibrations().Create(c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create calibration")
		return
	}

	writeJSON(w, http.StatusCreated, toCalibrationResponse(c))
}

// get handles GET /api/calibrations/{id}.
func (h *CalibrationHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	c, err := h.store.Calibrations().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Calibration not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get calibration")
		return
	}

	writeJSON(w, http.StatusOK, toCalibrationResponse(c))
}

// activate handles POST /api/calibrations/{id}/activate.
func (h *CalibrationHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	if h.calibrator == nil {
		writeError(w, http.StatusServiceUnavailable, "Calibration unavailable")
		return
	}

	if err := h.calibrator.ActivateCalibration(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Calibration not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to activate calibration")
		return
	}

	h.get(w, r, id)
}

// delete handles DELETE /api/calibrations/{id}.
func (h *CalibrationHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Calibrations().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Calibration not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete calibration")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
