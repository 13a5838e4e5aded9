package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pricelab/avito-price-analyzer/internal/jobs"
)

type Handlers struct {
	runs   *jobs.Manager
	logger *slog.Logger
}

func NewHandlers(runs *jobs.Manager, logger *slog.Logger) *Handlers {
	return &Handlers{
		runs:   runs,
		logger: logger.With("component", "api"),
	}
}

// CreateRunRequest submits a workbook for analysis. Paths are local to the
// server.
type CreateRunRequest struct {
	InputPath   string `json:"input_path"`
	CookiesPath string `json:"cookies_path,omitempty"`
}

type CreateRunResponse struct {
	RunID  string      `json:"run_id"`
	Status jobs.Status `json:"status"`
}

// CreateRun handles new run submissions.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.InputPath == "" {
		h.respondError(w, http.StatusBadRequest, "input_path is required")
		return
	}

	snap, err := h.runs.CreateRun(req.InputPath, req.CookiesPath)
	if err != nil {
		h.logger.Error("failed to create run", "error", err)
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateRunResponse{
		RunID:  snap.ID,
		Status: snap.Status,
	})
}

// GetRun returns the polled state of one run: status, progress, log tail,
// outcome counts and the challenge URL if the run hit the marketplace's
// defenses.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	snap, err := h.runs.GetRun(runID)
	if err != nil {
		if errors.Is(err, jobs.ErrRunNotFound) {
			h.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to get run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	h.respondJSON(w, http.StatusOK, snap)
}

// ListRuns returns all runs, newest first.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.ListRuns())
}

// CancelRun requests cancellation of a run. The in-flight row is abandoned
// and no output file is written.
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if err := h.runs.CancelRun(runID); err != nil {
		if errors.Is(err, jobs.ErrRunNotFound) {
			h.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to cancel run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to cancel run")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

// Health is the liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
