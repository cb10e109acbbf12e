package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/tend/internal/engine"
)

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("archived") == "1" {
		snaps, err := s.engine.GetAll(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewsOf(snaps))
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(s.engine.GetActive(r.Context())))
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		IntervalDays int    `json:"interval_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	res, err := s.engine.CreateActivity(r.Context(), req.Name, req.IntervalDays)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.resultOf(res))
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, v := range r.URL.Query()["ids"] {
		ids = append(ids, strings.Split(v, ",")...)
	}
	writeJSON(w, http.StatusOK, viewsOf(s.engine.GetByIDs(r.Context(), ids)))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, viewsOf(s.engine.GetMatching(r.Context(), q)))
}

func (s *Server) handleOverdue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewsOf(s.engine.GetOverdue(r.Context())))
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detailViewOf(*snap))
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         *string `json:"name"`
		IntervalDays *int    `json:"interval_days"`
		Archived     *bool   `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	res, err := s.engine.Update(r.Context(), chi.URLParam(r, "id"), engine.Patch{
		Name:         req.Name,
		IntervalDays: req.IntervalDays,
		Archived:     req.Archived,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.resultOf(res))
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.DeleteActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	body := map[string]string{"status": "deleted"}
	if res.Warning != nil {
		body["warning"] = res.Warning.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string     `json:"note"`
		At   *time.Time `json:"at"`
	}
	// An empty body means "done, just now".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var at time.Time
	if req.At != nil {
		at = *req.At
	}

	res, err := s.engine.MarkCompleted(r.Context(), chi.URLParam(r, "id"), req.Note, at)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.resultOf(res))
}

func (s *Server) handleDaysSince(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	days, ok, err := s.engine.DaysSinceLastCompleted(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	body := map[string]any{
		"activity_id": id,
		"completed":   ok,
	}
	if ok {
		body["days_since"] = days
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	pending := s.engine.Scheduler.Pending()
	out := make([]reminderView, len(pending))
	for i, p := range pending {
		out[i] = reminderOf(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Reconcile(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// writeEngineError maps engine errors to status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidName), errors.Is(err, engine.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("api error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
