package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mission-core/internal/mission"
)

// handleListRuns lists run history, newest first.
//
// Query parameters: mission, kind, status, limit.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := mission.Filter{
		Mission: q.Get("mission"),
		Kind:    mission.Kind(q.Get("kind")),
		Status:  mission.Status(q.Get("status")),
	}

	if filter.Kind != "" && !filter.Kind.IsValid() {
		writeBadRequest(w, "invalid kind: "+string(filter.Kind))
		return
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		writeBadRequest(w, "invalid status: "+string(filter.Status))
		return
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	runs, err := s.runs.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing runs", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []mission.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns one run by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.runs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, mission.ErrRunNotFound) {
			writeNotFound(w, "run not found")
			return
		}
		s.logger.Error("getting run", "id", id, "error", err)
		writeInternalError(w, "failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleMissionStats returns lead-time statistics over completed runs.
func (s *Server) handleMissionStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	durations, err := s.runs.CompletedDurations(r.Context(), name)
	if err != nil {
		s.logger.Error("loading mission durations", "mission", name, "error", err)
		writeInternalError(w, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, mission.ComputeStats(name, durations))
}
