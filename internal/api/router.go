package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/capabilities", s.handleCapabilities)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
		})

		r.Get("/missions/{name}/stats", s.handleMissionStats)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"robot_id": s.robotID,
		"version":  s.version,
		"clients":  s.hub.ClientCount(),
	})
}

// handleCapabilities lists the bound motors, servos and sensors.
func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	if s.registry == nil {
		writeNotFound(w, "no hardware registry")
		return
	}
	writeJSON(w, http.StatusOK, s.registry.Names())
}
