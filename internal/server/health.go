package server

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{"status": "available"}
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			data["status"] = "unavailable"
			_ = writeJSON(w, http.StatusServiceUnavailable, data)
			return
		}
	}
	_ = writeJSON(w, http.StatusOK, data)
}
