package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/repository"
)

const healthTimeout = 3 * time.Second

// handleExtract runs the extraction pipeline synchronously and returns its
// exit envelope verbatim. The envelope's own status field distinguishes
// success from failure; the HTTP status is 200 either way, matching how
// callers consume the pipeline directly.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, common.InvalidArgumentErrorf("read request body: %v", err))
		return
	}

	out := s.pipeline.Run(r.Context(), body)
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := repository.HealthCheck(ctx, s.pool, healthTimeout, s.logger); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
