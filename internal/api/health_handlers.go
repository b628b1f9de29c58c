package api

import (
	"net/http"

	"github.com/refhq/refhq-server/internal/http/response"
)

// healthResponse reports service liveness and storage reachability.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// handleHealthCheck reports service health.
// GET /health.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := healthResponse{Status: "healthy", Database: "healthy"}

	// A cheap read proves the database answers.
	if _, err := s.store.ListInvitations(r.Context()); err != nil {
		health.Status = "degraded"
		health.Database = "unhealthy"
		response.JSON(w, http.StatusServiceUnavailable, health, s.logger)
		return
	}

	response.Success(w, health, s.logger)
}
