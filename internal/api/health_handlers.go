package api

import (
	"encoding/json/v2"
	"net/http"
)

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.MarshalWrite(w, map[string]string{"status": "healthy"}); err != nil {
		s.logger.Error("failed to write health response", "error", err)
	}
}
