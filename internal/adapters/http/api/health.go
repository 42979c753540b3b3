package api

import "net/http"

type healthResponse struct {
	Status  string `json:"status"`
	Enabled bool   `json:"enabled"`
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Enabled: s.gate.Enabled()})
}
