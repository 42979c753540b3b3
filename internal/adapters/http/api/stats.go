package api

import "net/http"

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.GetStats())
}
