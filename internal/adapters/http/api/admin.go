package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/autorole/pkg/logger"
)

type gateResponse struct {
	Enabled bool `json:"enabled"`
	Changed bool `json:"changed"`
}

type muteResponse struct {
	SubjectID string `json:"subject_id"`
	Muted     bool   `json:"muted"`
	Changed   bool   `json:"changed"`
}

type mutesResponse struct {
	Muted []string `json:"muted"`
}

// handleEnable handles POST /v1/admin/enable.
func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	changed := s.gate.Enable()
	s.logger.Info(r.Context(), "intake enabled", logger.Bool("changed", changed))
	writeJSON(w, http.StatusOK, gateResponse{Enabled: s.gate.Enabled(), Changed: changed})
}

// handleDisable handles POST /v1/admin/disable.
func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	changed := s.gate.Disable()
	s.logger.Info(r.Context(), "intake disabled", logger.Bool("changed", changed))
	writeJSON(w, http.StatusOK, gateResponse{Enabled: s.gate.Enabled(), Changed: changed})
}

// handleListMutes handles GET /v1/admin/mutes.
func (s *Server) handleListMutes(w http.ResponseWriter, _ *http.Request) {
	muted := s.gate.MutedSubjects()
	if muted == nil {
		muted = []string{}
	}
	writeJSON(w, http.StatusOK, mutesResponse{Muted: muted})
}

// handleMute handles PUT /v1/admin/mutes/{subjectID}.
func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(chi.URLParam(r, "subjectID"))
	changed := s.gate.Mute(subject)
	s.logger.Info(r.Context(), "subject muted", logger.String("subject", subject), logger.Bool("changed", changed))
	writeJSON(w, http.StatusOK, muteResponse{SubjectID: subject, Muted: true, Changed: changed})
}

// handleUnmute handles DELETE /v1/admin/mutes/{subjectID}.
func (s *Server) handleUnmute(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(chi.URLParam(r, "subjectID"))
	changed := s.gate.Unmute(subject)
	s.logger.Info(r.Context(), "subject unmuted", logger.String("subject", subject), logger.Bool("changed", changed))
	writeJSON(w, http.StatusOK, muteResponse{SubjectID: subject, Muted: false, Changed: changed})
}
