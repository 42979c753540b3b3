package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/autorole/internal/domain/intake"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/pkg/logger"
	"github.com/okian/autorole/pkg/metrics"
)

// SourceHTTP marks requests submitted through the API.
const SourceHTTP = "http"

// submitRequest is the body of POST /v1/requests. Command holds the command
// arguments, with or without the leading `role`.
type submitRequest struct {
	GuildID     string `json:"guild_id"`
	MemberID    string `json:"member_id"`
	Tag         string `json:"tag"`
	DisplayName string `json:"display_name"`
	Command     string `json:"command"`
}

func (b submitRequest) validate() error {
	switch {
	case strings.TrimSpace(b.MemberID) == "":
		return fmt.Errorf("%w: missing member_id", ErrBadRequest)
	case strings.TrimSpace(b.Command) == "":
		return fmt.Errorf("%w: missing command", ErrBadRequest)
	}
	return nil
}

type submitResponse struct {
	RequestID string `json:"request_id"`
	Position  int    `json:"position"`
	Status    string `json:"status"`
}

// handleSubmit handles POST /v1/requests.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := body.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	guildID := body.GuildID
	if guildID == "" {
		guildID = s.defaultGuild
	}
	if guildID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, ErrNoGuild))
		return
	}

	cmd, args := intake.Split(body.Command)
	if cmd != intake.CommandRole {
		args = strings.Fields(body.Command)
	}
	parsed, err := intake.Parse(args, s.languages)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	requester := model.Requester{MemberID: body.MemberID, Tag: body.Tag, DisplayName: body.DisplayName}
	req := parsed.Request(guildID, requester, model.Origin{
		Source:    SourceHTTP,
		MessageID: requestIDFromContext(r.Context()),
	})
	key := r.Header.Get(HeaderIdempotencyKey)
	if s.seen != nil && s.seen.SeenAndRecord(r.Context(), key) {
		metrics.RecordRequestRejected("duplicate")
		writeError(w, http.StatusConflict, "duplicate", ErrDuplicate)
		return
	}
	pos, err := s.queue.Enqueue(r.Context(), req)
	if err != nil {
		if s.seen != nil {
			s.seen.Unrecord(r.Context(), key)
		}
		status, code := mapError(err)
		writeError(w, status, code, err)
		return
	}

	if s.ack != nil && pos > 0 {
		if err := s.ack.Queued(r.Context(), req, pos); err != nil {
			s.logger.Warn(r.Context(), "acknowledgment failed", logger.String("request_id", req.ID), logger.Error(err))
		}
	}
	status := "processing"
	if pos > 0 {
		status = "queued"
	}
	writeJSON(w, http.StatusAccepted, submitResponse{RequestID: req.ID, Position: pos, Status: status})
}
