// Package api is the HTTP surface of the service: request intake for front
// ends other than Discord, admin control of the intake gate, health, stats
// and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/autorole/internal/adapters/mq/queue"
	"github.com/okian/autorole/internal/domain/dedupe"
	"github.com/okian/autorole/internal/domain/gate"
	"github.com/okian/autorole/internal/domain/intake"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/pkg/logger"
	"github.com/okian/autorole/pkg/metrics"
)

// Enqueuer accepts requests for processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, req model.Request) (int, error)
}

// Controller is the admin side of the intake gate.
type Controller interface {
	Enable() bool
	Disable() bool
	Enabled() bool
	Mute(subject string) bool
	Unmute(subject string) bool
	MutedSubjects() []string
}

// Acknowledger is told about every accepted request.
type Acknowledger interface {
	Queued(ctx context.Context, req model.Request, position int) error
}

// Server wires HTTP routes for the service.
type Server struct {
	queue Enqueuer
	gate  Controller
	stats StatsProvider
	ack   Acknowledger
	seen  dedupe.Deduper

	adminToken   string
	defaultGuild string
	languages    []string
	logger       logger.Logger
}

// NewServer creates a new API server.
func NewServer(q Enqueuer, g Controller, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		queue:  q,
		gate:   g,
		stats:  stats,
		logger: logger.Get().Named("http"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/requests", s.handleSubmit)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Post("/enable", s.handleEnable)
			r.Post("/disable", s.handleDisable)
			r.Get("/mutes", s.handleListMutes)
			r.Put("/mutes/{subjectID}", s.handleMute)
			r.Delete("/mutes/{subjectID}", s.handleUnmute)
		})
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var invalid *intake.ValidationError
	if errors.As(err, &invalid) {
		resp.Field = invalid.Field
	}
	writeJSON(w, status, resp)
}

// mapError translates intake and queue errors to a status and a code.
func mapError(err error) (int, string) {
	var invalid *intake.ValidationError
	switch {
	case errors.As(err, &invalid), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, gate.ErrMuted):
		return http.StatusForbidden, "muted"
	case errors.Is(err, gate.ErrDisabled):
		return http.StatusServiceUnavailable, "disabled"
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, queue.ErrStopped):
		return http.StatusServiceUnavailable, "stopped"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
