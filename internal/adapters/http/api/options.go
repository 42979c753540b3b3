package api

import (
	"github.com/okian/autorole/internal/domain/dedupe"
	"github.com/okian/autorole/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAdminToken sets the bearer token of the admin routes.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.adminToken = token }
}

// WithDefaultGuild sets the guild of requests that name none.
func WithDefaultGuild(id string) Option {
	return func(s *Server) { s.defaultGuild = id }
}

// WithLanguages sets the language names, indexed by language id.
func WithLanguages(languages []string) Option {
	return func(s *Server) { s.languages = languages }
}

// WithAcknowledger sets who is told about accepted requests.
func WithAcknowledger(a Acknowledger) Option {
	return func(s *Server) { s.ack = a }
}

// WithDeduper rejects submissions whose Idempotency-Key was already
// accepted.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Server) { s.seen = d }
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
