package discord

import "errors"

// Sentinel errors of the Discord adapter.
var (
	ErrNoToken    = errors.New("discord token is not configured")
	ErrNoChannel  = errors.New("no channel to reply in")
	ErrNoSession  = errors.New("discord session is nil")
	ErrNoEnqueuer = errors.New("bot has no request queue")
)
