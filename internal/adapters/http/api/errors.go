package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("invalid or missing admin token")
	ErrNoGuild      = errors.New("guild_id is required")
	ErrDuplicate    = errors.New("request with this idempotency key already accepted")
)
