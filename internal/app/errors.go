package service

import "errors"

var (
	// ErrNotStarted is returned for requests submitted before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrStart wraps failures while starting the service.
	ErrStart = errors.New("starting service failed")
)
