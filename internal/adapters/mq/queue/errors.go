package queue

import "errors"

// Sentinel errors of the request queue.
var (
	ErrStopped      = errors.New("queue stopped")
	ErrQueueFull    = errors.New("queue full")
	ErrHandlerPanic = errors.New("request handler panicked")
)
