package queue

import (
	"github.com/okian/autorole/internal/domain/gate"
	"github.com/okian/autorole/pkg/logger"
)

// Option applies a configuration option to a RequestQueue.
type Option func(*RequestQueue)

// WithCapacity bounds the pending list. Zero or less keeps it unbounded.
func WithCapacity(capacity int) Option {
	return func(q *RequestQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithAdmitter makes Enqueue consult a before accepting a request.
func WithAdmitter(a gate.Admitter) Option {
	return func(q *RequestQueue) {
		q.admitter = a
	}
}

// WithStartHook sets the hook run before a request that started at once is
// handled. Enqueue returns position 0 for those requests.
func WithStartHook(h StartHook) Option {
	return func(q *RequestQueue) {
		q.onStart = h
	}
}

// WithLogger sets a custom logger for the queue.
func WithLogger(l logger.Logger) Option {
	return func(q *RequestQueue) {
		if l != nil {
			q.logger = l
		}
	}
}
