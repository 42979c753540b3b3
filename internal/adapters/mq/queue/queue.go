// Package queue serializes role requests so that at most one request per
// guild is being acquired, reconciled and applied at any time.
//
// A RequestQueue is either idle or processing. Enqueue on an idle queue starts
// a drain goroutine at once; Enqueue on a busy queue appends to the pending
// list. The drain goroutine handles requests strictly in submission order and
// always moves on to the next one, whatever the previous outcome.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/autorole/internal/domain/gate"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/pkg/logger"
	"github.com/okian/autorole/pkg/metrics"
)

// Handler processes one request. Errors are logged; they never stop the queue.
type Handler interface {
	Handle(ctx context.Context, req model.Request) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req model.Request) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req model.Request) error { return f(ctx, req) }

// StartHook runs in the drain goroutine right before a request that did not
// wait in the pending list is handled.
type StartHook func(ctx context.Context, req model.Request)

// Stats is a point-in-time view of one queue.
type Stats struct {
	GuildID    string `json:"guild_id"`
	Pending    int    `json:"pending"`
	Processing bool   `json:"processing"`
	Handled    int64  `json:"handled"`
	Failed     int64  `json:"failed"`
}

type entry struct {
	req        model.Request
	enqueuedAt time.Time
	immediate  bool
}

// RequestQueue is the per-guild single-consumer request queue.
type RequestQueue struct {
	guildID  string
	handler  Handler
	admitter gate.Admitter
	onStart  StartHook
	capacity int // 0 means unbounded
	logger   logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	pending    []entry
	processing bool
	closed     bool
	handled    int64
	failed     int64
}

// NewRequestQueue creates an idle queue for guildID.
func NewRequestQueue(guildID string, handler Handler, opts ...Option) *RequestQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &RequestQueue{
		guildID: guildID,
		handler: handler,
		logger:  logger.Get().Named("queue"),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = q.logger.With(logger.String("guild", guildID))

	metrics.UpdateQueueDepth(guildID, 0)
	metrics.UpdateQueueProcessing(guildID, false)
	return q
}

// Enqueue submits req. It returns 0 when processing started immediately and
// the 1-based pending position otherwise.
func (q *RequestQueue) Enqueue(ctx context.Context, req model.Request) (int, error) { //nolint:gocritic // hugeParam: requests are values
	if q.admitter != nil {
		if err := q.admitter.Admit(ctx, req.Requester.MemberID); err != nil {
			metrics.RecordRequestRejected(rejectReason(err))
			return 0, err
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordRequestRejected("stopped")
		return 0, ErrStopped
	}

	e := entry{req: req, enqueuedAt: time.Now()}
	if !q.processing {
		e.immediate = true
		q.processing = true
		q.wg.Add(1)
		go q.drain(e)
		metrics.UpdateQueueProcessing(q.guildID, true)
		metrics.RecordRequestEnqueued(true)
		return 0, nil
	}

	if q.capacity > 0 && len(q.pending) >= q.capacity {
		metrics.RecordRequestRejected("queue_full")
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return 0, ErrQueueFull
	}
	q.pending = append(q.pending, e)
	metrics.UpdateQueueDepth(q.guildID, len(q.pending))
	metrics.RecordRequestEnqueued(false)
	return len(q.pending), nil
}

// drain runs until the pending list is empty.
func (q *RequestQueue) drain(e entry) {
	defer q.wg.Done()
	for {
		q.handle(e)

		q.mu.Lock()
		if len(q.pending) == 0 {
			q.processing = false
			q.mu.Unlock()
			metrics.UpdateQueueProcessing(q.guildID, false)
			return
		}
		e = q.pending[0]
		q.pending[0] = entry{}
		q.pending = q.pending[1:]
		depth := len(q.pending)
		q.mu.Unlock()
		metrics.UpdateQueueDepth(q.guildID, depth)
	}
}

func (q *RequestQueue) handle(e entry) {
	metrics.RecordQueueWait(float64(time.Since(e.enqueuedAt).Milliseconds()))

	err := q.safeHandle(e)

	q.mu.Lock()
	q.handled++
	if err != nil {
		q.failed++
	}
	q.mu.Unlock()

	if err != nil {
		metrics.RecordErrorByComponent("queue", "handler_error")
		q.logger.Error(q.ctx, "request failed",
			logger.String("request_id", e.req.ID),
			logger.String("member", e.req.Requester.MemberID),
			logger.Error(err),
		)
	}
}

func (q *RequestQueue) safeHandle(e entry) (err error) { //nolint:gocritic // hugeParam: entries are values
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	if e.immediate && q.onStart != nil {
		q.onStart(q.ctx, e.req)
	}
	return q.handler.Handle(q.ctx, e.req)
}

// Len returns the number of pending requests, excluding the active one.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Processing reports whether a request is being handled.
func (q *RequestQueue) Processing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing
}

// Stats returns the queue's counters.
func (q *RequestQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		GuildID:    q.guildID,
		Pending:    len(q.pending),
		Processing: q.processing,
		Handled:    q.handled,
		Failed:     q.failed,
	}
}

// Close stops intake and waits for pending requests to drain. When ctx ends
// first, the pending requests are dropped, the in-flight request's context is
// canceled and ctx's error returned.
func (q *RequestQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		dropped := len(q.pending)
		q.pending = nil
		q.mu.Unlock()
		q.cancel()
		metrics.UpdateQueueDepth(q.guildID, 0)
		q.logger.Warn(ctx, "queue drain interrupted", logger.Int("dropped", dropped))
		return fmt.Errorf("queue drain interrupted: %w", ctx.Err())
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, gate.ErrDisabled):
		return "disabled"
	case errors.Is(err, gate.ErrMuted):
		return "muted"
	default:
		return "admission"
	}
}
