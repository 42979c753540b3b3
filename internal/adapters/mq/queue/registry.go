package queue

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/okian/autorole/internal/domain/model"
)

// Registry keeps one RequestQueue per guild, created on first use. Queues of
// different guilds run independently.
type Registry struct {
	handler Handler
	opts    []Option

	mu     sync.Mutex
	queues map[string]*RequestQueue
	closed bool
}

// NewRegistry returns a registry whose queues share handler and opts.
func NewRegistry(handler Handler, opts ...Option) *Registry {
	return &Registry{handler: handler, opts: opts, queues: make(map[string]*RequestQueue)}
}

// Queue returns the queue of guildID, creating it if needed.
func (r *Registry) Queue(guildID string) (*RequestQueue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[guildID]; ok {
		return q, nil
	}
	if r.closed {
		return nil, ErrStopped
	}
	q := NewRequestQueue(guildID, r.handler, r.opts...)
	r.queues[guildID] = q
	return q, nil
}

// Enqueue routes req to the queue of its guild.
func (r *Registry) Enqueue(ctx context.Context, req model.Request) (int, error) { //nolint:gocritic // hugeParam: requests are values
	q, err := r.Queue(req.GuildID)
	if err != nil {
		return 0, err
	}
	return q.Enqueue(ctx, req)
}

// Stats returns the stats of every queue, ordered by guild.
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	queues := make([]*RequestQueue, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.Unlock()

	out := make([]Stats, 0, len(queues))
	for _, q := range queues {
		out = append(out, q.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out
}

// Close closes every queue and waits for them to drain.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	queues := make([]*RequestQueue, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.Unlock()

	var errs []error
	for _, q := range queues {
		if err := q.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
