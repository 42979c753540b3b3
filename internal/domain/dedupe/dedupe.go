// Package dedupe remembers recently submitted ids so a redelivered chat
// message or a retried HTTP call is queued at most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// DefaultMaxSize is the number of ids kept when no size is configured.
const DefaultMaxSize = 4096

// Deduper records seen submission ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it
	// if not. The empty id is never recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so it can be submitted again. Callers use it when
	// a recorded submission was not accepted.
	Unrecord(ctx context.Context, id string)

	Size() int
}

// Memory keeps the most recent ids in process memory, evicting the oldest
// once full. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // oldest at the front
	maxSize int
}

var _ Deduper = (*Memory)(nil)

// NewMemory creates an in-memory deduper.
func NewMemory(opts ...Option) *Memory {
	d := &Memory{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord reports whether id was seen and records it if not.
func (d *Memory) SeenAndRecord(_ context.Context, id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[id] = d.order.PushBack(id)
	return false
}

// Unrecord forgets id.
func (d *Memory) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.seen[id]; ok {
		d.order.Remove(e)
		delete(d.seen, id)
	}
}

// Size returns the number of recorded ids.
func (d *Memory) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
