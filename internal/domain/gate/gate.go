// Package gate holds the process-wide intake switch and the muted-subject list.
//
// Both used to be ambient globals of the bot; here they are one value with
// explicit transitions that the request queue consults on every submission.
package gate

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

// Sentinel errors returned by Admit.
var (
	ErrDisabled = errors.New("intake disabled")
	ErrMuted    = errors.New("subject muted")
)

// Admitter decides whether a subject may submit a request right now.
type Admitter interface {
	Admit(ctx context.Context, subject string) error
}

// Gate is safe for concurrent use. The zero value is disabled; use New.
type Gate struct {
	enabled atomic.Bool

	mu    sync.RWMutex
	muted map[string]struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithDisabled starts the gate closed.
func WithDisabled() Option {
	return func(g *Gate) { g.enabled.Store(false) }
}

// WithMuted pre-populates the muted list.
func WithMuted(subjects ...string) Option {
	return func(g *Gate) {
		for _, s := range subjects {
			if s != "" {
				g.muted[s] = struct{}{}
			}
		}
	}
}

// New returns an enabled gate with an empty muted list.
func New(opts ...Option) *Gate {
	g := &Gate{muted: make(map[string]struct{})}
	g.enabled.Store(true)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enable opens intake. It reports whether the state changed.
func (g *Gate) Enable() bool { return g.enabled.CompareAndSwap(false, true) }

// Disable closes intake. It reports whether the state changed.
func (g *Gate) Disable() bool { return g.enabled.CompareAndSwap(true, false) }

// Enabled reports whether intake is open.
func (g *Gate) Enabled() bool { return g.enabled.Load() }

// Mute blocks subject from submitting. It reports whether subject was newly muted.
func (g *Gate) Mute(subject string) bool {
	if subject == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.muted[subject]; ok {
		return false
	}
	g.muted[subject] = struct{}{}
	return true
}

// Unmute lifts a mute. It reports whether subject was muted.
func (g *Gate) Unmute(subject string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.muted[subject]; !ok {
		return false
	}
	delete(g.muted, subject)
	return true
}

// Muted reports whether subject is muted.
func (g *Gate) Muted(subject string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.muted[subject]
	return ok
}

// MutedSubjects returns the muted list, sorted.
func (g *Gate) MutedSubjects() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.muted))
	for s := range g.muted {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Admit returns ErrDisabled or ErrMuted when subject may not submit.
func (g *Gate) Admit(_ context.Context, subject string) error {
	if !g.Enabled() {
		return ErrDisabled
	}
	if g.Muted(subject) {
		return ErrMuted
	}
	return nil
}
