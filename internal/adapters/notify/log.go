package notify

import (
	"context"
	"errors"

	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/pkg/logger"
)

// Log writes every message to the structured logger. It backs front ends
// that have no reply channel of their own, such as the HTTP API.
type Log struct {
	logger logger.Logger
}

// NewLog creates a log notifier.
func NewLog(l logger.Logger) *Log {
	if l == nil {
		l = logger.Get().Named("notify")
	}
	return &Log{logger: l}
}

func requestFields(req model.Request) []logger.Field { //nolint:gocritic // hugeParam: requests are values
	return []logger.Field{
		logger.String("request_id", req.ID),
		logger.String("member", req.Requester.MemberID),
		logger.String("source", req.Origin.Source),
	}
}

// Queued logs the acknowledgment of req.
func (l *Log) Queued(ctx context.Context, req model.Request, position int) error { //nolint:gocritic // hugeParam: requests are values
	l.logger.Info(ctx, Queued(position), append(requestFields(req), logger.Int("position", position))...)
	return nil
}

// Succeeded logs the roles that changed.
func (l *Log) Succeeded(ctx context.Context, req model.Request, snap model.ProfileSnapshot, applied model.Applied) error { //nolint:gocritic // hugeParam: requests are values
	l.logger.Info(ctx, "request succeeded", append(requestFields(req),
		logger.Strings("added", applied.Added),
		logger.Strings("removed", applied.Removed),
		logger.Int("failures", len(applied.Failures)),
		logger.Int("max_normal", snap.MaxNormal),
		logger.Int("max_advanced", snap.MaxAdvanced),
	)...)
	return nil
}

// Failed logs the failure reply of req.
func (l *Log) Failed(ctx context.Context, req model.Request, err error) error { //nolint:gocritic // hugeParam: requests are values
	_, tag := Failed(err)
	l.logger.Warn(ctx, "request failed", append(requestFields(req), logger.String("tag", tag), logger.Error(err))...)
	return nil
}

// HighScore logs the moderator warning.
func (l *Log) HighScore(ctx context.Context, req model.Request, n model.HighScoreNotification) error { //nolint:gocritic // hugeParam: requests are values
	l.logger.Warn(ctx, "high score roles granted", append(requestFields(req),
		logger.String("profile_url", n.ProfileURL),
		logger.Strings("roles", n.Labels()),
		logger.Bool("verified_revoked", n.VerifiedRevoked),
	)...)
	return nil
}

// Notifier is implemented by every delivery channel.
type Notifier interface {
	Queued(ctx context.Context, req model.Request, position int) error
	Succeeded(ctx context.Context, req model.Request, snap model.ProfileSnapshot, applied model.Applied) error
	Failed(ctx context.Context, req model.Request, err error) error
	HighScore(ctx context.Context, req model.Request, n model.HighScoreNotification) error
}

var _ Notifier = (*Log)(nil)

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

var _ Notifier = Fanout(nil)

// Queued implements Notifier.
func (f Fanout) Queued(ctx context.Context, req model.Request, position int) error { //nolint:gocritic // hugeParam: requests are values
	return f.each(func(n Notifier) error { return n.Queued(ctx, req, position) })
}

// Succeeded implements Notifier.
func (f Fanout) Succeeded(ctx context.Context, req model.Request, snap model.ProfileSnapshot, applied model.Applied) error { //nolint:gocritic // hugeParam: requests are values
	return f.each(func(n Notifier) error { return n.Succeeded(ctx, req, snap, applied) })
}

// Failed implements Notifier.
func (f Fanout) Failed(ctx context.Context, req model.Request, err error) error { //nolint:gocritic // hugeParam: requests are values
	return f.each(func(n Notifier) error { return n.Failed(ctx, req, err) })
}

// HighScore implements Notifier.
func (f Fanout) HighScore(ctx context.Context, req model.Request, hs model.HighScoreNotification) error { //nolint:gocritic // hugeParam: requests are values
	return f.each(func(n Notifier) error { return n.HighScore(ctx, req, hs) })
}

func (f Fanout) each(call func(Notifier) error) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := call(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
