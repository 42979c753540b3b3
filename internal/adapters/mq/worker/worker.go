// Package worker runs one role request through acquisition, reconciliation,
// application and reporting. It is the consumer of the request queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/internal/domain/profile"
	"github.com/okian/autorole/internal/domain/reconcile"
	"github.com/okian/autorole/pkg/logger"
	"github.com/okian/autorole/pkg/metrics"
)

// Provider acquires a fresh profile snapshot.
type Provider interface {
	Snapshot(ctx context.Context, q profile.Query) (model.ProfileSnapshot, error)
}

// RoleReader reads the roles a member holds right now.
type RoleReader interface {
	MemberRoles(ctx context.Context, guildID, memberID string) (model.RoleSet, error)
}

// Reconciler computes the role diff of a snapshot.
type Reconciler interface {
	Reconcile(current model.RoleSet, snap model.ProfileSnapshot, o reconcile.Overrides) (reconcile.Result, error)
}

// Applier applies a role diff to a member.
type Applier interface {
	Apply(ctx context.Context, guildID, memberID, actor string, diff model.RoleDiff) model.Applied
}

// Notifier reports terminal outcomes to the requester and moderators.
type Notifier interface {
	Succeeded(ctx context.Context, req model.Request, snap model.ProfileSnapshot, applied model.Applied) error
	Failed(ctx context.Context, req model.Request, err error) error
	HighScore(ctx context.Context, req model.Request, n model.HighScoreNotification) error
}

// Outcome classifies how a request ended.
type Outcome string

// Request outcomes.
const (
	OutcomeSucceeded Outcome = "succeeded" // roles changed
	OutcomeUnchanged Outcome = "unchanged" // roles already up to date
	OutcomePartial   Outcome = "partial"   // some role mutations failed
	OutcomeRejected  Outcome = "rejected"  // override above the detected maximum
	OutcomeFailed    Outcome = "failed"    // acquisition or role read failed
)

// Processor is the request pipeline.
type Processor struct {
	provider   Provider
	roles      RoleReader
	reconciler Reconciler
	applier    Applier
	notifier   Notifier

	acquisitionTimeout time.Duration // 0 means none
	logger             logger.Logger
}

// NewProcessor wires a pipeline.
func NewProcessor(provider Provider, roles RoleReader, reconciler Reconciler, applier Applier, notifier Notifier, opts ...Option) *Processor {
	p := &Processor{
		provider:   provider,
		roles:      roles,
		reconciler: reconciler,
		applier:    applier,
		notifier:   notifier,
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle implements queue.Handler.
func (p *Processor) Handle(ctx context.Context, req model.Request) error { //nolint:gocritic // hugeParam: requests are values
	_, err := p.Process(ctx, req)
	return err
}

// Process runs req through every stage. The returned error is the failure
// already reported to the requester, if any.
func (p *Processor) Process(ctx context.Context, req model.Request) (Outcome, error) { //nolint:gocritic // hugeParam: requests are values
	start := time.Now()
	log := p.logger.With(
		logger.String("request_id", req.ID),
		logger.String("guild", req.GuildID),
		logger.String("member", req.Requester.MemberID),
		logger.String("profile", req.ProfileID),
	)

	outcome, err := p.run(ctx, log, req)

	elapsed := time.Since(start)
	metrics.RecordRequestProcessed(string(outcome))
	metrics.RecordRequestDuration(float64(elapsed.Milliseconds()))
	log.Info(ctx, "request processed",
		logger.String("outcome", string(outcome)),
		logger.Duration("duration", elapsed),
	)
	return outcome, err
}

func (p *Processor) run(ctx context.Context, log logger.Logger, req model.Request) (Outcome, error) { //nolint:gocritic // hugeParam: requests are values
	snap, err := p.acquire(ctx, req)
	if err != nil {
		metrics.RecordAcquisitionError(profile.Kind(err))
		log.Warn(ctx, "acquisition failed", logger.Error(err))
		p.fail(ctx, log, req, err)
		return OutcomeFailed, err
	}

	current, err := p.roles.MemberRoles(ctx, req.GuildID, req.Requester.MemberID)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRoleRead, err)
		metrics.RecordErrorByComponent("worker", "role_read")
		log.Error(ctx, "reading member roles failed", logger.Error(err))
		p.fail(ctx, log, req, err)
		return OutcomeFailed, err
	}

	res, err := p.reconciler.Reconcile(current, snap, reconcile.Overrides{Normal: req.Normal, Advanced: req.Advanced})
	if err != nil {
		metrics.RecordReconciliationError(reconcile.Kind(err))
		log.Info(ctx, "reconciliation rejected", logger.Error(err))
		p.fail(ctx, log, req, err)
		var exceeds *reconcile.ExceedsDetectedMaximumError
		if errors.As(err, &exceeds) {
			return OutcomeRejected, err
		}
		return OutcomeFailed, err
	}

	actor := req.Requester.Tag
	if actor == "" {
		actor = req.Requester.MemberID
	}
	applied := p.applier.Apply(ctx, req.GuildID, req.Requester.MemberID, actor, res.Diff)

	if err := p.notifier.Succeeded(ctx, req, snap, applied); err != nil {
		p.notifyError(ctx, log, "succeeded", err)
	}
	for _, n := range res.Notifications {
		n.Roles = granted(n.Roles, applied.Failures)
		if len(n.Roles) == 0 {
			log.Info(ctx, "high score roles not granted, skipping notification")
			continue
		}
		n.ProfileURL = req.ProfileURL
		metrics.RecordHighScoreNotification()
		if err := p.notifier.HighScore(ctx, req, n); err != nil {
			p.notifyError(ctx, log, "high_score", err)
		}
	}

	switch {
	case len(applied.Failures) > 0:
		return OutcomePartial, nil
	case applied.Changed():
		return OutcomeSucceeded, nil
	default:
		return OutcomeUnchanged, nil
	}
}

// granted drops the roles whose grant failed.
func granted(roles []model.HighScoreRole, failures map[string]error) []model.HighScoreRole {
	out := roles[:0:0]
	for _, r := range roles {
		if _, failed := failures[r.ID]; !failed {
			out = append(out, r)
		}
	}
	return out
}

func (p *Processor) acquire(ctx context.Context, req model.Request) (model.ProfileSnapshot, error) { //nolint:gocritic // hugeParam: requests are values
	if p.acquisitionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.acquisitionTimeout)
		defer cancel()
	}
	start := time.Now()
	snap, err := p.provider.Snapshot(ctx, profile.QueryFor(req))
	metrics.RecordAcquisitionLatency(float64(time.Since(start).Milliseconds()))
	return snap, err
}

func (p *Processor) fail(ctx context.Context, log logger.Logger, req model.Request, cause error) { //nolint:gocritic // hugeParam: requests are values
	if err := p.notifier.Failed(ctx, req, cause); err != nil {
		p.notifyError(ctx, log, "failed", err)
	}
}

func (p *Processor) notifyError(ctx context.Context, log logger.Logger, kind string, err error) {
	metrics.RecordNotificationError(kind)
	log.Warn(ctx, "notification failed", logger.String("kind", kind), logger.Error(err))
}
