package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/autorole/internal/adapters/mq/worker"
	"github.com/okian/autorole/internal/domain/catalog"
	model "github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/internal/domain/profile"
	"github.com/okian/autorole/internal/domain/reconcile"
	logging "github.com/okian/autorole/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockProvider struct {
	snap  model.ProfileSnapshot
	err   error
	delay time.Duration
	seen  []profile.Query
}

func (m *mockProvider) Snapshot(ctx context.Context, q profile.Query) (model.ProfileSnapshot, error) {
	m.seen = append(m.seen, q)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return model.ProfileSnapshot{}, fmt.Errorf("%w: %w", profile.ErrAcquisition, ctx.Err())
		}
	}
	return m.snap, m.err
}

type mockRoles struct {
	roles model.RoleSet
	err   error
	calls int
}

func (m *mockRoles) MemberRoles(ctx context.Context, guildID, memberID string) (model.RoleSet, error) {
	m.calls++
	return m.roles, m.err
}

type mockApplier struct {
	diffs    []model.RoleDiff
	actor    string
	failures map[string]error
}

func (m *mockApplier) Apply(ctx context.Context, guildID, memberID, actor string, diff model.RoleDiff) model.Applied {
	m.diffs = append(m.diffs, diff)
	m.actor = actor
	out := model.Applied{Failures: map[string]error{}}
	for _, id := range diff.ToAdd {
		if err, ok := m.failures[id]; ok {
			out.Failures[id] = err
			continue
		}
		out.Added = append(out.Added, id)
	}
	for _, id := range diff.ToRemove {
		if err, ok := m.failures[id]; ok {
			out.Failures[id] = err
			continue
		}
		out.Removed = append(out.Removed, id)
	}
	return out
}

type mockNotifier struct {
	mu        sync.Mutex
	succeeded []model.Applied
	failed    []error
	highScore []model.HighScoreNotification
	err       error
}

func (m *mockNotifier) Succeeded(ctx context.Context, req model.Request, snap model.ProfileSnapshot, applied model.Applied) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded = append(m.succeeded, applied)
	return m.err
}

func (m *mockNotifier) Failed(ctx context.Context, req model.Request, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, err)
	return m.err
}

func (m *mockNotifier) HighScore(ctx context.Context, req model.Request, n model.HighScoreNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highScore = append(m.highScore, n)
	return m.err
}

func intp(v int) *int { return &v }

type fixture struct {
	provider *mockProvider
	roles    *mockRoles
	applier  *mockApplier
	notifier *mockNotifier
	proc     *worker.Processor
}

func newFixture(opts ...worker.Option) *fixture {
	c, err := catalog.Load("../../../../configs/roles.example.yaml")
	convey.So(err, convey.ShouldBeNil)
	f := &fixture{
		provider: &mockProvider{},
		roles:    &mockRoles{roles: model.NewRoleSet()},
		applier:  &mockApplier{},
		notifier: &mockNotifier{},
	}
	f.proc = worker.NewProcessor(f.provider, f.roles, reconcile.New(c), f.applier, f.notifier, opts...)
	return f
}

func request() model.Request {
	return model.Request{
		ID:         "r1",
		GuildID:    "g1",
		Requester:  model.Requester{MemberID: "m1", Tag: "typist#0001"},
		ProfileURL: "https://10fastfingers.com/user/1/",
		ProfileID:  "1",
		LanguageID: 1,
	}
}

func TestProcessor(t *testing.T) {
	convey.Convey("Given a processor", t, func() {
		_ = logging.Init()
		ctx := context.Background()

		convey.Convey("When the snapshot warrants new roles", func() {
			f := newFixture()
			f.provider.snap = model.ProfileSnapshot{SubjectID: "1", MaxNormal: 135, MaxAdvanced: 90, TestsTaken: 3000}

			outcome, err := f.proc.Process(ctx, request())

			convey.Convey("Then the diff is applied and the requester is told", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomeSucceeded)
				convey.So(f.applier.diffs, convey.ShouldHaveLength, 1)
				convey.So(f.applier.diffs[0].ToAdd, convey.ShouldResemble, []string{"norm-130", "adv-90", "tests-2500"})
				convey.So(f.applier.actor, convey.ShouldEqual, "typist#0001")
				convey.So(f.notifier.succeeded, convey.ShouldHaveLength, 1)
				convey.So(f.notifier.failed, convey.ShouldBeEmpty)
				convey.So(f.provider.seen[0].LanguageID, convey.ShouldEqual, 1)
				convey.So(f.roles.calls, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When roles are already up to date", func() {
			f := newFixture()
			f.provider.snap = model.ProfileSnapshot{MaxNormal: 135}
			f.roles.roles = model.NewRoleSet("norm-130")

			outcome, err := f.proc.Process(ctx, request())

			convey.Convey("Then nothing changes but the requester still hears back", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomeUnchanged)
				convey.So(f.notifier.succeeded, convey.ShouldHaveLength, 1)
				convey.So(f.notifier.succeeded[0].Changed(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When acquisition fails", func() {
			f := newFixture()
			f.provider.err = fmt.Errorf("user 1: %w", profile.ErrIdentityUnverified)

			outcome, err := f.proc.Process(ctx, request())

			convey.Convey("Then nothing else runs and the failure is reported", func() {
				convey.So(errors.Is(err, profile.ErrIdentityUnverified), convey.ShouldBeTrue)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomeFailed)
				convey.So(f.roles.calls, convey.ShouldEqual, 0)
				convey.So(f.applier.diffs, convey.ShouldBeEmpty)
				convey.So(f.notifier.failed, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When an override exceeds the detected maximum", func() {
			f := newFixture()
			f.provider.snap = model.ProfileSnapshot{MaxNormal: 100, MaxAdvanced: 90}
			req := request()
			req.Advanced = intp(95)

			outcome, err := f.proc.Process(ctx, req)

			convey.Convey("Then roles are untouched", func() {
				var exceeds *reconcile.ExceedsDetectedMaximumError
				convey.So(errors.As(err, &exceeds), convey.ShouldBeTrue)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomeRejected)
				convey.So(f.applier.diffs, convey.ShouldBeEmpty)
				convey.So(f.notifier.failed, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When member roles cannot be read", func() {
			f := newFixture()
			f.roles.err = errors.New("guild unavailable")

			outcome, err := f.proc.Process(ctx, request())

			convey.Convey("Then the request fails before reconciliation", func() {
				convey.So(errors.Is(err, worker.ErrRoleRead), convey.ShouldBeTrue)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomeFailed)
				convey.So(f.applier.diffs, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a role mutation fails", func() {
			f := newFixture()
			f.provider.snap = model.ProfileSnapshot{MaxNormal: 135, TestsTaken: 3000}
			f.applier.failures = map[string]error{"tests-2500": errors.New("missing permission")}

			outcome, err := f.proc.Process(ctx, request())

			convey.Convey("Then the rest is applied and the outcome is partial", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomePartial)
				convey.So(f.notifier.succeeded[0].Added, convey.ShouldResemble, []string{"norm-130"})
			})
		})

		convey.Convey("When a 200+ role is granted and verified revoked", func() {
			f := newFixture()
			f.provider.snap = model.ProfileSnapshot{SubjectID: "1", MaxNormal: 205}
			f.roles.roles = model.NewRoleSet("norm-190", "verified")
			f.notifier.err = errors.New("dm closed")

			outcome, err := f.proc.Process(ctx, request())

			convey.Convey("Then moderators are notified and notification errors are not fatal", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomeSucceeded)
				convey.So(f.notifier.highScore, convey.ShouldHaveLength, 1)
				convey.So(f.notifier.highScore[0].ProfileURL, convey.ShouldEqual, "https://10fastfingers.com/user/1/")
				convey.So(f.notifier.highScore[0].VerifiedRevoked, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the grant of a 200+ role fails", func() {
			f := newFixture()
			f.provider.snap = model.ProfileSnapshot{SubjectID: "1", MaxNormal: 205, MaxAdvanced: 203}
			f.applier.failures = map[string]error{"norm-200": errors.New("missing permission")}

			outcome, err := f.proc.Process(ctx, request())

			convey.Convey("Then moderators only hear about the roles actually granted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomePartial)
				convey.So(f.notifier.highScore, convey.ShouldHaveLength, 1)
				convey.So(f.notifier.highScore[0].Roles, convey.ShouldHaveLength, 1)
				convey.So(f.notifier.highScore[0].Roles[0].ID, convey.ShouldEqual, "adv-200")
			})
		})

		convey.Convey("When every 200+ grant fails", func() {
			f := newFixture()
			f.provider.snap = model.ProfileSnapshot{SubjectID: "1", MaxNormal: 205}
			f.applier.failures = map[string]error{"norm-200": errors.New("missing permission")}

			outcome, err := f.proc.Process(ctx, request())

			convey.Convey("Then no high score notification is sent", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(outcome, convey.ShouldEqual, worker.OutcomePartial)
				convey.So(f.notifier.highScore, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When acquisition outlives the configured timeout", func() {
			f := newFixture(worker.WithAcquisitionTimeout(10 * time.Millisecond))
			f.provider.delay = time.Second

			outcome, err := f.proc.Process(ctx, request())

			convey.Convey("Then it fails as a timeout", func() {
				convey.So(outcome, convey.ShouldEqual, worker.OutcomeFailed)
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
				convey.So(profile.Kind(err), convey.ShouldEqual, "timeout")
			})
		})

		convey.Convey("When used as a queue handler", func() {
			f := newFixture()
			f.provider.err = profile.ErrNoTestsTaken

			err := f.proc.Handle(ctx, request())

			convey.Convey("Then it returns the reported failure", func() {
				convey.So(errors.Is(err, profile.ErrNoTestsTaken), convey.ShouldBeTrue)
			})
		})
	})
}
