package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/autorole/internal/adapters/guild"
	service "github.com/okian/autorole/internal/app"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/internal/domain/profile"
	. "github.com/smartystreets/goconvey/convey"
)

type stubProvider struct {
	snap model.ProfileSnapshot
	err  error
}

func (p stubProvider) Snapshot(_ context.Context, q profile.Query) (model.ProfileSnapshot, error) {
	if p.err != nil {
		return model.ProfileSnapshot{}, p.err
	}
	s := p.snap
	s.SubjectID = q.ProfileID
	return s, nil
}

// outcomes collects the terminal notifications of requests.
type outcomes struct {
	mu        sync.Mutex
	queued    []int
	succeeded []model.Applied
	failed    []error
	highScore []model.HighScoreNotification
	events    []string
	done      chan struct{}
}

func newOutcomes() *outcomes { return &outcomes{done: make(chan struct{}, 16)} }

func (o *outcomes) Queued(_ context.Context, _ model.Request, position int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queued = append(o.queued, position)
	o.events = append(o.events, "queued")
	return nil
}

func (o *outcomes) Succeeded(_ context.Context, _ model.Request, _ model.ProfileSnapshot, applied model.Applied) error {
	o.mu.Lock()
	o.succeeded = append(o.succeeded, applied)
	o.events = append(o.events, "succeeded")
	o.mu.Unlock()
	o.done <- struct{}{}
	return nil
}

func (o *outcomes) Failed(_ context.Context, _ model.Request, err error) error {
	o.mu.Lock()
	o.failed = append(o.failed, err)
	o.events = append(o.events, "failed")
	o.mu.Unlock()
	o.done <- struct{}{}
	return nil
}

func (o *outcomes) HighScore(_ context.Context, _ model.Request, n model.HighScoreNotification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.highScore = append(o.highScore, n)
	return nil
}

func (o *outcomes) wait(n int) bool {
	for i := 0; i < n; i++ {
		select {
		case <-o.done:
		case <-time.After(5 * time.Second):
			return false
		}
	}
	return true
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with an in-memory guild", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		g := guild.NewMemory()
		g.SetMemberRoles("guild", "555", "norm-100", "verified")
		out := newOutcomes()
		provider := stubProvider{snap: model.ProfileSnapshot{
			LanguageID:  1,
			MaxNormal:   135,
			MaxAdvanced: 92,
			TestsTaken:  2600,
			Supporter:   true,
		}}

		svc := service.New(
			service.WithCatalogPath(catalogPath),
			service.WithGuild(g),
			service.WithProvider(provider),
			service.WithNotifier(out),
			service.WithDryRun(false),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		req := model.Request{
			ID:        "r1",
			GuildID:   "guild",
			Requester: model.Requester{MemberID: "555", Tag: "typist"},
			ProfileID: "1",
		}

		Convey("When a request is processed end-to-end", func() {
			_, err := svc.Enqueue(ctx, req)
			So(err, ShouldBeNil)
			So(out.wait(1), ShouldBeTrue)

			Convey("Then the member holds the roles of the snapshot", func() {
				held, err := g.MemberRoles(ctx, "guild", "555")
				So(err, ShouldBeNil)
				So(held.Has("norm-130"), ShouldBeTrue)
				So(held.Has("adv-90"), ShouldBeTrue)
				So(held.Has("tests-2500"), ShouldBeTrue)
				So(held.Has("supporter"), ShouldBeTrue)
				So(held.Has("norm-100"), ShouldBeFalse)
			})

			Convey("And the processing acknowledgment precedes the outcome", func() {
				So(out.queued, ShouldResemble, []int{0})
				So(out.events, ShouldResemble, []string{"queued", "succeeded"})
			})

			Convey("And the verified role is revoked after the raise", func() {
				held, _ := g.MemberRoles(ctx, "guild", "555")
				So(held.Has("verified"), ShouldBeFalse)
				So(out.failed, ShouldBeEmpty)
				So(out.succeeded, ShouldHaveLength, 1)
			})
		})

		Convey("When an override exceeds the detected maximum", func() {
			over := 200
			req.Normal = &over
			_, err := svc.Enqueue(ctx, req)
			So(err, ShouldBeNil)
			So(out.wait(1), ShouldBeTrue)

			Convey("Then the request fails and no role changes", func() {
				So(out.failed, ShouldHaveLength, 1)
				So(g.Mutations(), ShouldBeEmpty)
			})
		})

		Convey("When several requests of one guild arrive together", func() {
			for i := 0; i < 3; i++ {
				_, err := svc.Enqueue(ctx, req)
				So(err, ShouldBeNil)
			}
			So(out.wait(3), ShouldBeTrue)

			Convey("Then each is handled once and the second run changes nothing", func() {
				So(out.succeeded, ShouldHaveLength, 3)
				So(out.succeeded[0].Changed(), ShouldBeTrue)
				So(out.succeeded[1].Changed(), ShouldBeFalse)
				So(out.succeeded[2].Changed(), ShouldBeFalse)
			})
		})
	})
}
