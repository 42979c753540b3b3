package notify_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/autorole/internal/adapters/notify"
	"github.com/okian/autorole/internal/domain/catalog"
	"github.com/okian/autorole/internal/domain/intake"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/internal/domain/profile"
	"github.com/okian/autorole/internal/domain/reconcile"
	logging "github.com/okian/autorole/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMessages(t *testing.T) {
	Convey("Given the reply formatters", t, func() {
		Convey("Then the acknowledgment depends on the position", func() {
			So(notify.Queued(0), ShouldContainSubstring, "Processing your request")
			So(notify.Queued(3), ShouldContainSubstring, "position 3")
		})

		Convey("Then a success lists added and removed roles", func() {
			text := notify.Succeeded(model.Applied{Added: []string{"130-139 WPM"}, Removed: []string{"120-129 WPM"}})
			So(text, ShouldContainSubstring, "**Success!**")
			So(text, ShouldContainSubstring, "__added__:\n- **130-139 WPM**")
			So(text, ShouldContainSubstring, "__removed__:\n- **120-129 WPM**")
		})

		Convey("Then an empty result says roles are up to date", func() {
			So(notify.Succeeded(model.Applied{}), ShouldContainSubstring, "up to date")
		})

		Convey("Then failed mutations are mentioned", func() {
			text := notify.Succeeded(model.Applied{Added: []string{"x"}, Failures: map[string]error{"y": errors.New("forbidden")}})
			So(text, ShouldContainSubstring, "1 role change(s) could not be applied")
		})

		Convey("Then an override above the maximum names both speeds", func() {
			err := fmt.Errorf("reconcile: %w", &reconcile.ExceedsDetectedMaximumError{
				Category: catalog.CategoryAdvanced, Requested: 95, DetectedMax: 90,
			})
			text, tag := notify.Failed(err)
			So(text, ShouldContainSubstring, "**95 WPM**")
			So(text, ShouldContainSubstring, "max advanced WPM is **90 WPM**")
			So(tag, ShouldEqual, reconcile.TagExceeds)
		})

		Convey("Then acquisition failures carry their tag and help link", func() {
			text, tag := notify.Failed(profile.ErrIdentityUnverified)
			So(tag, ShouldEqual, profile.TagIdentity)
			So(text, ShouldContainSubstring, notify.HelpURL)

			_, tag = notify.Failed(profile.ErrAcquisition)
			So(tag, ShouldBeEmpty)
		})

		Convey("Then invalid arguments come with the usage", func() {
			text, tag := notify.Failed(&intake.ValidationError{Field: "normal", Reason: "must be below 250"})
			So(tag, ShouldBeEmpty)
			So(text, ShouldContainSubstring, "invalid normal: must be below 250")
			So(text, ShouldContainSubstring, intake.Usage)
		})

		Convey("Then profile problems get a public notice", func() {
			So(notify.Notice(profile.ErrIdentityUnverified, "<@1>"), ShouldContainSubstring, "<@1>: Please copy your **Discord tag or ID**")
			So(notify.Notice(profile.ErrNoTestsTaken, "<@1>"), ShouldContainSubstring, "at least one test")
			So(notify.Notice(profile.ErrAcquisition, "<@1>"), ShouldBeEmpty)
		})

		Convey("Then moderators learn what was granted", func() {
			req := model.Request{Requester: model.Requester{Tag: "typist#0001"}}
			text := notify.HighScore("mod", req, model.HighScoreNotification{
				ProfileURL: "https://10fastfingers.com/user/1/", MaxNormal: 205, MaxAdvanced: 150,
				Roles: []model.HighScoreRole{{ID: "norm-200", Label: "200-209 WPM"}}, VerifiedRevoked: true,
			})
			So(text, ShouldContainSubstring, "Heads up, **mod**")
			So(text, ShouldContainSubstring, "User **typist#0001** (__typist#0001__)")
			So(text, ShouldContainSubstring, "**205 WPM** and **150 WPM (Advanced)**")
			So(text, ShouldContainSubstring, "- **200-209 WPM**")
			So(text, ShouldContainSubstring, "**Verified** role has been removed")
		})
	})
}

type recordingNotifier struct {
	calls []string
	err   error
}

func (r *recordingNotifier) Queued(ctx context.Context, req model.Request, position int) error {
	r.calls = append(r.calls, "queued")
	return r.err
}

func (r *recordingNotifier) Succeeded(ctx context.Context, req model.Request, snap model.ProfileSnapshot, applied model.Applied) error {
	r.calls = append(r.calls, "succeeded")
	return r.err
}

func (r *recordingNotifier) Failed(ctx context.Context, req model.Request, err error) error {
	r.calls = append(r.calls, "failed")
	return r.err
}

func (r *recordingNotifier) HighScore(ctx context.Context, req model.Request, n model.HighScoreNotification) error {
	r.calls = append(r.calls, "high_score")
	return r.err
}

func TestNotifiers(t *testing.T) {
	Convey("Given a log notifier writing JSON", t, func() {
		var buf bytes.Buffer
		So(logging.InitWith(&buf, logging.FormatJSON), ShouldBeNil)
		defer func() { _ = logging.Init() }()

		l := notify.NewLog(nil)
		ctx := context.Background()
		req := model.Request{ID: "r1", Requester: model.Requester{MemberID: "m1"}, Origin: model.Origin{Source: "http"}}

		So(l.Queued(ctx, req, 2), ShouldBeNil)
		So(l.Failed(ctx, req, profile.ErrNoTestsTaken), ShouldBeNil)
		So(l.Succeeded(ctx, req, model.ProfileSnapshot{}, model.Applied{Added: []string{"a"}}), ShouldBeNil)

		Convey("Then each message is a structured record", func() {
			out := buf.String()
			So(out, ShouldContainSubstring, `"position":2`)
			So(out, ShouldContainSubstring, `"request_id":"r1"`)
			So(out, ShouldContainSubstring, `"tag":"0⃣"`)
			So(out, ShouldContainSubstring, `"added":["a"]`)
		})
	})

	Convey("Given a fanout of two notifiers", t, func() {
		a := &recordingNotifier{}
		b := &recordingNotifier{err: errors.New("closed")}
		f := notify.Fanout{a, nil, b}
		ctx := context.Background()

		err := f.HighScore(ctx, model.Request{}, model.HighScoreNotification{})

		Convey("Then both are called and the error is kept", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "closed")
			So(a.calls, ShouldResemble, []string{"high_score"})
			So(b.calls, ShouldResemble, []string{"high_score"})
		})
	})
}
