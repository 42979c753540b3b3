package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/autorole/pkg/logger"
)

const catalogPath = "../../configs/roles.example.yaml"

func execute(stdin string, args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := newRootCmd()

		convey.Convey("Then it carries the serve and reconcile commands", func() {
			var names []string
			for _, c := range root.Commands() {
				names = append(names, c.Name())
			}
			convey.So(names, convey.ShouldContain, "serve")
			convey.So(names, convey.ShouldContain, "reconcile")
		})
	})
}

func TestReconcileCommand(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a snapshot on stdin", t, func() {
		snap := `{"subject_id":"1","max_normal":135,"max_advanced":92,"tests_taken":2600,"supporter":true}`

		convey.Convey("When reconciling against held roles", func() {
			out, err := execute(snap, "reconcile", "--catalog", catalogPath, "--roles", "norm-100,verified,translator")
			convey.So(err, convey.ShouldBeNil)

			var got reconcileOutput
			convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)

			convey.Convey("Then the diff brings the roles in line", func() {
				sorted := cmpopts.SortSlices(func(a, b string) bool { return a < b })
				convey.So(cmp.Diff([]string{"norm-130", "adv-90", "tests-2500", "supporter"}, got.Add, sorted), convey.ShouldBeEmpty)
				convey.So(cmp.Diff([]string{"norm-100", "verified", "translator"}, got.Remove, sorted), convey.ShouldBeEmpty)
				convey.So(got.Notifications, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When an override exceeds the detected maximum", func() {
			_, err := execute(snap, "reconcile", "--catalog", catalogPath, "--normal", "150")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "150")
			})
		})

		convey.Convey("When an override lowers the target", func() {
			out, err := execute(snap, "reconcile", "--catalog", catalogPath, "--normal", "100", "--advanced", "0")
			convey.So(err, convey.ShouldBeNil)

			var got reconcileOutput
			convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)
			convey.So(got.Add, convey.ShouldContain, "norm-100")
			convey.So(got.Add, convey.ShouldNotContain, "adv-90")
		})
	})

	convey.Convey("Given a snapshot file", t, func() {
		path := filepath.Join(t.TempDir(), "snap.json")
		convey.So(os.WriteFile(path, []byte(`{"max_normal":205,"max_advanced":0,"tests_taken":1}`), 0o600), convey.ShouldBeNil)

		out, err := execute("", "reconcile", "--catalog", catalogPath, "--snapshot", path)
		convey.So(err, convey.ShouldBeNil)

		var got reconcileOutput
		convey.So(json.Unmarshal([]byte(out), &got), convey.ShouldBeNil)

		convey.Convey("Then a 200+ role raises a notification", func() {
			convey.So(got.Add, convey.ShouldResemble, []string{"norm-200"})
			convey.So(got.Remove, convey.ShouldResemble, []string{})
			convey.So(got.Notifications, convey.ShouldHaveLength, 1)
		})
	})

	convey.Convey("Given malformed input", t, func() {
		convey.Convey("Then a broken snapshot is reported", func() {
			_, err := execute("{", "reconcile", "--catalog", catalogPath)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Then a missing catalog is reported", func() {
			_, err := execute("{}", "reconcile", "--catalog", "missing.yaml")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
