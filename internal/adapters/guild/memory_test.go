package guild_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/autorole/internal/adapters/guild"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemory(t *testing.T) {
	Convey("Given an in-memory guild with registered roles", t, func() {
		ctx := context.Background()
		g := guild.NewMemory(guild.WithRoles(map[string]string{"r1": "Role One", "r2": "Role Two", "": "ignored"}))
		g.SetMemberRoles("g1", "m1", "r1")

		Convey("When reading member roles", func() {
			roles, err := g.MemberRoles(ctx, "g1", "m1")

			Convey("Then a copy is returned", func() {
				So(err, ShouldBeNil)
				So(roles.IDs(), ShouldResemble, []string{"r1"})
				delete(roles, "r1")
				again, _ := g.MemberRoles(ctx, "g1", "m1")
				So(again.Has("r1"), ShouldBeTrue)
			})
		})

		Convey("When an unknown member is read", func() {
			roles, err := g.MemberRoles(ctx, "g1", "nobody")

			Convey("Then they hold nothing", func() {
				So(err, ShouldBeNil)
				So(roles, ShouldBeEmpty)
			})
		})

		Convey("When roles are mutated", func() {
			So(g.AddRole(ctx, "g1", "m1", "r2", "granted"), ShouldBeNil)
			So(g.RemoveRole(ctx, "g1", "m1", "r1", "revoked"), ShouldBeNil)

			Convey("Then the member state and audit trail follow", func() {
				roles, _ := g.MemberRoles(ctx, "g1", "m1")
				So(roles.IDs(), ShouldResemble, []string{"r2"})
				So(g.Mutations(), ShouldResemble, []guild.Mutation{
					{GuildID: "g1", MemberID: "m1", RoleID: "r2", Op: guild.OpAdd, Reason: "granted"},
					{GuildID: "g1", MemberID: "m1", RoleID: "r1", Op: guild.OpRemove, Reason: "revoked"},
				})
			})
		})

		Convey("When an unregistered role is used", func() {
			err := g.AddRole(ctx, "g1", "m1", "r9", "")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, guild.ErrUnknownRole), ShouldBeTrue)
				So(g.Mutations(), ShouldBeEmpty)
			})
		})

		Convey("When names are looked up", func() {
			name, err := g.RoleName(ctx, "g1", "r2")
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "Role Two")

			_, err = g.RoleName(ctx, "g1", "r9")
			So(errors.Is(err, guild.ErrUnknownRole), ShouldBeTrue)
		})
	})

	Convey("Given a strict guild without registered roles", t, func() {
		ctx := context.Background()
		g := guild.NewMemory(guild.WithStrictMembers())

		_, err := g.MemberRoles(ctx, "g1", "m1")
		So(errors.Is(err, guild.ErrUnknownMember), ShouldBeTrue)

		So(g.AddRole(ctx, "g1", "m1", "any", ""), ShouldBeNil)
		roles, err := g.MemberRoles(ctx, "g1", "m1")
		So(err, ShouldBeNil)
		So(roles.Has("any"), ShouldBeTrue)
	})

	Convey("Given concurrent mutations", t, func() {
		ctx := context.Background()
		g := guild.NewMemory()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = g.AddRole(ctx, "g1", "m1", "r", "")
				_, _ = g.MemberRoles(ctx, "g1", "m1")
			}()
		}
		wg.Wait()
		So(g.Mutations(), ShouldHaveLength, 50)
	})
}
