package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/autorole/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.DryRun, convey.ShouldBeTrue)
			convey.So(cfg.QueueCapacity, convey.ShouldEqual, 0)
			convey.So(cfg.Languages[0], convey.ShouldBeEmpty)
			convey.So(cfg.Languages[1], convey.ShouldEqual, "english")
			convey.So(cfg.Languages[15], convey.ShouldEqual, "chinese_simplified")
			convey.So(cfg.Languages[29], convey.ShouldEqual, "japanese")
			convey.So(cfg.DiscordEnabled(), convey.ShouldBeFalse)
			convey.So(cfg.AcquisitionTimeout(), convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the defaults do not share the language list", func() {
			cfg.Languages[1] = "klingon"
			convey.So(config.New().Languages[1], convey.ShouldEqual, "english")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = " " },
			"empty catalog":     func(c *config.Config) { c.CatalogPath = "" },
			"unknown format":    func(c *config.Config) { c.LogFormat = "xml" },
			"negative timeout":  func(c *config.Config) { c.AcquisitionTimeoutMS = -1 },
			"negative capacity": func(c *config.Config) { c.QueueCapacity = -1 },
			"negative shutdown": func(c *config.Config) { c.ShutdownTimeoutMS = -1 },
			"named language 0":  func(c *config.Config) { c.Languages = []string{"english"} },
			"discord no guild":  func(c *config.Config) { c.DiscordToken = "t"; c.RequestChannelID = "c" },
		}
		for name, mutate := range cases {
			convey.Convey("Then "+name+" is rejected", func() {
				cfg := config.New()
				mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
