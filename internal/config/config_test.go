package config_test

import (
	"testing"
	"time"

	"github.com/okian/eventsoft/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Storage, convey.ShouldEqual, config.StorageMemory)
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.IdempotencyCacheSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.AutoMigrate, convey.ShouldBeTrue)
			convey.So(cfg.DBConnMaxLifetime(), convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
