package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/eventsoft/internal/config"
	"github.com/okian/eventsoft/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("EVENTSOFT_ADDR", ":8080")
			_ = os.Setenv("EVENTSOFT_MAX_RANKING_SIZE", "25")
			defer func() {
				_ = os.Unsetenv("EVENTSOFT_ADDR")
				_ = os.Unsetenv("EVENTSOFT_MAX_RANKING_SIZE")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxRankingSize, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When configuration is invalid", func() {
			_ = os.Setenv("EVENTSOFT_STORAGE", "postgres")
			defer func() { _ = os.Unsetenv("EVENTSOFT_STORAGE") }()

			convey.Convey("Then loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a service built from default configuration", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		svc := newService(config.New(), logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		handler := newHandler(ctx, svc, logger.Get())
		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", path, http.NoBody))
			return w
		}

		convey.Convey("Then the health endpoint should serve metrics", func() {
			w := get("/healthz")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
		})

		convey.Convey("Then the OpenAPI document should be served", func() {
			w := get("/openapi.yaml")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldStartWith, "openapi:")
		})

		convey.Convey("Then the API should be reachable", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/events", strings.NewReader(`{"name":"Demo"}`))
			handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)

			stats := get("/stats")
			convey.So(stats.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(stats.Body.String(), convey.ShouldContainSubstring, `"started":true`)
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service metrics updater", t, func() {
		svc := newService(config.New(), logger.Get())

		convey.Convey("Then it should return once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})
	})
}
