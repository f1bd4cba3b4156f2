package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors use the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.rankingBuilds.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "eventsoft_scoring_ranking_builds_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names and const labels follow the options", func() {
				manager.idempotentReplays.Inc()
				expected := `
# HELP test_unit_idempotent_replays_total Rating batches skipped because their idempotency key was already seen
# TYPE test_unit_idempotent_replays_total counter
test_unit_idempotent_replays_total{env="test"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_unit_idempotent_replays_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When two managers share nothing", func() {
			So(func() {
				NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
				NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
			}, ShouldNotPanic)
		})
	})
}

func TestScoringRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		m := globalManager

		Convey("When ratings are recorded", func() {
			before := testutil.ToFloat64(m.ratingsSubmitted.WithLabelValues(SubjectProject))
			RecordRatingsSubmitted(SubjectProject, 3)

			Convey("Then the counter grows by the batch size", func() {
				So(testutil.ToFloat64(m.ratingsSubmitted.WithLabelValues(SubjectProject)), ShouldEqual, before+3)
			})
		})

		Convey("When aggregations are recorded", func() {
			scored := testutil.ToFloat64(m.aggregations.WithLabelValues(SubjectParticipant, "scored"))
			unscored := testutil.ToFloat64(m.aggregations.WithLabelValues(SubjectParticipant, "unscored"))
			RecordAggregation(SubjectParticipant, true, 1.5)
			RecordAggregation(SubjectParticipant, false, 0.2)

			Convey("Then outcomes are split", func() {
				So(testutil.ToFloat64(m.aggregations.WithLabelValues(SubjectParticipant, "scored")), ShouldEqual, scored+1)
				So(testutil.ToFloat64(m.aggregations.WithLabelValues(SubjectParticipant, "unscored")), ShouldEqual, unscored+1)
			})
		})

		Convey("When the remaining recorders are called", func() {
			So(func() {
				RecordRatingRejection("invalid_value")
				RecordMembersPropagated(4)
				RecordCriterionRejection("weight_exceeded")
				RecordIdempotentReplay()
				RecordRankingBuild(3)
				RecordRankingBackfill(SubjectParticipant)
				RecordHTTPRequest("/events", "POST", "201")
				RecordHTTPRequestDuration("/events", "POST", "201", 2)
				RecordErrorByEndpoint("/events", "POST", "validation")
				RecordErrorByType("validation", "low")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.1)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(m.systemGoroutineCount), ShouldEqual, 10)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		registry := GetRegistry()

		Convey("Then it gathers without error", func() {
			So(registry, ShouldNotBeNil)
			_, err := registry.Gather()
			So(err, ShouldBeNil)
		})
	})
}
