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
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "scholar")
				So(manager.subsystem, ShouldEqual, "pipeline")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("campus"),
				WithSubsystem("risk"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "campus")
				So(manager.subsystem, ShouldEqual, "risk")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})

			Convey("And collectors should carry the namespace", func() {
				manager.canonicalRecords.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "campus_risk_canonical_records" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording loader rows", func() {
			before := testutil.ToFloat64(globalManager.rowsLoaded.WithLabelValues("marks.csv", "marks"))
			RecordRowsLoaded("marks.csv", "marks", 4, 1)

			Convey("Then accepted and rejected counters should grow", func() {
				So(testutil.ToFloat64(globalManager.rowsLoaded.WithLabelValues("marks.csv", "marks")), ShouldEqual, before+4)
				So(testutil.ToFloat64(globalManager.rowsRejected.WithLabelValues("marks.csv", "marks")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating canonical record gauges", func() {
			UpdateCanonicalRecords(10, 2, 1)

			Convey("Then the gauges should hold the new values", func() {
				So(testutil.ToFloat64(globalManager.canonicalRecords), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.incompleteRecords.WithLabelValues("marks")), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.incompleteRecords.WithLabelValues("attendance")), ShouldEqual, 1)
			})
		})

		Convey("When recording the remaining metrics", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordSourceFailure("profile.csv")
					RecordRefresh("ok", 12)
					RecordReconcileConflicts("marks", 2)
					RecordMetricsComputed(true)
					RecordMetricsComputed(false)
					RecordTraining("ok", 30)
					UpdateModelEvaluation(0.9, 0.8, 0.7)
					RecordPrediction("at_risk")
					RecordHTTPRequest("metrics", "GET", "200")
					RecordHTTPRequestDuration("metrics", "GET", "200", 1.5)
					RecordErrorByComponent("risk", "schema_mismatch")
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then only scholar metrics should be exported", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "scholar_pipeline_"), ShouldBeTrue)
				}
			})
		})
	})
}
