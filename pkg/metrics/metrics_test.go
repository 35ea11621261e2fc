package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When applying them to a manager", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the manager carries them", func() {
				So(m.namespace, ShouldEqual, "test")
				So(m.subsystem, ShouldEqual, "unit")
				So(m.histogramBuckets, ShouldResemble, []float64{1, 2, 3})
				So(m.constLabels["env"], ShouldEqual, "test")
			})

			Convey("And metrics are registered with the namespace", func() {
				m.eventsIngested.Add(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_events_ingested_total"], ShouldBeTrue)
			})
		})

		Convey("When passing empty values", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "pvnet")
				So(m.subsystem, ShouldEqual, "pipeline")
				So(m.histogramBuckets, ShouldResemble, defaultBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline metrics", func() {
			So(func() {
				RecordEventsIngested(10)
				RecordEventDuplicate()
				RecordRowsLabeled(8)
				RecordMalformedLocations(2)
				RecordPipelineRun("ok")
				RecordStageLatency("clean", 1.5)
				UpdateSplitMatches("train", 14)
				UpdateLabelPositiveRate("shot_within_k", 0.12)
			}, ShouldNotPanic)
		})

		Convey("When recording service metrics", func() {
			So(func() {
				RecordHTTPRequest("/datasets", "POST", "202")
				RecordHTTPRequestDuration("/datasets", "POST", "202", 3.2)
				UpdateQueueSize(1)
				UpdateQueueCapacity(64)
				RecordQueueEnqueueError()
				UpdateWorkerActiveCount(2)
				RecordJobLatency(12)
				UpdateDatasetsStored(3)
				RecordErrorByComponent("worker", "pipeline")
			}, ShouldNotPanic)
		})

		Convey("Then a snapshot reflects recorded values", func() {
			RecordMalformedLocations(5)
			UpdateQueueCapacity(64)
			snap, err := Snapshot()
			So(err, ShouldBeNil)
			So(snap["pvnet_pipeline_malformed_locations_total"], ShouldBeGreaterThanOrEqualTo, 5)
			So(snap["pvnet_pipeline_queue_capacity"], ShouldEqual, 64)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
