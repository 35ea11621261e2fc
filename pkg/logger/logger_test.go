package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)
			defer func() { _ = Sync() }()

			Convey("Then Get returns a logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Named("pipeline"), ShouldNotBeNil)
			})
		})

		Convey("When initialized with JSON output", func() {
			var buf bytes.Buffer
			So(Init(WithFormat(FormatJSON), WithWriter(&buf)), ShouldBeNil)

			Get().Info(context.Background(), "stage done",
				String("stage", "clean"), Int("rows", 3), Int64("n", 4), Float64("rate", 0.5),
				Bool("ok", true), Duration("took", time.Millisecond), Any("x", []int{1}), Error(errors.New("boom")))

			Convey("Then each entry is a JSON object with fields and source", func() {
				var entry map[string]any
				So(json.Unmarshal(buf.Bytes(), &entry), ShouldBeNil)
				So(entry["msg"], ShouldEqual, "stage done")
				So(entry["stage"], ShouldEqual, "clean")
				So(entry["rows"], ShouldEqual, 3.0)
				So(entry["error"], ShouldEqual, "boom")
				So(entry["source"], ShouldContainSubstring, "logger_test.go")
			})
		})
	})
}

func TestLoggerLevels(t *testing.T) {
	Convey("Given a text logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("WARN"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then only warn entries are written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})

		Convey("When the level is debug", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			Named("api").Debug(ctx, "detail", String("k", "v"))

			Convey("Then named loggers group their fields", func() {
				So(strings.Contains(buf.String(), "api.k=v"), ShouldBeTrue)
			})
		})

		Convey("When the level string is unknown", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		So(func() { Nop().Error(context.Background(), "dropped") }, ShouldNotPanic)
	})
}
