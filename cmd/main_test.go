package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pvnet/internal/adapters/artifacts"
	"github.com/okian/pvnet/internal/config"
	"github.com/okian/pvnet/internal/domain/split"
)

// run executes the root command with args and returns its stdout.
func run(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI(t *testing.T) {
	convey.Convey("Given a clean environment and a temp workspace", t, func() {
		t.Setenv(config.EnvFile, "")
		dir := t.TempDir()
		events := filepath.Join(dir, "events.jsonl")
		out := filepath.Join(dir, "artifacts")

		convey.Convey("When generating synthetic events", func() {
			stdout, err := run("generate", "--out", events, "--matches", "20", "--possessions", "30", "--seed", "3")

			convey.Convey("Then the event file is written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout, convey.ShouldContainSubstring, "from 20 matches")
				_, statErr := os.Stat(events)
				convey.So(statErr, convey.ShouldBeNil)
			})

			convey.Convey("And building writes every artifact with a summary table", func() {
				stdout, err := run("build", "--input", events, "--out", out, "--k", "4", "--seed", "11", "--log-level", "error")
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout, convey.ShouldContainSubstring, "SHOT RATE")
				convey.So(stdout, convey.ShouldContainSubstring, "train_events.parquet")
				convey.So(artifacts.MissingArtifacts(out, artifacts.Files()), convey.ShouldBeEmpty)

				m, err := artifacts.ReadManifest(out)
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.K, convey.ShouldEqual, 4)
				convey.So(m.Seed, convey.ShouldEqual, int64(11))
				convey.So(m.Summary.Matches, convey.ShouldEqual, 20)
				convey.So(m.Summary.Splits[split.Train].Matches, convey.ShouldEqual, 14)

				convey.Convey("And check accepts the dataset columns", func() {
					stdout, err := run("check", out)
					convey.So(err, convey.ShouldBeNil)
					convey.So(stdout, convey.ShouldContainSubstring, "ok  dataset.json")
				})

				convey.Convey("And the dashboard check reports the scoring columns", func() {
					_, err := run("check", "--dashboard", out)
					convey.So(errors.Is(err, errCheckFailed), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, "action_value_dashboard")
					convey.So(err.Error(), convey.ShouldContainSubstring, "minute_bucket")
				})
			})

			convey.Convey("And fractions that do not sum to one are rejected", func() {
				_, err := run("build", "--input", events, "--out", out, "--train", "0.5", "--val", "0.1", "--test", "0.1")
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "configuration error")
			})
		})

		convey.Convey("When building without a source", func() {
			_, err := run("build", "--out", out)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When building from open data without a season", func() {
			_, err := run("build", "--open-data", dir, "--competition", "37")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "--season")
		})

		convey.Convey("When building from open data with explicit zero ids", func() {
			root := filepath.Join(dir, "open-data")
			convey.So(os.MkdirAll(filepath.Join(root, "matches", "0"), 0o755), convey.ShouldBeNil)
			convey.So(os.MkdirAll(filepath.Join(root, "events"), 0o755), convey.ShouldBeNil)
			convey.So(os.WriteFile(filepath.Join(root, "matches", "0", "0.json"),
				[]byte(`[{"match_id": 1}, {"match_id": 2}]`), 0o600), convey.ShouldBeNil)
			match := `[
  {"id": "a", "index": 1, "period": 1, "minute": 0, "second": 1, "possession": 1, "type": {"id": 30, "name": "Pass"}, "location": [60, 40], "pass": {"end_location": [80, 40]}},
  {"id": "b", "index": 2, "period": 1, "minute": 0, "second": 3, "possession": 1, "type": {"id": 16, "name": "Shot"}, "location": [105, 40], "shot": {"outcome": {"id": 97, "name": "Goal"}}}
]`
			for _, id := range []string{"1", "2"} {
				body := bytes.ReplaceAll([]byte(match), []byte(`"id": "`), []byte(`"id": "`+id))
				convey.So(os.WriteFile(filepath.Join(root, "events", id+".json"), body, 0o600), convey.ShouldBeNil)
			}
			zeroOut := filepath.Join(dir, "zero")

			_, err := run("build", "--open-data", root, "--competition", "0", "--season", "0", "--out", zeroOut)

			convey.Convey("Then the ids are used instead of rejected", func() {
				convey.So(err, convey.ShouldBeNil)
				m, err := artifacts.ReadManifest(zeroOut)
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Summary.Rows, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When checking an empty directory", func() {
			_, err := run("check", dir)
			convey.So(errors.Is(err, errCheckFailed), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "train_events.parquet")
		})

		convey.Convey("When the config file is broken", func() {
			bad := filepath.Join(dir, "bad.yaml")
			convey.So(os.WriteFile(bad, []byte("addr: [\n"), 0o600), convey.ShouldBeNil)
			_, err := run("--config", bad, "check", dir)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})
}
