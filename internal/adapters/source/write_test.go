package source_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pvnet/internal/adapters/source"
	"github.com/okian/pvnet/internal/domain/model"
)

func TestWriteFile(t *testing.T) {
	ctx := context.Background()
	events := []model.RawEvent{
		{"id": "a", "match_id": 1.0, "type": "Pass", "location": []any{60.0, 40.0}},
		{"id": "b", "match_id": 1.0, "type": "Shot", "shot_outcome": "Goal"},
	}

	for _, name := range []string{"out/events.json", "out/events.jsonl"} {
		Convey("Given events written to "+name, t, func() {
			path := filepath.Join(t.TempDir(), name)
			So(source.WriteFile(path, events), ShouldBeNil)

			Convey("Then the file source reads them back", func() {
				got, err := source.NewFileSource(path).Load(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, events)
			})
		})
	}

	Convey("Given an unsupported extension", t, func() {
		err := source.WriteFile(filepath.Join(t.TempDir(), "events.csv"), events)
		So(errors.Is(err, source.ErrUnsupportedFormat), ShouldBeTrue)
	})
}
