package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := NewMemoryStore()

		Convey("When a record is put", func() {
			So(s.Put(ctx, Record{ID: "a", Status: StatusQueued, Events: 3}), ShouldBeNil)

			Convey("Then it can be read back", func() {
				r, err := s.Get(ctx, "a")
				So(err, ShouldBeNil)
				So(r.Status, ShouldEqual, StatusQueued)
				So(r.Events, ShouldEqual, 3)
				So(r.Submitted.IsZero(), ShouldBeFalse)
				So(s.Count(ctx), ShouldEqual, 1)
			})

			Convey("And updates change the stored copy only", func() {
				r, _ := s.Get(ctx, "a")
				r.Status = StatusFailed
				So(s.Update(ctx, "a", func(rec *Record) { rec.Status = StatusDone }), ShouldBeNil)
				got, _ := s.Get(ctx, "a")
				So(got.Status, ShouldEqual, StatusDone)
			})
		})

		Convey("When reading unknown ids", func() {
			_, err := s.Get(ctx, "missing")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.Update(ctx, "missing", func(*Record) {}), ErrNotFound), ShouldBeTrue)
		})

		Convey("When putting a record without id", func() {
			So(errors.Is(s.Put(ctx, Record{}), ErrEmptyID), ShouldBeTrue)
		})
	})

	Convey("Given a store with three records", t, func() {
		s := NewMemoryStore()
		for _, id := range []string{"a", "b", "c"} {
			So(s.Put(ctx, Record{ID: id, Status: StatusDone}), ShouldBeNil)
		}

		Convey("Then List returns newest first", func() {
			out, err := s.List(ctx, 0)
			So(err, ShouldBeNil)
			So([]string{out[0].ID, out[1].ID, out[2].ID}, ShouldResemble, []string{"c", "b", "a"})
		})

		Convey("And a limit truncates", func() {
			out, err := s.List(ctx, 2)
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 2)
			So(out[0].ID, ShouldEqual, "c")
		})

		Convey("And a negative limit is rejected", func() {
			_, err := s.List(ctx, -1)
			So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
		})
	})

	Convey("Given a store bounded to two records", t, func() {
		s := NewMemoryStore(WithMaxRecords(2))

		Convey("When finished records overflow it", func() {
			So(s.Put(ctx, Record{ID: "a", Status: StatusDone}), ShouldBeNil)
			So(s.Put(ctx, Record{ID: "b", Status: StatusFailed}), ShouldBeNil)
			So(s.Put(ctx, Record{ID: "c", Status: StatusQueued}), ShouldBeNil)

			Convey("Then the oldest finished record is evicted", func() {
				_, err := s.Get(ctx, "a")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(s.Count(ctx), ShouldEqual, 2)
			})
		})

		Convey("When only pending records are held", func() {
			So(s.Put(ctx, Record{ID: "a", Status: StatusRunning}), ShouldBeNil)
			So(s.Put(ctx, Record{ID: "b", Status: StatusQueued}), ShouldBeNil)
			So(s.Put(ctx, Record{ID: "c", Status: StatusQueued}), ShouldBeNil)

			Convey("Then nothing is evicted", func() {
				So(s.Count(ctx), ShouldEqual, 3)
			})
		})
	})

	Convey("Given concurrent writers", t, func() {
		s := NewMemoryStore(WithMaxRecords(1000))
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprint(i)
				_ = s.Put(ctx, Record{ID: id, Status: StatusQueued})
				_ = s.Update(ctx, id, func(r *Record) { r.Status = StatusDone })
			}(i)
		}
		wg.Wait()

		Convey("Then every record is stored", func() {
			So(s.Count(ctx), ShouldEqual, 50)
		})
	})
}
