package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type counter struct{ n int }

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty snapshot store", t, func() {
		seq := 0
		s := NewSnapshotStore[counter](
			WithVersioner(func() string { seq++; return fmt.Sprintf("v%d", seq) }),
			WithClock(func() time.Time { return time.Unix(100, 0) }),
		)

		Convey("Then nothing is published", func() {
			So(s.Load(), ShouldBeNil)
			_, err := s.Value()
			So(errors.Is(err, ErrEmpty), ShouldBeTrue)
		})

		Convey("When a value is published", func() {
			snap, err := s.Update(ctx, func(cur *counter) (*counter, error) {
				So(cur, ShouldBeNil)
				return &counter{n: 1}, nil
			})

			Convey("Then readers see it with a version", func() {
				So(err, ShouldBeNil)
				So(snap.Seq, ShouldEqual, 1)
				So(snap.Version, ShouldEqual, "v1")
				So(snap.PublishedAt.Unix(), ShouldEqual, 100)
				So(s.Load().Value.n, ShouldEqual, 1)
			})

			Convey("And a failed update keeps the previous snapshot", func() {
				_, err := s.Update(ctx, func(cur *counter) (*counter, error) {
					return nil, errors.New("boom")
				})
				So(err, ShouldNotBeNil)
				So(s.Load().Version, ShouldEqual, "v1")
			})

			Convey("And a nil value is refused", func() {
				_, err := s.Update(ctx, func(cur *counter) (*counter, error) { return nil, nil })
				So(errors.Is(err, ErrNilValue), ShouldBeTrue)
				So(s.Load().Seq, ShouldEqual, 1)
			})
		})

		Convey("When many writers update concurrently", func() {
			_, _ = s.Update(ctx, func(*counter) (*counter, error) { return &counter{}, nil })

			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = s.Update(ctx, func(cur *counter) (*counter, error) {
						return &counter{n: cur.n + 1}, nil
					})
					_ = s.Load()
				}()
			}
			wg.Wait()

			Convey("Then no update is lost", func() {
				So(s.Load().Value.n, ShouldEqual, 50)
				So(s.Load().Seq, ShouldEqual, 51)
			})
		})

		Convey("When the context is cancelled", func() {
			c, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Update(c, func(*counter) (*counter, error) { return &counter{}, nil })

			Convey("Then nothing is published", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(s.Load(), ShouldBeNil)
			})
		})
	})
}
