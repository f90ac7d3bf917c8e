package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/scholar/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatistic(t *testing.T) {
	Convey("Given statistic constructors", t, func() {
		Convey("Defined carries the value", func() {
			s := types.Defined(0.75)
			So(s.Defined, ShouldBeTrue)
			So(s.Value, ShouldEqual, 0.75)
			So(s.Reason, ShouldBeEmpty)
		})

		Convey("Undefined carries a zero value and a reason", func() {
			s := types.Undefined("fewer than two records")
			So(s.Defined, ShouldBeFalse)
			So(s.Value, ShouldEqual, 0)
			So(s.Reason, ShouldEqual, "fewer than two records")
		})
	})
}

func TestEntryJSON(t *testing.T) {
	Convey("Given a ranking entry without attendance", t, func() {
		entry := types.Entry{Rank: 1, ID: "S1", TotalMark: 130, AverageMark: 65}

		b, err := json.Marshal(entry)

		Convey("Then attendance is omitted from JSON", func() {
			So(err, ShouldBeNil)
			So(string(b), ShouldNotContainSubstring, "attendance_pct")
			So(string(b), ShouldContainSubstring, `"id":"S1"`)
		})
	})
}
