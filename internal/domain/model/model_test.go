package model_test

import (
	"errors"
	"fmt"
	"testing"

	model "github.com/okian/scholar/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestStudentRecord(t *testing.T) {
	convey.Convey("Given a student record", t, func() {
		rec := model.StudentRecord{
			ID:          "S1",
			Marks:       []model.SubjectMark{{Subject: "math", Mark: 90}, {Subject: "science", Mark: 40}},
			SubjectPass: map[string]bool{"math": true, "science": false},
		}

		convey.Convey("Mark looks up subjects by name", func() {
			m, ok := rec.Mark("science")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(m, convey.ShouldEqual, 40)

			_, ok = rec.Mark("art")
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("SubjectsFailed counts failing subjects", func() {
			convey.So(rec.SubjectsFailed(), convey.ShouldEqual, 1)
		})

		convey.Convey("Complete needs both marks and attendance", func() {
			convey.So(rec.Complete(), convey.ShouldBeTrue)
			rec.MissingAttendance = true
			convey.So(rec.Complete(), convey.ShouldBeFalse)
		})
	})

	convey.Convey("Source kinds validate", t, func() {
		convey.So(model.KindMarks.Valid(), convey.ShouldBeTrue)
		convey.So(model.SourceKind("grades").Valid(), convey.ShouldBeFalse)
	})
}

func TestPipelineError(t *testing.T) {
	convey.Convey("Given a wrapped pipeline error", t, func() {
		cause := fmt.Errorf("strconv: %w", errors.New("bad digit"))
		err := model.WrapError(model.StageLoad, "parseRow", model.ErrRowParse, "marks", "non-numeric mark", cause)

		convey.Convey("It matches its kind and its cause", func() {
			convey.So(errors.Is(err, model.ErrRowParse), convey.ShouldBeTrue)
			convey.So(errors.Is(err, model.ErrNotFound), convey.ShouldBeFalse)
			convey.So(errors.Unwrap(err), convey.ShouldEqual, cause)
		})

		convey.Convey("Its message names stage, op and id", func() {
			convey.So(err.Error(), convey.ShouldContainSubstring, "load.parseRow: non-numeric mark")
			convey.So(err.Error(), convey.ShouldContainSubstring, "id=marks")
		})

		convey.Convey("Wrapping it again preserves the kind", func() {
			outer := fmt.Errorf("refresh: %w", err)
			var pe *model.PipelineError
			convey.So(errors.As(outer, &pe), convey.ShouldBeTrue)
			convey.So(pe.Stage, convey.ShouldEqual, model.StageLoad)
			convey.So(errors.Is(outer, model.ErrRowParse), convey.ShouldBeTrue)
		})
	})

	convey.Convey("A schema mismatch error matches its kind", t, func() {
		err := &model.SchemaMismatchError{ID: "S9", Expected: []string{"a", "b"}, Actual: []string{"a"}}
		convey.So(errors.Is(err, model.ErrSchemaMismatch), convey.ShouldBeTrue)
		convey.So(err.Error(), convey.ShouldContainSubstring, "expected [a,b], got [a]")
	})
}
