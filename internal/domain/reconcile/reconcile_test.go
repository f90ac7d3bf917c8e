package reconcile_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/internal/domain/reconcile"
	. "github.com/smartystreets/goconvey/convey"
)

func marks(src string, row int, id string, pairs ...interface{}) model.RawRecord {
	rec := model.RawRecord{Source: src, Kind: model.KindMarks, Row: row, ID: id}
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Marks = append(rec.Marks, model.SubjectMark{Subject: pairs[i].(string), Mark: pairs[i+1].(float64)})
	}
	return rec
}

func attendance(src string, row int, id string, pct float64) model.RawRecord {
	return model.RawRecord{Source: src, Kind: model.KindAttendance, Row: row, ID: id, Attendance: pct}
}

func profile(src string, row int, id, dep string) model.RawRecord {
	return model.RawRecord{Source: src, Kind: model.KindProfile, Row: row, ID: id, Department: dep}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	Convey("Given one student spread across marks and attendance tables", t, func() {
		r := reconcile.New(reconcile.WithPassThreshold(50))
		batch := model.Batch{
			marks("marks", 2, "S1", "Math", 90.0, "Science", 40.0),
			attendance("attendance", 2, "S1", 95),
		}

		ds, rep, err := r.Reconcile(ctx, batch)

		Convey("Then one canonical record is produced with derived flags", func() {
			So(err, ShouldBeNil)
			So(ds.Len(), ShouldEqual, 1)
			rec := ds.Records[0]
			So(rec.ID, ShouldEqual, "S1")
			So(rec.Attendance, ShouldEqual, 95)
			So(rec.SubjectPass["Math"], ShouldBeTrue)
			So(rec.SubjectPass["Science"], ShouldBeFalse)
			So(rec.Passed, ShouldBeFalse)
			So(rec.TotalMark, ShouldEqual, 130)
			So(rec.AverageMark, ShouldEqual, 65)
			So(rec.MissingMarks, ShouldBeFalse)
			So(rec.MissingAttendance, ShouldBeFalse)
			So(rec.MissingProfile, ShouldBeTrue)
			So(ds.Subjects, ShouldResemble, []string{"Math", "Science"})
			So(rep.Conflicts, ShouldBeEmpty)
			So(rep.MissingProfile, ShouldEqual, 1)
		})
	})

	Convey("Given two sources disagreeing on a field", t, func() {
		r := reconcile.New()
		batch := model.Batch{
			attendance("attendance_q1", 2, "S1", 80),
			attendance("attendance_q2", 2, "S1", 85),
			profile("profile", 2, "S1", "CSE"),
			profile("profile_fix", 2, "S1", "CSE"),
		}

		ds, rep, err := r.Reconcile(ctx, batch)

		Convey("Then the most recently loaded value wins and the conflict is reported", func() {
			So(err, ShouldBeNil)
			So(ds.Records[0].Attendance, ShouldEqual, 85)
			So(rep.Conflicts, ShouldHaveLength, 1)
			c := rep.Conflicts[0]
			So(c.Field, ShouldEqual, "attendance_pct")
			So(c.Kept, ShouldEqual, "85")
			So(c.Discarded, ShouldEqual, "80")
			So(c.KeptSource, ShouldEqual, "attendance_q2")
			So(c.DiscardedSource, ShouldEqual, "attendance_q1")
		})

		Convey("And equal values are not conflicts", func() {
			for _, c := range rep.Conflicts {
				So(c.Field, ShouldNotEqual, "department")
			}
		})
	})

	Convey("Given a duplicate identifier within one source", t, func() {
		r := reconcile.New()
		batch := model.Batch{
			marks("marks", 2, "S1", "Math", 50.0),
			marks("marks", 3, "S2", "Math", 70.0),
			marks("marks", 4, "S1", "Math", 60.0),
		}

		ds, rep, err := r.Reconcile(ctx, batch)

		Convey("Then it is reported and resolved last-write-wins", func() {
			So(err, ShouldBeNil)
			So(rep.DuplicateIDs, ShouldResemble, []reconcile.Duplicate{{ID: "S1", Source: "marks", FirstRow: 2, Row: 4}})
			rec, ok := ds.Lookup("S1")
			So(ok, ShouldBeTrue)
			So(rec.TotalMark, ShouldEqual, 60)
			So(rep.Conflicts, ShouldHaveLength, 1)
		})
	})

	Convey("Given records with missing facets", t, func() {
		r := reconcile.New()
		batch := model.Batch{
			attendance("attendance", 2, "S2", 70),
			profile("profile", 2, "S3", "ECE"),
			marks("marks", 2, "S1", "Math", 30.0),
		}

		ds, rep, err := r.Reconcile(ctx, batch)

		Convey("Then records are retained, flagged and sorted by identifier", func() {
			So(err, ShouldBeNil)
			So(ds.Len(), ShouldEqual, 3)
			So([]string{ds.Records[0].ID, ds.Records[1].ID, ds.Records[2].ID}, ShouldResemble, []string{"S1", "S2", "S3"})

			s2, _ := ds.Lookup("S2")
			So(s2.MissingMarks, ShouldBeTrue)
			So(s2.Passed, ShouldBeFalse)
			So(s2.TotalMark, ShouldEqual, 0)

			s1, _ := ds.Lookup("S1")
			So(s1.MissingAttendance, ShouldBeTrue)

			So(rep.MissingMarks, ShouldEqual, 2)
			So(rep.MissingAttendance, ShouldEqual, 2)
			So(rep.MissingProfile, ShouldEqual, 2)
		})

		Convey("And the dataset answers department queries", func() {
			So(ds.Departments(), ShouldResemble, []string{"ECE"})
			So(ds.Filter("ECE"), ShouldHaveLength, 1)
			So(ds.Filter(""), ShouldHaveLength, 3)
			_, ok := ds.Lookup("S9")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given an empty batch", t, func() {
		_, _, err := reconcile.New().Reconcile(ctx, model.Batch{})

		Convey("Then no usable records is reported", func() {
			So(errors.Is(err, model.ErrNoUsableRecords), ShouldBeTrue)
		})
	})

	Convey("Given the same batch twice", t, func() {
		batch := model.Batch{
			marks("marks", 2, "S2", "Math", 50.0),
			marks("marks", 3, "S1", "Math", 70.0),
			attendance("attendance", 2, "S1", 90),
		}
		a, _, errA := reconcile.New().Reconcile(ctx, batch)
		b, _, errB := reconcile.New().Reconcile(ctx, batch)

		Convey("Then the content hash is stable", func() {
			So(errA, ShouldBeNil)
			So(errB, ShouldBeNil)
			So(a.Hash, ShouldNotBeEmpty)
			So(a.Hash, ShouldEqual, b.Hash)
		})
	})
}

func TestReconcileHashFailure(t *testing.T) {
	Convey("Given a batch whose marks cannot be encoded", t, func() {
		r := reconcile.New()
		batch := model.Batch{marks("marks", 2, "S1", "Math", math.NaN())}

		_, _, err := r.Reconcile(context.Background(), batch)

		Convey("Then the failure is not reported as missing records", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "hash dataset")
			So(errors.Is(err, model.ErrNoUsableRecords), ShouldBeFalse)
		})
	})
}
