package risk_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/internal/domain/reconcile"
	"github.com/okian/scholar/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

// cohort30 returns 30 students; every third one fails with low marks and attendance.
func cohort30(failing bool) model.Batch {
	var batch model.Batch
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("S%02d", i)
		math, sci, att := 60.0+float64(i%30), 70.0, 80.0+float64(i%15)
		if failing && i%3 == 0 {
			math, sci, att = 20.0+float64(i%10), 30.0, 50.0+float64(i%10)
		}
		batch = append(batch,
			model.RawRecord{Source: "marks", Kind: model.KindMarks, ID: id, Marks: []model.SubjectMark{
				{Subject: "math", Mark: math}, {Subject: "science", Mark: sci},
			}},
			model.RawRecord{Source: "attendance", Kind: model.KindAttendance, ID: id, Attendance: att},
		)
	}
	return batch
}

func dataset(batch model.Batch) *reconcile.Dataset {
	ds, _, err := reconcile.New().Reconcile(context.Background(), batch)
	So(err, ShouldBeNil)
	return ds
}

func TestTrain(t *testing.T) {
	ctx := context.Background()

	Convey("Given a dataset with passing and failing students", t, func() {
		ds := dataset(cohort30(true))

		m, err := risk.Train(ctx, ds, risk.DefaultConfig())

		Convey("Then a model is trained on a stratified split", func() {
			So(err, ShouldBeNil)
			So(m.ID, ShouldNotBeEmpty)
			So(m.Schema, ShouldResemble, risk.Schema())
			So(m.Weights, ShouldHaveLength, 3)
			So(m.TrainSize, ShouldEqual, 24)
			So(m.ValidationSize, ShouldEqual, 6)
			So(m.DatasetHash, ShouldEqual, ds.Hash)
			So(m.Validate(), ShouldBeNil)
		})

		Convey("And it is evaluated on the held-out split", func() {
			So(m.Evaluation.Holdout, ShouldBeTrue)
			So(m.Evaluation.Support, ShouldEqual, 6)
			So(m.Evaluation.Accuracy, ShouldBeGreaterThanOrEqualTo, 0.8)
			So(m.Evaluation.TP+m.Evaluation.FN, ShouldEqual, 2)
		})

		Convey("And training with the same seed is reproducible", func() {
			again, err := risk.Train(ctx, ds, risk.DefaultConfig())
			So(err, ShouldBeNil)
			So(again.Weights, ShouldResemble, m.Weights)
			So(again.Bias, ShouldEqual, m.Bias)
			So(again.ID, ShouldNotEqual, m.ID)
		})

		Convey("And a zero validation ratio evaluates on the training split", func() {
			cfg := risk.DefaultConfig()
			cfg.ValidationRatio = 0
			m, err := risk.Train(ctx, ds, cfg)
			So(err, ShouldBeNil)
			So(m.Evaluation.Holdout, ShouldBeFalse)
			So(m.Evaluation.Support, ShouldEqual, 30)
		})
	})

	Convey("Given a dataset where everyone passes", t, func() {
		ds := dataset(cohort30(false))

		_, err := risk.Train(ctx, ds, risk.DefaultConfig())

		Convey("Then training fails with a single-class error", func() {
			So(errors.Is(err, risk.ErrSingleClass), ShouldBeTrue)
			So(errors.Is(err, model.ErrTraining), ShouldBeTrue)
		})
	})

	Convey("Given fewer complete records than the minimum", t, func() {
		ds := dataset(cohort30(true)[:6])

		_, err := risk.Train(ctx, ds, risk.DefaultConfig())

		Convey("Then training fails with insufficient samples", func() {
			So(errors.Is(err, risk.ErrInsufficientSamples), ShouldBeTrue)
		})
	})

	Convey("Given a cancelled context", t, func() {
		c, cancel := context.WithCancel(ctx)
		cancel()

		_, err := risk.Train(c, dataset(cohort30(true)), risk.DefaultConfig())

		Convey("Then training stops", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestPredict(t *testing.T) {
	Convey("Given a trained model", t, func() {
		ds := dataset(cohort30(true))
		m, err := risk.Train(context.Background(), ds, risk.DefaultConfig())
		So(err, ShouldBeNil)

		Convey("When predicting a failing student", func() {
			rec, _ := ds.Lookup("S00")
			p, err := m.Predict(rec)

			Convey("Then the student is flagged at risk", func() {
				So(err, ShouldBeNil)
				So(p.ID, ShouldEqual, "S00")
				So(p.ModelID, ShouldEqual, m.ID)
				So(p.AtRisk, ShouldBeTrue)
				So(p.Probability, ShouldBeBetween, 0.5, 1.0)
			})
		})

		Convey("When predicting a strong student", func() {
			rec, _ := ds.Lookup("S29")
			p, err := m.Predict(rec)

			Convey("Then the student is not at risk", func() {
				So(err, ShouldBeNil)
				So(p.AtRisk, ShouldBeFalse)
			})
		})

		Convey("When predicting an incomplete record", func() {
			_, err := m.Predict(model.StudentRecord{ID: "S99", MissingAttendance: true})

			Convey("Then prediction is refused", func() {
				So(errors.Is(err, model.ErrCannotPredict), ShouldBeTrue)
				So(errors.Is(err, model.ErrIncompleteRecord), ShouldBeTrue)
			})
		})

		Convey("When the model was trained on another schema", func() {
			old := *m
			old.Schema = []string{risk.FeatureAverageMark, risk.FeatureAttendance}
			rec, _ := ds.Lookup("S01")

			_, err := old.Predict(rec)

			Convey("Then a schema mismatch names the expected and actual features", func() {
				So(errors.Is(err, model.ErrSchemaMismatch), ShouldBeTrue)
				var sm *model.SchemaMismatchError
				So(errors.As(err, &sm), ShouldBeTrue)
				So(sm.ID, ShouldEqual, "S01")
				So(sm.Expected, ShouldResemble, old.Schema)
				So(sm.Actual, ShouldResemble, risk.Schema())
			})
		})

		Convey("When scoring an ad-hoc vector", func() {
			low, lowRisk, err := m.PredictVector(risk.NewVector(25, 55, 2))
			So(err, ShouldBeNil)
			high, highRisk, err := m.PredictVector(risk.NewVector(85, 95, 0))
			So(err, ShouldBeNil)

			Convey("Then weaker inputs score a higher risk", func() {
				So(low, ShouldBeGreaterThan, high)
				So(lowRisk, ShouldBeTrue)
				So(highRisk, ShouldBeFalse)
			})
		})
	})
}
