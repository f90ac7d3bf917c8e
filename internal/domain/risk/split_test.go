package risk

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStratifiedSplit(t *testing.T) {
	Convey("Given imbalanced labels", t, func() {
		labels := make([]int, 50)
		for i := 0; i < 10; i++ {
			labels[i] = 1
		}

		train, val := stratifiedSplit(labels, 0.2, rand.New(rand.NewSource(42)))

		Convey("Then both splits keep the class ratio", func() {
			So(len(train)+len(val), ShouldEqual, 50)
			So(len(val), ShouldEqual, 10)
			pos := 0
			for _, i := range val {
				pos += labels[i]
			}
			So(pos, ShouldEqual, 2)
		})
	})

	Convey("Given a class with a single sample", t, func() {
		labels := []int{0, 0, 0, 0, 1}

		train, _ := stratifiedSplit(labels, 0.5, rand.New(rand.NewSource(1)))

		Convey("Then it stays in the training split", func() {
			So(train, ShouldContain, 4)
		})
	})
}

func TestScaler(t *testing.T) {
	Convey("Given a constant column", t, func() {
		s := fitScaler([][]float64{{1, 5}, {3, 5}})

		Convey("Then its std becomes 1 and values are centred", func() {
			So(s.Mean, ShouldResemble, []float64{2, 5})
			So(s.Std, ShouldResemble, []float64{1, 1})
			So(s.transform([]float64{3, 5}), ShouldResemble, []float64{1, 0})
		})
	})
}

func TestEvaluate(t *testing.T) {
	Convey("Given predictions with no positives predicted", t, func() {
		e := evaluate([]int{1, 0, 0}, []int{0, 0, 0})

		Convey("Then precision and F1 are 0 instead of NaN", func() {
			So(e.Accuracy, ShouldAlmostEqual, 2.0/3.0, 1e-12)
			So(e.Precision, ShouldEqual, 0)
			So(e.Recall, ShouldEqual, 0)
			So(e.F1, ShouldEqual, 0)
			So(e.FN, ShouldEqual, 1)
		})
	})
}
