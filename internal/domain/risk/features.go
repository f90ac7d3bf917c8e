// Package risk trains and serves a binary classifier for the probability that
// a student fails overall.
package risk

import (
	"github.com/okian/scholar/internal/domain/model"
)

// SchemaVersion identifies the feature layout produced by Extract.
const SchemaVersion = "v1"

// Feature names in vector order.
const (
	FeatureAverageMark    = "average_mark"
	FeatureAttendance     = "attendance_pct"
	FeatureSubjectsFailed = "subjects_failed"
)

// Schema returns the ordered feature names of the current schema.
func Schema() []string {
	return []string{FeatureAverageMark, FeatureAttendance, FeatureSubjectsFailed}
}

// Vector is a feature vector tagged with the names of its components.
type Vector struct {
	Features []string  `json:"features"`
	Values   []float64 `json:"values"`
}

// NewVector builds a vector in the current schema from raw values.
func NewVector(averageMark, attendancePct float64, subjectsFailed int) Vector {
	return Vector{
		Features: Schema(),
		Values:   []float64{averageMark, attendancePct, float64(subjectsFailed)},
	}
}

// Extract builds the feature vector of a record. Records missing marks or
// attendance cannot be scored.
func Extract(rec model.StudentRecord) (Vector, error) {
	if rec.MissingMarks || rec.MissingAttendance {
		return Vector{}, model.WrapError(model.StageRisk, "Extract", model.ErrCannotPredict, rec.ID,
			"record lacks marks or attendance", model.ErrIncompleteRecord)
	}
	return NewVector(rec.AverageMark, rec.Attendance, rec.SubjectsFailed()), nil
}

// label is 1 for a student who failed overall.
func label(rec model.StudentRecord) int {
	if rec.Passed {
		return 0
	}
	return 1
}

func sameSchema(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
