// Package model contains domain models passed between layers.
package model

// SourceKind identifies which facet of a student a source table describes.
type SourceKind string

const (
	KindMarks      SourceKind = "marks"
	KindAttendance SourceKind = "attendance"
	KindProfile    SourceKind = "profile"
)

// Valid reports whether k is one of the known kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case KindMarks, KindAttendance, KindProfile:
		return true
	}
	return false
}

// SubjectMark is one subject score.
type SubjectMark struct {
	Subject string  `json:"subject"`
	Mark    float64 `json:"mark"`
}

// RawRecord is one accepted row from one source table.
// Only the fields matching Kind are populated.
type RawRecord struct {
	Source string     // source name from configuration
	Kind   SourceKind // marks, attendance or profile
	Row    int        // 1-based row in the table; the header is row 1
	ID     string     // student identifier

	Marks      []SubjectMark     // marks rows, in declared column order
	Attendance float64           // attendance rows, percentage in [0, 100]
	Department string            // profile rows
	Attributes map[string]string // profile rows, optional demographic columns
}

// StudentRecord is the canonical, reconciled view of one student.
type StudentRecord struct {
	ID           string            `json:"id"`
	Department   string            `json:"department,omitempty"`
	Marks        []SubjectMark     `json:"marks,omitempty"`
	Attendance   float64           `json:"attendance_pct"`
	SubjectPass  map[string]bool   `json:"subject_pass,omitempty"`
	Passed       bool              `json:"passed"`
	TotalMark    float64           `json:"total_mark"`
	AverageMark  float64           `json:"average_mark"`
	Demographics map[string]string `json:"demographics,omitempty"`

	MissingMarks      bool `json:"missing_marks"`
	MissingAttendance bool `json:"missing_attendance"`
	MissingProfile    bool `json:"missing_profile"`
}

// Complete reports whether both marks and attendance are present.
func (r StudentRecord) Complete() bool {
	return !r.MissingMarks && !r.MissingAttendance
}

// Mark returns the mark for subject, if recorded.
func (r StudentRecord) Mark(subject string) (float64, bool) {
	for _, m := range r.Marks {
		if m.Subject == subject {
			return m.Mark, true
		}
	}
	return 0, false
}

// SubjectsFailed counts subjects whose pass flag is false.
func (r StudentRecord) SubjectsFailed() int {
	n := 0
	for _, ok := range r.SubjectPass {
		if !ok {
			n++
		}
	}
	return n
}

// Batch is the ordered output of one load. Later entries were loaded later.
type Batch []RawRecord

// Prediction is a risk classification for one student.
type Prediction struct {
	ID          string  `json:"id"`
	Probability float64 `json:"risk_probability"`
	AtRisk      bool    `json:"at_risk"`
	ModelID     string  `json:"model_id"`
}
