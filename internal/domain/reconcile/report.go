package reconcile

// Conflict records one discarded field value. The most recently loaded value is kept.
type Conflict struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	Field           string `json:"field"`
	Kept            string `json:"kept"`
	Discarded       string `json:"discarded"`
	KeptSource      string `json:"kept_source"`
	DiscardedSource string `json:"discarded_source"`
}

// Duplicate records an identifier that appeared more than once in one source.
type Duplicate struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	FirstRow int    `json:"first_row"`
	Row      int    `json:"row"`
}

// Report summarizes a reconciliation.
type Report struct {
	Records           int         `json:"records"`
	MissingMarks      int         `json:"missing_marks"`
	MissingAttendance int         `json:"missing_attendance"`
	MissingProfile    int         `json:"missing_profile"`
	Conflicts         []Conflict  `json:"conflicts,omitempty"`
	DuplicateIDs      []Duplicate `json:"duplicate_ids,omitempty"`
}
