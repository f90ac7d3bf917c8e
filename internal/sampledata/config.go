// Package sampledata generates deterministic student source tables for demos and tests.
package sampledata

// Config holds configuration for generated tables.
type Config struct {
	Dir         string   // output directory
	Students    int      // number of students
	Seed        int64    // random seed; equal seeds give identical files
	Departments []string // departments assigned round-robin after shuffling
	Subjects    []string // one mark column per subject

	// MissingAttendance is the share of students left out of the attendance table.
	MissingAttendance float64
	// DirtyRows appends this many invalid rows to the marks and attendance tables.
	DirtyRows int
}

// DefaultConfig returns a small cohort matching the default service config.
func DefaultConfig() Config {
	return Config{
		Dir:               "data",
		Students:          200,
		Seed:              42,
		Departments:       []string{"CSE", "ECE", "MECH", "CIVIL"},
		Subjects:          []string{"math", "science", "english"},
		MissingAttendance: 0.05,
		DirtyRows:         3,
	}
}

// File names written by Write.
const (
	StudentsFile   = "students.csv"
	MarksFile      = "marks.csv"
	AttendanceFile = "attendance.csv"
)
