// Package source reads raw student tables (csv or xlsx) into validated RawRecords.
package source

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/scholar/internal/domain/model"
)

// Format is the on-disk table format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Source declares one table: its kind, where it lives and which columns it carries.
type Source struct {
	Name     string
	Kind     model.SourceKind
	Path     string
	Format   Format // inferred from the path extension when empty
	IDColumn string

	Subjects         []string // marks: one column per subject
	AttendanceColumn string   // attendance: percentage column
	DepartmentColumn string   // profile: department column
	Attributes       []string // profile: optional demographic columns
}

func (s Source) format() Format {
	if s.Format != "" {
		return s.Format
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// columns lists every declared column, identifier first.
func (s Source) columns() []string {
	cols := []string{s.IDColumn}
	switch s.Kind {
	case model.KindMarks:
		cols = append(cols, s.Subjects...)
	case model.KindAttendance:
		cols = append(cols, s.AttendanceColumn)
	case model.KindProfile:
		cols = append(cols, s.DepartmentColumn)
		cols = append(cols, s.Attributes...)
	}
	return cols
}

// Rejection is one row that failed validation.
type Rejection struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// SourceReport summarizes the load of one source.
type SourceReport struct {
	Kind       model.SourceKind `json:"kind"`
	Path       string           `json:"path"`
	Accepted   int              `json:"accepted"`
	Rejected   int              `json:"rejected"`
	Rejections []Rejection      `json:"rejections,omitempty"`
	// Error is set when the whole source failed (unreadable file, missing column).
	Error string `json:"error,omitempty"`
}

// Report maps source names to their load summaries.
type Report map[string]SourceReport

// Accepted returns the number of accepted rows across all sources.
func (r Report) Accepted() int {
	n := 0
	for _, s := range r {
		n += s.Accepted
	}
	return n
}

// Failed lists the names of sources that failed as a whole.
func (r Report) Failed() []string {
	var out []string
	for name, s := range r {
		if s.Error != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
