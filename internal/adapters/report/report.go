// Package report renders the at-risk student workbook.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	SheetAtRisk  = "At Risk"
	SheetSummary = "Summary"
)

var header = []interface{}{
	"Student ID", "Department", "Average Mark", "Attendance %",
	"Subjects Failed", "Risk Probability", "Predicted At Risk", "Reasons",
}

// Row is one flagged student. Nil pointers render as empty cells.
type Row struct {
	ID             string
	Department     string
	AverageMark    *float64
	Attendance     *float64
	SubjectsFailed int
	Probability    *float64
	AtRisk         bool
	Reasons        []string
}

// Summary describes the state the report was built from.
type Summary struct {
	GeneratedAt            time.Time
	DatasetVersion         string
	ModelID                string
	Records                int
	PassRate               string
	LowAttendanceThreshold float64
}

// Write renders rows and summary as an xlsx workbook to w.
func Write(w io.Writer, rows []Row, s Summary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetAtRisk); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetAtRisk, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("style: %w", err)
	}
	if err := f.SetRowStyle(SheetAtRisk, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			r.ID, r.Department, optional(r.AverageMark), optional(r.Attendance),
			r.SubjectsFailed, optional(r.Probability), yesNo(r.AtRisk), strings.Join(r.Reasons, "; "),
		}
		if err := f.SetSheetRow(SheetAtRisk, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(SheetAtRisk, "A", "H", 18); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	if len(rows) > 0 {
		if err := f.AutoFilter(SheetAtRisk, fmt.Sprintf("A1:H%d", len(rows)+1), nil); err != nil {
			return fmt.Errorf("autofilter: %w", err)
		}
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Generated At", s.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Dataset Version", s.DatasetVersion},
		{"Model ID", s.ModelID},
		{"Records", s.Records},
		{"Pass Rate", s.PassRate},
		{"Low Attendance Threshold", s.LowAttendanceThreshold},
		{"Flagged Students", len(rows)},
	}
	for i, kv := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := kv
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
