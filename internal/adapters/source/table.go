package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// tableRow is one data row and its 1-based row number in the source.
type tableRow struct {
	num   int
	cells []string
	err   error // set when the row could not be split into cells
}

// readTable returns the header and data rows of a source table.
func readTable(src Source) ([]string, []tableRow, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	var (
		header []string
		rows   []tableRow
	)
	switch src.format() {
	case FormatCSV:
		header, rows, err = readCSV(f)
	case FormatXLSX:
		header, rows, err = readXLSX(f)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, src.Format)
	}
	if err != nil {
		return nil, nil, err
	}
	return header, rows, nil
}

// readCSV keeps going past malformed lines; each becomes a row carrying its
// parse error. Only I/O failures and an unreadable header stop the read.
func readCSV(r io.Reader) ([]string, []tableRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // short rows are rejected per row, not per file
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	switch {
	case errors.Is(err, io.EOF):
		return nil, nil, ErrEmptyTable
	case err != nil:
		return nil, nil, fmt.Errorf("%w: header: %v", ErrUnreadable, err)
	}

	var rows []tableRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return header, rows, nil
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			rows = append(rows, tableRow{num: pe.StartLine, err: pe.Err})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, tableRow{num: line, cells: rec})
	}
}

// readXLSX reads the first sheet of a workbook.
func readXLSX(r io.Reader) ([]string, []tableRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open workbook: %v", ErrUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadable)
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read sheet %s: %v", ErrUnreadable, sheet, err)
	}
	if len(cells) == 0 {
		return nil, nil, ErrEmptyTable
	}

	// GetRows drops trailing empty cells; pad so blanks read as empty values.
	width := len(cells[0])
	rows := make([]tableRow, 0, len(cells)-1)
	for i, row := range cells[1:] {
		for len(row) < width {
			row = append(row, "")
		}
		rows = append(rows, tableRow{num: i + 2, cells: row})
	}
	return cells[0], rows, nil
}
