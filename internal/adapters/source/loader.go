package source

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/pkg/logger"
	"github.com/okian/scholar/pkg/metrics"
)

const maxRejectionsPerSource = 100

// Loader reads configured sources into a Batch.
type Loader struct {
	maxMark float64
	log     logger.Logger
}

// NewLoader creates a Loader. The mark range defaults to [0, 100].
func NewLoader(opts ...Option) *Loader {
	l := &Loader{maxMark: 100}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Component("source")
	}
	return l
}

// Load reads sources in order. Row and source failures are recorded in the
// report; the returned error is reserved for cancellation and misuse.
func (l *Loader) Load(ctx context.Context, sources []Source) (model.Batch, Report, error) {
	if len(sources) == 0 {
		return nil, nil, ErrNoSources
	}

	var batch model.Batch
	report := make(Report, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		recs, sr := l.loadSource(ctx, src)
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		batch = append(batch, recs...)
		report[src.Name] = sr

		if sr.Error != "" {
			metrics.RecordSourceFailure(src.Name)
			l.log.Warn(ctx, "source failed",
				logger.String("table", src.Name),
				logger.String("path", src.Path),
				logger.String("error", sr.Error))
			continue
		}
		metrics.RecordRowsLoaded(src.Name, string(src.Kind), sr.Accepted, sr.Rejected)
		l.log.Info(ctx, "source loaded",
			logger.String("table", src.Name),
			logger.String("kind", string(src.Kind)),
			logger.Int("accepted", sr.Accepted),
			logger.Int("rejected", sr.Rejected))
	}
	return batch, report, nil
}

func (l *Loader) loadSource(ctx context.Context, src Source) ([]model.RawRecord, SourceReport) {
	sr := SourceReport{Kind: src.Kind, Path: src.Path}
	if !src.Kind.Valid() {
		sr.Error = fmt.Errorf("%w: %q", ErrUnknownKind, src.Kind).Error()
		return nil, sr
	}

	header, rows, err := readTable(src)
	if err != nil {
		sr.Error = err.Error()
		return nil, sr
	}
	idx, err := columnIndex(header, src.columns())
	if err != nil {
		sr.Error = err.Error()
		return nil, sr
	}

	out := make([]model.RawRecord, 0, len(rows))
	for i, row := range rows {
		if i%1000 == 0 && ctx.Err() != nil {
			return nil, sr
		}
		if row.err == nil && blank(row.cells) {
			continue
		}
		var rec model.RawRecord
		if row.err != nil {
			err = rowError(src, row.num, "malformed line", row.err)
		} else {
			rec, err = l.parseRow(src, idx, row.cells, row.num)
		}
		if err != nil {
			sr.Rejected++
			if len(sr.Rejections) < maxRejectionsPerSource {
				sr.Rejections = append(sr.Rejections, Rejection{Row: row.num, Reason: err.Error()})
			}
			l.log.Debug(ctx, "row rejected",
				logger.String("table", src.Name),
				logger.Int("row", row.num),
				logger.Error(err))
			continue
		}
		sr.Accepted++
		out = append(out, rec)
	}
	return out, sr
}

// columnIndex maps each declared column to its header position.
// Header names compare case-insensitively after trimming.
func columnIndex(header []string, declared []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := make(map[string]int, len(declared))
	var missing []string
	for _, c := range declared {
		i, ok := pos[strings.ToLower(strings.TrimSpace(c))]
		if !ok {
			missing = append(missing, c)
			continue
		}
		idx[c] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (l *Loader) parseRow(src Source, idx map[string]int, row []string, rowNum int) (model.RawRecord, error) {
	reject := func(msg string, err error) error {
		return rowError(src, rowNum, msg, err)
	}

	need := 0
	for _, i := range idx {
		if i+1 > need {
			need = i + 1
		}
	}
	if len(row) < need {
		return model.RawRecord{}, reject(fmt.Sprintf("short row: %d fields, need %d", len(row), need), nil)
	}

	cell := func(col string) string { return strings.TrimSpace(row[idx[col]]) }

	rec := model.RawRecord{Source: src.Name, Kind: src.Kind, Row: rowNum, ID: cell(src.IDColumn)}
	if rec.ID == "" {
		return model.RawRecord{}, reject("empty identifier", nil)
	}

	switch src.Kind {
	case model.KindMarks:
		rec.Marks = make([]model.SubjectMark, 0, len(src.Subjects))
		for _, subj := range src.Subjects {
			v, err := parseNumber(cell(subj))
			if err != nil {
				return model.RawRecord{}, reject(fmt.Sprintf("mark for %s", subj), err)
			}
			if v < 0 || v > l.maxMark {
				return model.RawRecord{}, reject(fmt.Sprintf("mark for %s out of range [0, %g]: %g", subj, l.maxMark, v), nil)
			}
			rec.Marks = append(rec.Marks, model.SubjectMark{Subject: subj, Mark: v})
		}
	case model.KindAttendance:
		raw := strings.TrimSpace(strings.TrimSuffix(cell(src.AttendanceColumn), "%"))
		v, err := parseNumber(raw)
		if err != nil {
			return model.RawRecord{}, reject("attendance", err)
		}
		if v < 0 || v > 100 {
			return model.RawRecord{}, reject(fmt.Sprintf("attendance out of range [0, 100]: %g", v), nil)
		}
		rec.Attendance = v
	case model.KindProfile:
		rec.Department = cell(src.DepartmentColumn)
		if rec.Department == "" {
			return model.RawRecord{}, reject("empty department", nil)
		}
		if len(src.Attributes) > 0 {
			rec.Attributes = make(map[string]string, len(src.Attributes))
			for _, a := range src.Attributes {
				if v := cell(a); v != "" {
					rec.Attributes[a] = v
				}
			}
		}
	}
	return rec, nil
}

func rowError(src Source, rowNum int, msg string, err error) error {
	return model.WrapError(model.StageLoad, "parseRow", model.ErrRowParse, src.Name, fmt.Sprintf("row %d: %s", rowNum, msg), err)
}

// parseNumber accepts '.' decimals only and rejects NaN and infinities.
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	if strings.Contains(s, ",") {
		return 0, fmt.Errorf("non-numeric value %q", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-numeric value %q", s)
	}
	return v, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
