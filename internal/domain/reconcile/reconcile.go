package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/okian/scholar/internal/domain/dedupe"
	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/pkg/logger"
	"github.com/okian/scholar/pkg/metrics"
)

// DefaultPassThreshold is the minimum passing mark unless configured otherwise.
const DefaultPassThreshold = 40

// Reconciler merges a Batch into a Dataset.
type Reconciler struct {
	passThreshold float64
	log           logger.Logger
}

// New creates a Reconciler with the given options.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{passThreshold: DefaultPassThreshold}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Component("reconcile")
	}
	return r
}

// PassThreshold returns the configured passing mark.
func (r *Reconciler) PassThreshold() float64 { return r.passThreshold }

type sourced[T comparable] struct {
	value  T
	source string
}

// pending accumulates the fields of one identifier while merging.
type pending struct {
	marks      map[string]sourced[float64]
	attendance *sourced[float64]
	department *sourced[string]
	attrs      map[string]sourced[string]
}

// merger holds the state of one Reconcile call.
type merger struct {
	ctx      context.Context
	log      logger.Logger
	byID     map[string]*pending
	subjects []string
	known    map[string]bool
	report   Report
}

// Reconcile groups rows by identifier, unions the per-kind fields and derives
// pass flags and totals. Later rows win conflicts.
func (r *Reconciler) Reconcile(ctx context.Context, batch model.Batch) (*Dataset, Report, error) {
	const op = "Reconcile"

	m := &merger{
		ctx:   ctx,
		log:   r.log,
		byID:  make(map[string]*pending),
		known: make(map[string]bool),
	}
	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(len(batch)))

	for i, raw := range batch {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, Report{}, err
			}
		}
		if raw.ID == "" {
			continue
		}
		if first, dup := seen.SeenAndRecord(raw.Source, raw.ID, raw.Row); dup {
			d := Duplicate{ID: raw.ID, Source: raw.Source, FirstRow: first, Row: raw.Row}
			m.report.DuplicateIDs = append(m.report.DuplicateIDs, d)
			err := model.NewError(model.StageReconcile, op, model.ErrIdentityConflict, raw.ID,
				fmt.Sprintf("duplicate in source %s rows %d and %d", raw.Source, first, raw.Row))
			r.log.Warn(ctx, "duplicate identifier", logger.Error(err))
		}
		m.apply(raw)
	}

	if len(m.byID) == 0 {
		return nil, Report{}, model.NewError(model.StageReconcile, op, model.ErrNoUsableRecords, "",
			"no identifiers survived loading")
	}

	ds := &Dataset{
		Records:  make([]model.StudentRecord, 0, len(m.byID)),
		Subjects: m.subjects,
	}
	for id, p := range m.byID {
		rec := r.derive(id, p, m.subjects)
		if rec.MissingMarks {
			m.report.MissingMarks++
		}
		if rec.MissingAttendance {
			m.report.MissingAttendance++
		}
		if rec.MissingProfile {
			m.report.MissingProfile++
		}
		ds.Records = append(ds.Records, rec)
	}
	sort.Slice(ds.Records, func(i, j int) bool { return ds.Records[i].ID < ds.Records[j].ID })
	m.report.Records = len(ds.Records)

	hash, err := contentHash(ds)
	if err != nil {
		return nil, Report{}, fmt.Errorf("%s.%s: hash dataset: %w", model.StageReconcile, op, err)
	}
	ds.Hash = hash

	metrics.UpdateCanonicalRecords(m.report.Records, m.report.MissingMarks, m.report.MissingAttendance)
	r.log.Info(ctx, "dataset reconciled",
		logger.Int("records", m.report.Records),
		logger.Int("conflicts", len(m.report.Conflicts)),
		logger.Int("duplicates", len(m.report.DuplicateIDs)),
		logger.Int("missing_marks", m.report.MissingMarks),
		logger.Int("missing_attendance", m.report.MissingAttendance))
	return ds, m.report, nil
}

func (m *merger) apply(raw model.RawRecord) {
	p, ok := m.byID[raw.ID]
	if !ok {
		p = &pending{}
		m.byID[raw.ID] = p
	}

	switch raw.Kind {
	case model.KindMarks:
		if p.marks == nil {
			p.marks = make(map[string]sourced[float64], len(raw.Marks))
		}
		for _, sm := range raw.Marks {
			if !m.known[sm.Subject] {
				m.known[sm.Subject] = true
				m.subjects = append(m.subjects, sm.Subject)
			}
			next := sourced[float64]{value: sm.Mark, source: raw.Source}
			if prev, ok := p.marks[sm.Subject]; ok && prev.value != sm.Mark {
				m.conflict(raw, sm.Subject, formatFloat(sm.Mark), formatFloat(prev.value), prev.source)
			}
			p.marks[sm.Subject] = next
		}
	case model.KindAttendance:
		if p.attendance != nil && p.attendance.value != raw.Attendance {
			m.conflict(raw, "attendance_pct", formatFloat(raw.Attendance), formatFloat(p.attendance.value), p.attendance.source)
		}
		p.attendance = &sourced[float64]{value: raw.Attendance, source: raw.Source}
	case model.KindProfile:
		if p.department != nil && p.department.value != raw.Department {
			m.conflict(raw, "department", raw.Department, p.department.value, p.department.source)
		}
		p.department = &sourced[string]{value: raw.Department, source: raw.Source}
		for k, v := range raw.Attributes {
			if p.attrs == nil {
				p.attrs = make(map[string]sourced[string], len(raw.Attributes))
			}
			if prev, ok := p.attrs[k]; ok && prev.value != v {
				m.conflict(raw, k, v, prev.value, prev.source)
			}
			p.attrs[k] = sourced[string]{value: v, source: raw.Source}
		}
	}
}

func (m *merger) conflict(raw model.RawRecord, field, kept, discarded, discardedSource string) {
	c := Conflict{
		ID:              raw.ID,
		Kind:            string(raw.Kind),
		Field:           field,
		Kept:            kept,
		Discarded:       discarded,
		KeptSource:      raw.Source,
		DiscardedSource: discardedSource,
	}
	m.report.Conflicts = append(m.report.Conflicts, c)
	metrics.RecordReconcileConflicts(c.Kind, 1)
	m.log.Warn(m.ctx, "conflicting values, keeping most recent",
		logger.String("id", c.ID),
		logger.String("field", c.Field),
		logger.String("kept", c.Kept),
		logger.String("kept_source", c.KeptSource),
		logger.String("discarded", c.Discarded),
		logger.String("discarded_source", c.DiscardedSource))
}

// derive builds the canonical record. Marks follow the dataset's subject order.
func (r *Reconciler) derive(id string, p *pending, subjects []string) model.StudentRecord {
	rec := model.StudentRecord{ID: id}

	if len(p.marks) == 0 {
		rec.MissingMarks = true
	} else {
		rec.Marks = make([]model.SubjectMark, 0, len(p.marks))
		rec.SubjectPass = make(map[string]bool, len(p.marks))
		rec.Passed = true
		for _, s := range subjects {
			v, ok := p.marks[s]
			if !ok {
				continue
			}
			rec.Marks = append(rec.Marks, model.SubjectMark{Subject: s, Mark: v.value})
			pass := v.value >= r.passThreshold
			rec.SubjectPass[s] = pass
			rec.Passed = rec.Passed && pass
			rec.TotalMark += v.value
		}
		rec.AverageMark = rec.TotalMark / float64(len(rec.Marks))
	}

	if p.attendance == nil {
		rec.MissingAttendance = true
	} else {
		rec.Attendance = p.attendance.value
	}

	if p.department == nil {
		rec.MissingProfile = true
	} else {
		rec.Department = p.department.value
		if len(p.attrs) > 0 {
			rec.Demographics = make(map[string]string, len(p.attrs))
			for k, v := range p.attrs {
				rec.Demographics[k] = v.value
			}
		}
	}
	return rec
}

// contentHash fingerprints the records; encoding/json sorts map keys so the
// hash is stable for equal content.
func contentHash(ds *Dataset) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	if err := enc.Encode(ds.Subjects); err != nil {
		return "", err
	}
	if err := enc.Encode(ds.Records); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
