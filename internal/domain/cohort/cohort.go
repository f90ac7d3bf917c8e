// Package cohort computes aggregate academic statistics over a canonical dataset.
//
// Compute is pure: equal inputs give equal Metrics, and nothing it returns
// aliases the dataset's records.
package cohort

import (
	"sort"

	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/internal/domain/reconcile"
	"github.com/okian/scholar/internal/domain/types"
)

// Filter selects the records metrics are computed over.
type Filter struct {
	Department string `json:"department,omitempty"`
}

// SubjectStats aggregates one subject over the records that have it.
type SubjectStats struct {
	Subject  string          `json:"subject"`
	Count    int             `json:"count"`
	PassRate types.Statistic `json:"pass_rate"`
	Mean     types.Statistic `json:"mean"`
	Median   types.Statistic `json:"median"`
}

// AttendanceEntry is one student below the attendance threshold.
type AttendanceEntry struct {
	ID         string  `json:"id"`
	Department string  `json:"department,omitempty"`
	Attendance float64 `json:"attendance_pct"`
}

// Metrics is the derived view of a filtered record set.
type Metrics struct {
	Filter          Filter                   `json:"filter"`
	Records         int                      `json:"records"`
	WithMarks       int                      `json:"with_marks"`
	Complete        int                      `json:"complete"`
	PassRate        types.Statistic          `json:"pass_rate"`
	Subjects        []SubjectStats           `json:"subjects"`
	MeanAverage     types.Statistic          `json:"mean_average_mark"`
	MedianAverage   types.Statistic          `json:"median_average_mark"`
	Ranking         []types.Entry            `json:"ranking"`
	Top             []types.Entry            `json:"top"`
	TopByDepartment map[string][]types.Entry `json:"top_by_department"`
	Correlation     types.Statistic          `json:"attendance_mark_correlation"`
	LowAttendance   []AttendanceEntry        `json:"low_attendance"`
	Threshold       float64                  `json:"low_attendance_threshold"`
	DatasetVersion  string                   `json:"dataset_version"`
}

// Compute derives Metrics for the records of ds selected by f.
func Compute(ds *reconcile.Dataset, f Filter, opts ...Option) Metrics {
	s := settings{topN: DefaultTopN, lowAttendance: DefaultLowAttendanceThreshold}
	for _, opt := range opts {
		opt(&s)
	}

	recs := ds.Filter(f.Department)
	m := Metrics{
		Filter:          f,
		Records:         len(recs),
		Threshold:       s.lowAttendance,
		TopByDepartment: map[string][]types.Entry{},
	}
	if ds != nil {
		m.DatasetVersion = ds.Version
	}

	var (
		passed   int
		averages []float64
		att, avg []float64 // complete records only, paired
	)
	for _, r := range recs {
		if !r.MissingMarks {
			m.WithMarks++
			averages = append(averages, r.AverageMark)
			if r.Passed {
				passed++
			}
		}
		if r.Complete() {
			m.Complete++
			att = append(att, r.Attendance)
			avg = append(avg, r.AverageMark)
		}
		if !r.MissingAttendance && r.Attendance < s.lowAttendance {
			m.LowAttendance = append(m.LowAttendance, AttendanceEntry{ID: r.ID, Department: r.Department, Attendance: r.Attendance})
		}
	}

	m.PassRate = rate(passed, m.WithMarks)
	m.MeanAverage = mean(averages)
	m.MedianAverage = median(averages)
	m.Correlation = pearson(att, avg)
	m.Subjects = subjectStats(recs, ds)

	sort.Slice(m.LowAttendance, func(i, j int) bool {
		a, b := m.LowAttendance[i], m.LowAttendance[j]
		if a.Attendance != b.Attendance {
			return a.Attendance < b.Attendance
		}
		return a.ID < b.ID
	})

	m.Ranking = rank(recs)
	m.Top = head(m.Ranking, s.topN)
	for _, e := range m.Ranking {
		if e.Department == "" {
			continue
		}
		if len(m.TopByDepartment[e.Department]) < s.topN {
			m.TopByDepartment[e.Department] = append(m.TopByDepartment[e.Department], e)
		}
	}
	return m
}

func subjectStats(recs []model.StudentRecord, ds *reconcile.Dataset) []SubjectStats {
	if ds == nil {
		return nil
	}
	out := make([]SubjectStats, 0, len(ds.Subjects))
	for _, subj := range ds.Subjects {
		var vals []float64
		passed := 0
		for _, r := range recs {
			v, ok := r.Mark(subj)
			if !ok {
				continue
			}
			vals = append(vals, v)
			if r.SubjectPass[subj] {
				passed++
			}
		}
		out = append(out, SubjectStats{
			Subject:  subj,
			Count:    len(vals),
			PassRate: rate(passed, len(vals)),
			Mean:     mean(vals),
			Median:   median(vals),
		})
	}
	return out
}

func head(entries []types.Entry, n int) []types.Entry {
	if len(entries) > n {
		entries = entries[:n]
	}
	return append([]types.Entry(nil), entries...)
}
