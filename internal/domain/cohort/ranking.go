package cohort

import (
	"sort"

	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/internal/domain/types"
)

// rank orders records with marks and numbers them 1..n.
func rank(recs []model.StudentRecord) []types.Entry {
	entries := make([]types.Entry, 0, len(recs))
	for _, r := range recs {
		if r.MissingMarks {
			continue
		}
		e := types.Entry{
			ID:          r.ID,
			Department:  r.Department,
			TotalMark:   r.TotalMark,
			AverageMark: r.AverageMark,
		}
		if !r.MissingAttendance {
			a := r.Attendance
			e.Attendance = &a
		}
		entries = append(entries, e)
	}
	sortEntries(entries)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// sortEntries orders by total mark desc, attendance desc with missing
// attendance last, then identifier asc. The order is total.
func sortEntries(entries []types.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalMark != b.TotalMark {
			return a.TotalMark > b.TotalMark
		}
		switch {
		case a.Attendance != nil && b.Attendance == nil:
			return true
		case a.Attendance == nil && b.Attendance != nil:
			return false
		case a.Attendance != nil && *a.Attendance != *b.Attendance:
			return *a.Attendance > *b.Attendance
		}
		return a.ID < b.ID
	})
}
