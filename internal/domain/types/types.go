// Package types contains common types used across the application
package types

// Entry represents a ranking entry
type Entry struct {
	Rank        int      `json:"rank"`
	ID          string   `json:"id"`
	Department  string   `json:"department,omitempty"`
	TotalMark   float64  `json:"total_mark"`
	AverageMark float64  `json:"average_mark"`
	Attendance  *float64 `json:"attendance_pct,omitempty"` // nil when missing
}

// Statistic is a value that may be undefined for the data it was computed on.
// Undefined statistics carry Value 0 and a Reason; they are never NaN.
type Statistic struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
	Reason  string  `json:"reason,omitempty"`
}

// Defined returns a defined statistic.
func Defined(v float64) Statistic {
	return Statistic{Value: v, Defined: true}
}

// Undefined returns the sentinel for a statistic that cannot be computed.
func Undefined(reason string) Statistic {
	return Statistic{Reason: reason}
}
