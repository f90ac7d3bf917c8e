package cohort

// Default metric parameters.
const (
	DefaultTopN                   = 5
	DefaultLowAttendanceThreshold = 75
)

// Option configures Compute.
type Option func(*settings)

type settings struct {
	topN          int
	lowAttendance float64
}

// WithTopN bounds the top lists.
func WithTopN(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithLowAttendanceThreshold flags students strictly below pct.
func WithLowAttendanceThreshold(pct float64) Option {
	return func(s *settings) {
		if pct >= 0 {
			s.lowAttendance = pct
		}
	}
}
