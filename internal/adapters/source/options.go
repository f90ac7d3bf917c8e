package source

import "github.com/okian/scholar/pkg/logger"

// Option configures a Loader.
type Option func(*Loader)

// WithMaxMark sets the upper bound of the valid mark range.
func WithMaxMark(v float64) Option {
	return func(l *Loader) {
		if v > 0 {
			l.maxMark = v
		}
	}
}

// WithLogger overrides the loader's logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.log = lg
		}
	}
}
