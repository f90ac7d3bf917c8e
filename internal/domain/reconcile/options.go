package reconcile

import "github.com/okian/scholar/pkg/logger"

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithPassThreshold sets the minimum mark that passes a subject.
func WithPassThreshold(v float64) Option {
	return func(r *Reconciler) {
		if v >= 0 {
			r.passThreshold = v
		}
	}
}

// WithLogger overrides the reconciler's logger.
func WithLogger(lg logger.Logger) Option {
	return func(r *Reconciler) {
		if lg != nil {
			r.log = lg
		}
	}
}
