package repository

import "time"

type options struct {
	versions func() string
	now      func() time.Time
}

// Option applies a configuration option to the SnapshotStore.
type Option func(*options)

// WithVersioner overrides how snapshot versions are generated.
func WithVersioner(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.versions = fn
		}
	}
}

// WithClock overrides the publish timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
