package source

import "errors"

// Sentinel errors for source-level failures.
var (
	ErrNoSources     = errors.New("no sources configured")
	ErrUnknownFormat = errors.New("unknown source format")
	ErrUnknownKind   = errors.New("unknown source kind")
	ErrMissingColumn = errors.New("declared column missing from header")
	ErrEmptyTable    = errors.New("table has no header row")
	ErrUnreadable    = errors.New("source unreadable")
)
