package repository

import "errors"

// Sentinel kinds for snapshot errors.
var (
	ErrEmpty    = errors.New("no snapshot published")
	ErrNilValue = errors.New("nil snapshot value")
)
