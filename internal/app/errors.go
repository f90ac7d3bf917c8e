package service

import (
	"fmt"

	"github.com/okian/scholar/internal/domain/model"
)

// Sentinel kinds for service errors. Both match model.ErrUnavailable.
var (
	ErrNotReady = fmt.Errorf("no dataset published yet: %w", model.ErrUnavailable)
	ErrNoModel  = fmt.Errorf("no risk model trained: %w", model.ErrUnavailable)
)
