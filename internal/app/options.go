package service

import (
	"github.com/okian/scholar/internal/adapters/artifact"
	"github.com/okian/scholar/internal/domain/cohort"
	"github.com/okian/scholar/internal/domain/risk"
	"github.com/okian/scholar/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLoader replaces the source loader.
func WithLoader(l Loader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithReconciler replaces the reconciler.
func WithReconciler(r Reconciler) Option {
	return func(s *Service) {
		if r != nil {
			s.reconciler = r
		}
	}
}

// WithArtifactStore sets where trained models are saved and restored from.
func WithArtifactStore(a artifact.Store) Option {
	return func(s *Service) {
		if a != nil {
			s.artifacts = a
		}
	}
}

// WithRiskConfig sets the default training configuration.
func WithRiskConfig(cfg risk.Config) Option {
	return func(s *Service) {
		s.riskCfg = cfg
	}
}

// WithTopN bounds the rankings embedded in metrics.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithLowAttendanceThreshold sets the attendance percentage below which students are flagged.
func WithLowAttendanceThreshold(pct float64) Option {
	return func(s *Service) {
		if pct >= 0 {
			s.lowAttendance = pct
		}
	}
}

// WithMaxQueryRows caps rows returned by Query.
func WithMaxQueryRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxQueryRows = n
		}
	}
}

// WithTrainOnStart trains a model during Start when none was restored.
func WithTrainOnStart(on bool) Option {
	return func(s *Service) {
		s.trainOnStart = on
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func defaults() *Service {
	return &Service{
		riskCfg:       risk.DefaultConfig(),
		topN:          cohort.DefaultTopN,
		lowAttendance: cohort.DefaultLowAttendanceThreshold,
		maxQueryRows:  1000,
		artifacts:     artifact.NopStore{},
	}
}
