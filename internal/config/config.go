// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat and snake_case so env vars map onto them directly.
// - New() builds a Config with defaults; Load layers file and env on top.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"strings"
)

// Source kinds accepted in SourceConfig.Kind.
const (
	KindMarks      = "marks"
	KindAttendance = "attendance"
	KindProfile    = "profile"
)

// Artifact store backends accepted in Config.ArtifactStore.
const (
	ArtifactNone  = "none"
	ArtifactFile  = "file"
	ArtifactRedis = "redis"
)

// SourceConfig declares one tabular input.
type SourceConfig struct {
	Name     string `koanf:"name"`
	Kind     string `koanf:"kind"`
	Path     string `koanf:"path"`
	IDColumn string `koanf:"id_column"`

	// Subjects lists the mark columns of a marks source.
	Subjects []string `koanf:"subjects"`
	// AttendanceColumn names the percentage column of an attendance source.
	AttendanceColumn string `koanf:"attendance_column"`
	// DepartmentColumn and Attributes describe a profile source.
	DepartmentColumn string   `koanf:"department_column"`
	Attributes       []string `koanf:"attributes"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// Sources are loaded in order; later sources of the same kind win conflicts.
	Sources []SourceConfig `koanf:"sources"`

	// PassThreshold is the minimum mark that passes a subject.
	PassThreshold float64 `koanf:"pass_threshold"`
	// MaxMark is the upper bound of the valid mark range.
	MaxMark float64 `koanf:"max_mark"`

	// TopN bounds the rankings embedded in cohort metrics.
	TopN int `koanf:"top_n"`
	// LowAttendanceThreshold flags students below this attendance percentage.
	LowAttendanceThreshold float64 `koanf:"low_attendance_threshold"`

	// Risk model training parameters.
	RiskLearningRate    float64 `koanf:"risk_learning_rate"`
	RiskMaxIterations   int     `koanf:"risk_max_iterations"`
	RiskTolerance       float64 `koanf:"risk_tolerance"`
	RiskL2              float64 `koanf:"risk_l2"`
	RiskValidationRatio float64 `koanf:"risk_validation_ratio"`
	RiskSeed            int64   `koanf:"risk_seed"`
	RiskMinSamples      int     `koanf:"risk_min_samples"`
	RiskThreshold       float64 `koanf:"risk_threshold"`

	// TrainOnStart trains a model after the first refresh when none was restored.
	TrainOnStart bool `koanf:"train_on_start"`

	// ArtifactStore selects where trained models are persisted: none, file, redis.
	ArtifactStore string `koanf:"artifact_store"`
	ArtifactPath  string `koanf:"artifact_path"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisKey      string `koanf:"redis_key"`

	// MaxQueryRows caps rows returned by ad-hoc SQL queries.
	MaxQueryRows int `koanf:"max_query_rows"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Addr:     ":9090",
		Sources: []SourceConfig{
			{
				Name:     "marks",
				Kind:     KindMarks,
				Path:     "data/marks.csv",
				IDColumn: "student_id",
				Subjects: []string{"math", "science", "english"},
			},
			{
				Name:             "attendance",
				Kind:             KindAttendance,
				Path:             "data/attendance.csv",
				IDColumn:         "student_id",
				AttendanceColumn: "attendance_percentage",
			},
			{
				Name:             "profile",
				Kind:             KindProfile,
				Path:             "data/students.csv",
				IDColumn:         "student_id",
				DepartmentColumn: "department",
				Attributes:       []string{"name", "gender"},
			},
		},
		PassThreshold:          40,
		MaxMark:                100,
		TopN:                   5,
		LowAttendanceThreshold: 75,
		RiskLearningRate:       0.1,
		RiskMaxIterations:      2000,
		RiskTolerance:          1e-7,
		RiskL2:                 0.01,
		RiskValidationRatio:    0.2,
		RiskSeed:               42,
		RiskMinSamples:         10,
		RiskThreshold:          0.5,
		TrainOnStart:           true,
		ArtifactStore:          ArtifactFile,
		ArtifactPath:           "outputs/model.json",
		RedisAddr:              "localhost:6379",
		RedisKey:               "scholar:model:current",
		MaxQueryRows:           1000,
	}
}

// Validate checks invariants that the pipeline relies on.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxMark <= 0:
		return fmt.Errorf("%w: max_mark must be positive", ErrInvalidConfig)
	case c.PassThreshold < 0 || c.PassThreshold > c.MaxMark:
		return fmt.Errorf("%w: pass_threshold must lie in [0, max_mark]", ErrInvalidConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top_n must be at least 1", ErrInvalidConfig)
	case c.LowAttendanceThreshold < 0 || c.LowAttendanceThreshold > 100:
		return fmt.Errorf("%w: low_attendance_threshold must lie in [0, 100]", ErrInvalidConfig)
	case c.RiskLearningRate <= 0:
		return fmt.Errorf("%w: risk_learning_rate must be positive", ErrInvalidConfig)
	case c.RiskMaxIterations < 1:
		return fmt.Errorf("%w: risk_max_iterations must be at least 1", ErrInvalidConfig)
	case c.RiskValidationRatio < 0 || c.RiskValidationRatio >= 1:
		return fmt.Errorf("%w: risk_validation_ratio must lie in [0, 1)", ErrInvalidConfig)
	case c.RiskThreshold <= 0 || c.RiskThreshold >= 1:
		return fmt.Errorf("%w: risk_threshold must lie in (0, 1)", ErrInvalidConfig)
	case len(c.Sources) == 0:
		return fmt.Errorf("%w: at least one source is required", ErrInvalidConfig)
	}

	switch c.ArtifactStore {
	case ArtifactNone, ArtifactFile, ArtifactRedis:
	default:
		return fmt.Errorf("%w: unknown artifact_store %q", ErrInvalidConfig, c.ArtifactStore)
	}

	names := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w: sources[%d]: %v", ErrInvalidConfig, i, err)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: duplicate source name %q", ErrInvalidConfig, s.Name)
		}
		names[s.Name] = true
	}
	return nil
}

func (s SourceConfig) validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("missing name")
	case strings.TrimSpace(s.Path) == "":
		return fmt.Errorf("missing path")
	case strings.TrimSpace(s.IDColumn) == "":
		return fmt.Errorf("missing id_column")
	}
	switch s.Kind {
	case KindMarks:
		if len(s.Subjects) == 0 {
			return fmt.Errorf("marks source %q declares no subjects", s.Name)
		}
	case KindAttendance:
		if s.AttendanceColumn == "" {
			return fmt.Errorf("attendance source %q declares no attendance_column", s.Name)
		}
	case KindProfile:
		if s.DepartmentColumn == "" {
			return fmt.Errorf("profile source %q declares no department_column", s.Name)
		}
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	return nil
}
