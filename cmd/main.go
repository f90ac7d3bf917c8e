package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/scholar/internal/adapters/artifact"
	"github.com/okian/scholar/internal/adapters/http/api"
	"github.com/okian/scholar/internal/adapters/http/swagger"
	"github.com/okian/scholar/internal/adapters/source"
	app "github.com/okian/scholar/internal/app"
	"github.com/okian/scholar/internal/config"
	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/internal/domain/reconcile"
	"github.com/okian/scholar/internal/domain/risk"
	"github.com/okian/scholar/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	maxQueryBytes     = 64 << 10
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error(ctx, "scholar exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, log logger.Logger) error {
	// defaults -> optional dotenv -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, closeStore, err := newArtifactStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := newService(cfg, store, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService wires the pipeline stages from configuration.
func newService(cfg *config.Config, store artifact.Store, log logger.Logger) *app.Service {
	return app.New(sourcesFrom(cfg),
		app.WithLogger(log.Named("service")),
		app.WithLoader(source.NewLoader(
			source.WithMaxMark(cfg.MaxMark),
			source.WithLogger(log.Named("source")),
		)),
		app.WithReconciler(reconcile.New(
			reconcile.WithPassThreshold(cfg.PassThreshold),
			reconcile.WithLogger(log.Named("reconcile")),
		)),
		app.WithArtifactStore(store),
		app.WithRiskConfig(riskConfigFrom(cfg)),
		app.WithTopN(cfg.TopN),
		app.WithLowAttendanceThreshold(cfg.LowAttendanceThreshold),
		app.WithMaxQueryRows(cfg.MaxQueryRows),
		app.WithTrainOnStart(cfg.TrainOnStart),
	)
}

func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, maxQueryBytes).Register(ctx, mux)
	return mux
}

func sourcesFrom(cfg *config.Config) []source.Source {
	out := make([]source.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		out = append(out, source.Source{
			Name:             s.Name,
			Kind:             model.SourceKind(s.Kind),
			Path:             s.Path,
			IDColumn:         s.IDColumn,
			Subjects:         s.Subjects,
			AttendanceColumn: s.AttendanceColumn,
			DepartmentColumn: s.DepartmentColumn,
			Attributes:       s.Attributes,
		})
	}
	return out
}

func riskConfigFrom(cfg *config.Config) risk.Config {
	return risk.Config{
		LearningRate:    cfg.RiskLearningRate,
		MaxIterations:   cfg.RiskMaxIterations,
		Tolerance:       cfg.RiskTolerance,
		L2:              cfg.RiskL2,
		ValidationRatio: cfg.RiskValidationRatio,
		Seed:            cfg.RiskSeed,
		MinSamples:      cfg.RiskMinSamples,
		Threshold:       cfg.RiskThreshold,
	}
}

// newArtifactStore selects the model store backend. The returned func
// releases it.
func newArtifactStore(ctx context.Context, cfg *config.Config) (artifact.Store, func(), error) {
	switch cfg.ArtifactStore {
	case config.ArtifactFile:
		return artifact.NewFileStore(cfg.ArtifactPath), func() {}, nil
	case config.ArtifactRedis:
		rc := artifact.DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		rc.Key = cfg.RedisKey
		rs, err := artifact.NewRedisStore(ctx, rc)
		if err != nil {
			return nil, nil, fmt.Errorf("connect artifact store: %w", err)
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		return artifact.NopStore{}, func() {}, nil
	}
}
