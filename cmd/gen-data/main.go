package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/okian/scholar/internal/sampledata"
	"github.com/okian/scholar/pkg/logger"
)

func main() {
	def := sampledata.DefaultConfig()
	var (
		dir         = flag.String("dir", def.Dir, "Output directory for the CSV files")
		students    = flag.Int("students", def.Students, "Number of students to generate")
		seed        = flag.Int64("seed", def.Seed, "Random seed")
		departments = flag.String("departments", strings.Join(def.Departments, ","), "Comma-separated departments")
		subjects    = flag.String("subjects", strings.Join(def.Subjects, ","), "Comma-separated subject columns")
		missing     = flag.Float64("missing-attendance", def.MissingAttendance, "Share of students without attendance rows")
		dirty       = flag.Int("dirty", def.DirtyRows, "Invalid rows appended to marks and attendance")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()
	log := logger.Named("gen-data")

	cfg := sampledata.Config{
		Dir:               *dir,
		Students:          *students,
		Seed:              *seed,
		Departments:       splitList(*departments),
		Subjects:          splitList(*subjects),
		MissingAttendance: *missing,
		DirtyRows:         *dirty,
	}
	if cfg.Students < 1 || len(cfg.Subjects) == 0 {
		log.Error(ctx, "need at least one student and one subject")
		os.Exit(2)
	}

	paths, err := sampledata.Write(cfg)
	if err != nil {
		log.Error(ctx, "failed to write sample data", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "sample data written",
		logger.Strings("files", paths),
		logger.Int("students", cfg.Students),
		logger.Int("seed", int(cfg.Seed)))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
