package sampledata

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

// Tables are generated tables, header row first.
type Tables struct {
	Students   [][]string
	Marks      [][]string
	Attendance [][]string
}

var (
	firstNames = []string{"Asha", "Bilal", "Chen", "Divya", "Emre", "Farah", "Goran", "Hana", "Ivan", "Jaya", "Kofi", "Lena"}
	lastNames  = []string{"Rao", "Khan", "Wei", "Iyer", "Demir", "Saleh", "Novak", "Sato", "Petrov", "Menon", "Mensah", "Berg"}
	genders    = []string{"F", "M"}
)

// Generate builds the tables in memory. Marks and attendance share a latent
// ability per student so they correlate.
func Generate(cfg Config) Tables {
	rng := rand.New(rand.NewSource(cfg.Seed))

	t := Tables{
		Students:   [][]string{{"student_id", "name", "gender", "department"}},
		Marks:      [][]string{append([]string{"student_id"}, cfg.Subjects...)},
		Attendance: [][]string{{"student_id", "attendance_percentage"}},
	}

	deps := append([]string(nil), cfg.Departments...)
	rng.Shuffle(len(deps), func(i, j int) { deps[i], deps[j] = deps[j], deps[i] })

	for i := 0; i < cfg.Students; i++ {
		id := fmt.Sprintf("STU%04d", i+1)
		name := firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
		dep := ""
		if len(deps) > 0 {
			dep = deps[i%len(deps)]
		}
		t.Students = append(t.Students, []string{id, name, genders[rng.Intn(len(genders))], dep})

		ability := rng.NormFloat64()
		row := []string{id}
		for range cfg.Subjects {
			mark := clamp(math.Round(60+18*ability+10*rng.NormFloat64()), 0, 100)
			row = append(row, strconv.FormatFloat(mark, 'f', -1, 64))
		}
		t.Marks = append(t.Marks, row)

		att := clamp(math.Round((80+10*ability+5*rng.NormFloat64())*10)/10, 30, 100)
		if rng.Float64() >= cfg.MissingAttendance {
			t.Attendance = append(t.Attendance, []string{id, strconv.FormatFloat(att, 'f', -1, 64)})
		}
	}

	for i := 0; i < cfg.DirtyRows; i++ {
		bad := make([]string, len(cfg.Subjects)+1)
		bad[0] = fmt.Sprintf("BAD%02d", i+1)
		for j := 1; j < len(bad); j++ {
			bad[j] = "absent"
		}
		t.Marks = append(t.Marks, bad)
		t.Attendance = append(t.Attendance, []string{bad[0], "140"})
	}
	return t
}

// Write generates tables and writes them as CSV files under cfg.Dir.
// It returns the written paths.
func Write(cfg Config) ([]string, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", cfg.Dir, err)
	}
	t := Generate(cfg)
	files := []struct {
		name string
		rows [][]string
	}{
		{StudentsFile, t.Students},
		{MarksFile, t.Marks},
		{AttendanceFile, t.Attendance},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(cfg.Dir, f.name)
		if err := writeCSV(p, f.rows); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
