// Package sqlview exposes a canonical dataset to ad-hoc read-only SQL through
// an in-memory SQLite database.
//
// Tables:
//
//	students(student_id, department, attendance, total_mark, average_mark, passed,
//	         missing_marks, missing_attendance, missing_profile)
//	marks(student_id, subject, mark, passed)
//	student_data view: one row per student and subject, joined with attendance
package sqlview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/scholar/internal/domain/reconcile"
)

// Errors returned by View.
var (
	ErrNotReadOnly = errors.New("sqlview: only SELECT statements are allowed")
	ErrQuery       = errors.New("sqlview: query failed")
)

const defaultMaxRows = 1000

var schema = []string{
	`CREATE TABLE students (
		student_id TEXT PRIMARY KEY,
		department TEXT,
		attendance REAL,
		total_mark REAL,
		average_mark REAL,
		passed INTEGER NOT NULL,
		missing_marks INTEGER NOT NULL,
		missing_attendance INTEGER NOT NULL,
		missing_profile INTEGER NOT NULL
	)`,
	`CREATE TABLE marks (
		student_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		mark REAL NOT NULL,
		passed INTEGER NOT NULL,
		PRIMARY KEY (student_id, subject)
	)`,
	`CREATE VIEW student_data AS
		SELECT s.student_id, s.department, s.attendance, m.subject AS subject_name, m.mark AS marks, m.passed
		FROM students s JOIN marks m ON m.student_id = s.student_id`,
}

// Result is a tabular query result.
type Result struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	Truncated bool            `json:"truncated"`
}

// View is a loaded, read-only SQLite database.
type View struct {
	db      *sql.DB
	maxRows int
}

// Option configures a View.
type Option func(*View)

// WithMaxRows caps the rows returned per query.
func WithMaxRows(n int) Option {
	return func(v *View) {
		if n > 0 {
			v.maxRows = n
		}
	}
}

// Open creates an in-memory database and loads ds into it.
func Open(ctx context.Context, ds *reconcile.Dataset, opts ...Option) (*View, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to :memory: is a separate database; keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	v := &View{db: db, maxRows: defaultMaxRows}
	for _, opt := range opts {
		opt(v)
	}
	if err := v.load(ctx, ds); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("lock database: %w", err)
	}
	return v, nil
}

func (v *View) load(ctx context.Context, ds *reconcile.Dataset) error {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	insStudent, err := tx.PrepareContext(ctx, `INSERT INTO students VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare students: %w", err)
	}
	defer insStudent.Close()
	insMark, err := tx.PrepareContext(ctx, `INSERT INTO marks VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare marks: %w", err)
	}
	defer insMark.Close()

	for _, r := range ds.Filter("") {
		var att, total, avg, dep interface{}
		if !r.MissingAttendance {
			att = r.Attendance
		}
		if !r.MissingMarks {
			total, avg = r.TotalMark, r.AverageMark
		}
		if !r.MissingProfile {
			dep = r.Department
		}
		if _, err := insStudent.ExecContext(ctx, r.ID, dep, att, total, avg,
			r.Passed, r.MissingMarks, r.MissingAttendance, r.MissingProfile); err != nil {
			return fmt.Errorf("insert student %s: %w", r.ID, err)
		}
		for _, m := range r.Marks {
			if _, err := insMark.ExecContext(ctx, r.ID, m.Subject, m.Mark, r.SubjectPass[m.Subject]); err != nil {
				return fmt.Errorf("insert mark %s/%s: %w", r.ID, m.Subject, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

// Query runs one read-only statement.
func (v *View) Query(ctx context.Context, q string) (Result, error) {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return Result{}, ErrNotReadOnly
	}
	head := strings.ToUpper(fields[0])
	if head != "SELECT" && head != "WITH" {
		return Result{}, ErrNotReadOnly
	}

	rows, err := v.db.QueryContext(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	res := Result{Columns: cols, Rows: [][]interface{}{}}
	for rows.Next() {
		if len(res.Rows) == v.maxRows {
			res.Truncated = true
			break
		}
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrQuery, err)
		}
		for i, val := range vals {
			if b, ok := val.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	return res, nil
}

// Close releases the database.
func (v *View) Close() error {
	return v.db.Close()
}
