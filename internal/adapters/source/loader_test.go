package source_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/okian/scholar/internal/adapters/source"
	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/pkg/logger"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func marksSource(path string) source.Source {
	return source.Source{
		Name:     "marks",
		Kind:     model.KindMarks,
		Path:     path,
		IDColumn: "student_id",
		Subjects: []string{"math", "science"},
	}
}

func TestLoadMarksRejectsBadRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "marks.csv", "student_id,math,science\n"+
		"S1,90,40\n"+ // row 2 ok
		"S2,abc,50\n"+ // row 3 non-numeric
		"S3,101,50\n"+ // row 4 out of range
		",60,60\n"+ // row 5 empty id
		"S5,70\n"+ // row 6 short
		"S6,55.5,0\n") // row 7 ok

	l := source.NewLoader(source.WithLogger(logger.Nop()))
	batch, report, err := l.Load(context.Background(), []source.Source{marksSource(path)})
	require.NoError(t, err)

	sr := report["marks"]
	assert.Empty(t, sr.Error)
	assert.Equal(t, 2, sr.Accepted)
	assert.Equal(t, 4, sr.Rejected)
	require.Len(t, sr.Rejections, 4)
	rows := []int{sr.Rejections[0].Row, sr.Rejections[1].Row, sr.Rejections[2].Row, sr.Rejections[3].Row}
	assert.Equal(t, []int{3, 4, 5, 6}, rows)
	assert.Contains(t, sr.Rejections[0].Reason, "non-numeric")
	assert.Contains(t, sr.Rejections[1].Reason, "out of range")
	assert.Contains(t, sr.Rejections[2].Reason, "empty identifier")
	assert.Contains(t, sr.Rejections[3].Reason, "short row")

	require.Len(t, batch, 2)
	assert.Equal(t, "S1", batch[0].ID)
	assert.Equal(t, 2, batch[0].Row)
	assert.Equal(t, []model.SubjectMark{{Subject: "math", Mark: 90}, {Subject: "science", Mark: 40}}, batch[0].Marks)
	assert.Equal(t, 55.5, batch[1].Marks[0].Mark)
}

func TestLoadMalformedLineIsRejectedAlone(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "marks.csv", "student_id,math,science\n"+
		"S1,90,40\n"+ // row 2 ok
		"S2,8\"0,50\n"+ // row 3 bare quote
		"\n"+ // row 4 blank, skipped by the reader
		"S3,70,70\n") // row 5 ok

	batch, report, err := source.NewLoader().Load(context.Background(), []source.Source{marksSource(path)})
	require.NoError(t, err)

	sr := report["marks"]
	assert.Empty(t, sr.Error)
	assert.Equal(t, 2, sr.Accepted)
	assert.Equal(t, 1, sr.Rejected)
	require.Len(t, sr.Rejections, 1)
	assert.Equal(t, 3, sr.Rejections[0].Row)
	assert.Contains(t, sr.Rejections[0].Reason, "malformed line")
	assert.Contains(t, sr.Rejections[0].Reason, "bare")

	require.Len(t, batch, 2)
	assert.Equal(t, "S1", batch[0].ID)
	assert.Equal(t, "S3", batch[1].ID)
	assert.Equal(t, 5, batch[1].Row)
}

func TestLoadEmptyTableFailsSource(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "marks.csv", "")

	batch, report, err := source.NewLoader().Load(context.Background(), []source.Source{marksSource(path)})
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.Contains(t, report["marks"].Error, source.ErrEmptyTable.Error())
}

func TestLoadAttendanceAcceptsPercentSuffix(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "attendance.csv", "Student_ID, Attendance_Percentage\n"+
		"S1,95%\n"+
		"S2, 80 \n"+
		"S3,120\n"+
		"S4,nine\n")

	src := source.Source{
		Name:             "attendance",
		Kind:             model.KindAttendance,
		Path:             path,
		IDColumn:         "student_id",
		AttendanceColumn: "attendance_percentage",
	}
	batch, report, err := source.NewLoader().Load(context.Background(), []source.Source{src})
	require.NoError(t, err)

	assert.Equal(t, 2, report["attendance"].Accepted)
	assert.Equal(t, 2, report["attendance"].Rejected)
	require.Len(t, batch, 2)
	assert.Equal(t, 95.0, batch[0].Attendance)
	assert.Equal(t, 80.0, batch[1].Attendance)
}

func TestLoadSourceFailuresDoNotAbortLoad(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "marks.csv", "student_id,math\nS1,90\n")
	good := writeFile(t, dir, "attendance.csv", "student_id,attendance_percentage\nS1,90\n")

	sources := []source.Source{
		marksSource(bad), // missing science column
		{
			Name: "attendance", Kind: model.KindAttendance, Path: good,
			IDColumn: "student_id", AttendanceColumn: "attendance_percentage",
		},
		{
			Name: "profile", Kind: model.KindProfile, Path: filepath.Join(dir, "nope.csv"),
			IDColumn: "student_id", DepartmentColumn: "department",
		},
	}
	batch, report, err := source.NewLoader().Load(context.Background(), sources)
	require.NoError(t, err)

	assert.Contains(t, report["marks"].Error, "science")
	assert.Equal(t, 0, report["marks"].Accepted)
	assert.Contains(t, report["profile"].Error, "unreadable")
	assert.Equal(t, 1, report["attendance"].Accepted)
	assert.ElementsMatch(t, []string{"marks", "profile"}, report.Failed())
	assert.Equal(t, 1, report.Accepted())
	require.Len(t, batch, 1)
	assert.Equal(t, model.KindAttendance, batch[0].Kind)
}

func TestLoadProfileFromWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "students.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"student_id", "department", "gender"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"S1", "CSE", "F"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"S2", "ECE"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"S3", ""}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src := source.Source{
		Name: "profile", Kind: model.KindProfile, Path: path,
		IDColumn: "student_id", DepartmentColumn: "department", Attributes: []string{"gender"},
	}
	batch, report, err := source.NewLoader().Load(context.Background(), []source.Source{src})
	require.NoError(t, err)

	assert.Equal(t, 2, report["profile"].Accepted)
	assert.Equal(t, 1, report["profile"].Rejected)
	require.Len(t, batch, 2)
	assert.Equal(t, "CSE", batch[0].Department)
	assert.Equal(t, "F", batch[0].Attributes["gender"])
	assert.Equal(t, "ECE", batch[1].Department)
	assert.NotContains(t, batch[1].Attributes, "gender")
}

func TestLoadMisuse(t *testing.T) {
	_, _, err := source.NewLoader().Load(context.Background(), nil)
	assert.ErrorIs(t, err, source.ErrNoSources)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = source.NewLoader().Load(ctx, []source.Source{marksSource("x.csv")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadWithCustomMaxMark(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "marks.csv", "student_id,math,science\nS1,140,150\n")

	batch, report, err := source.NewLoader(source.WithMaxMark(150)).Load(context.Background(), []source.Source{marksSource(path)})
	require.NoError(t, err)
	assert.Equal(t, 1, report["marks"].Accepted)
	require.Len(t, batch, 1)
}
