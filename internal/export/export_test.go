package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rpggio/rollcall/internal/config"
	"github.com/rpggio/rollcall/internal/domain/attendance"
)

type ledger map[string][]attendance.Record

func (l ledger) QueryByDate(_ context.Context, date string) ([]attendance.Record, error) {
	return l[date], nil
}

type archive struct {
	keys []string
	err  error
}

func (a *archive) Archive(_ context.Context, key string, data []byte, _ string) error {
	a.keys = append(a.keys, key)
	return a.err
}

func TestExport_WritesWorkbook(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	l := ledger{"2024-03-05": {
		{ID: 1, StudentID: 7, Name: "Alice", Date: "2024-03-05", Timestamp: "08:00:01"},
		{ID: 2, StudentID: 3, Name: "Bob", Date: "2024-03-05", Timestamp: "08:10:00"},
	}}
	arc := &archive{}

	res, err := NewExporter(l, dir, arc, nil).Export(context.Background(), "2024-03-05")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "attendance_2024-03-05.xlsx"), res.Path)
	require.Equal(t, 2, res.Rows)
	require.True(t, res.Archived)
	require.Equal(t, []string{"attendance_2024-03-05.xlsx"}, arc.keys)

	f, err := excelize.OpenFile(res.Path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"id", "student_id", "name", "date", "timestamp"},
		{"1", "7", "Alice", "2024-03-05", "08:00:01"},
		{"2", "3", "Bob", "2024-03-05", "08:10:00"},
	}, rows)
}

func TestExport_EmptyDayWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	_, err := NewExporter(ledger{}, dir, nil, nil).Export(context.Background(), "2024-03-05")
	require.ErrorIs(t, err, ErrNoRows)

	_, statErr := os.Stat(filepath.Join(dir, FileName("2024-03-05")))
	require.True(t, os.IsNotExist(statErr))
}

func TestExport_ArchiveFailureKeepsFile(t *testing.T) {
	dir := t.TempDir()
	l := ledger{"2024-03-05": {{ID: 1, StudentID: 7, Name: "Alice", Date: "2024-03-05", Timestamp: "08:00:01"}}}

	res, err := NewExporter(l, dir, &archive{err: errors.New("unreachable")}, nil).Export(context.Background(), "2024-03-05")
	require.NoError(t, err)
	require.False(t, res.Archived)
	require.FileExists(t, res.Path)
}

func TestMinIOArchive_ObjectKey(t *testing.T) {
	a, err := NewMinIOArchive(config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "rollcall"})
	require.NoError(t, err)
	require.Equal(t, "exports/attendance_2024-03-05.xlsx", a.ObjectKey(FileName("2024-03-05")))
}
