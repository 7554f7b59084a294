// Package export writes a day's attendance to a spreadsheet.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/rpggio/rollcall/internal/domain/attendance"
)

const (
	sheet       = "Attendance"
	contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrNoRows is returned when the requested day has no attendance. No file
// is written.
var ErrNoRows = errors.New("no attendance records for date")

// Header is the column order of an export.
var Header = []string{"id", "student_id", "name", "date", "timestamp"}

// Ledger is the read side of the attendance ledger.
type Ledger interface {
	QueryByDate(ctx context.Context, date string) ([]attendance.Record, error)
}

// Archiver copies a finished export to secondary storage.
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) error
}

// Result describes a written export.
type Result struct {
	Path     string
	Rows     int
	Archived bool
}

// Exporter writes exports/attendance_<date>.xlsx.
type Exporter struct {
	ledger  Ledger
	dir     string
	archive Archiver
	logger  *slog.Logger
}

// NewExporter creates an exporter. archive may be nil.
func NewExporter(ledger Ledger, dir string, archive Archiver, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{ledger: ledger, dir: dir, archive: archive, logger: logger}
}

// FileName returns the export file name for date.
func FileName(date string) string {
	return fmt.Sprintf("attendance_%s.xlsx", date)
}

// Export writes the day's records. An archive failure is logged and leaves
// the local file in place.
func (e *Exporter) Export(ctx context.Context, date string) (*Result, error) {
	recs, err := e.ledger.QueryByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoRows, date)
	}

	data, err := workbook(recs)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	res := &Result{Path: filepath.Join(e.dir, FileName(date)), Rows: len(recs)}
	if err := os.WriteFile(res.Path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}
	e.logger.Info("attendance exported", "date", date, "rows", res.Rows, "path", res.Path)

	if e.archive != nil {
		if err := e.archive.Archive(ctx, FileName(date), data, contentType); err != nil {
			e.logger.Warn("archive export failed", "date", date, "error", err)
		} else {
			res.Archived = true
		}
	}
	return res, nil
}

func workbook(recs []attendance.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{r.ID, r.StudentID, r.Name, r.Date, r.Timestamp}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
