package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/repository"
)

// AttendanceRepository implements attendance.Repository for SQLite
type AttendanceRepository struct {
	db *DB
}

// NewAttendanceRepository creates a new AttendanceRepository
func NewAttendanceRepository(db *DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// InsertIfAbsent inserts rec unless the student already has a record for
// rec.Date. The schema carries no unique constraint on (student_id, date);
// the existence check inside the transaction is what keeps one row per day.
func (r *AttendanceRepository) InsertIfAbsent(ctx context.Context, rec *attendance.Record) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM attendance WHERE student_id = ? AND date = ? LIMIT 1`,
		rec.StudentID, rec.Date,
	).Scan(&existing)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO attendance (student_id, timestamp, date) VALUES (?, ?, ?)`,
		rec.StudentID, rec.Timestamp, rec.Date,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, repository.ErrForeignKeyViolation
		}
		return false, fmt.Errorf("failed to insert attendance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		rec.ID = id
	}
	return true, nil
}

// ListByDate returns the day's records joined with student names,
// ordered by timestamp ascending
func (r *AttendanceRepository) ListByDate(ctx context.Context, date string) ([]attendance.Record, error) {
	query := `
		SELECT a.id, s.id, s.name, a.date, a.timestamp
		FROM attendance a
		JOIN students s ON a.student_id = s.id
		WHERE a.date = ?
		ORDER BY a.timestamp ASC, a.id ASC
	`
	return r.list(ctx, query, date)
}

// ListByStudent returns one student's records, oldest first
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID int64) ([]attendance.Record, error) {
	query := `
		SELECT a.id, s.id, s.name, a.date, a.timestamp
		FROM attendance a
		JOIN students s ON a.student_id = s.id
		WHERE a.student_id = ?
		ORDER BY a.date ASC, a.timestamp ASC
	`
	return r.list(ctx, query, studentID)
}

func (r *AttendanceRepository) list(ctx context.Context, query string, args ...interface{}) ([]attendance.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var recs []attendance.Record
	for rows.Next() {
		var rec attendance.Record
		if err := rows.Scan(
			&rec.ID,
			&rec.StudentID,
			&rec.Name,
			&rec.Date,
			&rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance rows: %w", err)
	}

	return recs, nil
}
