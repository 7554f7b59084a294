package attendance

import "context"

// Repository provides persistence for attendance records.
type Repository interface {
	// InsertIfAbsent inserts rec unless a record for the same student and
	// date already exists. The check and the insert share one transaction.
	InsertIfAbsent(ctx context.Context, rec *Record) (bool, error)
	ListByDate(ctx context.Context, date string) ([]Record, error)
	ListByStudent(ctx context.Context, studentID int64) ([]Record, error)
}
