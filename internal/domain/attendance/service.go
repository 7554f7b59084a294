package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/rollcall/internal/repository"
)

// Service is the attendance ledger.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new attendance service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Mark records attendance for studentID on the calendar day of at.
// A second call for the same day returns false and changes nothing.
func (s *Service) Mark(ctx context.Context, studentID int64, at time.Time) (bool, error) {
	if studentID <= 0 {
		return false, ErrInvalidInput
	}

	rec := &Record{
		StudentID: studentID,
		Date:      at.Format(DateLayout),
		Timestamp: at.Format(TimeLayout),
	}
	inserted, err := s.repo.InsertIfAbsent(ctx, rec)
	if err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return false, ErrUnknownStudent
		}
		return false, fmt.Errorf("marking attendance: %w", err)
	}
	if inserted {
		s.logger.Info("attendance marked", "student_id", studentID, "date", rec.Date, "time", rec.Timestamp)
	}
	return inserted, nil
}

// QueryByDate lists the day's records ordered by timestamp ascending.
// A day without records yields an empty slice.
func (s *Service) QueryByDate(ctx context.Context, date string) ([]Record, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	recs, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// History lists every record of one student, oldest first.
func (s *Service) History(ctx context.Context, studentID int64) ([]Record, error) {
	return s.repo.ListByStudent(ctx, studentID)
}
