package attendance

import "time"

const (
	// DateLayout is the stored form of the attendance date column.
	DateLayout = "2006-01-02"
	// TimeLayout is the stored form of the attendance timestamp column.
	TimeLayout = "15:04:05"
)

// Record is one attendance event. Name is filled only by date queries.
type Record struct {
	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	Name      string `json:"name,omitempty"`
	Date      string `json:"date"`
	Timestamp string `json:"timestamp"`
}

// Day formats t as an attendance date.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}
