package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeStudentEnrolled  ActivityType = "student_enrolled"
	TypeStudentRenamed   ActivityType = "student_renamed"
	TypeSamplesCaptured  ActivityType = "samples_captured"
	TypeModelTrained     ActivityType = "model_trained"
	TypeTrainingFailed   ActivityType = "training_failed"
	TypeIdentityDeleted  ActivityType = "identity_deleted"
	TypeAttendanceMarked ActivityType = "attendance_marked"
	TypeSessionStarted   ActivityType = "session_started"
	TypeSessionEnded     ActivityType = "session_ended"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	StudentID    *int64       `json:"student_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
