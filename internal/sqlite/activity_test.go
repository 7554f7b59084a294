package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	studentID := int64(7)
	entry1 := &activity.ActivityEntry{
		StudentID:    &studentID,
		ActivityType: activity.TypeStudentEnrolled,
		Summary:      "Enrolled student 7",
		Details:      `{"name":"Alice"}`,
	}
	entry2 := &activity.ActivityEntry{
		StudentID:    &studentID,
		ActivityType: activity.TypeAttendanceMarked,
		Summary:      "Marked student 7 present",
	}

	require.NoError(t, repo.Log(ctx, entry1))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, activity.ListActivityOptions{StudentID: &studentID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Equal(t, studentID, *entries[1].StudentID)
	require.Equal(t, `{"name":"Alice"}`, entries[1].Details)
}

func TestActivityRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	studentID := int64(3)
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		StudentID:    &studentID,
		ActivityType: activity.TypeIdentityDeleted,
		Summary:      "Deleted student 3",
	}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeModelTrained,
		Summary:      "Trained model",
	}))

	trained := activity.TypeModelTrained
	entries, err := repo.List(ctx, activity.ListActivityOptions{ActivityType: &trained})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Nil(t, entries[0].StudentID)

	other := int64(99)
	entries, err = repo.List(ctx, activity.ListActivityOptions{StudentID: &other})
	require.NoError(t, err)
	require.Len(t, entries, 0)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, activity.ListActivityOptions{Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
