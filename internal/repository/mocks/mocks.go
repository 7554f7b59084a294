package mocks

import (
	"context"

	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/dataset"
	"github.com/rpggio/rollcall/internal/domain/deletion"
	"github.com/rpggio/rollcall/internal/domain/identity"
	"github.com/stretchr/testify/mock"
)

// IdentityRepository is a mock for identity.Repository.
type IdentityRepository struct {
	mock.Mock
}

func (m *IdentityRepository) Get(ctx context.Context, id int64) (*identity.Identity, error) {
	args := m.Called(ctx, id)
	if ident, ok := args.Get(0).(*identity.Identity); ok {
		return ident, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IdentityRepository) Create(ctx context.Context, ident *identity.Identity) error {
	args := m.Called(ctx, ident)
	return args.Error(0)
}

func (m *IdentityRepository) Rename(ctx context.Context, id int64, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *IdentityRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *IdentityRepository) List(ctx context.Context) ([]identity.Identity, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]identity.Identity); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// AttendanceRepository is a mock for attendance.Repository.
type AttendanceRepository struct {
	mock.Mock
}

func (m *AttendanceRepository) InsertIfAbsent(ctx context.Context, rec *attendance.Record) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *AttendanceRepository) ListByDate(ctx context.Context, date string) ([]attendance.Record, error) {
	args := m.Called(ctx, date)
	if list, ok := args.Get(0).([]attendance.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AttendanceRepository) ListByStudent(ctx context.Context, studentID int64) ([]attendance.Record, error) {
	args := m.Called(ctx, studentID)
	if list, ok := args.Get(0).([]attendance.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// DeletionStore is a mock for deletion.Store.
type DeletionStore struct {
	mock.Mock
}

func (m *DeletionStore) DeleteCascade(ctx context.Context, id int64) (*deletion.CascadeResult, error) {
	args := m.Called(ctx, id)
	if res, ok := args.Get(0).(*deletion.CascadeResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

// SampleRemover is a mock for deletion.SampleRemover.
type SampleRemover struct {
	mock.Mock
}

func (m *SampleRemover) Remove(ctx context.Context, ownerID int64) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

// ChangeSink is a mock for dataset.ChangeSink.
type ChangeSink struct {
	mock.Mock
}

func (m *ChangeSink) DatasetChanged(ctx context.Context, ev dataset.Changed) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
