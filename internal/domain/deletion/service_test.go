package deletion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/rollcall/internal/domain/dataset"
	"github.com/rpggio/rollcall/internal/domain/deletion"
	"github.com/rpggio/rollcall/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_DeleteIdentity(t *testing.T) {
	ctx := context.Background()

	store := &mocks.DeletionStore{}
	store.On("DeleteCascade", ctx, int64(7)).Return(&deletion.CascadeResult{Existed: true, AttendanceRemoved: 3}, nil)
	samples := &mocks.SampleRemover{}
	samples.On("Remove", ctx, int64(7)).Return(50, nil)
	sink := &mocks.ChangeSink{}
	sink.On("DatasetChanged", ctx, mock.MatchedBy(func(ev dataset.Changed) bool {
		return ev.Reason == dataset.ReasonIdentityDeleted && ev.OwnerID == 7 && !ev.At.IsZero()
	})).Return(nil)

	c := deletion.NewCoordinator(store, samples, sink, nil)
	res, err := c.DeleteIdentity(ctx, 7)
	require.NoError(t, err)
	require.True(t, res.Existed)
	require.Equal(t, int64(3), res.AttendanceRemoved)
	require.Equal(t, 50, res.SamplesRemoved)

	store.AssertExpectations(t)
	samples.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestCoordinator_DeleteUnknownIsQuiet(t *testing.T) {
	ctx := context.Background()

	store := &mocks.DeletionStore{}
	store.On("DeleteCascade", ctx, int64(42)).Return(&deletion.CascadeResult{}, nil)
	samples := &mocks.SampleRemover{}
	samples.On("Remove", ctx, int64(42)).Return(0, nil)
	sink := &mocks.ChangeSink{}

	c := deletion.NewCoordinator(store, samples, sink, nil)
	res, err := c.DeleteIdentity(ctx, 42)
	require.NoError(t, err)
	require.False(t, res.Existed)
	require.True(t, res.Nothing())
	sink.AssertNotCalled(t, "DatasetChanged", mock.Anything, mock.Anything)
}

func TestCoordinator_OrphanSamplesStillPublish(t *testing.T) {
	ctx := context.Background()

	store := &mocks.DeletionStore{}
	store.On("DeleteCascade", ctx, int64(5)).Return(&deletion.CascadeResult{}, nil)
	samples := &mocks.SampleRemover{}
	samples.On("Remove", ctx, int64(5)).Return(4, nil)
	sink := &mocks.ChangeSink{}
	sink.On("DatasetChanged", ctx, mock.Anything).Return(nil)

	c := deletion.NewCoordinator(store, samples, sink, nil)
	res, err := c.DeleteIdentity(ctx, 5)
	require.NoError(t, err)
	require.False(t, res.Nothing())
	sink.AssertExpectations(t)
}

func TestCoordinator_StoreFailureStopsBeforeSamples(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("database is locked")

	store := &mocks.DeletionStore{}
	store.On("DeleteCascade", ctx, int64(7)).Return(nil, boom)
	samples := &mocks.SampleRemover{}

	c := deletion.NewCoordinator(store, samples, nil, nil)
	_, err := c.DeleteIdentity(ctx, 7)
	require.ErrorIs(t, err, boom)
	samples.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

func TestCoordinator_SinkErrorKeepsResult(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("retrain failed")

	store := &mocks.DeletionStore{}
	store.On("DeleteCascade", ctx, int64(7)).Return(&deletion.CascadeResult{Existed: true}, nil)
	samples := &mocks.SampleRemover{}
	samples.On("Remove", ctx, int64(7)).Return(1, nil)
	sink := &mocks.ChangeSink{}
	sink.On("DatasetChanged", ctx, mock.Anything).Return(boom)

	c := deletion.NewCoordinator(store, samples, sink, nil)
	res, err := c.DeleteIdentity(ctx, 7)
	require.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	require.True(t, res.Existed)
}

func TestCoordinator_InvalidID(t *testing.T) {
	c := deletion.NewCoordinator(&mocks.DeletionStore{}, &mocks.SampleRemover{}, nil, nil)
	_, err := c.DeleteIdentity(context.Background(), 0)
	require.ErrorIs(t, err, deletion.ErrInvalidInput)
}
