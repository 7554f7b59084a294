package deletion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/rollcall/internal/domain/dataset"
)

// Coordinator deletes an identity everywhere and announces the change.
type Coordinator struct {
	store   Store
	samples SampleRemover
	sink    dataset.ChangeSink
	logger  *slog.Logger
}

// NewCoordinator creates a deletion coordinator. sink may be nil.
func NewCoordinator(store Store, samples SampleRemover, sink dataset.ChangeSink, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{store: store, samples: samples, sink: sink, logger: logger}
}

// DeleteIdentity removes attendance and the registry row in one store
// transaction, then the identity's samples, then publishes a
// ReasonIdentityDeleted event. Deleting an unknown id is not an error.
//
// A sink error is returned together with the completed result: the
// deletion itself has already happened.
func (c *Coordinator) DeleteIdentity(ctx context.Context, id int64) (*Result, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}

	cascade, err := c.store.DeleteCascade(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deleting identity %d: %w", id, err)
	}

	removed, err := c.samples.Remove(ctx, id)
	res := &Result{
		ID:                id,
		Existed:           cascade.Existed,
		AttendanceRemoved: cascade.AttendanceRemoved,
		SamplesRemoved:    removed,
	}
	if err != nil {
		return res, fmt.Errorf("removing samples of %d: %w", id, err)
	}

	c.logger.Info("identity deleted",
		"id", id,
		"existed", res.Existed,
		"attendance_removed", res.AttendanceRemoved,
		"samples_removed", res.SamplesRemoved,
	)

	if c.sink != nil && !res.Nothing() {
		ev := dataset.Changed{Reason: dataset.ReasonIdentityDeleted, OwnerID: id, At: time.Now()}
		if err := c.sink.DatasetChanged(ctx, ev); err != nil {
			return res, fmt.Errorf("after deleting %d: %w", id, err)
		}
	}
	return res, nil
}
