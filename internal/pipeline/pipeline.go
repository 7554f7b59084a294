// Package pipeline wires enrollment, training, recognition, attendance and
// deletion into the flows the operator runs.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/dataset"
	"github.com/rpggio/rollcall/internal/domain/deletion"
	"github.com/rpggio/rollcall/internal/domain/identity"
	"github.com/rpggio/rollcall/internal/domain/recognition"
	"github.com/rpggio/rollcall/internal/domain/training"
	"github.com/rpggio/rollcall/internal/observability"
	"github.com/rpggio/rollcall/internal/vision"
)

// Components are the services a pipeline drives. Activity is optional.
type Components struct {
	Registry    *identity.Service
	Dataset     *dataset.Manager
	Trainer     *training.Trainer
	Recognition *recognition.Engine
	Ledger      *attendance.Service
	Deletion    *deletion.Coordinator
	Activity    *activity.Service
	Detector    vision.Detector
	Logger      *slog.Logger
	Now         func() time.Time
}

// Pipeline runs the operator flows. It implements dataset.ChangeSink so
// that any dataset change leads to a retrain.
type Pipeline struct {
	Components
}

// New creates a pipeline.
func New(c Components) *Pipeline {
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Pipeline{Components: c}
}

// Retrain rebuilds the model from the whole dataset.
func (p *Pipeline) Retrain(ctx context.Context) (*training.Model, error) {
	start := p.Now()
	m, err := p.Trainer.Train(ctx)
	observability.StageDuration.WithLabelValues("train").Observe(p.Now().Sub(start).Seconds())

	switch {
	case errors.Is(err, training.ErrEmptyDataset):
		observability.TrainingRuns.WithLabelValues("empty").Inc()
		p.record(ctx, activity.TypeTrainingFailed, nil, "Training skipped: dataset is empty", nil)
		return nil, err
	case err != nil:
		observability.TrainingRuns.WithLabelValues("error").Inc()
		p.record(ctx, activity.TypeTrainingFailed, nil, "Training failed", map[string]any{"error": err.Error()})
		return nil, err
	}

	observability.TrainingRuns.WithLabelValues("ok").Inc()
	observability.ModelOwners.Set(float64(len(m.OwnerIDs)))
	p.record(ctx, activity.TypeModelTrained, nil,
		fmt.Sprintf("Trained model on %d samples of %d students", m.SampleCount, len(m.OwnerIDs)),
		map[string]any{"version": m.Version, "owners": m.OwnerIDs},
	)
	return m, nil
}

// DatasetChanged retrains after a dataset change. An empty dataset is not
// an error here: the old model stays in place and, its fingerprint no
// longer matching the registry, is treated as stale.
func (p *Pipeline) DatasetChanged(ctx context.Context, ev dataset.Changed) error {
	p.Logger.Info("dataset changed", "reason", ev.Reason, "owner_id", ev.OwnerID)
	_, err := p.Retrain(ctx)
	if errors.Is(err, training.ErrEmptyDataset) {
		p.Logger.Warn("no samples left to train on; model is stale until the next enrollment")
		return nil
	}
	return err
}

// DeleteResult reports a deletion and the model left in the slot by the
// retrain that followed it.
type DeleteResult struct {
	deletion.Result
	// Model is the current model, nil when none has been trained.
	Model *training.Model
	// Stale is set when Model still lists the deleted identity because no
	// samples were left to retrain on.
	Stale bool
}

// DeleteIdentity removes an identity everywhere. Retraining happens through
// the coordinator's change event.
func (p *Pipeline) DeleteIdentity(ctx context.Context, id int64) (*DeleteResult, error) {
	res, err := p.Deletion.DeleteIdentity(ctx, id)
	if res == nil {
		return nil, err
	}
	out := &DeleteResult{Result: *res}
	if res.Nothing() {
		return out, err
	}

	m, cerr := p.Trainer.Current(ctx)
	switch {
	case cerr == nil:
		out.Model = m
		out.Stale = m.HasOwner(id)
	case !errors.Is(cerr, training.ErrModelNotFound):
		err = errors.Join(err, cerr)
	}

	p.record(ctx, activity.TypeIdentityDeleted, &id,
		fmt.Sprintf("Deleted student %d", id),
		map[string]any{
			"attendance_removed": res.AttendanceRemoved,
			"samples_removed":    res.SamplesRemoved,
			"model_stale":        out.Stale,
		},
	)
	return out, err
}

// record writes an activity entry. Failures are logged and otherwise ignored.
func (p *Pipeline) record(ctx context.Context, typ activity.ActivityType, studentID *int64, summary string, details map[string]any) {
	if p.Activity == nil {
		return
	}
	entry := &activity.ActivityEntry{
		StudentID:    studentID,
		ActivityType: typ,
		Summary:      summary,
		CreatedAt:    p.Now(),
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}
	if err := p.Activity.LogActivity(ctx, entry); err != nil {
		p.Logger.Warn("failed to record activity", "type", typ, "error", err)
	}
}
