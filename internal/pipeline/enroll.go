package pipeline

import (
	"context"
	"fmt"

	"github.com/rpggio/rollcall/internal/camera"
	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/dataset"
	"github.com/rpggio/rollcall/internal/domain/training"
	"github.com/rpggio/rollcall/internal/observability"
)

// EnrollResult reports an enrollment.
type EnrollResult struct {
	Created bool
	Capture *dataset.CaptureResult
	Model   *training.Model
}

// Enroll registers or renames id, captures its face samples from src and
// retrains. A capture that stores no samples still retrains, which reports
// training.ErrEmptyDataset only when no one has samples.
func (p *Pipeline) Enroll(ctx context.Context, id int64, name string, src camera.Source, opts dataset.CaptureOptions) (*EnrollResult, error) {
	created, err := p.Registry.Upsert(ctx, id, name)
	if err != nil {
		return nil, err
	}
	res := &EnrollResult{Created: created}
	if created {
		p.record(ctx, activity.TypeStudentEnrolled, &id, fmt.Sprintf("Enrolled student %d", id), map[string]any{"name": name})
	} else {
		p.record(ctx, activity.TypeStudentRenamed, &id, fmt.Sprintf("Updated name of student %d", id), map[string]any{"name": name})
	}

	onSample := opts.OnSample
	opts.OnSample = func(ref dataset.SampleRef) {
		observability.SamplesCaptured.Inc()
		if onSample != nil {
			onSample(ref)
		}
	}

	start := p.Now()
	capture, err := p.Dataset.Capture(ctx, id, src, opts)
	observability.StageDuration.WithLabelValues("capture").Observe(p.Now().Sub(start).Seconds())
	res.Capture = capture
	if capture != nil {
		observability.FramesProcessed.WithLabelValues("enroll").Add(float64(capture.Frames))
	}
	if err != nil {
		return res, err
	}
	if capture.Stored > 0 {
		p.record(ctx, activity.TypeSamplesCaptured, &id,
			fmt.Sprintf("Captured %d samples of student %d", capture.Stored, id),
			map[string]any{"first_seq": capture.FirstSeq, "last_seq": capture.LastSeq},
		)
	}

	m, err := p.Retrain(ctx)
	res.Model = m
	return res, err
}
