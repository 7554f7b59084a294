package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/rollcall/internal/vision"
)

// Trainer rebuilds the model from the whole dataset.
type Trainer struct {
	samples    SampleSource
	recognizer vision.Recognizer
	store      Store
	logger     *slog.Logger
	now        func() time.Time
}

// NewTrainer creates a trainer.
func NewTrainer(samples SampleSource, recognizer vision.Recognizer, store Store, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Trainer{
		samples:    samples,
		recognizer: recognizer,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// Train trains on every stored sample and replaces the model slot.
func (t *Trainer) Train(ctx context.Context) (*Model, error) {
	samples, err := t.samples.Samples(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading samples: %w", err)
	}
	if len(samples) == 0 {
		t.logger.Warn("training skipped, dataset is empty")
		return nil, ErrEmptyDataset
	}

	input := make([]vision.Sample, len(samples))
	owners := make([]int64, len(samples))
	for i, s := range samples {
		input[i] = vision.Sample{Label: s.OwnerID, Image: s.Image}
		owners[i] = s.OwnerID
	}

	start := t.now()
	trained, err := t.recognizer.Train(input)
	if errors.Is(err, vision.ErrNoSamples) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("training recognizer: %w", err)
	}
	data, err := trained.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialising model: %w", err)
	}

	ids := SortedUnique(owners)
	m := &Model{
		Version:     uuid.NewString(),
		TrainedAt:   t.now().UTC(),
		OwnerIDs:    ids,
		Fingerprint: Fingerprint(ids),
		SampleCount: len(samples),
		Data:        data,
	}
	if err := t.store.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("saving model: %w", err)
	}

	t.logger.Info("model trained",
		"version", m.Version,
		"owners", len(ids),
		"samples", m.SampleCount,
		"duration", t.now().Sub(start),
	)
	return m, nil
}

// Current loads the model slot.
func (t *Trainer) Current(ctx context.Context) (*Model, error) {
	return t.store.Load(ctx)
}
