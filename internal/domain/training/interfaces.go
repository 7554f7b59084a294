package training

import (
	"context"

	"github.com/rpggio/rollcall/internal/domain/dataset"
)

// Store holds the model slot.
type Store interface {
	Load(ctx context.Context) (*Model, error)
	Save(ctx context.Context, m *Model) error
}

// SampleSource provides the full sample set.
type SampleSource interface {
	Samples(ctx context.Context) ([]dataset.FaceSample, error)
}
