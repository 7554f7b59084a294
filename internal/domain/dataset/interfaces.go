package dataset

import (
	"context"
	"image"
)

// Store persists face samples.
type Store interface {
	Index(ctx context.Context) (Index, error)
	Put(ctx context.Context, ownerID int64, seq int, img *image.Gray) (SampleRef, error)
	Load(ctx context.Context, ref SampleRef) (*image.Gray, error)
	Remove(ctx context.Context, ref SampleRef) error
}
