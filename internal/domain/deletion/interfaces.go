package deletion

import "context"

// Store removes an identity and its attendance history atomically.
type Store interface {
	DeleteCascade(ctx context.Context, id int64) (*CascadeResult, error)
}

// SampleRemover removes an identity's face samples.
type SampleRemover interface {
	Remove(ctx context.Context, ownerID int64) (int, error)
}
