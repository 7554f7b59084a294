package identity

import "context"

// Repository provides persistence for identities.
type Repository interface {
	Get(ctx context.Context, id int64) (*Identity, error)
	Create(ctx context.Context, ident *Identity) error
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]Identity, error)
}
