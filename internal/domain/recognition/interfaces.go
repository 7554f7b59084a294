package recognition

import (
	"context"

	"github.com/rpggio/rollcall/internal/domain/identity"
	"github.com/rpggio/rollcall/internal/domain/training"
)

// ModelSource loads the current model.
type ModelSource interface {
	Current(ctx context.Context) (*training.Model, error)
}

// Registry lists the registered identities.
type Registry interface {
	List(ctx context.Context) ([]identity.Identity, error)
}
