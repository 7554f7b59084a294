package recognition

import (
	"errors"

	"github.com/rpggio/rollcall/internal/domain/training"
)

var (
	// ErrModelNotFound indicates no model has been trained yet.
	ErrModelNotFound = training.ErrModelNotFound
	// ErrStaleModel indicates the model's owners differ from the registry and stale models are refused.
	ErrStaleModel = errors.New("model is stale: retrain before starting a session")
	// ErrNotPrepared indicates Match was called without a successful Prepare.
	ErrNotPrepared = errors.New("recognition engine not prepared")
)
