package recognition

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/rpggio/rollcall/internal/domain/training"
	"github.com/rpggio/rollcall/internal/vision"
)

// Options configures the engine.
type Options struct {
	Threshold float64
	// RefuseStale makes Prepare fail instead of degrading on a stale model.
	RefuseStale bool
}

// Engine matches faces against the current model and registry.
type Engine struct {
	models     ModelSource
	registry   Registry
	recognizer vision.Recognizer
	codec      vision.ModelCodec
	opts       Options
	logger     *slog.Logger

	mu      sync.RWMutex
	model   *training.Model
	decoded vision.Model
	names   map[int64]string
	status  Status
}

// NewEngine creates a recognition engine. A zero threshold uses DefaultThreshold.
func NewEngine(models ModelSource, registry Registry, recognizer vision.Recognizer, codec vision.ModelCodec, opts Options, logger *slog.Logger) *Engine {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		models:     models,
		registry:   registry,
		recognizer: recognizer,
		codec:      codec,
		opts:       opts,
		logger:     logger,
	}
}

// Threshold returns the acceptance threshold in use.
func (e *Engine) Threshold() float64 {
	return e.opts.Threshold
}

// Prepare loads the current model and registry snapshot. It must be called
// before Match and again whenever the model or registry may have changed.
func (e *Engine) Prepare(ctx context.Context) (Status, error) {
	m, err := e.models.Current(ctx)
	if err != nil {
		e.reset()
		return StatusStale, err
	}
	idents, err := e.registry.List(ctx)
	if err != nil {
		return StatusStale, fmt.Errorf("listing identities: %w", err)
	}

	names := make(map[int64]string, len(idents))
	ids := make([]int64, 0, len(idents))
	for _, ident := range idents {
		names[ident.ID] = ident.Name
		ids = append(ids, ident.ID)
	}

	status := StatusFresh
	if training.Fingerprint(ids) != m.Fingerprint {
		status = StatusStale
	}
	if status == StatusStale {
		e.logger.Warn("model is stale",
			"model_version", m.Version,
			"model_owners", len(m.OwnerIDs),
			"registered", len(ids),
			"refuse", e.opts.RefuseStale,
		)
		if e.opts.RefuseStale {
			e.reset()
			return status, ErrStaleModel
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil || e.model.Version != m.Version || e.decoded == nil {
		decoded, err := e.codec.UnmarshalModel(m.Data)
		if err != nil {
			return status, fmt.Errorf("loading model %s: %w", m.Version, err)
		}
		e.decoded = decoded
	}
	e.model = m
	e.names = names
	e.status = status
	return status, nil
}

// reset drops the prepared snapshot so Match fails until the next
// successful Prepare.
func (e *Engine) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = nil
	e.decoded = nil
	e.names = nil
}

// Match predicts the identity of face. Identities that are not both in the
// model and in the registry never resolve to a name.
func (e *Engine) Match(ctx context.Context, face *image.Gray) (Match, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.decoded == nil {
		return Match{}, ErrNotPrepared
	}

	label, distance, err := e.recognizer.Predict(face, e.decoded)
	if err != nil {
		return Match{}, fmt.Errorf("predicting face: %w", err)
	}

	name, registered := e.names[label]
	trusted := registered && e.model.HasOwner(label)

	m := Match{
		IdentityID: label,
		Name:       UnknownName,
		Distance:   distance,
		Outcome:    Decide(distance, e.opts.Threshold, trusted),
	}
	if m.Outcome == OutcomeAccepted {
		m.Name = name
	}
	return m, nil
}
