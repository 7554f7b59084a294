package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rpggio/rollcall/internal/camera"
	"github.com/rpggio/rollcall/internal/vision"
)

// Manager captures and serves face samples.
type Manager struct {
	store    Store
	detector vision.Detector
	quota    int
	logger   *slog.Logger
}

// NewManager creates a dataset manager. quota <= 0 uses DefaultQuota.
func NewManager(store Store, detector vision.Detector, quota int, logger *slog.Logger) *Manager {
	if quota <= 0 {
		quota = DefaultQuota
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{store: store, detector: detector, quota: quota, logger: logger}
}

// Capture pulls frames from src and stores every detected face as a sample
// of ownerID until the quota is reached, the source ends, or opts.Stop closes.
//
// Without Append the session numbers from 1 and, once at least one sample
// is stored, the owner's older samples beyond the new range are removed.
// With Append numbering continues after the highest stored sequence.
func (m *Manager) Capture(ctx context.Context, ownerID int64, src camera.Source, opts CaptureOptions) (*CaptureResult, error) {
	if ownerID <= 0 {
		return nil, ErrInvalidInput
	}
	quota := opts.Quota
	if quota <= 0 {
		quota = m.quota
	}

	ix, err := m.store.Index(ctx)
	if err != nil {
		return nil, err
	}
	previous := ix.ForOwner(ownerID)

	seq := 0
	if opts.Append {
		seq = ix.MaxSequence(ownerID)
	}

	res := &CaptureResult{}
	defer func() {
		if !opts.Append && res.Stored > 0 {
			m.prune(ctx, previous, res.LastSeq)
		}
	}()

	m.logger.Info("capture started", "owner_id", ownerID, "quota", quota, "append", opts.Append)

	for res.Stored < quota {
		if stopped(opts.Stop) {
			res.Cancelled = true
			break
		}

		img, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				res.Cancelled = true
				return res, ctx.Err()
			}
			return res, fmt.Errorf("capturing samples for %d: %w", ownerID, err)
		}
		res.Frames++

		regions, err := m.detector.Detect(img)
		if err != nil {
			return res, fmt.Errorf("detecting faces: %w", err)
		}

		for _, r := range regions {
			face := vision.CropGray(img, r.Rect)
			if face == nil {
				continue
			}
			seq++
			ref, err := m.store.Put(ctx, ownerID, seq, face)
			if err != nil {
				return res, err
			}
			if res.Stored == 0 {
				res.FirstSeq = seq
			}
			res.Stored++
			res.LastSeq = seq
			if opts.OnSample != nil {
				opts.OnSample(ref)
			}
			if res.Stored >= quota {
				break
			}
		}
	}

	m.logger.Info("capture finished",
		"owner_id", ownerID,
		"stored", res.Stored,
		"frames", res.Frames,
		"cancelled", res.Cancelled,
	)
	return res, nil
}

// prune removes samples from an earlier session that the new session did
// not overwrite.
func (m *Manager) prune(ctx context.Context, previous []SampleRef, lastSeq int) {
	for _, ref := range previous {
		if ref.Sequence <= lastSeq {
			continue
		}
		if err := m.store.Remove(ctx, ref); err != nil {
			m.logger.Warn("failed to remove stale sample", "path", ref.Path, "error", err)
		}
	}
}

// Index returns the current sample index.
func (m *Manager) Index(ctx context.Context) (Index, error) {
	return m.store.Index(ctx)
}

// Samples loads every stored sample. Samples that fail to decode are
// skipped with a warning.
func (m *Manager) Samples(ctx context.Context) ([]FaceSample, error) {
	ix, err := m.store.Index(ctx)
	if err != nil {
		return nil, err
	}
	samples := make([]FaceSample, 0, len(ix))
	for _, ref := range ix.Refs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := m.store.Load(ctx, ref)
		if err != nil {
			m.logger.Warn("skipping unreadable sample", "path", ref.Path, "error", err)
			continue
		}
		samples = append(samples, FaceSample{SampleRef: ref, Image: img})
	}
	return samples, nil
}

// Remove deletes every sample of ownerID and reports how many were removed.
func (m *Manager) Remove(ctx context.Context, ownerID int64) (int, error) {
	ix, err := m.store.Index(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, ref := range ix.ForOwner(ownerID) {
		if err := m.store.Remove(ctx, ref); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("samples removed", "owner_id", ownerID, "count", removed)
	}
	return removed, nil
}

func stopped(stop <-chan struct{}) bool {
	if stop == nil {
		return false
	}
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
