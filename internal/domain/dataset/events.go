package dataset

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Reason says why the dataset changed.
type Reason string

const (
	ReasonSamplesCaptured Reason = "samples_captured"
	ReasonIdentityDeleted Reason = "identity_deleted"
)

// Changed is published after the sample set or the identity set changes.
type Changed struct {
	Reason  Reason
	OwnerID int64
	At      time.Time
}

// ChangeSink consumes dataset change events.
type ChangeSink interface {
	DatasetChanged(ctx context.Context, ev Changed) error
}

// Notifier fans events out to its subscribers in subscription order.
type Notifier struct {
	mu    sync.Mutex
	sinks []ChangeSink
}

// Subscribe adds a sink.
func (n *Notifier) Subscribe(sink ChangeSink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, sink)
}

// DatasetChanged delivers ev to every sink and joins their errors.
func (n *Notifier) DatasetChanged(ctx context.Context, ev Changed) error {
	n.mu.Lock()
	sinks := append([]ChangeSink(nil), n.sinks...)
	n.mu.Unlock()

	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	var errs []error
	for _, s := range sinks {
		if err := s.DatasetChanged(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
