package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/rpggio/rollcall/internal/camera"
	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/recognition"
	"github.com/rpggio/rollcall/internal/observability"
	"github.com/rpggio/rollcall/internal/vision"
)

// SessionOptions controls an attendance session.
type SessionOptions struct {
	// Stop ends the session without error when closed.
	Stop <-chan struct{}
	// OnMatch is called for every recognised face. marked is true when the
	// match inserted a new attendance record.
	OnMatch func(m recognition.Match, marked bool)
}

// SessionReport summarises an attendance session.
type SessionReport struct {
	Date       string
	Status     recognition.Status
	Frames     int
	Faces      int
	Accepted   int
	Rejected   int
	Unresolved int
	Marked     []int64
	Cancelled  bool
}

// RunAttendance recognises faces from src and marks accepted students
// present for today until src ends or opts.Stop closes. A frame failure
// ends the session with camera.ErrFrame.
func (p *Pipeline) RunAttendance(ctx context.Context, src camera.Source, opts SessionOptions) (*SessionReport, error) {
	report := &SessionReport{Date: attendance.Day(p.Now())}

	status, err := p.Recognition.Prepare(ctx)
	report.Status = status
	if err != nil {
		return report, fmt.Errorf("starting session: %w", err)
	}
	if status == recognition.StatusStale {
		p.Logger.Warn("session running on a stale model; unknown or removed students will not be marked")
	}
	p.record(ctx, activity.TypeSessionStarted, nil, "Attendance session started", map[string]any{"model": status.String()})
	defer func() {
		p.record(ctx, activity.TypeSessionEnded, nil,
			fmt.Sprintf("Attendance session ended, %d marked", len(report.Marked)),
			map[string]any{"frames": report.Frames, "faces": report.Faces, "marked": report.Marked},
		)
	}()

	for {
		if stopped(opts.Stop) {
			report.Cancelled = true
			return report, nil
		}

		img, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				report.Cancelled = true
				return report, ctx.Err()
			}
			return report, fmt.Errorf("attendance session: %w", err)
		}
		report.Frames++
		observability.FramesProcessed.WithLabelValues("attend").Inc()

		if err := p.processFrame(ctx, img, report, opts.OnMatch); err != nil {
			return report, err
		}
	}
}

func (p *Pipeline) processFrame(ctx context.Context, img image.Image, report *SessionReport, onMatch func(recognition.Match, bool)) error {
	start := p.Now()
	regions, err := p.Detector.Detect(img)
	observability.StageDuration.WithLabelValues("detect").Observe(p.Now().Sub(start).Seconds())
	if err != nil {
		return fmt.Errorf("detecting faces: %w", err)
	}
	observability.FacesDetected.WithLabelValues("attend").Add(float64(len(regions)))

	for _, r := range regions {
		face := vision.CropGray(img, r.Rect)
		if face == nil {
			continue
		}
		report.Faces++

		start := p.Now()
		m, err := p.Recognition.Match(ctx, face)
		observability.StageDuration.WithLabelValues("match").Observe(p.Now().Sub(start).Seconds())
		if err != nil {
			return err
		}
		observability.MatchOutcomes.WithLabelValues(string(m.Outcome)).Inc()

		marked := false
		switch m.Outcome {
		case recognition.OutcomeAccepted:
			report.Accepted++
			marked, err = p.Ledger.Mark(ctx, m.IdentityID, p.Now())
			if errors.Is(err, attendance.ErrUnknownStudent) {
				// Deleted while the session was running.
				p.Logger.Warn("matched student no longer registered", "id", m.IdentityID)
				err = nil
			}
			if err != nil {
				return err
			}
			if marked {
				id := m.IdentityID
				report.Marked = append(report.Marked, id)
				observability.AttendanceMarked.Inc()
				p.record(ctx, activity.TypeAttendanceMarked, &id,
					fmt.Sprintf("Marked %s (%d) present", m.Name, id),
					map[string]any{"distance": m.Distance},
				)
			}
		case recognition.OutcomeRejected:
			report.Rejected++
		case recognition.OutcomeUnresolved:
			report.Unresolved++
		}
		p.Logger.Debug("face matched", "id", m.IdentityID, "distance", m.Distance, "outcome", m.Outcome, "marked", marked)

		if onMatch != nil {
			onMatch(m, marked)
		}
	}
	return nil
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
