package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/dataset"
	"github.com/rpggio/rollcall/internal/domain/deletion"
	"github.com/rpggio/rollcall/internal/domain/identity"
	"github.com/rpggio/rollcall/internal/domain/recognition"
	"github.com/rpggio/rollcall/internal/domain/training"
	"github.com/rpggio/rollcall/internal/export"
	"github.com/rpggio/rollcall/internal/pipeline"
)

// operator performs the rollcall operations against an App and prints
// progress for a human at a terminal.
type operator struct {
	app *App
	out io.Writer
	now func() time.Time

	appendSamples bool
}

func newOperator(app *App, out io.Writer) *operator {
	return &operator{app: app, out: out, now: time.Now}
}

func (o *operator) Enroll(ctx context.Context, id int64, name string, stop <-chan struct{}) error {
	src, err := o.app.OpenSource(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open camera", err)
	}
	defer src.Close()

	quota := o.app.Config.Dataset.Quota
	bar := newCaptureBar(quota, o.out)
	fmt.Fprintf(o.out, "[INFO] Starting face capture for student %d. Look at the camera...\n", id)

	res, err := o.app.Pipeline.Enroll(ctx, id, name, src, dataset.CaptureOptions{
		Quota:  quota,
		Append: o.appendSamples,
		Stop:   stop,
		OnSample: func(dataset.SampleRef) {
			_ = bar.Add(1)
		},
	})
	_ = bar.Finish()
	fmt.Fprintln(o.out)

	if errors.Is(err, identity.ErrInvalidInput) {
		return WrapExitError(ExitCommandError, "invalid student", err)
	}
	if res != nil {
		if res.Created {
			fmt.Fprintln(o.out, "[INFO] New student added to database.")
		} else {
			fmt.Fprintln(o.out, "[INFO] Student name updated in database.")
		}
		if res.Capture != nil {
			fmt.Fprintf(o.out, "[INFO] Captured %d images.\n", res.Capture.Stored)
		}
	}
	switch {
	case errors.Is(err, training.ErrEmptyDataset):
		return WrapExitError(ExitFailure, "no faces found in dataset", err)
	case err != nil:
		return err
	}
	o.printModel(res.Model)
	return nil
}

func newCaptureBar(quota int, out io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(quota,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Capturing faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func (o *operator) Train(ctx context.Context) error {
	fmt.Fprintln(o.out, "[INFO] Training faces. This may take a few seconds...")
	m, err := o.app.Pipeline.Retrain(ctx)
	if errors.Is(err, training.ErrEmptyDataset) {
		return WrapExitError(ExitFailure, "no faces found in dataset", err)
	}
	if err != nil {
		return err
	}
	o.printModel(m)
	return nil
}

func (o *operator) printModel(m *training.Model) {
	if m == nil {
		return
	}
	fmt.Fprintf(o.out, "[INFO] Training completed on %d samples of %d students. Model saved at %s\n",
		m.SampleCount, len(m.OwnerIDs), o.app.Config.Trainer.Path)
}

func (o *operator) Attend(ctx context.Context, stop <-chan struct{}) error {
	src, err := o.app.OpenSource(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open camera", err)
	}
	defer src.Close()

	report, err := o.app.Pipeline.RunAttendance(ctx, src, pipeline.SessionOptions{
		Stop: stop,
		OnMatch: func(m recognition.Match, marked bool) {
			if marked {
				fmt.Fprintf(o.out, "[ATTENDANCE] Marked for %s\n", m.Name)
			}
		},
	})
	switch {
	case errors.Is(err, training.ErrModelNotFound):
		return WrapExitError(ExitFailure, "trainer file not found, enroll a student or run train first", err)
	case errors.Is(err, recognition.ErrStaleModel):
		return WrapExitError(ExitFailure, "model is out of date, run train first", err)
	case errors.Is(err, context.Canceled):
		err = nil
	}
	if report != nil && err == nil {
		if report.Status == recognition.StatusStale {
			fmt.Fprintln(o.out, "[WARN] Model does not match the registered students; run train to refresh it.")
		}
		fmt.Fprintf(o.out, "[INFO] %d frames, %d faces, %d students marked present.\n",
			report.Frames, report.Faces, len(report.Marked))
	}
	return err
}

func (o *operator) Delete(ctx context.Context, id int64) error {
	res, err := o.app.Pipeline.DeleteIdentity(ctx, id)
	if errors.Is(err, deletion.ErrInvalidInput) {
		return WrapExitError(ExitCommandError, "invalid student", err)
	}
	if res != nil {
		if res.Nothing() {
			fmt.Fprintf(o.out, "[INFO] No student with ID %d; nothing deleted.\n", id)
		} else {
			fmt.Fprintf(o.out, "[INFO] Student %d deleted successfully: %d photos and %d attendance records removed.\n",
				id, res.SamplesRemoved, res.AttendanceRemoved)
		}
	}
	if err != nil {
		return err
	}
	switch {
	case res == nil || res.Nothing() || res.Model == nil:
	case res.Stale:
		fmt.Fprintf(o.out, "[WARN] No face samples left to retrain on; the model still lists student %d and is stale until the next enrollment.\n", id)
	default:
		fmt.Fprintln(o.out, "[INFO] Model retrained so this student is no longer recognized.")
	}
	return nil
}

func (o *operator) ExportToday(ctx context.Context) error {
	return o.Export(ctx, attendance.Day(o.now()))
}

func (o *operator) Export(ctx context.Context, date string) error {
	res, err := o.app.Exporter.Export(ctx, date)
	switch {
	case errors.Is(err, export.ErrNoRows):
		fmt.Fprintln(o.out, "[INFO] No attendance data for that date.")
		return nil
	case errors.Is(err, attendance.ErrInvalidDate):
		return WrapExitError(ExitCommandError, "invalid date, expected YYYY-MM-DD", err)
	case err != nil:
		return err
	}
	fmt.Fprintf(o.out, "[INFO] Attendance exported to %s (%d rows)\n", res.Path, res.Rows)
	if res.Archived {
		fmt.Fprintln(o.out, "[INFO] Export archived to object storage.")
	}
	return nil
}

func (o *operator) List(ctx context.Context) error {
	idents, err := o.app.Pipeline.Registry.List(ctx)
	if err != nil {
		return err
	}
	if len(idents) == 0 {
		fmt.Fprintln(o.out, "No students registered.")
		return nil
	}

	w := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	fmt.Fprintln(w, "--\t----")
	for _, ident := range idents {
		fmt.Fprintf(w, "%d\t%s\n", ident.ID, ident.Name)
	}
	return w.Flush()
}

func (o *operator) Day(ctx context.Context, date string) error {
	recs, err := o.app.Pipeline.Ledger.QueryByDate(ctx, date)
	if errors.Is(err, attendance.ErrInvalidDate) {
		return WrapExitError(ExitCommandError, "invalid date, expected YYYY-MM-DD", err)
	}
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(o.out, "[INFO] No attendance data for that date.")
		return nil
	}

	w := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tNAME\tTIME")
	fmt.Fprintln(w, "-------\t----\t----")
	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.StudentID, r.Name, r.Timestamp)
	}
	return w.Flush()
}

func (o *operator) Activity(ctx context.Context, opts activity.ListActivityOptions) error {
	entries, err := o.app.Activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(o.out, "No activity recorded.")
		return nil
	}

	w := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tSUMMARY")
	fmt.Fprintln(w, "----\t----\t-------")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.ActivityType, e.Summary)
	}
	return w.Flush()
}
