package pipeline_test

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/rollcall/internal/camera"
	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/dataset"
	"github.com/rpggio/rollcall/internal/domain/deletion"
	"github.com/rpggio/rollcall/internal/domain/identity"
	"github.com/rpggio/rollcall/internal/domain/recognition"
	"github.com/rpggio/rollcall/internal/domain/training"
	"github.com/rpggio/rollcall/internal/pipeline"
	"github.com/rpggio/rollcall/internal/sqlite"
	"github.com/rpggio/rollcall/internal/vision/visiontest"
)

type harness struct {
	p          *pipeline.Pipeline
	engine     *visiontest.Engine
	datasetDir string
	activity   *activity.Service
	now        time.Time
}

func newHarness(t *testing.T, quota int, opts recognition.Options) *harness {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	h := &harness{
		engine:     visiontest.New(40),
		datasetDir: filepath.Join(root, "dataset"),
		now:        time.Date(2024, 3, 5, 8, 30, 0, 0, time.Local),
	}

	students := sqlite.NewStudentRepository(db)
	registry := identity.NewService(students, nil)
	samples := dataset.NewManager(dataset.NewFileStore(h.datasetDir, nil), h.engine, quota, nil)
	trainer := training.NewTrainer(samples, h.engine, training.NewFileStore(filepath.Join(root, "trainer", "trainer.yml")), nil)
	recog := recognition.NewEngine(trainer, registry, h.engine, h.engine, opts, nil)
	ledger := attendance.NewService(sqlite.NewAttendanceRepository(db), nil)
	h.activity = activity.NewService(sqlite.NewActivityRepository(db), nil)

	notifier := &dataset.Notifier{}
	h.p = pipeline.New(pipeline.Components{
		Registry:    registry,
		Dataset:     samples,
		Trainer:     trainer,
		Recognition: recog,
		Ledger:      ledger,
		Deletion:    deletion.NewCoordinator(students, samples, notifier, nil),
		Activity:    h.activity,
		Detector:    h.engine,
		Now:         func() time.Time { return h.now },
	})
	notifier.Subscribe(h.p)
	return h
}

func frames(n int, label uint8) camera.Source {
	imgs := make([]image.Image, n)
	for i := range imgs {
		imgs[i] = visiontest.Frame(label)
	}
	return camera.NewFrames(imgs...)
}

func (h *harness) enroll(t *testing.T, id int64, name string, n int) *pipeline.EnrollResult {
	t.Helper()
	res, err := h.p.Enroll(context.Background(), id, name, frames(n, uint8(id)), dataset.CaptureOptions{})
	require.NoError(t, err)
	return res
}

// Scenario A
func TestEnrollThenAttend(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 50, recognition.Options{})

	res := h.enroll(t, 7, "Alice", 60)
	require.True(t, res.Created)
	require.Equal(t, 50, res.Capture.Stored)
	require.Equal(t, []int64{7}, res.Model.OwnerIDs)

	var matches []recognition.Match
	var marks []bool
	report, err := h.p.RunAttendance(ctx, frames(2, 7), pipeline.SessionOptions{
		OnMatch: func(m recognition.Match, marked bool) {
			matches = append(matches, m)
			marks = append(marks, marked)
		},
	})
	require.NoError(t, err)
	require.Equal(t, recognition.StatusFresh, report.Status)
	require.Equal(t, []int64{7}, report.Marked)
	require.Equal(t, 2, report.Accepted)
	require.Equal(t, []bool{true, false}, marks)
	require.Equal(t, "Alice", matches[0].Name)

	recs, err := h.p.Ledger.QueryByDate(ctx, "2024-03-05")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, int64(7), recs[0].StudentID)
	require.Equal(t, "08:30:00", recs[0].Timestamp)
}

// Scenario B
func TestDeleteAfterAttendance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5, recognition.Options{})
	h.enroll(t, 7, "Alice", 5)

	_, err := h.p.RunAttendance(ctx, frames(1, 7), pipeline.SessionOptions{})
	require.NoError(t, err)

	res, err := h.p.DeleteIdentity(ctx, 7)
	require.NoError(t, err)
	require.True(t, res.Existed)
	require.Equal(t, int64(1), res.AttendanceRemoved)
	require.Equal(t, 5, res.SamplesRemoved)
	require.True(t, res.Stale)
	require.Equal(t, []int64{7}, res.Model.OwnerIDs)

	history, err := h.p.Ledger.History(ctx, 7)
	require.NoError(t, err)
	require.Empty(t, history)

	leftovers, err := filepath.Glob(filepath.Join(h.datasetDir, "user.7.*.jpg"))
	require.NoError(t, err)
	require.Empty(t, leftovers)

	// Retraining found no samples, so the old model still lists 7.
	m, err := h.p.Trainer.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{7}, m.OwnerIDs)

	var matches []recognition.Match
	report, err := h.p.RunAttendance(ctx, frames(1, 7), pipeline.SessionOptions{
		OnMatch: func(m recognition.Match, _ bool) { matches = append(matches, m) },
	})
	require.NoError(t, err)
	require.Equal(t, recognition.StatusStale, report.Status)
	require.Empty(t, report.Marked)
	require.Len(t, matches, 1)
	require.Equal(t, recognition.OutcomeUnresolved, matches[0].Outcome)
	require.Equal(t, recognition.UnknownName, matches[0].Name)
}

func TestDeleteRetrainsRemainingStudents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 3, recognition.Options{})
	h.enroll(t, 3, "Bob", 3)
	h.enroll(t, 7, "Alice", 3)
	before := h.engine.TrainCount()

	res, err := h.p.DeleteIdentity(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, before+1, h.engine.TrainCount())
	require.False(t, res.Stale)
	require.Equal(t, []int64{3}, res.Model.OwnerIDs)

	m, err := h.p.Trainer.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{3}, m.OwnerIDs)

	status, err := h.p.Recognition.Prepare(ctx)
	require.NoError(t, err)
	require.Equal(t, recognition.StatusFresh, status)
}

func TestDeleteUnknownIsQuiet(t *testing.T) {
	h := newHarness(t, 3, recognition.Options{})
	res, err := h.p.DeleteIdentity(context.Background(), 99)
	require.NoError(t, err)
	require.False(t, res.Existed)
	require.Zero(t, h.engine.TrainCount())
}

// Scenario C
func TestQueryEmptyDay(t *testing.T) {
	h := newHarness(t, 3, recognition.Options{})
	recs, err := h.p.Ledger.QueryByDate(context.Background(), "2024-01-01")
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestAttendRejectsAtThreshold(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2, recognition.Options{Threshold: 70})
	h.enroll(t, 7, "Alice", 2)
	h.engine.SetDistance(7, 70)

	report, err := h.p.RunAttendance(ctx, frames(1, 7), pipeline.SessionOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, report.Rejected)
	require.Empty(t, report.Marked)
}

func TestAttendWithoutModel(t *testing.T) {
	h := newHarness(t, 2, recognition.Options{})
	_, err := h.p.RunAttendance(context.Background(), frames(1, 7), pipeline.SessionOptions{})
	require.ErrorIs(t, err, training.ErrModelNotFound)
}

func TestAttendRefusesStaleModel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2, recognition.Options{RefuseStale: true})
	h.enroll(t, 7, "Alice", 2)

	_, err := h.p.Registry.Upsert(ctx, 8, "Eve")
	require.NoError(t, err)

	_, err = h.p.RunAttendance(ctx, frames(1, 8), pipeline.SessionOptions{})
	require.ErrorIs(t, err, recognition.ErrStaleModel)
}

func TestAttendStopChannel(t *testing.T) {
	h := newHarness(t, 2, recognition.Options{})
	h.enroll(t, 7, "Alice", 2)

	stop := make(chan struct{})
	close(stop)
	report, err := h.p.RunAttendance(context.Background(), frames(5, 7), pipeline.SessionOptions{Stop: stop})
	require.NoError(t, err)
	require.True(t, report.Cancelled)
	require.Zero(t, report.Frames)
}

func TestEnrollWithoutFaces(t *testing.T) {
	h := newHarness(t, 2, recognition.Options{})
	res, err := h.p.Enroll(context.Background(), 7, "Alice", frames(3, visiontest.Blank), dataset.CaptureOptions{})
	require.ErrorIs(t, err, training.ErrEmptyDataset)
	require.Zero(t, res.Capture.Stored)
	require.True(t, res.Created)
}

func TestReenrollRenamesAndReplacesSamples(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 4, recognition.Options{})
	h.enroll(t, 7, "Alice", 4)

	res, err := h.p.Enroll(ctx, 7, "Alicia", frames(2, 7), dataset.CaptureOptions{Quota: 2})
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Equal(t, 2, res.Model.SampleCount)

	ident, err := h.p.Registry.Lookup(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "Alicia", ident.Name)

	entries, err := os.ReadDir(h.datasetDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestActivityJournal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2, recognition.Options{})
	h.enroll(t, 7, "Alice", 2)
	_, err := h.p.RunAttendance(ctx, frames(1, 7), pipeline.SessionOptions{})
	require.NoError(t, err)

	id := int64(7)
	entries, err := h.activity.GetRecentActivity(ctx, activity.ListActivityOptions{StudentID: &id})
	require.NoError(t, err)

	var types []activity.ActivityType
	for _, e := range entries {
		types = append(types, e.ActivityType)
	}
	require.ElementsMatch(t, []activity.ActivityType{
		activity.TypeStudentEnrolled,
		activity.TypeSamplesCaptured,
		activity.TypeAttendanceMarked,
	}, types)
}
