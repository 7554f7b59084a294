package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/rollcall/internal/camera"
	"github.com/rpggio/rollcall/internal/config"
	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/dataset"
	"github.com/rpggio/rollcall/internal/domain/deletion"
	"github.com/rpggio/rollcall/internal/domain/identity"
	"github.com/rpggio/rollcall/internal/domain/recognition"
	"github.com/rpggio/rollcall/internal/domain/training"
	"github.com/rpggio/rollcall/internal/export"
	"github.com/rpggio/rollcall/internal/observability"
	"github.com/rpggio/rollcall/internal/pipeline"
	"github.com/rpggio/rollcall/internal/sqlite"
	"github.com/rpggio/rollcall/internal/vision"
	"github.com/rpggio/rollcall/internal/vision/lbph"
	"github.com/rpggio/rollcall/internal/vision/retinaface"
)

// App holds the services of one rollcall process.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Pipeline *pipeline.Pipeline
	Exporter *export.Exporter
	Activity *activity.Service

	closers []func() error
}

// NewApp opens the database and model files named by cfg and wires the
// services. The metrics endpoint, when configured, runs until ctx ends.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	app := &App{Config: cfg, Logger: logger}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.closers = append(app.closers, db.Close)

	if err := db.RunMigrations(); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	detector, err := app.openDetector()
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	codec := lbph.New(lbph.DefaultOptions())
	engine := vision.NewEngine(detector, codec)

	students := sqlite.NewStudentRepository(db)
	registry := identity.NewService(students, logger)
	samples := dataset.NewManager(dataset.NewFileStore(cfg.Dataset.Dir, logger), engine, cfg.Dataset.Quota, logger)
	trainer := training.NewTrainer(samples, engine, training.NewFileStore(cfg.Trainer.Path), logger)
	recog := recognition.NewEngine(trainer, registry, engine, codec, recognition.Options{
		Threshold:   cfg.Vision.AcceptThreshold,
		RefuseStale: cfg.Vision.RefuseStale,
	}, logger)
	ledger := attendance.NewService(sqlite.NewAttendanceRepository(db), logger)
	app.Activity = activity.NewService(sqlite.NewActivityRepository(db), logger)

	notifier := &dataset.Notifier{}
	app.Pipeline = pipeline.New(pipeline.Components{
		Registry:    registry,
		Dataset:     samples,
		Trainer:     trainer,
		Recognition: recog,
		Ledger:      ledger,
		Deletion:    deletion.NewCoordinator(students, samples, notifier, logger),
		Activity:    app.Activity,
		Detector:    engine,
		Logger:      logger,
	})
	notifier.Subscribe(app.Pipeline)

	var archive export.Archiver
	if cfg.MinIO.Enabled() {
		a, err := export.NewMinIOArchive(cfg.MinIO)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		archive = a
	}
	app.Exporter = export.NewExporter(ledger, cfg.Export.Dir, archive, logger)

	observability.Serve(ctx, cfg.Metrics.Addr, logger)
	return app, nil
}

func (a *App) openDetector() (vision.Detector, error) {
	v := a.Config.Vision
	if v.Detector != "retinaface" {
		return vision.FullFrame{MinSize: v.MinFaceSize}, nil
	}

	if err := retinaface.Init(v.ONNXLibPath); err != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", err)
	}
	det, err := retinaface.New(v.DetectorModel, float32(v.DetectionThreshold), v.MinFaceSize)
	if err != nil {
		_ = retinaface.Shutdown()
		return nil, fmt.Errorf("load face detector: %w", err)
	}
	a.closers = append(a.closers, func() error {
		det.Close()
		return retinaface.Shutdown()
	})
	a.Logger.Info("face detector loaded", "model", v.DetectorModel)
	return det, nil
}

// OpenSource opens the configured camera.
func (a *App) OpenSource(ctx context.Context) (camera.Source, error) {
	c := a.Config.Camera
	switch c.Source {
	case "dir":
		src, err := camera.OpenDir(c.Device)
		if err != nil {
			return nil, fmt.Errorf("open frame directory: %w", err)
		}
		return src, nil
	default:
		src, err := camera.OpenFFmpeg(ctx, camera.FFmpegOptions{
			Device:       c.Device,
			FPS:          c.FPS,
			Width:        c.Width,
			FrameTimeout: c.FrameTimeout,
			Logger:       a.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open camera %s: %w", c.Device, err)
		}
		return src, nil
	}
}

// Close releases everything NewApp opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
