package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines rollcall configuration.
type Config struct {
	DB      DBConfig      `yaml:"db"`
	Dataset DatasetConfig `yaml:"dataset"`
	Trainer TrainerConfig `yaml:"trainer"`
	Export  ExportConfig  `yaml:"export"`
	Camera  CameraConfig  `yaml:"camera"`
	Vision  VisionConfig  `yaml:"vision"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	MinIO   MinIOConfig   `yaml:"minio"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type DatasetConfig struct {
	Dir   string `yaml:"dir"`
	Quota int    `yaml:"quota"`
}

type TrainerConfig struct {
	Path string `yaml:"path"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// CameraConfig selects the frame source. Source is "ffmpeg" (Device is a
// v4l2 device or a stream URL) or "dir" (Device is a directory of frames).
type CameraConfig struct {
	Source       string        `yaml:"source"`
	Device       string        `yaml:"device"`
	FPS          int           `yaml:"fps"`
	Width        int           `yaml:"width"`
	FrameTimeout time.Duration `yaml:"frame_timeout"`
}

type VisionConfig struct {
	Detector           string  `yaml:"detector"` // "fullframe" or "retinaface"
	DetectorModel      string  `yaml:"detector_model"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
	MinFaceSize        int     `yaml:"min_face_size"`
	ONNXLibPath        string  `yaml:"onnx_lib_path"`
	AcceptThreshold    float64 `yaml:"accept_threshold"`
	RefuseStale        bool    `yaml:"refuse_stale"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether exports should be archived to object storage.
func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != "" && m.Bucket != ""
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DB: DBConfig{
			Path: "attendance.db",
		},
		Dataset: DatasetConfig{
			Dir:   "dataset",
			Quota: 50,
		},
		Trainer: TrainerConfig{
			Path: "trainer/trainer.yml",
		},
		Export: ExportConfig{
			Dir: "exports",
		},
		Camera: CameraConfig{
			Source:       "ffmpeg",
			Device:       "/dev/video0",
			FPS:          10,
			Width:        640,
			FrameTimeout: 10 * time.Second,
		},
		Vision: VisionConfig{
			Detector:           "fullframe",
			DetectorModel:      "models/det_10g.onnx",
			DetectionThreshold: 0.5,
			MinFaceSize:        100,
			AcceptThreshold:    70,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("ROLLCALL_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that would otherwise fail deep inside a session.
func (c Config) Validate() error {
	if c.Dataset.Quota <= 0 {
		return fmt.Errorf("dataset quota must be positive, got %d", c.Dataset.Quota)
	}
	if c.Vision.AcceptThreshold <= 0 {
		return fmt.Errorf("accept threshold must be positive, got %v", c.Vision.AcceptThreshold)
	}
	switch c.Camera.Source {
	case "ffmpeg", "dir":
	default:
		return fmt.Errorf("unknown camera source %q", c.Camera.Source)
	}
	switch c.Vision.Detector {
	case "fullframe", "retinaface":
	default:
		return fmt.Errorf("unknown detector %q", c.Vision.Detector)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"ROLLCALL_DB_PATH":          &cfg.DB.Path,
		"ROLLCALL_DATASET_DIR":      &cfg.Dataset.Dir,
		"ROLLCALL_TRAINER_PATH":     &cfg.Trainer.Path,
		"ROLLCALL_EXPORT_DIR":       &cfg.Export.Dir,
		"ROLLCALL_CAMERA_SOURCE":    &cfg.Camera.Source,
		"ROLLCALL_CAMERA_DEVICE":    &cfg.Camera.Device,
		"ROLLCALL_DETECTOR":         &cfg.Vision.Detector,
		"ROLLCALL_DETECTOR_MODEL":   &cfg.Vision.DetectorModel,
		"ROLLCALL_ONNX_LIB":         &cfg.Vision.ONNXLibPath,
		"ROLLCALL_LOG_LEVEL":        &cfg.Log.Level,
		"ROLLCALL_LOG_PATH":         &cfg.Log.Path,
		"ROLLCALL_METRICS_ADDR":     &cfg.Metrics.Addr,
		"ROLLCALL_MINIO_ENDPOINT":   &cfg.MinIO.Endpoint,
		"ROLLCALL_MINIO_ACCESS_KEY": &cfg.MinIO.AccessKey,
		"ROLLCALL_MINIO_SECRET_KEY": &cfg.MinIO.SecretKey,
		"ROLLCALL_MINIO_BUCKET":     &cfg.MinIO.Bucket,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("ROLLCALL_SAMPLE_QUOTA"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ROLLCALL_SAMPLE_QUOTA: %w", err)
		}
		cfg.Dataset.Quota = n
	}
	if v := os.Getenv("ROLLCALL_CAMERA_FPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ROLLCALL_CAMERA_FPS: %w", err)
		}
		cfg.Camera.FPS = n
	}
	if v := os.Getenv("ROLLCALL_CAMERA_FRAME_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ROLLCALL_CAMERA_FRAME_TIMEOUT: %w", err)
		}
		cfg.Camera.FrameTimeout = d
	}
	if v := os.Getenv("ROLLCALL_ACCEPT_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid ROLLCALL_ACCEPT_THRESHOLD: %w", err)
		}
		cfg.Vision.AcceptThreshold = f
	}
	if v := os.Getenv("ROLLCALL_REFUSE_STALE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ROLLCALL_REFUSE_STALE: %w", err)
		}
		cfg.Vision.RefuseStale = b
	}
	if v := os.Getenv("ROLLCALL_MINIO_USE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ROLLCALL_MINIO_USE_SSL: %w", err)
		}
		cfg.MinIO.UseSSL = b
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
