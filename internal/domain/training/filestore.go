package training

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type modelFile struct {
	Version     string    `yaml:"version"`
	TrainedAt   time.Time `yaml:"trained_at"`
	OwnerIDs    []int64   `yaml:"owner_ids"`
	Fingerprint string    `yaml:"fingerprint"`
	SampleCount int       `yaml:"sample_count"`
	Data        string    `yaml:"data"`
}

// FileStore keeps the model as a YAML document at one path.
type FileStore struct {
	path string
}

// NewFileStore creates a store for path, typically trainer/trainer.yml.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the model. A missing file yields ErrModelNotFound.
func (s *FileStore) Load(ctx context.Context) (*Model, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var f modelFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", s.path, err)
	}
	data, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, fmt.Errorf("decode model data: %w", err)
	}
	return &Model{
		Version:     f.Version,
		TrainedAt:   f.TrainedAt,
		OwnerIDs:    f.OwnerIDs,
		Fingerprint: f.Fingerprint,
		SampleCount: f.SampleCount,
		Data:        data,
	}, nil
}

// Save writes the model to a temp file and renames it over the slot, so a
// reader never sees a partial model.
func (s *FileStore) Save(ctx context.Context, m *Model) error {
	raw, err := yaml.Marshal(modelFile{
		Version:     m.Version,
		TrainedAt:   m.TrainedAt,
		OwnerIDs:    m.OwnerIDs,
		Fingerprint: m.Fingerprint,
		SampleCount: m.SampleCount,
		Data:        base64.StdEncoding.EncodeToString(m.Data),
	})
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".trainer-*.yml")
	if err != nil {
		return fmt.Errorf("create temp model: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp model: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace model: %w", err)
	}
	return nil
}
