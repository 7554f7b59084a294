package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ROLLCALL_CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "attendance.db", cfg.DB.Path)
	require.Equal(t, "dataset", cfg.Dataset.Dir)
	require.Equal(t, 50, cfg.Dataset.Quota)
	require.Equal(t, "trainer/trainer.yml", cfg.Trainer.Path)
	require.Equal(t, "exports", cfg.Export.Dir)
	require.Equal(t, float64(70), cfg.Vision.AcceptThreshold)
	require.False(t, cfg.MinIO.Enabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rollcall.yml")
	data := []byte(`
db:
  path: /var/lib/rollcall/rollcall.db
camera:
  source: dir
  device: /tmp/frames
  frame_timeout: 3s
vision:
  accept_threshold: 55
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("ROLLCALL_CONFIG_PATH", path)
	t.Setenv("ROLLCALL_SAMPLE_QUOTA", "20")
	t.Setenv("ROLLCALL_DB_PATH", "override.db")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "override.db", cfg.DB.Path)
	require.Equal(t, "dir", cfg.Camera.Source)
	require.Equal(t, "/tmp/frames", cfg.Camera.Device)
	require.Equal(t, 3*time.Second, cfg.Camera.FrameTimeout)
	require.Equal(t, float64(55), cfg.Vision.AcceptThreshold)
	require.Equal(t, 20, cfg.Dataset.Quota)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("ROLLCALL_CONFIG_PATH", "")
	t.Setenv("ROLLCALL_ACCEPT_THRESHOLD", "seventy")

	_, err := Load()
	require.ErrorContains(t, err, "ROLLCALL_ACCEPT_THRESHOLD")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Dataset.Quota = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Camera.Source = "webcam"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Vision.Detector = "haar"
	require.Error(t, cfg.Validate())
}
