package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestFileWriterKeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rollcall.log")
	w, err := newFileWriter(path, 100, 40)
	require.NoError(t, err)
	defer w.file.Close()

	_, err = w.Write(bytes.Repeat([]byte("a"), 90))
	require.NoError(t, err)
	_, err = w.Write([]byte(strings.Repeat("b", 20)))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 40)
	require.True(t, strings.HasSuffix(string(data), strings.Repeat("b", 20)))

	_, err = w.Write([]byte("c"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 41)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollcall.log")
	logger, closeFn, err := New("debug", path)
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "msg=hello")
}
