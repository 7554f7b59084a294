package cli

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"

	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/export"
)

type workspace struct {
	root   string
	frames string
}

// newWorkspace points the configuration at a temp dir and replays frames
// from a directory instead of a camera.
func newWorkspace(t *testing.T, frames int) *workspace {
	t.Helper()
	root := t.TempDir()
	w := &workspace{root: root, frames: filepath.Join(root, "frames")}
	require.NoError(t, os.MkdirAll(w.frames, 0o755))

	for i := 0; i < frames; i++ {
		img := image.NewGray(image.Rect(0, 0, 120, 120))
		draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 128}), image.Point{}, draw.Src)
		f, err := os.Create(filepath.Join(w.frames, fmt.Sprintf("frame%03d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}

	t.Setenv("ROLLCALL_CONFIG_PATH", "")
	t.Setenv("ROLLCALL_DB_PATH", filepath.Join(root, "attendance.db"))
	t.Setenv("ROLLCALL_DATASET_DIR", filepath.Join(root, "dataset"))
	t.Setenv("ROLLCALL_TRAINER_PATH", filepath.Join(root, "trainer", "trainer.yml"))
	t.Setenv("ROLLCALL_EXPORT_DIR", filepath.Join(root, "exports"))
	t.Setenv("ROLLCALL_CAMERA_SOURCE", "dir")
	t.Setenv("ROLLCALL_CAMERA_DEVICE", w.frames)
	t.Setenv("ROLLCALL_DETECTOR", "fullframe")
	t.Setenv("ROLLCALL_LOG_LEVEL", "error")
	t.Setenv("ROLLCALL_LOG_PATH", filepath.Join(root, "rollcall.log"))
	return w
}

func run(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), args, Streams{In: strings.NewReader(""), Out: &out, Err: &errOut})
	return code, out.String() + errOut.String()
}

func TestEnrollAttendExportDelete(t *testing.T) {
	w := newWorkspace(t, 3)

	code, out := run(t, "list")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "No students registered.")

	code, out = run(t, "enroll", "7", "Alice", "Smith")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "New student added to database.")
	require.Contains(t, out, "Captured 3 images.")
	require.Contains(t, out, "Training completed on 3 samples of 1 students")

	code, out = run(t, "list")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "Alice Smith")

	code, out = run(t, "attend")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "[ATTENDANCE] Marked for Alice Smith")
	require.Equal(t, 1, strings.Count(out, "[ATTENDANCE]"))

	code, out = run(t, "today")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "Alice Smith")

	code, out = run(t, "export")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "Attendance exported to")
	require.FileExists(t, filepath.Join(w.root, "exports", export.FileName(attendance.Day(time.Now()))))

	code, out = run(t, "delete", "7")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "Student 7 deleted successfully: 3 photos and 1 attendance records removed.")
	require.Contains(t, out, "the model still lists student 7 and is stale")
	require.NotContains(t, out, "Model retrained")

	code, out = run(t, "delete", "7")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "No student with ID 7; nothing deleted.")

	// The model still lists 7, so the session runs on a stale model and
	// marks no one.
	code, out = run(t, "attend")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "[WARN] Model does not match the registered students")
	require.NotContains(t, out, "[ATTENDANCE]")

	code, out = run(t, "activity", "--student", "7")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "identity_deleted")
}

func TestAttendWithoutModelFails(t *testing.T) {
	newWorkspace(t, 1)
	code, out := run(t, "attend")
	require.Equal(t, ExitFailure, code)
	require.Contains(t, out, "trainer file not found")
}

func TestEnrollWithoutFacesFails(t *testing.T) {
	newWorkspace(t, 0)
	code, out := run(t, "enroll", "7", "Alice")
	require.Equal(t, ExitFailure, code)
	require.Contains(t, out, "Captured 0 images.")
	require.Contains(t, out, "no faces found in dataset")
}

func TestCommandErrors(t *testing.T) {
	newWorkspace(t, 0)

	code, _ := run(t, "delete", "abc")
	require.Equal(t, ExitCommandError, code)

	code, _ = run(t, "delete")
	require.Equal(t, ExitCommandError, code)

	code, _ = run(t, "enroll", "0", "Nobody")
	require.Equal(t, ExitCommandError, code)

	code, _ = run(t, "export", "2024-13-45")
	require.Equal(t, ExitCommandError, code)
}

func TestExportEmptyDay(t *testing.T) {
	newWorkspace(t, 0)
	code, out := run(t, "export", "2024-01-01")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "No attendance data for that date.")
}

func TestInvalidConfiguration(t *testing.T) {
	newWorkspace(t, 0)
	t.Setenv("ROLLCALL_CAMERA_SOURCE", "webcam")
	code, out := run(t, "list")
	require.Equal(t, ExitCommandError, code)
	require.Contains(t, out, "invalid configuration")
}

func TestMenuExitsZero(t *testing.T) {
	newWorkspace(t, 0)
	var out bytes.Buffer
	code := Execute(context.Background(), []string{}, Streams{In: strings.NewReader("3\nabc\n\n4\n"), Out: &out, Err: &out})
	require.Equal(t, ExitSuccess, code)
	require.Contains(t, out.String(), "Delete cancelled.")
}

func TestDeleteWithRemainingStudentsRetrains(t *testing.T) {
	newWorkspace(t, 2)

	code, out := run(t, "enroll", "3", "Bob")
	require.Equal(t, ExitSuccess, code, out)
	code, out = run(t, "enroll", "7", "Alice")
	require.Equal(t, ExitSuccess, code, out)

	code, out = run(t, "delete", "7")
	require.Equal(t, ExitSuccess, code, out)
	require.Contains(t, out, "Model retrained so this student is no longer recognized.")
	require.NotContains(t, out, "stale")
}
