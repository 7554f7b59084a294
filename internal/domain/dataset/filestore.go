package dataset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rpggio/rollcall/internal/vision"
)

const jpegQuality = 95

// FileStore keeps samples as dataset/user.<ownerId>.<sequence>.jpg.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{dir: dir, logger: logger}
}

// FileName returns the sample file name for an owner and sequence.
func FileName(ownerID int64, seq int) string {
	return fmt.Sprintf("user.%d.%d.jpg", ownerID, seq)
}

// ParseFileName extracts owner and sequence from a sample file name.
func ParseFileName(name string) (int64, int, bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 4 || parts[0] != "user" || parts[3] != "jpg" {
		return 0, 0, false
	}
	owner, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || owner <= 0 {
		return 0, 0, false
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq <= 0 {
		return 0, 0, false
	}
	return owner, seq, true
}

// Index scans the directory once. Files that do not follow the naming
// scheme are skipped with a warning. A missing directory is an empty index.
func (s *FileStore) Index(ctx context.Context) (Index, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset dir: %w", err)
	}

	ix := make(Index, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		owner, seq, ok := ParseFileName(e.Name())
		if !ok {
			s.logger.Warn("skipping unrecognised dataset file", "file", e.Name())
			continue
		}
		ref := SampleRef{OwnerID: owner, Sequence: seq, Path: filepath.Join(s.dir, e.Name())}
		ix[ref.Key()] = ref
	}
	return ix, nil
}

// Put writes img as JPEG, replacing any sample with the same key.
func (s *FileStore) Put(ctx context.Context, ownerID int64, seq int, img *image.Gray) (SampleRef, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return SampleRef{}, fmt.Errorf("failed to create dataset dir: %w", err)
	}
	ref := SampleRef{OwnerID: ownerID, Sequence: seq, Path: filepath.Join(s.dir, FileName(ownerID, seq))}

	f, err := os.Create(ref.Path)
	if err != nil {
		return SampleRef{}, fmt.Errorf("failed to create sample: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		return SampleRef{}, fmt.Errorf("failed to encode sample: %w", err)
	}
	if err := f.Close(); err != nil {
		return SampleRef{}, fmt.Errorf("failed to write sample: %w", err)
	}
	return ref, nil
}

// Load decodes a sample as grayscale.
func (s *FileStore) Load(ctx context.Context, ref SampleRef) (*image.Gray, error) {
	f, err := os.Open(ref.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSampleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open sample: %w", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sample %s: %w", filepath.Base(ref.Path), err)
	}
	return vision.Gray(img), nil
}

// Remove deletes a sample file. A missing file is not an error.
func (s *FileStore) Remove(ctx context.Context, ref SampleRef) error {
	if err := os.Remove(ref.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove sample: %w", err)
	}
	return nil
}
