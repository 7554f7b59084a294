// Package camera provides frame sources for enrollment and attendance.
package camera

import (
	"context"
	"errors"
	"image"
	"io"
)

// ErrFrame is returned when a frame could not be obtained. Callers treat it
// as fatal for the current capture or session.
var ErrFrame = errors.New("camera frame unavailable")

// Source yields frames. Next returns io.EOF when a finite source is exhausted.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// Frames is an in-memory source that replays imgs once.
type Frames struct {
	imgs []image.Image
	pos  int
}

// NewFrames creates an in-memory source.
func NewFrames(imgs ...image.Image) *Frames {
	return &Frames{imgs: imgs}
}

// Next returns the next image or io.EOF.
func (f *Frames) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.pos >= len(f.imgs) {
		return nil, io.EOF
	}
	img := f.imgs[f.pos]
	f.pos++
	return img, nil
}

// Close is a no-op.
func (f *Frames) Close() error { return nil }
