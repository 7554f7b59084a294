// Package lbph implements a local binary pattern histogram face recognizer.
//
// Faces are scaled to a fixed square, converted to uniform LBP codes
// (radius 1, 8 neighbours) and summarised as a grid of per-cell histograms.
// Prediction is nearest neighbour under the alternative chi-square distance.
package lbph

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/rpggio/rollcall/internal/vision"
)

const bins = 59

var (
	// ErrEmptyModel is returned by Predict when the model holds no samples.
	ErrEmptyModel = errors.New("model holds no samples")
	// ErrModelType is returned when a model from another recognizer is passed in.
	ErrModelType = errors.New("model was not produced by the lbph recognizer")
)

// uniform maps an 8-bit LBP code to one of 58 uniform bins or the shared
// non-uniform bin 58.
var uniform = func() [256]uint8 {
	var table [256]uint8
	next := uint8(0)
	for code := 0; code < 256; code++ {
		transitions := 0
		for i := 0; i < 8; i++ {
			a := (code >> i) & 1
			b := (code >> ((i + 1) % 8)) & 1
			if a != b {
				transitions++
			}
		}
		if transitions <= 2 {
			table[code] = next
			next++
		} else {
			table[code] = bins - 1
		}
	}
	return table
}()

// Options sizes the face normalisation and the histogram grid.
type Options struct {
	Size  int
	GridX int
	GridY int
}

// DefaultOptions returns a 100x100 face with an 8x8 grid.
func DefaultOptions() Options {
	return Options{Size: 100, GridX: 8, GridY: 8}
}

// Recognizer implements vision.Recognizer and vision.ModelCodec.
type Recognizer struct {
	opts Options
}

// New creates a recognizer. Zero fields fall back to DefaultOptions.
func New(opts Options) *Recognizer {
	def := DefaultOptions()
	if opts.Size <= 2 {
		opts.Size = def.Size
	}
	if opts.GridX <= 0 {
		opts.GridX = def.GridX
	}
	if opts.GridY <= 0 {
		opts.GridY = def.GridY
	}
	return &Recognizer{opts: opts}
}

// Model is the trained state: one histogram per sample.
type Model struct {
	Size       int
	GridX      int
	GridY      int
	Labels     []int64
	Histograms [][]float32
}

// modelData has Model's fields without its methods, so gob encodes the
// fields instead of calling MarshalBinary again.
type modelData Model

// MarshalBinary gob-encodes the model.
func (m *Model) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode((*modelData)(m)); err != nil {
		return nil, fmt.Errorf("encode lbph model: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalModel decodes a model written by MarshalBinary.
func (r *Recognizer) UnmarshalModel(data []byte) (vision.Model, error) {
	var m Model
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode((*modelData)(&m)); err != nil {
		return nil, fmt.Errorf("decode lbph model: %w", err)
	}
	if len(m.Labels) != len(m.Histograms) {
		return nil, fmt.Errorf("decode lbph model: %d labels for %d histograms", len(m.Labels), len(m.Histograms))
	}
	return &m, nil
}

// Train computes a histogram for every sample.
func (r *Recognizer) Train(samples []vision.Sample) (vision.Model, error) {
	if len(samples) == 0 {
		return nil, vision.ErrNoSamples
	}
	m := &Model{
		Size:       r.opts.Size,
		GridX:      r.opts.GridX,
		GridY:      r.opts.GridY,
		Labels:     make([]int64, 0, len(samples)),
		Histograms: make([][]float32, 0, len(samples)),
	}
	for i, s := range samples {
		if s.Image == nil || s.Image.Bounds().Empty() {
			return nil, fmt.Errorf("sample %d for label %d has no pixels", i, s.Label)
		}
		m.Labels = append(m.Labels, s.Label)
		m.Histograms = append(m.Histograms, histogram(s.Image, m.Size, m.GridX, m.GridY))
	}
	return m, nil
}

// Predict returns the label of the nearest trained histogram.
func (r *Recognizer) Predict(face *image.Gray, model vision.Model) (int64, float64, error) {
	m, ok := model.(*Model)
	if !ok {
		return 0, 0, ErrModelType
	}
	if len(m.Histograms) == 0 {
		return 0, 0, ErrEmptyModel
	}
	if face == nil || face.Bounds().Empty() {
		return 0, 0, errors.New("face has no pixels")
	}

	query := histogram(face, m.Size, m.GridX, m.GridY)
	best := math.Inf(1)
	var label int64
	for i, h := range m.Histograms {
		d := chiSquare(query, h)
		if d < best {
			best = d
			label = m.Labels[i]
		}
	}
	return label, best, nil
}

func histogram(face *image.Gray, size, gridX, gridY int) []float32 {
	g := vision.Resize(face, size, size)
	codes := lbp(g)
	w, h := size-2, size-2

	hist := make([]float32, gridX*gridY*bins)
	for cy := 0; cy < gridY; cy++ {
		y0, y1 := cy*h/gridY, (cy+1)*h/gridY
		for cx := 0; cx < gridX; cx++ {
			x0, x1 := cx*w/gridX, (cx+1)*w/gridX
			cell := hist[(cy*gridX+cx)*bins : (cy*gridX+cx+1)*bins]
			n := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					cell[codes[y*w+x]]++
					n++
				}
			}
			if n > 0 {
				for i := range cell {
					cell[i] /= float32(n)
				}
			}
		}
	}
	return hist
}

// lbp returns uniform-mapped codes for the interior pixels of g, row-major.
func lbp(g *image.Gray) []uint8 {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint8, (w-2)*(h-2))
	at := func(x, y int) uint8 {
		return g.Pix[g.PixOffset(b.Min.X+x, b.Min.Y+y)]
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := at(x, y)
			var code uint8
			if at(x-1, y-1) >= c {
				code |= 1 << 7
			}
			if at(x, y-1) >= c {
				code |= 1 << 6
			}
			if at(x+1, y-1) >= c {
				code |= 1 << 5
			}
			if at(x+1, y) >= c {
				code |= 1 << 4
			}
			if at(x+1, y+1) >= c {
				code |= 1 << 3
			}
			if at(x, y+1) >= c {
				code |= 1 << 2
			}
			if at(x-1, y+1) >= c {
				code |= 1 << 1
			}
			if at(x-1, y) >= c {
				code |= 1
			}
			out[(y-1)*(w-2)+(x-1)] = uniform[code]
		}
	}
	return out
}

func chiSquare(a, b []float32) float64 {
	var sum float64
	for i := range a {
		s := float64(a[i]) + float64(b[i])
		if s <= 0 {
			continue
		}
		d := float64(a[i]) - float64(b[i])
		sum += d * d / s
	}
	return 2 * sum
}
