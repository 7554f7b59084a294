// Package visiontest provides a deterministic vision.Engine for tests.
//
// Frames are uniform gray images whose pixel value is the identity label.
// The fake detects one face per frame, trains by remembering labels, and
// predicts the pixel value with a distance looked up per label.
package visiontest

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"
	"sync"

	"github.com/rpggio/rollcall/internal/vision"
)

// Blank frames carry label 0 and produce no detection.
const Blank uint8 = 0

// Frame returns a 32x32 frame that the fake recognises as label.
func Frame(label uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = label
	}
	return img
}

// Model is the set of trained labels.
type Model struct {
	Labels []int64
}

// MarshalBinary writes the labels as text.
func (m *Model) MarshalBinary() ([]byte, error) {
	return []byte(fmt.Sprint(m.Labels)), nil
}

var (
	_ vision.Engine     = (*Engine)(nil)
	_ vision.ModelCodec = (*Engine)(nil)
)

// Engine implements vision.Engine and vision.ModelCodec.
type Engine struct {
	mu        sync.Mutex
	distances map[int64]float64
	fallback  float64
	trainErr  error
	trained   int
}

// New returns an engine reporting distance for every label without an
// explicit SetDistance.
func New(distance float64) *Engine {
	return &Engine{distances: map[int64]float64{}, fallback: distance}
}

// SetDistance fixes the predicted distance for label.
func (e *Engine) SetDistance(label int64, distance float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.distances[label] = distance
}

// FailTraining makes subsequent Train calls return err.
func (e *Engine) FailTraining(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trainErr = err
}

// TrainCount reports how many times Train succeeded.
func (e *Engine) TrainCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trained
}

// Detect reports the whole frame as a face unless it is blank.
func (e *Engine) Detect(img image.Image) ([]vision.Region, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}
	if g := color.GrayModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.Gray); g.Y == Blank {
		return nil, nil
	}
	return []vision.Region{{Rect: b, Confidence: 1}}, nil
}

// Train records the distinct labels.
func (e *Engine) Train(samples []vision.Sample) (vision.Model, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.trainErr != nil {
		return nil, e.trainErr
	}
	if len(samples) == 0 {
		return nil, vision.ErrNoSamples
	}
	seen := map[int64]bool{}
	m := &Model{}
	for _, s := range samples {
		if !seen[s.Label] {
			seen[s.Label] = true
			m.Labels = append(m.Labels, s.Label)
		}
	}
	sort.Slice(m.Labels, func(i, j int) bool { return m.Labels[i] < m.Labels[j] })
	e.trained++
	return m, nil
}

// Predict returns the face's pixel value as the label.
func (e *Engine) Predict(face *image.Gray, model vision.Model) (int64, float64, error) {
	if _, ok := model.(*Model); !ok {
		return 0, 0, errors.New("visiontest: foreign model")
	}
	if face == nil || len(face.Pix) == 0 {
		return 0, 0, errors.New("visiontest: empty face")
	}
	label := int64(face.Pix[0])

	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.distances[label]
	if !ok {
		d = e.fallback
	}
	return label, d, nil
}

// UnmarshalModel parses the MarshalBinary text form.
func (e *Engine) UnmarshalModel(data []byte) (vision.Model, error) {
	m := &Model{}
	s := string(data)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("visiontest: bad model %q", s)
	}
	var cur int64
	inNum := false
	for _, r := range s[1 : len(s)-1] {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + int64(r-'0')
			inNum = true
		case r == ' ':
			if inNum {
				m.Labels = append(m.Labels, cur)
			}
			cur, inNum = 0, false
		default:
			return nil, fmt.Errorf("visiontest: bad model %q", s)
		}
	}
	if inNum {
		m.Labels = append(m.Labels, cur)
	}
	return m, nil
}
