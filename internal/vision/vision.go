// Package vision defines the face detection and recognition capability used
// by enrollment and attendance sessions.
package vision

import (
	"errors"
	"image"
)

// ErrNoSamples is returned by Train when the sample set is empty.
var ErrNoSamples = errors.New("no training samples")

// Region is a detected face in frame coordinates.
type Region struct {
	Rect       image.Rectangle
	Confidence float32
}

// Sample is a labelled grayscale face crop.
type Sample struct {
	Label int64
	Image *image.Gray
}

// Model is a trained recognizer state.
type Model interface {
	MarshalBinary() ([]byte, error)
}

// Detector finds faces in a frame.
type Detector interface {
	Detect(img image.Image) ([]Region, error)
}

// Recognizer trains a model from labelled samples and predicts the closest
// label for a face. Lower distance means a better match.
type Recognizer interface {
	Train(samples []Sample) (Model, error)
	Predict(face *image.Gray, model Model) (label int64, distance float64, err error)
}

// ModelCodec restores a model from its MarshalBinary form.
type ModelCodec interface {
	UnmarshalModel(data []byte) (Model, error)
}

// Engine is the full capability: detect, train, predict.
type Engine interface {
	Detector
	Recognizer
}

type engine struct {
	Detector
	Recognizer
}

// NewEngine combines a detector and a recognizer.
func NewEngine(det Detector, rec Recognizer) Engine {
	return engine{Detector: det, Recognizer: rec}
}
