package training

import "errors"

var (
	// ErrEmptyDataset is returned when there are no samples to train on.
	// The stored model is left as it was.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrModelNotFound is returned when no model has been trained yet.
	ErrModelNotFound = errors.New("model not found")
)
