package dataset

import "errors"

var (
	// ErrInvalidInput indicates a non-positive owner id.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSampleNotFound indicates no sample file exists for the ref.
	ErrSampleNotFound = errors.New("sample not found")
)
