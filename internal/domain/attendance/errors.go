package attendance

import "errors"

var (
	// ErrInvalidInput indicates a non-positive student id.
	ErrInvalidInput = errors.New("invalid attendance input")
	// ErrInvalidDate indicates a date not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid attendance date")
	// ErrUnknownStudent indicates the student row does not exist.
	ErrUnknownStudent = errors.New("student not registered")
)
