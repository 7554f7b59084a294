package deletion

import "errors"

// ErrInvalidInput indicates a non-positive identity id.
var ErrInvalidInput = errors.New("invalid input")
