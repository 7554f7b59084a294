package activity

import "errors"

// ErrInvalidInput indicates a nil or untyped entry.
var ErrInvalidInput = errors.New("invalid activity input")
