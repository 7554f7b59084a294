package identity

import "errors"

var (
	// ErrIdentityNotFound indicates no student is registered under the id.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidInput indicates a non-positive id or a blank name.
	ErrInvalidInput = errors.New("invalid identity input")
)
