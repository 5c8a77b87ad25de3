package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPrice indicates a price that is neither a number nor a numeric string.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrConflict indicates the entity already exists.
	ErrConflict = errors.New("already exists")
)
