package database

import "errors"

var (
	// ErrNotFound no record matches the given key.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition the requested status change is not legal from
	// the record's current status.
	ErrInvalidTransition = errors.New("illegal status transition")
)
