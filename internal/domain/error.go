package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrDuplicateJob      = errors.New("job already exists")
	ErrInvalidTransition = errors.New("job is not in a processing state")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotAuthorized     = errors.New("not authorized for this session")
	ErrEmptyCandidate    = errors.New("generator returned an empty candidate")
	ErrRateLimited       = errors.New("too many job starts, slow down")
	ErrNoProvider        = errors.New("no text generation provider available")
)
