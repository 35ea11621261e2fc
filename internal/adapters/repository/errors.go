package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("dataset not found")
	ErrInvalidLimit = errors.New("invalid list limit")
	ErrEmptyID      = errors.New("dataset id is empty")
)
