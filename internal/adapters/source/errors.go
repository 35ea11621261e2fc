package source

import "errors"

// Sentinel kinds for source errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported event file format")
	ErrMatchNotListed    = errors.New("no matches listed for competition season")
)
