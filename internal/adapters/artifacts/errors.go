package artifacts

import "errors"

// Sentinel kinds for artifact errors.
var (
	ErrMissingColumns = errors.New("artifact is missing required columns")
	ErrUnknownSplit   = errors.New("unknown split")
)
