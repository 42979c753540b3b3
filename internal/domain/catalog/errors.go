package catalog

import "errors"

// Sentinel error kinds for this package.
var (
	ErrLoad           = errors.New("load catalog failed")
	ErrInvalidCatalog = errors.New("invalid catalog")
	ErrDuplicateRole  = errors.New("role mapped more than once")
)
