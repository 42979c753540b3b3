package guild

import "errors"

// Sentinel errors of guild backends.
var (
	ErrUnknownRole   = errors.New("unknown role")
	ErrUnknownMember = errors.New("unknown member")
)
