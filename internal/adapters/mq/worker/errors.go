package worker

import "errors"

// ErrRoleRead wraps failures to read a member's current roles.
var ErrRoleRead = errors.New("reading member roles failed")
