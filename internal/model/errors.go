package model

import "errors"

// ErrNotFound is returned by mutations that require an existing row.
// Lookups report absence with a nil result instead.
var ErrNotFound = errors.New("not found")
