// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// string matching. Errors belonging to the admission engine itself
// (busy, already enrolled, ...) live in the engine package; the ones
// here cover plain record access.
package repository

import "errors"

// ErrEventNotFound is returned when an event lookup matches no row.
// Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")
