// Package engine implements the admission coordinator for the event
// enrollment and waitlist system.  It decides who is confirmed, who is
// waitlisted and who gets promoted, under a per-event critical section
// provided by the Store.  These sentinel values allow handlers to
// distinguish between failure scenarios and map them to stable error
// codes without inspecting error strings.
package engine

import "errors"

// ErrEventNotFound is returned when the referenced event does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrEventNotPublished is returned when enrolling into an event that is
// not published yet.  Handlers should translate this into 409.
var ErrEventNotPublished = errors.New("event not published")

// ErrEventStarted is returned when enrolling into an event whose start
// time has passed.  Cancellation stays open after start.
var ErrEventStarted = errors.New("event already started")

// ErrProfileNotFound is returned when the target user does not exist or
// is inactive.
var ErrProfileNotFound = errors.New("profile not found")

// ErrAlreadyEnrolled is returned when a non-cancelled enrollment already
// exists for the (event, user) pair.
var ErrAlreadyEnrolled = errors.New("already enrolled")

// ErrEnrollmentNotFound is returned by cancel and admin-remove when no
// matching active enrollment exists for the event.
var ErrEnrollmentNotFound = errors.New("enrollment not found")

// ErrEventBusy is returned when the per-event lock could not be acquired
// within the bounded wait.  It is transient; callers should retry with
// backoff.
var ErrEventBusy = errors.New("event busy")

// ErrInvariantViolation signals corrupted admission state, such as
// waitlist positions that are not a dense 1..K sequence.  It must never
// occur while the critical section is respected; when detected the
// operation is aborted rather than the data silently repaired.  Note
// that a confirmed count above capacity is not corruption: lowering
// capacity and the auto-enroll-all override both produce that state
// legally.
var ErrInvariantViolation = errors.New("admission invariant violated")
