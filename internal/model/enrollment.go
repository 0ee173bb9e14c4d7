package model

import "time"

// EnrollmentStatus enumerates the states an enrollment can be in.
// Cancelled is terminal for a record; re-enrollment always creates a
// fresh row instead of resurrecting a cancelled one.
type EnrollmentStatus string

const (
	StatusConfirmed EnrollmentStatus = "confirmed" // seated, counted against capacity
	StatusWaitlist  EnrollmentStatus = "waitlist"  // queued, holds a 1-based position
	StatusCancelled EnrollmentStatus = "cancelled" // terminal, retained as history
)

// Enrollment records one user's admission state for one event.  At most
// one non-cancelled enrollment exists per (event, user) pair.  Waitlisted
// rows carry a dense 1..K position ordered by RegisteredAt (ties broken
// by ID).
//
// Fields:
//  ID               – primary key identifier.
//  EventID          – event being enrolled into.
//  UserID           – the enrolled user.
//  Status           – confirmed, waitlist or cancelled.
//  WaitlistPosition – 1-based rank; set iff Status is waitlist.
//  RegisteredAt     – server time the enrollment was written; fixes the
//                     user's permanent FIFO rank.
//  CheckedInAt      – attendance timestamp (managed elsewhere, never
//                     touched by the admission engine).
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Enrollment struct {
	ID               uint64           // enrollments.id
	EventID          uint64           // enrollments.event_id
	UserID           uint64           // enrollments.user_id
	Status           EnrollmentStatus // enrollments.status
	WaitlistPosition *uint32          // enrollments.waitlist_position (nullable)
	RegisteredAt     time.Time        // enrollments.registered_at
	CheckedInAt      *time.Time       // enrollments.checked_in_at (nullable)
	CreatedAt        time.Time        // enrollments.created_at
	UpdatedAt        time.Time        // enrollments.updated_at
}

// Active reports whether the enrollment still occupies a seat or a
// waitlist slot.
func (e *Enrollment) Active() bool {
	return e.Status != StatusCancelled
}
