package engine

import (
	"context"
	"time"

	"github.com/eventloop/enrollment/internal/model"
)

// Store is the durable-store boundary the coordinator runs against.  The
// production implementation wraps MySQL and takes a row lock on the
// events row; tests use an in-memory implementation with a per-event
// mutex.  Either way the contract is the same: fn observes and mutates
// the event's admission state exclusively, and every write fn performs
// is atomic with respect to other invocations for the same event.
type Store interface {
	// WithEventLock runs fn while holding exclusive access to the given
	// event.  It returns ErrEventNotFound when the event does not exist
	// and ErrEventBusy when the lock cannot be acquired within the
	// implementation's bounded wait.  When fn returns an error all of
	// its writes are discarded.
	WithEventLock(ctx context.Context, eventID uint64, fn func(tx Tx) error) error
}

// Tx is the view of a single event's admission state inside the critical
// section.  All reads reflect writes made earlier in the same section.
type Tx interface {
	// Event returns the locked event row as of lock acquisition, updated
	// by SetCapacity / SetAutoEnrollAll calls in this section.
	Event() *model.Event

	// ConfirmedCount returns the number of confirmed enrollments.
	ConfirmedCount(ctx context.Context) (int, error)

	// ActiveEnrollment returns the user's non-cancelled enrollment for
	// this event, or nil when none exists.
	ActiveEnrollment(ctx context.Context, userID uint64) (*model.Enrollment, error)

	// EnrollmentByID returns the enrollment with the given ID scoped to
	// this event, or nil when it does not exist.
	EnrollmentByID(ctx context.Context, enrollmentID uint64) (*model.Enrollment, error)

	// Waitlist returns all waitlisted enrollments ordered by
	// (registered_at, id) ascending.
	Waitlist(ctx context.Context) ([]model.Enrollment, error)

	// InsertEnrollment persists a new enrollment row and populates its ID.
	InsertEnrollment(ctx context.Context, e *model.Enrollment) error

	// UpdateEnrollmentStatus rewrites status and waitlist position of an
	// enrollment.  Position must be nil unless status is waitlist.
	UpdateEnrollmentStatus(ctx context.Context, enrollmentID uint64, status model.EnrollmentStatus, position *uint32) error

	// SetWaitlistPosition rewrites only the waitlist position.
	SetWaitlistPosition(ctx context.Context, enrollmentID uint64, position uint32) error

	// SetCapacity persists a new max capacity for the event.
	SetCapacity(ctx context.Context, maxCapacity uint32) error

	// SetAutoEnrollAll persists the auto-enroll-all flag.
	SetAutoEnrollAll(ctx context.Context, enabled bool) error

	// ProfileExists reports whether an active user with the ID exists.
	ProfileExists(ctx context.Context, userID uint64) (bool, error)

	// ProfileIDs returns the IDs of all active users, ordered ascending.
	// Used by the auto-enroll-all bulk operation.
	ProfileIDs(ctx context.Context) ([]uint64, error)

	// ActiveUserIDs returns the user IDs holding a non-cancelled
	// enrollment for this event.
	ActiveUserIDs(ctx context.Context) (map[uint64]struct{}, error)
}

// Notifier delivers notification intents produced by promotions.  It is
// called strictly after the critical section closes and must be
// idempotent per (user, event, reason); duplicate calls are expected and
// must collapse.
type Notifier interface {
	Notify(ctx context.Context, userID, eventID uint64, reason string) error
}

// clock is injected into the coordinator so tests can pin time; the
// default is time.Now.
type clock func() time.Time
