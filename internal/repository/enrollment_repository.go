package repository

import (
	"context"
	"database/sql"
	"time"
)

// EnrollmentRepo serves the read-only enrollment views: a user's own
// enrollments and the per-event roster shown to staff.  All admission
// writes go through the EngineStore's critical section; this repository
// never mutates enrollment rows.
type EnrollmentRepo struct {
	db *sql.DB
}

// NewEnrollmentRepo returns a new EnrollmentRepo bound to the database.
func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{db: db} }

// EnrollmentDetail is a user's enrollment joined with event info, shown
// on the my-enrollments page.
type EnrollmentDetail struct {
	ID               uint64    `json:"id"`
	EventID          uint64    `json:"event_id"`
	EventTitle       string    `json:"event_title"`
	EventStartsAt    time.Time `json:"event_starts_at"`
	Status           string    `json:"status"`
	WaitlistPosition *uint32   `json:"waitlist_position,omitempty"`
	RegisteredAt     time.Time `json:"registered_at"`
}

// ListByUser returns the user's non-cancelled enrollments with event
// details, soonest event first.  Cancelled history rows are kept in the
// table but not surfaced here.
func (r *EnrollmentRepo) ListByUser(ctx context.Context, userID uint64) ([]EnrollmentDetail, error) {
	const q = `SELECT en.id, en.event_id, e.title, e.starts_at, en.status, en.waitlist_position, en.registered_at
	           FROM enrollments en
	           JOIN events e ON e.id = en.event_id
	           WHERE en.user_id = ? AND en.status <> 'cancelled'
	           ORDER BY e.starts_at ASC, en.id ASC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]EnrollmentDetail, 0)
	for rows.Next() {
		var d EnrollmentDetail
		var pos sql.NullInt64
		if err := rows.Scan(&d.ID, &d.EventID, &d.EventTitle, &d.EventStartsAt,
			&d.Status, &pos, &d.RegisteredAt); err != nil {
			return nil, err
		}
		if pos.Valid {
			p := uint32(pos.Int64)
			d.WaitlistPosition = &p
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RosterEntry is one participant row in the staff roster for an event.
type RosterEntry struct {
	EnrollmentID     uint64     `json:"enrollment_id"`
	UserID           uint64     `json:"user_id"`
	Email            string     `json:"email"`
	Status           string     `json:"status"`
	WaitlistPosition *uint32    `json:"waitlist_position,omitempty"`
	RegisteredAt     time.Time  `json:"registered_at"`
	CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
}

// ListByEvent returns the event's roster for staff: confirmed
// participants first by registration time, then the waitlist in queue
// order.  Cancelled rows are excluded.
func (r *EnrollmentRepo) ListByEvent(ctx context.Context, eventID uint64) ([]RosterEntry, error) {
	const q = `SELECT en.id, en.user_id, u.email, en.status, en.waitlist_position, en.registered_at, en.checked_in_at
	           FROM enrollments en
	           JOIN users u ON u.id = en.user_id
	           WHERE en.event_id = ? AND en.status <> 'cancelled'
	           ORDER BY FIELD(en.status, 'confirmed', 'waitlist'),
	                    COALESCE(en.waitlist_position, 0), en.registered_at, en.id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RosterEntry, 0)
	for rows.Next() {
		var e RosterEntry
		var pos sql.NullInt64
		var checkedIn sql.NullTime
		if err := rows.Scan(&e.EnrollmentID, &e.UserID, &e.Email, &e.Status,
			&pos, &e.RegisteredAt, &checkedIn); err != nil {
			return nil, err
		}
		if pos.Valid {
			p := uint32(pos.Int64)
			e.WaitlistPosition = &p
		}
		if checkedIn.Valid {
			t := checkedIn.Time
			e.CheckedInAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
