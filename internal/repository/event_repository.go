package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/eventloop/enrollment/internal/model"
)

// EventRepo provides CRUD operations for events and the read views used
// by the public browse endpoints.  Capacity changes and the
// auto-enroll-all flag are never written through this repository: those
// mutations go through the admission engine's critical section so they
// can promote waitlisted users consistently.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle; handlers use it to begin
// transactions when they need one.
func (r *EventRepo) DB() *sql.DB { return r.db }

// Create inserts a new event and populates the generated ID plus
// timestamps on the provided record.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	const q = `INSERT INTO events (title, description, max_capacity, is_published, auto_enroll_all, starts_at, created_by)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		ev.Title, ev.Description, ev.MaxCapacity, ev.IsPublished, ev.AutoEnrollAll,
		ev.StartsAt.UTC().Format("2006-01-02 15:04:05"), ev.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM events WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, ev.ID).Scan(&ev.CreatedAt, &ev.UpdatedAt)
}

// GetByID returns a single event.  ErrEventNotFound is returned when no
// row matches.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, title, description, max_capacity, is_published, auto_enroll_all,
	                  starts_at, created_by, created_at, updated_at
	           FROM events WHERE id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.MaxCapacity, &ev.IsPublished,
		&ev.AutoEnrollAll, &ev.StartsAt, &ev.CreatedBy, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

// Update rewrites the descriptive fields and the publish flag.
// max_capacity and auto_enroll_all are deliberately absent; see the
// type comment.  Returns ErrEventNotFound when the event is missing.
func (r *EventRepo) Update(ctx context.Context, id uint64, title, description string, startsAt time.Time, isPublished bool) error {
	const q = `UPDATE events SET title = ?, description = ?, starts_at = ?, is_published = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		title, description, startsAt.UTC().Format("2006-01-02 15:04:05"), isPublished, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// distinguish "no such event" from "no change"
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// EventSummary is the browse-page view of an event: the stored fields
// plus live confirmed and waitlist counts.
type EventSummary struct {
	ID             uint64    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	MaxCapacity    uint32    `json:"max_capacity"`
	IsPublished    bool      `json:"is_published"`
	AutoEnrollAll  bool      `json:"auto_enroll_all"`
	StartsAt       time.Time `json:"starts_at"`
	ConfirmedCount int       `json:"confirmed_count"`
	WaitlistCount  int       `json:"waitlist_count"`
	AvailableSlots int       `json:"available_slots"`
}

// ListSummaries returns events with their enrollment counts, newest
// start time first.  When publishedOnly is set, drafts are excluded
// (the public browse view); staff listings pass false and see drafts.
func (r *EventRepo) ListSummaries(ctx context.Context, publishedOnly bool) ([]EventSummary, error) {
	q := `SELECT e.id, e.title, e.description, e.max_capacity, e.is_published, e.auto_enroll_all, e.starts_at,
	             COALESCE(SUM(CASE WHEN en.status = 'confirmed' THEN 1 ELSE 0 END), 0),
	             COALESCE(SUM(CASE WHEN en.status = 'waitlist' THEN 1 ELSE 0 END), 0)
	      FROM events e
	      LEFT JOIN enrollments en ON en.event_id = e.id
	      `
	if publishedOnly {
		q += `WHERE e.is_published = 1
	      `
	}
	q += `GROUP BY e.id, e.title, e.description, e.max_capacity, e.is_published, e.auto_enroll_all, e.starts_at
	      ORDER BY e.starts_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]EventSummary, 0)
	for rows.Next() {
		var s EventSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.MaxCapacity, &s.IsPublished,
			&s.AutoEnrollAll, &s.StartsAt, &s.ConfirmedCount, &s.WaitlistCount); err != nil {
			return nil, err
		}
		s.AvailableSlots = int(s.MaxCapacity) - s.ConfirmedCount
		if s.AvailableSlots < 0 {
			s.AvailableSlots = 0
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Summary returns the browse view for one event.  ErrEventNotFound is
// returned when no row matches; unpublished events are visible here —
// the handler decides whether the caller may see drafts.
func (r *EventRepo) Summary(ctx context.Context, id uint64) (*EventSummary, error) {
	const q = `SELECT e.id, e.title, e.description, e.max_capacity, e.is_published, e.auto_enroll_all, e.starts_at,
	                  COALESCE(SUM(CASE WHEN en.status = 'confirmed' THEN 1 ELSE 0 END), 0),
	                  COALESCE(SUM(CASE WHEN en.status = 'waitlist' THEN 1 ELSE 0 END), 0)
	           FROM events e
	           LEFT JOIN enrollments en ON en.event_id = e.id
	           WHERE e.id = ?
	           GROUP BY e.id, e.title, e.description, e.max_capacity, e.is_published, e.auto_enroll_all, e.starts_at`
	var s EventSummary
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Title, &s.Description, &s.MaxCapacity,
		&s.IsPublished, &s.AutoEnrollAll, &s.StartsAt, &s.ConfirmedCount, &s.WaitlistCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	s.AvailableSlots = int(s.MaxCapacity) - s.ConfirmedCount
	if s.AvailableSlots < 0 {
		s.AvailableSlots = 0
	}
	return &s, nil
}

// Title returns just the event title, used when rendering notification
// messages outside the critical section.
func (r *EventRepo) Title(ctx context.Context, id uint64) (string, error) {
	var title string
	err := r.db.QueryRowContext(ctx, `SELECT title FROM events WHERE id = ?`, id).Scan(&title)
	if err == sql.ErrNoRows {
		return "", ErrEventNotFound
	}
	return title, err
}
