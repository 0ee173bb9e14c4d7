package model

import "time"

// Event represents an enrollable event with a fixed capacity.
// Events are owned by staff/admin users and mutated only through the
// admin endpoints; enrollment rows reference events by ID.
//
// Fields:
//  ID            – primary key identifier.
//  Title         – display title of the event.
//  Description   – free-form description shown on browse pages.
//  MaxCapacity   – maximum number of confirmed enrollments (positive).
//  IsPublished   – whether the event is visible and accepts enrollments.
//  AutoEnrollAll – when true every known profile is force-confirmed,
//                  bypassing MaxCapacity (documented override).
//  StartsAt      – when the event begins; enrollments close at this time.
//  CreatedBy     – user ID of the staff member who created the event.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Event struct {
	ID            uint64    // events.id
	Title         string    // events.title
	Description   string    // events.description
	MaxCapacity   uint32    // events.max_capacity
	IsPublished   bool      // events.is_published
	AutoEnrollAll bool      // events.auto_enroll_all
	StartsAt      time.Time // events.starts_at
	CreatedBy     uint64    // events.created_by
	CreatedAt     time.Time // events.created_at
	UpdatedAt     time.Time // events.updated_at
}
