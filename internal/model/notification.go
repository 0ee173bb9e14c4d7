package model

import "time"

// NotificationReasonPromoted marks a waitlist-to-confirmed promotion.
const NotificationReasonPromoted = "waitlist_promoted"

// Notification is the idempotency ledger for user-facing notifications.
// The (UserID, EventID, Reason) triple is unique; recording the same
// intent twice is a no-op from the notified user's perspective.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – recipient.
//  EventID   – event the notification refers to.
//  Reason    – why the notification was produced (idempotency key part).
//  Message   – rendered human-readable message.
//  CreatedAt – when the intent was first recorded.
type Notification struct {
	ID        uint64    // notifications.id
	UserID    uint64    // notifications.user_id
	EventID   uint64    // notifications.event_id
	Reason    string    // notifications.reason
	Message   string    // notifications.message
	CreatedAt time.Time // notifications.created_at
}
