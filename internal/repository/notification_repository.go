package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// NotificationRepo is the idempotency ledger for user notifications.
// The notifications table carries a UNIQUE(user_id, event_id, reason)
// key; an intent is dispatched only when its claim here succeeds, so a
// user is notified at most once per (event, reason) no matter how many
// times a promotion path fires.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a NotificationRepo bound to the database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Claim records the notification intent and reports whether this call
// was the first for the key.  The explicit existence check keeps the
// common duplicate path cheap; the unique key collapses the race when
// two dispatchers claim simultaneously (MySQL duplicate-key error 1062
// is treated as "already claimed", not a failure).
func (r *NotificationRepo) Claim(ctx context.Context, userID, eventID uint64, reason, message string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM notifications WHERE user_id = ? AND event_id = ? AND reason = ? LIMIT 1`,
		userID, eventID, reason).Scan(&one)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, event_id, reason, message) VALUES (?, ?, ?, ?)`,
		userID, eventID, reason, message)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListByUser returns the recorded notifications for a user, newest
// first, for the in-app notification feed.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64) ([]NotificationEntry, error) {
	const q = `SELECT n.id, n.event_id, e.title, n.reason, n.message, n.created_at
	           FROM notifications n
	           JOIN events e ON e.id = n.event_id
	           WHERE n.user_id = ?
	           ORDER BY n.created_at DESC, n.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]NotificationEntry, 0)
	for rows.Next() {
		var n NotificationEntry
		if err := rows.Scan(&n.ID, &n.EventID, &n.EventTitle, &n.Reason, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// NotificationEntry is one row of a user's notification feed.
type NotificationEntry struct {
	ID         uint64    `json:"id"`
	EventID    uint64    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	Reason     string    `json:"reason"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
