// Package queue defines message payloads exchanged over the message broker.
package queue

// WaitlistPromotedEvent is published when a waitlisted enrollment is moved
// to confirmed (a cancellation freed a slot, capacity grew, or auto-enroll
// was enabled). It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type WaitlistPromotedEvent struct {
	UserID     uint64 `json:"user_id"`
	EventID    uint64 `json:"event_id"`
	EventTitle string `json:"event_title"`
	StartsAt   string `json:"starts_at"`
	Reason     string `json:"reason"`
	PromotedAt string `json:"promoted_at"`
}
