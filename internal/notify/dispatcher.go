// Package notify turns promotion decisions into at-most-once user
// notifications: a claim row in the database deduplicates, then the
// message goes out over RabbitMQ for downstream consumers.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/eventloop/enrollment/internal/model"
	q "github.com/eventloop/enrollment/internal/queue"
	"github.com/eventloop/enrollment/internal/repository"
	publisher "github.com/eventloop/enrollment/internal/service"
)

// Publisher is the broker-facing half of the dispatcher, satisfied by
// queue_publisher.PublishWaitlistPromoted.
type Publisher func(ctx context.Context, event q.WaitlistPromotedEvent) error

// Dispatcher implements engine.Notifier. Claim-then-publish: the unique
// (user_id, event_id, reason) row guarantees a user is told about a given
// promotion at most once even if the same enrollment is retried.
type Dispatcher struct {
	events        *repository.EventRepo
	notifications *repository.NotificationRepo
	publish       Publisher
}

func NewDispatcher(events *repository.EventRepo, notifications *repository.NotificationRepo) *Dispatcher {
	return &Dispatcher{
		events:        events,
		notifications: notifications,
		publish:       publisher.PublishWaitlistPromoted,
	}
}

// Notify records and publishes a promotion notification. A previously
// claimed (user, event, reason) pair is a silent no-op. Publish failures
// are returned to the caller for logging; the claim is kept so the user
// is never notified twice.
func (d *Dispatcher) Notify(ctx context.Context, userID, eventID uint64, reason string) error {
	ev, err := d.events.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load event %d: %w", eventID, err)
	}

	message := renderMessage(reason, ev)
	fresh, err := d.notifications.Claim(ctx, userID, eventID, reason, message)
	if err != nil {
		return fmt.Errorf("claim notification: %w", err)
	}
	if !fresh {
		return nil // already notified for this promotion
	}

	payload := q.WaitlistPromotedEvent{
		UserID:     userID,
		EventID:    eventID,
		EventTitle: ev.Title,
		StartsAt:   ev.StartsAt.UTC().Format(time.RFC3339),
		Reason:     reason,
		PromotedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := d.publish(ctx, payload); err != nil {
		return fmt.Errorf("publish promotion: %w", err)
	}
	return nil
}

func renderMessage(reason string, ev *model.Event) string {
	switch reason {
	case model.NotificationReasonPromoted:
		return fmt.Sprintf("A spot opened up: you are now enrolled in %q (starts %s).",
			ev.Title, ev.StartsAt.UTC().Format(time.RFC3339))
	default:
		return fmt.Sprintf("Update for event %q.", ev.Title)
	}
}
