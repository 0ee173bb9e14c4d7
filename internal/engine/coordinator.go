package engine

import (
	"context"
	"log"
	"time"

	"github.com/eventloop/enrollment/internal/model"
)

// Coordinator exposes the public admission operations.  Every operation
// runs inside the Store's per-event critical section: read confirmed
// count, decide the transition, write enrollment rows, renumber — the
// whole decide-and-write sequence is serialized per event, while
// operations on different events proceed in parallel.  Notification
// intents produced by promotions are dispatched only after the section
// closes so admission is never blocked on notification I/O.
type Coordinator struct {
	store    Store
	notifier Notifier // optional; nil disables dispatch
	now      clock
}

// NewCoordinator constructs a Coordinator.  The store must be non-nil;
// notifier may be nil when promotions should not notify (tests, batch
// tooling).
func NewCoordinator(store Store, notifier Notifier) *Coordinator {
	if store == nil {
		panic("nil store passed to NewCoordinator")
	}
	return &Coordinator{store: store, notifier: notifier, now: time.Now}
}

// EnrollResult reports the outcome of Enroll and AdminAdd.
// WaitlistPosition is zero unless Status is waitlist.
type EnrollResult struct {
	EnrollmentID     uint64
	Status           model.EnrollmentStatus
	WaitlistPosition uint32
}

// CancelResult reports the outcome of Cancel and AdminRemove.
type CancelResult struct {
	EnrollmentID  uint64
	WasConfirmed  bool
	PromotedUsers []uint64
}

// Enroll admits userID into the event, confirming when a slot is free
// and appending to the waitlist tail otherwise.
func (c *Coordinator) Enroll(ctx context.Context, eventID, userID uint64) (EnrollResult, error) {
	var res EnrollResult
	err := c.store.WithEventLock(ctx, eventID, func(tx Tx) error {
		if err := checkEnrollable(tx.Event(), c.now().UTC()); err != nil {
			return err
		}
		ok, err := tx.ProfileExists(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProfileNotFound
		}
		r, err := c.admit(ctx, tx, userID)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return EnrollResult{}, err
	}
	return res, nil
}

// Cancel marks the caller's active enrollment cancelled.  Cancelling a
// confirmed seat promotes the head of the waitlist; cancelling a
// waitlist slot renumbers the queue.
func (c *Coordinator) Cancel(ctx context.Context, eventID, userID uint64) (CancelResult, error) {
	var res CancelResult
	err := c.store.WithEventLock(ctx, eventID, func(tx Tx) error {
		e, err := tx.ActiveEnrollment(ctx, userID)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrEnrollmentNotFound
		}
		r, err := c.retire(ctx, tx, e)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}
	c.dispatch(ctx, eventID, res.PromotedUsers)
	return res, nil
}

// AdminAdd manually seats a participant.  Guards match Enroll: the
// event must be published, not started, the profile must exist and the
// user must not already hold an active enrollment.  Capacity rules are
// identical — a full event waitlists the added user.
func (c *Coordinator) AdminAdd(ctx context.Context, eventID, userID uint64) (EnrollResult, error) {
	return c.Enroll(ctx, eventID, userID)
}

// AdminRemove cancels the enrollment with the given ID, scoped to the
// event.  The promotion/renumber branch matches Cancel.
func (c *Coordinator) AdminRemove(ctx context.Context, eventID, enrollmentID uint64) (CancelResult, error) {
	var res CancelResult
	err := c.store.WithEventLock(ctx, eventID, func(tx Tx) error {
		e, err := tx.EnrollmentByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if e == nil || !cancellable(e.Status) {
			return ErrEnrollmentNotFound
		}
		r, err := c.retire(ctx, tx, e)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}
	c.dispatch(ctx, eventID, res.PromotedUsers)
	return res, nil
}

// ChangeCapacity persists a new max capacity.  Raising it promotes
// waitlisted users into the freed slots in FIFO order.  Lowering it
// never demotes: confirmed enrollments above a lowered cap stay seated
// and the overbooking resolves through future cancellations.  The
// asymmetry is intentional.
func (c *Coordinator) ChangeCapacity(ctx context.Context, eventID uint64, newMax uint32) (int, error) {
	var promoted []uint64
	err := c.store.WithEventLock(ctx, eventID, func(tx Tx) error {
		oldMax := tx.Event().MaxCapacity
		if err := tx.SetCapacity(ctx, newMax); err != nil {
			return err
		}
		if newMax <= oldMax {
			return nil
		}
		confirmed, err := tx.ConfirmedCount(ctx)
		if err != nil {
			return err
		}
		extra := int(newMax) - confirmed
		if extra <= 0 {
			return nil
		}
		users, err := c.promote(ctx, tx, extra)
		if err != nil {
			return err
		}
		promoted = users
		return nil
	})
	if err != nil {
		return 0, err
	}
	c.dispatch(ctx, eventID, promoted)
	return len(promoted), nil
}

// ToggleAutoEnrollAll flips the auto-enroll-all flag.  While enabled,
// every active profile without an active enrollment is force-confirmed,
// ignoring capacity — the flag is a documented capacity override, not a
// bug.  Re-running is idempotent: users already holding an active
// enrollment are skipped, so no duplicates are created.
func (c *Coordinator) ToggleAutoEnrollAll(ctx context.Context, eventID uint64, enabled bool) (int, error) {
	enrolled := 0
	err := c.store.WithEventLock(ctx, eventID, func(tx Tx) error {
		if err := tx.SetAutoEnrollAll(ctx, enabled); err != nil {
			return err
		}
		if !enabled {
			return nil
		}
		profiles, err := tx.ProfileIDs(ctx)
		if err != nil {
			return err
		}
		active, err := tx.ActiveUserIDs(ctx)
		if err != nil {
			return err
		}
		registeredAt := c.now().UTC()
		for _, uid := range profiles {
			if _, ok := active[uid]; ok {
				continue
			}
			e := &model.Enrollment{
				EventID:      eventID,
				UserID:       uid,
				Status:       model.StatusConfirmed,
				RegisteredAt: registeredAt,
			}
			if err := tx.InsertEnrollment(ctx, e); err != nil {
				return err
			}
			enrolled++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return enrolled, nil
}

// admit inserts a new enrollment for userID, choosing confirmed or
// waitlist from the free-slot count.  Caller holds the event lock and
// has already run the enrollable guards.
func (c *Coordinator) admit(ctx context.Context, tx Tx, userID uint64) (EnrollResult, error) {
	existing, err := tx.ActiveEnrollment(ctx, userID)
	if err != nil {
		return EnrollResult{}, err
	}
	if existing != nil {
		return EnrollResult{}, ErrAlreadyEnrolled
	}
	slots, err := freeSlots(ctx, tx)
	if err != nil {
		return EnrollResult{}, err
	}
	e := &model.Enrollment{
		EventID:      tx.Event().ID,
		UserID:       userID,
		Status:       admissionStatus(slots),
		RegisteredAt: c.now().UTC(),
	}
	if e.Status == model.StatusWaitlist {
		pos, err := nextPosition(ctx, tx)
		if err != nil {
			return EnrollResult{}, err
		}
		e.WaitlistPosition = &pos
	}
	if err := tx.InsertEnrollment(ctx, e); err != nil {
		return EnrollResult{}, err
	}
	res := EnrollResult{EnrollmentID: e.ID, Status: e.Status}
	if e.WaitlistPosition != nil {
		res.WaitlistPosition = *e.WaitlistPosition
	}
	return res, nil
}

// retire marks an active enrollment cancelled and repairs the queue:
// a confirmed seat frees a slot and promotes, a waitlist slot triggers
// renumbering.
func (c *Coordinator) retire(ctx context.Context, tx Tx, e *model.Enrollment) (CancelResult, error) {
	wasConfirmed := e.Status == model.StatusConfirmed
	if err := tx.UpdateEnrollmentStatus(ctx, e.ID, model.StatusCancelled, nil); err != nil {
		return CancelResult{}, err
	}
	res := CancelResult{EnrollmentID: e.ID, WasConfirmed: wasConfirmed}
	if wasConfirmed {
		users, err := c.promote(ctx, tx, 1)
		if err != nil {
			return CancelResult{}, err
		}
		res.PromotedUsers = users
		return res, nil
	}
	if err := renumber(ctx, tx); err != nil {
		return CancelResult{}, err
	}
	return res, nil
}

// promote confirms up to slots enrollments from the head of the
// waitlist, renumbers the remainder and returns the promoted user IDs
// for notification.  The count is clamped to the free slots actually
// available: an overbooked event (capacity lowered, auto-enroll-all)
// promotes nobody until cancellations bring the confirmed count back
// under capacity.
func (c *Coordinator) promote(ctx context.Context, tx Tx, slots int) ([]uint64, error) {
	confirmed, err := tx.ConfirmedCount(ctx)
	if err != nil {
		return nil, err
	}
	if avail := availableSlots(tx.Event().MaxCapacity, confirmed); slots > avail {
		slots = avail
	}
	head, err := topNOfQueue(ctx, tx, slots)
	if err != nil {
		return nil, err
	}
	if len(head) == 0 {
		return nil, nil
	}
	users := make([]uint64, 0, len(head))
	for i := range head {
		if err := tx.UpdateEnrollmentStatus(ctx, head[i].ID, model.StatusConfirmed, nil); err != nil {
			return nil, err
		}
		users = append(users, head[i].UserID)
	}
	if err := renumber(ctx, tx); err != nil {
		return nil, err
	}
	return users, nil
}

// dispatch fires one promotion intent per user once the lock is
// released.  Delivery is fire-and-forget: the notifier dedups per
// (user, event, reason) and failures only get logged.
func (c *Coordinator) dispatch(ctx context.Context, eventID uint64, users []uint64) {
	if c.notifier == nil || len(users) == 0 {
		return
	}
	for _, uid := range users {
		if err := c.notifier.Notify(ctx, uid, eventID, model.NotificationReasonPromoted); err != nil {
			log.Printf("engine: notify user %d for event %d: %v", uid, eventID, err)
		}
	}
}
