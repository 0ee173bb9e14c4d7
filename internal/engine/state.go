package engine

import (
	"time"

	"github.com/eventloop/enrollment/internal/model"
)

// The enrollment state machine.  A record moves
//
//	none → confirmed          when a slot is free
//	none → waitlist           when the event is full
//	confirmed → cancelled     by the owner or an admin; may promote
//	waitlist → cancelled      by the owner or an admin; renumbers
//	waitlist → confirmed      promotion only, never user-requested
//
// cancelled is terminal; re-enrollment after cancellation is a fresh
// none → {confirmed|waitlist} request on a new record.

// admissionStatus decides the target status for a new enrollment given
// the number of free slots.
func admissionStatus(slots int) model.EnrollmentStatus {
	if slots > 0 {
		return model.StatusConfirmed
	}
	return model.StatusWaitlist
}

// checkEnrollable runs the guard checks shared by enroll and admin-add:
// the event must be published and must not have started.  Guard
// failures are typed errors, not states.
func checkEnrollable(ev *model.Event, now time.Time) error {
	if !ev.IsPublished {
		return ErrEventNotPublished
	}
	if !ev.StartsAt.After(now) {
		return ErrEventStarted
	}
	return nil
}

// cancellable reports whether the status permits a cancel transition.
// Both confirmed and waitlist rows may cancel; cancelled rows may not
// re-enter any state.
func cancellable(status model.EnrollmentStatus) bool {
	return status == model.StatusConfirmed || status == model.StatusWaitlist
}
