package engine

import (
	"context"
	"fmt"

	"github.com/eventloop/enrollment/internal/model"
)

// The waitlist sequencer maintains a total order over an event's
// waitlisted enrollments.  The store returns them ordered by
// (registered_at, id) ascending; positions stored on the rows must form
// a dense 1..K sequence in exactly that order.

// nextPosition returns the position for an enrollee appended to the
// tail of the queue: current waitlist size + 1.
func nextPosition(ctx context.Context, tx Tx) (uint32, error) {
	wl, err := tx.Waitlist(ctx)
	if err != nil {
		return 0, err
	}
	return uint32(len(wl)) + 1, nil
}

// renumber re-reads the waitlist and rewrites positions to 1..K with no
// gaps.  It must run after any removal or promotion from the waitlist.
// Rows already holding the right position are left untouched, which
// makes a second call with no intervening mutation a no-op.
func renumber(ctx context.Context, tx Tx) error {
	wl, err := tx.Waitlist(ctx)
	if err != nil {
		return err
	}
	for i := range wl {
		want := uint32(i) + 1
		if wl[i].WaitlistPosition != nil && *wl[i].WaitlistPosition == want {
			continue
		}
		if err := tx.SetWaitlistPosition(ctx, wl[i].ID, want); err != nil {
			return err
		}
	}
	return nil
}

// topNOfQueue returns the first n enrollments in queue order.  Fewer
// than n are returned when the waitlist is shorter.  It also verifies
// the dense-position invariant on the rows it hands out: a gap or
// duplicate here means the critical section was violated somewhere.
func topNOfQueue(ctx context.Context, tx Tx, n int) ([]model.Enrollment, error) {
	if n <= 0 {
		return nil, nil
	}
	wl, err := tx.Waitlist(ctx)
	if err != nil {
		return nil, err
	}
	if n > len(wl) {
		n = len(wl)
	}
	for i := 0; i < n; i++ {
		if wl[i].WaitlistPosition == nil || *wl[i].WaitlistPosition != uint32(i)+1 {
			return nil, fmt.Errorf("%w: waitlist position of enrollment %d is not %d",
				ErrInvariantViolation, wl[i].ID, i+1)
		}
	}
	return wl[:n], nil
}
