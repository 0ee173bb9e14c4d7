package engine

import "context"

// availableSlots computes how many more confirmed enrollments the event
// can take: max(0, maxCapacity - confirmed).  Pure given a consistent
// snapshot; it must only be evaluated inside the same critical section
// as the write that depends on it, or a read-then-write race remains.
func availableSlots(maxCapacity uint32, confirmed int) int {
	slots := int(maxCapacity) - confirmed
	if slots < 0 {
		return 0
	}
	return slots
}

// freeSlots reads the confirmed count through the transaction and
// applies availableSlots against the locked event's capacity.
func freeSlots(ctx context.Context, tx Tx) (int, error) {
	confirmed, err := tx.ConfirmedCount(ctx)
	if err != nil {
		return 0, err
	}
	return availableSlots(tx.Event().MaxCapacity, confirmed), nil
}
