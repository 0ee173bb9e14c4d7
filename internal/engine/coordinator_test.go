package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eventloop/enrollment/internal/model"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []struct {
		UserID  uint64
		EventID uint64
		Reason  string
	}
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, eventID uint64, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, struct {
		UserID  uint64
		EventID uint64
		Reason  string
	}{userID, eventID, reason})
	return nil
}

func newTestSetup(t *testing.T, capacity uint32, profiles ...uint64) (*memStore, *Coordinator, *recordingNotifier) {
	t.Helper()
	s := newMemStore()
	s.addEvent(model.Event{
		ID:          1,
		Title:       "go meetup",
		MaxCapacity: capacity,
		IsPublished: true,
		StartsAt:    time.Now().UTC().Add(24 * time.Hour),
	})
	for _, p := range profiles {
		s.addProfile(p)
	}
	n := &recordingNotifier{}
	c := NewCoordinator(s, n)
	// step the clock so every registration gets a distinct timestamp
	base := time.Now().UTC()
	step := 0
	c.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Millisecond)
	}
	return s, c, n
}

func waitlistOf(t *testing.T, s *memStore, eventID uint64) []model.Enrollment {
	t.Helper()
	var wl []model.Enrollment
	err := s.WithEventLock(context.Background(), eventID, func(tx Tx) error {
		var err error
		wl, err = tx.Waitlist(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("read waitlist: %v", err)
	}
	return wl
}

func confirmedOf(t *testing.T, s *memStore, eventID uint64) int {
	t.Helper()
	n := 0
	err := s.WithEventLock(context.Background(), eventID, func(tx Tx) error {
		var err error
		n, err = tx.ConfirmedCount(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("read confirmed count: %v", err)
	}
	return n
}

func checkDenseWaitlist(t *testing.T, wl []model.Enrollment) {
	t.Helper()
	for i := range wl {
		if wl[i].WaitlistPosition == nil {
			t.Fatalf("waitlist entry %d has nil position", wl[i].ID)
		}
		if got, want := *wl[i].WaitlistPosition, uint32(i)+1; got != want {
			t.Fatalf("waitlist entry %d: position %d, want %d", wl[i].ID, got, want)
		}
	}
}

// The concrete scenario from the requirements: capacity 2, four users
// enroll, the first confirmed user cancels, then capacity grows to 3.
func TestEnrollCancelPromoteScenario(t *testing.T) {
	ctx := context.Background()
	s, c, n := newTestSetup(t, 2, 10, 11, 12, 13)

	expect := []struct {
		user   uint64
		status model.EnrollmentStatus
		pos    uint32
	}{
		{10, model.StatusConfirmed, 0},
		{11, model.StatusConfirmed, 0},
		{12, model.StatusWaitlist, 1},
		{13, model.StatusWaitlist, 2},
	}
	for _, e := range expect {
		res, err := c.Enroll(ctx, 1, e.user)
		if err != nil {
			t.Fatalf("enroll %d: %v", e.user, err)
		}
		if res.Status != e.status || res.WaitlistPosition != e.pos {
			t.Fatalf("enroll %d: got (%s, %d), want (%s, %d)",
				e.user, res.Status, res.WaitlistPosition, e.status, e.pos)
		}
	}

	// cancel A: C promotes, D renumbers to 1
	res, err := c.Cancel(ctx, 1, 10)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !res.WasConfirmed {
		t.Fatal("cancel of confirmed enrollment not reported as confirmed")
	}
	if len(res.PromotedUsers) != 1 || res.PromotedUsers[0] != 12 {
		t.Fatalf("promoted %v, want [12]", res.PromotedUsers)
	}
	wl := waitlistOf(t, s, 1)
	if len(wl) != 1 || wl[0].UserID != 13 {
		t.Fatalf("waitlist after cancel: %+v", wl)
	}
	checkDenseWaitlist(t, wl)
	if got := confirmedOf(t, s, 1); got != 2 {
		t.Fatalf("confirmed count %d, want 2", got)
	}

	// raise capacity to 3: D promotes, waitlist empties
	promoted, err := c.ChangeCapacity(ctx, 1, 3)
	if err != nil {
		t.Fatalf("change capacity: %v", err)
	}
	if promoted != 1 {
		t.Fatalf("promoted count %d, want 1", promoted)
	}
	if wl := waitlistOf(t, s, 1); len(wl) != 0 {
		t.Fatalf("waitlist not empty after capacity increase: %+v", wl)
	}
	if got := confirmedOf(t, s, 1); got != 3 {
		t.Fatalf("confirmed count %d, want 3", got)
	}

	// exactly one promotion notification per promoted user
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) != 2 {
		t.Fatalf("notifier calls %d, want 2", len(n.calls))
	}
	for _, call := range n.calls {
		if call.Reason != model.NotificationReasonPromoted || call.EventID != 1 {
			t.Fatalf("unexpected notification %+v", call)
		}
	}
}

func TestEnrollGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("event missing", func(t *testing.T) {
		_, c, _ := newTestSetup(t, 1, 10)
		if _, err := c.Enroll(ctx, 99, 10); !errors.Is(err, ErrEventNotFound) {
			t.Fatalf("got %v, want ErrEventNotFound", err)
		}
	})

	t.Run("unpublished", func(t *testing.T) {
		s, c, _ := newTestSetup(t, 1, 10)
		s.addEvent(model.Event{ID: 2, MaxCapacity: 1, StartsAt: time.Now().Add(time.Hour)})
		if _, err := c.Enroll(ctx, 2, 10); !errors.Is(err, ErrEventNotPublished) {
			t.Fatalf("got %v, want ErrEventNotPublished", err)
		}
	})

	t.Run("already started", func(t *testing.T) {
		s, c, _ := newTestSetup(t, 1, 10)
		s.addEvent(model.Event{ID: 3, MaxCapacity: 1, IsPublished: true, StartsAt: time.Now().Add(-time.Hour)})
		if _, err := c.Enroll(ctx, 3, 10); !errors.Is(err, ErrEventStarted) {
			t.Fatalf("got %v, want ErrEventStarted", err)
		}
	})

	t.Run("profile missing", func(t *testing.T) {
		_, c, _ := newTestSetup(t, 1, 10)
		if _, err := c.Enroll(ctx, 1, 42); !errors.Is(err, ErrProfileNotFound) {
			t.Fatalf("got %v, want ErrProfileNotFound", err)
		}
	})

	t.Run("double enrollment", func(t *testing.T) {
		_, c, _ := newTestSetup(t, 5, 10)
		if _, err := c.Enroll(ctx, 1, 10); err != nil {
			t.Fatalf("first enroll: %v", err)
		}
		if _, err := c.Enroll(ctx, 1, 10); !errors.Is(err, ErrAlreadyEnrolled) {
			t.Fatalf("got %v, want ErrAlreadyEnrolled", err)
		}
		// a waitlisted user is also "already enrolled"
		_, c2, _ := newTestSetup(t, 1, 10, 11)
		if _, err := c2.Enroll(ctx, 1, 10); err != nil {
			t.Fatalf("enroll: %v", err)
		}
		if _, err := c2.Enroll(ctx, 1, 11); err != nil {
			t.Fatalf("waitlist enroll: %v", err)
		}
		if _, err := c2.Enroll(ctx, 1, 11); !errors.Is(err, ErrAlreadyEnrolled) {
			t.Fatalf("got %v, want ErrAlreadyEnrolled", err)
		}
	})
}

func TestReEnrollAfterCancelCreatesFreshRecord(t *testing.T) {
	ctx := context.Background()
	_, c, _ := newTestSetup(t, 1, 10)

	first, err := c.Enroll(ctx, 1, 10)
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if _, err := c.Cancel(ctx, 1, 10); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	second, err := c.Enroll(ctx, 1, 10)
	if err != nil {
		t.Fatalf("re-enroll: %v", err)
	}
	if second.EnrollmentID == first.EnrollmentID {
		t.Fatal("re-enrollment reused the cancelled record")
	}
	if second.Status != model.StatusConfirmed {
		t.Fatalf("re-enrollment status %s, want confirmed", second.Status)
	}
}

func TestCancelWaitlistedRenumbers(t *testing.T) {
	ctx := context.Background()
	s, c, n := newTestSetup(t, 1, 10, 11, 12, 13)

	for _, uid := range []uint64{10, 11, 12, 13} {
		if _, err := c.Enroll(ctx, 1, uid); err != nil {
			t.Fatalf("enroll %d: %v", uid, err)
		}
	}
	// 11,12,13 are waitlisted at 1,2,3; cancel the middle one
	res, err := c.Cancel(ctx, 1, 12)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.WasConfirmed || len(res.PromotedUsers) != 0 {
		t.Fatalf("waitlist cancel should not promote: %+v", res)
	}
	wl := waitlistOf(t, s, 1)
	if len(wl) != 2 || wl[0].UserID != 11 || wl[1].UserID != 13 {
		t.Fatalf("waitlist after cancel: %+v", wl)
	}
	checkDenseWaitlist(t, wl)
	if len(n.calls) != 0 {
		t.Fatalf("no notification expected, got %d", len(n.calls))
	}

	if _, err := c.Cancel(ctx, 1, 12); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("second cancel: got %v, want ErrEnrollmentNotFound", err)
	}
}

func TestAdminRemove(t *testing.T) {
	ctx := context.Background()
	s, c, _ := newTestSetup(t, 1, 10, 11)

	seated, err := c.AdminAdd(ctx, 1, 10)
	if err != nil {
		t.Fatalf("admin add: %v", err)
	}
	queued, err := c.AdminAdd(ctx, 1, 11)
	if err != nil {
		t.Fatalf("admin add: %v", err)
	}
	if queued.Status != model.StatusWaitlist {
		t.Fatalf("second add status %s, want waitlist", queued.Status)
	}

	if _, err := c.AdminRemove(ctx, 1, 999); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("remove missing: got %v, want ErrEnrollmentNotFound", err)
	}
	// enrollment IDs are scoped to the event
	s.addEvent(model.Event{ID: 2, MaxCapacity: 1, IsPublished: true, StartsAt: time.Now().Add(time.Hour)})
	if _, err := c.AdminRemove(ctx, 2, seated.EnrollmentID); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("remove from wrong event: got %v, want ErrEnrollmentNotFound", err)
	}

	res, err := c.AdminRemove(ctx, 1, seated.EnrollmentID)
	if err != nil {
		t.Fatalf("admin remove: %v", err)
	}
	if len(res.PromotedUsers) != 1 || res.PromotedUsers[0] != 11 {
		t.Fatalf("promoted %v, want [11]", res.PromotedUsers)
	}
	if wl := waitlistOf(t, s, 1); len(wl) != 0 {
		t.Fatalf("waitlist not empty: %+v", wl)
	}
	// removing the already-cancelled row is a 404, not a repeat cancel
	if _, err := c.AdminRemove(ctx, 1, seated.EnrollmentID); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("remove cancelled: got %v, want ErrEnrollmentNotFound", err)
	}
}

func TestChangeCapacityPromotesInFIFOOrder(t *testing.T) {
	ctx := context.Background()
	s, c, _ := newTestSetup(t, 1, 10, 11, 12, 13, 14)

	for _, uid := range []uint64{10, 11, 12, 13, 14} {
		if _, err := c.Enroll(ctx, 1, uid); err != nil {
			t.Fatalf("enroll %d: %v", uid, err)
		}
	}
	// waitlist: 11,12,13,14. Raise capacity by 2: exactly 11 and 12 go.
	promoted, err := c.ChangeCapacity(ctx, 1, 3)
	if err != nil {
		t.Fatalf("change capacity: %v", err)
	}
	if promoted != 2 {
		t.Fatalf("promoted %d, want 2", promoted)
	}
	wl := waitlistOf(t, s, 1)
	if len(wl) != 2 || wl[0].UserID != 13 || wl[1].UserID != 14 {
		t.Fatalf("waitlist after increase: %+v", wl)
	}
	checkDenseWaitlist(t, wl)

	// raise past the remaining waitlist: all of them go, queue empties
	promoted, err = c.ChangeCapacity(ctx, 1, 10)
	if err != nil {
		t.Fatalf("change capacity: %v", err)
	}
	if promoted != 2 {
		t.Fatalf("promoted %d, want 2", promoted)
	}
	if wl := waitlistOf(t, s, 1); len(wl) != 0 {
		t.Fatalf("waitlist not empty: %+v", wl)
	}
}

func TestChangeCapacityLoweringNeverDemotes(t *testing.T) {
	ctx := context.Background()
	s, c, _ := newTestSetup(t, 3, 10, 11, 12)

	for _, uid := range []uint64{10, 11, 12} {
		if _, err := c.Enroll(ctx, 1, uid); err != nil {
			t.Fatalf("enroll %d: %v", uid, err)
		}
	}
	promoted, err := c.ChangeCapacity(ctx, 1, 1)
	if err != nil {
		t.Fatalf("lower capacity: %v", err)
	}
	if promoted != 0 {
		t.Fatalf("promoted %d on lowering, want 0", promoted)
	}
	// all three stay confirmed; overbooking resolves via cancellations
	if got := confirmedOf(t, s, 1); got != 3 {
		t.Fatalf("confirmed count %d after lowering, want 3", got)
	}
	// a cancellation must not promote while over the new cap
	if _, err := c.Cancel(ctx, 1, 10); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := confirmedOf(t, s, 1); got != 2 {
		t.Fatalf("confirmed count %d, want 2", got)
	}
}

// Lowering capacity under the confirmed count leaves the event
// overbooked. Cancelling a confirmed seat then must still succeed and
// promote nobody; only once the confirmed count drops below capacity
// does the FIFO head move up.
func TestCancelOnOverbookedEventPromotesOnlyIntoRealSlots(t *testing.T) {
	ctx := context.Background()
	s, c, n := newTestSetup(t, 2, 10, 11, 12)

	for _, uid := range []uint64{10, 11, 12} {
		if _, err := c.Enroll(ctx, 1, uid); err != nil {
			t.Fatalf("enroll %d: %v", uid, err)
		}
	}
	// 10 and 11 confirmed, 12 waitlisted; now overbook by lowering to 1
	if promoted, err := c.ChangeCapacity(ctx, 1, 1); err != nil || promoted != 0 {
		t.Fatalf("lower capacity: promoted=%d err=%v", promoted, err)
	}

	res, err := c.Cancel(ctx, 1, 10)
	if err != nil {
		t.Fatalf("cancel while overbooked: %v", err)
	}
	if !res.WasConfirmed || len(res.PromotedUsers) != 0 {
		t.Fatalf("cancel while overbooked must not promote: %+v", res)
	}
	if got := confirmedOf(t, s, 1); got != 1 {
		t.Fatalf("confirmed count %d, want 1", got)
	}
	wl := waitlistOf(t, s, 1)
	if len(wl) != 1 || wl[0].UserID != 12 {
		t.Fatalf("waitlist while overbooked: %+v", wl)
	}
	checkDenseWaitlist(t, wl)
	if len(n.calls) != 0 {
		t.Fatalf("no notification expected yet, got %d", len(n.calls))
	}

	// this cancel opens a real slot: the head finally promotes
	res, err = c.Cancel(ctx, 1, 11)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(res.PromotedUsers) != 1 || res.PromotedUsers[0] != 12 {
		t.Fatalf("promoted %v, want [12]", res.PromotedUsers)
	}
	if wl := waitlistOf(t, s, 1); len(wl) != 0 {
		t.Fatalf("waitlist not empty: %+v", wl)
	}
	if len(n.calls) != 1 || n.calls[0].UserID != 12 {
		t.Fatalf("notifications %+v, want one for user 12", n.calls)
	}
}

// Same overbooked shape through the staff removal path.
func TestAdminRemoveOnOverbookedEvent(t *testing.T) {
	ctx := context.Background()
	s, c, _ := newTestSetup(t, 2, 10, 11, 12)

	var seated EnrollResult
	for _, uid := range []uint64{10, 11, 12} {
		res, err := c.Enroll(ctx, 1, uid)
		if err != nil {
			t.Fatalf("enroll %d: %v", uid, err)
		}
		if uid == 10 {
			seated = res
		}
	}
	if _, err := c.ChangeCapacity(ctx, 1, 1); err != nil {
		t.Fatalf("lower capacity: %v", err)
	}

	res, err := c.AdminRemove(ctx, 1, seated.EnrollmentID)
	if err != nil {
		t.Fatalf("admin remove while overbooked: %v", err)
	}
	if len(res.PromotedUsers) != 0 {
		t.Fatalf("removal while overbooked must not promote: %+v", res)
	}
	if got := confirmedOf(t, s, 1); got != 1 {
		t.Fatalf("confirmed count %d, want 1", got)
	}
	wl := waitlistOf(t, s, 1)
	if len(wl) != 1 || wl[0].UserID != 12 {
		t.Fatalf("waitlist: %+v", wl)
	}
	checkDenseWaitlist(t, wl)
}

func TestAutoEnrollAllOverridesCapacityAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, c, _ := newTestSetup(t, 2, 10, 11, 12, 13)

	// one user already waitlisted stays waitlisted; they hold an active
	// enrollment, so auto-enroll skips them
	for _, uid := range []uint64{10, 11, 12} {
		if _, err := c.Enroll(ctx, 1, uid); err != nil {
			t.Fatalf("enroll %d: %v", uid, err)
		}
	}
	count, err := c.ToggleAutoEnrollAll(ctx, 1, true)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if count != 1 { // only user 13 had no enrollment
		t.Fatalf("enrolled %d, want 1", count)
	}
	// capacity 2, but three confirmed now: the documented override
	if got := confirmedOf(t, s, 1); got != 3 {
		t.Fatalf("confirmed count %d, want 3", got)
	}

	again, err := c.ToggleAutoEnrollAll(ctx, 1, true)
	if err != nil {
		t.Fatalf("toggle again: %v", err)
	}
	if again != 0 {
		t.Fatalf("second run enrolled %d, want 0", again)
	}
	if got := confirmedOf(t, s, 1); got != 3 {
		t.Fatalf("confirmed count changed on rerun: %d", got)
	}

	// disabling only flips the flag
	count, err = c.ToggleAutoEnrollAll(ctx, 1, false)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if count != 0 {
		t.Fatalf("disable enrolled %d, want 0", count)
	}
}

// Launching N concurrent enrolls against capacity 1 must yield exactly
// one confirmed enrollment and N-1 densely numbered waitlist slots.
func TestConcurrentEnrollSingleSlot(t *testing.T) {
	ctx := context.Background()
	const users = 24
	profiles := make([]uint64, 0, users)
	for i := uint64(1); i <= users; i++ {
		profiles = append(profiles, 100+i)
	}
	s, c, _ := newTestSetup(t, 1, profiles...)
	c.now = time.Now // concurrent callers need the real clock

	var wg sync.WaitGroup
	errs := make(chan error, users)
	for _, uid := range profiles {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			if _, err := c.Enroll(ctx, 1, uid); err != nil {
				errs <- err
			}
		}(uid)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent enroll: %v", err)
	}

	if got := confirmedOf(t, s, 1); got != 1 {
		t.Fatalf("confirmed count %d, want exactly 1", got)
	}
	wl := waitlistOf(t, s, 1)
	if len(wl) != users-1 {
		t.Fatalf("waitlist size %d, want %d", len(wl), users-1)
	}
	checkDenseWaitlist(t, wl)
}

func TestLockContentionSurfacesEventBusy(t *testing.T) {
	ctx := context.Background()
	s, c, _ := newTestSetup(t, 1, 10)
	s.lockWait = 20 * time.Millisecond

	hold := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.WithEventLock(ctx, 1, func(tx Tx) error {
			close(hold)
			<-release
			return nil
		})
	}()
	<-hold
	_, err := c.Enroll(ctx, 1, 10)
	close(release)
	if !errors.Is(err, ErrEventBusy) {
		t.Fatalf("got %v, want ErrEventBusy", err)
	}
}
