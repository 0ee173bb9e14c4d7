package engine

import (
	"context"
	"sort"
	"time"

	"github.com/eventloop/enrollment/internal/model"
)

// memStore is an in-memory Store used by the engine tests.  Each event
// gets a one-slot semaphore; WithEventLock blocks on it with a bounded
// wait, matching the production row-lock contract closely enough to
// exercise the coordinator's serialization behavior.
type memStore struct {
	mu          chan struct{} // guards the maps themselves
	events      map[uint64]*model.Event
	enrollments map[uint64]*model.Enrollment
	profiles    map[uint64]bool
	locks       map[uint64]chan struct{}
	nextID      uint64
	lockWait    time.Duration
}

func newMemStore() *memStore {
	s := &memStore{
		mu:          make(chan struct{}, 1),
		events:      make(map[uint64]*model.Event),
		enrollments: make(map[uint64]*model.Enrollment),
		profiles:    make(map[uint64]bool),
		locks:       make(map[uint64]chan struct{}),
		lockWait:    2 * time.Second,
	}
	s.mu <- struct{}{}
	return s
}

func (s *memStore) addEvent(ev model.Event) {
	<-s.mu
	defer func() { s.mu <- struct{}{} }()
	cp := ev
	s.events[ev.ID] = &cp
	if _, ok := s.locks[ev.ID]; !ok {
		sem := make(chan struct{}, 1)
		sem <- struct{}{}
		s.locks[ev.ID] = sem
	}
}

func (s *memStore) addProfile(id uint64) {
	<-s.mu
	defer func() { s.mu <- struct{}{} }()
	s.profiles[id] = true
}

func (s *memStore) WithEventLock(ctx context.Context, eventID uint64, fn func(tx Tx) error) error {
	<-s.mu
	sem, ok := s.locks[eventID]
	s.mu <- struct{}{}
	if !ok {
		return ErrEventNotFound
	}
	select {
	case <-sem:
	case <-time.After(s.lockWait):
		return ErrEventBusy
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { sem <- struct{}{} }()
	<-s.mu
	ev, ok := s.events[eventID]
	if !ok {
		s.mu <- struct{}{}
		return ErrEventNotFound
	}
	snapshot := *ev
	s.mu <- struct{}{}
	return fn(&memTx{store: s, event: &snapshot})
}

// memTx mutates the shared maps directly; exclusivity per event comes
// from the semaphore held by WithEventLock.  Coordinator guard failures
// happen before any write, so rollback fidelity is not needed here.
type memTx struct {
	store *memStore
	event *model.Event
}

func (t *memTx) Event() *model.Event { return t.event }

func (t *memTx) ConfirmedCount(ctx context.Context) (int, error) {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	n := 0
	for _, e := range t.store.enrollments {
		if e.EventID == t.event.ID && e.Status == model.StatusConfirmed {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ActiveEnrollment(ctx context.Context, userID uint64) (*model.Enrollment, error) {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	for _, e := range t.store.enrollments {
		if e.EventID == t.event.ID && e.UserID == userID && e.Active() {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *memTx) EnrollmentByID(ctx context.Context, enrollmentID uint64) (*model.Enrollment, error) {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	e, ok := t.store.enrollments[enrollmentID]
	if !ok || e.EventID != t.event.ID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (t *memTx) Waitlist(ctx context.Context) ([]model.Enrollment, error) {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	var wl []model.Enrollment
	for _, e := range t.store.enrollments {
		if e.EventID == t.event.ID && e.Status == model.StatusWaitlist {
			wl = append(wl, *e)
		}
	}
	sort.Slice(wl, func(i, j int) bool {
		if wl[i].RegisteredAt.Equal(wl[j].RegisteredAt) {
			return wl[i].ID < wl[j].ID
		}
		return wl[i].RegisteredAt.Before(wl[j].RegisteredAt)
	})
	return wl, nil
}

func (t *memTx) InsertEnrollment(ctx context.Context, e *model.Enrollment) error {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	t.store.nextID++
	e.ID = t.store.nextID
	cp := *e
	t.store.enrollments[e.ID] = &cp
	return nil
}

func (t *memTx) UpdateEnrollmentStatus(ctx context.Context, enrollmentID uint64, status model.EnrollmentStatus, position *uint32) error {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	e := t.store.enrollments[enrollmentID]
	e.Status = status
	e.WaitlistPosition = position
	return nil
}

func (t *memTx) SetWaitlistPosition(ctx context.Context, enrollmentID uint64, position uint32) error {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	p := position
	t.store.enrollments[enrollmentID].WaitlistPosition = &p
	return nil
}

func (t *memTx) SetCapacity(ctx context.Context, maxCapacity uint32) error {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	t.store.events[t.event.ID].MaxCapacity = maxCapacity
	t.event.MaxCapacity = maxCapacity
	return nil
}

func (t *memTx) SetAutoEnrollAll(ctx context.Context, enabled bool) error {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	t.store.events[t.event.ID].AutoEnrollAll = enabled
	t.event.AutoEnrollAll = enabled
	return nil
}

func (t *memTx) ProfileExists(ctx context.Context, userID uint64) (bool, error) {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	return t.store.profiles[userID], nil
}

func (t *memTx) ProfileIDs(ctx context.Context) ([]uint64, error) {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	ids := make([]uint64, 0, len(t.store.profiles))
	for id := range t.store.profiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *memTx) ActiveUserIDs(ctx context.Context) (map[uint64]struct{}, error) {
	<-t.store.mu
	defer func() { t.store.mu <- struct{}{} }()
	out := make(map[uint64]struct{})
	for _, e := range t.store.enrollments {
		if e.EventID == t.event.ID && e.Active() {
			out[e.UserID] = struct{}{}
		}
	}
	return out, nil
}
