package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/eventloop/enrollment/internal/engine"
	"github.com/eventloop/enrollment/internal/model"
)

// EngineStore implements engine.Store on MySQL.  The per-event critical
// section is a transaction that takes a row lock on the events row with
// SELECT ... FOR UPDATE; every capacity-affecting read and write then
// happens inside that transaction, so two concurrent operations on the
// same event serialize at the database while operations on different
// events run fully in parallel.  The lock wait is bounded per
// transaction via innodb_lock_wait_timeout and surfaces as
// engine.ErrEventBusy, the retryable contention signal.
type EngineStore struct {
	db       *sql.DB
	lockWait time.Duration
}

// NewEngineStore returns an EngineStore bound to the given database.
// lockWait bounds how long a caller blocks on a contended event; values
// below one second are rounded up because MySQL counts whole seconds.
func NewEngineStore(db *sql.DB, lockWait time.Duration) *EngineStore {
	if lockWait < time.Second {
		lockWait = time.Second
	}
	return &EngineStore{db: db, lockWait: lockWait}
}

// WithEventLock opens the transaction, locks the events row and runs fn
// against a transaction-scoped view.  fn's writes are committed only
// when it returns nil; any error rolls the whole section back.
func (s *EngineStore) WithEventLock(ctx context.Context, eventID uint64, fn func(tx engine.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	secs := int(s.lockWait / time.Second)
	if _, err := tx.ExecContext(ctx, "SET innodb_lock_wait_timeout = ?", secs); err != nil {
		return err
	}

	const q = `SELECT id, title, description, max_capacity, is_published, auto_enroll_all,
	                  starts_at, created_by, created_at, updated_at
	           FROM events WHERE id = ? FOR UPDATE`
	var ev model.Event
	err = tx.QueryRowContext(ctx, q, eventID).Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.MaxCapacity, &ev.IsPublished,
		&ev.AutoEnrollAll, &ev.StartsAt, &ev.CreatedBy, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return engine.ErrEventNotFound
		}
		return mapContention(err)
	}

	if err := fn(&eventTx{tx: tx, event: &ev}); err != nil {
		return mapContention(err)
	}
	if err := tx.Commit(); err != nil {
		return mapContention(err)
	}
	committed = true
	return nil
}

// mapContention translates MySQL lock-wait timeouts (1205) and deadlock
// victims (1213) into the transient busy error.  The driver error string
// carries the numeric code, same trick the user repository uses for
// duplicate keys.
func mapContention(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "1205") || strings.Contains(msg, "1213") {
		return engine.ErrEventBusy
	}
	return err
}

// eventTx is the transaction-scoped view handed to the coordinator.
// The event snapshot is kept in sync with SetCapacity and
// SetAutoEnrollAll so later reads in the same section see the writes.
type eventTx struct {
	tx    *sql.Tx
	event *model.Event
}

func (t *eventTx) Event() *model.Event { return t.event }

func (t *eventTx) ConfirmedCount(ctx context.Context) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE event_id = ? AND status = 'confirmed'`,
		t.event.ID).Scan(&n)
	return n, err
}

func (t *eventTx) ActiveEnrollment(ctx context.Context, userID uint64) (*model.Enrollment, error) {
	const q = `SELECT id, event_id, user_id, status, waitlist_position, registered_at,
	                  checked_in_at, created_at, updated_at
	           FROM enrollments
	           WHERE event_id = ? AND user_id = ? AND status <> 'cancelled'
	           LIMIT 1`
	return t.scanOne(t.tx.QueryRowContext(ctx, q, t.event.ID, userID))
}

func (t *eventTx) EnrollmentByID(ctx context.Context, enrollmentID uint64) (*model.Enrollment, error) {
	const q = `SELECT id, event_id, user_id, status, waitlist_position, registered_at,
	                  checked_in_at, created_at, updated_at
	           FROM enrollments
	           WHERE id = ? AND event_id = ?`
	return t.scanOne(t.tx.QueryRowContext(ctx, q, enrollmentID, t.event.ID))
}

func (t *eventTx) scanOne(row *sql.Row) (*model.Enrollment, error) {
	var e model.Enrollment
	var pos sql.NullInt64
	var checkedIn sql.NullTime
	err := row.Scan(&e.ID, &e.EventID, &e.UserID, &e.Status, &pos,
		&e.RegisteredAt, &checkedIn, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if pos.Valid {
		p := uint32(pos.Int64)
		e.WaitlistPosition = &p
	}
	if checkedIn.Valid {
		ci := checkedIn.Time
		e.CheckedInAt = &ci
	}
	return &e, nil
}

func (t *eventTx) Waitlist(ctx context.Context) ([]model.Enrollment, error) {
	const q = `SELECT id, event_id, user_id, status, waitlist_position, registered_at,
	                  checked_in_at, created_at, updated_at
	           FROM enrollments
	           WHERE event_id = ? AND status = 'waitlist'
	           ORDER BY registered_at ASC, id ASC`
	rows, err := t.tx.QueryContext(ctx, q, t.event.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var wl []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		var pos sql.NullInt64
		var checkedIn sql.NullTime
		if err := rows.Scan(&e.ID, &e.EventID, &e.UserID, &e.Status, &pos,
			&e.RegisteredAt, &checkedIn, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if pos.Valid {
			p := uint32(pos.Int64)
			e.WaitlistPosition = &p
		}
		if checkedIn.Valid {
			ci := checkedIn.Time
			e.CheckedInAt = &ci
		}
		wl = append(wl, e)
	}
	return wl, rows.Err()
}

func (t *eventTx) InsertEnrollment(ctx context.Context, e *model.Enrollment) error {
	const q = `INSERT INTO enrollments (event_id, user_id, status, waitlist_position, registered_at)
	           VALUES (?, ?, ?, ?, ?)`
	var pos interface{}
	if e.WaitlistPosition != nil {
		pos = *e.WaitlistPosition
	}
	res, err := t.tx.ExecContext(ctx, q, e.EventID, e.UserID, string(e.Status), pos,
		e.RegisteredAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func (t *eventTx) UpdateEnrollmentStatus(ctx context.Context, enrollmentID uint64, status model.EnrollmentStatus, position *uint32) error {
	var pos interface{}
	if position != nil {
		pos = *position
	}
	_, err := t.tx.ExecContext(ctx,
		`UPDATE enrollments SET status = ?, waitlist_position = ? WHERE id = ?`,
		string(status), pos, enrollmentID)
	return err
}

func (t *eventTx) SetWaitlistPosition(ctx context.Context, enrollmentID uint64, position uint32) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE enrollments SET waitlist_position = ? WHERE id = ?`,
		position, enrollmentID)
	return err
}

func (t *eventTx) SetCapacity(ctx context.Context, maxCapacity uint32) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE events SET max_capacity = ? WHERE id = ?`, maxCapacity, t.event.ID); err != nil {
		return err
	}
	t.event.MaxCapacity = maxCapacity
	return nil
}

func (t *eventTx) SetAutoEnrollAll(ctx context.Context, enabled bool) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE events SET auto_enroll_all = ? WHERE id = ?`, enabled, t.event.ID); err != nil {
		return err
	}
	t.event.AutoEnrollAll = enabled
	return nil
}

func (t *eventTx) ProfileExists(ctx context.Context, userID uint64) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE id = ? AND is_active = 1`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *eventTx) ProfileIDs(ctx context.Context) ([]uint64, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id FROM users WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *eventTx) ActiveUserIDs(ctx context.Context) (map[uint64]struct{}, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT user_id FROM enrollments WHERE event_id = ? AND status <> 'cancelled'`,
		t.event.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]struct{})
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
