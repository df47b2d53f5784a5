package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/medcamp/exam-seat-registration/internal/capacity"
	"github.com/medcamp/exam-seat-registration/internal/model"
)

// CapacityRepo is the MySQL implementation of the capacity store contract.
// It owns the session_capacity and capacity_status tables; nothing else in
// the service writes to them.  The (session_time, exam_date) unique key on
// both tables is the concurrency-control anchor: ApplyDelta serialises
// writers with SELECT ... FOR UPDATE on that row.
type CapacityRepo struct {
	db          *sql.DB
	maxCapacity int // default for lazily created rows
	freeLimit   int // default for lazily created rows
}

// NewCapacityRepo binds the repository to a database and the configured
// defaults for lazily created sessions.
func NewCapacityRepo(db *sql.DB, maxCapacity, freeLimit int) *CapacityRepo {
	return &CapacityRepo{db: db, maxCapacity: maxCapacity, freeLimit: freeLimit}
}

var _ capacity.Store = (*CapacityRepo)(nil)

const selectStatus = `SELECT id, session_time, exam_date, total_count, free_count, advanced_count, max_capacity, free_limit, availability_status, last_updated
        FROM capacity_status WHERE session_time = ? AND exam_date = ?`

// GetOrCreate returns the capacity row for (session, date), creating both
// the status row and its session_capacity mirror with zero counts when
// absent.  A duplicate-key error on insert means another request created
// the row first; the fresh row is read back in that case, so concurrent
// first touch is safe.
func (r *CapacityRepo) GetOrCreate(ctx context.Context, session model.SessionTime, examDate string) (model.CapacityStatus, error) {
	cs, err := r.get(ctx, r.db, session, examDate)
	if err == nil {
		return cs, nil
	}
	if !errors.Is(err, capacity.ErrNotFound) {
		return model.CapacityStatus{}, err
	}

	const insStatus = `INSERT INTO capacity_status
            (session_time, exam_date, total_count, free_count, advanced_count, max_capacity, free_limit, availability_status)
            VALUES (?, ?, 0, 0, 0, ?, ?, 'AVAILABLE')`
	if _, err := r.db.ExecContext(ctx, insStatus, session, examDate, r.maxCapacity, r.freeLimit); err != nil && !isDuplicate(err) {
		return model.CapacityStatus{}, classify(err)
	}
	const insLedger = `INSERT INTO session_capacity (session_time, exam_date, current_count, max_capacity) VALUES (?, ?, 0, ?)`
	if _, err := r.db.ExecContext(ctx, insLedger, session, examDate, r.maxCapacity); err != nil && !isDuplicate(err) {
		return model.CapacityStatus{}, classify(err)
	}
	return r.get(ctx, r.db, session, examDate)
}

// ApplyDelta adjusts the tier count for pkg by delta inside one
// transaction.  The target row is locked with FOR UPDATE, the post-state
// is validated against every invariant, and both the status row and the
// session_capacity mirror are updated together.  Any invariant violation
// rolls back with ErrCapacityExceeded; deadlocks and lock-wait timeouts
// surface as the retryable ErrConflict.
func (r *CapacityRepo) ApplyDelta(ctx context.Context, session model.SessionTime, examDate string, pkg model.PackageType, delta int) (model.CapacityStatus, error) {
	if delta != 1 && delta != -1 {
		return model.CapacityStatus{}, fmt.Errorf("capacity: delta must be +1 or -1, got %d", delta)
	}
	if !pkg.Valid() {
		return model.CapacityStatus{}, capacity.ErrUnknownPackage
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CapacityStatus{}, classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const lockQ = selectStatus + ` FOR UPDATE`
	cs, err := scanStatus(tx.QueryRowContext(ctx, lockQ, session, examDate))
	if err != nil {
		return model.CapacityStatus{}, err
	}

	free, adv := cs.FreeCount, cs.AdvancedCount
	if pkg == model.PackageFree {
		free += delta
	} else {
		adv += delta
	}
	total := free + adv
	if free < 0 || adv < 0 || free > cs.FreeLimit || total > cs.MaxCapacity {
		return model.CapacityStatus{}, capacity.ErrCapacityExceeded
	}

	snap := capacity.Snapshot{Total: total, Free: free, Advanced: adv, MaxCapacity: cs.MaxCapacity, FreeLimit: cs.FreeLimit}
	// CLOSED is a clock fact and never persisted; the stored status only
	// reflects counts.
	status := capacity.DeriveStatus(snap, false)

	const updStatus = `UPDATE capacity_status SET total_count = ?, free_count = ?, advanced_count = ?, availability_status = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, updStatus, total, free, adv, status, cs.ID); err != nil {
		return model.CapacityStatus{}, classify(err)
	}
	const updLedger = `UPDATE session_capacity SET current_count = ? WHERE session_time = ? AND exam_date = ?`
	if _, err := tx.ExecContext(ctx, updLedger, total, session, examDate); err != nil {
		return model.CapacityStatus{}, classify(err)
	}
	if err := tx.Commit(); err != nil {
		return model.CapacityStatus{}, classify(err)
	}
	committed = true

	cs.TotalCount, cs.FreeCount, cs.AdvancedCount = total, free, adv
	cs.AvailabilityStatus = status
	cs.LastUpdated = time.Now().UTC()
	return cs, nil
}

// ReadMany returns all capacity rows for a date without locking, ordered
// morning first.  Intended for the query service and the admin dashboard.
func (r *CapacityRepo) ReadMany(ctx context.Context, examDate string) ([]model.CapacityStatus, error) {
	const q = `SELECT id, session_time, exam_date, total_count, free_count, advanced_count, max_capacity, free_limit, availability_status, last_updated
            FROM capacity_status WHERE exam_date = ? ORDER BY session_time = 'MORNING' DESC`
	rows, err := r.db.QueryContext(ctx, q, examDate)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	out := make([]model.CapacityStatus, 0, 2)
	for rows.Next() {
		cs, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// UpdateLimits applies an administrative correction to a session's limits.
// The row is locked and the new limits are checked against the current
// counts so a correction can never put the ledger into a state the
// invariants forbid.
func (r *CapacityRepo) UpdateLimits(ctx context.Context, session model.SessionTime, examDate string, maxCapacity, freeLimit int) (model.CapacityStatus, error) {
	if maxCapacity <= 0 || freeLimit < 0 || freeLimit > maxCapacity {
		return model.CapacityStatus{}, capacity.ErrCapacityExceeded
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CapacityStatus{}, classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const lockQ = selectStatus + ` FOR UPDATE`
	cs, err := scanStatus(tx.QueryRowContext(ctx, lockQ, session, examDate))
	if err != nil {
		return model.CapacityStatus{}, err
	}
	if cs.TotalCount > maxCapacity || cs.FreeCount > freeLimit {
		return model.CapacityStatus{}, capacity.ErrCapacityExceeded
	}

	snap := capacity.Snapshot{Total: cs.TotalCount, Free: cs.FreeCount, Advanced: cs.AdvancedCount, MaxCapacity: maxCapacity, FreeLimit: freeLimit}
	status := capacity.DeriveStatus(snap, false)

	const updStatus = `UPDATE capacity_status SET max_capacity = ?, free_limit = ?, availability_status = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, updStatus, maxCapacity, freeLimit, status, cs.ID); err != nil {
		return model.CapacityStatus{}, classify(err)
	}
	const updLedger = `UPDATE session_capacity SET max_capacity = ? WHERE session_time = ? AND exam_date = ?`
	if _, err := tx.ExecContext(ctx, updLedger, maxCapacity, session, examDate); err != nil {
		return model.CapacityStatus{}, classify(err)
	}
	if err := tx.Commit(); err != nil {
		return model.CapacityStatus{}, classify(err)
	}
	committed = true

	cs.MaxCapacity, cs.FreeLimit, cs.AvailabilityStatus = maxCapacity, freeLimit, status
	return cs, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// get reads one status row without locking.
func (r *CapacityRepo) get(ctx context.Context, db *sql.DB, session model.SessionTime, examDate string) (model.CapacityStatus, error) {
	return scanStatus(db.QueryRowContext(ctx, selectStatus, session, examDate))
}

// scanStatus scans a capacity_status row.  exam_date arrives as DATETIME
// midnight with parseTime enabled and is normalised back to YYYY-MM-DD.
func scanStatus(row rowScanner) (model.CapacityStatus, error) {
	var cs model.CapacityStatus
	var examDate time.Time
	err := row.Scan(&cs.ID, &cs.SessionTime, &examDate, &cs.TotalCount, &cs.FreeCount, &cs.AdvancedCount,
		&cs.MaxCapacity, &cs.FreeLimit, &cs.AvailabilityStatus, &cs.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CapacityStatus{}, capacity.ErrNotFound
		}
		return model.CapacityStatus{}, classify(err)
	}
	cs.ExamDate = examDate.Format("2006-01-02")
	return cs, nil
}
