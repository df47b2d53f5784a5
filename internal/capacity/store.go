// Package capacity implements the seat-capacity allocation engine: the
// pure status calculator, the transactional allocator that is the only
// writer of seat counts, and the read-only query service used for display.
package capacity

import (
	"context"
	"errors"

	"github.com/medcamp/exam-seat-registration/internal/model"
)

// Store is the durable ledger contract the allocator and query service run
// against.  Implementations must make ApplyDelta's check-then-write atomic
// relative to other writers on the same (session, date) row; that property
// is what prevents two concurrent reservations from both taking the last
// seat.
type Store interface {
	// GetOrCreate returns the capacity row for (session, date), creating it
	// with zero counts and the configured defaults when absent.  Creation
	// must be safe under concurrent first touch.
	GetOrCreate(ctx context.Context, session model.SessionTime, examDate string) (model.CapacityStatus, error)

	// ApplyDelta atomically adjusts the tier count for pkg by delta (+1 to
	// commit a seat, -1 to release one) and the derived total, but only if
	// the post-state keeps every invariant; otherwise it returns
	// ErrCapacityExceeded and changes nothing.  Lock or version contention
	// surfaces as ErrConflict and may be retried by the caller.
	ApplyDelta(ctx context.Context, session model.SessionTime, examDate string, pkg model.PackageType, delta int) (model.CapacityStatus, error)

	// ReadMany returns all capacity rows for a date without locking.  Rows
	// that were never touched are simply absent from the result.
	ReadMany(ctx context.Context, examDate string) ([]model.CapacityStatus, error)
}

// Sentinel errors of the store contract.  Handlers and the allocator use
// errors.Is against these to separate final business answers from
// transient infrastructure conditions.
var (
	// ErrCapacityExceeded means the requested delta would violate an
	// invariant (overbooking, free-quota overflow or a negative count).
	// It is a final answer for that attempt and is never blindly retried
	// with the same stale counts.
	ErrCapacityExceeded = errors.New("capacity: invariant would be violated")

	// ErrConflict means the row lock (or optimistic version check) could
	// not be taken.  It is transient and safe to retry with backoff.
	ErrConflict = errors.New("capacity: row contention")

	// ErrNotFound means the row is absent and the operation runs in a
	// read-only context where creation is not permitted.
	ErrNotFound = errors.New("capacity: session not found")

	// ErrTransient is surfaced after the internal retry budget is
	// exhausted.  The caller may ask the user to try again; nothing was
	// committed.
	ErrTransient = errors.New("capacity: temporarily unavailable, retry")

	// ErrUnknownPackage indicates a caller bug (an unrecognised tier) and
	// is never retried.
	ErrUnknownPackage = errors.New("capacity: unknown package type")
)
