package capacity

import (
	"context"
	"errors"
	"time"

	"github.com/medcamp/exam-seat-registration/internal/model"
)

const (
	defaultMaxAttempts = 5
	defaultBaseBackoff = 50 * time.Millisecond
)

// Token represents one committed seat.  It records the tier the seat was
// charged to so that a later release decrements the right counter.
type Token struct {
	SessionTime model.SessionTime
	ExamDate    string
	PackageType model.PackageType
}

// Allocator is the only entry point that mutates capacity.  Every reserve
// attempt re-reads the counts inside the store's transaction scope and
// re-evaluates the accept policy against them; a status cached from an
// earlier read is never trusted for the accept decision.
type Allocator struct {
	store       Store
	loc         *time.Location
	now         func() time.Time
	maxAttempts int
	baseBackoff time.Duration
}

// NewAllocator builds an allocator over the given store.  loc is the exam's
// timezone, used for the registration cutoff.
func NewAllocator(store Store, loc *time.Location) *Allocator {
	if store == nil {
		panic("nil store passed to NewAllocator")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Allocator{
		store:       store,
		loc:         loc,
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
	}
}

// ReserveSeat checks the accept policy against freshly read counts and
// commits one seat for pkg.  Policy refusals come back as *RejectionError
// and are final.  Row contention is retried with exponential backoff; a
// CapacityExceeded raised at commit time despite a passing pre-check means
// another writer won the race, so the whole read-check-write sequence is
// rerun from the top.  When the retry budget runs out, ErrTransient is
// returned and nothing was committed.
func (a *Allocator) ReserveSeat(ctx context.Context, session model.SessionTime, examDate string, pkg model.PackageType) (*Token, error) {
	if !pkg.Valid() {
		return nil, ErrUnknownPackage
	}
	if !session.Valid() {
		return nil, ErrNotFound
	}

	backoff := a.baseBackoff
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		tok, err := a.tryReserve(ctx, session, examDate, pkg)
		if err == nil {
			return tok, nil
		}
		var rej *RejectionError
		if errors.As(err, &rej) {
			return nil, err
		}
		if errors.Is(err, ErrCapacityExceeded) {
			// Lost the race between check and write; re-read immediately,
			// the fresh counts will either reject with a specific reason
			// or find room that a concurrent release just opened.
			continue
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		if attempt == a.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, ErrTransient
}

// tryReserve runs one full read-check-write sequence.
func (a *Allocator) tryReserve(ctx context.Context, session model.SessionTime, examDate string, pkg model.PackageType) (*Token, error) {
	cs, err := a.store.GetOrCreate(ctx, session, examDate)
	if err != nil {
		return nil, err
	}
	closed := SessionClosed(session, examDate, a.now().In(a.loc), a.loc)
	if ok, reason := CanAccept(pkg, SnapshotOf(cs), closed); !ok {
		return nil, &RejectionError{Reason: reason}
	}
	if _, err := a.store.ApplyDelta(ctx, session, examDate, pkg, +1); err != nil {
		return nil, err
	}
	return &Token{SessionTime: session, ExamDate: examDate, PackageType: pkg}, nil
}

// ReleaseSeat returns a committed seat to the pool.  It is idempotent: a
// release that would drive a count negative is rejected by the store's
// invariant check and treated here as already done.  Releases are allowed
// after the cutoff so cancellations and erasure always complete.
func (a *Allocator) ReleaseSeat(ctx context.Context, tok Token) error {
	if !tok.PackageType.Valid() {
		return ErrUnknownPackage
	}
	backoff := a.baseBackoff
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		_, err := a.store.ApplyDelta(ctx, tok.SessionTime, tok.ExamDate, tok.PackageType, -1)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrCapacityExceeded), errors.Is(err, ErrNotFound):
			// Nothing left to release for this tier: double release or a
			// session that was never touched.  Counts stay untouched.
			return nil
		case !errors.Is(err, ErrConflict):
			return err
		}
		if attempt == a.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return ErrTransient
}
