// Package repository implements persistence over MySQL.  Error values that
// belong to the capacity store contract live in the capacity package; the
// sentinels here cover concerns shared by the registration and user
// repositories so handlers can map them to HTTP statuses.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/medcamp/exam-seat-registration/internal/capacity"
)

// ErrForbidden is returned when the caller operates on a record owned by
// someone else.  Handlers translate this into a 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrDuplicate is returned when a unique constraint rejects an insert,
// such as an exam code collision.  Callers may regenerate and retry.
var ErrDuplicate = errors.New("duplicate key")

// MySQL server error numbers this package cares about.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// classify maps driver errors onto the sentinels of the store contract and
// this package.  Deadlocks and lock-wait timeouts become the retryable
// conflict; duplicate keys become ErrDuplicate; anything else passes
// through unchanged.
func classify(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
		return capacity.ErrConflict
	case mysqlErrDuplicateEntry:
		return ErrDuplicate
	}
	return err
}

// isDuplicate reports whether err is a unique-constraint violation.
func isDuplicate(err error) bool {
	return errors.Is(classify(err), ErrDuplicate)
}
