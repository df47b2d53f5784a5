package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/medcamp/exam-seat-registration/internal/model"
)

// RegistrationRepo provides CRUD operations for registration records.  A
// row exists only while its seat is committed: the allocator commits the
// seat first, the row is written afterwards, and deleting the row is
// always followed by a seat release.  All timestamps are stored in UTC.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a RegistrationRepo bound to the database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span the registration and user tables.
func (r *RegistrationRepo) DB() *sql.DB { return r.db }

// NewExamCode generates the random code handed to the student.  Sixteen
// random bytes rendered as upper-case hex; collisions are handled by the
// unique constraint plus a regenerate-and-retry in the caller.
func NewExamCode() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// CreateTx inserts a registration within the provided transaction and
// populates the generated ID and CreatedAt on the record.  ErrDuplicate is
// returned when the exam code is already taken; the caller should
// regenerate the code and retry.  The caller commits or rolls back.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, reg *model.Registration) error {
	const q = `INSERT INTO registrations (exam_code, user_id, package_type, session_time, exam_date, payment_ref)
            VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, reg.ExamCode, reg.UserID, reg.PackageType, reg.SessionTime, reg.ExamDate, reg.PaymentRef)
	if err != nil {
		return classify(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)
	// Query back to populate the DB-side timestamp.
	const sel = `SELECT created_at FROM registrations WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, reg.ID).Scan(&reg.CreatedAt)
}

// GetByCodeTx loads a registration by exam code within a transaction,
// enforcing ownership.  sql.ErrNoRows is returned when the code does not
// exist and ErrForbidden when it belongs to a different user.
func (r *RegistrationRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, examCode, userID string) (*model.Registration, error) {
	const q = `SELECT id, exam_code, user_id, package_type, session_time, exam_date, payment_ref, created_at
            FROM registrations WHERE exam_code = ?`
	reg, err := scanRegistration(tx.QueryRowContext(ctx, q, examCode))
	if err != nil {
		return nil, err
	}
	if reg.UserID != userID {
		return nil, ErrForbidden
	}
	return reg, nil
}

// DeleteTx removes a registration row within the provided transaction.
func (r *RegistrationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `DELETE FROM registrations WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, id)
	return classify(err)
}

// ListByUser returns all registrations belonging to a user, newest first.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	const q = `SELECT id, exam_code, user_id, package_type, session_time, exam_date, payment_ref, created_at
            FROM registrations WHERE user_id = ? ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

// ListByUserTx is ListByUser inside an existing transaction, used by the
// PDPA erasure path so listing and deletion see the same rows.
func (r *RegistrationRepo) ListByUserTx(ctx context.Context, tx *sql.Tx, userID string) ([]model.Registration, error) {
	const q = `SELECT id, exam_code, user_id, package_type, session_time, exam_date, payment_ref, created_at
            FROM registrations WHERE user_id = ? FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, classify(err)
	}
	return collect(rows)
}

// ListByDate returns all registrations for an exam date, for the admin
// monitoring view.
func (r *RegistrationRepo) ListByDate(ctx context.Context, examDate string) ([]model.Registration, error) {
	const q = `SELECT id, exam_code, user_id, package_type, session_time, exam_date, payment_ref, created_at
            FROM registrations WHERE exam_date = ? ORDER BY created_at DESC`
	return r.list(ctx, q, examDate)
}

func (r *RegistrationRepo) list(ctx context.Context, query string, arg any) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, classify(err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]model.Registration, error) {
	defer rows.Close()
	out := make([]model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var reg model.Registration
	var examDate time.Time
	var payRef sql.NullString
	err := row.Scan(&reg.ID, &reg.ExamCode, &reg.UserID, &reg.PackageType, &reg.SessionTime, &examDate, &payRef, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, classify(err)
	}
	reg.ExamDate = examDate.Format("2006-01-02")
	if payRef.Valid {
		ref := payRef.String
		reg.PaymentRef = &ref
	}
	return &reg, nil
}
