package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/medcamp/exam-seat-registration/internal/model"
)

// UserRepo stores the minimal registrant profile used for PDPA export and
// erasure.  The primary key is the JWT subject issued by the external auth
// service; this service never creates identities of its own.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo bound to the database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// UpsertTx writes the profile captured with a registration.  Repeat
// registrations refresh the contact fields in place.
func (r *UserRepo) UpsertTx(ctx context.Context, tx *sql.Tx, u model.User) error {
	const q = `INSERT INTO users (id, email, full_name) VALUES (?, ?, ?)
            ON DUPLICATE KEY UPDATE email = VALUES(email), full_name = VALUES(full_name)`
	_, err := tx.ExecContext(ctx, q, u.ID, u.Email, u.FullName)
	return classify(err)
}

// GetByID loads one profile.  sql.ErrNoRows is returned when the user has
// never registered (or has been erased).
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT id, email, full_name, created_at FROM users WHERE id = ?`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Email, &u.FullName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, classify(err)
	}
	return &u, nil
}

// DeleteTx removes the profile row, the final step of PDPA erasure.
func (r *UserRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	const q = `DELETE FROM users WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, id)
	return classify(err)
}
