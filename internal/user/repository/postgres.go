package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"goodies-auth/internal/db"
	"goodies-auth/internal/user/domain"
)

const phoneConstraint = "users_phone_number_key"

const selectColumns = `id, phone_number, name, pin_hash, extra_info, created_at, updated_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a user repository that persists through conn,
// either the pool or a *sql.Tx.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByPhone returns the user with the given phone number, or nil if not found.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM users WHERE phone_number = $1`, phone)
	return scanUser(row)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	extra, err := json.Marshal(u.ExtraInfo)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, phone_number, name, pin_hash, extra_info, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.PhoneNumber, u.Name, u.PINHash, extra, u.CreatedAt, u.UpdatedAt)
	if db.IsUniqueViolation(err, phoneConstraint) {
		return ErrDuplicatePhone
	}
	return err
}

// UpdatePINHash replaces the PIN hash for id.
func (r *PostgresRepository) UpdatePINHash(ctx context.Context, id, pinHash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET pin_hash = $2, updated_at = $3 WHERE id = $1`, id, pinHash, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u     domain.User
		extra []byte
	)
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.Name, &u.PINHash, &extra, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &u.ExtraInfo); err != nil {
			return nil, err
		}
	}
	return &u, nil
}
