package repository

import (
	"context"
	"database/sql"
	"errors"

	"goodies-auth/internal/db"
	"goodies-auth/internal/session/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a session repository that persists through conn,
// either the pool or a *sql.Tx.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the session. ID and KeyHash must be set by the caller.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_keys (id, key_hash, user_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, s.ID, s.KeyHash, s.UserID, s.CreatedAt)
	return err
}

// GetByKeyHash returns the session for keyHash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByKeyHash(ctx context.Context, keyHash string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, key_hash, created_at
		FROM session_keys
		WHERE key_hash = $1
	`, keyHash).Scan(&s.ID, &s.UserID, &s.KeyHash, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Delete removes the session by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (string, error) {
	var keyHash string
	err := r.db.QueryRowContext(ctx, `DELETE FROM session_keys WHERE id = $1 RETURNING key_hash`, id).Scan(&keyHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return keyHash, nil
}

// DeleteAllByUser removes all sessions of userID.
func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `DELETE FROM session_keys WHERE user_id = $1 RETURNING key_hash`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}
