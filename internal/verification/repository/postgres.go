package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"goodies-auth/internal/db"
	"goodies-auth/internal/verification/domain"
)

const phoneConstraint = "verification_requests_phone_number_key"

const selectColumns = `provider_request_id, phone_number, success, created_at, updated_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a verification request repository backed by conn,
// either the pool or a *sql.Tx.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByProviderRequestID returns the request for id, or nil if not found.
func (r *PostgresRepository) GetByProviderRequestID(ctx context.Context, providerRequestID string) (*domain.Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM verification_requests
		WHERE provider_request_id = $1
	`, providerRequestID)
	return scanRequest(row)
}

// GetByPhone returns the request for phone, or nil if not found.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM verification_requests
		WHERE phone_number = $1
	`, phone)
	return scanRequest(row)
}

// Create inserts the request. The unique phone constraint makes this the atomic
// "insert if no live row" step; a conflict is returned as ErrDuplicatePhone.
func (r *PostgresRepository) Create(ctx context.Context, req *domain.Request) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_requests (provider_request_id, phone_number, success, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, req.ProviderRequestID, req.PhoneNumber, req.Success, req.CreatedAt, req.UpdatedAt)
	if db.IsUniqueViolation(err, phoneConstraint) {
		return ErrDuplicatePhone
	}
	return err
}

// MarkSuccess confirms an unconfirmed request. Only the first caller flips the row.
func (r *PostgresRepository) MarkSuccess(ctx context.Context, providerRequestID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verification_requests
		SET success = TRUE, updated_at = $2
		WHERE provider_request_id = $1 AND success = FALSE
	`, providerRequestID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes the request by provider request id. Only one concurrent caller sees true.
func (r *PostgresRepository) Delete(ctx context.Context, providerRequestID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_requests WHERE provider_request_id = $1`, providerRequestID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteStale removes requests past both the outstanding and the validity windows.
func (r *PostgresRepository) DeleteStale(ctx context.Context, createdBefore, confirmedBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM verification_requests
		WHERE created_at < $1
		  AND (success = FALSE OR updated_at < $2)
	`, createdBefore, confirmedBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRequest(row *sql.Row) (*domain.Request, error) {
	var req domain.Request
	err := row.Scan(&req.ProviderRequestID, &req.PhoneNumber, &req.Success, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}
