package repository

import (
	"context"
	"errors"
	"time"

	"goodies-auth/internal/verification/domain"
)

// ErrDuplicatePhone is returned by Create when another request for the same phone number exists.
var ErrDuplicatePhone = errors.New("verification request already exists for phone number")

// Repository defines persistence for OTP verification requests.
type Repository interface {
	// GetByProviderRequestID returns the request, or nil if not found.
	GetByProviderRequestID(ctx context.Context, providerRequestID string) (*domain.Request, error)
	// GetByPhone returns the request for phone, or nil if none exists.
	GetByPhone(ctx context.Context, phone string) (*domain.Request, error)
	// Create inserts r. Returns ErrDuplicatePhone if the phone already has a row.
	Create(ctx context.Context, r *domain.Request) error
	// MarkSuccess flips success to true and sets updated_at for a request that is not yet confirmed.
	// Returns false when no unconfirmed row matched (missing or already confirmed).
	MarkSuccess(ctx context.Context, providerRequestID string, at time.Time) (bool, error)
	// Delete removes the request and reports whether a row was removed. Deleting a missing
	// request is not an error.
	Delete(ctx context.Context, providerRequestID string) (bool, error)
	// DeleteStale removes requests created before createdBefore that are either unconfirmed
	// or were confirmed before confirmedBefore. Returns the number of rows removed.
	DeleteStale(ctx context.Context, createdBefore, confirmedBefore time.Time) (int64, error)
}
