package repository

import (
	"context"

	"goodies-auth/internal/session/domain"
)

// Repository defines persistence for session keys.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByKeyHash(ctx context.Context, keyHash string) (*domain.Session, error)
	// Delete removes the session and returns its key hash, or "" if it did not exist.
	Delete(ctx context.Context, id string) (string, error)
	// DeleteAllByUser removes every session of the user and returns their key hashes.
	DeleteAllByUser(ctx context.Context, userID string) ([]string, error)
}
