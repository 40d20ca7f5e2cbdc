package repository

import (
	"context"
	"errors"
	"time"

	"goodies-auth/internal/user/domain"
)

// ErrDuplicatePhone is returned by Create when an account already exists for the phone number.
var ErrDuplicatePhone = errors.New("user: phone number already registered")

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// UpdatePINHash replaces the user's PIN hash. Returns false if the user does not exist.
	UpdatePINHash(ctx context.Context, id, pinHash string, at time.Time) (bool, error)
}
