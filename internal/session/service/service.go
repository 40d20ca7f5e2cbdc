// Package service issues and resolves opaque session keys.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goodies-auth/internal/security"
	"goodies-auth/internal/session/cache"
	"goodies-auth/internal/session/domain"
	"goodies-auth/internal/session/repository"
)

// Cache is an optional read-through cache keyed by session key hash.
type Cache interface {
	Get(ctx context.Context, keyHash string) (cache.Entry, bool, error)
	Set(ctx context.Context, keyHash string, e cache.Entry) error
	Delete(ctx context.Context, keyHashes ...string) error
}

// Service issues, authenticates and revokes sessions.
type Service struct {
	repo   repository.Repository
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewService returns a session service. cache may be nil.
func NewService(repo repository.Repository, c Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		cache:  c,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithRepository returns a copy of s that persists through repo and shares the
// cache and clock of s. Used to issue sessions inside a caller's transaction.
func (s *Service) WithRepository(repo repository.Repository) *Service {
	c := *s
	c.repo = repo
	return &c
}

// Issue creates a new session for userID and returns the plaintext key.
func (s *Service) Issue(ctx context.Context, userID string) (string, *domain.Session, error) {
	key, err := security.NewSessionKey()
	if err != nil {
		return "", nil, err
	}
	sess := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		KeyHash:   security.HashSessionKey(key),
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", nil, err
	}
	return key, sess, nil
}

// Authenticate resolves key to its session. Returns security.ErrInvalidSessionKey
// when the key is malformed or unknown.
func (s *Service) Authenticate(ctx context.Context, key string) (*domain.Session, error) {
	if !security.ValidSessionKeyFormat(key) {
		return nil, security.ErrInvalidSessionKey
	}
	keyHash := security.HashSessionKey(key)

	if s.cache != nil {
		e, ok, err := s.cache.Get(ctx, keyHash)
		if err != nil {
			s.logger.Warn("session cache get failed", zap.Error(err))
		} else if ok {
			return &domain.Session{ID: e.SessionID, UserID: e.UserID, KeyHash: keyHash}, nil
		}
	}

	sess, err := s.repo.GetByKeyHash(ctx, keyHash)
	if err != nil {
		return nil, err
	}
	if sess == nil || !security.SessionKeyHashEqual(key, sess.KeyHash) {
		return nil, security.ErrInvalidSessionKey
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, keyHash, cache.Entry{SessionID: sess.ID, UserID: sess.UserID}); err != nil {
			s.logger.Warn("session cache set failed", zap.Error(err))
		}
	}
	return sess, nil
}

// Revoke deletes a single session. Revoking an unknown session is not an error.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	keyHash, err := s.repo.Delete(ctx, sessionID)
	if err != nil {
		return err
	}
	if keyHash != "" {
		s.evict(ctx, keyHash)
	}
	return nil
}

// RevokeAll deletes every session of userID and returns how many were removed.
func (s *Service) RevokeAll(ctx context.Context, userID string) (int, error) {
	hashes, err := s.repo.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.evict(ctx, hashes...)
	return len(hashes), nil
}

func (s *Service) evict(ctx context.Context, keyHashes ...string) {
	if s.cache == nil || len(keyHashes) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, keyHashes...); err != nil {
		s.logger.Warn("session cache evict failed", zap.Error(err))
	}
}
