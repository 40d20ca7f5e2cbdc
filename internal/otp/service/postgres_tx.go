package service

import (
	"context"
	"database/sql"

	"goodies-auth/internal/db"
	sessionrepo "goodies-auth/internal/session/repository"
	sessionservice "goodies-auth/internal/session/service"
	userrepo "goodies-auth/internal/user/repository"
	verificationrepo "goodies-auth/internal/verification/repository"
)

// PostgresTransactor binds the finish stores to one Postgres transaction.
type PostgresTransactor struct {
	conn     *sql.DB
	sessions *sessionservice.Service
}

var _ Transactor = (*PostgresTransactor)(nil)

// NewPostgresTransactor returns a Transactor over conn. Sessions issued inside a
// transaction use sessions' key generation and clock.
func NewPostgresTransactor(conn *sql.DB, sessions *sessionservice.Service) *PostgresTransactor {
	return &PostgresTransactor{conn: conn, sessions: sessions}
}

// InTx implements Transactor.
func (t *PostgresTransactor) InTx(ctx context.Context, fn func(FinishStores) error) error {
	return db.WithTx(ctx, t.conn, func(tx *sql.Tx) error {
		return fn(FinishStores{
			Requests: verificationrepo.NewPostgresRepository(tx),
			Users:    userrepo.NewPostgresRepository(tx),
			Sessions: t.sessions.WithRepository(sessionrepo.NewPostgresRepository(tx)),
		})
	})
}
