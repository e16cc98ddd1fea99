// Package postgres implements the repositories on PostgreSQL through pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-portal/internal/repository"
)

// NewStore wires the pgx repositories into a repository.Store.
func NewStore(pool *pgxpool.Pool) repository.Store {
	return repository.Store{
		Tickets:         NewTicketRepository(pool),
		Settings:        NewSettingsRepository(pool),
		CountryManagers: NewCountryManagerRepository(pool),
		Pending:         NewPendingNotificationRepository(pool),
		Ping:            pool.Ping,
		Close:           func(context.Context) { pool.Close() },
	}
}
