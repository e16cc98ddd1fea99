// Package mongodb implements the repositories on MongoDB, mirroring the
// collection layout tickets/{id}, counters/tickets, settings/email,
// country_managers/{country} and pending_notifications/{id}.
package mongodb

import (
	"github.com/spec-kit/ticket-portal/internal/persistence"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

// NewStore wires the mongo repositories into a repository.Store.
func NewStore(m *persistence.Mongo) repository.Store {
	return repository.Store{
		Tickets:         NewTicketRepository(m.Client, m.DB),
		Settings:        NewSettingsRepository(m.DB),
		CountryManagers: NewCountryManagerRepository(m.DB),
		Pending:         NewPendingNotificationRepository(m.DB),
		Ping:            m.Ping,
		Close:           m.Close,
	}
}
