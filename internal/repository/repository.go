package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict is returned when a conditional write lost a race.
	ErrConflict = errors.New("repository: concurrent modification")
	// ErrTxAborted is returned when a transaction kept conflicting until its retry budget ran out.
	ErrTxAborted = errors.New("repository: transaction aborted")
)

// DefaultTxAttempts bounds transaction retries for backends that retry explicitly.
const DefaultTxAttempts = 5

// Store bundles the repositories of one backend.
type Store struct {
	Tickets         TicketRepository
	Settings        SettingsRepository
	CountryManagers CountryManagerRepository
	Pending         PendingNotificationRepository
	Ping            func(ctx context.Context) error
	Close           func(ctx context.Context)
}

// IDAllocator derives the next counter state and ticket ID from the current
// counter. It runs inside the creation transaction and may run more than once
// if the transaction is retried, so it must be free of side effects.
type IDAllocator func(current domain.TicketCounter) (next domain.TicketCounter, ticketID string)

// TicketFilter captures admin search parameters.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	Country     *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// Normalize applies paging defaults.
func (f TicketFilter) Normalize() TicketFilter {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// TicketRepository encapsulates ticket and counter persistence.
type TicketRepository interface {
	// CreateWithAllocatedID reads the counter, lets allocate compute the next
	// value and ID, writes the counter and inserts the ticket in one
	// transaction. On success ticket.ID, CreatedAt and UpdatedAt are set.
	CreateWithAllocatedID(ctx context.Context, ticket *domain.Ticket, allocate IDAllocator) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, at time.Time) error
	// AppendEmailHistory appends entry only if the stored history still has
	// expectedLen entries, applying outcome in the same write. A mismatch
	// yields ErrConflict.
	AppendEmailHistory(ctx context.Context, id string, expectedLen int, entry domain.EmailHistoryEntry, outcome domain.EmailOutcome) error
	// EnsureCounter creates the counter with count 0 when absent.
	EnsureCounter(ctx context.Context) error
}

// SettingsRepository stores the routing settings singleton.
type SettingsRepository interface {
	GetRoutingSettings(ctx context.Context) (*domain.RoutingSettings, error)
	SaveRoutingSettings(ctx context.Context, settings *domain.RoutingSettings) error
}

// CountryManagerRepository stores per-country manager overrides keyed by exact country name.
type CountryManagerRepository interface {
	Get(ctx context.Context, country string) (*domain.CountryManager, error)
	List(ctx context.Context) ([]domain.CountryManager, error)
	Upsert(ctx context.Context, manager *domain.CountryManager) error
	Delete(ctx context.Context, country string) error
}

// PendingFilter narrows pending-notification listings.
type PendingFilter struct {
	Status   *domain.PendingNotificationStatus
	TicketID *string
	Limit    int
	Offset   int
}

// Normalize applies paging defaults.
func (f PendingFilter) Normalize() PendingFilter {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// PendingNotificationRepository persists the failed-notification side queue.
type PendingNotificationRepository interface {
	Create(ctx context.Context, n *domain.PendingNotification) error
	GetByID(ctx context.Context, id string) (*domain.PendingNotification, error)
	List(ctx context.Context, filter PendingFilter) ([]domain.PendingNotification, error)
	UpdateStatus(ctx context.Context, id string, status domain.PendingNotificationStatus, at time.Time) error
	// MarkSentForTicket moves every pending entry of the ticket to sent_via_email.
	MarkSentForTicket(ctx context.Context, ticketID string, at time.Time) (int64, error)
	CountByStatus(ctx context.Context, status domain.PendingNotificationStatus) (int64, error)
}
