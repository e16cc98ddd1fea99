// Package memory implements the repositories in process. It backs tests and
// local development when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

// CommitHook runs before each transaction commit; returning
// repository.ErrConflict makes the attempt retry.
type CommitHook func(attempt int) error

// DB holds all collections behind one mutex.
type DB struct {
	mu sync.Mutex

	tickets        map[string]*domain.Ticket
	counter        *domain.TicketCounter
	counterVersion int64
	settings       *domain.RoutingSettings
	managers       map[string]domain.CountryManager
	pending        map[string]*domain.PendingNotification

	maxAttempts int
	commitHook  CommitHook
	now         func() time.Time
}

// Option customises a DB.
type Option func(*DB)

// WithMaxTxAttempts overrides the transaction retry budget.
func WithMaxTxAttempts(n int) Option {
	return func(db *DB) {
		if n > 0 {
			db.maxAttempts = n
		}
	}
}

// WithCommitHook installs a hook used to inject transaction conflicts.
func WithCommitHook(h CommitHook) Option {
	return func(db *DB) { db.commitHook = h }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// NewDB creates an empty in-memory database.
func NewDB(opts ...Option) *DB {
	db := &DB{
		tickets:     make(map[string]*domain.Ticket),
		managers:    make(map[string]domain.CountryManager),
		pending:     make(map[string]*domain.PendingNotification),
		maxAttempts: 64,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// NewStore wires the in-memory repositories into a repository.Store.
func NewStore(db *DB) repository.Store {
	return repository.Store{
		Tickets:         &ticketRepository{db: db},
		Settings:        &settingsRepository{db: db},
		CountryManagers: &countryManagerRepository{db: db},
		Pending:         &pendingRepository{db: db},
		Ping:            func(context.Context) error { return nil },
		Close:           func(context.Context) {},
	}
}

type ticketRepository struct {
	db *DB
}

// CreateWithAllocatedID uses optimistic concurrency on the counter version:
// the allocation is computed outside the lock and committed only if no other
// creation committed in between.
func (r *ticketRepository) CreateWithAllocatedID(ctx context.Context, ticket *domain.Ticket, allocate repository.IDAllocator) error {
	db := r.db
	for attempt := 1; attempt <= db.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		db.mu.Lock()
		current := domain.TicketCounter{}
		if db.counter != nil {
			current = *db.counter
		}
		version := db.counterVersion
		db.mu.Unlock()

		next, id := allocate(current)

		if db.commitHook != nil {
			if err := db.commitHook(attempt); err != nil {
				if err == repository.ErrConflict {
					continue
				}
				return err
			}
		}

		db.mu.Lock()
		if db.counterVersion != version {
			db.mu.Unlock()
			continue
		}
		if _, exists := db.tickets[id]; exists {
			db.mu.Unlock()
			return fmt.Errorf("ticket %s already exists: %w", id, repository.ErrConflict)
		}
		now := db.now()
		counter := next
		db.counter = &counter
		db.counterVersion++

		stored := ticket.Clone()
		stored.ID = id
		stored.CreatedAt = now
		stored.UpdatedAt = now
		if stored.EmailHistory == nil {
			stored.EmailHistory = []domain.EmailHistoryEntry{}
		}
		db.tickets[id] = stored
		db.mu.Unlock()

		ticket.ID = id
		ticket.CreatedAt = now
		ticket.UpdatedAt = now
		return nil
	}
	return repository.ErrTxAborted
}

func (r *ticketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *ticketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter = filter.Normalize()
	r.db.mu.Lock()
	matched := make([]domain.Ticket, 0, len(r.db.tickets))
	for _, t := range r.db.tickets {
		if !matchesTicket(t, filter) {
			continue
		}
		matched = append(matched, *t.Clone())
	}
	r.db.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []domain.Ticket{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

func matchesTicket(t *domain.Ticket, f repository.TicketFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Country != nil && !strings.EqualFold(t.Country, *f.Country) {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

func (r *ticketRepository) UpdateStatus(_ context.Context, id string, status domain.TicketStatus, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = at
	return nil
}

func (r *ticketRepository) AppendEmailHistory(_ context.Context, id string, expectedLen int, entry domain.EmailHistoryEntry, outcome domain.EmailOutcome) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if len(t.EmailHistory) != expectedLen {
		return repository.ErrConflict
	}
	entry.Recipients = append([]string(nil), entry.Recipients...)
	t.EmailHistory = append(t.EmailHistory, entry)
	t.EmailStatus = outcome.Status
	if outcome.SentAt != nil {
		sent := *outcome.SentAt
		t.LastEmailSent = &sent
	}
	t.UpdatedAt = outcome.Recorded
	return nil
}

func (r *ticketRepository) EnsureCounter(context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.counter == nil {
		r.db.counter = &domain.TicketCounter{}
	}
	return nil
}

// Counter returns a copy of the counter state.
func (db *DB) Counter() domain.TicketCounter {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.counter == nil {
		return domain.TicketCounter{}
	}
	return *db.counter
}

// SetCounter overwrites the counter state.
func (db *DB) SetCounter(c domain.TicketCounter) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.counter = &c
	db.counterVersion++
}

type settingsRepository struct {
	db *DB
}

func (r *settingsRepository) GetRoutingSettings(context.Context) (*domain.RoutingSettings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.settings == nil {
		return nil, repository.ErrNotFound
	}
	return cloneSettings(r.db.settings), nil
}

func (r *settingsRepository) SaveRoutingSettings(_ context.Context, settings *domain.RoutingSettings) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.settings = cloneSettings(settings)
	return nil
}

func cloneSettings(s *domain.RoutingSettings) *domain.RoutingSettings {
	cp := *s
	cp.Countries = append([]domain.CountryRoute(nil), s.Countries...)
	return &cp
}

type countryManagerRepository struct {
	db *DB
}

func (r *countryManagerRepository) Get(_ context.Context, country string) (*domain.CountryManager, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.managers[country]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *countryManagerRepository) List(context.Context) ([]domain.CountryManager, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]domain.CountryManager, 0, len(r.db.managers))
	for _, m := range r.db.managers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out, nil
}

func (r *countryManagerRepository) Upsert(_ context.Context, manager *domain.CountryManager) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if manager.UpdatedAt.IsZero() {
		manager.UpdatedAt = r.db.now()
	}
	r.db.managers[manager.Country] = *manager
	return nil
}

func (r *countryManagerRepository) Delete(_ context.Context, country string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.managers[country]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.managers, country)
	return nil
}

type pendingRepository struct {
	db *DB
}

func (r *pendingRepository) Create(_ context.Context, n *domain.PendingNotification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.pending[n.ID]; exists {
		return repository.ErrConflict
	}
	cp := *n
	r.db.pending[n.ID] = &cp
	return nil
}

func (r *pendingRepository) GetByID(_ context.Context, id string) (*domain.PendingNotification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.pending[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *pendingRepository) List(_ context.Context, filter repository.PendingFilter) ([]domain.PendingNotification, error) {
	filter = filter.Normalize()
	r.db.mu.Lock()
	out := make([]domain.PendingNotification, 0)
	for _, n := range r.db.pending {
		if filter.Status != nil && n.Status != *filter.Status {
			continue
		}
		if filter.TicketID != nil && n.TicketID != *filter.TicketID {
			continue
		}
		out = append(out, *n)
	}
	r.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter.Offset >= len(out) {
		return []domain.PendingNotification{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[filter.Offset:end], nil
}

func (r *pendingRepository) UpdateStatus(_ context.Context, id string, status domain.PendingNotificationStatus, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.pending[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Status = status
	n.UpdatedAt = at
	return nil
}

func (r *pendingRepository) MarkSentForTicket(_ context.Context, ticketID string, at time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var updated int64
	for _, n := range r.db.pending {
		if n.TicketID == ticketID && n.Status == domain.PendingStatusPending {
			n.Status = domain.PendingStatusSentViaEmail
			n.UpdatedAt = at
			updated++
		}
	}
	return updated, nil
}

func (r *pendingRepository) CountByStatus(_ context.Context, status domain.PendingNotificationStatus) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var count int64
	for _, n := range r.db.pending {
		if n.Status == status {
			count++
		}
	}
	return count, nil
}
