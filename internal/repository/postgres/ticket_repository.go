package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

const ticketCounterName = "tickets"

const ticketColumns = `id, company_name, contact_person, email, phone_number, country, product_model,
        serial_number, order_invoice_no, issue_type, subject, description, priority, status,
        attachments, regional_manager, email_status, email_history, last_email_sent, created_at, updated_at`

// historyRecord is the JSONB shape of an email history entry.
type historyRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
	Recipients []string  `json:"recipients"`
	MessageID  string    `json:"messageId,omitempty"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	Error      string    `json:"error,omitempty"`
	Type       string    `json:"type"`
}

func toHistoryRecord(e domain.EmailHistoryEntry) historyRecord {
	return historyRecord{
		Timestamp:  e.Timestamp,
		Success:    e.Success,
		Recipients: e.Recipients,
		MessageID:  e.MessageID,
		ErrorCode:  e.ErrorCode,
		Error:      e.Error,
		Type:       string(e.Type),
	}
}

func (h historyRecord) toDomain() domain.EmailHistoryEntry {
	return domain.EmailHistoryEntry{
		Timestamp:  h.Timestamp,
		Success:    h.Success,
		Recipients: h.Recipients,
		MessageID:  h.MessageID,
		ErrorCode:  h.ErrorCode,
		Error:      h.Error,
		Type:       domain.EmailHistoryType(h.Type),
	}
}

type ticketRepository struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) repository.TicketRepository {
	return &ticketRepository{pool: pool, maxAttempts: repository.DefaultTxAttempts}
}

// CreateWithAllocatedID locks the counter row for the duration of the
// transaction. Serialization failures and deadlocks retry the whole
// transaction.
func (r *ticketRepository) CreateWithAllocatedID(ctx context.Context, ticket *domain.Ticket, allocate repository.IDAllocator) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
			return r.createInTx(ctx, tx, ticket, allocate)
		})
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", repository.ErrTxAborted, lastErr)
}

func (r *ticketRepository) createInTx(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket, allocate repository.IDAllocator) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO counters (name, count, period) VALUES ($1, 0, '') ON CONFLICT (name) DO NOTHING`,
		ticketCounterName); err != nil {
		return err
	}

	var current domain.TicketCounter
	if err := tx.QueryRow(ctx,
		`SELECT count, period FROM counters WHERE name=$1 FOR UPDATE`,
		ticketCounterName).Scan(&current.Count, &current.Period); err != nil {
		return err
	}

	next, id := allocate(current)
	if _, err := tx.Exec(ctx,
		`UPDATE counters SET count=$1, period=$2, updated_at=NOW() WHERE name=$3`,
		next.Count, next.Period, ticketCounterName); err != nil {
		return err
	}

	attachments := ticket.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	const insert = `
        INSERT INTO tickets (id, company_name, contact_person, email, phone_number, country, product_model,
            serial_number, order_invoice_no, issue_type, subject, description, priority, status,
            attachments, regional_manager, email_status, email_history)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,'[]'::jsonb)
        RETURNING created_at, updated_at`
	var createdAt, updatedAt time.Time
	if err := tx.QueryRow(ctx, insert,
		id,
		ticket.CompanyName,
		ticket.ContactPerson,
		ticket.Email,
		ticket.PhoneNumber,
		ticket.Country,
		ticket.ProductModel,
		ticket.SerialNumber,
		ticket.OrderInvoiceNo,
		ticket.IssueType,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		attachments,
		ticket.RegionalManager,
		ticket.EmailStatus,
	).Scan(&createdAt, &updatedAt); err != nil {
		return err
	}

	ticket.ID = id
	ticket.CreatedAt = createdAt
	ticket.UpdatedAt = updatedAt
	ticket.EmailHistory = []domain.EmailHistoryEntry{}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}
	return false
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return ticket, err
}

func (r *ticketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter = filter.Normalize()
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Country != nil {
		args = append(args, *filter.Country)
		clauses = append(clauses, fmt.Sprintf("LOWER(country)=LOWER($%d)", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET status=$1, updated_at=$2 WHERE id=$3`, status, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ticketRepository) AppendEmailHistory(ctx context.Context, id string, expectedLen int, entry domain.EmailHistoryEntry, outcome domain.EmailOutcome) error {
	const query = `
        UPDATE tickets
        SET email_history = email_history || $1::jsonb,
            email_status = $2,
            last_email_sent = COALESCE($3, last_email_sent),
            updated_at = $4
        WHERE id=$5 AND jsonb_array_length(email_history)=$6`
	cmd, err := r.pool.Exec(ctx, query,
		[]historyRecord{toHistoryRecord(entry)},
		outcome.Status,
		outcome.SentAt,
		outcome.Recorded,
		id,
		expectedLen,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

func (r *ticketRepository) EnsureCounter(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO counters (name, count, period) VALUES ($1, 0, '') ON CONFLICT (name) DO NOTHING`,
		ticketCounterName)
	return err
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket  domain.Ticket
		history []historyRecord
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.CompanyName,
		&ticket.ContactPerson,
		&ticket.Email,
		&ticket.PhoneNumber,
		&ticket.Country,
		&ticket.ProductModel,
		&ticket.SerialNumber,
		&ticket.OrderInvoiceNo,
		&ticket.IssueType,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Attachments,
		&ticket.RegionalManager,
		&ticket.EmailStatus,
		&history,
		&ticket.LastEmailSent,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.EmailHistory = make([]domain.EmailHistoryEntry, len(history))
	for i, h := range history {
		ticket.EmailHistory[i] = h.toDomain()
	}
	return &ticket, nil
}
