package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

const pendingColumns = `id, ticket_id, email, email_type, error_code, error, status, attempts, max_attempts, created_at, updated_at`

type pendingRepository struct {
	pool *pgxpool.Pool
}

// NewPendingNotificationRepository builds repository.
func NewPendingNotificationRepository(pool *pgxpool.Pool) repository.PendingNotificationRepository {
	return &pendingRepository{pool: pool}
}

func (r *pendingRepository) Create(ctx context.Context, n *domain.PendingNotification) error {
	query := `INSERT INTO pending_notifications (` + pendingColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.pool.Exec(ctx, query,
		n.ID,
		n.TicketID,
		n.Email,
		n.EmailType,
		n.ErrorCode,
		n.Error,
		n.Status,
		n.Attempts,
		n.MaxAttempts,
		n.CreatedAt,
		n.UpdatedAt,
	)
	return err
}

func (r *pendingRepository) GetByID(ctx context.Context, id string) (*domain.PendingNotification, error) {
	n, err := scanPending(r.pool.QueryRow(ctx, `SELECT `+pendingColumns+` FROM pending_notifications WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return n, err
}

func (r *pendingRepository) List(ctx context.Context, filter repository.PendingFilter) ([]domain.PendingNotification, error) {
	filter = filter.Normalize()
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("ticket_id=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM pending_notifications WHERE %s ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		pendingColumns, strings.Join(clauses, " AND "), filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.PendingNotification{}
	for rows.Next() {
		n, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *pendingRepository) UpdateStatus(ctx context.Context, id string, status domain.PendingNotificationStatus, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE pending_notifications SET status=$1, updated_at=$2 WHERE id=$3`, status, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pendingRepository) MarkSentForTicket(ctx context.Context, ticketID string, at time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE pending_notifications SET status=$1, updated_at=$2 WHERE ticket_id=$3 AND status=$4`,
		domain.PendingStatusSentViaEmail, at, ticketID, domain.PendingStatusPending)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *pendingRepository) CountByStatus(ctx context.Context, status domain.PendingNotificationStatus) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pending_notifications WHERE status=$1`, status).Scan(&count)
	return count, err
}

func scanPending(row pgx.Row) (*domain.PendingNotification, error) {
	var n domain.PendingNotification
	if err := row.Scan(
		&n.ID,
		&n.TicketID,
		&n.Email,
		&n.EmailType,
		&n.ErrorCode,
		&n.Error,
		&n.Status,
		&n.Attempts,
		&n.MaxAttempts,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}
