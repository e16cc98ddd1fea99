package service

import (
	"context"
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// PendingService is the admin triage surface for failed notifications.
type PendingService struct {
	pending repository.PendingNotificationRepository
	now     func() time.Time
}

// NewPendingService constructs the service.
func NewPendingService(pending repository.PendingNotificationRepository) *PendingService {
	return &PendingService{pending: pending, now: time.Now}
}

// List returns pending notifications matching filter.
func (s *PendingService) List(ctx context.Context, filter repository.PendingFilter) ([]domain.PendingNotification, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, errorutil.NewValidationError("invalid status filter", map[string]any{"status": string(*filter.Status)})
	}
	return s.pending.List(ctx, filter)
}

// UpdateStatus moves a pending notification to a new triage state.
func (s *PendingService) UpdateStatus(ctx context.Context, id string, status domain.PendingNotificationStatus) (*domain.PendingNotification, error) {
	if !status.Valid() {
		return nil, errorutil.NewValidationError("invalid status", map[string]any{"status": string(status)})
	}
	if err := s.pending.UpdateStatus(ctx, id, status, s.now().UTC()); err != nil {
		return nil, mapNotFound(err, "pending notification", id)
	}
	n, err := s.pending.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "pending notification", id)
	}
	return n, nil
}

// CountPending returns how many notifications still await triage.
func (s *PendingService) CountPending(ctx context.Context) (int64, error) {
	return s.pending.CountByStatus(ctx, domain.PendingStatusPending)
}
