package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// PendingCounter reports how many notifications await triage.
type PendingCounter interface {
	CountPending(ctx context.Context) (int64, error)
}

// GaugeSetter receives the latest pending count.
type GaugeSetter interface {
	SetPendingNotifications(n int64)
}

// PendingMonitor periodically exports the size of the pending-notification
// queue and warns when it grows past a threshold. It never resends.
type PendingMonitor struct {
	pending  PendingCounter
	gauge    GaugeSetter
	interval time.Duration
	warnAt   int64
	logger   *zap.Logger
}

// NewPendingMonitor constructs the monitor.
func NewPendingMonitor(pending PendingCounter, gauge GaugeSetter, interval time.Duration, warnAt int, logger *zap.Logger) *PendingMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingMonitor{pending: pending, gauge: gauge, interval: interval, warnAt: int64(warnAt), logger: logger}
}

// Run checks once immediately and then on every tick until ctx is cancelled.
func (m *PendingMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *PendingMonitor) check(ctx context.Context) {
	count, err := m.pending.CountPending(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("pending notification count failed", zap.Error(err))
		}
		return
	}
	if m.gauge != nil {
		m.gauge.SetPendingNotifications(count)
	}
	if m.warnAt > 0 && count >= m.warnAt {
		m.logger.Warn("pending notifications need attention", zap.Int64("pending", count))
	}
}
