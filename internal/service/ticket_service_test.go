package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/mail"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

func TestSubmitAcmeTurkeyCritical(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.settings.Seed(ctx))

	res, err := h.tickets.Submit(ctx, acmeSubmission())
	require.NoError(t, err)

	assert.Equal(t, "TKT-2025-0001", res.Ticket.ID)
	assert.Equal(t, domain.EmailStatusSent, res.EmailStatus)
	assert.Empty(t, res.EmailWarning)
	assert.Equal(t, "turkey.manager@example.com", res.Ticket.RegionalManager)

	msgs := h.transport.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"jane@acme.com"}, msgs[0].To)
	assert.Contains(t, msgs[0].CC, "turkey.manager@example.com")
	assert.Equal(t, "turkey.manager@example.com", msgs[0].ReplyTo)
	assert.Equal(t, "Support Ticket TKT-2025-0001 - Oven stopped", msgs[0].Subject)
	assert.Equal(t, "noreply@inoksan.com", msgs[0].From.Email)
	assert.Contains(t, msgs[0].HTML, "#dc2626")
	assert.NotEmpty(t, msgs[0].Text)

	stored, err := h.tickets.Get(ctx, "TKT-2025-0001")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
	assert.Equal(t, domain.EmailStatusSent, stored.EmailStatus)
	require.Len(t, stored.EmailHistory, 1)
	assert.True(t, stored.EmailHistory[0].Success)
	assert.Equal(t, domain.EmailHistoryInitial, stored.EmailHistory[0].Type)
	assert.Equal(t, "<msg-1@test>", stored.EmailHistory[0].MessageID)
	require.NotNil(t, stored.LastEmailSent)
}

func TestSubmitAssignsSequentialIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.tickets.Submit(ctx, acmeSubmission())
	require.NoError(t, err)
	second, err := h.tickets.Submit(ctx, acmeSubmission())
	require.NoError(t, err)

	assert.Equal(t, "TKT-2025-0001", first.Ticket.ID)
	assert.Equal(t, "TKT-2025-0002", second.Ticket.ID)
}

func TestSubmitConcurrentIDsAreDense(t *testing.T) {
	h := newHarness(t)
	const n = 25

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.tickets.Submit(context.Background(), acmeSubmission())
			if assert.NoError(t, err) {
				ids <- res.Ticket.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, n)
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[FormatTicketID("2025", i)])
	}
}

func TestSubmitRateLimitedEmailKeepsTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.transport.failWith(mail.NewError(mail.KindRateLimit, "too many requests", nil))

	res, err := h.tickets.Submit(ctx, acmeSubmission())
	require.NoError(t, err)
	assert.Equal(t, domain.EmailStatusFailed, res.EmailStatus)
	assert.Equal(t, "Email service is currently busy. Your ticket has been saved and we will contact you soon.", res.EmailWarning)

	stored, err := h.tickets.Get(ctx, res.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailStatusFailed, stored.EmailStatus)
	require.Len(t, stored.EmailHistory, 1)
	assert.False(t, stored.EmailHistory[0].Success)
	assert.Equal(t, string(mail.KindRateLimit), stored.EmailHistory[0].ErrorCode)
	assert.Nil(t, stored.LastEmailSent)

	pending, err := h.pending.List(ctx, repository.PendingFilter{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, res.Ticket.ID, pending[0].TicketID)
	assert.Equal(t, "jane@acme.com", pending[0].Email)
	assert.Equal(t, string(mail.KindRateLimit), pending[0].ErrorCode)
	assert.Equal(t, domain.PendingStatusPending, pending[0].Status)
}

func TestSubmitValidationStoresNothing(t *testing.T) {
	h := newHarness(t)
	in := acmeSubmission()
	in.Email = "not-an-email"
	in.Priority = "Whenever"
	in.CompanyName = "   "

	_, err := h.tickets.Submit(context.Background(), in)
	require.Error(t, err)
	de := errorutil.ToDomainError(err)
	assert.Equal(t, errorutil.CodeValidation, de.Code)
	assert.Equal(t, "email", de.Details["email"])
	assert.Equal(t, "ticket_priority", de.Details["priority"])
	assert.Equal(t, "required", de.Details["companyName"])

	assert.Equal(t, int64(0), h.db.Counter().Count)
	assert.Empty(t, h.transport.messages())
}

func TestSubmitPersistenceFailure(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.tickets.Submit(ctx, acmeSubmission())
	require.Error(t, err)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeSubmissionFailed))
	assert.Empty(t, h.transport.messages())
}

func TestUpdateStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.tickets.Submit(ctx, acmeSubmission())
	require.NoError(t, err)

	updated, err := h.tickets.UpdateStatus(ctx, "admin@example.com", res.Ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)

	_, err = h.tickets.UpdateStatus(ctx, "admin@example.com", res.Ticket.ID, "Archived")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))

	_, err = h.tickets.UpdateStatus(ctx, "admin@example.com", "TKT-2025-9999", domain.TicketStatusClosed)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeNotFound))

	list, err := h.tickets.List(ctx, TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusResolved}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Ticket.ID, list[0].ID)
}

func TestEmailWarningMessages(t *testing.T) {
	assert.Contains(t, EmailWarning(mail.KindConfig), "temporarily unavailable")
	assert.Contains(t, EmailWarning(mail.KindValidation), "invalid data")
	assert.Contains(t, EmailWarning(mail.KindNetwork), "Network error")
	assert.Equal(t, "Email notification could not be sent, but your ticket has been saved successfully.", EmailWarning(mail.KindUnknown))

	for _, kind := range []mail.ErrorKind{mail.KindConfig, mail.KindRateLimit, mail.KindValidation, mail.KindNetwork, mail.KindUnknown} {
		assert.Contains(t, EmailWarning(kind), "ticket has been saved", string(kind))
	}
}

// unrecordedHistory loses every history append.
type unrecordedHistory struct {
	repository.TicketRepository
}

func (unrecordedHistory) AppendEmailHistory(context.Context, string, int, domain.EmailHistoryEntry, domain.EmailOutcome) error {
	return errors.New("write timeout")
}

func TestSubmitReportsOutcomeWhenHistoryNotRecorded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)

	dispatcher := NewNotificationDispatcher(DispatcherDependencies{
		Tickets:   unrecordedHistory{TicketRepository: h.store.Tickets},
		Transport: h.transport,
		Email:     testEmailConfig(),
		Now:       fixedClock(testNow),
	})
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  h.store.Tickets,
		PendingRepo: h.store.Pending,
		Resolver:    h.resolver,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Now:         fixedClock(testNow),
	})

	res, err := svc.Submit(ctx, acmeSubmission())
	require.NoError(t, err)
	assert.Equal(t, domain.EmailStatusSent, res.EmailStatus)
	assert.Empty(t, res.EmailWarning)

	stored, err := h.store.Tickets.GetByID(ctx, res.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailStatusPending, stored.EmailStatus)
	assert.Empty(t, stored.EmailHistory)

	entries := logs.FilterMessage("confirmation outcome not recorded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, res.Ticket.ID, entries[0].ContextMap()["ticket_id"])
}
