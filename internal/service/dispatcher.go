package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/events"
	"github.com/spec-kit/ticket-portal/internal/mail"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

const historyAppendAttempts = 5

// DispatchResult reports the outcome of one send attempt.
type DispatchResult struct {
	Success    bool
	MessageID  string
	ErrorCode  mail.ErrorKind
	Error      string
	Recipients []string
	Attempt    domain.EmailHistoryType
}

// NotificationDispatcher renders, sends and records ticket emails. It never
// retries a send on its own.
type NotificationDispatcher struct {
	tickets   repository.TicketRepository
	transport mail.Transport
	events    events.Dispatcher
	cfg       config.EmailConfig
	baseURL   string
	logger    *zap.Logger
	now       func() time.Time
}

// DispatcherDependencies bundles collaborators of the dispatcher.
type DispatcherDependencies struct {
	Tickets   repository.TicketRepository
	Transport mail.Transport
	Events    events.Dispatcher
	Email     config.EmailConfig
	BaseURL   string
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewNotificationDispatcher constructs the dispatcher.
func NewNotificationDispatcher(deps DispatcherDependencies) *NotificationDispatcher {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{
		tickets:   deps.Tickets,
		transport: deps.Transport,
		events:    deps.Events,
		cfg:       deps.Email,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
		logger:    logger,
		now:       now,
	}
}

// Dispatch sends one notification for ticket and appends the outcome to its
// history. Send failures are reported in the result; the returned error is
// non-nil only when the outcome could not be recorded. On success ticket is
// updated to the stored state.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, ticket *domain.Ticket, recipients Recipients, emailType domain.EmailType, attempt domain.EmailHistoryType) (DispatchResult, error) {
	result := DispatchResult{Recipients: recipients.All(), Attempt: attempt}

	messageID, sendErr := d.send(ctx, ticket, recipients, emailType)
	now := d.now().UTC()

	entry := domain.EmailHistoryEntry{
		Timestamp:  now,
		Recipients: result.Recipients,
		Type:       attempt,
	}
	outcome := domain.EmailOutcome{Recorded: now}
	if sendErr == nil {
		result.Success = true
		result.MessageID = messageID
		entry.Success = true
		entry.MessageID = messageID
		outcome.Status = domain.EmailStatusSent
		outcome.SentAt = &now
	} else {
		result.ErrorCode = mail.Classify(sendErr)
		result.Error = sendErr.Error()
		entry.ErrorCode = string(result.ErrorCode)
		entry.Error = result.Error
		if attempt == domain.EmailHistoryResend {
			entry.Type = domain.EmailHistoryResendFailed
			result.Attempt = domain.EmailHistoryResendFailed
		}
		outcome.Status = domain.EmailStatusFailed
		d.logger.Warn("email dispatch failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("email_type", string(emailType)),
			zap.String("error_code", string(result.ErrorCode)),
			zap.Error(sendErr))
	}

	d.publish(ctx, ticket.ID, emailType, result)

	if err := d.record(ctx, ticket, entry, outcome); err != nil {
		d.logger.Error("email history append failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return result, err
	}
	return result, nil
}

func (d *NotificationDispatcher) send(ctx context.Context, ticket *domain.Ticket, recipients Recipients, emailType domain.EmailType) (string, error) {
	html, err := RenderTicketEmail(ticket, emailType, d.baseURL)
	if err != nil {
		return "", mail.NewError(mail.KindUnknown, "render template", err)
	}
	msg := mail.Message{
		From:    mail.Address{Email: d.cfg.SenderEmail, Name: d.cfg.SenderName},
		Subject: SubjectFor(ticket, emailType),
		HTML:    html,
		Text:    mail.PlainText(html),
		CC:      recipients.CC,
		ReplyTo: recipients.ReplyTo,
	}
	if recipients.To != "" {
		msg.To = []string{recipients.To}
	}
	if msg.ReplyTo == "" {
		msg.ReplyTo = d.cfg.ReplyTo
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}

	timeout := d.cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.transport.Send(sendCtx, msg)
}

// record appends entry conditioned on the history length last observed,
// reloading the ticket whenever another writer got there first.
func (d *NotificationDispatcher) record(ctx context.Context, ticket *domain.Ticket, entry domain.EmailHistoryEntry, outcome domain.EmailOutcome) error {
	current := ticket.Clone()
	for i := 0; i < historyAppendAttempts; i++ {
		err := d.tickets.AppendEmailHistory(ctx, current.ID, len(current.EmailHistory), entry, outcome)
		if err == nil {
			current.EmailHistory = append(current.EmailHistory, entry)
			current.EmailStatus = outcome.Status
			if outcome.SentAt != nil {
				current.LastEmailSent = outcome.SentAt
			}
			current.UpdatedAt = outcome.Recorded
			*ticket = *current
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		reloaded, err := d.tickets.GetByID(ctx, current.ID)
		if err != nil {
			return err
		}
		current = reloaded
	}
	return repository.ErrConflict
}

func (d *NotificationDispatcher) publish(ctx context.Context, ticketID string, emailType domain.EmailType, result DispatchResult) {
	if d.events == nil {
		return
	}
	_ = d.events.Publish(ctx, events.Event{
		Type:     events.EventEmailDispatched,
		TicketID: ticketID,
		Actor:    events.Actor{Type: events.ActorSystem},
		Payload: events.EmailDispatchedPayload{
			EmailType:  emailType,
			Attempt:    result.Attempt,
			Success:    result.Success,
			MessageID:  result.MessageID,
			ErrorCode:  string(result.ErrorCode),
			Recipients: result.Recipients,
		},
	})
}
