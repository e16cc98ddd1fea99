package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/events"
	"github.com/spec-kit/ticket-portal/internal/lock"
	"github.com/spec-kit/ticket-portal/internal/mail"
	"github.com/spec-kit/ticket-portal/internal/observability"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// NotificationService exposes email status, capped resends, explicit sends
// and transport diagnostics.
type NotificationService struct {
	tickets    repository.TicketRepository
	pending    repository.PendingNotificationRepository
	resolver   *RoutingResolver
	dispatcher *NotificationDispatcher
	locker     lock.Locker
	transport  mail.Transport
	events     events.Dispatcher
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
	email      config.EmailConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	TicketRepo  repository.TicketRepository
	PendingRepo repository.PendingNotificationRepository
	Resolver    *RoutingResolver
	Dispatcher  *NotificationDispatcher
	Locker      lock.Locker
	Transport   mail.Transport
	Events      events.Dispatcher
	Metrics     *observability.Metrics
	Config      config.NotificationConfig
	Email       config.EmailConfig
	Logger      *zap.Logger
	Now         func() time.Time
}

// EmailStatusView is the read-only delivery state of a ticket.
type EmailStatusView struct {
	TicketID      string
	EmailStatus   domain.EmailStatus
	LastEmailSent *time.Time
	History       []domain.EmailHistoryEntry
	CanResend     bool
	MaxAttempts   int
}

// SendInput backs an explicit send request. Non-empty fields overlay the
// stored ticket for rendering only.
type SendInput struct {
	TicketID          string `validate:"required"`
	Email             string `validate:"required,email"`
	CompanyName       string `validate:"required"`
	ContactPerson     string `validate:"required"`
	Subject           string `validate:"required"`
	Country           string
	Priority          string
	Description       string
	EmailType         domain.EmailType
	OverrideRecipient string `validate:"omitempty,email"`
}

// Diagnostics summarises the outbound transport state.
type Diagnostics struct {
	Configured  bool
	KeyValid    bool
	Transport   string
	SenderEmail string
	Detail      string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &NotificationService{
		tickets:    deps.TicketRepo,
		pending:    deps.PendingRepo,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		locker:     locker,
		transport:  deps.Transport,
		events:     deps.Events,
		metrics:    deps.Metrics,
		cfg:        deps.Config,
		email:      deps.Email,
		logger:     logger,
		now:        now,
	}
}

func (n *NotificationService) maxAttempts() int {
	if n.cfg.MaxAttempts <= 0 {
		return 3
	}
	return n.cfg.MaxAttempts
}

// Status reports the delivery state of a ticket without modifying it.
func (n *NotificationService) Status(ctx context.Context, ticketID string) (*EmailStatusView, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return nil, notificationValidation("ticketId is required", "ticketId")
	}
	ticket, err := n.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapNotFound(err, "ticket", ticketID)
	}
	return &EmailStatusView{
		TicketID:      ticket.ID,
		EmailStatus:   ticket.EmailStatus,
		LastEmailSent: ticket.LastEmailSent,
		History:       ticket.EmailHistory,
		CanResend:     len(ticket.EmailHistory) < n.maxAttempts(),
		MaxAttempts:   n.maxAttempts(),
	}, nil
}

// Resend re-runs routing and dispatch for a stored ticket. Concurrent resends
// of the same ticket are serialised and the attempt ceiling is checked under
// the lock.
func (n *NotificationService) Resend(ctx context.Context, ticketID, overrideRecipient string) (DispatchResult, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return DispatchResult{}, notificationValidation("ticketId is required", "ticketId")
	}
	overrideRecipient = strings.TrimSpace(overrideRecipient)
	if err := validate.Var(overrideRecipient, "omitempty,email"); err != nil {
		return DispatchResult{}, errorutil.NewDomainError(string(mail.KindValidation), "overrideRecipient must be a valid email address", http.StatusBadRequest, map[string]any{"overrideRecipient": "email"})
	}
	unlock, err := n.locker.Acquire(ctx, "ticket-resend:"+ticketID)
	if err != nil {
		return DispatchResult{}, err
	}
	defer unlock()

	ticket, err := n.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return DispatchResult{}, mapNotFound(err, "ticket", ticketID)
	}
	if len(ticket.EmailHistory) >= n.maxAttempts() {
		return DispatchResult{}, errorutil.NewResendLimitExceeded(ticketID, len(ticket.EmailHistory))
	}

	recipients := n.resolver.Resolve(ctx, ticket, domain.EmailTypeCustomerConfirmation, overrideRecipient)
	result, err := n.dispatcher.Dispatch(ctx, ticket, recipients, domain.EmailTypeCustomerConfirmation, domain.EmailHistoryResend)
	if err != nil {
		return result, err
	}
	if result.Success {
		n.markPendingSent(ctx, ticketID)
	}
	return result, nil
}

// Send dispatches a notification of the requested type for a stored ticket.
func (n *NotificationService) Send(ctx context.Context, in SendInput) (DispatchResult, error) {
	in.TicketID = strings.TrimSpace(in.TicketID)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return DispatchResult{}, asNotificationValidation(err)
	}
	if in.EmailType == "" {
		in.EmailType = domain.EmailTypeCustomerConfirmation
	}
	if !in.EmailType.Valid() {
		return DispatchResult{}, notificationValidation("unknown email type", "type")
	}

	unlock, err := n.locker.Acquire(ctx, "ticket-resend:"+in.TicketID)
	if err != nil {
		return DispatchResult{}, err
	}
	defer unlock()

	stored, err := n.tickets.GetByID(ctx, in.TicketID)
	if err != nil {
		return DispatchResult{}, mapNotFound(err, "ticket", in.TicketID)
	}
	if len(stored.EmailHistory) >= n.maxAttempts() {
		return DispatchResult{}, errorutil.NewResendLimitExceeded(in.TicketID, len(stored.EmailHistory))
	}

	view := overlay(stored, in)
	recipients := n.resolver.Resolve(ctx, view, in.EmailType, in.OverrideRecipient)
	result, err := n.dispatcher.Dispatch(ctx, view, recipients, in.EmailType, domain.EmailHistoryInitial)
	if err != nil {
		return result, err
	}
	if result.Success {
		n.markPendingSent(ctx, in.TicketID)
	}
	return result, nil
}

// Diagnostics checks transport configuration and credentials.
func (n *NotificationService) Diagnostics(ctx context.Context) Diagnostics {
	d := Diagnostics{SenderEmail: n.email.SenderEmail}
	if n.transport == nil {
		d.Detail = "no transport configured"
		return d
	}
	check := n.transport.Check(ctx)
	d.Configured = check.Configured
	d.KeyValid = check.KeyValid
	d.Transport = n.transport.Name()
	d.Detail = check.Detail
	return d
}

func (n *NotificationService) markPendingSent(ctx context.Context, ticketID string) {
	if n.pending == nil {
		return
	}
	count, err := n.pending.MarkSentForTicket(ctx, ticketID, n.now().UTC())
	if err != nil {
		n.logger.Warn("pending notifications not updated", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	if count > 0 {
		n.logger.Info("pending notifications resolved by email",
			zap.String("ticket_id", ticketID), zap.Int64("count", count))
	}
}

// RegisterHandlers subscribes metrics and audit logging to domain events.
func (n *NotificationService) RegisterHandlers() {
	if n.events == nil {
		return
	}
	n.events.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.events.Subscribe(events.EventTicketSubmissionFailed, n.handleSubmissionFailed)
	n.events.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.events.Subscribe(events.EventEmailDispatched, n.handleEmailDispatched)
	n.events.Subscribe(events.EventNotificationQueued, n.handleNotificationQueued)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.metrics.TicketCreated()
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleSubmissionFailed(_ context.Context, event events.Event) error {
	n.metrics.TicketSubmissionFailed()
	n.logger.Warn("TicketSubmissionFailed", zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.metrics.StatusChanged(string(payload.NewStatus))
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("actor", event.Actor.Email),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))
	return nil
}

func (n *NotificationService) handleEmailDispatched(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EmailDispatchedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	outcome := "sent"
	if !payload.Success {
		outcome = payload.ErrorCode
	}
	n.metrics.EmailDispatched(string(payload.EmailType), outcome)
	n.logger.Info("EmailDispatched",
		zap.String("ticket_id", event.TicketID),
		zap.String("email_type", string(payload.EmailType)),
		zap.String("attempt", string(payload.Attempt)),
		zap.Bool("success", payload.Success),
		zap.String("message_id", payload.MessageID),
		zap.Strings("recipients", payload.Recipients))
	return nil
}

func (n *NotificationService) handleNotificationQueued(ctx context.Context, event events.Event) error {
	n.logger.Info("NotificationQueued", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if n.pending == nil {
		return nil
	}
	count, err := n.pending.CountByStatus(ctx, domain.PendingStatusPending)
	if err != nil {
		return err
	}
	n.metrics.SetPendingNotifications(count)
	return nil
}

func overlay(stored *domain.Ticket, in SendInput) *domain.Ticket {
	view := stored.Clone()
	view.Email = in.Email
	view.CompanyName = in.CompanyName
	view.ContactPerson = in.ContactPerson
	view.Subject = in.Subject
	if in.Country != "" {
		view.Country = in.Country
	}
	if p := domain.TicketPriority(in.Priority); p.Valid() {
		view.Priority = p
	}
	if in.Description != "" {
		view.Description = in.Description
	}
	return view
}

func notificationValidation(message, field string) error {
	return errorutil.NewDomainError(string(mail.KindValidation), message, http.StatusBadRequest, map[string]any{field: "required"})
}

func asNotificationValidation(err error) error {
	de := errorutil.ToDomainError(err)
	return errorutil.NewDomainError(string(mail.KindValidation), "missing or invalid required fields", http.StatusBadRequest, de.Details)
}
