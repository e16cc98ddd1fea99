package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/events"
	"github.com/spec-kit/ticket-portal/internal/mail"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// TicketService coordinates ticket intake and admin ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	pending    repository.PendingNotificationRepository
	allocator  *TicketIDAllocator
	resolver   *RoutingResolver
	dispatcher *NotificationDispatcher
	events     events.Dispatcher
	cfg        config.NotificationConfig
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	PendingRepo repository.PendingNotificationRepository
	Allocator   *TicketIDAllocator
	Resolver    *RoutingResolver
	Dispatcher  *NotificationDispatcher
	Events      events.Dispatcher
	Config      config.NotificationConfig
	Logger      *zap.Logger
	Now         func() time.Time
}

// SubmitTicketInput describes a customer submission.
type SubmitTicketInput struct {
	CompanyName    string   `validate:"required,max=200"`
	ContactPerson  string   `validate:"required,max=200"`
	Email          string   `validate:"required,email,max=254"`
	PhoneNumber    string   `validate:"omitempty,max=50"`
	Country        string   `validate:"required,max=100"`
	ProductModel   string   `validate:"omitempty,max=200"`
	SerialNumber   string   `validate:"omitempty,max=200"`
	OrderInvoiceNo string   `validate:"omitempty,max=200"`
	IssueType      string   `validate:"omitempty,max=100"`
	Subject        string   `validate:"required,max=300"`
	Description    string   `validate:"required,max=10000"`
	Priority       string   `validate:"required,ticket_priority"`
	Attachments    []string `validate:"omitempty,max=20,dive,url"`
}

// SubmitResult is returned to the submitter. The ticket is stored whatever
// the email outcome.
type SubmitResult struct {
	Ticket       *domain.Ticket
	EmailStatus  domain.EmailStatus
	EmailWarning string
	Dispatch     DispatchResult
}

// TicketListFilter describes admin listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Country     *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	allocator := deps.Allocator
	if allocator == nil {
		allocator = NewTicketIDAllocator(now)
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		pending:    deps.PendingRepo,
		allocator:  allocator,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		events:     deps.Events,
		cfg:        deps.Config,
		logger:     logger,
		now:        now,
	}
}

// Submit validates and stores a ticket, then sends the customer confirmation.
func (s *TicketService) Submit(ctx context.Context, input SubmitTicketInput) (*SubmitResult, error) {
	input = normalizeSubmission(input)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		CompanyName:     input.CompanyName,
		ContactPerson:   input.ContactPerson,
		Email:           input.Email,
		PhoneNumber:     input.PhoneNumber,
		Country:         input.Country,
		ProductModel:    input.ProductModel,
		SerialNumber:    input.SerialNumber,
		OrderInvoiceNo:  input.OrderInvoiceNo,
		IssueType:       input.IssueType,
		Subject:         input.Subject,
		Description:     input.Description,
		Priority:        domain.TicketPriority(input.Priority),
		Status:          domain.TicketStatusNew,
		Attachments:     input.Attachments,
		RegionalManager: s.resolver.RegionalManager(ctx, input.Country, ""),
		EmailStatus:     domain.EmailStatusPending,
		EmailHistory:    []domain.EmailHistoryEntry{},
	}

	if err := s.tickets.CreateWithAllocatedID(ctx, ticket, s.allocator.Allocate); err != nil {
		s.logger.Error("ticket submission failed", zap.String("country", ticket.Country), zap.Error(err))
		s.publishEvent(ctx, events.Event{
			Type:    events.EventTicketSubmissionFailed,
			Actor:   events.Actor{Type: events.ActorCustomer, Email: ticket.Email},
			Payload: events.TicketSubmissionFailedPayload{Error: err.Error()},
		})
		return nil, errorutil.NewSubmissionFailed(err)
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("country", ticket.Country),
		zap.String("regional_manager", ticket.RegionalManager))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: events.ActorCustomer, Email: ticket.Email},
		Payload: events.TicketCreatedPayload{
			Country:         ticket.Country,
			Priority:        ticket.Priority,
			RegionalManager: ticket.RegionalManager,
		},
	})

	recipients := s.resolver.Resolve(ctx, ticket, domain.EmailTypeCustomerConfirmation, "")
	dispatch, err := s.dispatcher.Dispatch(ctx, ticket, recipients, domain.EmailTypeCustomerConfirmation, domain.EmailHistoryInitial)
	if err != nil {
		// The stored ticket keeps emailStatus pending; only the response
		// reflects the send outcome.
		s.logger.Error("confirmation outcome not recorded",
			zap.String("ticket_id", ticket.ID),
			zap.Bool("sent", dispatch.Success),
			zap.Error(err))
		if dispatch.Success {
			ticket.EmailStatus = domain.EmailStatusSent
		} else {
			ticket.EmailStatus = domain.EmailStatusFailed
		}
	}

	result := &SubmitResult{Ticket: ticket, EmailStatus: ticket.EmailStatus, Dispatch: dispatch}
	if !dispatch.Success {
		result.EmailWarning = EmailWarning(dispatch.ErrorCode)
		s.queuePending(ctx, ticket, recipients.To, domain.EmailTypeCustomerConfirmation, dispatch)
	}
	return result, nil
}

func (s *TicketService) queuePending(ctx context.Context, ticket *domain.Ticket, recipient string, emailType domain.EmailType, dispatch DispatchResult) {
	if s.pending == nil {
		return
	}
	maxAttempts := s.cfg.PendingMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	now := s.now().UTC()
	n := &domain.PendingNotification{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		Email:       recipient,
		EmailType:   emailType,
		ErrorCode:   string(dispatch.ErrorCode),
		Error:       dispatch.Error,
		Status:      domain.PendingStatusPending,
		Attempts:    1,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.pending.Create(ctx, n); err != nil {
		s.logger.Error("pending notification not recorded", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventNotificationQueued,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: events.ActorSystem},
		Payload:  events.NotificationQueuedPayload{PendingID: n.ID, ErrorCode: n.ErrorCode},
	})
}

// EmailWarning returns the message shown to a submitter whose confirmation
// email failed.
func EmailWarning(code mail.ErrorKind) string {
	switch code {
	case mail.KindConfig:
		return "Email service is temporarily unavailable. Your ticket has been saved successfully."
	case mail.KindRateLimit:
		return "Email service is currently busy. Your ticket has been saved and we will contact you soon."
	case mail.KindValidation:
		return "Email notification failed due to invalid data, but your ticket has been saved."
	case mail.KindNetwork:
		return "Network error prevented email delivery. Your ticket has been saved successfully."
	default:
		return "Email notification could not be sent, but your ticket has been saved successfully."
	}
}

// List returns tickets for the admin dashboard.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, errorutil.NewValidationError("invalid status filter", map[string]any{"status": string(st)})
		}
	}
	return s.tickets.List(ctx, repository.TicketFilter{
		Statuses:    filter.Statuses,
		Country:     filter.Country,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
}

// Get fetches one ticket.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "ticket", id)
	}
	return ticket, nil
}

// UpdateStatus changes a ticket's lifecycle status.
func (s *TicketService) UpdateStatus(ctx context.Context, actorEmail, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, errorutil.NewValidationError("invalid status", map[string]any{"status": string(status)})
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "ticket", id)
	}
	if ticket.Status == status {
		return ticket, nil
	}
	old := ticket.Status
	now := s.now().UTC()
	if err := s.tickets.UpdateStatus(ctx, id, status, now); err != nil {
		return nil, mapNotFound(err, "ticket", id)
	}
	ticket.Status = status
	ticket.UpdatedAt = now
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: id,
		Actor:    events.Actor{Type: events.ActorAdmin, Email: actorEmail},
		Payload:  events.TicketStatusChangedPayload{OldStatus: old, NewStatus: status},
	})
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, event)
}

func normalizeSubmission(in SubmitTicketInput) SubmitTicketInput {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.ContactPerson = strings.TrimSpace(in.ContactPerson)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Country = strings.TrimSpace(in.Country)
	in.ProductModel = strings.TrimSpace(in.ProductModel)
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	in.OrderInvoiceNo = strings.TrimSpace(in.OrderInvoiceNo)
	in.IssueType = strings.TrimSpace(in.IssueType)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	in.Priority = strings.TrimSpace(in.Priority)

	attachments := make([]string, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		if a = strings.TrimSpace(a); a != "" {
			attachments = append(attachments, a)
		}
	}
	in.Attachments = attachments
	return in
}

func mapNotFound(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errorutil.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}
