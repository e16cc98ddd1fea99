package events

import (
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketSubmissionFailed EventType = "ticket_submission_failed"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventEmailDispatched        EventType = "email_dispatched"
	EventNotificationQueued     EventType = "notification_queued"
)

// ActorType identifies who caused an event.
type ActorType string

const (
	ActorCustomer ActorType = "customer"
	ActorAdmin    ActorType = "admin"
	ActorSystem   ActorType = "system"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type  ActorType `json:"type"`
	Email string    `json:"email,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Country         string                `json:"country"`
	Priority        domain.TicketPriority `json:"priority"`
	RegionalManager string                `json:"regional_manager"`
}

// TicketSubmissionFailedPayload payload.
type TicketSubmissionFailedPayload struct {
	Error string `json:"error"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// EmailDispatchedPayload payload.
type EmailDispatchedPayload struct {
	EmailType  domain.EmailType        `json:"email_type"`
	Attempt    domain.EmailHistoryType `json:"attempt"`
	Success    bool                    `json:"success"`
	MessageID  string                  `json:"message_id,omitempty"`
	ErrorCode  string                  `json:"error_code,omitempty"`
	Recipients []string                `json:"recipients"`
}

// NotificationQueuedPayload payload.
type NotificationQueuedPayload struct {
	PendingID string `json:"pending_id"`
	ErrorCode string `json:"error_code"`
}
