package dto

import (
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

// SendNotificationRequest backs POST /notifications/send. Type is the legacy
// name of EmailType and is read only when EmailType is empty.
type SendNotificationRequest struct {
	TicketID          string `json:"ticketId"`
	Email             string `json:"email"`
	CompanyName       string `json:"companyName"`
	ContactPerson     string `json:"contactPerson"`
	Subject           string `json:"subject"`
	Country           string `json:"country"`
	Priority          string `json:"priority"`
	Description       string `json:"description"`
	EmailType         string `json:"emailType"`
	Type              string `json:"type"`
	OverrideRecipient string `json:"overrideRecipient"`
}

// ResendNotificationRequest backs POST /notifications/resend.
type ResendNotificationRequest struct {
	TicketID          string `json:"ticketId"`
	OverrideRecipient string `json:"overrideRecipient"`
}

// NotificationResult is the success shape of send and resend.
type NotificationResult struct {
	Success    bool     `json:"success"`
	MessageID  string   `json:"messageId,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
}

// NotificationFailure is the failure shape of the notification endpoints.
type NotificationFailure struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	CanResend *bool  `json:"canResend,omitempty"`
}

// EmailStatusResponse backs GET /notifications/status.
type EmailStatusResponse struct {
	TicketID      string                 `json:"ticketId"`
	EmailStatus   domain.EmailStatus     `json:"emailStatus"`
	LastEmailSent *time.Time             `json:"lastEmailSent"`
	History       []EmailHistoryResponse `json:"history"`
	CanResend     bool                   `json:"canResend"`
	MaxAttempts   int                    `json:"maxAttempts"`
}

// DiagnosticsResponse backs GET /notifications/diagnostics.
type DiagnosticsResponse struct {
	Configured  bool   `json:"configured"`
	KeyValid    bool   `json:"keyValid"`
	Transport   string `json:"transport"`
	SenderEmail string `json:"senderEmail"`
	Detail      string `json:"detail,omitempty"`
}

// PendingNotificationResponse represents a queued failed notification.
type PendingNotificationResponse struct {
	ID          string                           `json:"id"`
	TicketID    string                           `json:"ticketId"`
	Email       string                           `json:"email"`
	EmailType   domain.EmailType                 `json:"emailType"`
	ErrorCode   string                           `json:"errorCode"`
	Error       string                           `json:"error"`
	Status      domain.PendingNotificationStatus `json:"status"`
	Attempts    int                              `json:"attempts"`
	MaxAttempts int                              `json:"maxAttempts"`
	CreatedAt   time.Time                        `json:"createdAt"`
	UpdatedAt   time.Time                        `json:"updatedAt"`
}

// UpdatePendingRequest payload.
type UpdatePendingRequest struct {
	Status domain.PendingNotificationStatus `json:"status"`
}

// NewPendingNotification maps a pending notification.
func NewPendingNotification(n *domain.PendingNotification) PendingNotificationResponse {
	return PendingNotificationResponse{
		ID:          n.ID,
		TicketID:    n.TicketID,
		Email:       n.Email,
		EmailType:   n.EmailType,
		ErrorCode:   n.ErrorCode,
		Error:       n.Error,
		Status:      n.Status,
		Attempts:    n.Attempts,
		MaxAttempts: n.MaxAttempts,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}
