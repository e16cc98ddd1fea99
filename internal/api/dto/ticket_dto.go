package dto

import (
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CompanyName    string   `json:"companyName"`
	ContactPerson  string   `json:"contactPerson"`
	Email          string   `json:"email"`
	PhoneNumber    string   `json:"phoneNumber"`
	Country        string   `json:"country"`
	ProductModel   string   `json:"productModel"`
	SerialNumber   string   `json:"serialNumber"`
	OrderInvoiceNo string   `json:"orderInvoiceNo"`
	IssueType      string   `json:"issueType"`
	Subject        string   `json:"subject"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	Attachments    []string `json:"attachments"`
}

// CreateTicketResponse is returned after a successful submission.
type CreateTicketResponse struct {
	TicketID     string             `json:"ticketId"`
	EmailStatus  domain.EmailStatus `json:"emailStatus"`
	EmailWarning string             `json:"emailWarning,omitempty"`
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketSummary response.
type TicketSummary struct {
	ID              string                `json:"ticketId"`
	CompanyName     string                `json:"companyName"`
	ContactPerson   string                `json:"contactPerson"`
	Email           string                `json:"email"`
	Country         string                `json:"country"`
	Subject         string                `json:"subject"`
	Priority        domain.TicketPriority `json:"priority"`
	Status          domain.TicketStatus   `json:"status"`
	EmailStatus     domain.EmailStatus    `json:"emailStatus"`
	RegionalManager string                `json:"regionalManager"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	PhoneNumber    string                 `json:"phoneNumber,omitempty"`
	ProductModel   string                 `json:"productModel,omitempty"`
	SerialNumber   string                 `json:"serialNumber,omitempty"`
	OrderInvoiceNo string                 `json:"orderInvoiceNo,omitempty"`
	IssueType      string                 `json:"issueType,omitempty"`
	Description    string                 `json:"description"`
	Attachments    []string               `json:"attachments"`
	EmailHistory   []EmailHistoryResponse `json:"emailHistory"`
	LastEmailSent  *time.Time             `json:"lastEmailSent"`
}

// EmailHistoryResponse represents one dispatch attempt.
type EmailHistoryResponse struct {
	Timestamp  time.Time               `json:"timestamp"`
	Success    bool                    `json:"success"`
	Recipients []string                `json:"recipients"`
	MessageID  string                  `json:"messageId,omitempty"`
	ErrorCode  string                  `json:"errorCode,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Type       domain.EmailHistoryType `json:"type"`
}

// NewTicketSummary maps a ticket to its list representation.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:              t.ID,
		CompanyName:     t.CompanyName,
		ContactPerson:   t.ContactPerson,
		Email:           t.Email,
		Country:         t.Country,
		Subject:         t.Subject,
		Priority:        t.Priority,
		Status:          t.Status,
		EmailStatus:     t.EmailStatus,
		RegionalManager: t.RegionalManager,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// NewTicketDetail maps a ticket to its full representation.
func NewTicketDetail(t *domain.Ticket) TicketDetailResponse {
	attachments := t.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return TicketDetailResponse{
		TicketSummary:  NewTicketSummary(t),
		PhoneNumber:    t.PhoneNumber,
		ProductModel:   t.ProductModel,
		SerialNumber:   t.SerialNumber,
		OrderInvoiceNo: t.OrderInvoiceNo,
		IssueType:      t.IssueType,
		Description:    t.Description,
		Attachments:    attachments,
		EmailHistory:   NewEmailHistory(t.EmailHistory),
		LastEmailSent:  t.LastEmailSent,
	}
}

// NewEmailHistory maps history entries.
func NewEmailHistory(entries []domain.EmailHistoryEntry) []EmailHistoryResponse {
	out := make([]EmailHistoryResponse, 0, len(entries))
	for _, e := range entries {
		recipients := e.Recipients
		if recipients == nil {
			recipients = []string{}
		}
		out = append(out, EmailHistoryResponse{
			Timestamp:  e.Timestamp,
			Success:    e.Success,
			Recipients: recipients,
			MessageID:  e.MessageID,
			ErrorCode:  e.ErrorCode,
			Error:      e.Error,
			Type:       e.Type,
		})
	}
	return out
}
