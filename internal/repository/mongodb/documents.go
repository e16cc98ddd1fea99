package mongodb

import (
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

type ticketDocument struct {
	ID              string                 `bson:"_id"`
	CompanyName     string                 `bson:"company_name"`
	ContactPerson   string                 `bson:"contact_person"`
	Email           string                 `bson:"email"`
	PhoneNumber     string                 `bson:"phone_number,omitempty"`
	Country         string                 `bson:"country"`
	ProductModel    string                 `bson:"product_model,omitempty"`
	SerialNumber    string                 `bson:"serial_number,omitempty"`
	OrderInvoiceNo  string                 `bson:"order_invoice_no,omitempty"`
	IssueType       string                 `bson:"issue_type,omitempty"`
	Subject         string                 `bson:"subject"`
	Description     string                 `bson:"description"`
	Priority        string                 `bson:"priority"`
	Status          string                 `bson:"status"`
	Attachments     []string               `bson:"attachments"`
	RegionalManager string                 `bson:"regional_manager,omitempty"`
	EmailStatus     string                 `bson:"email_status"`
	EmailHistory    []emailHistoryDocument `bson:"email_history"`
	LastEmailSent   *time.Time             `bson:"last_email_sent,omitempty"`
	CreatedAt       time.Time              `bson:"created_at"`
	UpdatedAt       time.Time              `bson:"updated_at"`
}

type emailHistoryDocument struct {
	Timestamp  time.Time `bson:"timestamp"`
	Success    bool      `bson:"success"`
	Recipients []string  `bson:"recipients"`
	MessageID  string    `bson:"message_id,omitempty"`
	ErrorCode  string    `bson:"error_code,omitempty"`
	Error      string    `bson:"error,omitempty"`
	Type       string    `bson:"type"`
}

type counterDocument struct {
	ID     string `bson:"_id"`
	Count  int64  `bson:"count"`
	Period string `bson:"period"`
}

type countryRouteDocument struct {
	Code                 string `bson:"code"`
	Name                 string `bson:"name"`
	SupportEmail         string `bson:"email"`
	RegionalManagerEmail string `bson:"regional_manager_email,omitempty"`
	Enabled              bool   `bson:"enabled"`
}

type settingsDocument struct {
	ID              string                 `bson:"_id"`
	ManagerEmail    string                 `bson:"manager_email"`
	ForwardingEmail string                 `bson:"forwarding_email"`
	Countries       []countryRouteDocument `bson:"countries"`
	UpdatedAt       time.Time              `bson:"updated_at"`
}

type countryManagerDocument struct {
	Country      string    `bson:"_id"`
	ManagerEmail string    `bson:"manager_email"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type pendingDocument struct {
	ID          string    `bson:"_id"`
	TicketID    string    `bson:"ticket_id"`
	Email       string    `bson:"email"`
	EmailType   string    `bson:"email_type"`
	ErrorCode   string    `bson:"error_code,omitempty"`
	Error       string    `bson:"error,omitempty"`
	Status      string    `bson:"status"`
	Attempts    int       `bson:"attempts"`
	MaxAttempts int       `bson:"max_attempts"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toTicketDocument(t *domain.Ticket) ticketDocument {
	doc := ticketDocument{
		ID:              t.ID,
		CompanyName:     t.CompanyName,
		ContactPerson:   t.ContactPerson,
		Email:           t.Email,
		PhoneNumber:     t.PhoneNumber,
		Country:         t.Country,
		ProductModel:    t.ProductModel,
		SerialNumber:    t.SerialNumber,
		OrderInvoiceNo:  t.OrderInvoiceNo,
		IssueType:       t.IssueType,
		Subject:         t.Subject,
		Description:     t.Description,
		Priority:        string(t.Priority),
		Status:          string(t.Status),
		Attachments:     t.Attachments,
		RegionalManager: t.RegionalManager,
		EmailStatus:     string(t.EmailStatus),
		EmailHistory:    make([]emailHistoryDocument, 0, len(t.EmailHistory)),
		LastEmailSent:   t.LastEmailSent,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if doc.Attachments == nil {
		doc.Attachments = []string{}
	}
	for _, e := range t.EmailHistory {
		doc.EmailHistory = append(doc.EmailHistory, toHistoryDocument(e))
	}
	return doc
}

func (d ticketDocument) toDomain() *domain.Ticket {
	t := &domain.Ticket{
		ID:              d.ID,
		CompanyName:     d.CompanyName,
		ContactPerson:   d.ContactPerson,
		Email:           d.Email,
		PhoneNumber:     d.PhoneNumber,
		Country:         d.Country,
		ProductModel:    d.ProductModel,
		SerialNumber:    d.SerialNumber,
		OrderInvoiceNo:  d.OrderInvoiceNo,
		IssueType:       d.IssueType,
		Subject:         d.Subject,
		Description:     d.Description,
		Priority:        domain.TicketPriority(d.Priority),
		Status:          domain.TicketStatus(d.Status),
		Attachments:     d.Attachments,
		RegionalManager: d.RegionalManager,
		EmailStatus:     domain.EmailStatus(d.EmailStatus),
		EmailHistory:    make([]domain.EmailHistoryEntry, len(d.EmailHistory)),
		LastEmailSent:   d.LastEmailSent,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	for i, e := range d.EmailHistory {
		t.EmailHistory[i] = domain.EmailHistoryEntry{
			Timestamp:  e.Timestamp,
			Success:    e.Success,
			Recipients: e.Recipients,
			MessageID:  e.MessageID,
			ErrorCode:  e.ErrorCode,
			Error:      e.Error,
			Type:       domain.EmailHistoryType(e.Type),
		}
	}
	return t
}

func toHistoryDocument(e domain.EmailHistoryEntry) emailHistoryDocument {
	recipients := e.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	return emailHistoryDocument{
		Timestamp:  e.Timestamp,
		Success:    e.Success,
		Recipients: recipients,
		MessageID:  e.MessageID,
		ErrorCode:  e.ErrorCode,
		Error:      e.Error,
		Type:       string(e.Type),
	}
}

func toPendingDocument(n *domain.PendingNotification) pendingDocument {
	return pendingDocument{
		ID:          n.ID,
		TicketID:    n.TicketID,
		Email:       n.Email,
		EmailType:   string(n.EmailType),
		ErrorCode:   n.ErrorCode,
		Error:       n.Error,
		Status:      string(n.Status),
		Attempts:    n.Attempts,
		MaxAttempts: n.MaxAttempts,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func (d pendingDocument) toDomain() domain.PendingNotification {
	return domain.PendingNotification{
		ID:          d.ID,
		TicketID:    d.TicketID,
		Email:       d.Email,
		EmailType:   domain.EmailType(d.EmailType),
		ErrorCode:   d.ErrorCode,
		Error:       d.Error,
		Status:      domain.PendingNotificationStatus(d.Status),
		Attempts:    d.Attempts,
		MaxAttempts: d.MaxAttempts,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
