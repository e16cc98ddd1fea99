package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew      TicketStatus = "New"
	TicketStatusOpen     TicketStatus = "Open"
	TicketStatusResolved TicketStatus = "Resolved"
	TicketStatusClosed   TicketStatus = "Closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusOpen, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency as chosen by the customer.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityNormal   TicketPriority = "Normal"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
	TicketPriorityUrgent   TicketPriority = "Urgent (equipment stopped)"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityMedium,
		TicketPriorityHigh, TicketPriorityCritical, TicketPriorityUrgent:
		return true
	}
	return false
}

// EmailStatus tracks the outcome of the latest notification dispatch.
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// Ticket is the aggregate for customer support requests.
type Ticket struct {
	ID              string
	CompanyName     string
	ContactPerson   string
	Email           string
	PhoneNumber     string
	Country         string
	ProductModel    string
	SerialNumber    string
	OrderInvoiceNo  string
	IssueType       string
	Subject         string
	Description     string
	Priority        TicketPriority
	Status          TicketStatus
	Attachments     []string
	RegionalManager string
	EmailStatus     EmailStatus
	EmailHistory    []EmailHistoryEntry
	LastEmailSent   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy so callers can mutate slices safely.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Attachments = append([]string(nil), t.Attachments...)
	cp.EmailHistory = make([]EmailHistoryEntry, len(t.EmailHistory))
	for i, entry := range t.EmailHistory {
		entry.Recipients = append([]string(nil), entry.Recipients...)
		cp.EmailHistory[i] = entry
	}
	if t.LastEmailSent != nil {
		sent := *t.LastEmailSent
		cp.LastEmailSent = &sent
	}
	return &cp
}

// TicketCounter backs ticket ID allocation. Period holds the year the count belongs to.
type TicketCounter struct {
	Count  int64
	Period string
}
