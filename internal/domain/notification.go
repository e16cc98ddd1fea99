package domain

import "time"

// PendingNotificationStatus tracks manual follow-up of failed notifications.
type PendingNotificationStatus string

const (
	PendingStatusPending      PendingNotificationStatus = "pending"
	PendingStatusProcessed    PendingNotificationStatus = "processed"
	PendingStatusSentViaEmail PendingNotificationStatus = "sent_via_email"
)

// Valid reports whether s is a known status.
func (s PendingNotificationStatus) Valid() bool {
	switch s {
	case PendingStatusPending, PendingStatusProcessed, PendingStatusSentViaEmail:
		return true
	}
	return false
}

// PendingNotification records a notification that could not be delivered at creation time.
type PendingNotification struct {
	ID          string
	TicketID    string
	Email       string
	EmailType   EmailType
	ErrorCode   string
	Error       string
	Status      PendingNotificationStatus
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
