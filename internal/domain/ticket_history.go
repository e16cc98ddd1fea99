package domain

import "time"

// EmailHistoryType captures why a dispatch attempt happened.
type EmailHistoryType string

const (
	EmailHistoryInitial      EmailHistoryType = "initial"
	EmailHistoryResend       EmailHistoryType = "resend"
	EmailHistoryResendFailed EmailHistoryType = "resend_failed"
)

// EmailHistoryEntry is an immutable record of one dispatch attempt.
type EmailHistoryEntry struct {
	Timestamp  time.Time
	Success    bool
	Recipients []string
	MessageID  string
	ErrorCode  string
	Error      string
	Type       EmailHistoryType
}

// EmailOutcome is applied together with a history append.
type EmailOutcome struct {
	Status   EmailStatus
	SentAt   *time.Time
	Recorded time.Time
}
