// Package mail delivers rendered notification emails through an outbound
// transport and classifies transport failures.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind is the failure taxonomy reported to callers and stored on tickets.
type ErrorKind string

const (
	KindConfig     ErrorKind = "CONFIG_ERROR"
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindRateLimit  ErrorKind = "RATE_LIMIT_ERROR"
	KindNetwork    ErrorKind = "NETWORK_ERROR"
	KindUnknown    ErrorKind = "UNKNOWN_ERROR"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Email string
	Name  string
}

// Message is a fully rendered email.
type Message struct {
	From    Address
	To      []string
	CC      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Transport sends messages to an outbound provider.
type Transport interface {
	// Send delivers msg and returns the provider message ID.
	Send(ctx context.Context, msg Message) (string, error)
	// Check verifies that credentials are present and accepted.
	Check(ctx context.Context) CheckResult
	Name() string
}

// CheckResult is the outcome of a credential sanity check.
type CheckResult struct {
	Configured bool
	KeyValid   bool
	Detail     string
}

// Error is a classified transport failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Classify maps any send error onto the failure taxonomy.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var mailErr *Error
	if errors.As(err, &mailErr) {
		return mailErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}

// Validate checks the fields every transport requires.
func (m Message) Validate() error {
	switch {
	case m.From.Email == "":
		return NewError(KindConfig, "sender address not configured", nil)
	case len(m.To) == 0 || m.To[0] == "":
		return NewError(KindValidation, "recipient required", nil)
	case m.Subject == "":
		return NewError(KindValidation, "subject required", nil)
	case m.HTML == "" && m.Text == "":
		return NewError(KindValidation, "body required", nil)
	}
	return nil
}
