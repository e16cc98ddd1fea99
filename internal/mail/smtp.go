package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// SMTPConfig configures the SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTP sends through an SMTP relay via gomail.
type SMTP struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTP constructs the transport.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTP{cfg: cfg, dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)}
}

func (s *SMTP) Name() string { return "smtp" }

func (s *SMTP) Send(ctx context.Context, msg Message) (string, error) {
	if s.cfg.Host == "" {
		return "", NewError(KindConfig, "SMTP_HOST not configured", nil)
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), senderDomain(msg.From.Email))

	m := gomail.NewMessage()
	m.SetHeader("Message-ID", messageID)
	m.SetAddressHeader("From", msg.From.Email, msg.From.Name)
	m.SetHeader("To", msg.To...)
	if len(msg.CC) > 0 {
		m.SetHeader("Cc", msg.CC...)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	if err := s.withTimeout(ctx, func() error { return s.dialer.DialAndSend(m) }); err != nil {
		return "", classifySMTP(err)
	}
	return messageID, nil
}

func (s *SMTP) Check(ctx context.Context) CheckResult {
	if s.cfg.Host == "" {
		return CheckResult{Configured: false, KeyValid: false, Detail: "SMTP_HOST not configured"}
	}
	err := s.withTimeout(ctx, func() error {
		conn, err := s.dialer.Dial()
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		return CheckResult{Configured: true, KeyValid: false, Detail: err.Error()}
	}
	return CheckResult{Configured: true, KeyValid: true}
}

// withTimeout runs fn in the background and stops waiting when the deadline
// passes. The SMTP session itself is abandoned, not interrupted.
func (s *SMTP) withTimeout(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return NewError(KindNetwork, "smtp send timed out", ctx.Err())
	}
}

func classifySMTP(err error) error {
	var mailErr *Error
	if errors.As(err, &mailErr) {
		return err
	}
	if Classify(err) == KindNetwork {
		return NewError(KindNetwork, "smtp connection failed", err)
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "535"), strings.Contains(msg, "auth"):
		return NewError(KindConfig, "smtp authentication failed", err)
	case strings.HasPrefix(msg, "421"), strings.HasPrefix(msg, "450"), strings.HasPrefix(msg, "451"), strings.HasPrefix(msg, "452"):
		return NewError(KindRateLimit, "smtp server throttled the message", err)
	case strings.HasPrefix(msg, "550"), strings.HasPrefix(msg, "553"), strings.HasPrefix(msg, "501"):
		return NewError(KindValidation, "smtp server rejected a recipient", err)
	}
	return NewError(KindUnknown, "smtp send failed", err)
}

func senderDomain(addr string) string {
	if at := strings.LastIndex(addr, "@"); at >= 0 && at < len(addr)-1 {
		return addr[at+1:]
	}
	return "localhost"
}
