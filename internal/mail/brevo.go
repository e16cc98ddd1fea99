package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// BrevoConfig configures the Brevo transactional email API.
type BrevoConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Brevo sends through POST /smtp/email.
type Brevo struct {
	cfg BrevoConfig
}

// NewBrevo constructs the transport. A missing key is reported per send as CONFIG_ERROR.
func NewBrevo(cfg BrevoConfig) *Brevo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.brevo.com/v3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Brevo{cfg: cfg}
}

func (b *Brevo) Name() string { return "brevo" }

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	CC          []brevoContact `json:"cc,omitempty"`
	ReplyTo     *brevoContact  `json:"replyTo,omitempty"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	TextContent string         `json:"textContent,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (b *Brevo) Send(ctx context.Context, msg Message) (string, error) {
	if b.cfg.APIKey == "" {
		return "", NewError(KindConfig, "BREVO_API_KEY not configured", nil)
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}

	payload := brevoRequest{
		Sender:      brevoContact{Email: msg.From.Email, Name: msg.From.Name},
		To:          contacts(msg.To),
		CC:          contacts(msg.CC),
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
	}
	if msg.ReplyTo != "" {
		payload.ReplyTo = &brevoContact{Email: msg.ReplyTo}
	}

	agent := fiber.Post(b.cfg.BaseURL + "/smtp/email")
	agent.Set("api-key", b.cfg.APIKey)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.JSON(payload)

	code, body, err := b.do(ctx, agent)
	if err != nil {
		return "", err
	}

	var resp brevoResponse
	_ = json.Unmarshal(body, &resp)

	if code >= 200 && code < 300 {
		if resp.MessageID == "" {
			return "", NewError(KindUnknown, "brevo response missing messageId", nil)
		}
		return resp.MessageID, nil
	}
	return "", classifyStatus(code, resp)
}

func (b *Brevo) Check(ctx context.Context) CheckResult {
	if b.cfg.APIKey == "" {
		return CheckResult{Configured: false, KeyValid: false, Detail: "BREVO_API_KEY not configured"}
	}

	agent := fiber.Get(b.cfg.BaseURL + "/account")
	agent.Set("api-key", b.cfg.APIKey)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)

	code, body, err := b.do(ctx, agent)
	if err != nil {
		return CheckResult{Configured: true, KeyValid: false, Detail: err.Error()}
	}
	if code != http.StatusOK {
		var resp brevoResponse
		_ = json.Unmarshal(body, &resp)
		return CheckResult{Configured: true, KeyValid: false, Detail: fmt.Sprintf("account lookup returned %d %s", code, resp.Message)}
	}
	return CheckResult{Configured: true, KeyValid: true}
}

// do executes the request bounded by the configured timeout and the context deadline.
func (b *Brevo) do(ctx context.Context, agent *fiber.Agent) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, NewError(KindNetwork, "request cancelled", err)
	}
	timeout := b.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return 0, nil, NewError(KindNetwork, "request deadline exceeded", context.DeadlineExceeded)
	}
	agent.Timeout(timeout)

	if err := agent.Parse(); err != nil {
		return 0, nil, NewError(KindConfig, "invalid brevo endpoint", err)
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, nil, NewError(KindNetwork, "brevo request failed", errs[0])
	}
	return code, body, nil
}

func classifyStatus(code int, resp brevoResponse) error {
	detail := fmt.Sprintf("brevo returned %d", code)
	if resp.Message != "" {
		detail = fmt.Sprintf("%s: %s", detail, resp.Message)
	}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return NewError(KindConfig, detail, nil)
	case code == http.StatusTooManyRequests:
		return NewError(KindRateLimit, detail, nil)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return NewError(KindValidation, detail, nil)
	case code >= 500:
		return NewError(KindNetwork, detail, nil)
	default:
		return NewError(KindUnknown, detail, nil)
	}
}

func contacts(addrs []string) []brevoContact {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]brevoContact, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, brevoContact{Email: a})
	}
	return out
}
