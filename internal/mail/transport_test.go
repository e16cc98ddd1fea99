package mail

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTransport struct {
	sends int
}

func (c *countingTransport) Send(context.Context, Message) (string, error) {
	c.sends++
	return fmt.Sprintf("id-%d", c.sends), nil
}

func (c *countingTransport) Check(context.Context) CheckResult {
	return CheckResult{Configured: true, KeyValid: true}
}

func (c *countingTransport) Name() string { return "counting" }

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorKind(""), Classify(nil))
	assert.Equal(t, KindRateLimit, Classify(fmt.Errorf("wrapped: %w", NewError(KindRateLimit, "slow down", nil))))
	assert.Equal(t, KindNetwork, Classify(context.DeadlineExceeded))
	assert.Equal(t, KindUnknown, Classify(errors.New("boom")))
}

func TestMessageValidate(t *testing.T) {
	msg := testMessage()
	require.NoError(t, msg.Validate())

	msg.From.Email = ""
	assert.Equal(t, KindConfig, Classify(msg.Validate()))

	msg = testMessage()
	msg.To = nil
	assert.Equal(t, KindValidation, Classify(msg.Validate()))
}

func TestThrottledRejectsOverBudget(t *testing.T) {
	inner := &countingTransport{}
	throttled := NewThrottled(inner, 0.001, 2)

	for i := 0; i < 2; i++ {
		_, err := throttled.Send(context.Background(), testMessage())
		require.NoError(t, err)
	}
	_, err := throttled.Send(context.Background(), testMessage())
	assert.Equal(t, KindRateLimit, Classify(err))
	assert.Equal(t, 2, inner.sends)
	assert.Equal(t, "counting", throttled.Name())
}

func TestThrottledUnlimited(t *testing.T) {
	inner := &countingTransport{}
	throttled := NewThrottled(inner, 0, 0)
	for i := 0; i < 20; i++ {
		_, err := throttled.Send(context.Background(), testMessage())
		require.NoError(t, err)
	}
	assert.Equal(t, 20, inner.sends)
}

func TestPlainText(t *testing.T) {
	body := `<html><head><style>p { color: red; }</style></head><body>
<h1>Ticket TKT-2025-0001</h1><p>Company: Acme &amp; Sons</p><br/>
<div>Oven broken</div></body></html>`
	got := PlainText(body)
	assert.NotContains(t, got, "<")
	assert.NotContains(t, got, "color: red")
	assert.Contains(t, got, "Ticket TKT-2025-0001")
	assert.Contains(t, got, "Company: Acme & Sons")
	assert.Contains(t, got, "Oven broken")
}

func TestSMTPWithoutHostIsConfigError(t *testing.T) {
	s := NewSMTP(SMTPConfig{})
	_, err := s.Send(context.Background(), testMessage())
	assert.Equal(t, KindConfig, Classify(err))
	assert.False(t, s.Check(context.Background()).Configured)
}
