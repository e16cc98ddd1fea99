package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

func TestSubjectFor(t *testing.T) {
	ticket := &domain.Ticket{ID: "TKT-2025-0003", Subject: "Oven stopped"}
	assert.Equal(t, "Support Ticket TKT-2025-0003 - Oven stopped", SubjectFor(ticket, domain.EmailTypeCustomerConfirmation))
	assert.Equal(t, "[NEW TICKET] Oven stopped", SubjectFor(ticket, domain.EmailTypeAdminNotification))
	assert.Equal(t, "[REGIONAL] New Ticket Oven stopped", SubjectFor(ticket, domain.EmailTypeRegionalNotification))
}

func TestPriorityColor(t *testing.T) {
	assert.Equal(t, "#dc2626", PriorityColor(domain.TicketPriorityCritical))
	assert.Equal(t, "#dc2626", PriorityColor(domain.TicketPriorityUrgent))
	assert.Equal(t, "#ea580c", PriorityColor(domain.TicketPriorityHigh))
	assert.Equal(t, "#ca8a04", PriorityColor(domain.TicketPriorityMedium))
	assert.Equal(t, "#16a34a", PriorityColor(domain.TicketPriorityLow))
	assert.Equal(t, "#6b7280", PriorityColor(domain.TicketPriorityNormal))
}

func TestRenderTicketEmail(t *testing.T) {
	ticket := &domain.Ticket{
		ID:            "TKT-2025-0001",
		CompanyName:   "Acme <Foods>",
		ContactPerson: "Jane",
		Email:         "jane@acme.com",
		Country:       "Turkey",
		SerialNumber:  "SN-9",
		Subject:       "Oven stopped",
		Description:   "No heat",
		Priority:      domain.TicketPriorityHigh,
		Attachments:   []string{"https://files.example.com/a.jpg", "https://files.example.com/b.pdf"},
	}
	html, err := RenderTicketEmail(ticket, domain.EmailTypeCustomerConfirmation, "https://support.example.com")
	require.NoError(t, err)

	assert.Contains(t, html, "TKT-2025-0001")
	assert.Contains(t, html, "Acme &lt;Foods&gt;")
	assert.Contains(t, html, "#ea580c")
	assert.Contains(t, html, "Equipment Details")
	assert.Contains(t, html, "SN-9")
	assert.Contains(t, html, "File 1")
	assert.Contains(t, html, "File 2")
	assert.Contains(t, html, "https://support.example.com/admin/tickets/TKT-2025-0001")

	ticket.SerialNumber = ""
	ticket.Attachments = nil
	html, err = RenderTicketEmail(ticket, domain.EmailTypeAdminNotification, "https://support.example.com")
	require.NoError(t, err)
	assert.NotContains(t, html, "Equipment Details")
	assert.NotContains(t, html, "Attachments")
	assert.Contains(t, html, "New Support Ticket")
}
