package service

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

// PriorityColor returns the badge colour for a priority.
func PriorityColor(p domain.TicketPriority) string {
	switch p {
	case domain.TicketPriorityCritical, domain.TicketPriorityUrgent:
		return "#dc2626"
	case domain.TicketPriorityHigh:
		return "#ea580c"
	case domain.TicketPriorityMedium:
		return "#ca8a04"
	case domain.TicketPriorityLow:
		return "#16a34a"
	default:
		return "#6b7280"
	}
}

// SubjectFor builds the subject line of a notification.
func SubjectFor(ticket *domain.Ticket, emailType domain.EmailType) string {
	switch emailType {
	case domain.EmailTypeAdminNotification:
		return "[NEW TICKET] " + ticket.Subject
	case domain.EmailTypeRegionalNotification:
		return "[REGIONAL] New Ticket " + ticket.Subject
	default:
		return fmt.Sprintf("Support Ticket %s - %s", ticket.ID, ticket.Subject)
	}
}

type templateAttachment struct {
	Label string
	URL   string
}

type templateData struct {
	Heading        string
	Intro          string
	TicketID       string
	Priority       string
	PriorityColor  string
	CompanyName    string
	ContactPerson  string
	Email          string
	PhoneNumber    string
	Country        string
	IssueType      string
	ProductModel   string
	SerialNumber   string
	OrderInvoiceNo string
	HasEquipment   bool
	Subject        string
	Description    string
	Attachments    []templateAttachment
	DashboardURL   string
}

var ticketEmailTemplate = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #111827;">
<h2>{{.Heading}}</h2>
<p>{{.Intro}}</p>
<h3>Ticket Summary</h3>
<table cellpadding="4">
<tr><td><strong>Ticket ID:</strong></td><td>{{.TicketID}}</td></tr>
<tr><td><strong>Priority:</strong></td><td><span style="background-color: {{.PriorityColor}}; color: #ffffff; padding: 2px 8px; border-radius: 4px;">{{.Priority}}</span></td></tr>
<tr><td><strong>Company:</strong></td><td>{{.CompanyName}}</td></tr>
<tr><td><strong>Contact:</strong></td><td>{{.ContactPerson}} ({{.Email}}){{if .PhoneNumber}} {{.PhoneNumber}}{{end}}</td></tr>
<tr><td><strong>Country:</strong></td><td>{{.Country}}</td></tr>
{{if .IssueType}}<tr><td><strong>Issue Type:</strong></td><td>{{.IssueType}}</td></tr>{{end}}
</table>
{{if .HasEquipment}}
<h3>Equipment Details</h3>
<table cellpadding="4">
{{if .ProductModel}}<tr><td><strong>Product Model:</strong></td><td>{{.ProductModel}}</td></tr>{{end}}
{{if .SerialNumber}}<tr><td><strong>Serial Number:</strong></td><td>{{.SerialNumber}}</td></tr>{{end}}
{{if .OrderInvoiceNo}}<tr><td><strong>Order/Invoice No:</strong></td><td>{{.OrderInvoiceNo}}</td></tr>{{end}}
</table>
{{end}}
<h3>Issue Details</h3>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p><strong>Description:</strong></p>
<p>{{.Description}}</p>
{{if .Attachments}}
<h3>Attachments</h3>
<ul>
{{range .Attachments}}<li><a href="{{.URL}}">{{.Label}}</a></li>
{{end}}</ul>
{{end}}
<p><a href="{{.DashboardURL}}">View ticket in dashboard</a></p>
<hr>
<p style="font-size: 12px; color: #6b7280;">Inoksan Support Team | support@inoksan.com</p>
</body>
</html>
`))

// RenderTicketEmail renders the HTML body for a ticket notification.
func RenderTicketEmail(ticket *domain.Ticket, emailType domain.EmailType, baseURL string) (string, error) {
	data := templateData{
		TicketID:       ticket.ID,
		Priority:       string(ticket.Priority),
		PriorityColor:  PriorityColor(ticket.Priority),
		CompanyName:    ticket.CompanyName,
		ContactPerson:  ticket.ContactPerson,
		Email:          ticket.Email,
		PhoneNumber:    ticket.PhoneNumber,
		Country:        ticket.Country,
		IssueType:      ticket.IssueType,
		ProductModel:   ticket.ProductModel,
		SerialNumber:   ticket.SerialNumber,
		OrderInvoiceNo: ticket.OrderInvoiceNo,
		HasEquipment:   ticket.ProductModel != "" || ticket.SerialNumber != "" || ticket.OrderInvoiceNo != "",
		Subject:        ticket.Subject,
		Description:    ticket.Description,
		DashboardURL:   fmt.Sprintf("%s/admin/tickets/%s", baseURL, ticket.ID),
	}
	for i, url := range ticket.Attachments {
		data.Attachments = append(data.Attachments, templateAttachment{Label: fmt.Sprintf("File %d", i+1), URL: url})
	}

	switch emailType {
	case domain.EmailTypeAdminNotification:
		data.Heading = "New Support Ticket"
		data.Intro = "A new support ticket has been submitted."
	case domain.EmailTypeRegionalNotification:
		data.Heading = "New Regional Support Ticket"
		data.Intro = fmt.Sprintf("A new support ticket has been submitted from %s.", ticket.Country)
	default:
		data.Heading = "Support Ticket Received"
		data.Intro = fmt.Sprintf("Dear %s, thank you for contacting Inoksan support. Your ticket has been received and our team will get back to you shortly.", ticket.ContactPerson)
	}

	var buf bytes.Buffer
	if err := ticketEmailTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
