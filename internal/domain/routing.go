package domain

import "time"

// EmailType selects which address is primary To for a notification.
type EmailType string

const (
	EmailTypeCustomerConfirmation EmailType = "customer_confirmation"
	EmailTypeAdminNotification    EmailType = "admin_notification"
	EmailTypeRegionalNotification EmailType = "regional_notification"
)

// Valid reports whether t is a known email type.
func (t EmailType) Valid() bool {
	switch t {
	case EmailTypeCustomerConfirmation, EmailTypeAdminNotification, EmailTypeRegionalNotification:
		return true
	}
	return false
}

// CountryRoute is a per-country entry of the routing settings.
type CountryRoute struct {
	Code                 string
	Name                 string
	SupportEmail         string
	RegionalManagerEmail string
	Enabled              bool
}

// RoutingSettings is the administrator-edited global routing configuration.
type RoutingSettings struct {
	ManagerEmail    string
	ForwardingEmail string
	Countries       []CountryRoute
	UpdatedAt       time.Time
}

// CountryManager overrides the regional manager for one country.
type CountryManager struct {
	Country      string
	ManagerEmail string
	UpdatedAt    time.Time
}
