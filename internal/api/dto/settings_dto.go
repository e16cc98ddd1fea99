package dto

import (
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

// CountryRouteDTO is one per-country routing entry.
type CountryRouteDTO struct {
	Code                 string `json:"code"`
	Name                 string `json:"name"`
	SupportEmail         string `json:"supportEmail"`
	RegionalManagerEmail string `json:"regionalManagerEmail"`
	Enabled              bool   `json:"enabled"`
}

// RoutingSettingsDTO is used both as request and response body.
type RoutingSettingsDTO struct {
	ManagerEmail    string            `json:"managerEmail"`
	ForwardingEmail string            `json:"forwardingEmail"`
	Countries       []CountryRouteDTO `json:"countries"`
	UpdatedAt       *time.Time        `json:"updatedAt,omitempty"`
}

// CountryManagerRequest payload.
type CountryManagerRequest struct {
	ManagerEmail string `json:"managerEmail"`
}

// CountryManagerResponse represents one override.
type CountryManagerResponse struct {
	Country      string    `json:"country"`
	ManagerEmail string    `json:"managerEmail"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewRoutingSettings maps stored settings.
func NewRoutingSettings(s *domain.RoutingSettings) RoutingSettingsDTO {
	out := RoutingSettingsDTO{
		ManagerEmail:    s.ManagerEmail,
		ForwardingEmail: s.ForwardingEmail,
		Countries:       make([]CountryRouteDTO, 0, len(s.Countries)),
	}
	if !s.UpdatedAt.IsZero() {
		at := s.UpdatedAt
		out.UpdatedAt = &at
	}
	for _, c := range s.Countries {
		out.Countries = append(out.Countries, CountryRouteDTO{
			Code:                 c.Code,
			Name:                 c.Name,
			SupportEmail:         c.SupportEmail,
			RegionalManagerEmail: c.RegionalManagerEmail,
			Enabled:              c.Enabled,
		})
	}
	return out
}

// NewCountryManager maps one override.
func NewCountryManager(m *domain.CountryManager) CountryManagerResponse {
	return CountryManagerResponse{Country: m.Country, ManagerEmail: m.ManagerEmail, UpdatedAt: m.UpdatedAt}
}
