package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-portal/internal/api/dto"
	"github.com/spec-kit/ticket-portal/internal/service"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// SettingsHandler manages routing settings and country managers.
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: settingsService}
}

// GetEmailSettings GET /admin/settings/email.
func (h *SettingsHandler) GetEmailSettings(c *fiber.Ctx) error {
	settings, err := h.service.GetRoutingSettings(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRoutingSettings(settings)})
}

// SaveEmailSettings PUT /admin/settings/email.
func (h *SettingsHandler) SaveEmailSettings(c *fiber.Ctx) error {
	var req dto.RoutingSettingsDTO
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.RoutingSettingsInput{
		ManagerEmail:    req.ManagerEmail,
		ForwardingEmail: req.ForwardingEmail,
	}
	for _, country := range req.Countries {
		input.Countries = append(input.Countries, service.CountryRouteInput{
			Code:                 country.Code,
			Name:                 country.Name,
			SupportEmail:         country.SupportEmail,
			RegionalManagerEmail: country.RegionalManagerEmail,
			Enabled:              country.Enabled,
		})
	}
	settings, err := h.service.SaveRoutingSettings(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRoutingSettings(settings)})
}

// ListCountryManagers GET /admin/country-managers.
func (h *SettingsHandler) ListCountryManagers(c *fiber.Ctx) error {
	managers, err := h.service.ListCountryManagers(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CountryManagerResponse, 0, len(managers))
	for i := range managers {
		items = append(items, dto.NewCountryManager(&managers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpsertCountryManager PUT /admin/country-managers/:country.
func (h *SettingsHandler) UpsertCountryManager(c *fiber.Ctx) error {
	var req dto.CountryManagerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	country, err := countryParam(c)
	if err != nil {
		return err
	}
	manager, err := h.service.UpsertCountryManager(c.UserContext(), country, req.ManagerEmail)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCountryManager(manager)})
}

// DeleteCountryManager DELETE /admin/country-managers/:country.
func (h *SettingsHandler) DeleteCountryManager(c *fiber.Ctx) error {
	country, err := countryParam(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteCountryManager(c.UserContext(), country); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// countryParam decodes names such as "United%20Kingdom".
func countryParam(c *fiber.Ctx) (string, error) {
	country, err := url.PathUnescape(c.Params("country"))
	if err != nil {
		return "", apperrors.NewValidationError("invalid country", nil)
	}
	return country, nil
}
