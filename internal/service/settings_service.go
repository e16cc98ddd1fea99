package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// SeedCountryManagers are installed by Seed when absent.
var SeedCountryManagers = []domain.CountryManager{
	{Country: "Turkey", ManagerEmail: "turkey.manager@example.com"},
	{Country: "United States", ManagerEmail: "usa.manager@example.com"},
	{Country: "Germany", ManagerEmail: "germany.manager@example.com"},
	{Country: "United Kingdom", ManagerEmail: "uk.manager@example.com"},
}

// SettingsService manages routing settings and country managers.
type SettingsService struct {
	settings repository.SettingsRepository
	managers repository.CountryManagerRepository
	tickets  repository.TicketRepository
	routing  config.RoutingConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewSettingsService constructs the service.
func NewSettingsService(store repository.Store, routing config.RoutingConfig, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		settings: store.Settings,
		managers: store.CountryManagers,
		tickets:  store.Tickets,
		routing:  routing,
		logger:   logger,
		now:      time.Now,
	}
}

// RoutingSettingsInput is the editable part of the routing settings.
type RoutingSettingsInput struct {
	ManagerEmail    string              `validate:"omitempty,email"`
	ForwardingEmail string              `validate:"omitempty,email"`
	Countries       []CountryRouteInput `validate:"dive"`
}

// CountryRouteInput is one per-country routing entry.
type CountryRouteInput struct {
	Code                 string `validate:"required,max=8"`
	Name                 string `validate:"required,max=100"`
	SupportEmail         string `validate:"omitempty,email"`
	RegionalManagerEmail string `validate:"omitempty,email"`
	Enabled              bool
}

type countryManagerInput struct {
	Country      string `validate:"required,max=100"`
	ManagerEmail string `validate:"required,email"`
}

// GetRoutingSettings returns stored settings, or defaults when none were saved.
func (s *SettingsService) GetRoutingSettings(ctx context.Context) (*domain.RoutingSettings, error) {
	settings, err := s.settings.GetRoutingSettings(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.RoutingSettings{ForwardingEmail: s.routing.ForwardingEmail, Countries: []domain.CountryRoute{}}, nil
	}
	return settings, err
}

// SaveRoutingSettings validates and replaces the routing settings.
func (s *SettingsService) SaveRoutingSettings(ctx context.Context, in RoutingSettingsInput) (*domain.RoutingSettings, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	settings := &domain.RoutingSettings{
		ManagerEmail:    strings.TrimSpace(in.ManagerEmail),
		ForwardingEmail: strings.TrimSpace(in.ForwardingEmail),
		Countries:       make([]domain.CountryRoute, 0, len(in.Countries)),
		UpdatedAt:       s.now().UTC(),
	}
	seen := make(map[string]struct{}, len(in.Countries))
	for _, c := range in.Countries {
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if _, dup := seen[code]; dup {
			return nil, errorutil.NewValidationError("duplicate country code", map[string]any{"code": code})
		}
		seen[code] = struct{}{}
		settings.Countries = append(settings.Countries, domain.CountryRoute{
			Code:                 code,
			Name:                 strings.TrimSpace(c.Name),
			SupportEmail:         strings.TrimSpace(c.SupportEmail),
			RegionalManagerEmail: strings.TrimSpace(c.RegionalManagerEmail),
			Enabled:              c.Enabled,
		})
	}
	if err := s.settings.SaveRoutingSettings(ctx, settings); err != nil {
		return nil, err
	}
	s.logger.Info("routing settings saved", zap.Int("countries", len(settings.Countries)))
	return settings, nil
}

// ListCountryManagers returns every override.
func (s *SettingsService) ListCountryManagers(ctx context.Context) ([]domain.CountryManager, error) {
	return s.managers.List(ctx)
}

// UpsertCountryManager sets the manager for a country.
func (s *SettingsService) UpsertCountryManager(ctx context.Context, country, email string) (*domain.CountryManager, error) {
	in := countryManagerInput{Country: strings.TrimSpace(country), ManagerEmail: strings.TrimSpace(email)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	m := &domain.CountryManager{Country: in.Country, ManagerEmail: in.ManagerEmail, UpdatedAt: s.now().UTC()}
	if err := s.managers.Upsert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteCountryManager removes a country override.
func (s *SettingsService) DeleteCountryManager(ctx context.Context, country string) error {
	country = strings.TrimSpace(country)
	if err := s.managers.Delete(ctx, country); err != nil {
		return mapNotFound(err, "country manager", country)
	}
	return nil
}

// Seed creates the ticket counter and the sample country managers when absent.
func (s *SettingsService) Seed(ctx context.Context) error {
	if err := s.tickets.EnsureCounter(ctx); err != nil {
		return err
	}
	for _, m := range SeedCountryManagers {
		_, err := s.managers.Get(ctx, m.Country)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		seed := m
		seed.UpdatedAt = s.now().UTC()
		if err := s.managers.Upsert(ctx, &seed); err != nil {
			return err
		}
		s.logger.Info("country manager seeded", zap.String("country", m.Country))
	}
	return nil
}
