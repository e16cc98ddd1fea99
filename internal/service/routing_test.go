package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/repository/memory"
)

func TestResolveIncludesCountryManagerOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.CountryManagers.Upsert(ctx, &domain.CountryManager{Country: "Germany", ManagerEmail: "m@x.com"}))
	require.NoError(t, h.store.Settings.SaveRoutingSettings(ctx, &domain.RoutingSettings{
		ManagerEmail:    "M@X.com",
		ForwardingEmail: "fwd@inoksan.com",
		Countries: []domain.CountryRoute{
			{Code: "DE", Name: "Germany", SupportEmail: "m@x.com", RegionalManagerEmail: "de@inoksan.com", Enabled: true},
		},
	}))

	ticket := &domain.Ticket{ID: "TKT-2025-0001", Email: "c@customer.com", Country: "Germany"}
	r := h.resolver.Resolve(ctx, ticket, domain.EmailTypeCustomerConfirmation, "")

	assert.Equal(t, "c@customer.com", r.To)
	assert.Equal(t, []string{"m@x.com", "fwd@inoksan.com"}, r.CC)
	assert.Equal(t, "m@x.com", r.RegionalManager)
	assert.Equal(t, "m@x.com", r.ReplyTo)
}

func TestRegionalManagerPrecedence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// static table, then international default
	assert.Equal(t, "regional.tr@inoksan.com", h.resolver.RegionalManager(ctx, "Turkey", ""))
	assert.Equal(t, "regional.intl@inoksan.com", h.resolver.RegionalManager(ctx, "Atlantis", ""))

	require.NoError(t, h.store.Settings.SaveRoutingSettings(ctx, &domain.RoutingSettings{
		Countries: []domain.CountryRoute{
			{Code: "TR", Name: "Turkey", RegionalManagerEmail: "settings.tr@inoksan.com", Enabled: true},
			{Code: "FR", Name: "France", RegionalManagerEmail: "disabled.fr@inoksan.com", Enabled: false},
		},
	}))
	assert.Equal(t, "settings.tr@inoksan.com", h.resolver.RegionalManager(ctx, "Turkey", ""))
	assert.Equal(t, "regional.fr@inoksan.com", h.resolver.RegionalManager(ctx, "France", ""))

	assert.Equal(t, "stored@inoksan.com", h.resolver.RegionalManager(ctx, "Turkey", "stored@inoksan.com"))

	require.NoError(t, h.store.CountryManagers.Upsert(ctx, &domain.CountryManager{Country: "Turkey", ManagerEmail: "turkey.manager@example.com"}))
	assert.Equal(t, "turkey.manager@example.com", h.resolver.RegionalManager(ctx, "Turkey", "stored@inoksan.com"))
}

func TestResolveAdminNotificationTargetsForwardingAddress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := &domain.Ticket{Email: "c@customer.com", Country: "Spain"}

	r := h.resolver.Resolve(ctx, ticket, domain.EmailTypeAdminNotification, "")
	assert.Equal(t, "support@inoksan.com", r.To)
	assert.Equal(t, []string{"regional.es@inoksan.com"}, r.CC)

	require.NoError(t, h.store.Settings.SaveRoutingSettings(ctx, &domain.RoutingSettings{ForwardingEmail: "desk@inoksan.com"}))
	r = h.resolver.Resolve(ctx, ticket, domain.EmailTypeRegionalNotification, "")
	assert.Equal(t, "desk@inoksan.com", r.To)
	assert.NotContains(t, r.CC, "desk@inoksan.com")
}

func TestResolveOverrideRemovedFromCC(t *testing.T) {
	h := newHarness(t)
	ticket := &domain.Ticket{Email: "c@customer.com", Country: "Italy"}

	r := h.resolver.Resolve(context.Background(), ticket, domain.EmailTypeCustomerConfirmation, " Regional.IT@inoksan.com ")
	assert.Equal(t, "Regional.IT@inoksan.com", r.To)
	assert.Empty(t, r.CC)
	assert.Equal(t, []string{"Regional.IT@inoksan.com"}, r.All())
}

func TestResolveDegradesWhenLookupsFail(t *testing.T) {
	store := memory.NewStore(memory.NewDB())
	resolver := NewRoutingResolver(store.Settings, failingManagers{}, testRoutingConfig(), "support@inoksan.com", zap.NewNop())

	r := resolver.Resolve(context.Background(), &domain.Ticket{Email: "c@customer.com", Country: "Japan"}, domain.EmailTypeCustomerConfirmation, "")
	assert.Equal(t, "regional.jp@inoksan.com", r.RegionalManager)
	assert.Equal(t, []string{"regional.jp@inoksan.com"}, r.CC)
}
