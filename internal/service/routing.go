package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

// staticRegionalManagers is the fallback country table used when no
// CountryManager record or settings entry exists.
var staticRegionalManagers = map[string]string{
	"Turkey":               "regional.tr@inoksan.com",
	"United Kingdom":       "regional.uk@inoksan.com",
	"Germany":              "regional.de@inoksan.com",
	"United States":        "regional.us@inoksan.com",
	"France":               "regional.fr@inoksan.com",
	"Italy":                "regional.it@inoksan.com",
	"Spain":                "regional.es@inoksan.com",
	"Netherlands":          "regional.nl@inoksan.com",
	"Russia":               "regional.ru@inoksan.com",
	"China":                "regional.cn@inoksan.com",
	"Japan":                "regional.jp@inoksan.com",
	"South Korea":          "regional.kr@inoksan.com",
	"India":                "regional.in@inoksan.com",
	"Brazil":               "regional.br@inoksan.com",
	"Mexico":               "regional.mx@inoksan.com",
	"Canada":               "regional.ca@inoksan.com",
	"Australia":            "regional.au@inoksan.com",
	"United Arab Emirates": "regional.ae@inoksan.com",
	"Saudi Arabia":         "regional.sa@inoksan.com",
	"Egypt":                "regional.eg@inoksan.com",
	"South Africa":         "regional.za@inoksan.com",
}

// Recipients is the resolved address set of one notification.
type Recipients struct {
	To              string
	CC              []string
	ReplyTo         string
	RegionalManager string
}

// All returns To followed by CC.
func (r Recipients) All() []string {
	out := make([]string, 0, len(r.CC)+1)
	if r.To != "" {
		out = append(out, r.To)
	}
	return append(out, r.CC...)
}

// RoutingResolver decides who receives a ticket notification. Lookups are
// read on every call so admin edits apply immediately; lookup failures
// degrade to static defaults.
type RoutingResolver struct {
	settings repository.SettingsRepository
	managers repository.CountryManagerRepository
	cfg      config.RoutingConfig
	replyTo  string
	logger   *zap.Logger
}

// NewRoutingResolver constructs the resolver.
func NewRoutingResolver(settings repository.SettingsRepository, managers repository.CountryManagerRepository, cfg config.RoutingConfig, supportReplyTo string, logger *zap.Logger) *RoutingResolver {
	if cfg.InternationalManager == "" {
		cfg.InternationalManager = "regional.intl@inoksan.com"
	}
	return &RoutingResolver{settings: settings, managers: managers, cfg: cfg, replyTo: supportReplyTo, logger: logger}
}

// RegionalManager picks the regional manager for a country: CountryManager
// record, then the stored value, then an enabled settings entry, then the
// static table, then the international default.
func (r *RoutingResolver) RegionalManager(ctx context.Context, country, stored string) string {
	return r.regionalManager(ctx, country, stored, r.loadSettings(ctx))
}

func (r *RoutingResolver) regionalManager(ctx context.Context, country, stored string, settings *domain.RoutingSettings) string {
	if country != "" {
		m, err := r.managers.Get(ctx, country)
		switch {
		case err == nil && strings.TrimSpace(m.ManagerEmail) != "":
			return strings.TrimSpace(m.ManagerEmail)
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			r.logger.Warn("country manager lookup failed; using fallback",
				zap.String("country", country), zap.Error(err))
		}
	}
	if stored = strings.TrimSpace(stored); stored != "" {
		return stored
	}
	if route, ok := enabledCountry(settings, country); ok && route.RegionalManagerEmail != "" {
		return route.RegionalManagerEmail
	}
	if addr, ok := staticRegionalManagers[country]; ok {
		return addr
	}
	return r.cfg.InternationalManager
}

// Resolve computes To, CC and Reply-To for a ticket notification.
func (r *RoutingResolver) Resolve(ctx context.Context, ticket *domain.Ticket, emailType domain.EmailType, overrideRecipient string) Recipients {
	settings := r.loadSettings(ctx)
	regional := r.regionalManager(ctx, ticket.Country, ticket.RegionalManager, settings)

	cc := newAddressSet()
	if strings.Contains(regional, "@") {
		cc.add(regional)
	}

	forwarding := r.cfg.ForwardingEmail
	if settings != nil {
		cc.add(settings.ManagerEmail)
		if settings.ForwardingEmail != "" {
			forwarding = settings.ForwardingEmail
		}
		cc.add(settings.ForwardingEmail)
		if route, ok := enabledCountry(settings, ticket.Country); ok {
			cc.add(route.SupportEmail)
		}
	}

	var to string
	switch emailType {
	case domain.EmailTypeAdminNotification, domain.EmailTypeRegionalNotification:
		to = forwarding
	default:
		to = ticket.Email
	}
	if o := strings.TrimSpace(overrideRecipient); o != "" {
		to = o
	}
	cc.remove(to)

	replyTo := r.replyTo
	if strings.Contains(regional, "@") {
		replyTo = regional
	}

	return Recipients{
		To:              strings.TrimSpace(to),
		CC:              cc.list(),
		ReplyTo:         replyTo,
		RegionalManager: regional,
	}
}

func (r *RoutingResolver) loadSettings(ctx context.Context) *domain.RoutingSettings {
	settings, err := r.settings.GetRoutingSettings(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.logger.Warn("routing settings lookup failed; using defaults", zap.Error(err))
		}
		return nil
	}
	return settings
}

func enabledCountry(settings *domain.RoutingSettings, country string) (domain.CountryRoute, bool) {
	if settings == nil || country == "" {
		return domain.CountryRoute{}, false
	}
	for _, c := range settings.Countries {
		if !c.Enabled {
			continue
		}
		if c.Name == country || strings.EqualFold(c.Code, country) {
			return c, true
		}
	}
	return domain.CountryRoute{}, false
}

// addressSet keeps insertion order and deduplicates case-insensitively.
type addressSet struct {
	seen  map[string]struct{}
	items []string
	fold  cases.Caser
}

func newAddressSet() *addressSet {
	return &addressSet{seen: make(map[string]struct{}), fold: cases.Fold()}
}

func (s *addressSet) key(addr string) string {
	return s.fold.String(strings.TrimSpace(addr))
}

func (s *addressSet) add(addr string) {
	addr = strings.TrimSpace(addr)
	if addr == "" || !strings.Contains(addr, "@") {
		return
	}
	k := s.key(addr)
	if _, ok := s.seen[k]; ok {
		return
	}
	s.seen[k] = struct{}{}
	s.items = append(s.items, addr)
}

func (s *addressSet) remove(addr string) {
	k := s.key(addr)
	if _, ok := s.seen[k]; !ok {
		return
	}
	delete(s.seen, k)
	for i, item := range s.items {
		if s.key(item) == k {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *addressSet) list() []string {
	return append([]string(nil), s.items...)
}
