package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

const emailSettingsName = "email"

type countryRouteRecord struct {
	Code                 string `json:"code"`
	Name                 string `json:"name"`
	SupportEmail         string `json:"email"`
	RegionalManagerEmail string `json:"regionalManagerEmail,omitempty"`
	Enabled              bool   `json:"enabled"`
}

type routingSettingsRecord struct {
	ManagerEmail    string               `json:"managerEmail"`
	ForwardingEmail string               `json:"forwardingEmail"`
	Countries       []countryRouteRecord `json:"countries"`
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository builds repository.
func NewSettingsRepository(pool *pgxpool.Pool) repository.SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) GetRoutingSettings(ctx context.Context) (*domain.RoutingSettings, error) {
	var (
		record    routingSettingsRecord
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `SELECT payload, updated_at FROM settings WHERE name=$1`, emailSettingsName).
		Scan(&record, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	settings := &domain.RoutingSettings{
		ManagerEmail:    record.ManagerEmail,
		ForwardingEmail: record.ForwardingEmail,
		Countries:       make([]domain.CountryRoute, len(record.Countries)),
		UpdatedAt:       updatedAt,
	}
	for i, c := range record.Countries {
		settings.Countries[i] = domain.CountryRoute(c)
	}
	return settings, nil
}

func (r *settingsRepository) SaveRoutingSettings(ctx context.Context, settings *domain.RoutingSettings) error {
	record := routingSettingsRecord{
		ManagerEmail:    settings.ManagerEmail,
		ForwardingEmail: settings.ForwardingEmail,
		Countries:       make([]countryRouteRecord, len(settings.Countries)),
	}
	for i, c := range settings.Countries {
		record.Countries[i] = countryRouteRecord(c)
	}

	const query = `
        INSERT INTO settings (name, payload, updated_at) VALUES ($1, $2::jsonb, $3)
        ON CONFLICT (name) DO UPDATE SET payload=EXCLUDED.payload, updated_at=EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, query, emailSettingsName, record, settings.UpdatedAt)
	return err
}

type countryManagerRepository struct {
	pool *pgxpool.Pool
}

// NewCountryManagerRepository builds repository.
func NewCountryManagerRepository(pool *pgxpool.Pool) repository.CountryManagerRepository {
	return &countryManagerRepository{pool: pool}
}

func (r *countryManagerRepository) Get(ctx context.Context, country string) (*domain.CountryManager, error) {
	var m domain.CountryManager
	err := r.pool.QueryRow(ctx,
		`SELECT country, manager_email, updated_at FROM country_managers WHERE country=$1`, country).
		Scan(&m.Country, &m.ManagerEmail, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *countryManagerRepository) List(ctx context.Context) ([]domain.CountryManager, error) {
	rows, err := r.pool.Query(ctx, `SELECT country, manager_email, updated_at FROM country_managers ORDER BY country`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.CountryManager{}
	for rows.Next() {
		var m domain.CountryManager
		if err := rows.Scan(&m.Country, &m.ManagerEmail, &m.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *countryManagerRepository) Upsert(ctx context.Context, manager *domain.CountryManager) error {
	const query = `
        INSERT INTO country_managers (country, manager_email, updated_at) VALUES ($1, $2, NOW())
        ON CONFLICT (country) DO UPDATE SET manager_email=EXCLUDED.manager_email, updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, manager.Country, manager.ManagerEmail).Scan(&manager.UpdatedAt)
}

func (r *countryManagerRepository) Delete(ctx context.Context, country string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM country_managers WHERE country=$1`, country)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
