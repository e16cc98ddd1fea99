// Package bootstrap assembles infrastructure shared by the executables.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/lock"
	"github.com/spec-kit/ticket-portal/internal/mail"
	"github.com/spec-kit/ticket-portal/internal/persistence"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/internal/repository/memory"
	"github.com/spec-kit/ticket-portal/internal/repository/mongodb"
	"github.com/spec-kit/ticket-portal/internal/repository/postgres"
)

// OpenStore connects the backend selected by STORE_DRIVER and prepares its
// schema: migrations for PostgreSQL, indexes for MongoDB.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return repository.Store{}, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return repository.Store{}, fmt.Errorf("run migrations: %w", err)
			}
		}
		return postgres.NewStore(pg.PoolHandle()), nil
	case config.StoreDriverMongo:
		m, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return repository.Store{}, err
		}
		if err := m.EnsureIndexes(ctx, logger); err != nil {
			m.Close(context.Background())
			return repository.Store{}, err
		}
		return mongodb.NewStore(m), nil
	default:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(memory.NewDB()), nil
	}
}

// NewTransport builds the outbound email transport wrapped in the send-rate
// limiter.
func NewTransport(cfg config.EmailConfig) mail.Transport {
	var transport mail.Transport
	switch cfg.Transport {
	case config.EmailTransportSMTP:
		transport = mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			Timeout:  cfg.SendTimeout,
		})
	default:
		transport = mail.NewBrevo(mail.BrevoConfig{
			APIKey:  cfg.BrevoAPIKey,
			BaseURL: cfg.BrevoBaseURL,
			Timeout: cfg.SendTimeout,
		})
	}
	return mail.NewThrottled(transport, cfg.RatePerSecond, cfg.RateBurst)
}

// NewLocker returns a Redis lock when Redis is configured and an in-process
// lock otherwise.
func NewLocker(redis *persistence.Redis, cfg config.EmailConfig) lock.Locker {
	if redis.Enabled() {
		return lock.NewRedis(redis.Client, "ticket-portal:lock:", cfg.ResendLockTimeout)
	}
	return lock.NewLocal()
}
