package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

// Email transports accepted by EMAIL_TRANSPORT.
const (
	EmailTransportBrevo = "brevo"
	EmailTransportSMTP  = "smtp"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Email        EmailConfig
	Routing      RoutingConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	BaseURL               string
	RequestTimeoutSeconds int
	CORSAllowOrigins      string
	RateLimitPerMinute    int
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// MongoConfig holds document store connection values.
type MongoConfig struct {
	URI               string
	Database          string
	ConnectTimeoutSec int
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AuthConfig defines authentication parameters for the admin API.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AdminEmail            string
	AdminPasswordHash     string
	AdminPassword         string
	BcryptCost            int
}

// EmailConfig configures the outbound email transport.
type EmailConfig struct {
	Transport         string
	BrevoAPIKey       string
	BrevoBaseURL      string
	SenderEmail       string
	SenderName        string
	ReplyTo           string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SendTimeout       time.Duration
	RatePerSecond     float64
	RateBurst         int
	ResendLockTimeout time.Duration
}

// RoutingConfig holds routing fallbacks used when stored settings are missing.
type RoutingConfig struct {
	ForwardingEmail      string
	InternationalManager string
}

// NotificationConfig controls resend and pending-notification behaviour.
type NotificationConfig struct {
	MaxAttempts          int
	PendingMaxAttempts   int
	MonitorIntervalSec   int
	MonitorPendingWarnAt int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	sendTimeout, err := time.ParseDuration(getEnv("EMAIL_SEND_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid EMAIL_SEND_TIMEOUT: %w", err)
	}
	lockTimeout, err := time.ParseDuration(getEnv("EMAIL_RESEND_LOCK_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid EMAIL_RESEND_LOCK_TTL: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			BaseURL:               strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSAllowOrigins:      getEnv("CORS_ALLOW_ORIGINS", "*"),
			RateLimitPerMinute:    getEnvAsInt("HTTP_RATE_LIMIT_PER_MINUTE", 120),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMemory)),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Mongo: MongoConfig{
			URI:               os.Getenv("MONGO_URI"),
			Database:          getEnv("MONGO_DATABASE", "ticket_portal"),
			ConnectTimeoutSec: getEnvAsInt("MONGO_CONNECT_TIMEOUT_SECONDS", 10),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 28),
			Compress:   getEnvAsBool("LOG_FILE_COMPRESS", true),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			AdminEmail:            getEnv("ADMIN_EMAIL", "admin@example.com"),
			AdminPasswordHash:     os.Getenv("ADMIN_PASSWORD_HASH"),
			AdminPassword:         os.Getenv("ADMIN_PASSWORD"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Email: EmailConfig{
			Transport:         strings.ToLower(getEnv("EMAIL_TRANSPORT", EmailTransportBrevo)),
			BrevoAPIKey:       os.Getenv("BREVO_API_KEY"),
			BrevoBaseURL:      strings.TrimRight(getEnv("BREVO_BASE_URL", "https://api.brevo.com/v3"), "/"),
			SenderEmail:       getEnv("EMAIL_SENDER_ADDRESS", "noreply@inoksan.com"),
			SenderName:        getEnv("EMAIL_SENDER_NAME", "Inoksan Support"),
			ReplyTo:           getEnv("EMAIL_REPLY_TO", "support@inoksan.com"),
			SMTPHost:          os.Getenv("SMTP_HOST"),
			SMTPPort:          getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername:      os.Getenv("SMTP_USERNAME"),
			SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
			SendTimeout:       sendTimeout,
			RatePerSecond:     getEnvAsFloat("EMAIL_RATE_PER_SECOND", 5),
			RateBurst:         getEnvAsInt("EMAIL_RATE_BURST", 10),
			ResendLockTimeout: lockTimeout,
		},
		Routing: RoutingConfig{
			ForwardingEmail:      getEnv("ROUTING_FORWARDING_EMAIL", "support@inoksan.com"),
			InternationalManager: getEnv("ROUTING_INTERNATIONAL_MANAGER", "regional.intl@inoksan.com"),
		},
		Notification: NotificationConfig{
			MaxAttempts:          getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
			PendingMaxAttempts:   getEnvAsInt("NOTIFY_PENDING_MAX_ATTEMPTS", 3),
			MonitorIntervalSec:   getEnvAsInt("NOTIFY_MONITOR_INTERVAL_SECONDS", 60),
			MonitorPendingWarnAt: getEnvAsInt("NOTIFY_MONITOR_WARN_THRESHOLD", 10),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("STORE_DRIVER=postgres requires POSTGRES_DSN")
		}
	case StoreDriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("STORE_DRIVER=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Email.Transport {
	case EmailTransportBrevo, EmailTransportSMTP:
	default:
		return fmt.Errorf("unsupported EMAIL_TRANSPORT %q", c.Email.Transport)
	}

	if c.Notification.MaxAttempts <= 0 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be positive")
	}
	if c.Email.SendTimeout <= 0 {
		return fmt.Errorf("EMAIL_SEND_TIMEOUT must be positive")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// MonitorInterval returns the pending-notification monitor period.
func (n NotificationConfig) MonitorInterval() time.Duration {
	if n.MonitorIntervalSec <= 0 {
		return time.Minute
	}
	return time.Duration(n.MonitorIntervalSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
