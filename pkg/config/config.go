// Package config loads service settings from ORDERS_* environment
// variables. Every binary shares the same Config and reads only the
// sections it needs.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Import        ImportConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Sendgrid      SendgridConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

// Load reads the environment, derives the database DSN when only the
// discrete ORDERS_DB_* parts are set, and checks cross-field constraints.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	dsn, err := cfg.DB.resolveDSN()
	if err != nil {
		return nil, err
	}
	cfg.DB.DSN = dsn
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	check := func(ok bool, msg string) {
		if !ok {
			err = multierr.Append(err, errors.New(msg))
		}
	}
	check(c.JWT.ExpirationMinutes > 0, EnvJWTExpMins+" must be positive")
	check(c.JWT.RefreshTokenTTLMinutes >= c.JWT.ExpirationMinutes, EnvRefreshTokenTTLMinutes+" must not be shorter than the access token lifetime")
	check(c.Import.MaxFeedBytes > 0, "ORDERS_IMPORT_MAX_FEED_BYTES must be positive")
	check(c.Outbox.MaxAttempts > 0, "ORDERS_OUTBOX_MAX_ATTEMPTS must be positive")
	check(c.Cron.Interval > 0, "ORDERS_CRON_INTERVAL must be positive")
	return err
}

type AppConfig struct {
	Env          string `envconfig:"ORDERS_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERS_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ORDERS_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"ORDERS_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORDERS_SERVICE_KIND" default:"api"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERS_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ORDERS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ORDERS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ORDERS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ORDERS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL is zero when unset.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(max(j.RefreshTokenTTLMinutes, 0)) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int           `envconfig:"ORDERS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int           `envconfig:"ORDERS_ARGON_TIME" default:"3"`
	ArgonParallelism int           `envconfig:"ORDERS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int           `envconfig:"ORDERS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int           `envconfig:"ORDERS_ARGON_KEY_LEN" default:"32"`
	ResetTokenTTL    time.Duration `envconfig:"ORDERS_PASSWORD_RESET_TTL" default:"24h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ORDERS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ORDERS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ORDERS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ORDERS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ORDERS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ORDERS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// ImportConfig drives the price-list importer.
type ImportConfig struct {
	FeedPath        string        `envconfig:"ORDERS_IMPORT_FEED_PATH"`
	MaxFeedBytes    int64         `envconfig:"ORDERS_IMPORT_MAX_FEED_BYTES" default:"5242880"`
	LockTTL         time.Duration `envconfig:"ORDERS_IMPORT_LOCK_TTL" default:"10m"`
	RateLimit       int           `envconfig:"ORDERS_IMPORT_RATE_LIMIT" default:"5"`
	RateLimitWindow time.Duration `envconfig:"ORDERS_IMPORT_RATE_WINDOW" default:"1h"`
	StaleAfter      time.Duration `envconfig:"ORDERS_IMPORT_STALE_AFTER" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORDERS_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ORDERS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORDERS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ORDERS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORDERS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CatalogTopic             string `envconfig:"ORDERS_PUBSUB_CATALOG_TOPIC" default:"orders-catalog-events"`
	CatalogSubscription      string `envconfig:"ORDERS_PUBSUB_CATALOG_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"ORDERS_PUBSUB_NOTIFICATION_TOPIC" default:"orders-notification-events"`
	NotificationSubscription string `envconfig:"ORDERS_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"ORDERS_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"ORDERS_SENDGRID_FROM_EMAIL" default:"no-reply@orders.local"`
	FromName    string `envconfig:"ORDERS_SENDGRID_FROM_NAME" default:"Orders"`
}

// Enabled is false without an API key; mail is then only logged.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ORDERS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ORDERS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ORDERS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"ORDERS_CRON_INTERVAL" default:"1h"`
	OutboxRetentionDays int           `envconfig:"ORDERS_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}
