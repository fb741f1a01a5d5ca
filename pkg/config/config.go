package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Settlement   SettlementConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Settlement.Rate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SWAPMEET_APP_ENV" required:"true"`
	Port         string `envconfig:"SWAPMEET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWAPMEET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWAPMEET_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SWAPMEET_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SWAPMEET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SWAPMEET_DB_DSN"`
	Driver string `envconfig:"SWAPMEET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWAPMEET_DB_HOST"`
	LegacyPort     int    `envconfig:"SWAPMEET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWAPMEET_DB_USER"`
	LegacyPassword string `envconfig:"SWAPMEET_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWAPMEET_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWAPMEET_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"SWAPMEET_SQLITE_PATH" default:"swapmeet.db"`

	MaxOpenConns    int           `envconfig:"SWAPMEET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWAPMEET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWAPMEET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWAPMEET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"SWAPMEET_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SWAPMEET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SWAPMEET_REDIS_ADDR"`
	Password     string        `envconfig:"SWAPMEET_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWAPMEET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWAPMEET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWAPMEET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWAPMEET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWAPMEET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWAPMEET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only covers verification; tokens are minted by the identity service.
type JWTConfig struct {
	Secret string `envconfig:"SWAPMEET_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SWAPMEET_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SWAPMEET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SWAPMEET_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"SWAPMEET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"SWAPMEET_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SWAPMEET_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SWAPMEET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SWAPMEET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"SWAPMEET_PUBSUB_NOTIFICATION_TOPIC" default:"sm-notification-events"`
	OrdersTopic       string `envconfig:"SWAPMEET_PUBSUB_ORDERS_TOPIC" default:"sm-order-events"`
	ListingsTopic     string `envconfig:"SWAPMEET_PUBSUB_LISTINGS_TOPIC" default:"sm-listing-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SWAPMEET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SWAPMEET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SWAPMEET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"SWAPMEET_STRIPE_API_KEY"`
	Secret     string `envconfig:"SWAPMEET_STRIPE_SECRET"`
	Env        string `envconfig:"SWAPMEET_STRIPE_ENV" default:"test"`
	SuccessURL string `envconfig:"SWAPMEET_STRIPE_SUCCESS_URL" default:"http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelURL  string `envconfig:"SWAPMEET_STRIPE_CANCEL_URL" default:"http://localhost:3000/cart"`
	Currency   string `envconfig:"SWAPMEET_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SettlementConfig struct {
	TaxRate       string        `envconfig:"SWAPMEET_SETTLEMENT_TAX_RATE" default:"0.08"`
	SweepMinAge   time.Duration `envconfig:"SWAPMEET_SETTLEMENT_SWEEP_MIN_AGE" default:"2m"`
	SweepMaxAge   time.Duration `envconfig:"SWAPMEET_SETTLEMENT_SWEEP_MAX_AGE" default:"72h"`
	SweepBatch    int           `envconfig:"SWAPMEET_SETTLEMENT_SWEEP_BATCH" default:"100"`
}

// Rate parses the configured tax rate; it must be within [0, 1).
func (s SettlementConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(s.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", EnvSettlementTaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%s must be within [0, 1)", EnvSettlementTaxRate)
	}
	return rate, nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SWAPMEET_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"SWAPMEET_CRON_LOCK_TTL" default:"10m"`

	OutboxRetention       time.Duration `envconfig:"SWAPMEET_CRON_OUTBOX_RETENTION" default:"720h"`
	NotificationRetention time.Duration `envconfig:"SWAPMEET_CRON_NOTIFICATION_RETENTION" default:"2160h"`
}

// RateLimitConfig throttles offer placement per bidder.
type RateLimitConfig struct {
	OfferLimit  int           `envconfig:"SWAPMEET_RATE_LIMIT_OFFERS" default:"20"`
	OfferWindow time.Duration `envconfig:"SWAPMEET_RATE_LIMIT_OFFERS_WINDOW" default:"1m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
