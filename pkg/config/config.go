package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Pricing      PricingConfig
	Orders       OrdersConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	} else if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c Config) Validate() error {
	var err error
	err = multierr.Append(err, c.Pricing.validate())
	err = multierr.Append(err, c.Orders.validate())
	if c.FeatureFlags.UseSQLite && strings.TrimSpace(c.DB.SQLitePath) == "" {
		err = multierr.Append(err, fmt.Errorf("%s requires a sqlite path", EnvUseSQLite))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETPLACE_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETPLACE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETPLACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETPLACE_LOG_WARN_STACK" default:"false"`
	// ShutdownTimeout bounds how long in-flight requests may drain on SIGTERM.
	ShutdownTimeout time.Duration `envconfig:"MARKETPLACE_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"MARKETPLACE_DB_DSN"`
	Driver     string `envconfig:"MARKETPLACE_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"MARKETPLACE_DB_SQLITE_PATH" default:"marketplace.db"`

	LegacyHost     string `envconfig:"MARKETPLACE_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETPLACE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETPLACE_DB_USER"`
	LegacyPassword string `envconfig:"MARKETPLACE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETPLACE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETPLACE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETPLACE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETPLACE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETPLACE_REDIS_URL"`
	Address      string        `envconfig:"MARKETPLACE_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETPLACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETPLACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETPLACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETPLACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETPLACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"MARKETPLACE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MARKETPLACE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MARKETPLACE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MARKETPLACE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MARKETPLACE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MARKETPLACE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"MARKETPLACE_PUBSUB_NOTIFICATION_TOPIC" default:"marketplace-order-notifications"`
}

// PricingConfig holds the order totals policy. Amounts are in cents.
type PricingConfig struct {
	FreeShippingThresholdCents int64  `envconfig:"MARKETPLACE_PRICING_FREE_SHIPPING_THRESHOLD_CENTS" default:"5000"`
	FlatShippingCents          int64  `envconfig:"MARKETPLACE_PRICING_FLAT_SHIPPING_CENTS" default:"1000"`
	TaxRate                    string `envconfig:"MARKETPLACE_PRICING_TAX_RATE" default:"0.10"`
}

// TaxRateDecimal parses the configured tax rate.
func (p PricingConfig) TaxRateDecimal() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", EnvTaxRate, err)
	}
	return rate, nil
}

func (p PricingConfig) validate() error {
	var err error
	if p.FreeShippingThresholdCents < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvFreeShippingThreshold))
	}
	if p.FlatShippingCents < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvFlatShippingFee))
	}
	rate, rateErr := p.TaxRateDecimal()
	if rateErr != nil {
		return multierr.Append(err, rateErr)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		err = multierr.Append(err, fmt.Errorf("%s must be within [0, 1]", EnvTaxRate))
	}
	return err
}

type OrdersConfig struct {
	// CancellationScope is "whole_order" or "seller_items".
	CancellationScope   string        `envconfig:"MARKETPLACE_ORDERS_CANCELLATION_SCOPE" default:"whole_order"`
	StatsWindow         time.Duration `envconfig:"MARKETPLACE_ORDERS_STATS_WINDOW" default:"720h"`
	NotificationTimeout time.Duration `envconfig:"MARKETPLACE_ORDERS_NOTIFICATION_TIMEOUT" default:"5s"`
}

// Scope returns the parsed cancellation scope, defaulting to whole-order restoration.
func (o OrdersConfig) Scope() enums.CancellationScope {
	scope, err := enums.ParseCancellationScope(strings.TrimSpace(o.CancellationScope))
	if err != nil {
		return enums.CancellationScopeWholeOrder
	}
	return scope
}

func (o OrdersConfig) validate() error {
	var err error
	if _, scopeErr := enums.ParseCancellationScope(strings.TrimSpace(o.CancellationScope)); scopeErr != nil {
		err = multierr.Append(err, fmt.Errorf("%s: %w", EnvCancellationScope, scopeErr))
	}
	if o.StatsWindow <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvStatsWindow))
	}
	return err
}

type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"MARKETPLACE_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int64         `envconfig:"MARKETPLACE_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
