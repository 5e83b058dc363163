package config

// EnvPrefix namespaces every variable read by envconfig.
const EnvPrefix = "MARKETPLACE"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "MARKETPLACE_APP_ENV"
	EnvPort     = "MARKETPLACE_APP_PORT"
	EnvLogLevel = "MARKETPLACE_LOG_LEVEL"

	EnvDBDSN  = "MARKETPLACE_DB_DSN"
	EnvDBHost = "MARKETPLACE_DB_HOST"
	EnvDBUser = "MARKETPLACE_DB_USER"
	EnvDBName = "MARKETPLACE_DB_NAME"

	EnvRedisURL = "MARKETPLACE_REDIS_URL"

	EnvJWTSecret  = "MARKETPLACE_JWT_SECRET"
	EnvJWTIssuer  = "MARKETPLACE_JWT_ISSUER"
	EnvJWTExpMins = "MARKETPLACE_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "MARKETPLACE_USE_SQLITE"

	EnvGCPProjectID            = "MARKETPLACE_GCP_PROJECT_ID"
	EnvPubSubNotificationTopic = "MARKETPLACE_PUBSUB_NOTIFICATION_TOPIC"

	EnvFreeShippingThreshold = "MARKETPLACE_PRICING_FREE_SHIPPING_THRESHOLD_CENTS"
	EnvFlatShippingFee       = "MARKETPLACE_PRICING_FLAT_SHIPPING_CENTS"
	EnvTaxRate               = "MARKETPLACE_PRICING_TAX_RATE"

	EnvCancellationScope = "MARKETPLACE_ORDERS_CANCELLATION_SCOPE"
	EnvStatsWindow       = "MARKETPLACE_ORDERS_STATS_WINDOW"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
