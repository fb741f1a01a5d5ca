package config

const (
	EnvPrefix = "SWAPMEET"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "SWAPMEET_APP_ENV"
	EnvPort     = "SWAPMEET_APP_PORT"
	EnvLogLevel = "SWAPMEET_LOG_LEVEL"

	EnvDBDSN  = "SWAPMEET_DB_DSN"
	EnvDBHost = "SWAPMEET_DB_HOST"
	EnvDBUser = "SWAPMEET_DB_USER"
	EnvDBName = "SWAPMEET_DB_NAME"

	EnvUseSQLite = "SWAPMEET_USE_SQLITE"

	EnvRedisURL  = "SWAPMEET_REDIS_URL"
	EnvJWTSecret = "SWAPMEET_JWT_SECRET"
	EnvJWTIssuer = "SWAPMEET_JWT_ISSUER"

	EnvSettlementTaxRate = "SWAPMEET_SETTLEMENT_TAX_RATE"
	EnvStripeCurrency    = "SWAPMEET_STRIPE_CURRENCY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
