package config

// EnvPrefix is empty because every field carries its fully qualified variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StorageDriverLocal = "local"
	StorageDriverGCS   = "gcs"
)

const (
	EnvAppEnv   = "COINLEDGER_APP_ENV"
	EnvPort     = "COINLEDGER_APP_PORT"
	EnvLogLevel = "COINLEDGER_LOG_LEVEL"

	EnvDBDSN  = "COINLEDGER_DB_DSN"
	EnvDBHost = "COINLEDGER_DB_HOST"
	EnvDBUser = "COINLEDGER_DB_USER"
	EnvDBName = "COINLEDGER_DB_NAME"

	EnvRedisURL  = "COINLEDGER_REDIS_URL"
	EnvUseSQLite = "COINLEDGER_USE_SQLITE"

	EnvSpendDollarRate        = "COINLEDGER_SPEND_DOLLAR_RATE"
	EnvReportsStorageDriver   = "COINLEDGER_REPORTS_STORAGE_DRIVER"
	EnvReportsRetentionDays   = "COINLEDGER_REPORTS_RETENTION_DAYS"
	EnvCORSAllowedOrigins     = "COINLEDGER_CORS_ALLOWED_ORIGINS"
	EnvGCSBucket              = "COINLEDGER_GCS_BUCKET_NAME"
	EnvPubSubLedgerTopic      = "COINLEDGER_PUBSUB_LEDGER_TOPIC"
	EnvPubSubAnalyticsSub     = "COINLEDGER_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvOutboxPublishBatchSize = "COINLEDGER_OUTBOX_PUBLISH_BATCH_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
