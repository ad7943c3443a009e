package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Ledger       LedgerConfig
	Reports      ReportsConfig
	CORS         CORSConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Reports.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COINLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"COINLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COINLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COINLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COINLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COINLEDGER_DB_DSN"`
	Driver string `envconfig:"COINLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COINLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"COINLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COINLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"COINLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"COINLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"COINLEDGER_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"COINLEDGER_SQLITE_PATH" default:"coinledger.db"`

	MaxOpenConns    int           `envconfig:"COINLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COINLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COINLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COINLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COINLEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COINLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"COINLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"COINLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COINLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COINLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COINLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COINLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COINLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COINLEDGER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COINLEDGER_AUTO_MIGRATE" default:"false"`
}

// LedgerConfig tunes the balance mutator.
type LedgerConfig struct {
	SpendDollarRate string `envconfig:"COINLEDGER_SPEND_DOLLAR_RATE" default:"0.04"`
	MaxCASRetries   int    `envconfig:"COINLEDGER_MAX_CAS_RETRIES" default:"5"`
}

type ReportsConfig struct {
	Brand           string        `envconfig:"COINLEDGER_REPORTS_BRAND" default:"Coin Ledger"`
	StorageDriver   string        `envconfig:"COINLEDGER_REPORTS_STORAGE_DRIVER" default:"local"`
	LocalRoot       string        `envconfig:"COINLEDGER_REPORTS_LOCAL_ROOT" default:"public/reports"`
	PublicBaseURL   string        `envconfig:"COINLEDGER_REPORTS_PUBLIC_BASE_URL" default:"/reports"`
	RetentionDays   int           `envconfig:"COINLEDGER_REPORTS_RETENTION_DAYS" default:"30"`
	RateLimitWindow time.Duration `envconfig:"COINLEDGER_REPORTS_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitUser   int           `envconfig:"COINLEDGER_REPORTS_RATE_LIMIT_USER" default:"5"`
	RateLimitIP     int           `envconfig:"COINLEDGER_REPORTS_RATE_LIMIT_IP" default:"30"`
}

// Retention returns how long generated reports are kept before the cron worker purges them.
func (r ReportsConfig) Retention() time.Duration {
	if r.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(r.RetentionDays) * 24 * time.Hour
}

func (r ReportsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(r.StorageDriver)) {
	case StorageDriverLocal, StorageDriverGCS:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvReportsStorageDriver, StorageDriverLocal, StorageDriverGCS)
	}
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"COINLEDGER_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"COINLEDGER_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COINLEDGER_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"COINLEDGER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COINLEDGER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"COINLEDGER_GCS_BUCKET_NAME"`
	Prefix     string `envconfig:"COINLEDGER_GCS_PREFIX" default:"reports"`
}

type PubSubConfig struct {
	LedgerTopic           string `envconfig:"COINLEDGER_PUBSUB_LEDGER_TOPIC" default:"coin-ledger-events"`
	ReportsTopic          string `envconfig:"COINLEDGER_PUBSUB_REPORTS_TOPIC" default:"coin-report-events"`
	AnalyticsSubscription string `envconfig:"COINLEDGER_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"coin-ledger-analytics"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"COINLEDGER_BIGQUERY_DATASET" default:"coinledger"`
	LedgerEventsTable string `envconfig:"COINLEDGER_BIGQUERY_LEDGER_TABLE" default:"coin_ledger_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COINLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COINLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COINLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"COINLEDGER_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
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
