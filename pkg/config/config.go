package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Stripe   StripeConfig
	Payout   PayoutConfig
	Webhook  WebhookConfig
	Outbox   OutboxConfig
	Eventing EventingConfig
	BigQuery BigQueryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NORDICLOOP_APP_ENV" required:"true"`
	Port         string `envconfig:"NORDICLOOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NORDICLOOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NORDICLOOP_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"NORDICLOOP_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NORDICLOOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NORDICLOOP_DB_DSN"`
	Driver string `envconfig:"NORDICLOOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NORDICLOOP_DB_HOST"`
	LegacyPort     int    `envconfig:"NORDICLOOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NORDICLOOP_DB_USER"`
	LegacyPassword string `envconfig:"NORDICLOOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"NORDICLOOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"NORDICLOOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NORDICLOOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NORDICLOOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NORDICLOOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NORDICLOOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NORDICLOOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NORDICLOOP_REDIS_ADDR"`
	Password     string        `envconfig:"NORDICLOOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"NORDICLOOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NORDICLOOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NORDICLOOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NORDICLOOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NORDICLOOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NORDICLOOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"NORDICLOOP_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"NORDICLOOP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"NORDICLOOP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic        string `envconfig:"NORDICLOOP_PUBSUB_SETTLEMENT_TOPIC" required:"true"`
	SettlementSubscription string `envconfig:"NORDICLOOP_PUBSUB_SETTLEMENT_SUBSCRIPTION" required:"true"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"NORDICLOOP_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"NORDICLOOP_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"NORDICLOOP_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PayoutConfig struct {
	HoldDays            int           `envconfig:"NORDICLOOP_PAYOUT_HOLD_DAYS" default:"7"`
	BatchSize           int           `envconfig:"NORDICLOOP_PAYOUT_BATCH_SIZE" default:"100"`
	MaxFundingAttempts  int           `envconfig:"NORDICLOOP_PAYOUT_MAX_FUNDING_ATTEMPTS" default:"3"`
	FundingRetryBackoff time.Duration `envconfig:"NORDICLOOP_PAYOUT_FUNDING_RETRY_BACKOFF" default:"48h"`
	RunInterval         time.Duration `envconfig:"NORDICLOOP_PAYOUT_RUN_INTERVAL" default:"1h"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"NORDICLOOP_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	ToleranceSecs  int           `envconfig:"NORDICLOOP_WEBHOOK_TOLERANCE_SECS" default:"300"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"NORDICLOOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"NORDICLOOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"NORDICLOOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"NORDICLOOP_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type BigQueryConfig struct {
	Dataset               string `envconfig:"NORDICLOOP_BIGQUERY_DATASET" default:"nordicloop"`
	SettlementEventsTable string `envconfig:"NORDICLOOP_BIGQUERY_SETTLEMENT_TABLE" default:"settlement_events"`
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
