package config

// EnvPrefix is passed to envconfig.Process; individual fields carry the
// full variable name so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "NORDICLOOP_APP_ENV"
	EnvPort   = "NORDICLOOP_APP_PORT"

	EnvDBDSN  = "NORDICLOOP_DB_DSN"
	EnvDBHost = "NORDICLOOP_DB_HOST"
	EnvDBUser = "NORDICLOOP_DB_USER"
	EnvDBName = "NORDICLOOP_DB_NAME"

	EnvRedisURL = "NORDICLOOP_REDIS_URL"

	EnvGCPProjectID     = "NORDICLOOP_GCP_PROJECT_ID"
	EnvPubSubTopic      = "NORDICLOOP_PUBSUB_SETTLEMENT_TOPIC"
	EnvPubSubSub        = "NORDICLOOP_PUBSUB_SETTLEMENT_SUBSCRIPTION"
	EnvStripeAPIKey     = "NORDICLOOP_STRIPE_API_KEY"
	EnvStripeWebhookKey = "NORDICLOOP_STRIPE_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
