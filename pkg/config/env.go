package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                = "SHOPBRIDGE_APP_ENV"
	EnvPort                  = "SHOPBRIDGE_APP_PORT"
	EnvDBDSN                 = "SHOPBRIDGE_DB_DSN"
	EnvDBDriver              = "SHOPBRIDGE_DB_DRIVER"
	EnvDBHost                = "SHOPBRIDGE_DB_HOST"
	EnvDBUser                = "SHOPBRIDGE_DB_USER"
	EnvDBName                = "SHOPBRIDGE_DB_NAME"
	EnvDBLockTimeout         = "SHOPBRIDGE_DB_LOCK_TIMEOUT"
	EnvRedisURL              = "SHOPBRIDGE_REDIS_URL"
	EnvJWTSecret             = "SHOPBRIDGE_JWT_SECRET"
	EnvJWTIssuer             = "SHOPBRIDGE_JWT_ISSUER"
	EnvJWTExpMins            = "SHOPBRIDGE_JWT_EXPIRATION_MINUTES"
	EnvPubSubPurchasingTopic = "SHOPBRIDGE_PUBSUB_PURCHASING_TOPIC"

	EnvOutboxBatchSize      = "SHOPBRIDGE_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPollMS         = "SHOPBRIDGE_OUTBOX_PUBLISH_POLL_MS"
	EnvOutboxMaxAttempts    = "SHOPBRIDGE_OUTBOX_MAX_ATTEMPTS"
	EnvHousekeepingInterval = "SHOPBRIDGE_HOUSEKEEPING_INTERVAL"
	EnvOutboxRetention      = "SHOPBRIDGE_OUTBOX_RETENTION"

	EnvPurchasingTransferPolicy    = "SHOPBRIDGE_PURCHASING_TRANSFER_POLICY"
	EnvPurchasingReferenceAttempts = "SHOPBRIDGE_PURCHASING_REFERENCE_ATTEMPTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
