package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"

	"github.com/shopbridge/shopbridge-backend/pkg/enums"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Purchasing   PurchasingConfig
	Housekeeping HousekeepingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	err := multierr.Combine(
		cfg.DB.ensureDSN(),
		cfg.Purchasing.validate(),
		cfg.Outbox.validate(),
		cfg.Housekeeping.validate(),
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPBRIDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPBRIDGE_LOG_WARN_STACK" default:"false"`
	// CORSAllowedOrigins is a comma separated list; empty allows any origin.
	CORSAllowedOrigins []string `envconfig:"SHOPBRIDGE_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOPBRIDGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPBRIDGE_DB_DSN"`
	Driver string `envconfig:"SHOPBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"SHOPBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// Bounds applied to every write transaction; a wait past either limit
	// surfaces as a contention error.
	LockTimeout      time.Duration `envconfig:"SHOPBRIDGE_DB_LOCK_TIMEOUT" default:"5s"`
	StatementTimeout time.Duration `envconfig:"SHOPBRIDGE_DB_STATEMENT_TIMEOUT" default:"30s"`

	SQLitePath string `envconfig:"SHOPBRIDGE_SQLITE_PATH" default:"shopbridge.db"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPBRIDGE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPBRIDGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOPBRIDGE_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOPBRIDGE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SHOPBRIDGE_GCP_PROJECT_ID"`
	// CredentialsFile is optional; application default credentials apply when empty.
	CredentialsFile string `envconfig:"SHOPBRIDGE_GCP_CREDENTIALS_FILE"`
}

type PubSubConfig struct {
	PurchasingTopic string `envconfig:"SHOPBRIDGE_PUBSUB_PURCHASING_TOPIC" default:"shopbridge-purchasing-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SHOPBRIDGE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SHOPBRIDGE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SHOPBRIDGE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) validate() error {
	var err error
	if o.BatchSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxBatchSize))
	}
	if o.PollIntervalMS <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxPollMS))
	}
	if o.MaxAttempts <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxMaxAttempts))
	}
	return err
}

type HousekeepingConfig struct {
	Interval        time.Duration `envconfig:"SHOPBRIDGE_HOUSEKEEPING_INTERVAL" default:"1h"`
	OutboxRetention time.Duration `envconfig:"SHOPBRIDGE_OUTBOX_RETENTION" default:"720h"`
}

func (h HousekeepingConfig) validate() error {
	var err error
	if h.Interval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvHousekeepingInterval))
	}
	if h.OutboxRetention <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxRetention))
	}
	return err
}

type PurchasingConfig struct {
	TransferPolicy    string        `envconfig:"SHOPBRIDGE_PURCHASING_TRANSFER_POLICY" default:"strict"`
	ReferenceAttempts int           `envconfig:"SHOPBRIDGE_PURCHASING_REFERENCE_ATTEMPTS" default:"5"`
	IdempotencyTTL    time.Duration `envconfig:"SHOPBRIDGE_PURCHASING_IDEMPOTENCY_TTL" default:"24h"`
}

// Policy returns the parsed over-transfer policy.
func (p PurchasingConfig) Policy() enums.TransferPolicy {
	policy, err := enums.ParseTransferPolicy(strings.ToLower(strings.TrimSpace(p.TransferPolicy)))
	if err != nil {
		return enums.TransferPolicyStrict
	}
	return policy
}

func (p PurchasingConfig) validate() error {
	var err error
	if _, perr := enums.ParseTransferPolicy(strings.ToLower(strings.TrimSpace(p.TransferPolicy))); perr != nil {
		err = multierr.Append(err, fmt.Errorf("%s: %w", EnvPurchasingTransferPolicy, perr))
	}
	if p.ReferenceAttempts <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvPurchasingReferenceAttempts))
	}
	return err
}

// IsSQLite reports whether the local single-file driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.IsSQLite() {
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
