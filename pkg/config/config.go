package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "BANANABILL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BANANABILL_DB_DSN"
	EnvDBHost = "BANANABILL_DB_HOST"
	EnvDBUser = "BANANABILL_DB_USER"
	EnvDBName = "BANANABILL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Billing      BillingConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Reminder     ReminderConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Billing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BANANABILL_APP_ENV" required:"true"`
	Port         string `envconfig:"BANANABILL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BANANABILL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BANANABILL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BANANABILL_DB_DSN"`
	Driver string `envconfig:"BANANABILL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BANANABILL_DB_HOST"`
	LegacyPort     int    `envconfig:"BANANABILL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BANANABILL_DB_USER"`
	LegacyPassword string `envconfig:"BANANABILL_DB_PASSWORD"`
	LegacyName     string `envconfig:"BANANABILL_DB_NAME"`
	LegacySSLMode  string `envconfig:"BANANABILL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BANANABILL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BANANABILL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BANANABILL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BANANABILL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BANANABILL_REDIS_URL"`
	Address      string        `envconfig:"BANANABILL_REDIS_ADDR"`
	Password     string        `envconfig:"BANANABILL_REDIS_PASSWORD"`
	DB           int           `envconfig:"BANANABILL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BANANABILL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BANANABILL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BANANABILL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BANANABILL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BANANABILL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BANANABILL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BANANABILL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BANANABILL_JWT_EXPIRATION_MINUTES" default:"60"`
}

// BillingConfig carries the domain constants of the weighment formula.
// Defaults match the trading house rules: one kilo per box, 7% danda,
// two-decimal half-up rounding, 99999 bills per month.
type BillingConfig struct {
	BoxWeightKg      decimal.Decimal `envconfig:"BANANABILL_BILLING_BOX_WEIGHT_KG" default:"1.0"`
	DandaRate        decimal.Decimal `envconfig:"BANANABILL_BILLING_DANDA_RATE" default:"0.07"`
	WeightScale      int32           `envconfig:"BANANABILL_BILLING_WEIGHT_SCALE" default:"2"`
	MoneyScale       int32           `envconfig:"BANANABILL_BILLING_MONEY_SCALE" default:"2"`
	MaxBillsPerMonth int64           `envconfig:"BANANABILL_BILLING_MAX_BILLS_PER_MONTH" default:"99999"`
	TrackOverpayment bool            `envconfig:"BANANABILL_BILLING_TRACK_OVERPAYMENT" default:"true"`
	DefaultPageSize  int             `envconfig:"BANANABILL_BILLING_DEFAULT_PAGE_SIZE" default:"100"`
}

func (b BillingConfig) validate() error {
	if b.BoxWeightKg.IsNegative() {
		return fmt.Errorf("billing box weight must not be negative")
	}
	if b.DandaRate.IsNegative() {
		return fmt.Errorf("billing danda rate must not be negative")
	}
	if b.MaxBillsPerMonth <= 0 {
		return fmt.Errorf("billing max bills per month must be positive")
	}
	return nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BANANABILL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BANANABILL_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BANANABILL_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"BANANABILL_PUBSUB_DOMAIN_TOPIC" default:"bananabill-domain-events"`
	DomainSubscription string `envconfig:"BANANABILL_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BANANABILL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BANANABILL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BANANABILL_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type ReminderConfig struct {
	LockTTL        time.Duration `envconfig:"BANANABILL_REMINDER_LOCK_TTL" default:"23h"`
	RepeatInterval time.Duration `envconfig:"BANANABILL_REMINDER_REPEAT_INTERVAL" default:"72h"`
	PollInterval   time.Duration `envconfig:"BANANABILL_REMINDER_POLL_INTERVAL" default:"15m"`
	BatchLimit     int           `envconfig:"BANANABILL_REMINDER_BATCH_LIMIT" default:"500"`
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
