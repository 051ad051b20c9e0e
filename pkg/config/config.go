package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ecopontos"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Ledger       LedgerConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"ECOPONTOS_APP_ENV" required:"true"`
	Port         string `envconfig:"ECOPONTOS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ECOPONTOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ECOPONTOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"ECOPONTOS_DB_DSN"`

	Host     string `envconfig:"ECOPONTOS_DB_HOST"`
	Port     int    `envconfig:"ECOPONTOS_DB_PORT" default:"5432"`
	User     string `envconfig:"ECOPONTOS_DB_USER"`
	Password string `envconfig:"ECOPONTOS_DB_PASSWORD"`
	Name     string `envconfig:"ECOPONTOS_DB_NAME"`
	SSLMode  string `envconfig:"ECOPONTOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ECOPONTOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ECOPONTOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ECOPONTOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ECOPONTOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either ECOPONTOS_DB_DSN or host/user/name must be set")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"ECOPONTOS_REDIS_URL"`
	Address      string        `envconfig:"ECOPONTOS_REDIS_ADDR"`
	Password     string        `envconfig:"ECOPONTOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ECOPONTOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ECOPONTOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ECOPONTOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ECOPONTOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ECOPONTOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ECOPONTOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ECOPONTOS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ECOPONTOS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ECOPONTOS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type LedgerConfig struct {
	// MaxTxRetries bounds how many times a ledger mutation retries after losing a
	// serialization race before the failure is surfaced.
	MaxTxRetries int `envconfig:"ECOPONTOS_LEDGER_MAX_TX_RETRIES" default:"3"`
	// StatsSampleSize caps how many recent recycling transactions feed the stats
	// aggregation.
	StatsSampleSize int `envconfig:"ECOPONTOS_LEDGER_STATS_SAMPLE_SIZE" default:"100"`
	// PointsTolerance is the maximum absolute difference accepted between a
	// client-computed total and the server-side recomputation.
	PointsTolerance string `envconfig:"ECOPONTOS_LEDGER_POINTS_TOLERANCE" default:"0.01"`
	// IdempotencyTTL controls how long replayed accrual/redemption responses live.
	IdempotencyTTL time.Duration `envconfig:"ECOPONTOS_LEDGER_IDEMPOTENCY_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ECOPONTOS_AUTO_MIGRATE" default:"false"`
}
