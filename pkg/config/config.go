package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "WALKRUN_APP_ENV"
)

type Config struct {
	App       AppConfig
	Redis     RedisConfig
	Datastore DatastoreConfig
	Identity  IdentityConfig
	SMTP      SMTPConfig
	AuthRate  AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WALKRUN_APP_ENV" required:"true"`
	Port         string `envconfig:"WALKRUN_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"WALKRUN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WALKRUN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"WALKRUN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WALKRUN_REDIS_ADDR"`
	Password     string        `envconfig:"WALKRUN_REDIS_PASSWORD"`
	DB           int           `envconfig:"WALKRUN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WALKRUN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WALKRUN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WALKRUN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WALKRUN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WALKRUN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// DatastoreConfig tunes the path-addressed record store built on Redis.
type DatastoreConfig struct {
	Namespace  string `envconfig:"WALKRUN_DATASTORE_NAMESPACE" default:"rtdb"`
	TxAttempts int    `envconfig:"WALKRUN_DATASTORE_TX_ATTEMPTS" default:"5"`
	ScanCount  int64  `envconfig:"WALKRUN_DATASTORE_SCAN_COUNT" default:"200"`
}

type IdentityConfig struct {
	BaseURL string        `envconfig:"WALKRUN_IDENTITY_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"WALKRUN_IDENTITY_API_KEY" required:"true"`
	Timeout time.Duration `envconfig:"WALKRUN_IDENTITY_TIMEOUT" default:"10s"`
}

type SMTPConfig struct {
	Host        string `envconfig:"WALKRUN_SMTP_HOST" required:"true"`
	Port        int    `envconfig:"WALKRUN_SMTP_PORT" default:"587"`
	Username    string `envconfig:"WALKRUN_SMTP_USERNAME"`
	Password    string `envconfig:"WALKRUN_SMTP_PASSWORD"`
	SenderName  string `envconfig:"WALKRUN_SMTP_SENDER_NAME" default:"Walk & Run"`
	SenderEmail string `envconfig:"WALKRUN_SMTP_SENDER_EMAIL" required:"true"`
}

type AuthRateLimitConfig struct {
	EmailWindow       time.Duration `envconfig:"WALKRUN_AUTH_RATE_LIMIT_EMAIL_WINDOW" default:"1m"`
	EmailIPLimit      int           `envconfig:"WALKRUN_AUTH_RATE_LIMIT_EMAIL_IP_LIMIT" default:"10"`
	EmailAddressLimit int           `envconfig:"WALKRUN_AUTH_RATE_LIMIT_EMAIL_ADDRESS_LIMIT" default:"3"`
}
