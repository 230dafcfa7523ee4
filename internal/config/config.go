package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Database    *DBConfig
	Service     *ServiceConfig
	Gateway     *GatewayConfig
	Credentials *CredentialsConfig
	HealthCheck *HealthCheckConfig
}

type DBConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"sqlite"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"instance-dashboard"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASS"`
	Path     string `envconfig:"DB_PATH" default:"instance-dashboard.db"`
}

type ServiceConfig struct {
	Address   string `envconfig:"SVC_ADDRESS" default:":8080"`
	LogLevel  string `envconfig:"SVC_LOG_LEVEL" default:"info"`
	StaticDir string `envconfig:"SVC_STATIC_DIR"`
}

// GatewayConfig configures calls to the external messaging API.
// BaseURL is the default used when no API URL has been stored with the credentials.
type GatewayConfig struct {
	BaseURL    string        `envconfig:"API_URL" required:"true"`
	Timeout    time.Duration `envconfig:"API_TIMEOUT" default:"30s"`
	RetryCount int           `envconfig:"API_RETRY_COUNT" default:"0"`
	RetryWait  time.Duration `envconfig:"API_RETRY_WAIT" default:"1s"`
}

type CredentialsConfig struct {
	Backend     string `envconfig:"CREDENTIALS_BACKEND" default:"db"`
	Scope       string `envconfig:"CREDENTIALS_SCOPE" default:"default"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"redis://localhost:6379"`
	RedisPrefix string `envconfig:"REDIS_PREFIX" default:"credentials"`
}

// HealthCheckConfig configures the upstream reachability monitor.
type HealthCheckConfig struct {
	Enabled                bool          `envconfig:"UPSTREAM_CHECK_ENABLED" default:"true"`
	Interval               time.Duration `envconfig:"UPSTREAM_CHECK_INTERVAL" default:"30s"`
	Timeout                time.Duration `envconfig:"UPSTREAM_CHECK_TIMEOUT" default:"5s"`
	MaxConsecutiveFailures int           `envconfig:"UPSTREAM_CHECK_MAX_FAILURES" default:"3"`
	BaseBackoffInterval    time.Duration `envconfig:"UPSTREAM_CHECK_BASE_BACKOFF" default:"30s"`
	MaxBackoffInterval     time.Duration `envconfig:"UPSTREAM_CHECK_MAX_BACKOFF" default:"5m"`
}

const (
	DBTypePostgres = "pgsql"
	DBTypeSQLite   = "sqlite"

	BackendDB    = "db"
	BackendRedis = "redis"
)

func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if cfg.Gateway.BaseURL == "" {
		return nil, fmt.Errorf("required key API_URL missing value")
	}
	if cfg.Database.Type != DBTypePostgres && cfg.Database.Type != DBTypeSQLite {
		return nil, fmt.Errorf("invalid DB_TYPE %q: must be %q or %q", cfg.Database.Type, DBTypePostgres, DBTypeSQLite)
	}
	if cfg.Credentials.Backend != BackendDB && cfg.Credentials.Backend != BackendRedis {
		return nil, fmt.Errorf("invalid CREDENTIALS_BACKEND %q: must be %q or %q", cfg.Credentials.Backend, BackendDB, BackendRedis)
	}
	if cfg.Gateway.Timeout <= 0 {
		return nil, fmt.Errorf("API_TIMEOUT must be positive")
	}
	return cfg, nil
}
