// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// DefaultPath is where LoadConfig looks when no -config flag is given.
	DefaultPath = "config.yaml"

	DefaultSQLitePath = "pos_activation.db"
	MemorySQLitePath  = ":memory:"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port               int           `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"` // per client IP, 0 disables
	CORSOrigins        []string      `yaml:"cors_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AuthConfig struct {
	Secret       string        `yaml:"secret"`
	CookieName   string        `yaml:"cookie_name"`
	CookieDomain string        `yaml:"cookie_domain"`
	SecureCookie bool          `yaml:"secure_cookie"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // postgres | sqlite
	URL        string `yaml:"url"`
	MaxConns   int32  `yaml:"max_conns"`
	SQLitePath string `yaml:"sqlite_path"` // ":memory:" for a throwaway database
}

type RedisConfig struct {
	URL      string `yaml:"url"` // empty disables redemption throttling
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DefaultMaxRetries applies only when max_retries is absent; 0 disables retries.
const DefaultMaxRetries = 3

type RedemptionConfig struct {
	MaxRetries        int `yaml:"max_retries"`
	AttemptsPerMinute int `yaml:"attempts_per_minute"` // per business, 0 disables
}

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Redemption RedemptionConfig `yaml:"redemption"`

	Runtime RuntimeConfig `yaml:"-"`
}

// envOverrides are the variables the hosting platform injects.
type envOverrides struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
	Port        int    `envconfig:"PORT"`
	SecretKey   string `envconfig:"SECRET_KEY"`
	RedisURL    string `envconfig:"REDIS_URL"`
}

// LoadConfig reads the YAML file at path (a missing file is fine: defaults and
// environment variables are then the whole configuration), applies environment
// overrides, fills defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	cfg := Config{Redemption: RedemptionConfig{MaxRetries: DefaultMaxRetries}}
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	applyEnv(&cfg, env)

	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, env envOverrides) {
	if env.DatabaseURL != "" {
		cfg.Database.URL = env.DatabaseURL
	}
	if env.Port > 0 {
		cfg.HTTP.Port = env.Port
	}
	if env.SecretKey != "" {
		cfg.Auth.Secret = env.SecretKey
	}
	if env.RedisURL != "" {
		cfg.Redis.URL = env.RedisURL
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 5000
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "pos_session"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 12 * time.Hour
	}
	if cfg.Auth.Secret == "" && cfg.Runtime.Dev {
		cfg.Auth.Secret = "dev-secret-change-me"
	}

	// Heroku-style URLs use the short scheme.
	if strings.HasPrefix(cfg.Database.URL, "postgresql://") {
		cfg.Database.URL = "postgres://" + strings.TrimPrefix(cfg.Database.URL, "postgresql://")
	}
	// Postgres when a URL is present, local SQLite otherwise.
	if cfg.Database.Driver == "" {
		if cfg.Database.URL != "" {
			cfg.Database.Driver = DriverPostgres
		} else {
			cfg.Database.Driver = DriverSQLite
		}
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	if cfg.Database.Driver == DriverSQLite && cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = DefaultSQLitePath
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
}

// Validate performs minimal sanity checks after defaults are applied.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret (or SECRET_KEY) is required")
	}
	if c.Redemption.MaxRetries < 0 {
		return errors.New("redemption.max_retries must not be negative")
	}
	if c.Redemption.AttemptsPerMinute < 0 {
		return errors.New("redemption.attempts_per_minute must not be negative")
	}
	return nil
}
