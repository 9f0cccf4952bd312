package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Database
	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"modqueue"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"modqueue.db"`

	// JWT issued by the platform's identity service
	JWTSecret string `env:"JWT_SECRET"`

	// Staff
	HeadModUserIDs []string `env:"HEAD_MOD_USER_IDS" envSeparator:","`
	AdminUserIDs   []string `env:"ADMIN_USER_IDS" envSeparator:","`

	// Workflow
	TemplatesPath      string        `env:"TEMPLATES_PATH" envDefault:"templates.yaml"`
	MinDetailsLength   int           `env:"MIN_DETAILS_LENGTH" envDefault:"10"`
	ClaimLease         time.Duration `env:"CLAIM_LEASE" envDefault:"0s"`
	LeaseSweepInterval time.Duration `env:"LEASE_SWEEP_INTERVAL" envDefault:"1m"`
	LogRetention       time.Duration `env:"LOG_RETENTION" envDefault:"720h"`

	// Server
	Port        string `env:"PORT" envDefault:"8080"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`

	// Observability
	SentryDSN    string `env:"SENTRY_DSN"`
	AppEnv       string `env:"APP_ENV" envDefault:"development"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	switch c.DBDriver {
	case "postgres":
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD environment variable is required")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.ClaimLease < 0 {
		return fmt.Errorf("CLAIM_LEASE must not be negative")
	}
	return nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}
