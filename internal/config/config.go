package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	ServerPort int    `envconfig:"PORT" default:"8080"`
	AppEnv     string `envconfig:"APP_ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty  bool   `envconfig:"LOG_PRETTY" default:"true"`

	// DatabasePath is used for both tables unless a per-table path overrides it.
	DatabasePath         string `envconfig:"DATABASE_PATH" default:"./hospital.db"`
	UsersDatabasePath    string `envconfig:"USERS_DATABASE_PATH"`
	PatientsDatabasePath string `envconfig:"PATIENTS_DATABASE_PATH"`
	DBMaxOpenConns       int    `envconfig:"DB_MAX_OPEN_CONNS" default:"8"`

	SessionBackend string        `envconfig:"SESSION_BACKEND" default:"cookie"`
	SessionSecret  string        `envconfig:"SESSION_SECRET"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	BcryptCost int `envconfig:"BCRYPT_COST" default:"10"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	LoginRatePerSecond float64 `envconfig:"LOGIN_RATE_PER_SECOND" default:"1"`
	LoginRateBurst     int     `envconfig:"LOGIN_RATE_BURST" default:"5"`

	// CensusSchedule is a standard cron expression; empty disables the job.
	CensusSchedule string `envconfig:"CENSUS_SCHEDULE"`
}

// Session backends understood by SESSION_BACKEND.
const (
	SessionBackendCookie = "cookie"
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsersDSN returns the database file backing the users table.
func (c *Config) UsersDSN() string {
	if c.UsersDatabasePath != "" {
		return c.UsersDatabasePath
	}
	return c.DatabasePath
}

// PatientsDSN returns the database file backing the patients table.
func (c *Config) PatientsDSN() string {
	if c.PatientsDatabasePath != "" {
		return c.PatientsDatabasePath
	}
	return c.DatabasePath
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid PORT %d", c.ServerPort)
	}
	switch c.SessionBackend {
	case SessionBackendCookie:
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required for the cookie session backend")
		}
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.DBMaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive")
	}
	if c.LoginRatePerSecond <= 0 || c.LoginRateBurst <= 0 {
		return fmt.Errorf("LOGIN_RATE_PER_SECOND and LOGIN_RATE_BURST must be positive")
	}
	return nil
}
