package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration. Every field maps to one env var.
type Config struct {
	// Server
	Port     int    `mapstructure:"PORT"`
	Env      string `mapstructure:"APP_ENV"` // development | production
	GinMode  string `mapstructure:"GIN_MODE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Database
	DBDriver   string `mapstructure:"DB_DRIVER"` // postgres | sqlite
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	DBPath     string `mapstructure:"DB_PATH"`

	// Redis. Empty disables the queue and the shared cache.
	RedisURL       string `mapstructure:"REDIS_URL"`
	WorkerPoolSize int    `mapstructure:"WORKER_POOL_SIZE"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	JWTRefreshHours    int    `mapstructure:"JWT_REFRESH_HOURS"`
	LoginRateLimit     string `mapstructure:"LOGIN_RATE_LIMIT"`

	// Email
	SMTPHost         string `mapstructure:"SMTP_HOST"`
	SMTPPort         int    `mapstructure:"SMTP_PORT"`
	SMTPUser         string `mapstructure:"SMTP_USER"`
	SMTPPassword     string `mapstructure:"SMTP_PASSWORD"`
	DefaultFromEmail string `mapstructure:"DEFAULT_FROM_EMAIL"`
	FrontendURL      string `mapstructure:"FRONTEND_URL"`

	// HTTP
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	// Business
	TimeZone                string        `mapstructure:"TIME_ZONE"`
	ReportsDir              string        `mapstructure:"REPORTS_DIR"`
	ShippingCost            string        `mapstructure:"SHIPPING_COST"`
	FreeShippingFrom        string        `mapstructure:"FREE_SHIPPING_FROM"`
	ReportSchedulerInterval time.Duration `mapstructure:"REPORT_SCHEDULER_INTERVAL"`
}

// Load reads configs/.env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Debug().Msg("no configs/.env file found, using environment only")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "elixir_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "elixir.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("WORKER_POOL_SIZE", 3)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION_HOURS", 24)
	v.SetDefault("JWT_REFRESH_HOURS", 24*7)
	v.SetDefault("LOGIN_RATE_LIMIT", "10-M")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("DEFAULT_FROM_EMAIL", "no-reply@elixir.com")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173,http://localhost:5174,http://localhost:5175,http://localhost:5176,http://localhost:5177,http://localhost:5178")
	v.SetDefault("TIME_ZONE", "America/Santiago")
	v.SetDefault("REPORTS_DIR", "storage/reportes")
	v.SetDefault("SHIPPING_COST", "3990")
	v.SetDefault("FREE_SHIPPING_FROM", "50000")
	v.SetDefault("REPORT_SCHEDULER_INTERVAL", "15m")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.GinMode == "release" {
			return nil, fmt.Errorf("config: JWT_SECRET is required in release mode")
		}
		cfg.JWTSecret = "default_super_secret_key"
	}

	return cfg, nil
}

// DSN builds the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBPath
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Location falls back to UTC when the zone database does not know TIME_ZONE.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Warn().Str("time_zone", c.TimeZone).Err(err).Msg("unknown time zone, using UTC")
		return time.UTC
	}
	return loc
}

// Shipping returns the flat delivery cost and the subtotal from which delivery is free.
func (c *Config) Shipping() (cost, freeFrom decimal.Decimal) {
	cost, err := decimal.NewFromString(c.ShippingCost)
	if err != nil {
		cost = decimal.NewFromInt(3990)
	}
	freeFrom, err = decimal.NewFromString(c.FreeShippingFrom)
	if err != nil {
		freeFrom = decimal.NewFromInt(50000)
	}
	return cost, freeFrom
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.GinMode == "release"
}
