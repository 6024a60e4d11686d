package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/joho/godotenv"
)

const (
	ProviderStripe = "stripe"
	ProviderMock   = "mock"

	EnvProduction = "production"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"4001"`

	PaymentProvider  string        `env:"PAYMENT_PROVIDER" envDefault:"stripe"`
	StripeSecretKey  string        `env:"STRIPE_SECRET_KEY"`
	StripeAPIURL     string        `env:"STRIPE_API_URL"`
	StripeMaxRetries int64         `env:"STRIPE_MAX_RETRIES" envDefault:"1"`
	ProcessorTimeout time.Duration `env:"PROCESSOR_TIMEOUT" envDefault:"12s"`

	JWTSecret string `env:"JWT_SECRET"`

	RedisURL        string        `env:"REDIS_URL"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`

	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"40"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from a local .env file (when present) and the
// process environment, then validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, domain.ErrConfiguration(fmt.Sprintf("invalid environment: %v", err))
	}
	return normalize(&cfg)
}

// LoadFrom parses configuration from an explicit variable map.
func LoadFrom(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, domain.ErrConfiguration(fmt.Sprintf("invalid environment: %v", err))
	}
	return normalize(&cfg)
}

func normalize(cfg *Config) (*Config, error) {
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.PaymentProvider = strings.ToLower(strings.TrimSpace(cfg.PaymentProvider))
	cfg.StripeSecretKey = strings.TrimSpace(cfg.StripeSecretKey)

	origins := cfg.CORSOrigins[:0]
	for _, o := range cfg.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.CORSOrigins = origins

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that would make every billing call fail.
func (c *Config) Validate() error {
	switch c.PaymentProvider {
	case ProviderStripe:
		if c.StripeSecretKey == "" {
			return domain.ErrConfiguration("STRIPE_SECRET_KEY is required when PAYMENT_PROVIDER=stripe")
		}
	case ProviderMock:
		if c.IsProduction() {
			return domain.ErrConfiguration("PAYMENT_PROVIDER=mock is not allowed in production")
		}
	default:
		return domain.ErrConfiguration(fmt.Sprintf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider))
	}

	if c.Port <= 0 || c.Port > 65535 {
		return domain.ErrConfiguration(fmt.Sprintf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.ProcessorTimeout <= 0 {
		return domain.ErrConfiguration("PROCESSOR_TIMEOUT must be positive")
	}
	if c.StripeMaxRetries < 0 {
		return domain.ErrConfiguration("STRIPE_MAX_RETRIES must not be negative")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return domain.ErrConfiguration("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}
