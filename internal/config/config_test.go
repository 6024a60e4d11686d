package config

import (
	"testing"
	"time"

	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"STRIPE_SECRET_KEY": "sk_test_123"})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 4001, cfg.Port)
	assert.Equal(t, ProviderStripe, cfg.PaymentProvider)
	assert.Equal(t, int64(1), cfg.StripeMaxRetries)
	assert.Equal(t, 12*time.Second, cfg.ProcessorTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PAYMENT_PROVIDER":  "MOCK",
		"PORT":              "8080",
		"PROCESSOR_TIMEOUT": "3s",
		"CORS_ORIGINS":      "https://trash.example.com, ,https://admin.trash.example.com",
		"RATE_LIMIT_RPS":    "2.5",
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderMock, cfg.PaymentProvider)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.ProcessorTimeout)
	assert.Equal(t, []string{"https://trash.example.com", "https://admin.trash.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"missing stripe key", map[string]string{}},
		{"blank stripe key", map[string]string{"STRIPE_SECRET_KEY": "   "}},
		{"mock in production", map[string]string{"PAYMENT_PROVIDER": "mock", "APP_ENV": "production"}},
		{"unknown provider", map[string]string{"PAYMENT_PROVIDER": "paypal"}},
		{"bad port", map[string]string{"PAYMENT_PROVIDER": "mock", "PORT": "0"}},
		{"unparseable duration", map[string]string{"PAYMENT_PROVIDER": "mock", "PROCESSOR_TIMEOUT": "soon"}},
		{"zero timeout", map[string]string{"PAYMENT_PROVIDER": "mock", "PROCESSOR_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			require.Error(t, err)
			assert.True(t, domain.IsConfiguration(err))
		})
	}
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", "mock")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}
