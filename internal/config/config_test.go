package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"canteen/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.True(t, decimal.RequireFromString("0.05").Equal(cfg.Order.TaxRate))
	assert.True(t, decimal.NewFromInt(20).Equal(cfg.Order.DeliveryFee))
	assert.Equal(t, int64(15), cfg.Order.DeliveryOffset)
	assert.Equal(t, int64(5), cfg.Order.CounterOffset)
	assert.Equal(t, "ORD", cfg.Order.NumberPrefix)
	assert.Equal(t, 3, cfg.Order.NumberAttempts)
	assert.Equal(t, "strict", cfg.Order.TransitionPolicy)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", ":9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ORDER_TAX_RATE", "0.18")
	t.Setenv("ORDER_TRANSITION_POLICY", "Permissive")
	t.Setenv("REQUEST_TIMEOUT", "3s")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.True(t, decimal.RequireFromString("0.18").Equal(cfg.Order.TaxRate))
	assert.Equal(t, "permissive", cfg.Order.TransitionPolicy)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CANTEEN_TEST_DOTENV=1\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CANTEEN_TEST_DOTENV") })
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1", os.Getenv("CANTEEN_TEST_DOTENV"))
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {"JWT_SECRET": ""},
		"bad driver":     {"DB_DRIVER": "mysql"},
		"bad tax":        {"ORDER_TAX_RATE": "abc"},
		"tax too high":   {"ORDER_TAX_RATE": "1.5"},
		"bad policy":     {"ORDER_TRANSITION_POLICY": "lenient"},
		"no attempts":    {"ORDER_NUMBER_ATTEMPTS": "0"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
