package main

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(nil)
	return fs
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(newFlagSet(), nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "checkout.db", cfg.DBPath)
	assert.Equal(t, "0.08", cfg.TaxRate.String())
	assert.False(t, cfg.Dev)
	assert.Empty(t, cfg.Seed)
	assert.Equal(t, 30*time.Minute, cfg.CartTTL)
}

func TestParseConfig_EnvironmentFallback(t *testing.T) {
	// GIVEN: environment overrides
	t.Setenv("CHECKOUT_PORT", "9090")
	t.Setenv("CHECKOUT_DB", ":memory:")
	t.Setenv("CHECKOUT_TAX_RATE", "0.2")
	t.Setenv("CHECKOUT_LOG_DEV", "true")
	t.Setenv("CHECKOUT_SEED", "grocery")

	// WHEN: no flags are passed
	cfg, err := parseConfig(newFlagSet(), nil)
	require.NoError(t, err)

	// THEN: the environment wins over defaults
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, "0.2", cfg.TaxRate.String())
	assert.True(t, cfg.Dev)
	assert.Equal(t, "grocery", cfg.Seed)
}

func TestParseConfig_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("CHECKOUT_PORT", "9090")

	cfg, err := parseConfig(newFlagSet(), []string{"-port=3000", "-cart-ttl=0"})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Zero(t, cfg.CartTTL)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"bad port env", map[string]string{"CHECKOUT_PORT": "http"}, nil},
		{"bad tax rate", nil, []string{"-tax-rate=lots"}},
		{"bad dev env", map[string]string{"CHECKOUT_LOG_DEV": "maybe"}, nil},
		{"bad ttl env", map[string]string{"CHECKOUT_CART_TTL": "soon"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := parseConfig(newFlagSet(), tt.args)
			assert.Error(t, err)
		})
	}
}
