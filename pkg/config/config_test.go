package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatflowers/dukabill/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("APP_CONFIG_NAME", "does-not-exist")

	c, err := New()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, c.Env)
	assert.Equal(t, 8888, c.Server.Port)
	assert.Empty(t, c.Database.DSN)
	assert.Equal(t, time.Hour, c.Sweeper.Interval)
	assert.Zero(t, c.Stats.CacheTTL)

	monthly := c.GetPlan(types.PlanTypeMonthly)
	require.NotNil(t, monthly)
	assert.Equal(t, 30, monthly.DurationDays)
	require.NotNil(t, monthly.PriceIn(types.CurrencyKSH))
	assert.Equal(t, int64(2000), monthly.PriceIn(types.CurrencyKSH).Amount)
	assert.Equal(t, int64(10), monthly.PriceIn(types.CurrencyUSD).Amount)

	yearly := c.GetPlan(types.PlanTypeYearly)
	require.NotNil(t, yearly)
	assert.Equal(t, 365, yearly.DurationDays)
	assert.Equal(t, int64(20000), yearly.PriceIn(types.CurrencyKSH).Amount)
	assert.Equal(t, int64(100), yearly.PriceIn(types.CurrencyUSD).Amount)

	assert.Equal(t, 30, c.GetExtension(types.ExtensionKindOneMonth).DurationDays)
	assert.Equal(t, 60, c.GetExtension(types.ExtensionKindTwoMonths).DurationDays)
	assert.Nil(t, c.GetExtension("3-months"))
}

func TestNew_EnvOverride(t *testing.T) {
	t.Setenv("APP_CONFIG_NAME", "does-not-exist")
	t.Setenv("APP_SERVER_PORT", "9999")
	t.Setenv("APP_STATS_USD_TO_KSH_RATE", "150")

	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9999, c.Server.Port)
	assert.Equal(t, 150.0, c.Stats.USDToKSHRate)
}

func TestNew_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	tests := []struct {
		name    string
		file    string
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "valid",
			file: write("good.yaml", "server:\n  port: 7070\nstats:\n  cache_ttl: 15s\n"),
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 7070, c.Server.Port)
				assert.Equal(t, 15*time.Second, c.Stats.CacheTTL)
				assert.NotNil(t, c.GetPlan(types.PlanTypeMonthly))
			},
		},
		{name: "malformed", file: write("bad.yaml", "server:\n  port: [7070\n"), wantErr: true},
		{name: "missing explicit file", file: filepath.Join(dir, "nope.yaml"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_CONFIG_FILE", tt.file)
			c, err := New()
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}
