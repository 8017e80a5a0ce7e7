package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.1, cfg.InitialInvestment)
	assert.Equal(t, 0.15, cfg.MaxWalletExposure)
	assert.Equal(t, 50_000.0, cfg.MinLiquidityUSD)
	assert.Equal(t, 100, cfg.MinHolders)
	assert.Equal(t, 10*time.Minute, cfg.MaxTokenAge)
	assert.Equal(t, 15.0, cfg.StopLossPct)
	assert.Equal(t, 3, cfg.MaxConcurrentTrades)
	assert.Equal(t, 5*time.Minute, cfg.ErrorTimeout)
	assert.Len(t, cfg.TakeProfits, 3)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MIN_HOLDERS", "250")
	t.Setenv("MAX_DAILY_TRADES", "5")
	t.Setenv("ERROR_TIMEOUT", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.MinHolders)
	assert.Equal(t, 5, cfg.MaxDailyTrades)
	assert.Equal(t, time.Minute, cfg.ErrorTimeout)
}

func TestLoad_MalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("MIN_HOLDERS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MinHolders)
}

func TestLoad_TakeProfitLevels(t *testing.T) {
	t.Setenv("TAKE_PROFIT_LEVELS", "25:50,75:50")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.TakeProfits, 2)
	assert.Equal(t, 25.0, cfg.TakeProfits[0].GainPct)
	assert.Equal(t, 0.50, cfg.TakeProfits[0].Fraction)
	assert.Equal(t, 75.0, cfg.TakeProfits[1].GainPct)
	assert.Equal(t, 0.50, cfg.TakeProfits[1].Fraction)
}

func TestLoad_SingleRungTakeProfit(t *testing.T) {
	t.Setenv("TAKE_PROFIT_PERCENTAGE", "40")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.TakeProfits, 1)
	assert.Equal(t, 40.0, cfg.TakeProfits[0].GainPct)
	assert.Equal(t, 1.0, cfg.TakeProfits[0].Fraction)
}

func TestLoad_LadderWinsOverSingleRung(t *testing.T) {
	t.Setenv("TAKE_PROFIT_PERCENTAGE", "40")
	t.Setenv("TAKE_PROFIT_LEVELS", "20:30,50:40,100:30")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.TakeProfits, 3)
	assert.Equal(t, 20.0, cfg.TakeProfits[0].GainPct)
}

func TestLoad_MalformedTakeProfitLevels(t *testing.T) {
	t.Setenv("TAKE_PROFIT_LEVELS", "20-30,50-40")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_TierThresholds(t *testing.T) {
	t.Setenv("TIER_THRESHOLDS", "10000x:25000,1000x:250000,100x:2500000,50x:10000000")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.TierThresholds, 4)
	assert.Equal(t, 25_000.0, cfg.TierThresholds[0].MaxMcapUSD)
	assert.Equal(t, 10_000_000.0, cfg.TierThresholds[3].MaxMcapUSD)
}

func TestLoad_UnknownTierName(t *testing.T) {
	t.Setenv("TIER_THRESHOLDS", "moon:25000")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults pass", func(*Config) {}, true},
		{"zero investment", func(c *Config) { c.InitialInvestment = 0 }, false},
		{"exposure above 1", func(c *Config) { c.MaxWalletExposure = 1.5 }, false},
		{"stop loss 100%", func(c *Config) { c.StopLossPct = 100 }, false},
		{"daily loss zero", func(c *Config) { c.MaxDailyLoss = 0 }, false},
		{"tp fractions not summing to 1", func(c *Config) {
			c.TakeProfits = []TakeProfitFraction{{GainPct: 20, Fraction: 0.5}}
		}, false},
		{"unordered tier thresholds", func(c *Config) {
			c.TierThresholds[1].MaxMcapUSD = c.TierThresholds[0].MaxMcapUSD
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
