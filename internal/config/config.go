// Package config loads the flat trading option set from the environment.
// Every option has a default taken from the reference deployment; flags in
// cmd/trader may override individual values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"memetrader/internal/domain"
)

// TakeProfitFraction is one configured take-profit rung: sell Fraction of
// the original entry size once price reaches entry * (1 + GainPct/100).
type TakeProfitFraction struct {
	GainPct  float64
	Fraction float64
}

// TierThreshold maps a market-cap ceiling to a potential tier. The
// aggregator assigns the highest tier whose ceiling the token's market cap
// stays under. Policy, not behavior: operators tune these freely.
type TierThreshold struct {
	Tier       domain.PotentialTier
	MaxMcapUSD float64
}

// Config is the flat option set consumed at startup.
type Config struct {
	// Entry sizing
	InitialInvestment float64 // base trade size in SOL
	MaxPositionSize   float64 // hard cap per position in SOL
	MinTradeSize      float64 // below this the sizer returns 0
	MaxWalletExposure float64 // fraction of balance allowed in open positions

	// Eligibility
	MinLiquidityUSD   float64
	MinHolders        int
	MaxTokenAge       time.Duration // max age for a token to still qualify
	MaxPriceImpactPct float64
	MaxSellTaxPct     float64
	MinLiquidityRatio float64 // liquidity USD / position value USD floor

	// Exit triggers
	StopLossPct     float64 // e.g. 15 means stop at entry * 0.85
	TakeProfitPct   float64 // single-rung gain when no ladder is configured
	TrailingStopPct float64
	TakeProfits     []TakeProfitFraction

	// Circuit breakers
	MaxConcurrentTrades int
	MaxDailyTrades      int
	MaxDailyLoss        float64 // fraction of balance
	MaxErrors           int
	ErrorTimeout        time.Duration

	// Scheduling
	TradeInterval time.Duration // signal poll cadence

	// Gateway
	MaxSlippageBps int

	// Tier policy
	TierThresholds []TierThreshold
}

// Default take-profit ladder: 30/40/30 of entry size at +20%/+50%/+100%.
func defaultTakeProfits() []TakeProfitFraction {
	return []TakeProfitFraction{
		{GainPct: 20, Fraction: 0.30},
		{GainPct: 50, Fraction: 0.40},
		{GainPct: 100, Fraction: 0.30},
	}
}

// Default tier policy: assign by market-cap headroom.
func defaultTierThresholds() []TierThreshold {
	return []TierThreshold{
		{Tier: domain.Tier10000x, MaxMcapUSD: 50_000},
		{Tier: domain.Tier1000x, MaxMcapUSD: 500_000},
		{Tier: domain.Tier100x, MaxMcapUSD: 5_000_000},
		{Tier: domain.Tier50x, MaxMcapUSD: 20_000_000},
	}
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over file entries.
func Load() (*Config, error) {
	// godotenv does not override variables already set in the environment.
	_ = godotenv.Load()

	cfg := &Config{
		InitialInvestment: envFloat("INITIAL_INVESTMENT", 0.1),
		MaxPositionSize:   envFloat("MAX_POSITION_SIZE", 1.0),
		MinTradeSize:      envFloat("MIN_TRADE_SIZE", 0.01),
		MaxWalletExposure: envFloat("MAX_WALLET_EXPOSURE", 0.15),

		MinLiquidityUSD:   envFloat("MIN_LIQUIDITY", 50_000),
		MinHolders:        envInt("MIN_HOLDERS", 100),
		MaxTokenAge:       envDurationSec("MAX_TOKEN_AGE", 600),
		MaxPriceImpactPct: envFloat("MAX_PRICE_IMPACT", 2.0),
		MaxSellTaxPct:     envFloat("MAX_SELL_TAX", 10.0),
		MinLiquidityRatio: envFloat("MIN_LIQUIDITY_RATIO", 10.0),

		StopLossPct:     envFloat("STOP_LOSS_PERCENTAGE", 15),
		TakeProfitPct:   envFloat("TAKE_PROFIT_PERCENTAGE", 50),
		TrailingStopPct: envFloat("TRAILING_STOP_PERCENTAGE", 20),
		TakeProfits:     defaultTakeProfits(),

		MaxConcurrentTrades: envInt("MAX_CONCURRENT_TRADES", 3),
		MaxDailyTrades:      envInt("MAX_DAILY_TRADES", 10),
		MaxDailyLoss:        envFloat("MAX_DAILY_LOSS", 0.25),
		MaxErrors:           envInt("MAX_ERRORS", 3),
		ErrorTimeout:        envDurationSec("ERROR_TIMEOUT", 300),

		TradeInterval: envDurationSec("TRADE_INTERVAL", 300),

		MaxSlippageBps: envInt("MAX_SLIPPAGE", 50),

		TierThresholds: defaultTierThresholds(),
	}

	// Ladder policy: TAKE_PROFIT_LEVELS wins; a bare TAKE_PROFIT_PERCENTAGE
	// collapses the ladder to one full-size rung at that gain.
	if v := os.Getenv("TAKE_PROFIT_LEVELS"); v != "" {
		levels, err := parseTakeProfitLevels(v)
		if err != nil {
			return nil, fmt.Errorf("config: TAKE_PROFIT_LEVELS: %w", err)
		}
		cfg.TakeProfits = levels
	} else if os.Getenv("TAKE_PROFIT_PERCENTAGE") != "" {
		cfg.TakeProfits = []TakeProfitFraction{{GainPct: cfg.TakeProfitPct, Fraction: 1}}
	}

	if v := os.Getenv("TIER_THRESHOLDS"); v != "" {
		tiers, err := parseTierThresholds(v)
		if err != nil {
			return nil, fmt.Errorf("config: TIER_THRESHOLDS: %w", err)
		}
		cfg.TierThresholds = tiers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseTakeProfitLevels parses "gain:share,..." where both are percentages,
// e.g. "20:30,50:40,100:30" sells 30% of the entry at +20%, 40% at +50%,
// and 30% at +100%.
func parseTakeProfitLevels(s string) ([]TakeProfitFraction, error) {
	var levels []TakeProfitFraction
	for _, part := range strings.Split(s, ",") {
		gainStr, shareStr, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("level %q is not gain:share", part)
		}
		gain, err := strconv.ParseFloat(gainStr, 64)
		if err != nil {
			return nil, fmt.Errorf("gain %q: %w", gainStr, err)
		}
		share, err := strconv.ParseFloat(shareStr, 64)
		if err != nil {
			return nil, fmt.Errorf("share %q: %w", shareStr, err)
		}
		levels = append(levels, TakeProfitFraction{GainPct: gain, Fraction: share / 100})
	}
	return levels, nil
}

var tierNames = map[string]domain.PotentialTier{
	"10000x": domain.Tier10000x,
	"1000x":  domain.Tier1000x,
	"100x":   domain.Tier100x,
	"50x":    domain.Tier50x,
}

// parseTierThresholds parses "tier:maxMcapUSD,..." in ascending mcap order,
// e.g. "10000x:50000,1000x:500000,100x:5000000,50x:20000000".
func parseTierThresholds(s string) ([]TierThreshold, error) {
	var tiers []TierThreshold
	for _, part := range strings.Split(s, ",") {
		name, mcapStr, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("threshold %q is not tier:mcap", part)
		}
		tier, known := tierNames[strings.ToLower(name)]
		if !known {
			return nil, fmt.Errorf("unknown tier %q", name)
		}
		mcap, err := strconv.ParseFloat(mcapStr, 64)
		if err != nil {
			return nil, fmt.Errorf("mcap %q: %w", mcapStr, err)
		}
		tiers = append(tiers, TierThreshold{Tier: tier, MaxMcapUSD: mcap})
	}
	return tiers, nil
}

// Validate rejects configurations that cannot produce sane trades.
func (c *Config) Validate() error {
	if c.InitialInvestment <= 0 {
		return fmt.Errorf("config: INITIAL_INVESTMENT must be positive, got %v", c.InitialInvestment)
	}
	if c.MaxWalletExposure <= 0 || c.MaxWalletExposure > 1 {
		return fmt.Errorf("config: MAX_WALLET_EXPOSURE must be in (0, 1], got %v", c.MaxWalletExposure)
	}
	if c.StopLossPct <= 0 || c.StopLossPct >= 100 {
		return fmt.Errorf("config: STOP_LOSS_PERCENTAGE must be in (0, 100), got %v", c.StopLossPct)
	}
	if c.TrailingStopPct <= 0 || c.TrailingStopPct >= 100 {
		return fmt.Errorf("config: TRAILING_STOP_PERCENTAGE must be in (0, 100), got %v", c.TrailingStopPct)
	}
	if c.MaxDailyLoss <= 0 || c.MaxDailyLoss > 1 {
		return fmt.Errorf("config: MAX_DAILY_LOSS must be in (0, 1], got %v", c.MaxDailyLoss)
	}
	if c.MaxConcurrentTrades <= 0 {
		return fmt.Errorf("config: MAX_CONCURRENT_TRADES must be positive, got %d", c.MaxConcurrentTrades)
	}
	if c.MaxErrors <= 0 {
		return fmt.Errorf("config: MAX_ERRORS must be positive, got %d", c.MaxErrors)
	}

	var total float64
	for _, tp := range c.TakeProfits {
		if tp.Fraction <= 0 || tp.GainPct <= 0 {
			return fmt.Errorf("config: take-profit levels must have positive gain and fraction")
		}
		total += tp.Fraction
	}
	if len(c.TakeProfits) > 0 && (total < 0.999 || total > 1.001) {
		return fmt.Errorf("config: take-profit fractions must sum to 1, got %v", total)
	}

	for i := 1; i < len(c.TierThresholds); i++ {
		if c.TierThresholds[i].MaxMcapUSD <= c.TierThresholds[i-1].MaxMcapUSD {
			return fmt.Errorf("config: tier thresholds must be strictly increasing")
		}
	}

	return nil
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envDurationSec reads a duration expressed as whole seconds, matching the
// reference deployment's env files.
func envDurationSec(key string, defSec int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defSec) * time.Second
}
