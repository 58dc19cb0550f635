// Package config exposes strongly typed application configuration loaded
// from YAML, with secrets pulled from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Provider configures the market-data HTTP provider.
type Provider struct {
	BaseURL       string        `yaml:"base_url"`
	VsCurrency    string        `yaml:"vs_currency"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	RequestPause  time.Duration `yaml:"request_pause"` // pacing between history pulls
}

// Metrics groups the calculator tunables.
type Metrics struct {
	LookbackDays          int     `yaml:"lookback_days"`
	VolatilityMinSamples  int     `yaml:"volatility_min_samples"`
	CorrelationMinOverlap int     `yaml:"correlation_min_overlap"`
	RiskFreeRate          float64 `yaml:"risk_free_rate"`
	FearGreedMinHistory   int     `yaml:"fear_greed_min_history"`

	FearGreedWeights FearGreedWeights `yaml:"fear_greed_weights"`
}

// FearGreedWeights are the composite score component weights.
type FearGreedWeights struct {
	Momentum   float64 `yaml:"momentum"`
	Volatility float64 `yaml:"volatility"`
	Volume     float64 `yaml:"volume"`
}

// Quality groups the validator thresholds.
type Quality struct {
	PriceCeiling        float64       `yaml:"price_ceiling"`
	AnomalyThresholdPct float64       `yaml:"anomaly_threshold_pct"`
	FreshnessMaxAge     time.Duration `yaml:"freshness_max_age"`
}

// Storage holds backend DSNs. Values are read from the environment so
// credentials stay out of the YAML file; empty DSNs select memory stores.
type Storage struct {
	PostgresDSN   string        `yaml:"-"`
	ClickhouseDSN string        `yaml:"-"`
	RedisAddr     string        `yaml:"-"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// Config collects every configuration leaf.
type Config struct {
	App      App      `yaml:"app"`
	Universe []string `yaml:"universe"`
	Provider Provider `yaml:"provider"`
	Metrics  Metrics  `yaml:"metrics"`
	Quality  Quality  `yaml:"quality"`
	Storage  Storage  `yaml:"storage"`
}

// Load reads a YAML file, loads .env if present, applies environment
// overrides and defaults, and returns the hydrated config.
func Load(path string) (*Config, error) {
	// .env is optional; real deployments export the variables directly.
	_ = godotenv.Load()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	cfg.Storage.PostgresDSN = os.Getenv("COINPULSE_POSTGRES_DSN")
	cfg.Storage.ClickhouseDSN = os.Getenv("COINPULSE_CLICKHOUSE_DSN")
	cfg.Storage.RedisAddr = os.Getenv("COINPULSE_REDIS_ADDR")

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "coinpulse"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Provider.VsCurrency == "" {
		c.Provider.VsCurrency = "usd"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Provider.RetryAttempts == 0 {
		c.Provider.RetryAttempts = 3
	}
	if c.Provider.RetryDelay == 0 {
		c.Provider.RetryDelay = 2 * time.Second
	}
	if c.Provider.RequestPause == 0 {
		c.Provider.RequestPause = time.Second
	}
	if c.Metrics.LookbackDays == 0 {
		c.Metrics.LookbackDays = 30
	}
	if c.Metrics.VolatilityMinSamples == 0 {
		c.Metrics.VolatilityMinSamples = 5
	}
	if c.Metrics.CorrelationMinOverlap == 0 {
		c.Metrics.CorrelationMinOverlap = 7
	}
	if c.Metrics.FearGreedMinHistory == 0 {
		c.Metrics.FearGreedMinHistory = 7
	}
	if c.Metrics.FearGreedWeights == (FearGreedWeights{}) {
		c.Metrics.FearGreedWeights = FearGreedWeights{Momentum: 0.30, Volatility: 0.30, Volume: 0.40}
	}
	if c.Quality.PriceCeiling == 0 {
		c.Quality.PriceCeiling = 10_000_000
	}
	if c.Quality.AnomalyThresholdPct == 0 {
		c.Quality.AnomalyThresholdPct = 50
	}
	if c.Quality.FreshnessMaxAge == 0 {
		c.Quality.FreshnessMaxAge = 24 * time.Hour
	}
	if c.Storage.CacheTTL == 0 {
		c.Storage.CacheTTL = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	if len(c.Universe) == 0 {
		return fmt.Errorf("config: universe must list at least one coin")
	}
	w := c.Metrics.FearGreedWeights
	total := w.Momentum + w.Volatility + w.Volume
	if total < 0.999 || total > 1.001 {
		return fmt.Errorf("config: fear_greed_weights must sum to 1, got %.3f", total)
	}
	return nil
}
