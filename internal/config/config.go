// Package config loads the application configuration from YAML with
// environment variable overrides for credentials and paths.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hindsight/internal/ledger"
	"hindsight/internal/sizing"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for hindsight.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Backtest BacktestConfig `yaml:"backtest"`
}

// Storage holds paths and backend selection for data persistence.
type Storage struct {
	// Backend selects where bars are read from: "parquet" or "sqlite".
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FetchConfig holds parameters for the historical data fetch job.
type FetchConfig struct {
	StartDate       string `yaml:"start_date"`
	BatchSize       int    `yaml:"batch_size"`
	MaxWorkers      int    `yaml:"max_workers"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// BacktestConfig defines the default simulation parameters. Per-run CLI flags
// take precedence over these values.
type BacktestConfig struct {
	InitialCapital float64            `yaml:"initial_capital"`
	PeriodsPerYear float64            `yaml:"periods_per_year"`
	Strategy       string             `yaml:"strategy"`
	Params         map[string]float64 `yaml:"params"`
	EntryLevels    []float64          `yaml:"entry_levels"`
	Lot            sizing.LotConfig   `yaml:"lot"`
	Fill           ledger.FillConfig  `yaml:"fill"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{
		Storage: Storage{
			Backend:    "sqlite",
			DataDir:    "data",
			SQLitePath: "data/hindsight.db",
		},
		Logging: Logging{Level: "info", Format: "json"},
		Fetch: FetchConfig{
			StartDate:       "2016-01-01",
			BatchSize:       100,
			MaxWorkers:      4,
			RateLimitPerMin: 200,
		},
		Backtest: BacktestConfig{
			InitialCapital: 100_000,
			PeriodsPerYear: 252,
			Strategy:       "buy-and-hold",
			Lot:            sizing.DefaultLotConfig(),
		},
	}
	applyEnvOverrides(cfg)
	return cfg
}

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
