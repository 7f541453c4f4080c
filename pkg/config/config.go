package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	Environment string `yaml:"environment" default:"dev"`

	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Server struct {
		Enabled bool `yaml:"enabled" default:"true"`
		Port    int  `yaml:"port" default:"8087"`
	} `yaml:"server"`

	Scanner struct {
		Symbols           []string      `yaml:"symbols" validate:"min=1"`
		Timeframe         string        `yaml:"timeframe" default:"5m"`
		CandleLimit       int           `yaml:"candle_limit" default:"100" validate:"gte=30"`
		PollInterval      time.Duration `yaml:"poll_interval" default:"30s"`
		ValidateFreshness bool          `yaml:"validate_freshness" default:"true"`
	} `yaml:"scanner"`

	DataSource DataSourceConfig `yaml:"datasource"`
	Quality    QualityConfig    `yaml:"quality"`

	StrategyPriority StrategyPriorityConfig `yaml:"strategy_priority"`

	Strategies struct {
		Enabled []string `yaml:"enabled"`
	} `yaml:"strategies"`

	Providers struct {
		Binance struct {
			APIKey         string `yaml:"api_key"`
			APISecret      string `yaml:"api_secret"`
			RequestsPerSec int    `yaml:"requests_per_sec" default:"10"`
		} `yaml:"binance"`
		Coinbase struct {
			BaseURL        string        `yaml:"base_url" default:"https://api.exchange.coinbase.com"`
			RequestsPerSec int           `yaml:"requests_per_sec" default:"5"`
			Timeout        time.Duration `yaml:"timeout" default:"10s"`
		} `yaml:"coinbase"`
		Kraken struct {
			BaseURL        string        `yaml:"base_url" default:"https://api.kraken.com"`
			RequestsPerSec int           `yaml:"requests_per_sec" default:"3"`
			Timeout        time.Duration `yaml:"timeout" default:"10s"`
		} `yaml:"kraken"`
	} `yaml:"providers"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"scalper"`
	} `yaml:"redis"`
}

// DataSourceConfig drives the unified data source: provider order, retry
// policy and cache TTL.
type DataSourceConfig struct {
	PrimarySource   string   `yaml:"primary_source" default:"binance"`
	FallbackSources []string `yaml:"fallback_sources"`

	Retry struct {
		MaxAttempts       int           `yaml:"max_attempts" default:"3" validate:"gte=1"`
		InitialDelay      time.Duration `yaml:"initial_delay" default:"500ms"`
		MaxDelay          time.Duration `yaml:"max_delay" default:"10s"`
		BackoffMultiplier float64       `yaml:"backoff_multiplier" default:"2.0" validate:"gte=1"`
	} `yaml:"retry"`

	// CacheTTL bounds how long a stale fetch may serve as a degraded read.
	CacheTTL time.Duration `yaml:"cache_ttl" default:"15m"`

	// SymbolMap translates canonical symbols to per-provider notation,
	// e.g. binance: {BTCUSD: BTCUSDT}.
	SymbolMap map[string]map[string]string `yaml:"symbol_map"`
}

// QualityConfig drives the signal quality filter.
type QualityConfig struct {
	MinConfluenceFactors    int            `yaml:"min_confluence_factors" default:"3" validate:"gte=0,lte=7"`
	MinConfidenceScore      int            `yaml:"min_confidence_score" default:"3" validate:"gte=1,lte=5"`
	DuplicateWindow         time.Duration  `yaml:"duplicate_window" default:"30m"`
	DuplicatePriceTolerance float64        `yaml:"duplicate_price_tolerance_pct" default:"0.5"`
	SignificantPriceMovePct float64        `yaml:"significant_price_move_pct" default:"1.0"`
	MinRiskReward           float64        `yaml:"min_risk_reward" default:"1.5" validate:"gte=0"`
	ConfluenceWeights       map[string]int `yaml:"confluence_weights"`
}

// StrategyPriorityConfig holds the four regime-keyed priority lists consumed
// by the orchestrator.
type StrategyPriorityConfig struct {
	HighVolatility []string `yaml:"high_volatility"`
	LowVolatility  []string `yaml:"low_volatility"`
	StrongTrend    []string `yaml:"strong_trend"`
	Ranging        []string `yaml:"ranging"`
}

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides secrets and symbol lists
// from the environment.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Scanner.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Providers.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Providers.Binance.APISecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks structural rules plus the cross-field constraints the
// struct tags cannot express. Configuration errors are fatal at startup.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.DataSource.PrimarySource == "" {
		return fmt.Errorf("datasource.primary_source is required")
	}
	for _, fb := range c.DataSource.FallbackSources {
		if fb == c.DataSource.PrimarySource {
			return fmt.Errorf("datasource.fallback_sources must not repeat the primary source %q", fb)
		}
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
	}
	for name, w := range c.Quality.ConfluenceWeights {
		if w < 0 {
			return fmt.Errorf("quality.confluence_weights[%s] must be non-negative", name)
		}
	}
	return nil
}
