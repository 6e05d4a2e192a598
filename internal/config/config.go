// Package config defines the top-level configuration for paperbot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PAPERBOT_* environment variables.
type Config struct {
	Bybit    BybitConfig    `toml:"bybit"`
	Simmer   SimmerConfig   `toml:"simmer"`
	Journal  JournalConfig  `toml:"journal"`
	Results  ResultsConfig  `toml:"results"`
	State    StateConfig    `toml:"state"`
	Resolver ResolverConfig `toml:"resolver"`
	Signal   SignalConfig   `toml:"signal"`
	Report   ReportConfig   `toml:"report"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// BybitConfig holds the Bybit market-data endpoints and the default
// symbol/interval the signal and resolve modes operate on.
type BybitConfig struct {
	BaseURL        string   `toml:"base_url"`
	WsURL          string   `toml:"ws_url"`
	Category       string   `toml:"category"`
	Symbol         string   `toml:"symbol"`
	Interval       string   `toml:"interval"`
	Lookback       int      `toml:"lookback"`
	RequestTimeout duration `toml:"request_timeout"`
}

// SimmerConfig holds the Simmer SDK endpoint used to look up binary-market
// settlement. ApiKey is required only when the binary resolver variant runs.
type SimmerConfig struct {
	BaseURL        string   `toml:"base_url"`
	ApiKey         string   `toml:"api_key"`
	RequestTimeout duration `toml:"request_timeout"`
}

// JournalConfig holds the append-only intent journal paths.
type JournalConfig struct {
	SignalsPath string `toml:"signals_path"`
	IntentsPath string `toml:"intents_path"`
}

// ResultsConfig holds the resolution output paths, one JSONL log and one CSV
// export per resolver variant.
type ResultsConfig struct {
	BarLogPath    string `toml:"bar_log_path"`
	BarCSVPath    string `toml:"bar_csv_path"`
	BinaryLogPath string `toml:"binary_log_path"`
	BinaryCSVPath string `toml:"binary_csv_path"`
}

// StateConfig holds the idempotency and cooldown state document paths.
type StateConfig struct {
	BarPath      string `toml:"bar_path"`
	BinaryPath   string `toml:"binary_path"`
	CooldownPath string `toml:"cooldown_path"`
}

// ResolverConfig holds the resolution engine parameters.
type ResolverConfig struct {
	// Variants selects which resolvers a resolve run executes: "bar", "binary".
	Variants      []string `toml:"variants"`
	LookaheadBars int      `toml:"lookahead_bars"`
	MaxIntents    int      `toml:"max_intents"`
	FeeRateBps    float64  `toml:"fee_rate_bps"`
}

// SignalConfig holds the support/resistance signal generator parameters.
type SignalConfig struct {
	PivotLeft     int      `toml:"pivot_left"`
	PivotRight    int      `toml:"pivot_right"`
	MaxLevels     int      `toml:"max_levels"`
	RiskReward    float64  `toml:"risk_reward"`
	MaxRiskUSD    float64  `toml:"max_risk_usd"`
	FixedSize     float64  `toml:"fixed_size"`
	Cooldown      duration `toml:"cooldown"`
	ClusterTolPct float64  `toml:"cluster_tol_pct"`
}

// ReportConfig holds the trailing report parameters.
type ReportConfig struct {
	Window duration `toml:"window"`
	Push   bool     `toml:"push"`
}

// PostgresConfig holds the optional PostgreSQL mirror connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the optional Redis run-lock connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	LockKey    string   `toml:"lock_key"`
	LockTTL    duration `toml:"lock_ttl"`
}

// S3Config holds S3-compatible object storage parameters for archive mode.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Bybit: BybitConfig{
			BaseURL:        "https://api.bybit.com",
			WsURL:          "wss://stream.bybit.com/v5/public/linear",
			Category:       "linear",
			Symbol:         "BTCUSDT",
			Interval:       "5",
			Lookback:       300,
			RequestTimeout: duration{15 * time.Second},
		},
		Simmer: SimmerConfig{
			BaseURL:        "https://api.simmer.markets",
			RequestTimeout: duration{20 * time.Second},
		},
		Journal: JournalConfig{
			SignalsPath: "data/journal/signals.jsonl",
			IntentsPath: "data/journal/intents.jsonl",
		},
		Results: ResultsConfig{
			BarLogPath:    "data/results/bar_resolutions.jsonl",
			BarCSVPath:    "data/results/bar_resolutions.csv",
			BinaryLogPath: "data/results/binary_resolutions.jsonl",
			BinaryCSVPath: "data/results/binary_resolutions.csv",
		},
		State: StateConfig{
			BarPath:      "data/state/bar_resolutions.json",
			BinaryPath:   "data/state/binary_resolutions.json",
			CooldownPath: "data/state/signal_cooldown.json",
		},
		Resolver: ResolverConfig{
			Variants:      []string{"bar"},
			LookaheadBars: 24,
			MaxIntents:    200,
			FeeRateBps:    0,
		},
		Signal: SignalConfig{
			PivotLeft:     3,
			PivotRight:    3,
			MaxLevels:     8,
			RiskReward:    2.0,
			MaxRiskUSD:    3.0,
			FixedSize:     0.003,
			Cooldown:      duration{30 * time.Minute},
			ClusterTolPct: 0.0015,
		},
		Report: ReportConfig{
			Window: duration{24 * time.Hour},
			Push:   false,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "paperbot",
			User:          "paperbot",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
			TLSEnabled: false,
			LockKey:    "paperbot:resolve:lock",
			LockTTL:    duration{10 * time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "paperbot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events: []string{"signal_emitted", "resolution_written", "error"},
		},
		Mode:     "resolve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"resolve": true,
	"signal":  true,
	"watch":   true,
	"report":  true,
	"archive": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validVariants enumerates the accepted resolver variants.
var validVariants = map[string]bool{
	"bar":    true,
	"binary": true,
}

// validIntervals enumerates the kline intervals Bybit v5 accepts.
var validIntervals = map[string]bool{
	"1": true, "3": true, "5": true, "15": true, "30": true,
	"60": true, "120": true, "240": true, "360": true, "720": true,
	"D": true, "W": true, "M": true,
}

// BinaryEnabled reports whether the binary resolver variant is selected.
func (c *Config) BinaryEnabled() bool {
	for _, v := range c.Resolver.Variants {
		if strings.ToLower(v) == "binary" {
			return true
		}
	}
	return false
}

// BarEnabled reports whether the bar resolver variant is selected.
func (c *Config) BarEnabled() bool {
	for _, v := range c.Resolver.Variants {
		if strings.ToLower(v) == "bar" {
			return true
		}
	}
	return false
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: resolve, signal, watch, report, archive)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Bybit
	if c.Bybit.BaseURL == "" {
		errs = append(errs, "bybit: base_url must not be empty")
	}
	if c.Bybit.Symbol == "" {
		errs = append(errs, "bybit: symbol must not be empty")
	}
	if !validIntervals[c.Bybit.Interval] {
		errs = append(errs, fmt.Sprintf("bybit: unknown interval %q", c.Bybit.Interval))
	}
	if c.Bybit.Lookback < 1 || c.Bybit.Lookback > 1000 {
		errs = append(errs, fmt.Sprintf("bybit: lookback must be 1-1000, got %d", c.Bybit.Lookback))
	}
	if c.Bybit.RequestTimeout.Duration <= 0 {
		errs = append(errs, "bybit: request_timeout must be positive")
	}

	// Resolver
	if len(c.Resolver.Variants) == 0 {
		errs = append(errs, "resolver: at least one variant must be selected")
	}
	for _, v := range c.Resolver.Variants {
		if !validVariants[strings.ToLower(v)] {
			errs = append(errs, fmt.Sprintf("resolver: unknown variant %q (valid: bar, binary)", v))
		}
	}
	if c.Resolver.LookaheadBars < 1 {
		errs = append(errs, "resolver: lookahead_bars must be >= 1")
	}
	if c.Resolver.MaxIntents < 1 {
		errs = append(errs, "resolver: max_intents must be >= 1")
	}
	if c.Resolver.FeeRateBps < 0 {
		errs = append(errs, "resolver: fee_rate_bps must be >= 0")
	}

	// Simmer — the key is a hard requirement only when the binary variant runs.
	needsSimmer := strings.ToLower(c.Mode) == "resolve" && c.BinaryEnabled()
	if needsSimmer {
		if c.Simmer.ApiKey == "" {
			errs = append(errs, "simmer: api_key is required for the binary resolver variant (set PAPERBOT_SIMMER_API_KEY or SIMMER_API_KEY)")
		}
		if c.Simmer.BaseURL == "" {
			errs = append(errs, "simmer: base_url must not be empty")
		}
	}

	// Signal
	if c.Signal.PivotLeft < 1 || c.Signal.PivotRight < 1 {
		errs = append(errs, "signal: pivot_left and pivot_right must be >= 1")
	}
	if c.Signal.MaxLevels < 1 {
		errs = append(errs, "signal: max_levels must be >= 1")
	}
	if c.Signal.RiskReward <= 0 {
		errs = append(errs, "signal: risk_reward must be > 0")
	}
	if c.Signal.FixedSize <= 0 {
		errs = append(errs, "signal: fixed_size must be > 0")
	}
	if c.Signal.ClusterTolPct <= 0 {
		errs = append(errs, "signal: cluster_tol_pct must be > 0")
	}

	// Report
	if c.Report.Window.Duration <= 0 {
		errs = append(errs, "report: window must be positive")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LockKey == "" {
			errs = append(errs, "redis: lock_key must not be empty")
		}
		if c.Redis.LockTTL.Duration <= 0 {
			errs = append(errs, "redis: lock_ttl must be positive")
		}
	}

	// S3
	if c.S3.Enabled || strings.ToLower(c.Mode) == "archive" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
