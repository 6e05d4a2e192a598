package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the final Config: built-in defaults, then the TOML file at path
// (skipped when path is empty, so the binary can run on env vars alone), then
// PAPERBOT_* environment variable overrides. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PAPERBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Bybit ──
	setStr(&cfg.Bybit.BaseURL, "PAPERBOT_BYBIT_BASE_URL")
	setStr(&cfg.Bybit.WsURL, "PAPERBOT_BYBIT_WS_URL")
	setStr(&cfg.Bybit.Category, "PAPERBOT_BYBIT_CATEGORY")
	setStr(&cfg.Bybit.Symbol, "PAPERBOT_BYBIT_SYMBOL")
	setStr(&cfg.Bybit.Interval, "PAPERBOT_BYBIT_INTERVAL")
	setInt(&cfg.Bybit.Lookback, "PAPERBOT_BYBIT_LOOKBACK")
	setDuration(&cfg.Bybit.RequestTimeout, "PAPERBOT_BYBIT_REQUEST_TIMEOUT")

	// ── Simmer ──
	setStr(&cfg.Simmer.BaseURL, "PAPERBOT_SIMMER_BASE_URL")
	setStr(&cfg.Simmer.ApiKey, "SIMMER_API_KEY") // compatibility alias
	setStr(&cfg.Simmer.ApiKey, "PAPERBOT_SIMMER_API_KEY")
	setDuration(&cfg.Simmer.RequestTimeout, "PAPERBOT_SIMMER_REQUEST_TIMEOUT")

	// ── Journal ──
	setStr(&cfg.Journal.SignalsPath, "PAPERBOT_JOURNAL_SIGNALS_PATH")
	setStr(&cfg.Journal.IntentsPath, "PAPERBOT_JOURNAL_INTENTS_PATH")

	// ── Results ──
	setStr(&cfg.Results.BarLogPath, "PAPERBOT_RESULTS_BAR_LOG_PATH")
	setStr(&cfg.Results.BarCSVPath, "PAPERBOT_RESULTS_BAR_CSV_PATH")
	setStr(&cfg.Results.BinaryLogPath, "PAPERBOT_RESULTS_BINARY_LOG_PATH")
	setStr(&cfg.Results.BinaryCSVPath, "PAPERBOT_RESULTS_BINARY_CSV_PATH")

	// ── State ──
	setStr(&cfg.State.BarPath, "PAPERBOT_STATE_BAR_PATH")
	setStr(&cfg.State.BinaryPath, "PAPERBOT_STATE_BINARY_PATH")
	setStr(&cfg.State.CooldownPath, "PAPERBOT_STATE_COOLDOWN_PATH")

	// ── Resolver ──
	setStringSlice(&cfg.Resolver.Variants, "PAPERBOT_RESOLVER_VARIANTS")
	setInt(&cfg.Resolver.LookaheadBars, "PAPERBOT_RESOLVER_LOOKAHEAD_BARS")
	setInt(&cfg.Resolver.MaxIntents, "PAPERBOT_RESOLVER_MAX_INTENTS")
	setFloat64(&cfg.Resolver.FeeRateBps, "PAPERBOT_RESOLVER_FEE_RATE_BPS")

	// ── Signal ──
	setInt(&cfg.Signal.PivotLeft, "PAPERBOT_SIGNAL_PIVOT_LEFT")
	setInt(&cfg.Signal.PivotRight, "PAPERBOT_SIGNAL_PIVOT_RIGHT")
	setInt(&cfg.Signal.MaxLevels, "PAPERBOT_SIGNAL_MAX_LEVELS")
	setFloat64(&cfg.Signal.RiskReward, "PAPERBOT_SIGNAL_RISK_REWARD")
	setFloat64(&cfg.Signal.MaxRiskUSD, "PAPERBOT_SIGNAL_MAX_RISK_USD")
	setFloat64(&cfg.Signal.FixedSize, "PAPERBOT_SIGNAL_FIXED_SIZE")
	setDuration(&cfg.Signal.Cooldown, "PAPERBOT_SIGNAL_COOLDOWN")
	setFloat64(&cfg.Signal.ClusterTolPct, "PAPERBOT_SIGNAL_CLUSTER_TOL_PCT")

	// ── Report ──
	setDuration(&cfg.Report.Window, "PAPERBOT_REPORT_WINDOW")
	setBool(&cfg.Report.Push, "PAPERBOT_REPORT_PUSH")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "PAPERBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PAPERBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PAPERBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PAPERBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PAPERBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PAPERBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PAPERBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PAPERBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PAPERBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PAPERBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PAPERBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PAPERBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PAPERBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PAPERBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PAPERBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PAPERBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PAPERBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PAPERBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.LockKey, "PAPERBOT_REDIS_LOCK_KEY")
	setDuration(&cfg.Redis.LockTTL, "PAPERBOT_REDIS_LOCK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PAPERBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PAPERBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PAPERBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "PAPERBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PAPERBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PAPERBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PAPERBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PAPERBOT_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PAPERBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramToken, "TELEGRAM_BOT_TOKEN") // compatibility alias
	setStr(&cfg.Notify.TelegramChatID, "PAPERBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.TelegramChatID, "TELEGRAM_CHAT_ID") // compatibility alias
	setStr(&cfg.Notify.DiscordWebhookURL, "PAPERBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PAPERBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PAPERBOT_MODE")
	setStr(&cfg.LogLevel, "PAPERBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
