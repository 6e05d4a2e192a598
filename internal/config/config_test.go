package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "resolve", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"bar"}, cfg.Resolver.Variants)
	assert.Equal(t, 24, cfg.Resolver.LookaheadBars)
	assert.Equal(t, "BTCUSDT", cfg.Bybit.Symbol)
	assert.Equal(t, 30*time.Minute, cfg.Signal.Cooldown.Duration)
	assert.Equal(t, 24*time.Hour, cfg.Report.Window.Duration)
	assert.True(t, cfg.BarEnabled())
	assert.False(t, cfg.BinaryEnabled())
}

func TestValidateCollectsEveryError(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Bybit.Interval = "7"
	cfg.Resolver.Variants = []string{"quantum"}
	cfg.Signal.FixedSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "trade"`)
	assert.Contains(t, err.Error(), `unknown interval "7"`)
	assert.Contains(t, err.Error(), `unknown variant "quantum"`)
	assert.Contains(t, err.Error(), "fixed_size must be > 0")
}

func TestValidateSimmerKeyGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mode     string
		variants []string
		apiKey   string
		wantErr  bool
	}{
		{"binary_resolve_without_key", "resolve", []string{"bar", "binary"}, "", true},
		{"bar_only_without_key", "resolve", []string{"bar"}, "", false},
		{"binary_outside_resolve", "signal", []string{"binary"}, "", false},
		{"binary_resolve_with_key", "resolve", []string{"binary"}, "sk-test", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Defaults()
			cfg.Mode = tt.mode
			cfg.Resolver.Variants = tt.variants
			cfg.Simmer.ApiKey = tt.apiKey

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "simmer: api_key is required")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateArchiveNeedsS3(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Mode = "archive"
	require.NoError(t, cfg.Validate(), "defaults carry a local S3 endpoint")

	cfg.S3.Endpoint = ""
	cfg.S3.Bucket = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: endpoint must not be empty")
	assert.Contains(t, err.Error(), "s3: bucket must not be empty")
}

func TestVariantSelectionIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Resolver.Variants = []string{"BAR"}
	assert.True(t, cfg.BarEnabled())
	assert.False(t, cfg.BinaryEnabled())

	cfg.Resolver.Variants = []string{"bar", "Binary"}
	assert.True(t, cfg.BarEnabled())
	assert.True(t, cfg.BinaryEnabled())

	cfg.Resolver.Variants = nil
	assert.False(t, cfg.BarEnabled())
	assert.False(t, cfg.BinaryEnabled())
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "paperbot.toml")
	body := `
mode = "report"
log_level = "debug"

[bybit]
symbol = "ETHUSDT"
interval = "15"
request_timeout = "5s"

[resolver]
variants = ["bar", "binary"]
fee_rate_bps = 100.0

[signal]
cooldown = "45m"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "report", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ETHUSDT", cfg.Bybit.Symbol)
	assert.Equal(t, "15", cfg.Bybit.Interval)
	assert.Equal(t, 5*time.Second, cfg.Bybit.RequestTimeout.Duration)
	assert.Equal(t, []string{"bar", "binary"}, cfg.Resolver.Variants)
	assert.Equal(t, 100.0, cfg.Resolver.FeeRateBps)
	assert.Equal(t, 45*time.Minute, cfg.Signal.Cooldown.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, "https://api.bybit.com", cfg.Bybit.BaseURL)
	assert.Equal(t, 300, cfg.Bybit.Lookback)
	assert.Equal(t, 24, cfg.Resolver.LookaheadBars)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "resolve", cfg.Mode)
	assert.Equal(t, "BTCUSDT", cfg.Bybit.Symbol)
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadMalformedTOMLFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PAPERBOT_MODE", "watch")
	t.Setenv("PAPERBOT_BYBIT_LOOKBACK", "500")
	t.Setenv("PAPERBOT_RESOLVER_VARIANTS", "bar, binary")
	t.Setenv("PAPERBOT_SIGNAL_COOLDOWN", "2h")
	t.Setenv("PAPERBOT_REPORT_PUSH", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "watch", cfg.Mode)
	assert.Equal(t, 500, cfg.Bybit.Lookback)
	assert.Equal(t, []string{"bar", "binary"}, cfg.Resolver.Variants)
	assert.Equal(t, 2*time.Hour, cfg.Signal.Cooldown.Duration)
	assert.True(t, cfg.Report.Push)
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paperbot.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "report"`), 0o644))
	t.Setenv("PAPERBOT_MODE", "signal")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "signal", cfg.Mode)
}

func TestLoadSimmerKeyAliasPrecedence(t *testing.T) {
	t.Setenv("SIMMER_API_KEY", "legacy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.Simmer.ApiKey)

	t.Setenv("PAPERBOT_SIMMER_API_KEY", "primary")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.Simmer.ApiKey, "namespaced variable beats the alias")
}

func TestLoadBadEnvValueIgnored(t *testing.T) {
	t.Setenv("PAPERBOT_BYBIT_LOOKBACK", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Bybit.Lookback)
}

func TestRedactedConfig(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Simmer.ApiKey = "sk-secret"
	cfg.Postgres.Password = "hunter2"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Simmer.ApiKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Empty(t, red.Redis.Password, "empty secrets stay empty")

	// Originals untouched, slices detached.
	assert.Equal(t, "sk-secret", cfg.Simmer.ApiKey)
	red.Resolver.Variants[0] = "mutated"
	assert.Equal(t, "bar", cfg.Resolver.Variants[0])
}
