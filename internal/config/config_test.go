package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoDashboard/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv blanks overrides that may be set on the host; empty values are ignored by Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "LEDGER_URL", "HTTPS_PROXY",
		"ALERT_THRESHOLD_PCT", "STABLE_ASSETS", "CACHE_TTL", "CRON_CYCLE",
		"SERVER_ADDR", "LOG_LEVEL", "OKX_API_KEY", "BINANCE_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "okx", cfg.Providers[0].Name)
	assert.Equal(t, "binance", cfg.Providers[1].Name)
	assert.Equal(t, "USDT", cfg.Providers[0].QuoteCurrency)
	assert.Equal(t, 100.0, cfg.Alert.ThresholdPct)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "0 */5 * * * *", cfg.Schedule.CycleCron)
	assert.True(t, cfg.StableSet()["USDC"])
	assert.True(t, cfg.Airdrop24hFullValue())
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
ledger:
  url: https://example.com/sheet.csv
providers:
  - name: Binance
    base_url: https://api.binance.com
    quote_currency: usdc
  - name: okx
    base_url: https://www.okx.com
    enabled: false
alert:
  threshold_pct: 50
metrics:
  airdrop_24h_full_value: false
cache:
  ttl: 30s
`)
	t.Setenv("BINANCE_API_KEY", "secret")
	t.Setenv("ALERT_THRESHOLD_PCT", "75")
	t.Setenv("STABLE_ASSETS", "usdt, dai")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/sheet.csv", cfg.Ledger.URL)
	assert.Equal(t, "binance", cfg.Providers[0].Name)
	assert.Equal(t, "USDC", cfg.Providers[0].QuoteCurrency)
	assert.Equal(t, "secret", cfg.Providers[0].APIKey)
	assert.Equal(t, 75.0, cfg.Alert.ThresholdPct)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.False(t, cfg.Airdrop24hFullValue())
	assert.Equal(t, map[string]bool{"USDT": true, "DAI": true}, cfg.StableSet())

	enabled := cfg.EnabledProviders()
	require.Len(t, enabled, 1)
	assert.Equal(t, "binance", enabled[0].Name)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "providers: [:"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, "providers:\n  - name: custom\n"))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	cfg.Providers[0].BaseURL = "http://localhost"
	assert.NoError(t, cfg.Validate())

	cfg.Alert.ThresholdPct = -1
	assert.Error(t, cfg.Validate())
}

func TestFeatures(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	f := cfg.Features()
	assert.False(t, f.Ledger)
	assert.False(t, f.Notifier)
	assert.False(t, f.AlertDispatch)
	require.NotEmpty(t, f.Missing)
	assert.Contains(t, f.Missing[len(f.Missing)-1].Error(), "alert dispatch disabled")
	for _, err := range f.Missing {
		assert.ErrorIs(t, err, model.ErrConfigMissing)
	}

	cfg.Ledger.URL = "https://example.com"
	cfg.Telegram.BotToken = "t"
	cfg.Telegram.ChatID = "1"
	f = cfg.Features()
	assert.True(t, f.Ledger)
	assert.True(t, f.Notifier)
	assert.True(t, f.AlertDispatch)
	assert.Empty(t, f.Missing)

	off := false
	cfg.Alert.Enabled = &off
	assert.False(t, cfg.Features().AlertDispatch)
}
