package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"CryptoDashboard/internal/model"
)

// Provider configures one upstream market-data source. Order in Config.Providers is
// the precedence order when two providers quote the same symbol.
type Provider struct {
	Name          string `yaml:"name"`
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	QuoteCurrency string `yaml:"quote_currency"`
	Enabled       *bool  `yaml:"enabled"`
}

// IsEnabled treats an unset flag as enabled.
func (p Provider) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Ledger struct {
		URL string `yaml:"url"`
	} `yaml:"ledger"`
	Providers []Provider `yaml:"providers"`
	Alert     struct {
		Enabled      *bool   `yaml:"enabled"`
		ThresholdPct float64 `yaml:"threshold_pct"`
	} `yaml:"alert"`
	Metrics struct {
		StableAssets        []string `yaml:"stable_assets"`
		TopN                int      `yaml:"top_n"`
		Airdrop24hFullValue *bool    `yaml:"airdrop_24h_full_value"`
		HistorySize         int      `yaml:"history_size"`
	} `yaml:"metrics"`
	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	HTTP struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"http"`
	Schedule struct {
		CycleCron string `yaml:"cycle_cron"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Features reports which optional parts of the system can run with the loaded
// configuration. Missing lists the reason for every disabled feature.
type Features struct {
	Ledger bool
	// AlertDispatch sends evaluated alerts to the chat. Evaluation itself only
	// depends on alert.enabled, so /alerts and the API still list events.
	AlertDispatch bool
	Notifier      bool
	Missing       []error
}

// DefaultStableAssets are treated as stablecoins for the stable-asset ratio.
var DefaultStableAssets = []string{"USDT", "USDC", "DAI", "BUSD", "TUSD", "FDUSD"}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; real environment variables take precedence over it.
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("LEDGER_URL"); v != "" {
		c.Ledger.URL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("ALERT_THRESHOLD_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Alert.ThresholdPct = f
		}
	}
	if v := os.Getenv("STABLE_ASSETS"); v != "" {
		c.Metrics.StableAssets = splitList(v)
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = d
		}
	}
	if v := os.Getenv("CRON_CYCLE"); v != "" {
		c.Schedule.CycleCron = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	// Per-provider keys: OKX_API_KEY, BINANCE_API_KEY, ...
	for i := range c.Providers {
		key := strings.ToUpper(c.Providers[i].Name) + "_API_KEY"
		if v := os.Getenv(key); v != "" {
			c.Providers[i].APIKey = v
		}
	}
}

func (c *Config) applyDefaults() {
	if len(c.Providers) == 0 {
		c.Providers = []Provider{
			{Name: string(model.SourceOKX), BaseURL: "https://www.okx.com"},
			{Name: string(model.SourceBinance), BaseURL: "https://api.binance.com"},
		}
	}
	for i := range c.Providers {
		c.Providers[i].Name = strings.ToLower(strings.TrimSpace(c.Providers[i].Name))
		if c.Providers[i].QuoteCurrency == "" {
			c.Providers[i].QuoteCurrency = "USDT"
		}
		c.Providers[i].QuoteCurrency = strings.ToUpper(c.Providers[i].QuoteCurrency)
	}
	if c.Alert.ThresholdPct == 0 {
		c.Alert.ThresholdPct = 100
	}
	if len(c.Metrics.StableAssets) == 0 {
		c.Metrics.StableAssets = append([]string(nil), DefaultStableAssets...)
	}
	if c.Metrics.TopN <= 0 {
		c.Metrics.TopN = 5
	}
	if c.Metrics.HistorySize <= 0 {
		c.Metrics.HistorySize = 288
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 60 * time.Second
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 10 * time.Second
	}
	if c.Schedule.CycleCron == "" {
		c.Schedule.CycleCron = "0 */5 * * * *"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects values that are present but unusable. Absent optional settings
// are reported by Features instead.
func (c *Config) Validate() error {
	if c.Alert.ThresholdPct < 0 {
		return fmt.Errorf("alert.threshold_pct must not be negative")
	}
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("providers: name is required")
		}
		if p.IsEnabled() && p.BaseURL == "" {
			return fmt.Errorf("providers.%s: base_url is required", p.Name)
		}
	}
	return nil
}

// Features derives the enabled feature set.
func (c *Config) Features() Features {
	f := Features{Ledger: true, AlertDispatch: true, Notifier: true}
	if c.Ledger.URL == "" {
		f.Ledger = false
		f.Missing = append(f.Missing, &model.ConfigMissingError{Feature: "ledger", Key: "ledger.url"})
	}
	if c.Telegram.BotToken == "" {
		f.Notifier = false
		f.Missing = append(f.Missing, &model.ConfigMissingError{Feature: "notifier", Key: "telegram.bot_token"})
	} else if c.Telegram.ChatID == "" {
		f.Notifier = false
		f.Missing = append(f.Missing, &model.ConfigMissingError{Feature: "notifier", Key: "telegram.chat_id"})
	}
	if c.Alert.Enabled != nil && !*c.Alert.Enabled {
		f.AlertDispatch = false
	} else if !f.Notifier {
		f.AlertDispatch = false
		f.Missing = append(f.Missing, &model.ConfigMissingError{Feature: "alert dispatch", Key: "telegram.bot_token/chat_id"})
	}
	return f
}

// EnabledProviders returns the providers to query, in precedence order.
func (c *Config) EnabledProviders() []Provider {
	out := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.IsEnabled() {
			out = append(out, p)
		}
	}
	return out
}

// Threshold returns the alert threshold as a decimal percentage.
func (c *Config) Threshold() decimal.Decimal {
	return decimal.NewFromFloat(c.Alert.ThresholdPct)
}

// StableSet returns the stablecoin symbols as an upper-case set.
func (c *Config) StableSet() map[string]bool {
	set := make(map[string]bool, len(c.Metrics.StableAssets))
	for _, s := range c.Metrics.StableAssets {
		set[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	return set
}

// Airdrop24hFullValue defaults to true.
func (c *Config) Airdrop24hFullValue() bool {
	return c.Metrics.Airdrop24hFullValue == nil || *c.Metrics.Airdrop24hFullValue
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
