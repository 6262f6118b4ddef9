package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Discord webhook sink
	Discord DiscordConfig `json:"discord"`

	// Telegram sink
	Telegram TelegramConfig `json:"telegram"`

	// Trade monitoring
	Monitor MonitorConfig `json:"monitor"`

	// Kalshi API
	Kalshi KalshiConfig `json:"kalshi"`

	// Health server
	HealthServer HealthServerConfig `json:"health_server"`
}

// DiscordConfig holds Discord webhook configuration.
type DiscordConfig struct {
	WebhookURL string `json:"-"` // Excluded - env var only (URL embeds the webhook token)
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken string `json:"-"` // Excluded - env var only
	ChatID   string `json:"chat_id"`
}

// MonitorConfig holds trade monitoring configuration.
type MonitorConfig struct {
	ScanInterval time.Duration `json:"scan_interval"` // Period between scan cycles
	WarmupDelay  time.Duration `json:"warmup_delay"`  // Delay before the first scan after startup

	MinTradeNotional  float64 `json:"min_trade_notional"`   // Minimum dollar notional to alert on
	NewAccountAgeDays int     `json:"new_account_age_days"` // Accounts younger than this are "new" (venue exposes no age data; informational only)

	PreEventWindowMin int     `json:"pre_event_window_min"` // Alert window before the event deadline, in minutes
	PreCloseWindowMin int     `json:"pre_close_window_min"` // Alert window before market close, in minutes
	PreAlertLeadMult  float64 `json:"pre_alert_lead_mult"`  // Markets beyond window*mult minutes out are not fetched

	LookaheadHorizon time.Duration `json:"lookahead_horizon"`  // Ignore markets with deadlines further out than this
	MarketFetchLimit int           `json:"market_fetch_limit"` // Max open markets per fetch (venue caps at 200)
	TradeFetchLimit  int           `json:"trade_fetch_limit"`  // Max recent trades per market

	SeenCapacity int `json:"seen_capacity"` // Max alert fingerprints retained before FIFO eviction

	TradeAlertPause time.Duration `json:"trade_alert_pause"` // Pause after each dispatched alert (sink pacing)
	MarketScanPause time.Duration `json:"market_scan_pause"` // Pause between markets within a cycle

	HighRiskCategories []string `json:"high_risk_categories"` // Category keywords flagged on alerts (not a filter)
}

// KalshiConfig holds Kalshi API configuration.
type KalshiConfig struct {
	BaseURL        string        `json:"base_url"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// HealthServerConfig holds health check server configuration.
type HealthServerConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// Clone creates a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	// Deep copy slices
	if c.Monitor.HighRiskCategories != nil {
		clone.Monitor.HighRiskCategories = make([]string, len(c.Monitor.HighRiskCategories))
		copy(clone.Monitor.HighRiskCategories, c.Monitor.HighRiskCategories)
	}
	return &clone
}

// ToJSON serializes the config to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ConfigFromJSON deserializes JSON into a config, merging with base.
func ConfigFromJSON(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	cfg := base.Clone()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		Discord:  DiscordConfig{},
		Telegram: TelegramConfig{},
		Monitor: MonitorConfig{
			ScanInterval:       30 * time.Second,
			WarmupDelay:        30 * time.Second,
			MinTradeNotional:   10000.0,
			NewAccountAgeDays:  7,
			PreEventWindowMin:  60,
			PreCloseWindowMin:  60,
			PreAlertLeadMult:   2.0,
			LookaheadHorizon:   24 * time.Hour,
			MarketFetchLimit:   200,
			TradeFetchLimit:    20,
			SeenCapacity:       5000,
			TradeAlertPause:    2 * time.Second,
			MarketScanPause:    100 * time.Millisecond,
			HighRiskCategories: []string{"economics", "congress", "politics", "fed", "earnings"},
		},
		Kalshi: KalshiConfig{
			BaseURL:        "https://api.elections.kalshi.com/trade-api/v2",
			RequestTimeout: 10 * time.Second,
		},
		HealthServer: HealthServerConfig{
			Enabled: true,
			Port:    8090,
		},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Discord: DiscordConfig{
			WebhookURL: envString("DISCORD_WEBHOOK_URL", ""),
		},

		Telegram: TelegramConfig{
			BotToken: envString("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   envString("TELEGRAM_CHAT_ID", ""),
		},

		Monitor: MonitorConfig{
			ScanInterval:       envDuration("SCAN_INTERVAL", 30*time.Second),
			WarmupDelay:        envDuration("SCAN_WARMUP_DELAY", 30*time.Second),
			MinTradeNotional:   envFloat("MIN_TRADE_NOTIONAL", 10000.0),
			NewAccountAgeDays:  envInt("NEW_ACCOUNT_AGE_DAYS", 7),
			PreEventWindowMin:  envInt("PRE_EVENT_ALERT_WINDOW_MIN", 60),
			PreCloseWindowMin:  envInt("PRE_CLOSE_ALERT_WINDOW_MIN", 60),
			PreAlertLeadMult:   envFloat("PRE_ALERT_LEAD_MULT", 2.0),
			LookaheadHorizon:   envDuration("MARKET_LOOKAHEAD_HORIZON", 24*time.Hour),
			MarketFetchLimit:   envInt("MARKET_FETCH_LIMIT", 200),
			TradeFetchLimit:    envInt("TRADE_FETCH_LIMIT", 20),
			SeenCapacity:       envInt("SEEN_TRADES_CAPACITY", 5000),
			TradeAlertPause:    envDuration("TRADE_ALERT_PAUSE", 2*time.Second),
			MarketScanPause:    envDuration("MARKET_SCAN_PAUSE", 100*time.Millisecond),
			HighRiskCategories: envStringSliceDefault("HIGH_RISK_CATEGORIES", []string{"economics", "congress", "politics", "fed", "earnings"}),
		},

		Kalshi: KalshiConfig{
			BaseURL:        envString("KALSHI_API_BASE_URL", "https://api.elections.kalshi.com/trade-api/v2"),
			RequestTimeout: envDuration("KALSHI_REQUEST_TIMEOUT", 10*time.Second),
		},

		HealthServer: HealthServerConfig{
			Enabled: envBoolDefault("HEALTH_SERVER_ENABLED", true),
			Port:    envInt("HEALTH_SERVER_PORT", 8090),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}

func envStringSlice(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func envStringSliceDefault(key string, defaultVal []string) []string {
	parts := envStringSlice(key)
	if parts == nil {
		return defaultVal
	}
	return parts
}
