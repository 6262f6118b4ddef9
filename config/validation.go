package config

import (
	"fmt"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateMonitor(&c.Monitor)...)
	errors = append(errors, validateKalshi(&c.Kalshi)...)
	errors = append(errors, validateHealthServer(&c.HealthServer)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateMonitor(m *MonitorConfig) []ValidationError {
	var errors []ValidationError

	if m.ScanInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "monitor.scan_interval",
			Message: "must be at least 1 second",
		})
	}

	if m.WarmupDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.warmup_delay",
			Message: "must be non-negative",
		})
	}

	if m.MinTradeNotional < 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.min_trade_notional",
			Message: "must be non-negative",
		})
	}

	if m.NewAccountAgeDays < 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.new_account_age_days",
			Message: "must be non-negative",
		})
	}

	if m.PreEventWindowMin < 1 {
		errors = append(errors, ValidationError{
			Field:   "monitor.pre_event_window_min",
			Message: "must be at least 1",
		})
	}

	if m.PreCloseWindowMin < 1 {
		errors = append(errors, ValidationError{
			Field:   "monitor.pre_close_window_min",
			Message: "must be at least 1",
		})
	}

	if m.PreAlertLeadMult < 1 {
		errors = append(errors, ValidationError{
			Field:   "monitor.pre_alert_lead_mult",
			Message: "must be at least 1",
		})
	}

	if m.LookaheadHorizon < 1*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "monitor.lookahead_horizon",
			Message: "must be at least 1 minute",
		})
	}

	if m.MarketFetchLimit < 1 || m.MarketFetchLimit > 200 {
		errors = append(errors, ValidationError{
			Field:   "monitor.market_fetch_limit",
			Message: "must be between 1 and 200",
		})
	}

	if m.TradeFetchLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "monitor.trade_fetch_limit",
			Message: "must be at least 1",
		})
	}

	if m.SeenCapacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "monitor.seen_capacity",
			Message: "must be at least 1",
		})
	}

	if m.TradeAlertPause < 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.trade_alert_pause",
			Message: "must be non-negative",
		})
	}

	if m.MarketScanPause < 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.market_scan_pause",
			Message: "must be non-negative",
		})
	}

	return errors
}

func validateKalshi(k *KalshiConfig) []ValidationError {
	var errors []ValidationError

	if k.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "kalshi.base_url",
			Message: "must not be empty",
		})
	}

	if k.RequestTimeout < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "kalshi.request_timeout",
			Message: "must be at least 1 second",
		})
	}

	return errors
}

func validateHealthServer(hs *HealthServerConfig) []ValidationError {
	var errors []ValidationError

	if hs.Port < 1 || hs.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "health_server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", hs.Port),
		})
	}

	return errors
}
