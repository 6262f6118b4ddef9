package notifier

import (
	"time"
)

// RiskTier classifies how close to the event deadline a trade was placed.
type RiskTier string

const (
	RiskTierCritical RiskTier = "critical" // within 15 minutes of the deadline
	RiskTierHigh     RiskTier = "high"     // within 30 minutes
	RiskTierMedium   RiskTier = "medium"   // inside the alert window but further out
)

// AlertWindow indicates which deadline the timing was measured against.
type AlertWindow string

const (
	WindowPreEvent AlertWindow = "pre_event"
	WindowPreClose AlertWindow = "pre_close"
)

// TradeAlert contains all the data needed for a timing-risk alert notification.
type TradeAlert struct {
	// Alert identity
	ID string

	// Market info
	MarketTicker     string
	MarketTitle      string
	MarketURL        string
	Category         string
	HighRiskCategory bool // category matched the configured watch list (informational)

	// Trade info
	Side       string // "yes" or "no"
	Contracts  int64
	PriceCents int64
	Notional   float64
	TraderID   string // empty when the venue does not expose it

	// Account info. The venue exposes no account ages, so this is always the
	// conservative "possibly new" note.
	AccountAgeNote string

	// Timing info
	Window        AlertWindow
	MinutesBefore int
	RiskTier      RiskTier
	EventTime     time.Time
	TradeTime     time.Time

	// Alert metadata
	Timestamp time.Time
}

// Notifier is the interface for sending trade alerts to various channels.
type Notifier interface {
	// SendTradeAlert sends a trade alert notification.
	SendTradeAlert(alert TradeAlert)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts alerts to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// SendTradeAlert sends the alert to all registered notifiers.
func (m *MultiNotifier) SendTradeAlert(alert TradeAlert) {
	for _, n := range m.notifiers {
		n.SendTradeAlert(alert)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
