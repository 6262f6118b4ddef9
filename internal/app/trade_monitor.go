package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"kalshiwatch/clients/kalshiapi"
	"kalshiwatch/clients/notifier"
	"kalshiwatch/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VenueClient defines the venue API methods needed by TradeMonitor.
type VenueClient interface {
	GetOpenMarkets(ctx context.Context, limit int) ([]kalshiapi.Market, error)
	GetMarketTrades(ctx context.Context, ticker string, limit int) ([]kalshiapi.Trade, error)
}

// The venue exposes no account ages, so every alert carries the same
// conservative note derived from the configured threshold.
func accountAgeNote(maxAgeDays int) string {
	return fmt.Sprintf("possibly new (age unknown, assuming under %d days)", maxAgeDays)
}

// How many alerts the dashboard feed retains.
const recentAlertsLimit = 50

// TradeMonitor scans open markets approaching their deadline and alerts on
// large trades placed shortly before it.
type TradeMonitor struct {
	logger   *zap.Logger
	venue    VenueClient
	notifier notifier.Notifier
	cfg      config.MonitorConfig

	// Trades at or before the epoch are never alerted on, so a restart
	// cannot replay history.
	epoch  time.Time
	ledger *SeenLedger

	// Single-flight guard for scan cycles
	scanMu   sync.Mutex
	scanning bool

	// Filter stats for debugging
	filterStatsMu        sync.Mutex
	marketsSeen          int
	marketsQualified     int
	tradesExamined       int
	skippedNoTimestamp   int
	skippedBeforeEpoch   int
	skippedLowNotional   int
	skippedDuplicate     int
	skippedOutsideWindow int
	alertsSent           int
	alertsCritical       int
	alertsHigh           int
	alertsMedium         int
	cycleErrors          int
	marketErrors         int

	// Recent alerts for dashboard feed
	recentAlertsMu sync.RWMutex
	recentAlerts   []RecentAlertInfo

	// Last alert timestamp
	lastAlertTimeMu sync.RWMutex
	lastAlertTime   time.Time

	// Alert history with timestamps for sparkline/timeline (last 24h)
	alertHistoryMu sync.RWMutex
	alertHistory   []time.Time

	// Last completed scan cycle
	lastScanMu        sync.RWMutex
	lastScanTime      time.Time
	lastScanQualified int
	lastScanAlerts    int
}

// RecentAlertInfo holds summary info for a recent alert.
type RecentAlertInfo struct {
	Timestamp     time.Time `json:"timestamp"`
	MarketTicker  string    `json:"market_ticker"`
	MarketTitle   string    `json:"market_title"`
	MarketURL     string    `json:"market_url"`
	Category      string    `json:"category"`
	Side          string    `json:"side"`
	Contracts     int64     `json:"contracts"`
	PriceCents    int64     `json:"price_cents"`
	Notional      float64   `json:"notional"`
	MinutesBefore int       `json:"minutes_before"`
	RiskTier      string    `json:"risk_tier"`
	EventTime     time.Time `json:"event_time"`
	TradeTime     time.Time `json:"trade_time"`
}

// NewTradeMonitor creates a new trade monitor. The epoch and ledger are owned
// by the caller so they survive config reloads and can be inspected by the
// stats surface.
func NewTradeMonitor(
	logger *zap.Logger,
	venue VenueClient,
	notif notifier.Notifier,
	cfg config.MonitorConfig,
	epoch time.Time,
	ledger *SeenLedger,
) *TradeMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ledger == nil {
		ledger = NewSeenLedger(cfg.SeenCapacity)
	}

	return &TradeMonitor{
		logger:       logger,
		venue:        venue,
		notifier:     notif,
		cfg:          cfg,
		epoch:        epoch,
		ledger:       ledger,
		recentAlerts: make([]RecentAlertInfo, 0, recentAlertsLimit),
		alertHistory: make([]time.Time, 0, 1000),
	}
}

// Epoch returns the monitoring epoch.
func (tm *TradeMonitor) Epoch() time.Time {
	return tm.epoch
}

// LedgerSize returns the number of fingerprints currently in the dedup ledger.
func (tm *TradeMonitor) LedgerSize() int {
	return tm.ledger.Len()
}

// LedgerCapacity returns the dedup ledger capacity.
func (tm *TradeMonitor) LedgerCapacity() int {
	return tm.ledger.Capacity()
}

// IsScanning reports whether a scan cycle is currently in flight.
func (tm *TradeMonitor) IsScanning() bool {
	tm.scanMu.Lock()
	defer tm.scanMu.Unlock()
	return tm.scanning
}

// RunScanCycle performs one pass over open markets near their deadline.
// Overlapping calls are skipped so a slow pass never stacks.
func (tm *TradeMonitor) RunScanCycle(ctx context.Context) {
	tm.scanMu.Lock()
	if tm.scanning {
		tm.scanMu.Unlock()
		tm.logger.Warn("previous scan still running, skipping cycle")
		return
	}
	tm.scanning = true
	tm.scanMu.Unlock()
	defer func() {
		tm.scanMu.Lock()
		tm.scanning = false
		tm.scanMu.Unlock()
	}()
	defer func() {
		if rec := recover(); rec != nil {
			tm.logger.Error("scan cycle panicked", zap.Any("panic", rec))
			tm.filterStatsMu.Lock()
			tm.cycleErrors++
			tm.filterStatsMu.Unlock()
		}
	}()

	started := time.Now()

	markets, err := tm.venue.GetOpenMarkets(ctx, tm.cfg.MarketFetchLimit)
	if err != nil {
		tm.logger.Warn("failed to fetch open markets, ending cycle", zap.Error(err))
		tm.filterStatsMu.Lock()
		tm.cycleErrors++
		tm.filterStatsMu.Unlock()
		return
	}

	tm.filterStatsMu.Lock()
	tm.marketsSeen += len(markets)
	tm.filterStatsMu.Unlock()

	now := time.Now()
	qualified := 0
	alerts := 0
	for _, market := range markets {
		if ctx.Err() != nil {
			return
		}

		deadline, ok := tm.qualifyMarket(market, now)
		if !ok {
			continue
		}
		qualified++
		tm.filterStatsMu.Lock()
		tm.marketsQualified++
		tm.filterStatsMu.Unlock()

		alerts += tm.scanMarket(ctx, market, deadline)

		sleepCtx(ctx, tm.cfg.MarketScanPause)
	}

	tm.lastScanMu.Lock()
	tm.lastScanTime = started
	tm.lastScanQualified = qualified
	tm.lastScanAlerts = alerts
	tm.lastScanMu.Unlock()

	tm.logger.Info("scan cycle complete",
		zap.Int("markets", len(markets)),
		zap.Int("qualified", qualified),
		zap.Int("alerts", alerts),
		zap.Duration("took", time.Since(started)),
	)
}

// qualifyMarket decides whether a market is close enough to its deadline to
// be worth scanning. Returns the deadline when it qualifies.
func (tm *TradeMonitor) qualifyMarket(market kalshiapi.Market, now time.Time) (time.Time, bool) {
	if !market.IsOpen() {
		return time.Time{}, false
	}

	deadline, ok := market.EventDeadline()
	if !ok {
		return time.Time{}, false
	}

	mins := minutesUntil(now, deadline)
	if mins < 0 {
		return time.Time{}, false
	}
	if deadline.Sub(now) > tm.cfg.LookaheadHorizon {
		return time.Time{}, false
	}
	// Only markets within a small multiple of the alert window are worth
	// fetching trades for; anything further out cannot produce an alert yet.
	if float64(mins) > float64(tm.cfg.PreEventWindowMin)*tm.cfg.PreAlertLeadMult {
		return time.Time{}, false
	}

	return deadline, true
}

// scanMarket fetches recent trades for one market and dispatches alerts for
// the ones that pass every filter. Returns the number of alerts sent.
func (tm *TradeMonitor) scanMarket(ctx context.Context, market kalshiapi.Market, deadline time.Time) int {
	trades, err := tm.venue.GetMarketTrades(ctx, market.Ticker, tm.cfg.TradeFetchLimit)
	if err != nil {
		tm.logger.Warn("failed to fetch trades",
			zap.String("market", market.Ticker),
			zap.Error(err),
		)
		tm.filterStatsMu.Lock()
		tm.marketErrors++
		tm.filterStatsMu.Unlock()
		return 0
	}

	highRisk := tm.categoryWatched(market.Category)
	sent := 0
	for _, trade := range trades {
		if ctx.Err() != nil {
			return sent
		}

		tm.filterStatsMu.Lock()
		tm.tradesExamined++
		tm.filterStatsMu.Unlock()

		createdAt, ok := trade.CreatedAt()
		if !ok {
			tm.filterStatsMu.Lock()
			tm.skippedNoTimestamp++
			tm.filterStatsMu.Unlock()
			continue
		}

		// Strictly after the epoch: trades from before startup never alert
		if !createdAt.After(tm.epoch) {
			tm.filterStatsMu.Lock()
			tm.skippedBeforeEpoch++
			tm.filterStatsMu.Unlock()
			continue
		}

		notional := trade.Notional()
		if notional < tm.cfg.MinTradeNotional {
			tm.filterStatsMu.Lock()
			tm.skippedLowNotional++
			tm.filterStatsMu.Unlock()
			continue
		}

		side := strings.ToLower(trade.TakerSide)
		fingerprint := alertFingerprint(market.Ticker, fingerprintTrader(trade), notional, createdAt, side)
		if tm.ledger.Contains(fingerprint) {
			tm.filterStatsMu.Lock()
			tm.skippedDuplicate++
			tm.filterStatsMu.Unlock()
			continue
		}

		timing, ok := evaluateTiming(createdAt, deadline, notifier.WindowPreEvent, tm.cfg.PreEventWindowMin)
		if !ok {
			tm.filterStatsMu.Lock()
			tm.skippedOutsideWindow++
			tm.filterStatsMu.Unlock()
			continue
		}

		alert := notifier.TradeAlert{
			ID:               uuid.NewString(),
			MarketTicker:     market.Ticker,
			MarketTitle:      nz(market.Title, market.Ticker),
			MarketURL:        market.WebURL(),
			Category:         market.Category,
			HighRiskCategory: highRisk,
			Side:             side,
			Contracts:        trade.Count,
			PriceCents:       trade.PriceCents(),
			Notional:         notional,
			TraderID:         trade.TraderID,
			AccountAgeNote:   accountAgeNote(tm.cfg.NewAccountAgeDays),
			Window:           timing.Window,
			MinutesBefore:    timing.MinutesBefore,
			RiskTier:         timing.Risk,
			EventTime:        deadline,
			TradeTime:        createdAt,
			Timestamp:        time.Now(),
		}

		tm.sendAlert(alert)
		tm.ledger.Record(fingerprint)
		sent++

		// Pace alert delivery so notification channels don't rate-limit us
		sleepCtx(ctx, tm.cfg.TradeAlertPause)
	}

	return sent
}

// alertFingerprint identifies a trade for dedup. The notional lane is floored
// to a $100 bucket so near-identical fills collapse into one alert.
func alertFingerprint(ticker, trader string, notional float64, tradeTime time.Time, side string) string {
	bucket := int(math.Floor(notional/100)) * 100
	day := tradeTime.UTC().Format("2006-01-02")
	return fmt.Sprintf("%s|%s|%d|%s|%s", ticker, trader, bucket, day, side)
}

// fingerprintTrader picks the trader lane for the fingerprint. The public
// trades feed often omits trader ids; the venue trade id stands in so distinct
// anonymous fills don't collapse into one fingerprint.
func fingerprintTrader(trade kalshiapi.Trade) string {
	if trade.TraderID != "" {
		return trade.TraderID
	}
	return trade.TradeID
}

// categoryWatched reports whether the market category is on the configured
// watch list. Informational only; it never gates an alert.
func (tm *TradeMonitor) categoryWatched(category string) bool {
	for _, c := range tm.cfg.HighRiskCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

func (tm *TradeMonitor) sendAlert(alert notifier.TradeAlert) {
	tm.filterStatsMu.Lock()
	tm.alertsSent++
	switch alert.RiskTier {
	case notifier.RiskTierCritical:
		tm.alertsCritical++
	case notifier.RiskTierHigh:
		tm.alertsHigh++
	case notifier.RiskTierMedium:
		tm.alertsMedium++
	}
	tm.filterStatsMu.Unlock()

	// Track recent alerts for the dashboard feed
	info := RecentAlertInfo{
		Timestamp:     alert.Timestamp,
		MarketTicker:  alert.MarketTicker,
		MarketTitle:   alert.MarketTitle,
		MarketURL:     alert.MarketURL,
		Category:      alert.Category,
		Side:          alert.Side,
		Contracts:     alert.Contracts,
		PriceCents:    alert.PriceCents,
		Notional:      alert.Notional,
		MinutesBefore: alert.MinutesBefore,
		RiskTier:      string(alert.RiskTier),
		EventTime:     alert.EventTime,
		TradeTime:     alert.TradeTime,
	}
	tm.recentAlertsMu.Lock()
	tm.recentAlerts = append([]RecentAlertInfo{info}, tm.recentAlerts...)
	if len(tm.recentAlerts) > recentAlertsLimit {
		tm.recentAlerts = tm.recentAlerts[:recentAlertsLimit]
	}
	tm.recentAlertsMu.Unlock()

	// Track last alert time
	now := time.Now()
	tm.lastAlertTimeMu.Lock()
	tm.lastAlertTime = now
	tm.lastAlertTimeMu.Unlock()

	// Track alert history for sparkline/timeline (keep last 24h)
	tm.alertHistoryMu.Lock()
	tm.alertHistory = append(tm.alertHistory, now)
	cutoff := now.Add(-24 * time.Hour)
	startIdx := 0
	for i, t := range tm.alertHistory {
		if t.After(cutoff) {
			startIdx = i
			break
		}
	}
	if startIdx > 0 {
		tm.alertHistory = tm.alertHistory[startIdx:]
	}
	tm.alertHistoryMu.Unlock()

	// Log the alert
	tm.logger.Info("TRADE ALERT",
		zap.String("id", alert.ID),
		zap.String("market", alert.MarketTicker),
		zap.String("trader", shortID(alert.TraderID)),
		zap.String("side", alert.Side),
		zap.Int64("contracts", alert.Contracts),
		zap.Int64("priceCents", alert.PriceCents),
		zap.Float64("notional", alert.Notional),
		zap.Int("minutesBefore", alert.MinutesBefore),
		zap.String("risk", string(alert.RiskTier)),
		zap.Time("eventTime", alert.EventTime),
	)

	// Send to all registered notifiers
	if tm.notifier != nil {
		tm.notifier.SendTradeAlert(alert)
	}
}

// FilterStats holds filter statistics for debugging.
type FilterStats struct {
	MarketsSeen          int `json:"markets_seen"`
	MarketsQualified     int `json:"markets_qualified"`
	TradesExamined       int `json:"trades_examined"`
	SkippedNoTimestamp   int `json:"skipped_no_timestamp"`
	SkippedBeforeEpoch   int `json:"skipped_before_epoch"`
	SkippedLowNotional   int `json:"skipped_low_notional"`
	SkippedDuplicate     int `json:"skipped_duplicate"`
	SkippedOutsideWindow int `json:"skipped_outside_window"`
	AlertsSent           int `json:"alerts_sent"`
	AlertsCritical       int `json:"alerts_critical"`
	AlertsHigh           int `json:"alerts_high"`
	AlertsMedium         int `json:"alerts_medium"`
	CycleErrors          int `json:"cycle_errors"`
	MarketErrors         int `json:"market_errors"`
}

// FilterStats returns the current filter statistics.
func (tm *TradeMonitor) FilterStats() FilterStats {
	tm.filterStatsMu.Lock()
	defer tm.filterStatsMu.Unlock()
	return FilterStats{
		MarketsSeen:          tm.marketsSeen,
		MarketsQualified:     tm.marketsQualified,
		TradesExamined:       tm.tradesExamined,
		SkippedNoTimestamp:   tm.skippedNoTimestamp,
		SkippedBeforeEpoch:   tm.skippedBeforeEpoch,
		SkippedLowNotional:   tm.skippedLowNotional,
		SkippedDuplicate:     tm.skippedDuplicate,
		SkippedOutsideWindow: tm.skippedOutsideWindow,
		AlertsSent:           tm.alertsSent,
		AlertsCritical:       tm.alertsCritical,
		AlertsHigh:           tm.alertsHigh,
		AlertsMedium:         tm.alertsMedium,
		CycleErrors:          tm.cycleErrors,
		MarketErrors:         tm.marketErrors,
	}
}

// RecentAlerts returns the most recent alerts, newest first.
func (tm *TradeMonitor) RecentAlerts() []RecentAlertInfo {
	tm.recentAlertsMu.RLock()
	defer tm.recentAlertsMu.RUnlock()
	result := make([]RecentAlertInfo, len(tm.recentAlerts))
	copy(result, tm.recentAlerts)
	return result
}

// LastAlertTime returns the time of the last alert sent.
func (tm *TradeMonitor) LastAlertTime() time.Time {
	tm.lastAlertTimeMu.RLock()
	defer tm.lastAlertTimeMu.RUnlock()
	return tm.lastAlertTime
}

// LastScanInfo returns when the last scan cycle finished, how many markets
// qualified, and how many alerts it produced.
func (tm *TradeMonitor) LastScanInfo() (time.Time, int, int) {
	tm.lastScanMu.RLock()
	defer tm.lastScanMu.RUnlock()
	return tm.lastScanTime, tm.lastScanQualified, tm.lastScanAlerts
}

// AlertCountsInPeriods returns alert counts for the last hour and day.
func (tm *TradeMonitor) AlertCountsInPeriods() (hour, day int) {
	tm.alertHistoryMu.RLock()
	defer tm.alertHistoryMu.RUnlock()

	now := time.Now()
	hourCutoff := now.Add(-1 * time.Hour)
	dayCutoff := now.Add(-24 * time.Hour)

	for _, t := range tm.alertHistory {
		if t.After(hourCutoff) {
			hour++
		}
		if t.After(dayCutoff) {
			day++
		}
	}
	return
}

// AlertHistoryBuckets returns alert counts bucketed by time intervals for
// the dashboard sparkline, from oldest to newest.
func (tm *TradeMonitor) AlertHistoryBuckets(duration time.Duration, buckets int) []int {
	tm.alertHistoryMu.RLock()
	defer tm.alertHistoryMu.RUnlock()

	now := time.Now()
	bucketDuration := duration / time.Duration(buckets)
	result := make([]int, buckets)

	for _, t := range tm.alertHistory {
		age := now.Sub(t)
		if age < 0 || age > duration {
			continue
		}
		bucketIdx := int(age / bucketDuration)
		if bucketIdx >= buckets {
			bucketIdx = buckets - 1
		}
		// Reverse index so newest is at the end
		result[buckets-1-bucketIdx]++
	}

	return result
}
