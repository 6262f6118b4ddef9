package app

import (
	"context"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	clts "kalshiwatch/clients"
	"kalshiwatch/clients/kalshiapi"
	"kalshiwatch/config"

	"go.uber.org/zap"
)

// ensure the live API client satisfies the monitor's dependency
var _ VenueClient = (*kalshiapi.KalshiApiClient)(nil)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

type Runner struct {
	clients      *clts.Clients
	cfg          *config.Config
	tradeMonitor *TradeMonitor
	healthServer *http.Server
	startTime    time.Time
}

// ServiceStats holds comprehensive service statistics.
type ServiceStats struct {
	// Build info
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	// Service info
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	// Monitoring epoch: only trades after this instant can alert
	Epoch string `json:"epoch,omitempty"`

	// Scan cycle info
	Scan struct {
		Interval      string `json:"interval"`
		Scanning      bool   `json:"scanning"`
		LastScanAt    string `json:"last_scan_at,omitempty"`
		LastScanAgo   string `json:"last_scan_ago,omitempty"`
		LastQualified int    `json:"last_qualified"`
		LastAlerts    int    `json:"last_alerts"`
	} `json:"scan"`

	// Dedup ledger occupancy
	Ledger struct {
		Size     int `json:"size"`
		Capacity int `json:"capacity"`
	} `json:"ledger"`

	// Filter stats (trades processed)
	Filters struct {
		MarketsSeen          int `json:"markets_seen"`
		MarketsQualified     int `json:"markets_qualified"`
		TradesExamined       int `json:"trades_examined"`
		SkippedNoTimestamp   int `json:"skipped_no_timestamp"`
		SkippedBeforeEpoch   int `json:"skipped_before_epoch"`
		SkippedLowNotional   int `json:"skipped_low_notional"`
		SkippedDuplicate     int `json:"skipped_duplicate"`
		SkippedOutsideWindow int `json:"skipped_outside_window"`
		CycleErrors          int `json:"cycle_errors"`
		MarketErrors         int `json:"market_errors"`
	} `json:"filters"`

	// Alert stats by risk tier
	Alerts struct {
		Total    int `json:"total"`
		Critical int `json:"critical"`
		High     int `json:"high"`
		Medium   int `json:"medium"`
	} `json:"alerts"`

	// Recent alerts feed
	RecentAlerts []RecentAlertInfo `json:"recent_alerts"`

	// Alert rate (alerts per hour)
	AlertRate float64 `json:"alert_rate"`

	// Last alert info
	LastAlertAt  string `json:"last_alert_at,omitempty"`
	LastAlertAgo string `json:"last_alert_ago,omitempty"`

	// Time-based alert counts
	AlertsLastHour int `json:"alerts_last_hour"`
	AlertsLast24h  int `json:"alerts_last_24h"`

	// Alert history buckets for sparkline (last hour, 12 buckets = 5 min each)
	AlertSparkline []int `json:"alert_sparkline"`

	// Alert timeline (24h, hourly buckets)
	AlertTimeline []int `json:"alert_timeline"`

	// Notification status
	Notifications struct {
		DiscordEnabled  bool   `json:"discord_enabled"`
		TelegramEnabled bool   `json:"telegram_enabled"`
		TelegramChatID  string `json:"telegram_chat_id,omitempty"`
	} `json:"notifications"`

	// Runtime stats
	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
		HeapSys    uint64 `json:"heap_sys"`
		HeapInuse  uint64 `json:"heap_inuse"`
		StackInuse uint64 `json:"stack_inuse"`
		NumGC      uint32 `json:"num_gc"`
		LastGC     string `json:"last_gc,omitempty"`
		GoVersion  string `json:"go_version"`
		NumCPU     int    `json:"num_cpu"`
		GOOS       string `json:"goos"`
		GOARCH     string `json:"goarch"`
	} `json:"runtime"`
}

func NewRunner(clients *clts.Clients, cfg *config.Config) *Runner {
	return &Runner{
		clients:   clients,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	logger := r.clients.Logger
	cfg := r.cfg

	// The monitoring epoch is fixed here and never moves: trades that
	// printed before startup are history, not signals.
	epoch := time.Now()
	ledger := NewSeenLedger(cfg.Monitor.SeenCapacity)

	r.tradeMonitor = NewTradeMonitor(
		logger,
		r.clients.Kalshi,
		r.clients.Notifier,
		cfg.Monitor,
		epoch,
		ledger,
	)

	logger.Info("starting timing-risk monitor",
		zap.Time("epoch", epoch),
		zap.Duration("scanInterval", cfg.Monitor.ScanInterval),
		zap.Duration("warmupDelay", cfg.Monitor.WarmupDelay),
		zap.Float64("minNotional", cfg.Monitor.MinTradeNotional),
		zap.Int("preEventWindowMin", cfg.Monitor.PreEventWindowMin),
		zap.Int("ledgerCapacity", ledger.Capacity()),
	)

	// Start health check server if enabled
	if cfg.HealthServer.Enabled {
		r.startHealthServer(cfg.HealthServer.Port)
		logger.Info("health server started", zap.Int("port", cfg.HealthServer.Port))
	}

	go r.runScanScheduler(ctx)

	<-ctx.Done()
	logger.Info("runner shutting down")

	if r.clients.Notifier != nil {
		if err := r.clients.Notifier.Close(); err != nil {
			logger.Warn("error closing notifiers", zap.Error(err))
		}
	}

	// Shutdown health server
	if r.healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = r.healthServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	return nil
}

// runScanScheduler drives the scan loop: a warm-up pause, one immediate
// cycle, then a fixed-interval ticker until the context ends.
func (r *Runner) runScanScheduler(ctx context.Context) {
	cfg := r.cfg

	// Warm-up so restart loops don't hammer the venue API
	if !sleepCtx(ctx, cfg.Monitor.WarmupDelay) {
		return
	}

	r.tradeMonitor.RunScanCycle(ctx)

	ticker := time.NewTicker(cfg.Monitor.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tradeMonitor.RunScanCycle(ctx)
		}
	}
}

// GetStats returns comprehensive service statistics.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	// Build info
	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	// Service info
	stats.StartTime = r.startTime.UTC().Format(time.RFC3339)
	uptime := time.Since(r.startTime)
	stats.Uptime = uptime.Round(time.Second).String()
	stats.UptimeSec = int64(uptime.Seconds())

	stats.Scan.Interval = r.cfg.Monitor.ScanInterval.String()

	if r.tradeMonitor != nil {
		stats.Epoch = r.tradeMonitor.Epoch().UTC().Format(time.RFC3339)

		stats.Scan.Scanning = r.tradeMonitor.IsScanning()
		lastScan, qualified, alerts := r.tradeMonitor.LastScanInfo()
		if !lastScan.IsZero() {
			stats.Scan.LastScanAt = lastScan.UTC().Format(time.RFC3339)
			stats.Scan.LastScanAgo = time.Since(lastScan).Round(time.Second).String()
		}
		stats.Scan.LastQualified = qualified
		stats.Scan.LastAlerts = alerts

		stats.Ledger.Size = r.tradeMonitor.LedgerSize()
		stats.Ledger.Capacity = r.tradeMonitor.LedgerCapacity()

		fs := r.tradeMonitor.FilterStats()
		stats.Filters.MarketsSeen = fs.MarketsSeen
		stats.Filters.MarketsQualified = fs.MarketsQualified
		stats.Filters.TradesExamined = fs.TradesExamined
		stats.Filters.SkippedNoTimestamp = fs.SkippedNoTimestamp
		stats.Filters.SkippedBeforeEpoch = fs.SkippedBeforeEpoch
		stats.Filters.SkippedLowNotional = fs.SkippedLowNotional
		stats.Filters.SkippedDuplicate = fs.SkippedDuplicate
		stats.Filters.SkippedOutsideWindow = fs.SkippedOutsideWindow
		stats.Filters.CycleErrors = fs.CycleErrors
		stats.Filters.MarketErrors = fs.MarketErrors

		stats.Alerts.Total = fs.AlertsSent
		stats.Alerts.Critical = fs.AlertsCritical
		stats.Alerts.High = fs.AlertsHigh
		stats.Alerts.Medium = fs.AlertsMedium

		stats.RecentAlerts = r.tradeMonitor.RecentAlerts()

		if uptime.Hours() > 0 {
			stats.AlertRate = float64(stats.Alerts.Total) / uptime.Hours()
		}

		lastAlert := r.tradeMonitor.LastAlertTime()
		if !lastAlert.IsZero() {
			stats.LastAlertAt = lastAlert.UTC().Format(time.RFC3339)
			stats.LastAlertAgo = time.Since(lastAlert).Round(time.Second).String()
		}

		stats.AlertsLastHour, stats.AlertsLast24h = r.tradeMonitor.AlertCountsInPeriods()

		// Sparkline data (last hour, 12 buckets = 5 min each)
		stats.AlertSparkline = r.tradeMonitor.AlertHistoryBuckets(1*time.Hour, 12)

		// Timeline data (last 24h, 24 buckets = 1 hour each)
		stats.AlertTimeline = r.tradeMonitor.AlertHistoryBuckets(24*time.Hour, 24)
	}

	// Notification status
	if r.clients.Discord != nil {
		stats.Notifications.DiscordEnabled = r.clients.Discord.IsConfigured()
	}
	if r.clients.Telegram != nil {
		stats.Notifications.TelegramEnabled = r.clients.Telegram.IsConfigured()
		if stats.Notifications.TelegramEnabled {
			stats.Notifications.TelegramChatID = r.cfg.Telegram.ChatID
		}
	}

	// Runtime stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = memStats.HeapAlloc
	stats.Runtime.HeapSys = memStats.HeapSys
	stats.Runtime.HeapInuse = memStats.HeapInuse
	stats.Runtime.StackInuse = memStats.StackInuse
	stats.Runtime.NumGC = memStats.NumGC
	if memStats.LastGC > 0 {
		stats.Runtime.LastGC = time.Unix(0, int64(memStats.LastGC)).UTC().Format(time.RFC3339)
	}
	stats.Runtime.GoVersion = runtime.Version()
	stats.Runtime.NumCPU = runtime.NumCPU()
	stats.Runtime.GOOS = runtime.GOOS
	stats.Runtime.GOARCH = runtime.GOARCH

	return stats
}
