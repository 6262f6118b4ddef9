package app

import (
	"context"
	"testing"
	"time"

	"kalshiwatch/clients"
	"kalshiwatch/clients/kalshiapi"
	"kalshiwatch/config"

	"go.uber.org/zap"
)

func testRunnerConfig() *config.Config {
	return &config.Config{
		Monitor: testMonitorConfig(),
		Kalshi: config.KalshiConfig{
			BaseURL:        "http://example.com",
			RequestTimeout: time.Second,
		},
		HealthServer: config.HealthServerConfig{Enabled: false},
	}
}

func TestNewRunner(t *testing.T) {
	cfg := testRunnerConfig()
	clts := clients.NewClients(zap.NewNop(), cfg)

	runner := NewRunner(clts, cfg)

	if runner.clients != clts {
		t.Error("unexpected clients")
	}
	if runner.cfg != cfg {
		t.Error("unexpected config")
	}
	if runner.startTime.IsZero() {
		t.Error("start time should be set")
	}
}

func TestRunner_RunContextCancellation(t *testing.T) {
	cfg := testRunnerConfig()
	// Long warm-up so the scheduler never reaches the venue API
	cfg.Monitor.WarmupDelay = time.Hour

	clts := clients.NewClients(zap.NewNop(), cfg)
	runner := NewRunner(clts, cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	if runner.tradeMonitor == nil {
		t.Error("Run should wire up the trade monitor")
	}
	if runner.tradeMonitor.Epoch().IsZero() {
		t.Error("Run should fix the monitoring epoch")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Run should stop when context is cancelled")
	}
}

func TestRunScanScheduler_FirstCycleAfterWarmup(t *testing.T) {
	cfg := testRunnerConfig()
	cfg.Monitor.WarmupDelay = 10 * time.Millisecond
	cfg.Monitor.ScanInterval = time.Hour

	venue := newMockVenueClient()
	clts := clients.NewClients(zap.NewNop(), cfg)
	runner := NewRunner(clts, cfg)
	runner.tradeMonitor = NewTradeMonitor(zap.NewNop(), venue, newMockNotifier(), cfg.Monitor, time.Now(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		runner.runScanScheduler(ctx)
		close(done)
	}()

	// The first scan should fire right after warm-up, not an interval later
	deadline := time.Now().Add(2 * time.Second)
	for venue.MarketCalls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first scan cycle never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if calls := venue.MarketCalls(); calls != 1 {
		t.Errorf("expected exactly 1 scan before the first tick, got %d", calls)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("scheduler should stop when context is cancelled")
	}
}

func TestRunScanScheduler_CancelDuringWarmup(t *testing.T) {
	cfg := testRunnerConfig()
	cfg.Monitor.WarmupDelay = time.Hour

	venue := newMockVenueClient()
	clts := clients.NewClients(zap.NewNop(), cfg)
	runner := NewRunner(clts, cfg)
	runner.tradeMonitor = NewTradeMonitor(zap.NewNop(), venue, newMockNotifier(), cfg.Monitor, time.Now(), nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		runner.runScanScheduler(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("scheduler should abort the warm-up on cancellation")
	}
	if venue.MarketCalls() != 0 {
		t.Error("no scan should run when cancelled during warm-up")
	}
}

func TestGetStats(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	epoch := now.Add(-1 * time.Hour)
	deadline := now.Add(40 * time.Minute)

	venue := newMockVenueClient()
	venue.SetMarkets([]kalshiapi.Market{testMarket("FED-24DEC", deadline)})
	venue.SetTrades("FED-24DEC", []kalshiapi.Trade{testTrade("t1", 30000, 50, now)})

	cfg := testRunnerConfig()
	clts := clients.NewClients(zap.NewNop(), cfg)
	runner := NewRunner(clts, cfg)
	runner.tradeMonitor = NewTradeMonitor(zap.NewNop(), venue, newMockNotifier(), cfg.Monitor, epoch, nil)
	runner.tradeMonitor.RunScanCycle(context.Background())

	stats := runner.GetStats()

	if stats.Build.GoVersion == "" {
		t.Error("go version should be set")
	}
	if stats.Uptime == "" {
		t.Error("uptime should be set")
	}
	if stats.Epoch == "" {
		t.Error("epoch should be reported")
	}
	if stats.Scan.Interval != "30s" {
		t.Errorf("expected 30s scan interval, got %s", stats.Scan.Interval)
	}
	if stats.Scan.LastScanAt == "" {
		t.Error("last scan time should be reported after a cycle")
	}
	if stats.Alerts.Total != 1 || stats.Alerts.Medium != 1 {
		t.Errorf("expected 1 medium alert, got total=%d medium=%d", stats.Alerts.Total, stats.Alerts.Medium)
	}
	if stats.Ledger.Size != 1 {
		t.Errorf("expected 1 ledger entry, got %d", stats.Ledger.Size)
	}
	if stats.Ledger.Capacity != 5000 {
		t.Errorf("expected ledger capacity 5000, got %d", stats.Ledger.Capacity)
	}
	if len(stats.RecentAlerts) != 1 {
		t.Errorf("expected 1 recent alert, got %d", len(stats.RecentAlerts))
	}
	if stats.AlertsLastHour != 1 || stats.AlertsLast24h != 1 {
		t.Errorf("expected 1 alert in both periods, got hour=%d day=%d", stats.AlertsLastHour, stats.AlertsLast24h)
	}
	if len(stats.AlertSparkline) != 12 {
		t.Errorf("expected 12 sparkline buckets, got %d", len(stats.AlertSparkline))
	}
	if len(stats.AlertTimeline) != 24 {
		t.Errorf("expected 24 timeline buckets, got %d", len(stats.AlertTimeline))
	}
	if stats.LastAlertAt == "" {
		t.Error("last alert time should be reported")
	}
	if stats.Notifications.DiscordEnabled || stats.Notifications.TelegramEnabled {
		t.Error("unconfigured sinks should report disabled")
	}
	if stats.Runtime.Goroutines <= 0 {
		t.Error("goroutine count should be positive")
	}
}

func TestGetStats_BeforeRun(t *testing.T) {
	cfg := testRunnerConfig()
	clts := clients.NewClients(zap.NewNop(), cfg)
	runner := NewRunner(clts, cfg)

	// Must not panic before Run wires up the monitor
	stats := runner.GetStats()

	if stats.Epoch != "" {
		t.Error("epoch should be empty before Run")
	}
	if stats.Alerts.Total != 0 {
		t.Errorf("expected no alerts, got %d", stats.Alerts.Total)
	}
	if stats.Scan.Interval != "30s" {
		t.Errorf("scan interval should come from config, got %s", stats.Scan.Interval)
	}
}
