package app

import (
	"context"
	"sync"

	"kalshiwatch/clients/kalshiapi"
	"kalshiwatch/clients/notifier"
)

// mockVenueClient is a mock implementation of VenueClient for testing.
type mockVenueClient struct {
	mu sync.Mutex

	markets    []kalshiapi.Market
	marketsErr error
	trades     map[string][]kalshiapi.Trade
	tradesErr  map[string]error

	marketCalls int
	tradeCalls  []string
}

// newMockVenueClient creates a new mock venue client.
func newMockVenueClient() *mockVenueClient {
	return &mockVenueClient{
		trades:    make(map[string][]kalshiapi.Trade),
		tradesErr: make(map[string]error),
	}
}

// SetMarkets sets the markets returned by GetOpenMarkets.
func (m *mockVenueClient) SetMarkets(markets []kalshiapi.Market) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markets = markets
}

// SetMarketsError makes GetOpenMarkets return an error.
func (m *mockVenueClient) SetMarketsError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marketsErr = err
}

// SetTrades sets the trades returned for a specific ticker.
func (m *mockVenueClient) SetTrades(ticker string, trades []kalshiapi.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[ticker] = trades
}

// SetTradesError makes GetMarketTrades fail for a specific ticker.
func (m *mockVenueClient) SetTradesError(ticker string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tradesErr[ticker] = err
}

// MarketCalls returns how many times GetOpenMarkets was called.
func (m *mockVenueClient) MarketCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marketCalls
}

// TradeCalls returns the tickers GetMarketTrades was called with, in order.
func (m *mockVenueClient) TradeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.tradeCalls))
	copy(result, m.tradeCalls)
	return result
}

// GetOpenMarkets returns the configured markets or error.
func (m *mockVenueClient) GetOpenMarkets(ctx context.Context, limit int) ([]kalshiapi.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marketCalls++
	if m.marketsErr != nil {
		return nil, m.marketsErr
	}
	return m.markets, nil
}

// GetMarketTrades returns the configured trades or error for a ticker.
func (m *mockVenueClient) GetMarketTrades(ctx context.Context, ticker string, limit int) ([]kalshiapi.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tradeCalls = append(m.tradeCalls, ticker)
	if err := m.tradesErr[ticker]; err != nil {
		return nil, err
	}
	return m.trades[ticker], nil
}

// mockNotifier is a mock implementation of notifier.Notifier that records
// every alert it receives.
type mockNotifier struct {
	mu     sync.Mutex
	alerts []notifier.TradeAlert
	closed bool
}

// newMockNotifier creates a new mock notifier.
func newMockNotifier() *mockNotifier {
	return &mockNotifier{}
}

// SendTradeAlert records the alert.
func (m *mockNotifier) SendTradeAlert(alert notifier.TradeAlert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
}

// Close marks the notifier closed.
func (m *mockNotifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// panicNotifier panics on every send, for exercising cycle recovery.
type panicNotifier struct{}

func (p *panicNotifier) SendTradeAlert(alert notifier.TradeAlert) {
	panic("notifier exploded")
}

func (p *panicNotifier) Close() error { return nil }

// Alerts returns a copy of all recorded alerts.
func (m *mockNotifier) Alerts() []notifier.TradeAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]notifier.TradeAlert, len(m.alerts))
	copy(result, m.alerts)
	return result
}

// AlertCount returns the number of recorded alerts.
func (m *mockNotifier) AlertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}
