package kalshiapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"kalshiwatch/config"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type KalshiApiClient struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
}

func NewKalshiApiClient(logger *zap.Logger, cfg *config.Config) *KalshiApiClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Kalshi.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &KalshiApiClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(cfg.Kalshi.BaseURL, "/"),
	}
}

// ---- API types ----

// Market represents a market as returned by the Kalshi REST API.
type Market struct {
	Ticker      string `json:"ticker"`
	EventTicker string `json:"event_ticker"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Status      string `json:"status"` // "open", "closed", "settled"
	Category    string `json:"category"`

	YesBid       int64 `json:"yes_bid"`
	YesAsk       int64 `json:"yes_ask"`
	LastPrice    int64 `json:"last_price"`
	Volume       int64 `json:"volume"`
	Volume24H    int64 `json:"volume_24h"`
	OpenInterest int64 `json:"open_interest"`

	OpenTime               string `json:"open_time"`
	CloseTime              string `json:"close_time"`
	ExpirationTime         string `json:"expiration_time"`
	ExpectedExpirationTime string `json:"expected_expiration_time"`
	CanCloseEarly          bool   `json:"can_close_early"`
}

// IsOpen reports whether the market is accepting trades.
func (m *Market) IsOpen() bool {
	return m.Status == "open"
}

// EventDeadline returns the time the underlying event is expected to resolve,
// preferring expected_expiration_time and falling back to expiration_time and
// then close_time. Returns false if none is present or parseable.
func (m *Market) EventDeadline() (time.Time, bool) {
	for _, s := range []string{m.ExpectedExpirationTime, m.ExpirationTime, m.CloseTime} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CloseAt returns the market close time, if present.
func (m *Market) CloseAt() (time.Time, bool) {
	if m.CloseTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, m.CloseTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// WebURL returns a browsable link for the market.
func (m *Market) WebURL() string {
	ref := m.EventTicker
	if ref == "" {
		ref = m.Ticker
	}
	return fmt.Sprintf("https://kalshi.com/markets/%s", strings.ToLower(ref))
}

// Trade represents an executed trade from the public trades feed.
type Trade struct {
	TradeID     string `json:"trade_id"`
	Ticker      string `json:"ticker"`
	Count       int64  `json:"count"`
	YesPrice    int64  `json:"yes_price"`
	NoPrice     int64  `json:"no_price"`
	TakerSide   string `json:"taker_side"` // "yes" or "no"
	TraderID    string `json:"trader_id"`  // empty on the public feed
	CreatedTime string `json:"created_time"`
}

// CreatedAt returns the trade creation timestamp, if present.
func (t *Trade) CreatedAt() (time.Time, bool) {
	if t.CreatedTime == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, t.CreatedTime)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// PriceCents returns the price paid by the taker, in cents, on the side taken.
func (t *Trade) PriceCents() int64 {
	if t.TakerSide == "no" {
		return t.NoPrice
	}
	return t.YesPrice
}

// Notional returns the dollar value of the trade: count * price / 100.
func (t *Trade) Notional() float64 {
	return float64(t.Count) * float64(t.PriceCents()) / 100.0
}

// ---- API calls ----

// GetOpenMarkets fetches up to limit markets filtered server-side to open
// status. The venue caps limit at 200.
func (c *KalshiApiClient) GetOpenMarkets(ctx context.Context, limit int) ([]Market, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("status", "open")

	var resp struct {
		Markets []Market `json:"markets"`
		Cursor  string   `json:"cursor"`
	}
	if err := c.doGet(ctx, "/markets?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("get open markets: %w", err)
	}

	c.logger.Debug("fetched open markets", zap.Int("count", len(resp.Markets)))
	return resp.Markets, nil
}

// GetMarketTrades fetches up to limit most recent trades for a market.
func (c *KalshiApiClient) GetMarketTrades(ctx context.Context, ticker string, limit int) ([]Trade, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is empty")
	}
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Trades []Trade `json:"trades"`
		Cursor string  `json:"cursor"`
	}
	path := fmt.Sprintf("/markets/%s/trades?%s", url.PathEscape(ticker), params.Encode())
	if err := c.doGet(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("get trades for %s: %w", ticker, err)
	}

	return resp.Trades, nil
}

// doGet performs a GET against the venue and decodes the JSON response.
func (c *KalshiApiClient) doGet(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}
