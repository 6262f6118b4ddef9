package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"kalshiwatch/clients/notifier"
	"kalshiwatch/config"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordClient sends alerts to a Discord webhook.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger     *zap.Logger
	httpClient *http.Client
	webhookURL string
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	webhookURL := cfg.Discord.WebhookURL
	if webhookURL == "" {
		logger.Warn("DISCORD_WEBHOOK_URL not set, Discord alerts disabled")
		return &DiscordClient{
			logger: logger,
		}
	}

	logger.Info("discord webhook initialized")

	return &DiscordClient{
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

// IsConfigured reports whether a webhook URL was provided.
func (dc *DiscordClient) IsConfigured() bool {
	return dc.httpClient != nil
}

// SendTradeAlert sends a rich embedded trade alert to the webhook.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendTradeAlert(alert notifier.TradeAlert) {
	if dc.httpClient == nil {
		dc.logger.Warn("discord webhook not configured, skipping alert",
			zap.String("market", alert.MarketTicker),
		)
		return
	}

	embed := dc.buildTradeEmbed(alert)

	if err := dc.sendEmbed(embed); err != nil {
		dc.logger.Error("failed to send discord alert", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord trade alert",
		zap.String("market", alert.MarketTicker),
		zap.String("risk", string(alert.RiskTier)),
	)
}

func (dc *DiscordClient) sendEmbed(embed *discordgo.MessageEmbed) error {
	params := discordgo.WebhookParams{
		Username: "kalshiwatch",
		Embeds:   []*discordgo.MessageEmbed{embed},
	}

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, dc.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := dc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook status=%d body=%s", resp.StatusCode, string(respBody))
	}

	return nil
}

func (dc *DiscordClient) buildTradeEmbed(alert notifier.TradeAlert) *discordgo.MessageEmbed {
	// Choose color based on risk tier
	color := 0xF1C40F // Yellow for medium
	switch alert.RiskTier {
	case notifier.RiskTierCritical:
		color = 0xE74C3C // Red
	case notifier.RiskTierHigh:
		color = 0xE67E22 // Orange
	}

	sideEmoji := "🟢"
	if alert.Side == "no" {
		sideEmoji = "🔴"
	}

	title := dc.buildAlertTitle(alert)

	deadlineName := "event deadline"
	if alert.Window == notifier.WindowPreClose {
		deadlineName = "market close"
	}
	description := fmt.Sprintf("**%s**\n%d minutes before the %s",
		alert.MarketTitle, alert.MinutesBefore, deadlineName)

	et, _ := time.LoadLocation("America/New_York")

	categoryStr := alert.Category
	if categoryStr == "" {
		categoryStr = "N/A"
	}
	if alert.HighRiskCategory {
		categoryStr += " ⚠️"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Side",
			Value:  fmt.Sprintf("%s %s", sideEmoji, alert.Side),
			Inline: true,
		},
		{
			Name:   "Trade",
			Value:  fmt.Sprintf("%d contracts @ %d¢", alert.Contracts, alert.PriceCents),
			Inline: true,
		},
		{
			Name:   "Notional",
			Value:  fmt.Sprintf("$%.2f", alert.Notional),
			Inline: true,
		},
		{
			Name:   "Risk",
			Value:  string(alert.RiskTier),
			Inline: true,
		},
		{
			Name:   "Event Time",
			Value:  alert.EventTime.In(et).Format("Jan 2, 3:04 PM MST"),
			Inline: true,
		},
		{
			Name:   "Trade Time",
			Value:  alert.TradeTime.In(et).Format("Jan 2, 3:04:05 PM MST"),
			Inline: true,
		},
		{
			Name:   "Category",
			Value:  categoryStr,
			Inline: true,
		},
		{
			Name:   "Account",
			Value:  alert.AccountAgeNote,
			Inline: true,
		},
	}

	if alert.TraderID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Trader",
			Value:  alert.TraderID,
			Inline: true,
		})
	}

	// Format timestamp for footer (ET, Kalshi's home timezone)
	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	footerText := fmt.Sprintf("kalshiwatch * %s", ts.In(et).Format("1/2/2006, 3:04:05PM (MST)"))

	return &discordgo.MessageEmbed{
		Title:       title,
		URL:         alert.MarketURL, // Makes title clickable
		Description: description,
		Color:       color,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: footerText,
		},
		Timestamp: ts.Format(time.RFC3339),
	}
}

func (dc *DiscordClient) buildAlertTitle(alert notifier.TradeAlert) string {
	deadline := "Event"
	if alert.Window == notifier.WindowPreClose {
		deadline = "Close"
	}

	switch alert.RiskTier {
	case notifier.RiskTierCritical:
		return fmt.Sprintf("🚨 Last-Minute Trade Before %s", deadline)
	case notifier.RiskTierHigh:
		return fmt.Sprintf("⚠️ Late Trade Before %s", deadline)
	default:
		return fmt.Sprintf("⏰ Pre-%s Large Trade", deadline)
	}
}

// Close is a no-op; the webhook transport holds no connection state.
func (dc *DiscordClient) Close() error {
	return nil
}
