package telegram

import (
	"fmt"
	"kalshiwatch/clients/notifier"
	"kalshiwatch/config"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramClient sends alerts to a Telegram chat.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger *zap.Logger
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	token := cfg.Telegram.BotToken
	if token == "" || cfg.Telegram.ChatID == "" {
		logger.Warn("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, Telegram alerts disabled")
		return &TelegramClient{logger: logger}
	}

	chatID, err := strconv.ParseInt(cfg.Telegram.ChatID, 10, 64)
	if err != nil {
		logger.Error("invalid TELEGRAM_CHAT_ID, Telegram alerts disabled", zap.Error(err))
		return &TelegramClient{logger: logger}
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("failed to create telegram bot, Telegram alerts disabled", zap.Error(err))
		return &TelegramClient{logger: logger}
	}

	logger.Info("telegram bot initialized",
		zap.String("chatID", cfg.Telegram.ChatID),
	)

	return &TelegramClient{
		logger: logger,
		bot:    bot,
		chatID: chatID,
	}
}

// IsConfigured reports whether the bot was initialized with valid credentials.
func (tc *TelegramClient) IsConfigured() bool {
	return tc.bot != nil
}

// SendTradeAlert sends a trade alert notification.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendTradeAlert(alert notifier.TradeAlert) {
	if tc.bot == nil {
		tc.logger.Warn("telegram not configured, skipping alert",
			zap.String("market", alert.MarketTicker),
		)
		return
	}

	msg := tgbotapi.NewMessage(tc.chatID, tc.buildAlertMessage(alert))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := tc.bot.Send(msg); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram trade alert",
		zap.String("market", alert.MarketTicker),
		zap.String("risk", string(alert.RiskTier)),
	)
}

func (tc *TelegramClient) buildAlertMessage(alert notifier.TradeAlert) string {
	var sb strings.Builder

	title := tc.buildAlertTitle(alert)
	sb.WriteString(fmt.Sprintf("*%s*\n\n", escapeMarkdown(title)))

	// Market info
	if alert.MarketURL != "" {
		sb.WriteString(fmt.Sprintf("*Market:* [%s](%s)\n", escapeMarkdown(alert.MarketTitle), alert.MarketURL))
	} else {
		sb.WriteString(fmt.Sprintf("*Market:* %s\n", escapeMarkdown(alert.MarketTitle)))
	}

	deadlineName := "event deadline"
	if alert.Window == notifier.WindowPreClose {
		deadlineName = "market close"
	}
	sb.WriteString(fmt.Sprintf("*Timing:* %d minutes before the %s\n", alert.MinutesBefore, deadlineName))
	sb.WriteString(fmt.Sprintf("*Risk:* %s\n\n", string(alert.RiskTier)))

	// Trade details
	sideEmoji := "🟢"
	if alert.Side == "no" {
		sideEmoji = "🔴"
	}
	sb.WriteString(fmt.Sprintf("*Side:* %s %s\n", sideEmoji, alert.Side))
	sb.WriteString(fmt.Sprintf("*Trade:* %d contracts @ %d¢\n", alert.Contracts, alert.PriceCents))
	sb.WriteString(fmt.Sprintf("*Notional:* $%.2f\n\n", alert.Notional))

	if alert.TraderID != "" {
		sb.WriteString(fmt.Sprintf("*Trader:* %s\n", escapeMarkdown(alert.TraderID)))
	}

	categoryStr := alert.Category
	if categoryStr == "" {
		categoryStr = "N/A"
	}
	if alert.HighRiskCategory {
		categoryStr += " ⚠️"
	}
	sb.WriteString(fmt.Sprintf("*Category:* %s\n", escapeMarkdown(categoryStr)))
	sb.WriteString(fmt.Sprintf("*Account:* %s\n", escapeMarkdown(alert.AccountAgeNote)))

	et, _ := time.LoadLocation("America/New_York")
	sb.WriteString(fmt.Sprintf("*Event Time:* %s\n", alert.EventTime.In(et).Format("Jan 2, 3:04 PM MST")))

	// Timestamp
	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	sb.WriteString(fmt.Sprintf("\n_kalshiwatch • %s_", ts.In(et).Format("1/2/2006, 3:04:05PM (MST)")))

	return sb.String()
}

func (tc *TelegramClient) buildAlertTitle(alert notifier.TradeAlert) string {
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

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}

// escapeMarkdown escapes special characters for Telegram Markdown.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
