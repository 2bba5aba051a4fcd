package telegram

import (
	"fmt"
	"math"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/quant-arena/internal/config"
	"github.com/camuig/quant-arena/internal/ledger"
	"github.com/camuig/quant-arena/internal/logger"
	"github.com/camuig/quant-arena/internal/money"
)

type Notifier struct {
	bot       *tgbotapi.BotAPI
	chatID    int64
	minAbsPnL float64
	enabled   bool
	logger    *logger.Logger
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:       bot,
		chatID:    cfg.Telegram.ChatID,
		minAbsPnL: cfg.Telegram.MinAbsPnL,
		enabled:   true,
		logger:    log,
	}
}

// NotifyClose reports a settled trade. Settles below the configured pnl
// threshold stay quiet so a fast tick cadence does not flood the chat.
func (n *Notifier) NotifyClose(t ledger.Trade) {
	if math.Abs(t.RealizedPnL) < n.minAbsPnL {
		return
	}

	emoji := "🔴"
	if t.RealizedPnL > 0 {
		emoji = "💰"
	}
	msg := fmt.Sprintf("%s *%s* closed %s %s\nEntry: %.2f / Exit: %.2f\nSize: %.2f\nP&L: %s",
		emoji, t.AgentID, t.Direction, t.Symbol, t.EntryPrice, t.ExitPrice, t.Size,
		money.FormatSigned(t.RealizedPnL))
	n.send(msg)
}

func (n *Notifier) NotifyError(context string, err error) {
	msg := fmt.Sprintf("⚠️ *Error* [%s]\n%v", context, err)
	n.send(msg)
}

func (n *Notifier) NotifyStatus(message string) {
	n.send(message)
}

func (n *Notifier) send(text string) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
	}
}
