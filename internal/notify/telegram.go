// Package notify delivers run summaries to the operator over Telegram.
package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxMsgLen      = 4000
	maxSendRetries = 3
)

// Notifier receives one-line operator notifications. Implementations must
// tolerate being called from background goroutines.
type Notifier interface {
	Notify(text string)
}

// Noop discards notifications. Used when no bot token is configured.
type Noop struct{}

func (Noop) Notify(string) {}

// Telegram pushes notifications to a single chat via the Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

type TelegramConfig struct {
	Token  string
	ChatID int64
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	cfg.Logger.Info("telegram notifier connected", "username", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: cfg.ChatID, logger: cfg.Logger}, nil
}

// Notify delivers text to the configured chat. Telegram caps messages at
// 4096 chars, so long text is split on newlines.
func (t *Telegram) Notify(text string) {
	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxMsgLen {
			cutAt := strings.LastIndex(chunk[:maxMsgLen], "\n")
			if cutAt < maxMsgLen/2 {
				cutAt = maxMsgLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}
		t.sendChunk(chunk)
	}
}

// sendChunk sends one chunk, backing off on Telegram rate limits.
func (t *Telegram) sendChunk(text string) {
	for attempt := 0; attempt <= maxSendRetries; attempt++ {
		_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text))
		if err == nil {
			return
		}
		if strings.Contains(err.Error(), "Too Many Requests") || strings.Contains(err.Error(), "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off", "retry_after", retryAfter)
			time.Sleep(retryAfter)
			continue
		}
		t.logger.Error("telegram notify failed", "err", err)
		return
	}
}
