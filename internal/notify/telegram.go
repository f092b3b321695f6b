package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramMessageLimit = 4096

// Telegram sends reports to one chat through a bot.
type Telegram struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
}

// NewTelegram authorizes the bot. An empty endpoint means the public API.
func NewTelegram(token, chatID, endpoint string, client *http.Client) (*Telegram, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("invalid chat ID: %q", chatID)
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	return &Telegram{Bot: bot, ChatID: id}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, r Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The hint is free model output; the rest of the body is our own markup.
	r.Hint = tgbotapi.EscapeText(tgbotapi.ModeMarkdown, r.Hint)
	text := fmt.Sprintf("*%s*\n\n%s\n\n_%s_", r.Title(), r.Body(), r.SentAt.Format(SentAtLayout))
	msg := tgbotapi.NewMessage(t.ChatID, clip(text, telegramMessageLimit))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	_, err := t.Bot.Send(msg)
	return err
}
