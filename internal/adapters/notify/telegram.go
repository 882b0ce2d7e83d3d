package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smm-analytics/internal/domain"
	"smm-analytics/internal/infra/metrics"
)

// Telegram отправляет уведомления владельцу аккаунта через бота.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

var _ domain.Notifier = (*Telegram)(nil)

// NewTelegram создаёт нотификатор. Пустой токен или нулевой chatID
// означают, что уведомления выключены.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return &Telegram{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("инициализация telegram-бота: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Enabled сообщает, настроен ли нотификатор.
func (t *Telegram) Enabled() bool {
	return t.bot != nil
}

// Notify отправляет HTML-сообщение, разбивая его по лимиту Telegram.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if t.bot == nil {
		return nil
	}
	for _, part := range SplitMessage(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		start := time.Now()
		_, err := t.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram", "send_message", fmt.Sprintf("%d", t.chatID), start, err)
		if err != nil {
			return fmt.Errorf("отправка сообщения в telegram: %w", err)
		}
	}
	return nil
}
