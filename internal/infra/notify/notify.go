// Package notify отправляет служебные сообщения в админ-чат Telegram.
package notify

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram шлёт в один чат и дополнительные chat_id без повторов.
type Telegram struct {
	api   sender
	chats []int64
	log   *slog.Logger
}

func NewTelegram(token string, adminChat int64, log *slog.Logger, extra ...int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newTelegram(api, append([]int64{adminChat}, extra...), log), nil
}

func newTelegram(api sender, chats []int64, log *slog.Logger) *Telegram {
	return &Telegram{api: api, chats: chats, log: log}
}

// Notify не останавливается на первой ошибке, возвращает последнюю.
func (t *Telegram) Notify(_ context.Context, text string) error {
	var last error
	sent := map[int64]struct{}{}
	for _, chatID := range t.chats {
		if chatID == 0 {
			continue
		}
		if _, ok := sent[chatID]; ok {
			continue
		}
		if _, err := t.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			t.log.Error("send failed", "chat_id", chatID, "err", err)
			last = err
			continue
		}
		sent[chatID] = struct{}{}
	}
	return last
}

// Log пишет сообщение в журнал. Используется, когда токен бота не задан.
type Log struct{ L *slog.Logger }

func (n Log) Notify(_ context.Context, text string) error {
	n.L.Info("notification", "text", text)
	return nil
}
