package bot

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// TelegramSender отправляет ответы через Bot API.
type TelegramSender struct {
	api *telego.Bot
}

// NewSender создаёт отправителя.
func NewSender(api *telego.Bot) *TelegramSender {
	return &TelegramSender{api: api}
}

// SendMessage отправляет текст в чат. Ошибка отправки только логируется:
// игроку о ней всё равно не сообщить.
func (s *TelegramSender) SendMessage(ctx context.Context, chatID int64, text string) {
	if _, err := s.api.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
