// Package filters решает, в каких чатах бот принимает команды.
package filters

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает сообщения из игрового чата и из лички.
type ChatFilter struct {
	gameChatID int64
}

func NewChatFilter(gameChatID int64) *ChatFilter {
	return &ChatFilter{gameChatID: gameChatID}
}

func (f *ChatFilter) CheckAccess(message *telego.Message) bool {
	if message == nil {
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("deny: нет отправителя (канал или служебное сообщение)")
		return false
	}
	if message.From.IsBot {
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"user_id":   message.From.ID,
	})

	switch {
	case message.Chat.ID == f.gameChatID:
		return true
	case message.Chat.Type == telego.ChatTypePrivate:
		logger.Debug("allow: личка")
		return true
	default:
		logger.Debug("deny: посторонний чат")
		return false
	}
}
