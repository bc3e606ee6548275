package common

import "context"

// Sender отправляет текстовое сообщение в чат. Реализуется ботом,
// в тестах подменяется записывающей заглушкой.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string)
}
