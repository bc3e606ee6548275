package bot

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/event"
	"darkframe.ru/clanwar/internal/features/consequences"
	"darkframe.ru/clanwar/internal/features/votes"
)

// announceTimeout — сколько ждём Telegram при отправке одного объявления.
const announceTimeout = 10 * time.Second

// Announcer публикует в чат итоги голосований и удары.
type Announcer struct {
	sender common.Sender
	chatID int64
}

// NewAnnouncer создаёт объявлятора для чата chatID.
func NewAnnouncer(sender common.Sender, chatID int64) *Announcer {
	return &Announcer{sender: sender, chatID: chatID}
}

// Subscribe подписывает объявления на шину. Подписки живут до bus.Stop().
func (a *Announcer) Subscribe(bus *event.Bus) {
	bus.SubscribeFunc(event.VoteResolved, a.Handle)
	bus.SubscribeFunc(event.ConsequenceApplied, a.Handle)
}

// Handle формирует объявление для события и отправляет его.
func (a *Announcer) Handle(evt event.Event) {
	var text string
	switch data := evt.Data.(type) {
	case votes.Outcome:
		text = votes.Announcement(data)
	case *consequences.Report:
		text = consequences.Announcement(data)
	default:
		log.WithField("type", evt.Type).Warn("Объявление: неизвестные данные события")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
	defer cancel()
	a.sender.SendMessage(ctx, a.chatID, text)
}
