// Package bot — Telegram-фронтенд: long polling, разбор команд и маршрутизация
// к обработчикам фич. Бизнес-логики здесь нет.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/bot/filters"
	"darkframe.ru/clanwar/internal/bot/middleware"
	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/config"
	"darkframe.ru/clanwar/internal/features/clans"
	"darkframe.ru/clanwar/internal/features/launch"
	"darkframe.ru/clanwar/internal/features/reputation"
	"darkframe.ru/clanwar/internal/features/retaliation"
	"darkframe.ru/clanwar/internal/features/votes"
)

const helpText = `☢️ Управление оружием клана

/clan — ваш клан, состав и кулдаун
/propose <tactical|strategic|clan_buster|war|alliance> <клан> — предложить голосование
/propose kick <игрок> — исключить игрока
/vote <id> yes|no — проголосовать
/veto <id> <причина> — вето лидера
/votes — активные голосования
/launch <id> — пуск по прошедшему голосованию
/strike <клан> <боеголовка> — удар без голосования (саботаж)
/retaliate <клан> <боеголовка> — ответный удар
/rights — права на ответный удар
/rep — ваша репутация`

// Handlers — обработчики команд фич.
type Handlers struct {
	Clans       *clans.Handler
	Votes       *votes.Handler
	Launch      *launch.Handler
	Retaliation *retaliation.Handler
	Reputation  *reputation.Handler
}

// Bot — главная структура бота.
type Bot struct {
	api    *telego.Bot
	cfg    *config.Config
	sender common.Sender

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter
	handlers    Handlers
	parser      *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт бота.
func New(api *telego.Bot, cfg *config.Config, sender common.Sender, handlers Handlers, chatFilter *filters.ChatFilter) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	return &Bot{
		api:         api,
		cfg:         cfg,
		sender:      sender,
		chatFilter:  chatFilter,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		handlers:    handlers,
		parser:      NewCommandParser(),
		inflight:    make(chan struct{}, maxInFlight),
	}
}

// Start читает апдейты до отмены ctx и ждёт обработчики, которые ещё работают.
func (b *Bot) Start(ctx context.Context) error {
	defer b.rateLimiter.Close()

	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: b.cfg.BotUpdateTimeoutSeconds,
	})
	if err != nil {
		return fmt.Errorf("не удалось запустить long polling: %w", err)
	}

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return nil
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			b.wg.Add(1)
			go func(upd telego.Update) {
				defer func() {
					<-b.inflight
					b.wg.Done()
				}()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic()

	message := update.Message
	if message == nil || message.Text == "" {
		return
	}
	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(message) {
		return
	}

	playerID := PlayerID(message.From)
	if !b.rateLimiter.Allow(playerID) {
		log.WithField("player_id", playerID).Debug("rate limited")
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}
	b.routeCommand(ctx, message.Chat.ID, playerID, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID int64, playerID, cmd string, args []string) {
	log.WithFields(log.Fields{
		"cmd":       cmd,
		"args":      args,
		"player_id": playerID,
	}).Debug("routing command")

	switch cmd {
	case "start", "help":
		b.sender.SendMessage(ctx, chatID, helpText)
	case "clan", "клан":
		b.handlers.Clans.HandleClan(ctx, chatID, playerID)
	case "propose":
		b.handlers.Votes.HandlePropose(ctx, chatID, playerID, args)
	case "vote":
		b.handlers.Votes.HandleVote(ctx, chatID, playerID, args)
	case "veto":
		b.handlers.Votes.HandleVeto(ctx, chatID, playerID, args)
	case "votes":
		b.handlers.Votes.HandleList(ctx, chatID, playerID)
	case "launch":
		b.handlers.Launch.HandleLaunch(ctx, chatID, playerID, args)
	case "strike":
		b.handlers.Launch.HandleStrike(ctx, chatID, playerID, args)
	case "retaliate":
		b.handlers.Launch.HandleRetaliate(ctx, chatID, playerID, args)
	case "rights":
		b.handlers.Retaliation.HandleRights(ctx, chatID, playerID)
	case "rep", "репутация":
		b.handlers.Reputation.HandleRep(ctx, chatID, playerID)
	}
}

// PlayerID — идентификатор игрока для Telegram-пользователя.
func PlayerID(u *telego.User) string {
	return strconv.FormatInt(u.ID, 10)
}
