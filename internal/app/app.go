// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, шину событий, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/bot"
	"darkframe.ru/clanwar/internal/bot/filters"
	"darkframe.ru/clanwar/internal/config"
	"darkframe.ru/clanwar/internal/db/postgres"
	"darkframe.ru/clanwar/internal/event"
	"darkframe.ru/clanwar/internal/features/clans"
	"darkframe.ru/clanwar/internal/features/launch"
	"darkframe.ru/clanwar/internal/features/reputation"
	"darkframe.ru/clanwar/internal/features/retaliation"
	"darkframe.ru/clanwar/internal/features/votes"
	"darkframe.ru/clanwar/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Services  *Services
	Bus       *event.Bus
	DB        *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, &cfg.Core)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	api, err := telego.NewBot(cfg.TelegramBotToken, telego.WithLogger(log.WithField("component", "telego")))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	sender := bot.NewSender(api)

	// === 3. Шина событий и сервисы ===
	bus := event.NewBus(prometheus.DefaultRegisterer)
	services, err := NewServices(pool, &cfg.Core, bus)
	if err != nil {
		bus.Stop()
		pool.Close()
		return nil, err
	}

	// === 4. Подписчики шины ===
	bot.NewAnnouncer(sender, cfg.AnnounceChat()).Subscribe(bus)
	bus.SubscribeFunc(event.VoteResolved, services.Launch.OnVoteResolved)

	// === 5. Обработчики ===
	handlers := bot.Handlers{
		Clans:       clans.NewHandler(services.Clans, sender),
		Votes:       votes.NewHandler(services.Votes, sender),
		Launch:      launch.NewHandler(services.Launch, sender),
		Retaliation: retaliation.NewHandler(services.Retaliation, sender),
		Reputation:  reputation.NewHandler(services.Reputation, sender),
	}

	// === 6. Собираем бота ===
	b := bot.New(api, cfg, sender, handlers, filters.NewChatFilter(cfg.GameChatID))

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(services.Votes, cfg.JobsExpireSweepSpec, cfg.JobsTimezone)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		Services:  services,
		Bus:       bus,
		DB:        pool,
	}, nil
}

// Close освобождает ресурсы: сначала шину (ждём обработчики), потом пул.
func (a *App) Close() {
	a.Bus.Stop()
	a.DB.Close()
}
