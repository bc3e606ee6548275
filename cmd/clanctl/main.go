// Package main — clanctl, операторская утилита: миграции, ручной sweep,
// просмотр голосований и журнала, управление составом кланов.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"darkframe.ru/clanwar/internal/app"
	"darkframe.ru/clanwar/internal/config"
	"darkframe.ru/clanwar/internal/db/postgres"
	"darkframe.ru/clanwar/internal/event"
)

const programName = "clanctl"

var globalFlags = struct {
	debug bool
}{}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           programName,
		Short:         "Операторская утилита управления оружием кланов",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			commonRun()
		},
	}
	root.PersistentFlags().BoolVarP(&globalFlags.debug, "debug", "D", false, "отладочный вывод")

	root.AddCommand(
		migrateCommand(),
		sweepCommand(),
		votesCommand(),
		auditCommand(),
		clanCommand(),
		tiersCommand(),
	)
	return root
}

func commonRun() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	if globalFlags.debug {
		log.SetLevel(log.DebugLevel)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
		log.WithError(err).Warn("Не удалось выставить GOMAXPROCS")
	}
}

// openPool читает общие настройки и подключается к базе.
func openPool(ctx context.Context) (*pgxpool.Pool, *config.Core, error) {
	cfg, err := config.LoadCore()
	if err != nil {
		return nil, nil, err
	}
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	return pool, cfg, nil
}

// withServices собирает сервисы ядра на время одной команды.
// Шина без метрик: объявлений из clanctl не бывает.
func withServices(ctx context.Context, fn func(*app.Services) error) error {
	pool, cfg, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	bus := event.NewBus(nil)
	defer bus.Stop()

	services, err := app.NewServices(pool, cfg, bus)
	if err != nil {
		return err
	}
	return fn(services)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		os.Exit(1)
	}
}
