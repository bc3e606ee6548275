// Package jobs управляет фоновыми задачами (cron).
// scheduler.go закрывает голосования с вышедшим сроком, даже если к ним никто не обращается.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/features/votes"
)

// Sweeper — то, что умеет закрывать истёкшие голосования.
type Sweeper interface {
	ExpireSweep(ctx context.Context) ([]votes.Outcome, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
}

// NewScheduler создаёт планировщик. Если часовой пояс не загрузился, используется UTC+3.
func NewScheduler(sweeper Sweeper, spec, timezone string) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить %s, используем UTC+3", timezone)
		loc = time.FixedZone("MSK", 3*60*60)
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
		spec:    spec,
	}
}

// Start регистрирует задачи и запускает планировщик.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.WithField("spec", s.spec).Info("Планировщик задач запущен")
	return nil
}

func (s *Scheduler) sweep(ctx context.Context) {
	out, err := s.sweeper.ExpireSweep(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка закрытия истёкших голосований")
		return
	}
	if len(out) > 0 {
		log.WithField("expired", len(out)).Info("[CRON] Истёкшие голосования закрыты")
	}
}

// Stop останавливает планировщик и ждёт текущую задачу.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
