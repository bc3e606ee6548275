package app

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"darkframe.ru/clanwar/internal/config"
	"darkframe.ru/clanwar/internal/event"
	"darkframe.ru/clanwar/internal/features/audit"
	"darkframe.ru/clanwar/internal/features/clans"
	"darkframe.ru/clanwar/internal/features/consequences"
	"darkframe.ru/clanwar/internal/features/launch"
	"darkframe.ru/clanwar/internal/features/relations"
	"darkframe.ru/clanwar/internal/features/reputation"
	"darkframe.ru/clanwar/internal/features/retaliation"
	"darkframe.ru/clanwar/internal/features/votes"
)

// Services — все сервисы ядра. Общие для бота и clanctl.
type Services struct {
	Clans        *clans.Service
	Reputation   *reputation.Service
	Relations    *relations.Repository
	Retaliation  *retaliation.Service
	Audit        *audit.Service
	Votes        *votes.Service
	Consequences *consequences.Service
	Launch       *launch.Service
}

// NewServices собирает сервисы поверх пула. Порядок важен: последствия и
// запуск зависят от ledger-сервисов.
func NewServices(pool *pgxpool.Pool, cfg *config.Core, bus *event.Bus) (*Services, error) {
	tiers, err := consequences.LoadTable(cfg.ConsequenceTiersFile)
	if err != nil {
		return nil, fmt.Errorf("таблица тиров: %w", err)
	}

	s := &Services{
		Clans:       clans.NewService(clans.NewRepository(pool)),
		Reputation:  reputation.NewService(reputation.NewRepository(pool)),
		Relations:   relations.NewRepository(pool),
		Retaliation: retaliation.NewService(retaliation.NewRepository(pool)),
		Audit:       audit.NewService(audit.NewRepository(pool)),
	}
	s.Votes = votes.NewService(votes.NewRepository(pool), s.Clans, bus, cfg)
	s.Consequences = consequences.NewService(consequences.Deps{
		Clans:       s.Clans,
		Reputation:  s.Reputation,
		Relations:   s.Relations,
		Retaliation: s.Retaliation,
		Audit:       s.Audit,
		Bus:         bus,
	}, tiers, cfg)
	s.Launch = launch.NewService(s.Votes, s.Clans, s.Consequences, s.Retaliation, nil)
	return s, nil
}
