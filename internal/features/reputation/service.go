// Package reputation — service.go содержит правила начисления штрафов.
package reputation

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type store interface {
	ApplyPenalty(ctx context.Context, playerIDs []string, amount int64, reason string, at time.Time) error
	Get(ctx context.Context, playerID string) (*Player, error)
}

// Service управляет репутацией игроков.
type Service struct {
	repo store
}

// NewService создаёт сервис репутации.
func NewService(repo store) *Service {
	return &Service{repo: repo}
}

// ApplyPenalty списывает amount у каждого игрока. Повторы в списке схлопываются:
// один игрок получает штраф один раз. Пустой список — не ошибка.
func (s *Service) ApplyPenalty(ctx context.Context, playerIDs []string, amount int64, reason string, at time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("штраф должен быть положительным, получено %d", amount)
	}
	ids := unique(playerIDs)
	if len(ids) == 0 {
		return nil
	}
	if err := s.repo.ApplyPenalty(ctx, ids, amount, reason, at); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"players": len(ids),
		"amount":  amount,
		"reason":  reason,
	}).Info("Штраф репутации применён")
	return nil
}

// Get возвращает репутацию игрока.
func (s *Service) Get(ctx context.Context, playerID string) (*Player, error) {
	return s.repo.Get(ctx, playerID)
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
