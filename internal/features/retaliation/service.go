// Package retaliation — service.go выдаёт и расходует права на ответный удар.
package retaliation

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type store interface {
	Grant(ctx context.Context, g Grant) (int64, error)
	FirstUsable(ctx context.Context, playerID, againstClanID string, now time.Time) (*Right, error)
	Consume(ctx context.Context, playerID, againstClanID string, now time.Time) (*Right, error)
	Release(ctx context.Context, id int64, usedAt time.Time) (bool, error)
	ListUsable(ctx context.Context, playerID string, now time.Time) ([]*Right, error)
}

// Service — реестр прав на ответный удар.
type Service struct {
	repo store
	now  func() time.Time
}

// NewService создаёт сервис прав.
func NewService(repo store) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Grant выдаёт по одному праву каждому игроку. Пустой список — ничего не делает.
func (s *Service) Grant(ctx context.Context, g Grant) (int64, error) {
	if len(g.PlayerIDs) == 0 {
		return 0, nil
	}
	if !g.ExpiresAt.After(g.GrantedAt) {
		return 0, fmt.Errorf("срок права должен быть позже выдачи")
	}
	n, err := s.repo.Grant(ctx, g)
	if err != nil {
		return 0, err
	}
	rightsGranted.Add(float64(n))
	log.WithFields(log.Fields{
		"victim_clan":    g.VictimClanID,
		"aggressor_clan": g.AggressorClanID,
		"rights":         n,
		"expires_at":     g.ExpiresAt,
	}).Info("Выданы права на ответный удар")
	return n, nil
}

// HasRights возвращает право, которое будет израсходовано следующим, или nil.
func (s *Service) HasRights(ctx context.Context, playerID, againstClanID string) (*Right, error) {
	return s.repo.FirstUsable(ctx, playerID, againstClanID, s.now())
}

// Consume расходует ровно одно действующее право. nil — прав не осталось.
func (s *Service) Consume(ctx context.Context, playerID, againstClanID string) (*Right, error) {
	right, err := s.repo.Consume(ctx, playerID, againstClanID, s.now())
	if err != nil {
		return nil, err
	}
	if right != nil {
		rightsConsumed.Inc()
		log.WithFields(log.Fields{
			"player_id":    playerID,
			"against_clan": againstClanID,
			"right_id":     right.ID,
		}).Info("Право на ответный удар израсходовано")
	}
	return right, nil
}

// Release возвращает право, списанное Consume, если удар по нему не состоялся.
func (s *Service) Release(ctx context.Context, right *Right) error {
	ok, err := s.repo.Release(ctx, right.ID, right.UsedAt)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("право #%d уже изменено", right.ID)
	}
	rightsReleased.Inc()
	log.WithFields(log.Fields{
		"player_id":    right.PlayerID,
		"against_clan": right.AgainstClanID,
		"right_id":     right.ID,
	}).Warn("Право на ответный удар возвращено")
	return nil
}

// ListActive возвращает действующие права игрока.
func (s *Service) ListActive(ctx context.Context, playerID string) ([]*Right, error) {
	return s.repo.ListUsable(ctx, playerID, s.now())
}
