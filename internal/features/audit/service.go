// Package audit — service.go: чтение и запись журнала последствий.
package audit

import (
	"context"
	"fmt"
	"time"
)

// DefaultRecent — сколько событий показывать без явного лимита.
const DefaultRecent = 20

type store interface {
	Append(ctx context.Context, e *Event) error
	ForClanSince(ctx context.Context, clanID string, since time.Time) ([]*Event, error)
	Recent(ctx context.Context, limit int) ([]*Event, error)
}

// Service — журнал последствий.
type Service struct {
	repo store
}

func NewService(repo store) *Service {
	return &Service{repo: repo}
}

// Append записывает событие. Идентификатор и время обязательны.
func (s *Service) Append(ctx context.Context, e *Event) error {
	if e.EventID == "" || e.CreatedAt.IsZero() {
		return fmt.Errorf("событие журнала без идентификатора или времени")
	}
	return s.repo.Append(ctx, e)
}

// ForClanSince — события клана (как атакующего и как цели) начиная с since.
func (s *Service) ForClanSince(ctx context.Context, clanID string, since time.Time) ([]*Event, error) {
	return s.repo.ForClanSince(ctx, clanID, since)
}

// Recent — последние события по всем кланам.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = DefaultRecent
	}
	return s.repo.Recent(ctx, limit)
}
