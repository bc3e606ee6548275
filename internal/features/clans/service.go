// Package clans — service.go содержит правила членства в кланах и проверку кулдауна ОМП.
// Остальные модули (голосования, последствия, запуск) ходят сюда за составом и ролями.
package clans

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/common"
)

// MaxNameLength — ограничение колонки clans.name.
const MaxNameLength = 64

// store — операции хранилища, которые нужны сервису.
type store interface {
	CreateClan(ctx context.Context, clanID, name, leaderID string) error
	AddMember(ctx context.Context, clanID, playerID string, role Role) error
	RemoveMember(ctx context.Context, clanID, playerID string) error
	TransferLeadership(ctx context.Context, clanID, fromID, toID string) error
	GetClan(ctx context.Context, clanID string) (*Clan, error)
	GetMember(ctx context.Context, clanID, playerID string) (*Member, error)
	GetMembership(ctx context.Context, playerID string) (*Member, error)
	CountMembers(ctx context.Context, clanID string) (int, error)
	MemberIDs(ctx context.Context, clanID string) ([]string, error)
	ListMembers(ctx context.Context, clanID string) ([]*Member, error)
	SetCooldown(ctx context.Context, clanID string, until, launchedAt time.Time) error
}

// Service — справочник кланов.
type Service struct {
	repo store
	now  func() time.Time
}

// NewService создаёт сервис кланов.
func NewService(repo store) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create регистрирует клан с лидером.
func (s *Service) Create(ctx context.Context, clanID, name, leaderID string) error {
	clanID = strings.TrimSpace(clanID)
	name = strings.TrimSpace(name)
	if clanID == "" || leaderID == "" {
		return fmt.Errorf("идентификатор клана и лидер обязательны: %w", common.ErrInvalidArgument)
	}
	if name == "" {
		name = clanID
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("название клана длиннее %d символов: %w", MaxNameLength, common.ErrInvalidArgument)
	}

	if err := s.repo.CreateClan(ctx, clanID, name, leaderID); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"clan_id":   clanID,
		"leader_id": leaderID,
	}).Info("Клан создан")
	return nil
}

// Join добавляет игрока в клан рядовым участником.
func (s *Service) Join(ctx context.Context, clanID, playerID string) error {
	if err := s.repo.AddMember(ctx, clanID, playerID, RoleMember); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"clan_id":   clanID,
		"player_id": playerID,
	}).Info("Игрок вступил в клан")
	return nil
}

// Leave выводит игрока из его текущего клана.
func (s *Service) Leave(ctx context.Context, playerID string) error {
	m, err := s.repo.GetMembership(ctx, playerID)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveMember(ctx, m.ClanID, playerID); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"clan_id":   m.ClanID,
		"player_id": playerID,
	}).Info("Игрок покинул клан")
	return nil
}

// SetRole меняет роль участника. Назначать роли может только лидер.
// Назначение LEADER передаёт лидерство: прежний лидер становится офицером.
func (s *Service) SetRole(ctx context.Context, clanID, actorID, playerID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("неизвестная роль %q: %w", role, common.ErrInvalidArgument)
	}
	actor, err := s.repo.GetMember(ctx, clanID, actorID)
	if err != nil {
		return err
	}
	if actor.Role != RoleLeader {
		return fmt.Errorf("назначать роли может только лидер: %w", common.ErrUnauthorized)
	}
	if playerID == actorID {
		return fmt.Errorf("лидер не меняет свою роль, только передаёт лидерство: %w", common.ErrInvalidArgument)
	}
	if _, err := s.repo.GetMember(ctx, clanID, playerID); err != nil {
		return err
	}
	if role == RoleLeader {
		if err := s.repo.TransferLeadership(ctx, clanID, actorID, playerID); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"clan_id": clanID,
			"from":    actorID,
			"to":      playerID,
		}).Info("Лидерство передано")
		return nil
	}
	return s.repo.AddMember(ctx, clanID, playerID, role)
}

// Member возвращает участника клана (ErrNotFound, если игрок не в этом клане).
func (s *Service) Member(ctx context.Context, clanID, playerID string) (*Member, error) {
	return s.repo.GetMember(ctx, clanID, playerID)
}

// Membership возвращает клан и роль игрока.
func (s *Service) Membership(ctx context.Context, playerID string) (*Member, error) {
	return s.repo.GetMembership(ctx, playerID)
}

// GetClan возвращает клан.
func (s *Service) GetClan(ctx context.Context, clanID string) (*Clan, error) {
	return s.repo.GetClan(ctx, clanID)
}

// CountMembers возвращает размер клана.
func (s *Service) CountMembers(ctx context.Context, clanID string) (int, error) {
	return s.repo.CountMembers(ctx, clanID)
}

// MemberIDs возвращает всех участников клана.
func (s *Service) MemberIDs(ctx context.Context, clanID string) ([]string, error) {
	return s.repo.MemberIDs(ctx, clanID)
}

// Members возвращает состав клана с ролями.
func (s *Service) Members(ctx context.Context, clanID string) ([]*Member, error) {
	return s.repo.ListMembers(ctx, clanID)
}

// CheckCooldown возвращает *common.CooldownError, если клан под кулдауном ОМП.
func (s *Service) CheckCooldown(ctx context.Context, clanID string) error {
	c, err := s.repo.GetClan(ctx, clanID)
	if err != nil {
		return err
	}
	now := s.now()
	if c.Cooldown.Active(now) {
		return &common.CooldownError{Until: c.Cooldown.Until, Remaining: c.Cooldown.Remaining(now)}
	}
	return nil
}

// SetCooldown записывает кулдаун ОМП клана.
func (s *Service) SetCooldown(ctx context.Context, clanID string, until, launchedAt time.Time) error {
	return s.repo.SetCooldown(ctx, clanID, until, launchedAt)
}
