// Package launch — service.go проверяет право на удар и доводит его до последствий.
package launch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/event"
	"darkframe.ru/clanwar/internal/features/clans"
	"darkframe.ru/clanwar/internal/features/consequences"
	"darkframe.ru/clanwar/internal/features/retaliation"
	"darkframe.ru/clanwar/internal/features/votes"
	"darkframe.ru/clanwar/internal/telemetry"
)

type VoteLedger interface {
	Get(ctx context.Context, voteID string) (*votes.Vote, error)
	ResolveRef(ctx context.Context, playerID, ref string) (string, error)
	ClaimLaunch(ctx context.Context, voteID string) (*votes.Vote, error)
	ReleaseLaunch(ctx context.Context, v *votes.Vote) error
}

type Directory interface {
	Member(ctx context.Context, clanID, playerID string) (*clans.Member, error)
	Membership(ctx context.Context, playerID string) (*clans.Member, error)
	GetClan(ctx context.Context, clanID string) (*clans.Clan, error)
	CheckCooldown(ctx context.Context, clanID string) error
}

type Consequences interface {
	Resolve(warhead string) (string, consequences.Tier, bool, error)
	Apply(ctx context.Context, l consequences.Launch) (*consequences.Report, error)
}

type RetaliationRights interface {
	HasRights(ctx context.Context, playerID, againstClanID string) (*retaliation.Right, error)
	Consume(ctx context.Context, playerID, againstClanID string) (*retaliation.Right, error)
	Release(ctx context.Context, right *retaliation.Right) error
}

// Service авторизует удары.
type Service struct {
	votes   VoteLedger
	clans   Directory
	engine  Consequences
	rights  RetaliationRights
	effects Effects
}

// NewService создаёт сервис запуска. effects == nil — удары только логируются.
func NewService(v VoteLedger, d Directory, engine Consequences, rights RetaliationRights, effects Effects) *Service {
	if effects == nil {
		effects = LogEffects{}
	}
	return &Service{votes: v, clans: d, engine: engine, rights: rights, effects: effects}
}

var tracer = telemetry.Tracer("launch")

// LaunchFromVote запускает оружие по прошедшему голосованию. Запустить может
// лидер, офицер или автор предложения. Последствия применяются ровно один раз.
func (s *Service) LaunchFromVote(ctx context.Context, voteID, playerID string) (_ *consequences.Report, err error) {
	ctx, span := tracer.Start(ctx, "launch.LaunchFromVote")
	span.SetAttributes(attribute.String("vote_id", voteID), attribute.String("player_id", playerID))
	defer telemetry.End(span, &err)
	defer countDenied(KindVote, &err)

	v, err := s.votes.Get(ctx, voteID)
	if err != nil {
		return nil, err
	}
	switch {
	case !v.Type.IsWeaponLaunch():
		return nil, fmt.Errorf("голосование %s не о пуске: %w", common.ShortID(voteID), common.ErrLaunchNotAllowed)
	case v.Status != votes.StatusPassed:
		return nil, fmt.Errorf("голосование %s не прошло (%s): %w", common.ShortID(voteID), v.Status, common.ErrLaunchNotAllowed)
	case v.Launched():
		return nil, fmt.Errorf("пуск по голосованию %s уже состоялся: %w", common.ShortID(voteID), common.ErrLaunchNotAllowed)
	}

	m, err := s.member(ctx, v.ClanID, playerID)
	if err != nil {
		return nil, err
	}
	if !m.CanLaunch() && playerID != v.ProposerID {
		return nil, fmt.Errorf("запуск доступен лидеру, офицерам и автору предложения: %w", common.ErrUnauthorized)
	}
	if err := s.clans.CheckCooldown(ctx, v.ClanID); err != nil {
		return nil, err
	}

	claimed, err := s.votes.ClaimLaunch(ctx, voteID)
	if err != nil {
		return nil, err
	}

	strike := Strike{
		Kind:           KindVote,
		LauncherClanID: v.ClanID,
		TargetClanID:   v.Terms.TargetClanID,
		Warhead:        v.Type.Warhead(),
		PlayerID:       playerID,
		VoteID:         v.VoteID,
	}
	report, err := s.execute(ctx, strike)
	if err != nil {
		if rerr := s.votes.ReleaseLaunch(ctx, claimed); rerr != nil {
			log.WithError(rerr).WithField("vote_id", voteID).Error("Не удалось снять захват пуска")
		}
		return nil, err
	}
	return report, nil
}

// LaunchDirect — удар без голосования. Разрешён только для тиров,
// которым голосование не требуется.
func (s *Service) LaunchDirect(ctx context.Context, playerID, targetClanID, warhead string) (_ *consequences.Report, err error) {
	ctx, span := tracer.Start(ctx, "launch.LaunchDirect")
	span.SetAttributes(attribute.String("player_id", playerID), attribute.String("warhead", warhead))
	defer telemetry.End(span, &err)
	defer countDenied(KindDirect, &err)

	m, err := s.membership(ctx, playerID)
	if err != nil {
		return nil, err
	}
	name, tier, _, err := s.engine.Resolve(warhead)
	if err != nil {
		return nil, err
	}
	if tier.RequiresVote {
		return nil, fmt.Errorf("удар %s требует голосования клана (/propose): %w", name, common.ErrLaunchNotAllowed)
	}
	if m.ClanID == targetClanID {
		return nil, fmt.Errorf("нельзя ударить по своему клану: %w", common.ErrInvalidArgument)
	}
	if _, err := s.clans.GetClan(ctx, targetClanID); err != nil {
		return nil, fmt.Errorf("клан-цель: %w", err)
	}
	if err := s.clans.CheckCooldown(ctx, m.ClanID); err != nil {
		return nil, err
	}

	return s.execute(ctx, Strike{
		Kind:           KindDirect,
		LauncherClanID: m.ClanID,
		TargetClanID:   targetClanID,
		Warhead:        strings.ToUpper(warhead),
		PlayerID:       playerID,
	})
}

// Retaliate — ответный удар по праву вместо голосования. Списывается ровно одно
// право, последствия применяются как у обычного удара, но без новых прав на ответ.
// Если удар не состоялся, право возвращается.
func (s *Service) Retaliate(ctx context.Context, playerID, targetClanID, warhead string) (_ *Counterstrike, err error) {
	ctx, span := tracer.Start(ctx, "launch.Retaliate")
	span.SetAttributes(attribute.String("player_id", playerID), attribute.String("target_clan_id", targetClanID))
	defer telemetry.End(span, &err)
	defer countDenied(KindRetaliation, &err)

	if strings.TrimSpace(warhead) == "" {
		return nil, fmt.Errorf("не указана боеголовка: %w", common.ErrInvalidArgument)
	}
	if _, _, _, err := s.engine.Resolve(warhead); err != nil {
		return nil, err
	}
	right, err := s.rights.HasRights(ctx, playerID, targetClanID)
	if err != nil {
		return nil, err
	}
	if right == nil {
		return nil, fmt.Errorf("игрок %s против клана %s: %w", playerID, targetClanID, common.ErrNoRetaliationRight)
	}
	used, err := s.rights.Consume(ctx, playerID, targetClanID)
	if err != nil {
		return nil, err
	}
	if used == nil {
		// Право было видно, но списать его не удалось: его забрал параллельный удар
		log.WithFields(log.Fields{
			"player_id":      playerID,
			"target_clan_id": targetClanID,
			"right_id":       right.ID,
		}).Error("Логическая ошибка: право на ответ исчезло между проверкой и списанием")
		return nil, fmt.Errorf("игрок %s против клана %s: %w", playerID, targetClanID, common.ErrNoRetaliationRight)
	}

	report, err := s.execute(ctx, Strike{
		Kind:           KindRetaliation,
		LauncherClanID: used.PlayerClanID,
		TargetClanID:   targetClanID,
		Warhead:        strings.ToUpper(warhead),
		PlayerID:       playerID,
	})
	if err != nil {
		if rerr := s.rights.Release(ctx, used); rerr != nil {
			log.WithError(rerr).WithField("right_id", used.ID).Error("Не удалось вернуть право на ответ")
		}
		return nil, err
	}
	log.WithFields(log.Fields{
		"player_id":      playerID,
		"target_clan_id": targetClanID,
		"right_id":       used.ID,
		"event_id":       report.EventID,
	}).Info("Ответный удар нанесён")
	return &Counterstrike{Right: used, Report: report}, nil
}

// OnVoteResolved — подписчик шины: прошедшие голосования за пуск ждут команды /launch.
func (s *Service) OnVoteResolved(evt event.Event) {
	out, ok := evt.Data.(votes.Outcome)
	if !ok || out.Transition != votes.StatusPassed || !out.Vote.Type.IsWeaponLaunch() {
		return
	}
	log.WithFields(log.Fields{
		"vote_id": out.Vote.VoteID,
		"clan_id": out.Vote.ClanID,
		"target":  out.Vote.Terms.TargetClanID,
		"warhead": out.Vote.Type.Warhead(),
	}).Info("Голосование за пуск прошло, ожидается команда запуска")
}

func (s *Service) execute(ctx context.Context, strike Strike) (*consequences.Report, error) {
	if err := s.effects.Detonate(ctx, strike); err != nil {
		return nil, fmt.Errorf("исполнение удара: %w", err)
	}
	report, err := s.engine.Apply(ctx, consequences.Launch{
		LauncherClanID:   strike.LauncherClanID,
		TargetClanID:     strike.TargetClanID,
		WarheadType:      strike.Warhead,
		LauncherPlayerID: strike.PlayerID,
		VoteID:           strike.VoteID,
		Retaliation:      strike.Kind == KindRetaliation,
	})
	if err != nil {
		return nil, err
	}
	strikes.WithLabelValues(string(strike.Kind)).Inc()
	return report, nil
}

func (s *Service) member(ctx context.Context, clanID, playerID string) (*clans.Member, error) {
	m, err := s.clans.Member(ctx, clanID, playerID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("игрок %s не состоит в клане %s: %w", playerID, clanID, common.ErrUnauthorized)
	}
	return m, err
}

func (s *Service) membership(ctx context.Context, playerID string) (*clans.Member, error) {
	m, err := s.clans.Membership(ctx, playerID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("игрок %s не состоит в клане: %w", playerID, common.ErrUnauthorized)
	}
	return m, err
}

func countDenied(kind Kind, errp *error) {
	if *errp != nil {
		denied.WithLabelValues(string(kind)).Inc()
	}
}
