// Package votes — service.go: движок голосований.
// Ведёт голосование от предложения до терминального статуса при конкурентных голосах.
// Движок никогда не применяет последствия сам: о каждом переходе он сообщает
// вызывающему (Outcome) и публикует событие vote.resolved на шине.
package votes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/config"
	"darkframe.ru/clanwar/internal/event"
	"darkframe.ru/clanwar/internal/features/clans"
	"darkframe.ru/clanwar/internal/telemetry"
)

// RecentLimit — сколько голосований показывать в истории клана по умолчанию.
const RecentLimit = 20

// Directory — то, что движку нужно от справочника кланов.
type Directory interface {
	Member(ctx context.Context, clanID, playerID string) (*clans.Member, error)
	Membership(ctx context.Context, playerID string) (*clans.Member, error)
	GetClan(ctx context.Context, clanID string) (*clans.Clan, error)
	CountMembers(ctx context.Context, clanID string) (int, error)
	CheckCooldown(ctx context.Context, clanID string) error
}

// Publisher — шина событий.
type Publisher interface {
	Publish(evt event.Event)
}

type store interface {
	Create(ctx context.Context, v *Vote) error
	Get(ctx context.Context, voteID string) (*Vote, error)
	ActiveByClan(ctx context.Context, clanID string) ([]*Vote, error)
	RecentByClan(ctx context.Context, clanID string, limit int) ([]*Vote, error)
	AppendBallot(ctx context.Context, voteID, playerID string, inFavor, earlyFail bool, now time.Time) (*Vote, bool, error)
	Veto(ctx context.Context, voteID, vetoerID, reason string, now time.Time) (*Vote, bool, error)
	ExpireDue(ctx context.Context, now time.Time, clanID string) ([]*Vote, error)
	ExpireOne(ctx context.Context, voteID string, now time.Time) (*Vote, bool, error)
	MarkLaunched(ctx context.Context, voteID string, now time.Time) (*Vote, bool, error)
	ReleaseLaunch(ctx context.Context, voteID string, launchedAt time.Time) error
}

// Service — движок голосований.
type Service struct {
	repo  store
	clans Directory
	bus   Publisher
	cfg   *config.Core
	now   func() time.Time
	newID func() string
}

// NewService создаёт движок голосований.
func NewService(repo store, directory Directory, bus Publisher, cfg *config.Core) *Service {
	return &Service{
		repo:  repo,
		clans: directory,
		bus:   bus,
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

var tracer = telemetry.Tracer("votes")

// Propose создаёт голосование со статусом ACTIVE.
func (s *Service) Propose(ctx context.Context, p Proposal) (_ *Vote, err error) {
	ctx, span := tracer.Start(ctx, "votes.Propose")
	span.SetAttributes(
		attribute.String("clan_id", p.ClanID),
		attribute.String("vote_type", string(p.Type)),
	)
	defer telemetry.End(span, &err)

	if !p.Type.Valid() {
		return nil, fmt.Errorf("%q: %w", p.Type, common.ErrInvalidVoteType)
	}
	if err := validateTerms(p); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, p.ClanID, p.ProposerID); err != nil {
		return nil, err
	}
	if p.Terms.TargetClanID != "" {
		if _, err := s.clans.GetClan(ctx, p.Terms.TargetClanID); err != nil {
			return nil, fmt.Errorf("клан-цель: %w", err)
		}
	}
	if p.Terms.TargetPlayerID != "" {
		if _, err := s.clans.Member(ctx, p.ClanID, p.Terms.TargetPlayerID); err != nil {
			return nil, fmt.Errorf("игрок-цель: %w", err)
		}
	}
	if p.Type.IsWeaponLaunch() {
		if err := s.clans.CheckCooldown(ctx, p.ClanID); err != nil {
			rejected.WithLabelValues("cooldown").Inc()
			return nil, err
		}
	}

	size := p.ClanSize
	if size <= 0 {
		if size, err = s.clans.CountMembers(ctx, p.ClanID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	// Зависшие голосования клана закрываем до проверки конфликта
	if _, err := s.expire(ctx, now, p.ClanID); err != nil {
		return nil, err
	}

	v := &Vote{
		VoteID:        s.newID(),
		ClanID:        p.ClanID,
		Type:          p.Type,
		ProposerID:    p.ProposerID,
		Status:        StatusActive,
		VotesFor:      []string{},
		VotesAgainst:  []string{},
		RequiredVotes: RequiredVotes(s.cfg.VoteQuorumFraction, size),
		ClanSize:      size,
		Terms:         p.Terms,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.VoteWindow(string(p.Type))),
	}
	if err := s.repo.Create(ctx, v); err != nil {
		if errors.Is(err, common.ErrDuplicateActiveVote) {
			rejected.WithLabelValues("duplicate_active").Inc()
		}
		return nil, err
	}

	proposed.WithLabelValues(string(v.Type)).Inc()
	log.WithFields(log.Fields{
		"vote_id":  v.VoteID,
		"clan_id":  v.ClanID,
		"type":     v.Type,
		"required": v.RequiredVotes,
		"size":     v.ClanSize,
		"expires":  v.ExpiresAt,
	}).Info("Голосование создано")
	return v, nil
}

// CastBallot принимает голос участника. Добавление голоса и пересчёт кворума
// выполняются одной условной операцией хранилища.
func (s *Service) CastBallot(ctx context.Context, voteID, playerID string, inFavor bool) (_ Outcome, err error) {
	ctx, span := tracer.Start(ctx, "votes.CastBallot")
	span.SetAttributes(attribute.String("vote_id", voteID), attribute.Bool("in_favor", inFavor))
	defer telemetry.End(span, &err)

	v, err := s.repo.Get(ctx, voteID)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.requireMember(ctx, v.ClanID, playerID); err != nil {
		return Outcome{}, err
	}

	now := s.now()
	updated, ok, err := s.repo.AppendBallot(ctx, voteID, playerID, inFavor, !s.cfg.VoteEarlyFailDisabled, now)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, s.rejectBallot(ctx, voteID, playerID, now)
	}

	ballots.WithLabelValues(side(inFavor)).Inc()
	out := Outcome{Vote: updated}
	if updated.Status.IsTerminal() {
		out.Transition = updated.Status
		s.publish(out)
	}
	log.WithFields(log.Fields{
		"vote_id":   voteID,
		"player_id": playerID,
		"in_favor":  inFavor,
		"for":       len(updated.VotesFor),
		"against":   len(updated.VotesAgainst),
		"required":  updated.RequiredVotes,
		"status":    updated.Status,
	}).Info("Голос принят")
	return out, nil
}

// rejectBallot выясняет, почему голос не принят.
func (s *Service) rejectBallot(ctx context.Context, voteID, playerID string, now time.Time) error {
	cur, err := s.repo.Get(ctx, voteID)
	if err != nil {
		return err
	}
	switch {
	case cur.DueToExpire(now):
		if _, err := s.expireOne(ctx, voteID, now); err != nil {
			return err
		}
		rejected.WithLabelValues("closed").Inc()
		return fmt.Errorf("голосование %s: %w", common.ShortID(voteID), common.ErrVoteClosed)
	case cur.Status.IsTerminal():
		rejected.WithLabelValues("closed").Inc()
		return fmt.Errorf("голосование %s (%s): %w", common.ShortID(voteID), cur.Status, common.ErrVoteClosed)
	case cur.HasVoted(playerID):
		rejected.WithLabelValues("duplicate_ballot").Inc()
		return fmt.Errorf("игрок %s: %w", playerID, common.ErrDuplicateBallot)
	default:
		// Строку изменили между UPDATE и чтением: голосование уже завершилось
		rejected.WithLabelValues("closed").Inc()
		return fmt.Errorf("голосование %s: %w", common.ShortID(voteID), common.ErrVoteClosed)
	}
}

// Veto — лидер клана отменяет активное голосование.
func (s *Service) Veto(ctx context.Context, voteID, vetoerID, reason string) (_ Outcome, err error) {
	ctx, span := tracer.Start(ctx, "votes.Veto")
	span.SetAttributes(attribute.String("vote_id", voteID))
	defer telemetry.End(span, &err)

	v, err := s.repo.Get(ctx, voteID)
	if err != nil {
		return Outcome{}, err
	}
	m, err := s.clans.Member(ctx, v.ClanID, vetoerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Outcome{}, fmt.Errorf("игрок %s не состоит в клане %s: %w", vetoerID, v.ClanID, common.ErrUnauthorized)
		}
		return Outcome{}, err
	}
	if !m.CanVeto() {
		rejected.WithLabelValues("unauthorized").Inc()
		return Outcome{}, fmt.Errorf("вето может наложить только лидер: %w", common.ErrUnauthorized)
	}

	now := s.now()
	updated, ok, err := s.repo.Veto(ctx, voteID, vetoerID, reason, now)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		if v.DueToExpire(now) {
			if _, err := s.expireOne(ctx, voteID, now); err != nil {
				return Outcome{}, err
			}
		}
		rejected.WithLabelValues("closed").Inc()
		return Outcome{}, fmt.Errorf("голосование %s: %w", common.ShortID(voteID), common.ErrVoteClosed)
	}

	out := Outcome{Vote: updated, Transition: StatusVetoed}
	s.publish(out)
	log.WithFields(log.Fields{
		"vote_id":   voteID,
		"vetoed_by": vetoerID,
		"reason":    reason,
	}).Info("Голосование отменено вето")
	return out, nil
}

// ExpireSweep закрывает все голосования с вышедшим сроком. Запускается по расписанию.
func (s *Service) ExpireSweep(ctx context.Context) ([]Outcome, error) {
	ctx, span := tracer.Start(ctx, "votes.ExpireSweep")
	defer span.End()

	out, err := s.expire(ctx, s.now(), "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(out) > 0 {
		log.WithField("expired", len(out)).Info("Истёкшие голосования закрыты")
	}
	return out, nil
}

// Get возвращает голосование, закрывая его, если срок вышел.
func (s *Service) Get(ctx context.Context, voteID string) (*Vote, error) {
	v, err := s.repo.Get(ctx, voteID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !v.DueToExpire(now) {
		return v, nil
	}
	out, err := s.expireOne(ctx, voteID, now)
	if err != nil {
		return nil, err
	}
	if out != nil {
		return out.Vote, nil
	}
	return s.repo.Get(ctx, voteID)
}

// ActiveForClan возвращает активные голосования клана (истёкшие сначала закрываются).
func (s *Service) ActiveForClan(ctx context.Context, clanID string) ([]*Vote, error) {
	if _, err := s.expire(ctx, s.now(), clanID); err != nil {
		return nil, err
	}
	return s.repo.ActiveByClan(ctx, clanID)
}

// Recent возвращает историю голосований клана.
func (s *Service) Recent(ctx context.Context, clanID string, limit int) ([]*Vote, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	return s.repo.RecentByClan(ctx, clanID, limit)
}

// ResolveRef принимает полный идентификатор или его первые символы
// (ищется среди последних голосований клана игрока).
func (s *Service) ResolveRef(ctx context.Context, playerID, ref string) (string, error) {
	if len(ref) >= 32 {
		return ref, nil
	}
	m, err := s.clans.Membership(ctx, playerID)
	if err != nil {
		return "", err
	}
	recent, err := s.Recent(ctx, m.ClanID, RecentLimit)
	if err != nil {
		return "", err
	}
	for _, v := range recent {
		if strings.HasPrefix(v.VoteID, ref) {
			return v.VoteID, nil
		}
	}
	return "", fmt.Errorf("голосование %s: %w", ref, common.ErrNotFound)
}

// ClaimLaunch однократно закрепляет пуск по прошедшему голосованию.
func (s *Service) ClaimLaunch(ctx context.Context, voteID string) (*Vote, error) {
	v, ok, err := s.repo.MarkLaunched(ctx, voteID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("голосование %s не прошло или пуск уже состоялся: %w",
			common.ShortID(voteID), common.ErrLaunchNotAllowed)
	}
	return v, nil
}

// ReleaseLaunch снимает захват пуска (последствия не применились).
func (s *Service) ReleaseLaunch(ctx context.Context, v *Vote) error {
	return s.repo.ReleaseLaunch(ctx, v.VoteID, v.LaunchedAt)
}

func (s *Service) expire(ctx context.Context, now time.Time, clanID string) ([]Outcome, error) {
	expired, err := s.repo.ExpireDue(ctx, now, clanID)
	if err != nil {
		return nil, err
	}
	out := make([]Outcome, 0, len(expired))
	for _, v := range expired {
		o := Outcome{Vote: v, Transition: StatusExpired}
		s.publish(o)
		out = append(out, o)
	}
	return out, nil
}

func (s *Service) expireOne(ctx context.Context, voteID string, now time.Time) (*Outcome, error) {
	v, ok, err := s.repo.ExpireOne(ctx, voteID, now)
	if err != nil || !ok {
		return nil, err
	}
	o := Outcome{Vote: v, Transition: StatusExpired}
	s.publish(o)
	return &o, nil
}

func (s *Service) publish(o Outcome) {
	resolved.WithLabelValues(string(o.Transition)).Inc()
	if s.bus != nil {
		s.bus.Publish(event.New(event.VoteResolved, o))
	}
}

func (s *Service) requireMember(ctx context.Context, clanID, playerID string) error {
	if _, err := s.clans.Member(ctx, clanID, playerID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			rejected.WithLabelValues("unauthorized").Inc()
			return fmt.Errorf("игрок %s не состоит в клане %s: %w", playerID, clanID, common.ErrUnauthorized)
		}
		return err
	}
	return nil
}

func validateTerms(p Proposal) error {
	switch {
	case p.Type.IsWeaponLaunch(), p.Type == TypeDeclareWar, p.Type == TypeAlliance:
		if p.Terms.TargetClanID == "" {
			return fmt.Errorf("для %s нужен клан-цель: %w", p.Type, common.ErrInvalidArgument)
		}
		if p.Terms.TargetClanID == p.ClanID {
			return fmt.Errorf("клан не может выбрать целью себя: %w", common.ErrInvalidArgument)
		}
	case p.Type == TypeKickMember:
		if p.Terms.TargetPlayerID == "" {
			return fmt.Errorf("для %s нужен игрок: %w", p.Type, common.ErrInvalidArgument)
		}
		if p.Terms.TargetPlayerID == p.ProposerID {
			return fmt.Errorf("нельзя голосовать за своё исключение: %w", common.ErrInvalidArgument)
		}
	}
	return nil
}

func side(inFavor bool) string {
	if inFavor {
		return "for"
	}
	return "against"
}
