// Package consequences — service.go применяет последствия удара ОМП.
// Шаг 1 (штраф репутации) несущий: при его ошибке удар не засчитывается.
// Шаги 2–5 выполняются независимо друг от друга, их ошибки попадают в Report.
package consequences

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/config"
	"darkframe.ru/clanwar/internal/event"
	"darkframe.ru/clanwar/internal/features/audit"
	"darkframe.ru/clanwar/internal/features/relations"
	"darkframe.ru/clanwar/internal/features/retaliation"
	"darkframe.ru/clanwar/internal/telemetry"
)

// Directory — состав кланов и кулдаун.
type Directory interface {
	MemberIDs(ctx context.Context, clanID string) ([]string, error)
	SetCooldown(ctx context.Context, clanID string, until, launchedAt time.Time) error
}

type Penalizer interface {
	ApplyPenalty(ctx context.Context, playerIDs []string, amount int64, reason string, at time.Time) error
}

type RelationSetter interface {
	Set(ctx context.Context, a, b string, rel relations.Relation, reason string, at time.Time) error
}

type RightsGranter interface {
	Grant(ctx context.Context, g retaliation.Grant) (int64, error)
}

type AuditLog interface {
	Append(ctx context.Context, e *audit.Event) error
}

type Publisher interface {
	Publish(evt event.Event)
}

// Deps — хранилища, в которые пишутся последствия.
type Deps struct {
	Clans       Directory
	Reputation  Penalizer
	Relations   RelationSetter
	Retaliation RightsGranter
	Audit       AuditLog
	Bus         Publisher // может быть nil
}

// Service — движок последствий.
type Service struct {
	deps  Deps
	tiers Table
	cfg   *config.Core
	now   func() time.Time
	newID func() string
}

// NewService создаёт движок последствий.
func NewService(deps Deps, tiers Table, cfg *config.Core) *Service {
	return &Service{
		deps:  deps,
		tiers: tiers,
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

var tracer = telemetry.Tracer("consequences")

// Tiers возвращает действующую таблицу боеголовок.
func (s *Service) Tiers() Table {
	return s.tiers
}

// Resolve находит тир боеголовки. Для неизвестной боеголовки при включённом
// fail-open возвращается самый мягкий тир и fallback=true.
func (s *Service) Resolve(warhead string) (name string, tier Tier, fallback bool, err error) {
	if tier, ok := s.tiers.Lookup(warhead); ok {
		return normalize(warhead), tier, false, nil
	}

	unknownWarheads.Inc()
	entry := log.WithField("warhead", warhead)
	if !s.cfg.ConsequenceUnknownFailOpen {
		entry.Warn("UnknownWarheadType: удар отклонён")
		return "", Tier{}, false, fmt.Errorf("%q: %w", warhead, common.ErrUnknownWarheadType)
	}
	name, tier = s.tiers.Lowest()
	if name == "" {
		return "", Tier{}, false, fmt.Errorf("таблица тиров пуста: %w", common.ErrUnknownWarheadType)
	}
	entry.WithField("fallback", name).Warn("UnknownWarheadType: применён самый мягкий тир")
	return name, tier, true, nil
}

// Apply записывает последствия удара.
// Ошибка возвращается только если не применился штраф репутации (шаг 1):
// тогда удар не засчитан и больше ничего не записано.
func (s *Service) Apply(ctx context.Context, l Launch) (_ *Report, err error) {
	ctx, span := tracer.Start(ctx, "consequences.Apply")
	span.SetAttributes(
		attribute.String("launcher_clan_id", l.LauncherClanID),
		attribute.String("target_clan_id", l.TargetClanID),
		attribute.String("warhead", l.WarheadType),
	)
	defer telemetry.End(span, &err)

	if l.LauncherClanID == "" || l.TargetClanID == "" {
		return nil, fmt.Errorf("нужны клан-агрессор и клан-цель: %w", common.ErrInvalidArgument)
	}
	if l.LauncherClanID == l.TargetClanID {
		return nil, fmt.Errorf("клан не может ударить по себе: %w", common.ErrInvalidArgument)
	}

	name, tier, fallback, err := s.Resolve(l.WarheadType)
	if err != nil {
		return nil, err
	}
	if !tier.AffectsAllMembers && l.LauncherPlayerID == "" {
		return nil, fmt.Errorf("тир %s штрафует запустившего, а он не указан: %w", name, common.ErrInvalidArgument)
	}

	now := s.now()
	r := &Report{
		EventID:   s.newID(),
		Launch:    l,
		Warhead:   name,
		Tier:      tier,
		Fallback:  fallback,
		AppliedAt: now,
	}
	reason := fmt.Sprintf("Удар %s по клану %s", name, l.TargetClanID)

	// Шаг 1: штраф репутации, всё или ничего
	penalized, err := s.penalize(ctx, l, tier, reason, now)
	if err != nil {
		stepFailures.WithLabelValues(string(common.StepReputation)).Inc()
		log.WithError(err).WithFields(log.Fields{
			"launcher_clan_id": l.LauncherClanID,
			"target_clan_id":   l.TargetClanID,
			"warhead":          name,
		}).Error("Штраф репутации не применён, удар не засчитан")
		return nil, fmt.Errorf("штраф репутации: %w", err)
	}
	r.Penalized = penalized
	r.Applied = 1

	failures := map[common.Step]error{}
	step := func(st common.Step, fn func() error) {
		if err := fn(); err != nil {
			failures[st] = err
			r.Failed = append(r.Failed, st)
			stepFailures.WithLabelValues(string(st)).Inc()
			return
		}
		r.Applied++
	}

	// Шаг 2: кулдаун перезаписывается, а не продлевается
	step(common.StepCooldown, func() error {
		until := now.Add(tier.Cooldown())
		if err := s.deps.Clans.SetCooldown(ctx, l.LauncherClanID, until, now); err != nil {
			return err
		}
		r.CooldownUntil = until
		return nil
	})

	// Шаг 3: кланы становятся врагами
	step(common.StepRelations, func() error {
		return s.deps.Relations.Set(ctx, l.LauncherClanID, l.TargetClanID, relations.Enemy, reason, now)
	})

	// Шаг 4: права на ответный удар для всех текущих участников клана-цели.
	// Ответный удар новых прав не выдаёт.
	step(common.StepRetaliation, func() error {
		if !tier.AllowsRetaliation || l.Retaliation {
			return nil
		}
		victims, err := s.deps.Clans.MemberIDs(ctx, l.TargetClanID)
		if err != nil {
			return err
		}
		n, err := s.deps.Retaliation.Grant(ctx, retaliation.Grant{
			VictimClanID:    l.TargetClanID,
			AggressorClanID: l.LauncherClanID,
			PlayerIDs:       victims,
			GrantedAt:       now,
			ExpiresAt:       now.Add(s.cfg.RetaliationWindow),
			SourceEventID:   r.EventID,
		})
		r.RightsGranted = n
		return err
	})

	// Шаг 5: запись в журнал, учитывает и себя
	step(common.StepAudit, func() error {
		return s.deps.Audit.Append(ctx, &audit.Event{
			EventID:        r.EventID,
			LauncherClanID: l.LauncherClanID,
			TargetClanID:   l.TargetClanID,
			WarheadType:    normalize(l.WarheadType),
			Tier:           name,
			Severity:       string(tier.Severity),
			ReputationLoss: int(tier.ReputationLoss),
			CooldownDays:   tier.CooldownDays,
			VoteID:         l.VoteID,
			FallbackTier:   fallback,
			Retaliation:    l.Retaliation,
			AppliedSteps:   r.Applied + 1,
			CreatedAt:      now,
		})
	})

	fields := log.Fields{
		"event_id":         r.EventID,
		"launcher_clan_id": l.LauncherClanID,
		"target_clan_id":   l.TargetClanID,
		"warhead":          name,
		"fallback":         fallback,
		"retaliation":      l.Retaliation,
		"penalized":        r.Penalized,
		"rights":           r.RightsGranted,
		"applied":          r.Applied,
	}
	if len(failures) > 0 {
		r.partial = &common.PartialFailure{Steps: failures}
		applied.WithLabelValues(name, "partial").Inc()
		log.WithError(r.partial).WithFields(fields).Warn("PartialConsequenceFailure")
	} else {
		applied.WithLabelValues(name, "full").Inc()
		log.WithFields(fields).Info("Последствия удара применены")
	}

	if s.deps.Bus != nil {
		s.deps.Bus.Publish(event.New(event.ConsequenceApplied, r))
	}
	return r, nil
}

func (s *Service) penalize(ctx context.Context, l Launch, tier Tier, reason string, now time.Time) (int, error) {
	var players []string
	if tier.AffectsAllMembers {
		ids, err := s.deps.Clans.MemberIDs(ctx, l.LauncherClanID)
		if err != nil {
			return 0, err
		}
		players = ids
	} else {
		players = []string{l.LauncherPlayerID}
	}
	if tier.ReputationLoss == 0 || len(players) == 0 {
		return 0, nil
	}
	if err := s.deps.Reputation.ApplyPenalty(ctx, players, tier.ReputationLoss, reason, now); err != nil {
		return 0, err
	}
	return len(players), nil
}
