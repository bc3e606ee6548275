// Package votes — голосования кланов: кворум, вето, истечение срока.
// models.go описывает запись голосования (таблица clan_votes) и её жизненный цикл.
package votes

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"darkframe.ru/clanwar/internal/common"
)

// Type — вид действия, которое клан ставит на голосование.
type Type string

const (
	TypeTacticalLaunch   Type = "TACTICAL_LAUNCH"
	TypeStrategicLaunch  Type = "STRATEGIC_LAUNCH"
	TypeClanBusterLaunch Type = "CLAN_BUSTER_LAUNCH"
	TypeDeclareWar       Type = "DECLARE_WAR"
	TypeAlliance         Type = "ALLIANCE"
	TypeKickMember       Type = "KICK_MEMBER"
)

// wmdGroup — все пуски ОМП конфликтуют между собой: одновременно идёт не больше одного.
const wmdGroup = "WMD"

var typeAliases = map[string]Type{
	"tactical":    TypeTacticalLaunch,
	"strategic":   TypeStrategicLaunch,
	"clan_buster": TypeClanBusterLaunch,
	"buster":      TypeClanBusterLaunch,
	"war":         TypeDeclareWar,
	"alliance":    TypeAlliance,
	"kick":        TypeKickMember,
}

// ParseType принимает полное имя типа или короткий псевдоним (tactical, war, kick...).
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if t, ok := typeAliases[strings.ToLower(s)]; ok {
		return t, nil
	}
	t := Type(strings.ToUpper(s))
	if !t.Valid() {
		return "", fmt.Errorf("%q: %w", s, common.ErrInvalidVoteType)
	}
	return t, nil
}

func (t Type) Valid() bool {
	switch t {
	case TypeTacticalLaunch, TypeStrategicLaunch, TypeClanBusterLaunch,
		TypeDeclareWar, TypeAlliance, TypeKickMember:
		return true
	}
	return false
}

// IsWeaponLaunch — голосование за пуск ОМП (подчиняется кулдауну).
func (t Type) IsWeaponLaunch() bool {
	return t == TypeTacticalLaunch || t == TypeStrategicLaunch || t == TypeClanBusterLaunch
}

// ConflictGroup — ключ, по которому у клана допускается одно активное голосование.
func (t Type) ConflictGroup() string {
	if t.IsWeaponLaunch() {
		return wmdGroup
	}
	return string(t)
}

// Warhead — тип боеголовки, которым запускается оружие по итогам голосования.
func (t Type) Warhead() string {
	if !t.IsWeaponLaunch() {
		return ""
	}
	return strings.TrimSuffix(string(t), "_LAUNCH")
}

// Status — состояние голосования. Все статусы, кроме ACTIVE, терминальны.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusVetoed  Status = "VETOED"
	StatusExpired Status = "EXPIRED"
)

func (s Status) IsTerminal() bool {
	return s != StatusActive
}

// Terms — предмет голосования.
type Terms struct {
	TargetClanID   string
	TargetPlayerID string
	WeaponSubtype  string
}

// Vote — голосование клана. Никогда не удаляется.
type Vote struct {
	VoteID        string
	ClanID        string
	Type          Type
	ProposerID    string
	Status        Status
	VotesFor      []string
	VotesAgainst  []string
	RequiredVotes int
	ClanSize      int // Состав клана на момент предложения, нужен для досрочного провала
	Terms         Terms
	VetoedBy      string
	VetoReason    string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ResolvedAt    time.Time // Нулевое, пока ACTIVE
	LaunchedAt    time.Time // Нулевое, пока пуск по голосованию не состоялся
}

// HasVoted — игрок уже голосовал (за или против).
func (v *Vote) HasVoted(playerID string) bool {
	return slices.Contains(v.VotesFor, playerID) || slices.Contains(v.VotesAgainst, playerID)
}

// DueToExpire — голосование ещё ACTIVE, но срок вышел.
// Ровно в момент ExpiresAt голос уже не принимается.
func (v *Vote) DueToExpire(now time.Time) bool {
	return v.Status == StatusActive && !now.Before(v.ExpiresAt)
}

// Launched — пуск по этому голосованию уже состоялся.
func (v *Vote) Launched() bool {
	return !v.LaunchedAt.IsZero()
}

// Outcome — результат операции над голосованием. Transition пуст,
// если статус не изменился; иначе это новый терминальный статус.
type Outcome struct {
	Vote       *Vote
	Transition Status
}

// Resolved — операция завершила голосование.
func (o Outcome) Resolved() bool {
	return o.Transition != ""
}

// Proposal — запрос на новое голосование.
type Proposal struct {
	ClanID     string
	ProposerID string
	Type       Type
	Terms      Terms
	ClanSize   int // <= 0: размер берётся из справочника кланов
}

// RequiredVotes — сколько голосов «за» нужно: ceil(fraction × clanSize), но не меньше 1.
// Эпсилон убирает ошибку округления (0.6 × 5 должно дать 3, а не 4).
func RequiredVotes(fraction float64, clanSize int) int {
	n := int(math.Ceil(fraction*float64(clanSize) - 1e-9))
	return max(n, 1)
}
