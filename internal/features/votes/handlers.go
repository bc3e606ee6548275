// Package votes — handlers.go обрабатывает команды /propose, /vote, /veto и /votes.
package votes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/common"
)

// Handler обрабатывает команды голосований.
type Handler struct {
	service *Service
	sender  common.Sender
}

// NewHandler создаёт обработчик голосований.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

const proposeUsage = "Использование: /propose <tactical|strategic|clan_buster|war|alliance> <клан> [подтип]\n" +
	"или /propose kick <игрок>"

// HandlePropose — /propose <тип> <цель> [подтип оружия].
func (h *Handler) HandlePropose(ctx context.Context, chatID int64, playerID string, args []string) {
	if len(args) < 2 {
		h.sender.SendMessage(ctx, chatID, proposeUsage)
		return
	}
	voteType, err := ParseType(args[0])
	if err != nil {
		h.sender.SendMessage(ctx, chatID, common.UserMessage(err)+"\n"+proposeUsage)
		return
	}

	m, err := h.service.clans.Membership(ctx, playerID)
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка получения клана")
		return
	}

	p := Proposal{ClanID: m.ClanID, ProposerID: playerID, Type: voteType}
	if voteType == TypeKickMember {
		p.Terms.TargetPlayerID = args[1]
	} else {
		p.Terms.TargetClanID = args[1]
	}
	if len(args) > 2 {
		p.Terms.WeaponSubtype = args[2]
	}

	v, err := h.service.Propose(ctx, p)
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка создания голосования")
		return
	}
	h.sender.SendMessage(ctx, chatID, fmt.Sprintf(
		"🗳 Голосование %s создано: %s\nНужно голосов «за»: %d из %d\nЗавершится через %s\nГолосовать: /vote %s yes|no",
		common.ShortID(v.VoteID), Describe(v), v.RequiredVotes, v.ClanSize,
		common.FormatCountdown(v.ExpiresAt.Sub(v.CreatedAt)), common.ShortID(v.VoteID)))
}

// HandleVote — /vote <id> yes|no.
func (h *Handler) HandleVote(ctx context.Context, chatID int64, playerID string, args []string) {
	if len(args) < 2 {
		h.sender.SendMessage(ctx, chatID, "Использование: /vote <id> yes|no")
		return
	}
	inFavor, ok := parseBallot(args[1])
	if !ok {
		h.sender.SendMessage(ctx, chatID, "Голос должен быть yes или no")
		return
	}
	voteID, err := h.resolveID(ctx, playerID, args[0])
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка поиска голосования")
		return
	}

	out, err := h.service.CastBallot(ctx, voteID, playerID, inFavor)
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка голосования")
		return
	}
	v := out.Vote
	msg := fmt.Sprintf("✅ Голос учтён. «За»: %d/%d, «против»: %d",
		len(v.VotesFor), v.RequiredVotes, len(v.VotesAgainst))
	if out.Resolved() {
		msg += "\n" + StatusLine(v)
	}
	h.sender.SendMessage(ctx, chatID, msg)
}

// HandleVeto — /veto <id> <причина>.
func (h *Handler) HandleVeto(ctx context.Context, chatID int64, playerID string, args []string) {
	if len(args) < 1 {
		h.sender.SendMessage(ctx, chatID, "Использование: /veto <id> <причина>")
		return
	}
	voteID, err := h.resolveID(ctx, playerID, args[0])
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка поиска голосования")
		return
	}
	reason := strings.Join(args[1:], " ")

	if _, err := h.service.Veto(ctx, voteID, playerID, reason); err != nil {
		h.replyError(ctx, chatID, err, "Ошибка вето")
		return
	}
	h.sender.SendMessage(ctx, chatID, "⛔ Голосование "+common.ShortID(voteID)+" отменено вето")
}

// HandleList — /votes. Активные голосования клана игрока.
func (h *Handler) HandleList(ctx context.Context, chatID int64, playerID string) {
	m, err := h.service.clans.Membership(ctx, playerID)
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка получения клана")
		return
	}
	active, err := h.service.ActiveForClan(ctx, m.ClanID)
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка получения голосований")
		return
	}
	if len(active) == 0 {
		h.sender.SendMessage(ctx, chatID, "Активных голосований нет")
		return
	}

	now := h.service.now()
	var sb strings.Builder
	sb.WriteString("🗳 Активные голосования:")
	for _, v := range active {
		mark := ""
		if v.HasVoted(playerID) {
			mark = " (вы проголосовали)"
		}
		fmt.Fprintf(&sb, "\n• %s — %s: за %d/%d, против %d, осталось %s%s",
			common.ShortID(v.VoteID), Describe(v), len(v.VotesFor), v.RequiredVotes,
			len(v.VotesAgainst), common.FormatCountdown(v.ExpiresAt.Sub(now)), mark)
	}
	h.sender.SendMessage(ctx, chatID, sb.String())
}

func (h *Handler) resolveID(ctx context.Context, playerID, ref string) (string, error) {
	return h.service.ResolveRef(ctx, playerID, ref)
}

func (h *Handler) replyError(ctx context.Context, chatID int64, err error, logMsg string) {
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrUnauthorized) ||
		errors.Is(err, common.ErrVoteClosed) || errors.Is(err, common.ErrDuplicateBallot) ||
		errors.Is(err, common.ErrDuplicateActiveVote) || errors.Is(err, common.ErrInvalidVoteType) ||
		errors.Is(err, common.ErrInvalidArgument) {
		log.WithError(err).Debug(logMsg)
	} else {
		log.WithError(err).Error(logMsg)
	}
	h.sender.SendMessage(ctx, chatID, common.UserMessage(err))
}

func parseBallot(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "yes", "y", "да", "за", "+":
		return true, true
	case "no", "n", "нет", "против", "-":
		return false, true
	}
	return false, false
}

var typeTitles = map[Type]string{
	TypeTacticalLaunch:   "☢️ тактический удар",
	TypeStrategicLaunch:  "☢️ стратегический удар",
	TypeClanBusterLaunch: "☢️ удар «Клан-бастер»",
	TypeDeclareWar:       "⚔️ объявление войны",
	TypeAlliance:         "🤝 союз",
	TypeKickMember:       "🚪 исключение игрока",
}

// Describe — человекочитаемое описание предмета голосования.
func Describe(v *Vote) string {
	title := typeTitles[v.Type]
	switch {
	case v.Terms.TargetPlayerID != "":
		return fmt.Sprintf("%s %s", title, v.Terms.TargetPlayerID)
	case v.Terms.WeaponSubtype != "":
		return fmt.Sprintf("%s (%s) по клану %s", title, v.Terms.WeaponSubtype, v.Terms.TargetClanID)
	default:
		return fmt.Sprintf("%s, клан %s", title, v.Terms.TargetClanID)
	}
}

// StatusLine — итог голосования для объявлений.
func StatusLine(v *Vote) string {
	switch v.Status {
	case StatusPassed:
		if v.Type.IsWeaponLaunch() {
			return "🟢 Голосование прошло. Пуск: /launch " + common.ShortID(v.VoteID)
		}
		return "🟢 Голосование прошло"
	case StatusFailed:
		return "🔴 Голосование провалено: набрать кворум уже невозможно"
	case StatusVetoed:
		if v.VetoReason != "" {
			return "⛔ Вето лидера: " + v.VetoReason
		}
		return "⛔ Вето лидера"
	case StatusExpired:
		return "⌛ Время голосования вышло"
	default:
		return "🗳 Голосование идёт"
	}
}

// Announcement — текст объявления о завершении голосования.
func Announcement(o Outcome) string {
	v := o.Vote
	return fmt.Sprintf("📣 Клан %s, голосование %s: %s\nЗа: %d/%d, против: %d\n%s",
		v.ClanID, common.ShortID(v.VoteID), Describe(v),
		len(v.VotesFor), v.RequiredVotes, len(v.VotesAgainst), StatusLine(v))
}
