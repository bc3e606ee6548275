// Package clans — handlers.go обрабатывает команду /clan.
package clans

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/common"
)

// Handler обрабатывает команды справочника кланов.
type Handler struct {
	service *Service
	sender  common.Sender
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

var roleTitles = map[Role]string{
	RoleLeader:  "👑 лидер",
	RoleOfficer: "🎖 офицер",
	RoleMember:  "участник",
}

// HandleClan — команда /clan. Показывает клан игрока, его роль и кулдаун ОМП.
func (h *Handler) HandleClan(ctx context.Context, chatID int64, playerID string) {
	m, err := h.service.Membership(ctx, playerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.sender.SendMessage(ctx, chatID, "Вы не состоите в клане")
			return
		}
		log.WithError(err).Error("Ошибка получения членства")
		h.sender.SendMessage(ctx, chatID, common.UserMessage(err))
		return
	}

	clan, err := h.service.GetClan(ctx, m.ClanID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения клана")
		h.sender.SendMessage(ctx, chatID, common.UserMessage(err))
		return
	}
	size, err := h.service.CountMembers(ctx, m.ClanID)
	if err != nil {
		log.WithError(err).Error("Ошибка подсчёта участников")
		h.sender.SendMessage(ctx, chatID, common.UserMessage(err))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏴 Клан «%s» (%s)\n", clan.Name, clan.ClanID)
	fmt.Fprintf(&sb, "Ваша роль: %s\n", roleTitles[m.Role])
	fmt.Fprintf(&sb, "Состав: %d %s\n", size, common.Pluralize(int64(size), "боец", "бойца", "бойцов"))

	now := h.service.now()
	if clan.Cooldown.Active(now) {
		fmt.Fprintf(&sb, "☢️ Кулдаун ОМП: ещё %s (до %s)",
			common.FormatCountdown(clan.Cooldown.Remaining(now)),
			common.FormatDateTime(clan.Cooldown.Until))
	} else {
		sb.WriteString("☢️ ОМП доступно")
	}
	h.sender.SendMessage(ctx, chatID, sb.String())
}
