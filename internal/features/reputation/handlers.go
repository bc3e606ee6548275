// Package reputation — handlers.go обрабатывает команду /rep.
package reputation

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/common"
)

// Сколько последних изменений показывать в чате
const shownHistory = 5

// Handler обрабатывает команды репутации.
type Handler struct {
	service *Service
	sender  common.Sender
}

// NewHandler создаёт обработчик репутации.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleRep — команда /rep. Показывает ТОЛЬКО свою репутацию и последние изменения.
func (h *Handler) HandleRep(ctx context.Context, chatID int64, playerID string) {
	p, err := h.service.Get(ctx, playerID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения репутации")
		h.sender.SendMessage(ctx, chatID, "❌ Ошибка получения репутации")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "⭐ Ваша репутация: %s", common.FormatNumber(p.Reputation))
	for i, e := range p.History {
		if i == shownHistory {
			break
		}
		fmt.Fprintf(&sb, "\n%s  %s (%s)",
			common.FormatReputationChange(e.Change), e.Reason, common.FormatDateTime(e.CreatedAt))
	}
	h.sender.SendMessage(ctx, chatID, sb.String())
}
