// Package retaliation — handlers.go обрабатывает команду /rights.
package retaliation

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/common"
)

// Handler показывает игроку его права на ответный удар.
type Handler struct {
	service *Service
	sender  common.Sender
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleRights — команда /rights.
func (h *Handler) HandleRights(ctx context.Context, chatID int64, playerID string) {
	rights, err := h.service.ListActive(ctx, playerID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения прав")
		h.sender.SendMessage(ctx, chatID, common.UserMessage(err))
		return
	}
	if len(rights) == 0 {
		h.sender.SendMessage(ctx, chatID, "У вас нет прав на ответный удар")
		return
	}

	// Группируем по клану-агрессору, сохраняя порядок истечения
	counts := make(map[string]int)
	var order []string
	nearest := make(map[string]*Right)
	for _, r := range rights {
		if _, ok := counts[r.AgainstClanID]; !ok {
			order = append(order, r.AgainstClanID)
			nearest[r.AgainstClanID] = r
		}
		counts[r.AgainstClanID]++
	}

	now := h.service.now()
	var sb strings.Builder
	sb.WriteString("🎯 Права на ответный удар:")
	for _, clan := range order {
		fmt.Fprintf(&sb, "\n• по клану %s: %d, ближайшее сгорает через %s",
			clan, counts[clan], common.FormatCountdown(nearest[clan].ExpiresAt.Sub(now)))
	}
	h.sender.SendMessage(ctx, chatID, sb.String())
}
