// Package launch — handlers.go обрабатывает команды /launch, /strike и /retaliate.
package launch

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/features/consequences"
)

// Handler обрабатывает команды ударов.
type Handler struct {
	service *Service
	sender  common.Sender
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleLaunch — /launch <id голосования>.
func (h *Handler) HandleLaunch(ctx context.Context, chatID int64, playerID string, args []string) {
	if len(args) < 1 {
		h.sender.SendMessage(ctx, chatID, "Использование: /launch <id голосования>")
		return
	}
	voteID, err := h.service.votes.ResolveRef(ctx, playerID, args[0])
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка поиска голосования")
		return
	}
	report, err := h.service.LaunchFromVote(ctx, voteID, playerID)
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка запуска")
		return
	}
	h.sender.SendMessage(ctx, chatID, "🚀 Пуск произведён\n"+consequences.Announcement(report))
}

// HandleStrike — /strike <клан> <боеголовка>. Только для ударов без голосования.
func (h *Handler) HandleStrike(ctx context.Context, chatID int64, playerID string, args []string) {
	if len(args) < 2 {
		h.sender.SendMessage(ctx, chatID, "Использование: /strike <клан> <боеголовка>")
		return
	}
	report, err := h.service.LaunchDirect(ctx, playerID, args[0], args[1])
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка удара")
		return
	}
	h.sender.SendMessage(ctx, chatID, consequences.Announcement(report))
}

// HandleRetaliate — /retaliate <клан> <боеголовка>.
func (h *Handler) HandleRetaliate(ctx context.Context, chatID int64, playerID string, args []string) {
	if len(args) < 2 {
		h.sender.SendMessage(ctx, chatID, "Использование: /retaliate <клан> <боеголовка>")
		return
	}
	cs, err := h.service.Retaliate(ctx, playerID, args[0], args[1])
	if err != nil {
		h.replyError(ctx, chatID, err, "Ошибка ответного удара")
		return
	}
	h.sender.SendMessage(ctx, chatID, fmt.Sprintf("🎯 Ответный удар по клану %s нанесён (право #%d израсходовано)\n%s",
		cs.Right.AgainstClanID, cs.Right.ID, consequences.Announcement(cs.Report)))
}

func (h *Handler) replyError(ctx context.Context, chatID int64, err error, logMsg string) {
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrUnauthorized) ||
		errors.Is(err, common.ErrLaunchNotAllowed) || errors.Is(err, common.ErrNoRetaliationRight) ||
		errors.Is(err, common.ErrUnknownWarheadType) || errors.Is(err, common.ErrInvalidArgument) {
		log.WithError(err).Debug(logMsg)
	} else {
		log.WithError(err).Error(logMsg)
	}
	h.sender.SendMessage(ctx, chatID, common.UserMessage(err))
}
