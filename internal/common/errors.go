// Package common — errors.go определяет ошибки, общие для всех модулей
// управления кланами. Обработчики различают их через errors.Is / errors.As
// и показывают игроку понятную причину отказа.
package common

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Базовые виды ошибок
var (
	// ErrNotFound — голосование, право или клан не найдены
	ErrNotFound = errors.New("не найдено")
	// ErrUnauthorized — у игрока нет нужной роли или действие заблокировано кулдауном
	ErrUnauthorized = errors.New("недостаточно прав")
	// ErrAlreadyExists — клан с таким идентификатором уже создан
	ErrAlreadyExists = errors.New("уже существует")
	// ErrInvalidArgument — некорректные параметры команды; текст ошибки показывается игроку
	ErrInvalidArgument = errors.New("некорректный запрос")
)

// Ошибки голосований (конфликт состояния, повторять нельзя)
var (
	// ErrVoteClosed — голосование уже завершено или истекло
	ErrVoteClosed = errors.New("голосование закрыто")
	// ErrDuplicateBallot — игрок уже голосовал (за или против)
	ErrDuplicateBallot = errors.New("вы уже проголосовали")
	// ErrDuplicateActiveVote — у клана уже идёт конфликтующее голосование
	ErrDuplicateActiveVote = errors.New("у клана уже идёт такое голосование")
	// ErrInvalidVoteType — неизвестный тип голосования
	ErrInvalidVoteType = errors.New("неизвестный тип голосования")
)

// Ошибки запуска и последствий
var (
	// ErrUnknownWarheadType — неизвестный тип боеголовки (при выключенном fail-open)
	ErrUnknownWarheadType = errors.New("неизвестный тип боеголовки")
	// ErrLaunchNotAllowed — запуск невозможен в текущем состоянии голосования
	ErrLaunchNotAllowed = errors.New("запуск невозможен")
	// ErrNoRetaliationRight — нет действующего права на ответный удар
	ErrNoRetaliationRight = errors.New("нет права на ответный удар")
)

// CooldownError — клан под кулдауном ОМП. Remaining нужен интерфейсу для обратного отсчёта.
type CooldownError struct {
	Until     time.Time
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("клан под кулдауном ОМП ещё %s", FormatCountdown(e.Remaining))
}

// Is позволяет проверять кулдаун как ошибку авторизации.
func (e *CooldownError) Is(target error) bool {
	return target == ErrUnauthorized
}

// Step — шаг применения последствий.
type Step string

const (
	StepReputation  Step = "reputation"
	StepCooldown    Step = "cooldown"
	StepRelations   Step = "relations"
	StepRetaliation Step = "retaliation"
	StepAudit       Step = "audit"
)

// PartialFailure — внутренний сигнал: часть не несущих шагов (2–5) не применилась.
// Запуск при этом считается состоявшимся.
type PartialFailure struct {
	Steps map[Step]error
}

func (e *PartialFailure) Error() string {
	parts := make([]string, 0, len(e.Steps))
	for _, step := range []Step{StepCooldown, StepRelations, StepRetaliation, StepAudit} {
		if err, ok := e.Steps[step]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", step, err))
		}
	}
	return "последствия применены частично: " + strings.Join(parts, "; ")
}

// Unwrap возвращает ошибки шагов для errors.Is.
func (e *PartialFailure) Unwrap() []error {
	out := make([]error, 0, len(e.Steps))
	for _, err := range e.Steps {
		out = append(out, err)
	}
	return out
}

// UserMessage превращает ошибку в текст для игрока.
// Неизвестные ошибки хранилища не раскрываются.
func UserMessage(err error) string {
	var cd *CooldownError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cd):
		return "⏳ " + cd.Error()
	case errors.Is(err, ErrDuplicateBallot):
		return "❌ Вы уже проголосовали"
	case errors.Is(err, ErrVoteClosed):
		return "❌ Голосование закрыто"
	case errors.Is(err, ErrDuplicateActiveVote):
		return "❌ У клана уже идёт такое голосование"
	case errors.Is(err, ErrNotFound):
		return "❌ Не найдено"
	case errors.Is(err, ErrAlreadyExists):
		return "❌ Уже существует"
	case errors.Is(err, ErrUnauthorized):
		return "❌ Недостаточно прав"
	case errors.Is(err, ErrInvalidVoteType):
		return "❌ Неизвестный тип голосования"
	case errors.Is(err, ErrUnknownWarheadType):
		return "❌ Неизвестный тип боеголовки"
	case errors.Is(err, ErrNoRetaliationRight):
		return "❌ У вас нет права на ответный удар по этому клану"
	case errors.Is(err, ErrLaunchNotAllowed), errors.Is(err, ErrInvalidArgument):
		return "❌ " + err.Error()
	default:
		return "❌ Внутренняя ошибка, попробуйте позже"
	}
}
