package consequences

import (
	"time"

	"darkframe.ru/clanwar/internal/common"
)

// Launch — состоявшийся удар, последствия которого нужно записать.
type Launch struct {
	LauncherClanID   string
	TargetClanID     string
	WarheadType      string
	LauncherPlayerID string // Обязателен для тиров, которые штрафуют только запустившего
	VoteID           string // Пусто для ударов без голосования
	Retaliation      bool   // Ответный удар: новых прав на ответ не выдаёт
}

// Report — что было применено.
type Report struct {
	EventID       string
	Launch        Launch
	Warhead       string // Фактически применённый тир
	Tier          Tier
	Fallback      bool // Боеголовка неизвестна, применён самый мягкий тир
	Penalized     int
	RightsGranted int64
	CooldownUntil time.Time
	AppliedAt     time.Time
	Applied       int // Сколько шагов из пяти прошло успешно
	Failed        []common.Step
	partial       *common.PartialFailure
}

// FullyApplied — все пять шагов прошли.
func (r *Report) FullyApplied() bool {
	return len(r.Failed) == 0
}

// Err возвращает *common.PartialFailure, если часть шагов не применилась.
func (r *Report) Err() error {
	if r.partial == nil {
		return nil
	}
	return r.partial
}
