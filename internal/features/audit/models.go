// Package audit — журнал применённых последствий. Записи только добавляются.
package audit

import "time"

// Event — одна запись о применённом ударе.
type Event struct {
	EventID        string
	LauncherClanID string
	TargetClanID   string
	WarheadType    string
	Tier           string // Фактически применённый тир (отличается при fallback)
	Severity       string
	ReputationLoss int
	CooldownDays   int
	VoteID         string // Пусто для ударов без голосования
	FallbackTier   bool
	Retaliation    bool // Ответный удар по праву на ответ
	AppliedSteps   int
	CreatedAt      time.Time
}
