// Package retaliation — права на ответный удар. Выдаются участникам
// атакованного клана и расходуются ровно один раз.
package retaliation

import "time"

// Right — право игрока один раз ударить по клану-агрессору.
type Right struct {
	ID            int64
	PlayerID      string
	PlayerClanID  string
	AgainstClanID string
	GrantedAt     time.Time
	ExpiresAt     time.Time
	Used          bool
	UsedAt        time.Time // Нулевое, пока право не израсходовано
	SourceEventID string
}

// Usable — право не израсходовано и не истекло.
func (r *Right) Usable(now time.Time) bool {
	return !r.Used && now.Before(r.ExpiresAt)
}

// Grant — пакет прав для всех участников клана-жертвы.
type Grant struct {
	VictimClanID    string
	AggressorClanID string
	PlayerIDs       []string
	GrantedAt       time.Time
	ExpiresAt       time.Time
	SourceEventID   string
}
