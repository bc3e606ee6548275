// Package reputation — репутация игроков и ограниченная история изменений.
// models.go описывает структуры таблиц players и reputation_history.
package reputation

import "time"

// HistoryLimit — сколько последних изменений хранится на игрока.
// Более старые записи вытесняются в той же транзакции, что и вставка.
const HistoryLimit = 50

// Player — репутация игрока. Игрок без записи считается с нулевой репутацией.
type Player struct {
	PlayerID   string
	Reputation int64
	History    []Entry // Новые первыми
}

// Entry — одно изменение репутации.
type Entry struct {
	Change    int64
	Reason    string
	CreatedAt time.Time
}
