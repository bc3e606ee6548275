// Package clans — справочник кланов (Clan Directory): состав, роли и кулдаун ОМП.
// models.go описывает структуры таблиц clans и clan_members.
package clans

import "time"

// Role — роль игрока в клане.
type Role string

const (
	RoleLeader  Role = "LEADER"
	RoleOfficer Role = "OFFICER"
	RoleMember  Role = "MEMBER"
)

// Valid проверяет, что роль известна.
func (r Role) Valid() bool {
	switch r {
	case RoleLeader, RoleOfficer, RoleMember:
		return true
	}
	return false
}

// Cooldown — кулдаун ОМП клана. Нулевое значение означает «кулдауна нет».
// Нормализуется один раз при чтении из БД, где поля могут быть NULL.
type Cooldown struct {
	Until      time.Time // wmd_cooldown_until
	LastLaunch time.Time // last_wmd_launch
}

// Active — клан не может проводить и запускать ОМП, пока now < Until.
func (c Cooldown) Active(now time.Time) bool {
	return now.Before(c.Until)
}

// Remaining возвращает остаток кулдауна (0, если не активен).
func (c Cooldown) Remaining(now time.Time) time.Duration {
	if !c.Active(now) {
		return 0
	}
	return c.Until.Sub(now)
}

// Clan представляет клан.
type Clan struct {
	ClanID    string
	Name      string
	LeaderID  string // Пусто, если лидер не назначен
	Cooldown  Cooldown
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member — текущий участник клана. Игрок состоит не больше чем в одном клане.
type Member struct {
	PlayerID string
	ClanID   string
	Role     Role
	JoinedAt time.Time
}

// CanVeto — вето накладывает только лидер клана.
func (m *Member) CanVeto() bool {
	return m.Role == RoleLeader
}

// CanLaunch — запуск по итогам голосования доступен лидеру и офицерам.
func (m *Member) CanLaunch() bool {
	return m.Role == RoleLeader || m.Role == RoleOfficer
}
