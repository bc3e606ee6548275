// Package relations — дипломатические отношения между кланами.
// Пара кланов неупорядочена: (A, B) и (B, A) — одна запись.
package relations

import "time"

// Relation — состояние отношений пары кланов.
type Relation string

const (
	Neutral Relation = "NEUTRAL"
	Ally    Relation = "ALLY"
	Enemy   Relation = "ENEMY"
	AtWar   Relation = "WAR"
)

// Record — отношения пары кланов. ClanA < ClanB всегда.
type Record struct {
	ClanA       string
	ClanB       string
	Relation    Relation
	Reason      string
	LastUpdated time.Time
}

// CanonicalPair упорядочивает пару кланов для ключа хранения.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
