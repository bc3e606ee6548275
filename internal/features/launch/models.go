// Package launch — авторизация ударов: пуск по итогам голосования,
// прямой удар без голосования и ответный удар по праву на ответ.
package launch

import (
	"context"

	log "github.com/sirupsen/logrus"

	"darkframe.ru/clanwar/internal/features/consequences"
	"darkframe.ru/clanwar/internal/features/retaliation"
)

// Kind — вид удара.
type Kind string

const (
	KindVote        Kind = "vote"
	KindDirect      Kind = "direct"
	KindRetaliation Kind = "retaliation"
)

// Strike — разрешённый удар, который нужно исполнить в игровом мире.
type Strike struct {
	Kind           Kind
	LauncherClanID string
	TargetClanID   string
	Warhead        string
	PlayerID       string
	VoteID         string
}

// Counterstrike — итог ответного удара: списанное право и применённые последствия.
type Counterstrike struct {
	Right  *retaliation.Right
	Report *consequences.Report
}

// Effects — исполнение удара в игровом мире (разрушения, анимации).
type Effects interface {
	Detonate(ctx context.Context, s Strike) error
}

// LogEffects — исполнитель по умолчанию: только пишет удар в лог.
type LogEffects struct{}

func (LogEffects) Detonate(_ context.Context, s Strike) error {
	log.WithFields(log.Fields{
		"kind":             s.Kind,
		"launcher_clan_id": s.LauncherClanID,
		"target_clan_id":   s.TargetClanID,
		"warhead":          s.Warhead,
		"player_id":        s.PlayerID,
	}).Info("Удар исполнен")
	return nil
}
