// Package audit — repository.go работает с таблицей consequence_events.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `event_id, launcher_clan_id, target_clan_id, warhead_type, tier, severity,
	reputation_loss, cooldown_days, vote_id, fallback_tier, retaliation, applied_steps, created_at`

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Append добавляет событие в журнал.
func (r *Repository) Append(ctx context.Context, e *Event) error {
	var voteID *string
	if e.VoteID != "" {
		voteID = &e.VoteID
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO consequence_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, e.EventID, e.LauncherClanID, e.TargetClanID, e.WarheadType, e.Tier, e.Severity,
		e.ReputationLoss, e.CooldownDays, voteID, e.FallbackTier, e.Retaliation, e.AppliedSteps, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}
	return nil
}

// ForClanSince возвращает события, где клан был атакующим или целью, новые первыми.
func (r *Repository) ForClanSince(ctx context.Context, clanID string, since time.Time) ([]*Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+` FROM consequence_events
		WHERE launcher_clan_id = $1 AND created_at >= $2
		UNION ALL
		SELECT `+eventColumns+` FROM consequence_events
		WHERE target_clan_id = $1 AND launcher_clan_id <> $1 AND created_at >= $2
		ORDER BY created_at DESC, event_id
	`, clanID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса журнала: %w", err)
	}
	return collectEvents(rows)
}

// Recent возвращает последние limit событий.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+` FROM consequence_events
		ORDER BY created_at DESC, event_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса журнала: %w", err)
	}
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]*Event, error) {
	defer rows.Close()
	var out []*Event
	for rows.Next() {
		var (
			e      Event
			voteID *string
		)
		if err := rows.Scan(&e.EventID, &e.LauncherClanID, &e.TargetClanID, &e.WarheadType, &e.Tier,
			&e.Severity, &e.ReputationLoss, &e.CooldownDays, &voteID, &e.FallbackTier, &e.Retaliation,
			&e.AppliedSteps, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		if voteID != nil {
			e.VoteID = *voteID
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
