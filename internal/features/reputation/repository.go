// Package reputation — repository.go выполняет операции с таблицами players и reputation_history.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицами players и reputation_history.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий репутации.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ApplyPenalty списывает amount со всех игроков и пишет историю одной транзакцией.
// Либо штраф получают все, либо никто.
func (r *Repository) ApplyPenalty(ctx context.Context, playerIDs []string, amount int64, reason string, at time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO players (player_id)
		SELECT unnest($1::text[])
		ON CONFLICT (player_id) DO NOTHING
	`, playerIDs); err != nil {
		return fmt.Errorf("ошибка создания игроков: %w", err)
	}

	// Блокируем строки в одном порядке, чтобы параллельные штрафы не ловили дедлок
	if _, err := tx.Exec(ctx, `
		SELECT 1 FROM players WHERE player_id = ANY($1) ORDER BY player_id FOR UPDATE
	`, playerIDs); err != nil {
		return fmt.Errorf("ошибка блокировки игроков: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE players
		SET reputation = reputation - $2, updated_at = NOW()
		WHERE player_id = ANY($1)
	`, playerIDs, amount); err != nil {
		return fmt.Errorf("ошибка списания репутации: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO reputation_history (player_id, change, reason, created_at)
		SELECT unnest($1::text[]), $2, $3, $4
	`, playerIDs, -amount, reason, at); err != nil {
		return fmt.Errorf("ошибка записи истории репутации: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM reputation_history h
		USING (
			SELECT id FROM (
				SELECT id, row_number() OVER (
					PARTITION BY player_id ORDER BY created_at DESC, id DESC
				) AS rn
				FROM reputation_history
				WHERE player_id = ANY($1)
			) ranked
			WHERE rn > $2
		) old
		WHERE h.id = old.id
	`, playerIDs, HistoryLimit); err != nil {
		return fmt.Errorf("ошибка очистки истории репутации: %w", err)
	}

	return tx.Commit(ctx)
}

// Get возвращает репутацию игрока и его историю (новые первыми).
func (r *Repository) Get(ctx context.Context, playerID string) (*Player, error) {
	p := Player{PlayerID: playerID}
	err := r.db.QueryRow(ctx,
		`SELECT reputation FROM players WHERE player_id = $1`, playerID,
	).Scan(&p.Reputation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &p, nil
		}
		return nil, fmt.Errorf("ошибка чтения репутации: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT change, reason, created_at
		FROM reputation_history
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, playerID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Change, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		p.History = append(p.History, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return &p, nil
}
