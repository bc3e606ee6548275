// Package relations — repository.go работает с таблицей clan_relations.
package relations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Set записывает отношения пары (upsert по каноническому ключу).
func (r *Repository) Set(ctx context.Context, a, b string, rel Relation, reason string, at time.Time) error {
	if a == b {
		return fmt.Errorf("клан не может иметь отношения сам с собой: %s", a)
	}
	clanA, clanB := CanonicalPair(a, b)
	_, err := r.db.Exec(ctx, `
		INSERT INTO clan_relations (clan_a, clan_b, relation, reason, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (clan_a, clan_b) DO UPDATE
		SET relation = EXCLUDED.relation,
		    reason = EXCLUDED.reason,
		    last_updated = EXCLUDED.last_updated
	`, clanA, clanB, string(rel), reason, at)
	if err != nil {
		return fmt.Errorf("ошибка записи отношений %s/%s: %w", clanA, clanB, err)
	}
	return nil
}

// Get возвращает отношения пары. Отсутствие записи — NEUTRAL.
func (r *Repository) Get(ctx context.Context, a, b string) (*Record, error) {
	clanA, clanB := CanonicalPair(a, b)
	rec := Record{ClanA: clanA, ClanB: clanB, Relation: Neutral}
	var rel string
	err := r.db.QueryRow(ctx, `
		SELECT relation, reason, last_updated
		FROM clan_relations
		WHERE clan_a = $1 AND clan_b = $2
	`, clanA, clanB).Scan(&rel, &rec.Reason, &rec.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &rec, nil
		}
		return nil, fmt.Errorf("ошибка чтения отношений %s/%s: %w", clanA, clanB, err)
	}
	rec.Relation = Relation(rel)
	return &rec, nil
}

// ForClan возвращает все записанные отношения клана.
func (r *Repository) ForClan(ctx context.Context, clanID string) ([]*Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT clan_a, clan_b, relation, reason, last_updated
		FROM clan_relations
		WHERE clan_a = $1 OR clan_b = $1
		ORDER BY last_updated DESC
	`, clanID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса отношений: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			rec Record
			rel string
		)
		if err := rows.Scan(&rec.ClanA, &rec.ClanB, &rel, &rec.Reason, &rec.LastUpdated); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		rec.Relation = Relation(rel)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
