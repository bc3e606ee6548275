// Package retaliation — repository.go работает с таблицей retaliation_rights.
package retaliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rightColumns = `id, player_id, player_clan_id, can_retaliate_against_clan,
	granted_at, expires_at, used, used_at, source_event_id`

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Grant вставляет права одной командой COPY: либо все, либо ни одного.
func (r *Repository) Grant(ctx context.Context, g Grant) (int64, error) {
	var source *string
	if g.SourceEventID != "" {
		source = &g.SourceEventID
	}
	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"retaliation_rights"},
		[]string{"player_id", "player_clan_id", "can_retaliate_against_clan", "granted_at", "expires_at", "source_event_id"},
		pgx.CopyFromSlice(len(g.PlayerIDs), func(i int) ([]any, error) {
			return []any{g.PlayerIDs[i], g.VictimClanID, g.AggressorClanID, g.GrantedAt, g.ExpiresAt, source}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("ошибка выдачи прав на ответный удар: %w", err)
	}
	return n, nil
}

// FirstUsable возвращает первое действующее право (по сроку истечения, затем по id) или nil.
func (r *Repository) FirstUsable(ctx context.Context, playerID, againstClanID string, now time.Time) (*Right, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+rightColumns+`
		FROM retaliation_rights
		WHERE player_id = $1 AND can_retaliate_against_clan = $2
		  AND NOT used AND expires_at > $3
		ORDER BY expires_at, id
		LIMIT 1
	`, playerID, againstClanID, now)
	right, err := scanRight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return right, err
}

// Consume атомарно помечает одно действующее право использованным.
// Конкурентные вызовы не расходуют одно право дважды: строка берётся с SKIP LOCKED.
// Возвращает nil, если подходящих прав нет.
func (r *Repository) Consume(ctx context.Context, playerID, againstClanID string, now time.Time) (*Right, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE retaliation_rights
		SET used = TRUE, used_at = $3
		WHERE id = (
			SELECT id FROM retaliation_rights
			WHERE player_id = $1 AND can_retaliate_against_clan = $2
			  AND NOT used AND expires_at > $3
			ORDER BY expires_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+rightColumns,
		playerID, againstClanID, now)
	right, err := scanRight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return right, err
}

// Release возвращает израсходованное право, если его не трогали после списания.
// Возвращает false, если строка уже изменилась.
func (r *Repository) Release(ctx context.Context, id int64, usedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE retaliation_rights
		SET used = FALSE, used_at = NULL
		WHERE id = $1 AND used AND used_at = $2
	`, id, usedAt)
	if err != nil {
		return false, fmt.Errorf("ошибка возврата права: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListUsable возвращает все действующие права игрока.
func (r *Repository) ListUsable(ctx context.Context, playerID string, now time.Time) ([]*Right, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+rightColumns+`
		FROM retaliation_rights
		WHERE player_id = $1 AND NOT used AND expires_at > $2
		ORDER BY expires_at, id
	`, playerID, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса прав: %w", err)
	}
	defer rows.Close()

	var out []*Right
	for rows.Next() {
		right, err := scanRight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, right)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func scanRight(row pgx.Row) (*Right, error) {
	var (
		rt     Right
		usedAt *time.Time
		source *string
	)
	err := row.Scan(&rt.ID, &rt.PlayerID, &rt.PlayerClanID, &rt.AgainstClanID,
		&rt.GrantedAt, &rt.ExpiresAt, &rt.Used, &usedAt, &source)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка чтения права: %w", err)
	}
	if usedAt != nil {
		rt.UsedAt = *usedAt
	}
	if source != nil {
		rt.SourceEventID = *source
	}
	return &rt, nil
}
