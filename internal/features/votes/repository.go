// Package votes — repository.go работает с таблицей clan_votes.
// Все переходы статуса — условные UPDATE с проверкой текущего статуса,
// поэтому гонка двух бюллетеней не может перезаписать друг друга.
package votes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/db/postgres"
)

const activeGroupIndex = "uq_clan_votes_active_group"

const voteColumns = `vote_id, clan_id, vote_type, proposer_id, status, votes_for, votes_against,
	required_votes, clan_size, target_clan_id, target_player_id, weapon_subtype,
	vetoed_by, veto_reason, created_at, expires_at, resolved_at, launched_at`

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новое голосование. Если у клана уже идёт голосование той же
// группы — ErrDuplicateActiveVote (частичный уникальный индекс закрывает гонку).
func (r *Repository) Create(ctx context.Context, v *Vote) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO clan_votes (
			vote_id, clan_id, vote_type, conflict_group, proposer_id, status,
			required_votes, clan_size, target_clan_id, target_player_id, weapon_subtype,
			created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12, $13)
	`, v.VoteID, v.ClanID, string(v.Type), v.Type.ConflictGroup(), v.ProposerID, string(v.Status),
		v.RequiredVotes, v.ClanSize, v.Terms.TargetClanID, v.Terms.TargetPlayerID, v.Terms.WeaponSubtype,
		v.CreatedAt, v.ExpiresAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, activeGroupIndex) {
			return fmt.Errorf("клан %s, %s: %w", v.ClanID, v.Type, common.ErrDuplicateActiveVote)
		}
		return fmt.Errorf("ошибка создания голосования: %w", err)
	}
	return nil
}

// Get возвращает голосование по идентификатору.
func (r *Repository) Get(ctx context.Context, voteID string) (*Vote, error) {
	v, err := scanVote(r.db.QueryRow(ctx, `SELECT `+voteColumns+` FROM clan_votes WHERE vote_id = $1`, voteID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("голосование %s: %w", voteID, common.ErrNotFound)
	}
	return v, err
}

// ActiveByClan возвращает активные голосования клана, новые первыми.
func (r *Repository) ActiveByClan(ctx context.Context, clanID string) ([]*Vote, error) {
	return r.queryVotes(ctx, `
		SELECT `+voteColumns+` FROM clan_votes
		WHERE clan_id = $1 AND status = 'ACTIVE'
		ORDER BY created_at DESC
	`, clanID)
}

// RecentByClan возвращает последние голосования клана в любом статусе.
func (r *Repository) RecentByClan(ctx context.Context, clanID string, limit int) ([]*Vote, error) {
	return r.queryVotes(ctx, `
		SELECT `+voteColumns+` FROM clan_votes
		WHERE clan_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, clanID, limit)
}

// AppendBallot добавляет голос и пересчитывает кворум одним UPDATE.
// Строка меняется только если голосование ACTIVE, срок не вышел и игрок ещё не голосовал.
// ok=false — ничего не изменено, причину вызывающий выясняет сам.
//
// В SET все выражения видят старую версию строки, поэтому «+ 1» учитывает добавляемый голос.
func (r *Repository) AppendBallot(ctx context.Context, voteID, playerID string, inFavor, earlyFail bool, now time.Time) (*Vote, bool, error) {
	v, err := scanVote(r.db.QueryRow(ctx, `
		UPDATE clan_votes SET
			votes_for = CASE WHEN $3 THEN array_append(votes_for, $2) ELSE votes_for END,
			votes_against = CASE WHEN $3 THEN votes_against ELSE array_append(votes_against, $2) END,
			status = CASE
				WHEN $3 AND cardinality(votes_for) + 1 >= required_votes THEN 'PASSED'
				WHEN NOT $3 AND $5 AND clan_size - (cardinality(votes_against) + 1) < required_votes THEN 'FAILED'
				ELSE status
			END,
			resolved_at = CASE
				WHEN $3 AND cardinality(votes_for) + 1 >= required_votes THEN $4
				WHEN NOT $3 AND $5 AND clan_size - (cardinality(votes_against) + 1) < required_votes THEN $4
				ELSE resolved_at
			END
		WHERE vote_id = $1
		  AND status = 'ACTIVE'
		  AND expires_at > $4
		  AND NOT ($2 = ANY(votes_for))
		  AND NOT ($2 = ANY(votes_against))
		RETURNING `+voteColumns,
		voteID, playerID, inFavor, now, earlyFail))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Veto переводит активное и не истёкшее голосование в VETOED.
func (r *Repository) Veto(ctx context.Context, voteID, vetoerID, reason string, now time.Time) (*Vote, bool, error) {
	v, err := scanVote(r.db.QueryRow(ctx, `
		UPDATE clan_votes
		SET status = 'VETOED', vetoed_by = $2, veto_reason = $3, resolved_at = $4
		WHERE vote_id = $1 AND status = 'ACTIVE' AND expires_at > $4
		RETURNING `+voteColumns,
		voteID, vetoerID, reason, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// ExpireDue переводит в EXPIRED все активные голосования с вышедшим сроком.
// clanID == "" — по всем кланам. Время завершения — момент истечения срока.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time, clanID string) ([]*Vote, error) {
	return r.queryVotes(ctx, `
		UPDATE clan_votes
		SET status = 'EXPIRED', resolved_at = expires_at
		WHERE status = 'ACTIVE' AND expires_at <= $1
		  AND ($2::text = '' OR clan_id = $2)
		RETURNING `+voteColumns,
		now, clanID)
}

// ExpireOne лениво закрывает одно голосование, если его срок вышел.
func (r *Repository) ExpireOne(ctx context.Context, voteID string, now time.Time) (*Vote, bool, error) {
	v, err := scanVote(r.db.QueryRow(ctx, `
		UPDATE clan_votes
		SET status = 'EXPIRED', resolved_at = expires_at
		WHERE vote_id = $1 AND status = 'ACTIVE' AND expires_at <= $2
		RETURNING `+voteColumns,
		voteID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// MarkLaunched — однократный захват пуска по прошедшему голосованию.
// Второй вызов для того же голосования вернёт ok=false.
func (r *Repository) MarkLaunched(ctx context.Context, voteID string, now time.Time) (*Vote, bool, error) {
	v, err := scanVote(r.db.QueryRow(ctx, `
		UPDATE clan_votes
		SET launched_at = $2
		WHERE vote_id = $1 AND status = 'PASSED' AND launched_at IS NULL
		RETURNING `+voteColumns,
		voteID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// ReleaseLaunch снимает захват, если последствия не удалось применить.
// Снимается только захват с тем же временем, чужой не трогается.
func (r *Repository) ReleaseLaunch(ctx context.Context, voteID string, launchedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE clan_votes SET launched_at = NULL
		WHERE vote_id = $1 AND launched_at = $2
	`, voteID, launchedAt)
	if err != nil {
		return fmt.Errorf("ошибка снятия захвата пуска: %w", err)
	}
	return nil
}

func (r *Repository) queryVotes(ctx context.Context, query string, args ...any) ([]*Vote, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса голосований: %w", err)
	}
	defer rows.Close()

	var out []*Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func scanVote(row pgx.Row) (*Vote, error) {
	var (
		v                                Vote
		voteType, status                 string
		targetClan, targetPlayer, weapon *string
		vetoedBy, vetoReason             *string
		resolvedAt, launchedAt           *time.Time
	)
	err := row.Scan(&v.VoteID, &v.ClanID, &voteType, &v.ProposerID, &status,
		&v.VotesFor, &v.VotesAgainst, &v.RequiredVotes, &v.ClanSize,
		&targetClan, &targetPlayer, &weapon, &vetoedBy, &vetoReason,
		&v.CreatedAt, &v.ExpiresAt, &resolvedAt, &launchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка чтения голосования: %w", err)
	}
	v.Type = Type(voteType)
	v.Status = Status(status)
	v.Terms = Terms{
		TargetClanID:   deref(targetClan),
		TargetPlayerID: deref(targetPlayer),
		WeaponSubtype:  deref(weapon),
	}
	v.VetoedBy = deref(vetoedBy)
	v.VetoReason = deref(vetoReason)
	if resolvedAt != nil {
		v.ResolvedAt = *resolvedAt
	}
	if launchedAt != nil {
		v.LaunchedAt = *launchedAt
	}
	return &v, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
