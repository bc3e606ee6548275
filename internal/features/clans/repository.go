// Package clans — repository.go отвечает за операции с таблицами clans и clan_members.
package clans

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

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateClan создаёт клан и записывает лидера первым участником.
// Если лидер уже состоит в другом клане — он переводится в новый.
func (r *Repository) CreateClan(ctx context.Context, clanID, name, leaderID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO clans (clan_id, name, leader_id) VALUES ($1, $2, $3)`,
		clanID, name, leaderID,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "clans_pkey") {
			return fmt.Errorf("клан %s: %w", clanID, common.ErrAlreadyExists)
		}
		return fmt.Errorf("ошибка создания клана: %w", err)
	}

	if err := upsertMember(ctx, tx, clanID, leaderID, RoleLeader); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AddMember добавляет игрока в клан. Игрок из другого клана переезжает (PK по player_id).
func (r *Repository) AddMember(ctx context.Context, clanID, playerID string, role Role) error {
	if _, err := r.GetClan(ctx, clanID); err != nil {
		return err
	}
	return upsertMember(ctx, r.db, clanID, playerID, role)
}

func upsertMember(ctx context.Context, db postgres.Execer, clanID, playerID string, role Role) error {
	_, err := db.Exec(ctx, `
		INSERT INTO clan_members (player_id, clan_id, role, joined_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (player_id) DO UPDATE
		SET clan_id = EXCLUDED.clan_id,
		    role = EXCLUDED.role,
		    joined_at = EXCLUDED.joined_at
	`, playerID, clanID, string(role))
	if err != nil {
		return fmt.Errorf("ошибка добавления участника: %w", err)
	}
	return nil
}

// TransferLeadership передаёт лидерство участнику клана. Прежний лидер становится офицером.
// Лидер у клана всегда один: роли и clans.leader_id меняются в одной транзакции.
func (r *Repository) TransferLeadership(ctx context.Context, clanID, fromID, toID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE clans SET leader_id = $3, updated_at = NOW()
		WHERE clan_id = $1 AND leader_id = $2
	`, clanID, fromID, toID)
	if err != nil {
		return fmt.Errorf("ошибка смены лидера: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("игрок %s не лидер клана %s: %w", fromID, clanID, common.ErrUnauthorized)
	}

	tag, err = tx.Exec(ctx, `
		UPDATE clan_members SET role = CASE WHEN player_id = $2 THEN $3 ELSE $4 END
		WHERE clan_id = $1 AND player_id IN ($2, $5)
	`, clanID, toID, string(RoleLeader), string(RoleOfficer), fromID)
	if err != nil {
		return fmt.Errorf("ошибка смены ролей: %w", err)
	}
	if tag.RowsAffected() != 2 {
		return fmt.Errorf("игрок %s не состоит в клане %s: %w", toID, clanID, common.ErrNotFound)
	}
	return tx.Commit(ctx)
}

// RemoveMember удаляет игрока из клана. Если игрок был лидером — leader_id очищается.
func (r *Repository) RemoveMember(ctx context.Context, clanID, playerID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM clan_members WHERE player_id = $1 AND clan_id = $2`,
		playerID, clanID,
	)
	if err != nil {
		return fmt.Errorf("ошибка удаления участника: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("игрок %s не состоит в клане %s: %w", playerID, clanID, common.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE clans SET leader_id = NULL, updated_at = NOW()
		WHERE clan_id = $1 AND leader_id = $2
	`, clanID, playerID); err != nil {
		return fmt.Errorf("ошибка сброса лидера: %w", err)
	}
	return tx.Commit(ctx)
}

// GetClan возвращает клан. Кулдаун нормализуется: NULL превращается в нулевое время.
func (r *Repository) GetClan(ctx context.Context, clanID string) (*Clan, error) {
	var (
		c          Clan
		leaderID   *string
		until      *time.Time
		lastLaunch *time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT clan_id, name, leader_id, wmd_cooldown_until, last_wmd_launch, created_at, updated_at
		FROM clans
		WHERE clan_id = $1
	`, clanID).Scan(&c.ClanID, &c.Name, &leaderID, &until, &lastLaunch, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("клан %s: %w", clanID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения клана %s: %w", clanID, err)
	}
	if leaderID != nil {
		c.LeaderID = *leaderID
	}
	if until != nil {
		c.Cooldown.Until = *until
	}
	if lastLaunch != nil {
		c.Cooldown.LastLaunch = *lastLaunch
	}
	return &c, nil
}

// GetMember возвращает участника клана. Игрок из другого клана — ErrNotFound.
func (r *Repository) GetMember(ctx context.Context, clanID, playerID string) (*Member, error) {
	m, err := r.GetMembership(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if m.ClanID != clanID {
		return nil, fmt.Errorf("игрок %s не состоит в клане %s: %w", playerID, clanID, common.ErrNotFound)
	}
	return m, nil
}

// GetMembership возвращает текущее членство игрока в любом клане.
func (r *Repository) GetMembership(ctx context.Context, playerID string) (*Member, error) {
	var (
		m    Member
		role string
	)
	err := r.db.QueryRow(ctx, `
		SELECT player_id, clan_id, role, joined_at FROM clan_members WHERE player_id = $1
	`, playerID).Scan(&m.PlayerID, &m.ClanID, &role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("игрок %s не состоит в клане: %w", playerID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения участника %s: %w", playerID, err)
	}
	m.Role = Role(role)
	return &m, nil
}

// CountMembers возвращает текущий размер клана.
func (r *Repository) CountMembers(ctx context.Context, clanID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM clan_members WHERE clan_id = $1`, clanID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта участников: %w", err)
	}
	return n, nil
}

// MemberIDs возвращает идентификаторы всех участников клана одним запросом.
func (r *Repository) MemberIDs(ctx context.Context, clanID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT player_id FROM clan_members WHERE clan_id = $1 ORDER BY player_id`, clanID,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса участников: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения участников: %w", err)
	}
	return ids, nil
}

// ListMembers возвращает состав клана с ролями: лидер, офицеры, затем участники.
func (r *Repository) ListMembers(ctx context.Context, clanID string) ([]*Member, error) {
	rows, err := r.db.Query(ctx, `
		SELECT player_id, clan_id, role, joined_at
		FROM clan_members
		WHERE clan_id = $1
		ORDER BY CASE role WHEN 'LEADER' THEN 0 WHEN 'OFFICER' THEN 1 ELSE 2 END, joined_at, player_id
	`, clanID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса участников: %w", err)
	}
	defer rows.Close()

	var out []*Member
	for rows.Next() {
		var (
			m    Member
			role string
		)
		if err := rows.Scan(&m.PlayerID, &m.ClanID, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		m.Role = Role(role)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// SetCooldown записывает кулдаун ОМП и время последнего запуска.
func (r *Repository) SetCooldown(ctx context.Context, clanID string, until, launchedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE clans
		SET wmd_cooldown_until = $2, last_wmd_launch = $3, updated_at = NOW()
		WHERE clan_id = $1
	`, clanID, until, launchedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи кулдауна: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("клан %s: %w", clanID, common.ErrNotFound)
	}
	return nil
}
