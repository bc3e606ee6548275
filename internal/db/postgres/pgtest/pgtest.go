// Package pgtest поднимает пул к тестовой базе для интеграционных тестов репозиториев.
// Тесты пропускаются, если CLANWAR_TEST_DATABASE_URL не задан.
// Каждый пакет работает в своей схеме, поэтому `go test ./...` можно гонять параллельно.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"darkframe.ru/clanwar/internal/db/postgres"
)

// EnvVar — переменная окружения с DSN тестовой базы.
const EnvVar = "CLANWAR_TEST_DATABASE_URL"

// Open подключается к тестовой базе в схеме schema, применяет миграции и очищает таблицы.
func Open(t *testing.T, schema string) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvVar)
	if dsn == "" {
		t.Skipf("%s не задан, интеграционный тест пропущен", EnvVar)
	}

	ctx := context.Background()
	ident := pgx.Identifier{schema}.Sanitize()

	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `
		TRUNCATE clan_votes, clan_relations, retaliation_rights, consequence_events,
		         reputation_history, players, clan_members, clans
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)
	return pool
}
