package clans

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/db/postgres/pgtest"
)

func TestRepositoryPostgres(t *testing.T) {
	pool := pgtest.Open(t, "test_clans")
	repo := NewRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.CreateClan(ctx, "wolves", "Волки", "p1"))
	require.NoError(t, repo.CreateClan(ctx, "bears", "Медведи", "p9"))
	assert.ErrorIs(t, repo.CreateClan(ctx, "wolves", "Снова", "p5"), common.ErrAlreadyExists)

	require.NoError(t, repo.AddMember(ctx, "wolves", "p2", RoleOfficer))
	require.NoError(t, repo.AddMember(ctx, "wolves", "p3", RoleMember))
	assert.ErrorIs(t, repo.AddMember(ctx, "nowhere", "p4", RoleMember), common.ErrNotFound)

	ids, err := repo.MemberIDs(ctx, "wolves")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids)

	list, err := repo.ListMembers(ctx, "wolves")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, RoleLeader, list[0].Role)
	assert.Equal(t, RoleOfficer, list[1].Role)

	// Переход в другой клан
	require.NoError(t, repo.AddMember(ctx, "bears", "p3", RoleMember))
	n, err := repo.CountMembers(ctx, "wolves")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = repo.GetMember(ctx, "wolves", "p3")
	assert.ErrorIs(t, err, common.ErrNotFound)

	c, err := repo.GetClan(ctx, "wolves")
	require.NoError(t, err)
	assert.Equal(t, "p1", c.LeaderID)
	assert.True(t, c.Cooldown.Until.IsZero())

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.SetCooldown(ctx, "wolves", now.Add(time.Hour), now))
	c, err = repo.GetClan(ctx, "wolves")
	require.NoError(t, err)
	assert.True(t, c.Cooldown.Until.Equal(now.Add(time.Hour)))
	assert.True(t, c.Cooldown.LastLaunch.Equal(now))
	assert.ErrorIs(t, repo.SetCooldown(ctx, "nowhere", now, now), common.ErrNotFound)

	assert.ErrorIs(t, repo.TransferLeadership(ctx, "wolves", "p2", "p1"), common.ErrUnauthorized)
	assert.ErrorIs(t, repo.TransferLeadership(ctx, "wolves", "p1", "p3"), common.ErrNotFound, "p3 ушёл в другой клан")
	require.NoError(t, repo.TransferLeadership(ctx, "wolves", "p1", "p2"))
	c, err = repo.GetClan(ctx, "wolves")
	require.NoError(t, err)
	assert.Equal(t, "p2", c.LeaderID)
	p1, err := repo.GetMember(ctx, "wolves", "p1")
	require.NoError(t, err)
	assert.Equal(t, RoleOfficer, p1.Role)
	p2, err := repo.GetMember(ctx, "wolves", "p2")
	require.NoError(t, err)
	assert.Equal(t, RoleLeader, p2.Role)
	require.NoError(t, repo.TransferLeadership(ctx, "wolves", "p2", "p1"))

	require.NoError(t, repo.RemoveMember(ctx, "wolves", "p1"))
	c, err = repo.GetClan(ctx, "wolves")
	require.NoError(t, err)
	assert.Empty(t, c.LeaderID)
	assert.ErrorIs(t, repo.RemoveMember(ctx, "wolves", "p1"), common.ErrNotFound)
}
