package votes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/db/postgres/pgtest"
)

func newVote(id, clanID string, typ Type, required, size int, now time.Time) *Vote {
	return &Vote{
		VoteID:        id,
		ClanID:        clanID,
		Type:          typ,
		ProposerID:    clanID + "-leader",
		Status:        StatusActive,
		RequiredVotes: required,
		ClanSize:      size,
		Terms:         Terms{TargetClanID: "target"},
		CreatedAt:     now,
		ExpiresAt:     now.Add(24 * time.Hour),
	}
}

func TestRepositoryPostgres(t *testing.T) {
	pool := pgtest.Open(t, "test_votes")
	repo := NewRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Create(ctx, newVote("v1", "A", TypeTacticalLaunch, 2, 3, now)))
	err := repo.Create(ctx, newVote("v2", "A", TypeStrategicLaunch, 2, 3, now))
	assert.ErrorIs(t, err, common.ErrDuplicateActiveVote)
	require.NoError(t, repo.Create(ctx, newVote("v3", "A", TypeAlliance, 2, 3, now)))

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	v, err := repo.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "target", v.Terms.TargetClanID)
	assert.Empty(t, v.Terms.TargetPlayerID)
	assert.True(t, v.ResolvedAt.IsZero())

	t.Run("long weapon subtype", func(t *testing.T) {
		w := newVote("v-long", "L", TypeTacticalLaunch, 1, 1, now)
		w.Terms.WeaponSubtype = strings.Repeat("orbital-", 10)
		require.NoError(t, repo.Create(ctx, w))
		got, err := repo.Get(ctx, "v-long")
		require.NoError(t, err)
		assert.Equal(t, w.Terms.WeaponSubtype, got.Terms.WeaponSubtype)
	})

	t.Run("ballots", func(t *testing.T) {
		v, ok, err := repo.AppendBallot(ctx, "v1", "p1", true, true, now)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, StatusActive, v.Status)

		_, ok, err = repo.AppendBallot(ctx, "v1", "p1", false, true, now)
		require.NoError(t, err)
		assert.False(t, ok, "повторный голос не меняет строку")

		v, ok, err = repo.AppendBallot(ctx, "v1", "p2", true, true, now)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, StatusPassed, v.Status)
		assert.True(t, v.ResolvedAt.Equal(now))
		assert.Equal(t, []string{"p1", "p2"}, v.VotesFor)

		_, ok, err = repo.AppendBallot(ctx, "v1", "p3", true, true, now)
		require.NoError(t, err)
		assert.False(t, ok, "терминальное голосование не принимает голоса")
	})

	t.Run("early failure", func(t *testing.T) {
		v, ok, err := repo.AppendBallot(ctx, "v3", "p1", false, true, now)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, StatusActive, v.Status)
		v, ok, err = repo.AppendBallot(ctx, "v3", "p2", false, true, now)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, StatusFailed, v.Status)
	})

	t.Run("launch claim", func(t *testing.T) {
		v, ok, err := repo.MarkLaunched(ctx, "v1", now)
		require.NoError(t, err)
		require.True(t, ok)
		_, ok, err = repo.MarkLaunched(ctx, "v1", now)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, repo.ReleaseLaunch(ctx, "v1", v.LaunchedAt))
		_, ok, err = repo.MarkLaunched(ctx, "v1", now.Add(time.Second))
		require.NoError(t, err)
		assert.True(t, ok)

		_, ok, err = repo.MarkLaunched(ctx, "v3", now)
		require.NoError(t, err)
		assert.False(t, ok, "проваленное голосование не запускается")
	})

	t.Run("veto and expiry", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newVote("w1", "B", TypeDeclareWar, 2, 3, now)))
		require.NoError(t, repo.Create(ctx, newVote("w2", "B", TypeKickMember, 2, 3, now)))
		require.NoError(t, repo.Create(ctx, newVote("w3", "C", TypeDeclareWar, 2, 3, now)))

		v, ok, err := repo.Veto(ctx, "w1", "B-leader", "рано", now)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, StatusVetoed, v.Status)
		assert.Equal(t, "рано", v.VetoReason)

		later := now.Add(24 * time.Hour)
		_, ok, err = repo.AppendBallot(ctx, "w2", "p1", true, true, later)
		require.NoError(t, err)
		assert.False(t, ok, "в момент истечения голос не принимается")

		expired, err := repo.ExpireDue(ctx, later, "B")
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, "w2", expired[0].VoteID)
		assert.True(t, expired[0].ResolvedAt.Equal(expired[0].ExpiresAt))

		v, ok, err = repo.ExpireOne(ctx, "w3", later)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, StatusExpired, v.Status)

		active, err := repo.ActiveByClan(ctx, "B")
		require.NoError(t, err)
		assert.Empty(t, active)
		recent, err := repo.RecentByClan(ctx, "B", 10)
		require.NoError(t, err)
		assert.Len(t, recent, 2)
	})
}

func TestServiceConcurrentBallotsPostgres(t *testing.T) {
	pool := pgtest.Open(t, "test_votes")
	h := newHarness(testConfig())
	svc := NewService(NewRepository(pool), h.dir, h.bus, testConfig())
	ctx := context.Background()

	members := players("m", 30)
	h.dir.addClan("A", members[0], members[1:]...)
	h.dir.addClan("B", "b1")

	v, err := svc.Propose(ctx, Proposal{ClanID: "A", ProposerID: members[0], Type: TypeDeclareWar, Terms: Terms{TargetClanID: "B"}})
	require.NoError(t, err)
	require.Equal(t, 15, v.RequiredVotes)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		passed int
		ok     int
	)
	for _, id := range members {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			out, err := svc.CastBallot(ctx, v.VoteID, id, true)
			if err != nil {
				if !errors.Is(err, common.ErrVoteClosed) {
					t.Errorf("%s: %v", id, err)
				}
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ok++
			if out.Transition == StatusPassed {
				passed++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 15, ok, fmt.Sprintf("принято голосов: %d", ok))
	assert.Equal(t, 1, passed)
	assert.Len(t, h.bus.outcomes(), 1)
}
