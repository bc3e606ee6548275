package launch

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
	"darkframe.ru/clanwar/internal/event"
	"darkframe.ru/clanwar/internal/features/clans"
	"darkframe.ru/clanwar/internal/features/consequences"
	"darkframe.ru/clanwar/internal/features/retaliation"
	"darkframe.ru/clanwar/internal/features/votes"
)

type fakeVotes struct {
	mu    sync.Mutex
	votes map[string]*votes.Vote
}

func (f *fakeVotes) Get(_ context.Context, id string) (*votes.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.votes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVotes) ResolveRef(_ context.Context, _ string, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.votes {
		if strings.HasPrefix(id, ref) {
			return id, nil
		}
	}
	return "", common.ErrNotFound
}

func (f *fakeVotes) ClaimLaunch(_ context.Context, id string) (*votes.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.votes[id]
	if !ok || v.Status != votes.StatusPassed || v.Launched() {
		return nil, common.ErrLaunchNotAllowed
	}
	v.LaunchedAt = time.Now()
	cp := *v
	return &cp, nil
}

func (f *fakeVotes) ReleaseLaunch(_ context.Context, v *votes.Vote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.votes[v.VoteID]; ok && cur.LaunchedAt.Equal(v.LaunchedAt) {
		cur.LaunchedAt = time.Time{}
	}
	return nil
}

type fakeDirectory struct {
	members  map[string]*clans.Member
	cooldown map[string]time.Duration
}

func (d *fakeDirectory) Member(ctx context.Context, clanID, playerID string) (*clans.Member, error) {
	m, err := d.Membership(ctx, playerID)
	if err != nil || m.ClanID != clanID {
		return nil, common.ErrNotFound
	}
	return m, nil
}

func (d *fakeDirectory) Membership(_ context.Context, playerID string) (*clans.Member, error) {
	m, ok := d.members[playerID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m, nil
}

func (d *fakeDirectory) GetClan(_ context.Context, clanID string) (*clans.Clan, error) {
	for _, m := range d.members {
		if m.ClanID == clanID {
			return &clans.Clan{ClanID: clanID}, nil
		}
	}
	return nil, common.ErrNotFound
}

func (d *fakeDirectory) CheckCooldown(_ context.Context, clanID string) error {
	if left := d.cooldown[clanID]; left > 0 {
		return &common.CooldownError{Remaining: left}
	}
	return nil
}

type fakeEngine struct {
	mu       sync.Mutex
	tiers    consequences.Table
	launches []consequences.Launch
	err      error
}

func (e *fakeEngine) Resolve(warhead string) (string, consequences.Tier, bool, error) {
	tier, ok := e.tiers.Lookup(warhead)
	if !ok {
		return "", consequences.Tier{}, false, common.ErrUnknownWarheadType
	}
	return strings.ToUpper(warhead), tier, false, nil
}

func (e *fakeEngine) Apply(_ context.Context, l consequences.Launch) (*consequences.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.launches = append(e.launches, l)
	tier, _ := e.tiers.Lookup(l.WarheadType)
	return &consequences.Report{EventID: fmt.Sprintf("evt-%d", len(e.launches)), Launch: l, Warhead: l.WarheadType, Tier: tier, Applied: 5}, nil
}

type fakeRights struct {
	mu     sync.Mutex
	rights []*retaliation.Right
	stolen bool // Consume всегда проигрывает гонку
}

func (f *fakeRights) HasRights(_ context.Context, playerID, against string) (*retaliation.Right, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rights {
		if r.PlayerID == playerID && r.AgainstClanID == against && !r.Used {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRights) Consume(_ context.Context, playerID, against string) (*retaliation.Right, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stolen {
		return nil, nil
	}
	for _, r := range f.rights {
		if r.PlayerID == playerID && r.AgainstClanID == against && !r.Used {
			r.Used = true
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRights) Release(_ context.Context, right *retaliation.Right) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rights {
		if r.ID == right.ID && r.Used {
			r.Used = false
			return nil
		}
	}
	return errors.New("право не найдено")
}

type recordingEffects struct {
	mu      sync.Mutex
	strikes []Strike
	err     error
}

func (r *recordingEffects) Detonate(_ context.Context, s Strike) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.strikes = append(r.strikes, s)
	return nil
}

type fixture struct {
	svc     *Service
	votes   *fakeVotes
	dir     *fakeDirectory
	engine  *fakeEngine
	rights  *fakeRights
	effects *recordingEffects
}

func newFixture() *fixture {
	f := &fixture{
		votes: &fakeVotes{votes: map[string]*votes.Vote{}},
		dir: &fakeDirectory{
			members: map[string]*clans.Member{
				"lead":  {PlayerID: "lead", ClanID: "A", Role: clans.RoleLeader},
				"off":   {PlayerID: "off", ClanID: "A", Role: clans.RoleOfficer},
				"grunt": {PlayerID: "grunt", ClanID: "A", Role: clans.RoleMember},
				"prop":  {PlayerID: "prop", ClanID: "A", Role: clans.RoleMember},
				"b1":    {PlayerID: "b1", ClanID: "B", Role: clans.RoleLeader},
			},
			cooldown: map[string]time.Duration{},
		},
		engine:  &fakeEngine{tiers: consequences.DefaultTable()},
		rights:  &fakeRights{},
		effects: &recordingEffects{},
	}
	f.svc = NewService(f.votes, f.dir, f.engine, f.rights, f.effects)
	return f
}

func (f *fixture) passedVote(id string, typ votes.Type) {
	f.votes.votes[id] = &votes.Vote{
		VoteID: id, ClanID: "A", Type: typ, ProposerID: "prop",
		Status: votes.StatusPassed, Terms: votes.Terms{TargetClanID: "B"},
	}
}

func TestLaunchFromVote(t *testing.T) {
	f := newFixture()
	f.passedVote("v1", votes.TypeTacticalLaunch)
	ctx := context.Background()

	report, err := f.svc.LaunchFromVote(ctx, "v1", "off")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", report.EventID)
	require.Len(t, f.engine.launches, 1)
	assert.Equal(t, consequences.Launch{
		LauncherClanID: "A", TargetClanID: "B", WarheadType: "TACTICAL", LauncherPlayerID: "off", VoteID: "v1",
	}, f.engine.launches[0])
	require.Len(t, f.effects.strikes, 1)
	assert.Equal(t, KindVote, f.effects.strikes[0].Kind)

	_, err = f.svc.LaunchFromVote(ctx, "v1", "lead")
	assert.ErrorIs(t, err, common.ErrLaunchNotAllowed, "второй пуск по тому же голосованию")
	assert.Len(t, f.engine.launches, 1, "последствия применяются один раз")
}

func TestLaunchFromVoteAuthorization(t *testing.T) {
	f := newFixture()
	f.passedVote("v1", votes.TypeStrategicLaunch)
	ctx := context.Background()

	_, err := f.svc.LaunchFromVote(ctx, "v1", "grunt")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = f.svc.LaunchFromVote(ctx, "v1", "b1")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = f.svc.LaunchFromVote(ctx, "v1", "prop")
	assert.NoError(t, err, "автор предложения может запустить")
}

func TestLaunchFromVoteRejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.passedVote("war", votes.TypeDeclareWar)
	_, err := f.svc.LaunchFromVote(ctx, "war", "lead")
	assert.ErrorIs(t, err, common.ErrLaunchNotAllowed)

	f.passedVote("active", votes.TypeTacticalLaunch)
	f.votes.votes["active"].Status = votes.StatusActive
	_, err = f.svc.LaunchFromVote(ctx, "active", "lead")
	assert.ErrorIs(t, err, common.ErrLaunchNotAllowed)

	_, err = f.svc.LaunchFromVote(ctx, "missing", "lead")
	assert.ErrorIs(t, err, common.ErrNotFound)

	f.passedVote("cd", votes.TypeTacticalLaunch)
	f.dir.cooldown["A"] = time.Hour
	_, err = f.svc.LaunchFromVote(ctx, "cd", "lead")
	var cd *common.CooldownError
	assert.ErrorAs(t, err, &cd)
	assert.Empty(t, f.engine.launches)
}

func TestLaunchFromVoteReleasesClaimOnFailure(t *testing.T) {
	f := newFixture()
	f.passedVote("v1", votes.TypeClanBusterLaunch)
	f.engine.err = errors.New("db down")
	ctx := context.Background()

	_, err := f.svc.LaunchFromVote(ctx, "v1", "lead")
	require.Error(t, err)
	assert.False(t, f.votes.votes["v1"].Launched(), "захват снят, пуск можно повторить")

	f.engine.err = nil
	_, err = f.svc.LaunchFromVote(ctx, "v1", "lead")
	require.NoError(t, err)
	assert.True(t, f.votes.votes["v1"].Launched())
}

func TestLaunchFromVoteConcurrent(t *testing.T) {
	f := newFixture()
	f.passedVote("v1", votes.TypeTacticalLaunch)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, p := range []string{"lead", "off", "prop", "lead", "off", "prop"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_, _ = f.svc.LaunchFromVote(ctx, "v1", p)
		}(p)
	}
	wg.Wait()
	assert.Len(t, f.engine.launches, 1)
}

func TestLaunchDirect(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.LaunchDirect(ctx, "grunt", "B", "tactical")
	assert.ErrorIs(t, err, common.ErrLaunchNotAllowed, "тактический удар только через голосование")

	_, err = f.svc.LaunchDirect(ctx, "grunt", "A", "sabotage")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = f.svc.LaunchDirect(ctx, "grunt", "ghost", "sabotage")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.svc.LaunchDirect(ctx, "stranger", "B", "sabotage")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = f.svc.LaunchDirect(ctx, "grunt", "B", "antimatter")
	assert.ErrorIs(t, err, common.ErrUnknownWarheadType)

	report, err := f.svc.LaunchDirect(ctx, "grunt", "B", "sabotage")
	require.NoError(t, err)
	assert.Equal(t, "SABOTAGE", report.Warhead)
	require.Len(t, f.engine.launches, 1)
	assert.Equal(t, "grunt", f.engine.launches[0].LauncherPlayerID)
	assert.Empty(t, f.engine.launches[0].VoteID)

	f.dir.cooldown["A"] = time.Minute
	_, err = f.svc.LaunchDirect(ctx, "grunt", "B", "sabotage")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestRetaliate(t *testing.T) {
	f := newFixture()
	f.rights.rights = []*retaliation.Right{
		{ID: 1, PlayerID: "b1", PlayerClanID: "B", AgainstClanID: "A"},
	}
	ctx := context.Background()

	_, err := f.svc.Retaliate(ctx, "b1", "C", "tactical")
	assert.ErrorIs(t, err, common.ErrNoRetaliationRight)

	cs, err := f.svc.Retaliate(ctx, "b1", "A", "clan_buster")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cs.Right.ID)
	require.NotNil(t, cs.Report)
	require.Len(t, f.effects.strikes, 1)
	assert.Equal(t, KindRetaliation, f.effects.strikes[0].Kind)
	assert.Equal(t, "B", f.effects.strikes[0].LauncherClanID)

	require.Len(t, f.engine.launches, 1, "последствия ответного удара применяются один раз")
	assert.Equal(t, consequences.Launch{
		LauncherClanID: "B", TargetClanID: "A", WarheadType: "CLAN_BUSTER", LauncherPlayerID: "b1", Retaliation: true,
	}, f.engine.launches[0])

	_, err = f.svc.Retaliate(ctx, "b1", "A", "tactical")
	assert.ErrorIs(t, err, common.ErrNoRetaliationRight, "право одноразовое")
	assert.Len(t, f.engine.launches, 1)
}

func TestRetaliateUnknownWarhead(t *testing.T) {
	f := newFixture()
	f.rights.rights = []*retaliation.Right{{ID: 1, PlayerID: "b1", PlayerClanID: "B", AgainstClanID: "A"}}

	_, err := f.svc.Retaliate(context.Background(), "b1", "A", "no-such-warhead")
	assert.ErrorIs(t, err, common.ErrUnknownWarheadType)
	assert.Empty(t, f.effects.strikes)
	assert.Empty(t, f.engine.launches)
	assert.False(t, f.rights.rights[0].Used, "право не тронуто")
}

func TestRetaliateReturnsRightOnFailure(t *testing.T) {
	t.Run("effects", func(t *testing.T) {
		f := newFixture()
		f.rights.rights = []*retaliation.Right{{ID: 1, PlayerID: "b1", PlayerClanID: "B", AgainstClanID: "A"}}
		f.effects.err = errors.New("game server offline")

		_, err := f.svc.Retaliate(context.Background(), "b1", "A", "tactical")
		require.Error(t, err)
		assert.False(t, f.rights.rights[0].Used)
		assert.Empty(t, f.engine.launches)
	})

	t.Run("consequences", func(t *testing.T) {
		f := newFixture()
		f.rights.rights = []*retaliation.Right{{ID: 1, PlayerID: "b1", PlayerClanID: "B", AgainstClanID: "A"}}
		f.engine.err = errors.New("db down")
		ctx := context.Background()

		_, err := f.svc.Retaliate(ctx, "b1", "A", "tactical")
		require.Error(t, err)
		assert.False(t, f.rights.rights[0].Used)

		f.engine.err = nil
		cs, err := f.svc.Retaliate(ctx, "b1", "A", "tactical")
		require.NoError(t, err)
		assert.EqualValues(t, 1, cs.Right.ID)
		assert.Len(t, f.engine.launches, 1)
	})
}

func TestRetaliateLostRace(t *testing.T) {
	f := newFixture()
	f.rights.rights = []*retaliation.Right{{ID: 7, PlayerID: "b1", PlayerClanID: "B", AgainstClanID: "A"}}
	f.rights.stolen = true

	_, err := f.svc.Retaliate(context.Background(), "b1", "A", "tactical")
	assert.ErrorIs(t, err, common.ErrNoRetaliationRight)
	assert.Empty(t, f.effects.strikes)
}

func TestOnVoteResolvedIgnoresOtherEvents(t *testing.T) {
	f := newFixture()
	assert.NotPanics(t, func() {
		f.svc.OnVoteResolved(event.New(event.VoteResolved, "garbage"))
		f.svc.OnVoteResolved(event.New(event.VoteResolved, votes.Outcome{
			Vote:       &votes.Vote{VoteID: "v", Type: votes.TypeTacticalLaunch},
			Transition: votes.StatusPassed,
		}))
	})
}
