package votes

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"darkframe.ru/clanwar/internal/common"
	"darkframe.ru/clanwar/internal/config"
	"darkframe.ru/clanwar/internal/event"
	"darkframe.ru/clanwar/internal/features/clans"
)

// memStore — хранилище в памяти с той же семантикой условных обновлений, что и Repository.
type memStore struct {
	mu    sync.Mutex
	votes map[string]*Vote
}

func newMemStore() *memStore {
	return &memStore{votes: map[string]*Vote{}}
}

func clone(v *Vote) *Vote {
	cp := *v
	cp.VotesFor = slices.Clone(v.VotesFor)
	cp.VotesAgainst = slices.Clone(v.VotesAgainst)
	return &cp
}

func (m *memStore) Create(_ context.Context, v *Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.votes {
		if other.ClanID == v.ClanID && other.Status == StatusActive &&
			other.Type.ConflictGroup() == v.Type.ConflictGroup() {
			return common.ErrDuplicateActiveVote
		}
	}
	m.votes[v.VoteID] = clone(v)
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return clone(v), nil
}

func (m *memStore) filter(pred func(*Vote) bool) []*Vote {
	var out []*Vote
	for _, v := range m.votes {
		if pred(v) {
			out = append(out, clone(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ActiveByClan(_ context.Context, clanID string) ([]*Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(v *Vote) bool { return v.ClanID == clanID && v.Status == StatusActive }), nil
}

func (m *memStore) RecentByClan(_ context.Context, clanID string, limit int) ([]*Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filter(func(v *Vote) bool { return v.ClanID == clanID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) AppendBallot(_ context.Context, id, playerID string, inFavor, earlyFail bool, now time.Time) (*Vote, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[id]
	if !ok || v.Status != StatusActive || !now.Before(v.ExpiresAt) || v.HasVoted(playerID) {
		return nil, false, nil
	}
	if inFavor {
		v.VotesFor = append(v.VotesFor, playerID)
		if len(v.VotesFor) >= v.RequiredVotes {
			v.Status, v.ResolvedAt = StatusPassed, now
		}
	} else {
		v.VotesAgainst = append(v.VotesAgainst, playerID)
		if earlyFail && v.ClanSize-len(v.VotesAgainst) < v.RequiredVotes {
			v.Status, v.ResolvedAt = StatusFailed, now
		}
	}
	return clone(v), true, nil
}

func (m *memStore) Veto(_ context.Context, id, vetoerID, reason string, now time.Time) (*Vote, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[id]
	if !ok || v.Status != StatusActive || !now.Before(v.ExpiresAt) {
		return nil, false, nil
	}
	v.Status, v.VetoedBy, v.VetoReason, v.ResolvedAt = StatusVetoed, vetoerID, reason, now
	return clone(v), true, nil
}

func (m *memStore) ExpireDue(_ context.Context, now time.Time, clanID string) ([]*Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Vote
	for _, v := range m.votes {
		if v.DueToExpire(now) && (clanID == "" || v.ClanID == clanID) {
			v.Status, v.ResolvedAt = StatusExpired, v.ExpiresAt
			out = append(out, clone(v))
		}
	}
	return out, nil
}

func (m *memStore) ExpireOne(_ context.Context, id string, now time.Time) (*Vote, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[id]
	if !ok || !v.DueToExpire(now) {
		return nil, false, nil
	}
	v.Status, v.ResolvedAt = StatusExpired, v.ExpiresAt
	return clone(v), true, nil
}

func (m *memStore) MarkLaunched(_ context.Context, id string, now time.Time) (*Vote, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[id]
	if !ok || v.Status != StatusPassed || v.Launched() {
		return nil, false, nil
	}
	v.LaunchedAt = now
	return clone(v), true, nil
}

func (m *memStore) ReleaseLaunch(_ context.Context, id string, launchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.votes[id]; ok && v.LaunchedAt.Equal(launchedAt) {
		v.LaunchedAt = time.Time{}
	}
	return nil
}

// fakeDirectory — справочник кланов в памяти.
type fakeDirectory struct {
	mu       sync.Mutex
	members  map[string]*clans.Member // player_id → member
	cooldown map[string]time.Time
	now      func() time.Time
}

func newFakeDirectory(now func() time.Time) *fakeDirectory {
	return &fakeDirectory{members: map[string]*clans.Member{}, cooldown: map[string]time.Time{}, now: now}
}

func (d *fakeDirectory) addClan(clanID string, leader string, members ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[leader] = &clans.Member{PlayerID: leader, ClanID: clanID, Role: clans.RoleLeader}
	for _, id := range members {
		d.members[id] = &clans.Member{PlayerID: id, ClanID: clanID, Role: clans.RoleMember}
	}
}

func (d *fakeDirectory) Member(ctx context.Context, clanID, playerID string) (*clans.Member, error) {
	m, err := d.Membership(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if m.ClanID != clanID {
		return nil, common.ErrNotFound
	}
	return m, nil
}

func (d *fakeDirectory) Membership(_ context.Context, playerID string) (*clans.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.members[playerID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (d *fakeDirectory) GetClan(_ context.Context, clanID string) (*clans.Clan, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.members {
		if m.ClanID == clanID {
			return &clans.Clan{ClanID: clanID, Name: clanID, Cooldown: clans.Cooldown{Until: d.cooldown[clanID]}}, nil
		}
	}
	return nil, common.ErrNotFound
}

func (d *fakeDirectory) CountMembers(_ context.Context, clanID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, m := range d.members {
		if m.ClanID == clanID {
			n++
		}
	}
	return n, nil
}

func (d *fakeDirectory) CheckCooldown(ctx context.Context, clanID string) error {
	c, err := d.GetClan(ctx, clanID)
	if err != nil {
		return err
	}
	now := d.now()
	if c.Cooldown.Active(now) {
		return &common.CooldownError{Until: c.Cooldown.Until, Remaining: c.Cooldown.Remaining(now)}
	}
	return nil
}

// recordingBus запоминает опубликованные события.
type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Publish(evt event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
}

func (b *recordingBus) outcomes() []Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Outcome, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Data.(Outcome))
	}
	return out
}

func testConfig() *config.Core {
	return &config.Core{
		VoteQuorumFraction:   0.5,
		VoteWindowTactical:   24 * time.Hour,
		VoteWindowStrategic:  48 * time.Hour,
		VoteWindowClanBuster: 72 * time.Hour,
		VoteWindowDefault:    48 * time.Hour,
	}
}

type harness struct {
	svc   *Service
	store *memStore
	dir   *fakeDirectory
	bus   *recordingBus
	clock *clock
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newHarness(cfg *config.Core) *harness {
	clk := &clock{t: time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)}
	st := newMemStore()
	dir := newFakeDirectory(clk.Now)
	bus := &recordingBus{}
	svc := NewService(st, dir, bus, cfg)
	svc.now = clk.Now
	n := 0
	svc.newID = func() string {
		n++
		return "vote-" + string(rune('a'+n-1)) + "-0000000000000000000000000000000"
	}
	return &harness{svc: svc, store: st, dir: dir, bus: bus, clock: clk}
}
