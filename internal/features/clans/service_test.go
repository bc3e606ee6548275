package clans

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darkframe.ru/clanwar/internal/common"
)

type memStore struct {
	mu      sync.Mutex
	clans   map[string]*Clan
	members map[string]*Member
}

func newMemStore() *memStore {
	return &memStore{clans: map[string]*Clan{}, members: map[string]*Member{}}
}

func (m *memStore) CreateClan(_ context.Context, clanID, name, leaderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clans[clanID]; ok {
		return fmt.Errorf("клан %s: %w", clanID, common.ErrAlreadyExists)
	}
	m.clans[clanID] = &Clan{ClanID: clanID, Name: name, LeaderID: leaderID}
	m.members[leaderID] = &Member{PlayerID: leaderID, ClanID: clanID, Role: RoleLeader}
	return nil
}

func (m *memStore) AddMember(_ context.Context, clanID, playerID string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clans[clanID]; !ok {
		return common.ErrNotFound
	}
	m.members[playerID] = &Member{PlayerID: playerID, ClanID: clanID, Role: role}
	return nil
}

func (m *memStore) RemoveMember(_ context.Context, clanID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[playerID]
	if !ok || mem.ClanID != clanID {
		return common.ErrNotFound
	}
	delete(m.members, playerID)
	return nil
}

func (m *memStore) TransferLeadership(_ context.Context, clanID, fromID, toID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clans[clanID]
	if !ok || c.LeaderID != fromID {
		return common.ErrUnauthorized
	}
	to, ok := m.members[toID]
	if !ok || to.ClanID != clanID {
		return common.ErrNotFound
	}
	c.LeaderID = toID
	to.Role = RoleLeader
	if from, ok := m.members[fromID]; ok {
		from.Role = RoleOfficer
	}
	return nil
}

func (m *memStore) GetClan(_ context.Context, clanID string) (*Clan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clans[clanID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetMember(ctx context.Context, clanID, playerID string) (*Member, error) {
	mem, err := m.GetMembership(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if mem.ClanID != clanID {
		return nil, common.ErrNotFound
	}
	return mem, nil
}

func (m *memStore) GetMembership(_ context.Context, playerID string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[playerID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *memStore) CountMembers(ctx context.Context, clanID string) (int, error) {
	ids, err := m.MemberIDs(ctx, clanID)
	return len(ids), err
}

func (m *memStore) MemberIDs(_ context.Context, clanID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, mem := range m.members {
		if mem.ClanID == clanID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) ListMembers(ctx context.Context, clanID string) ([]*Member, error) {
	ids, _ := m.MemberIDs(ctx, clanID)
	out := make([]*Member, 0, len(ids))
	for _, id := range ids {
		mem, _ := m.GetMembership(ctx, id)
		out = append(out, mem)
	}
	return out, nil
}

func (m *memStore) SetCooldown(_ context.Context, clanID string, until, launchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clans[clanID]
	if !ok {
		return common.ErrNotFound
	}
	c.Cooldown = Cooldown{Until: until, LastLaunch: launchedAt}
	return nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	st := newMemStore()
	svc := NewService(st)
	svc.now = func() time.Time { return testNow }
	return svc, st
}

func TestCooldownZeroValueIsInactive(t *testing.T) {
	var c Cooldown
	assert.False(t, c.Active(testNow))
	assert.Zero(t, c.Remaining(testNow))

	c.Until = testNow.Add(90 * time.Minute)
	assert.True(t, c.Active(testNow))
	assert.Equal(t, 90*time.Minute, c.Remaining(testNow))
	assert.False(t, c.Active(c.Until), "кулдаун заканчивается ровно в Until")
}

func TestMemberRights(t *testing.T) {
	leader := &Member{Role: RoleLeader}
	officer := &Member{Role: RoleOfficer}
	member := &Member{Role: RoleMember}

	assert.True(t, leader.CanVeto())
	assert.False(t, officer.CanVeto())
	assert.False(t, member.CanVeto())

	assert.True(t, leader.CanLaunch())
	assert.True(t, officer.CanLaunch())
	assert.False(t, member.CanLaunch())
}

func TestCreateAndJoin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "wolves", "", "p1"))
	require.NoError(t, svc.Join(ctx, "wolves", "p2"))
	require.NoError(t, svc.Join(ctx, "wolves", "p3"))

	n, err := svc.CountMembers(ctx, "wolves")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	c, err := svc.GetClan(ctx, "wolves")
	require.NoError(t, err)
	assert.Equal(t, "wolves", c.Name, "пустое название заменяется идентификатором")

	m, err := svc.Member(ctx, "wolves", "p1")
	require.NoError(t, err)
	assert.Equal(t, RoleLeader, m.Role)

	err = svc.Create(ctx, "wolves", "Волки", "p9")
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.Error(t, svc.Create(ctx, " ", "x", "p1"))
	assert.Error(t, svc.Create(ctx, "c", "x", ""))

	long := make([]rune, MaxNameLength+1)
	for i := range long {
		long[i] = 'я'
	}
	assert.Error(t, svc.Create(ctx, "c", string(long), "p1"))
}

func TestLeave(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, "wolves", "Волки", "p1"))
	require.NoError(t, svc.Join(ctx, "wolves", "p2"))

	require.NoError(t, svc.Leave(ctx, "p2"))
	_, err := svc.Member(ctx, "wolves", "p2")
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, svc.Leave(ctx, "ghost"), common.ErrNotFound)
}

func TestSetRoleOnlyLeader(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, "wolves", "Волки", "p1"))
	require.NoError(t, svc.Join(ctx, "wolves", "p2"))
	require.NoError(t, svc.Join(ctx, "wolves", "p3"))

	err := svc.SetRole(ctx, "wolves", "p2", "p3", RoleOfficer)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	require.NoError(t, svc.SetRole(ctx, "wolves", "p1", "p2", RoleOfficer))
	m, err := svc.Member(ctx, "wolves", "p2")
	require.NoError(t, err)
	assert.Equal(t, RoleOfficer, m.Role)

	assert.Error(t, svc.SetRole(ctx, "wolves", "p1", "p3", Role("KING")))
	assert.ErrorIs(t, svc.SetRole(ctx, "wolves", "p1", "outsider", RoleOfficer), common.ErrNotFound)
}

func TestSetRoleLeaderTransfersLeadership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, "wolves", "Волки", "p1"))
	require.NoError(t, svc.Join(ctx, "wolves", "p2"))

	assert.ErrorIs(t, svc.SetRole(ctx, "wolves", "p1", "p1", RoleMember), common.ErrInvalidArgument)

	require.NoError(t, svc.SetRole(ctx, "wolves", "p1", "p2", RoleLeader))
	c, err := svc.GetClan(ctx, "wolves")
	require.NoError(t, err)
	assert.Equal(t, "p2", c.LeaderID)

	members, err := svc.Members(ctx, "wolves")
	require.NoError(t, err)
	leaders := 0
	for _, m := range members {
		if m.Role == RoleLeader {
			leaders++
		}
	}
	assert.Equal(t, 1, leaders, "лидер у клана один")

	old, err := svc.Member(ctx, "wolves", "p1")
	require.NoError(t, err)
	assert.Equal(t, RoleOfficer, old.Role)
	assert.ErrorIs(t, svc.SetRole(ctx, "wolves", "p1", "p2", RoleMember), common.ErrUnauthorized)
}

func TestCheckCooldown(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, "wolves", "Волки", "p1"))

	require.NoError(t, svc.CheckCooldown(ctx, "wolves"))

	until := testNow.Add(14 * 24 * time.Hour)
	require.NoError(t, svc.SetCooldown(ctx, "wolves", until, testNow))

	err := svc.CheckCooldown(ctx, "wolves")
	var cd *common.CooldownError
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, until, cd.Until)
	assert.Equal(t, 14*24*time.Hour, cd.Remaining)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	svc.now = func() time.Time { return until }
	assert.NoError(t, svc.CheckCooldown(ctx, "wolves"))

	assert.ErrorIs(t, svc.CheckCooldown(ctx, "nobody"), common.ErrNotFound)
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingSender) SendMessage(_ context.Context, _ int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
}

func TestHandleClan(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Create(ctx, "wolves", "Волки", "p1"))
	require.NoError(t, svc.Join(ctx, "wolves", "p2"))
	require.NoError(t, svc.SetCooldown(ctx, "wolves", testNow.Add(26*time.Hour), testNow))

	sender := &recordingSender{}
	h := NewHandler(svc, sender)

	h.HandleClan(ctx, 1, "p2")
	h.HandleClan(ctx, 1, "stranger")

	require.Len(t, sender.msgs, 2)
	assert.Contains(t, sender.msgs[0], "Волки")
	assert.Contains(t, sender.msgs[0], "2 бойца")
	assert.Contains(t, sender.msgs[0], "1 день 2 часа")
	assert.Equal(t, "Вы не состоите в клане", sender.msgs[1])
}
