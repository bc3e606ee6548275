package postgres

// SQL-миграции встроены в код для упрощения деплоя.
// Порядок важен: версии применяются по возрастанию и никогда не меняются задним числом.

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{1, migration001Clans},
	{2, migration002Reputation},
	{3, migration003Votes},
	{4, migration004Relations},
	{5, migration005Retaliation},
	{6, migration006Audit},
	{7, migration007Widen},
}

var migration001Clans = `
CREATE TABLE IF NOT EXISTS clans (
    clan_id TEXT PRIMARY KEY,
    name VARCHAR(64) NOT NULL,
    leader_id TEXT,
    wmd_cooldown_until TIMESTAMPTZ,
    last_wmd_launch TIMESTAMPTZ,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS clan_members (
    player_id TEXT PRIMARY KEY,
    clan_id TEXT NOT NULL REFERENCES clans(clan_id),
    role VARCHAR(16) NOT NULL DEFAULT 'MEMBER',
    joined_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_clan_members_clan_id ON clan_members(clan_id);
`

var migration002Reputation = `
CREATE TABLE IF NOT EXISTS players (
    player_id TEXT PRIMARY KEY,
    reputation BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS reputation_history (
    id BIGSERIAL PRIMARY KEY,
    player_id TEXT NOT NULL REFERENCES players(player_id),
    change BIGINT NOT NULL,
    reason TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reputation_history_player
    ON reputation_history(player_id, created_at DESC, id DESC);
`

var migration003Votes = `
CREATE TABLE IF NOT EXISTS clan_votes (
    vote_id TEXT PRIMARY KEY,
    clan_id TEXT NOT NULL,
    vote_type VARCHAR(32) NOT NULL,
    conflict_group VARCHAR(32) NOT NULL,
    proposer_id TEXT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE',
    votes_for TEXT[] NOT NULL DEFAULT '{}',
    votes_against TEXT[] NOT NULL DEFAULT '{}',
    required_votes INTEGER NOT NULL CHECK (required_votes >= 1),
    clan_size INTEGER NOT NULL,
    target_clan_id TEXT,
    target_player_id TEXT,
    weapon_subtype VARCHAR(32),
    vetoed_by TEXT,
    veto_reason TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    resolved_at TIMESTAMPTZ,
    launched_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_clan_votes_active_group
    ON clan_votes(clan_id, conflict_group) WHERE status = 'ACTIVE';
CREATE INDEX IF NOT EXISTS idx_clan_votes_active_expiry
    ON clan_votes(expires_at) WHERE status = 'ACTIVE';
CREATE INDEX IF NOT EXISTS idx_clan_votes_clan_created
    ON clan_votes(clan_id, created_at DESC);
`

var migration004Relations = `
CREATE TABLE IF NOT EXISTS clan_relations (
    clan_a TEXT NOT NULL,
    clan_b TEXT NOT NULL,
    relation VARCHAR(16) NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    last_updated TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (clan_a, clan_b),
    CHECK (clan_a < clan_b)
);
`

var migration005Retaliation = `
CREATE TABLE IF NOT EXISTS retaliation_rights (
    id BIGSERIAL PRIMARY KEY,
    player_id TEXT NOT NULL,
    player_clan_id TEXT NOT NULL,
    can_retaliate_against_clan TEXT NOT NULL,
    granted_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    used BOOLEAN NOT NULL DEFAULT FALSE,
    used_at TIMESTAMPTZ,
    source_event_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_retaliation_rights_lookup
    ON retaliation_rights(player_id, can_retaliate_against_clan, expires_at, id) WHERE NOT used;
CREATE INDEX IF NOT EXISTS idx_retaliation_rights_player ON retaliation_rights(player_id);
`

var migration006Audit = `
CREATE TABLE IF NOT EXISTS consequence_events (
    event_id TEXT PRIMARY KEY,
    launcher_clan_id TEXT NOT NULL,
    target_clan_id TEXT NOT NULL,
    warhead_type VARCHAR(32) NOT NULL,
    tier VARCHAR(32) NOT NULL,
    severity VARCHAR(16) NOT NULL,
    reputation_loss INTEGER NOT NULL,
    cooldown_days INTEGER NOT NULL,
    vote_id TEXT,
    fallback_tier BOOLEAN NOT NULL DEFAULT FALSE,
    applied_steps INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consequence_events_launcher
    ON consequence_events(launcher_clan_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_consequence_events_target
    ON consequence_events(target_clan_id, created_at DESC);
`

// Имена боеголовок и оружия приходят от игроков как есть и по длине не ограничены.
var migration007Widen = `
ALTER TABLE clan_votes ALTER COLUMN weapon_subtype TYPE TEXT;
ALTER TABLE consequence_events ALTER COLUMN warhead_type TYPE TEXT;
ALTER TABLE consequence_events ADD COLUMN IF NOT EXISTS retaliation BOOLEAN NOT NULL DEFAULT FALSE;
`
