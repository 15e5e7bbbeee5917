package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS speakers (
    mac TEXT PRIMARY KEY,
    ip TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    volume INTEGER NOT NULL DEFAULT 0,
    muted INTEGER NOT NULL DEFAULT 0,
    led_on INTEGER NOT NULL DEFAULT 0,
    group_name TEXT NOT NULL DEFAULT '',
    repeat_mode TEXT NOT NULL DEFAULT '',
    ap_ssid TEXT NOT NULL DEFAULT '',
    last_seen_at TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_speakers_ip ON speakers(ip);
CREATE INDEX IF NOT EXISTS idx_speakers_group ON speakers(group_name) WHERE group_name != '';

CREATE TABLE IF NOT EXISTS speaker_groups (
    group_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    main_mac TEXT NOT NULL,
    members_json TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_groups_name ON speaker_groups(name);
`
